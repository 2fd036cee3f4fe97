package schema

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var defaultDictionaryYAML []byte

// Dictionary translates English column words to the Korean words users type,
// and back.
type Dictionary struct {
	enKo map[string][]string
	// koEn entries are sorted by Korean word for deterministic scans
	koEn []reverseEntry
}

type reverseEntry struct {
	ko string
	en []string
}

func DefaultDictionary() *Dictionary {
	d, err := ParseDictionary(defaultDictionaryYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded dictionary: %v", err))
	}
	return d
}

func ParseDictionary(data []byte) (*Dictionary, error) {
	var enKo map[string][]string
	if err := yaml.Unmarshal(data, &enKo); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	english := make([]string, 0, len(enKo))
	for en := range enKo {
		english = append(english, en)
	}
	sort.Strings(english)

	reverse := map[string][]string{}
	for _, en := range english {
		for _, ko := range enKo[en] {
			// latin entries such as "LOT" are covered by the query's own words
			if isASCII(ko) {
				continue
			}
			if !slices.Contains(reverse[ko], en) {
				reverse[ko] = append(reverse[ko], en)
			}
		}
	}

	d := &Dictionary{enKo: enKo}
	for ko, en := range reverse {
		d.koEn = append(d.koEn, reverseEntry{ko: ko, en: en})
	}
	sort.Slice(d.koEn, func(i, j int) bool { return d.koEn[i].ko < d.koEn[j].ko })
	return d, nil
}

// Translations returns the Korean words for an English word.
func (d *Dictionary) Translations(word string) []string {
	return d.enKo[strings.ToLower(word)]
}

var latinWord = regexp.MustCompile(`[a-z]+`)

// ToEnglish returns the English words a text refers to: dictionary hits for
// any Korean word it contains, then its own latin words. No duplicates.
func (d *Dictionary) ToEnglish(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	add := func(w string) {
		if !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	for _, e := range d.koEn {
		if strings.Contains(lower, e.ko) {
			for _, en := range e.en {
				add(en)
			}
		}
	}
	for _, w := range latinWord.FindAllString(lower, -1) {
		add(w)
	}
	return out
}

// Describe renders a column name in local words, keeping unknown words.
//
//	"tank_pressure" -> "탱크 압력"
func (d *Dictionary) Describe(column string) string {
	words := SplitName(column)
	for i, w := range words {
		if ko := d.enKo[w]; len(ko) > 0 {
			words[i] = ko[0]
		}
	}
	return strings.Join(words, " ")
}

// DescribeColumns lists columns one per line as "- name (type): description".
func (d *Dictionary) DescribeColumns(columns []ColumnDescriptor) string {
	lines := make([]string, len(columns))
	for i, c := range columns {
		lines[i] = fmt.Sprintf("- %s (%s): %s", c.Name, c.DeclaredType, d.Describe(c.Name))
	}
	return strings.Join(lines, "\n")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
