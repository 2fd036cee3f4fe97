package schema

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scoring weights.
const (
	ScoreDirectMention = 100
	ScoreLocalWord     = 40
	ScoreKeyword       = 30
	ScorePartial       = 10

	// MatchThreshold is the minimum score for a column to be selected.
	MatchThreshold = 30
)

type Candidate struct {
	Column string `json:"column"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

type MatchResult struct {
	Selected []string    `json:"selected"`
	Ranked   []Candidate `json:"ranked"`
	// RowLimit is a magnitude such as "최근 100개" or "last 100 rows", 0 when absent.
	RowLimit int `json:"row_limit,omitempty"`
	// Available describes every candidate when nothing was selected.
	Available string `json:"available,omitempty"`
}

type Matcher struct {
	dict *Dictionary
}

func NewMatcher(dict *Dictionary) *Matcher {
	if dict == nil {
		dict = DefaultDictionary()
	}
	return &Matcher{dict: dict}
}

var (
	magnitudePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*(?:개의|건의|개|건|회|lot|로트|rows?|records?|samples?)`),
		regexp.MustCompile(`최근\s*(\d+)`),
		regexp.MustCompile(`(?i)(?:last|latest|recent)\s+(\d+)`),
	}
	lotPattern = regexp.MustCompile(`(?i)lot|로트|롯|배치|뱃치|batch`)
)

// ExtractNumber returns the row count a question asks for.
func ExtractNumber(text string) (int, bool) {
	for _, p := range magnitudePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// IsLotQuery reports whether a question is about lots or batches.
func IsLotQuery(text string) bool {
	return lotPattern.MatchString(text)
}

// Match scores candidates against a free-text question. Ties keep the
// candidates' declaration order.
func (m *Matcher) Match(query string, candidates []ColumnDescriptor) MatchResult {
	query = strings.TrimSpace(query)
	if query == "" || len(candidates) == 0 {
		return MatchResult{}
	}

	var res MatchResult
	if n, ok := ExtractNumber(query); ok {
		res.RowLimit = n
	}
	// magnitudes are row limits, never column hints
	stripped := query
	for _, p := range magnitudePatterns {
		stripped = p.ReplaceAllString(stripped, " ")
	}

	lower := strings.ToLower(stripped)
	english := m.dict.ToEnglish(stripped)
	queryWords := letterWords(lower)

	for _, c := range candidates {
		if cand, ok := m.score(c.Name, lower, english, queryWords); ok {
			res.Ranked = append(res.Ranked, cand)
		}
	}
	sort.SliceStable(res.Ranked, func(i, j int) bool {
		return res.Ranked[i].Score > res.Ranked[j].Score
	})

	for _, c := range res.Ranked {
		if c.Score >= MatchThreshold {
			res.Selected = append(res.Selected, c.Column)
		}
	}
	if len(res.Selected) == 0 {
		res.Available = m.dict.DescribeColumns(candidates)
	}
	return res
}

func (m *Matcher) score(column, lowerQuery string, english, queryWords []string) (Candidate, bool) {
	colLower := strings.ToLower(column)
	colWords := SplitName(column)
	c := Candidate{Column: column}
	note := func(reason string) {
		if c.Reason == "" {
			c.Reason = reason
		}
	}

	if strings.Contains(lowerQuery, colLower) {
		c.Score += ScoreDirectMention
		note("column named directly")
	}
	for _, w := range colWords {
		for _, en := range english {
			if en == w {
				c.Score += ScoreKeyword
				note("keyword: " + w)
				break
			}
		}
	}
	for _, w := range colWords {
		for _, ko := range m.dict.Translations(w) {
			if !isASCII(ko) && strings.Contains(lowerQuery, ko) {
				c.Score += ScoreLocalWord
				note("local word: " + ko + " -> " + w)
			}
		}
	}
	for _, qw := range queryWords {
		if utf8.RuneCountInString(qw) < 3 || slices.Contains(colWords, qw) {
			continue
		}
		if strings.Contains(colLower, qw) {
			c.Score += ScorePartial
			note("partial: " + qw)
		}
	}
	return c, c.Score > 0
}

// letterWords splits text on anything that is not a letter.
func letterWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
}
