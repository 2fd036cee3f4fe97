package utils

import (
	"strings"
)

// SplitList splits a comma separated value, trimming blanks and dropping
// duplicates while keeping the first occurrence order.
func SplitList(raw string) []string {
	return Dedup(strings.Split(raw, ","))
}

func Dedup(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
