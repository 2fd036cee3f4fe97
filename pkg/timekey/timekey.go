// Package timekey turns heterogeneous timestamp values into fixed-width,
// zero-padded string keys that sort and compare correctly as text.
package timekey

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type Granularity int

const (
	// Minute keys look like "2024-05-01 09:14" and are used to join sources.
	Minute Granularity = iota
	// Exact keys look like "2024-05-01 09:14:07" and order rows of one source.
	Exact
)

const (
	minuteLayout = "2006-01-02 15:04"
	exactLayout  = "2006-01-02 15:04:05"
)

func (g Granularity) layout() string {
	if g == Exact {
		return exactLayout
	}
	return minuteLayout
}

// Width is the length of a key produced at g.
func (g Granularity) Width() int {
	return len(g.layout())
}

func (g Granularity) String() string {
	if g == Exact {
		return "exact"
	}
	return "minute"
}

// Canonicalize never fails. Nil and empty input yield "" which matches no
// real key. Structured times keep their own location.
func Canonicalize(v any, g Granularity) string {
	return CanonicalizeIn(v, g, nil)
}

// CanonicalizeIn is Canonicalize with every instant rendered in loc, so the
// same moment read back in different zones produces one key. Text without an
// offset is read as wall clock in loc. A nil loc keeps each value's own zone.
func CanonicalizeIn(v any, g Granularity, loc *time.Location) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if t.IsZero() {
			return ""
		}
		if loc != nil {
			t = t.In(loc)
		}
		return t.Format(g.layout())
	case *time.Time:
		if t == nil {
			return ""
		}
		return CanonicalizeIn(*t, g, loc)
	case string:
		return canonicalizeText(t, g, loc)
	case []byte:
		return canonicalizeText(string(t), g, loc)
	case fmt.Stringer:
		return canonicalizeText(t.String(), g, loc)
	default:
		return canonicalizeText(fmt.Sprint(v), g, loc)
	}
}

func canonicalizeText(s string, g Granularity, loc *time.Location) string {
	s = normalizeDate(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	// pure digit strings are left to the mask, dateparse would read them as epochs
	if strings.ContainsAny(s, "-:") {
		in := loc
		if in == nil {
			in = time.UTC
		}
		// with a nil loc an explicit offset keeps its wall clock
		if t, err := dateparse.ParseIn(s, in); err == nil {
			if loc != nil {
				t = t.In(loc)
			}
			return t.Format(g.layout())
		}
	}
	return maskText(s, g)
}

// maskText is the fallback for text dateparse rejects. Fractional seconds and
// zone suffixes are dropped from the clock part only, then the result is cut
// to the key width. Text that does not open with a date is only cut.
func maskText(s string, g Granularity) string {
	date, clock := splitDateTime(strings.TrimSpace(s))
	if d, ok := dateParts(date); ok {
		if i := strings.IndexAny(clock, ".Z+-"); i >= 0 {
			clock = clock[:i]
		}
		s = strings.TrimSpace(d + " " + clock)
	}
	s = strings.TrimSpace(s)
	if w := g.Width(); len(s) > w {
		s = s[:w]
	}
	return s
}

// normalizeDate rewrites a leading "2024.5.1" or "2024/05/01" date as
// "2024-05-01". The rest of s is kept as is.
func normalizeDate(s string) string {
	date, _ := splitDateTime(s)
	d, ok := dateParts(date)
	if !ok {
		return s
	}
	return d + s[len(date):]
}

func splitDateTime(s string) (date, clock string) {
	if i := strings.IndexAny(s, "T "); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// dateParts reports whether date is year, month and day separated by '-',
// '.' or '/', returning it zero padded with '-' separators.
func dateParts(date string) (string, bool) {
	parts := strings.FieldsFunc(date, func(r rune) bool {
		return r == '-' || r == '.' || r == '/'
	})
	if len(parts) != 3 || len(parts[0]) != 4 || strings.Trim(date, "0123456789-./") != "" {
		return "", false
	}
	for i := 1; i < 3; i++ {
		switch len(parts[i]) {
		case 1:
			parts[i] = "0" + parts[i]
		case 2:
		default:
			return "", false
		}
	}
	return strings.Join(parts, "-"), true
}
