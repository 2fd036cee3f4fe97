// Package schema classifies the columns of a table whose layout is unknown
// ahead of time and picks the ones a free-text question refers to.
package schema

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/canopy-network/sensorx/pkg/db"
)

type Role int

const (
	RoleOther Role = iota
	RoleTimestamp
	RoleSensor
	RoleIdentifier
)

func (r Role) String() string {
	switch r {
	case RoleTimestamp:
		return "timestamp"
	case RoleSensor:
		return "sensor"
	case RoleIdentifier:
		return "identifier"
	default:
		return "other"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type ColumnDescriptor struct {
	Name         string `json:"name"`
	DeclaredType string `json:"declared_type"`
	Role         Role   `json:"role"`
}

// SensorKeywords are matched as case-insensitive substrings of a column name.
var SensorKeywords = []string{
	"temperature", "temp", "humidity", "pressure", "voltage", "current",
	"power", "energy", "speed", "flow", "level", "rpm", "vibration",
	"온도", "습도", "압력", "전압", "전류", "전력",
}

var (
	timestampName = regexp.MustCompile(`(?i)date|time|created|recorded`)
	identifierTok = []string{"lot", "batch", "id", "no"}
)

type rolePredicate func(c db.Column) bool

// roleRules are evaluated top to bottom; the first match assigns the role.
var roleRules = []struct {
	role  Role
	match rolePredicate
}{
	{RoleTimestamp, func(c db.Column) bool {
		return timestampName.MatchString(c.Name) || IsTemporalType(c.Type)
	}},
	{RoleSensor, func(c db.Column) bool {
		return IsNumericType(c.Type) && HasSensorKeyword(c.Name)
	}},
	{RoleIdentifier, func(c db.Column) bool {
		return slices.ContainsFunc(SplitName(c.Name), func(w string) bool {
			return slices.Contains(identifierTok, w)
		})
	}},
}

// ClassifyColumn assigns exactly one role to c.
func ClassifyColumn(c db.Column) Role {
	for _, rule := range roleRules {
		if rule.match(c) {
			return rule.role
		}
	}
	return RoleOther
}

func HasSensorKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range SensorKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// SplitName breaks snake_case, kebab-case, spaced and camelCase names into
// lowercase words.
func SplitName(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Table is the classified schema of one table, produced once per request.
type Table struct {
	Name    string             `json:"name"`
	Columns []ColumnDescriptor `json:"columns"`
}

// Classify derives a role for every column, preserving order.
func Classify(name string, columns []db.Column) Table {
	t := Table{Name: name, Columns: make([]ColumnDescriptor, len(columns))}
	for i, c := range columns {
		t.Columns[i] = ColumnDescriptor{Name: c.Name, DeclaredType: c.Type, Role: ClassifyColumn(c)}
	}
	return t
}

func (t Table) SensorColumns() []ColumnDescriptor {
	return t.withRole(RoleSensor)
}

func (t Table) SensorNames() []string {
	sensors := t.SensorColumns()
	names := make([]string, len(sensors))
	for i, c := range sensors {
		names[i] = c.Name
	}
	return names
}

// TimestampColumn returns the first timestamp column.
func (t Table) TimestampColumn() (ColumnDescriptor, bool) {
	return t.first(RoleTimestamp)
}

func (t Table) IdentifierColumn() (ColumnDescriptor, bool) {
	return t.first(RoleIdentifier)
}

// Numeric returns every numeric column that is not a timestamp, whatever its name.
func (t Table) Numeric() []ColumnDescriptor {
	var out []ColumnDescriptor
	for _, c := range t.Columns {
		if c.Role != RoleTimestamp && IsNumericType(c.DeclaredType) {
			out = append(out, c)
		}
	}
	return out
}

// TimestampIsText reports whether the timestamp column stores text, in
// which case range filters compare formatted strings.
func (t Table) TimestampIsText() bool {
	c, ok := t.TimestampColumn()
	return ok && IsTextType(c.DeclaredType)
}

func (t Table) Has(column string) bool {
	_, ok := t.Lookup(column)
	return ok
}

func (t Table) Lookup(column string) (ColumnDescriptor, bool) {
	for _, c := range t.Columns {
		if c.Name == column {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

func (t Table) withRole(role Role) []ColumnDescriptor {
	var out []ColumnDescriptor
	for _, c := range t.Columns {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

func (t Table) first(role Role) (ColumnDescriptor, bool) {
	for _, c := range t.Columns {
		if c.Role == role {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}
