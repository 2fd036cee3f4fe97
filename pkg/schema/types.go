package schema

import (
	"strings"
)

var numericBases = []string{
	"int", "uint", "tinyint", "smallint", "mediumint", "bigint", "integer",
	"decimal", "numeric", "float", "double", "real", "number", "serial", "bigserial",
}

var textBases = []string{"text", "char", "varchar", "string", "fixedstring", "character", "tinytext", "mediumtext", "longtext"}

// baseType lowercases a declared type, unwraps Nullable(...) and
// LowCardinality(...) and drops any precision arguments.
//
//	"Nullable(Decimal(18, 4))" -> "decimal"
//	"double precision"         -> "double precision"
//	"int(11) unsigned"         -> "int"
func baseType(declared string) string {
	t := strings.ToLower(strings.TrimSpace(declared))
	for {
		switch {
		case strings.HasPrefix(t, "nullable(") && strings.HasSuffix(t, ")"):
			t = t[len("nullable(") : len(t)-1]
		case strings.HasPrefix(t, "lowcardinality(") && strings.HasSuffix(t, ")"):
			t = t[len("lowcardinality(") : len(t)-1]
		default:
			if i := strings.Index(t, "("); i >= 0 {
				t = t[:i]
			}
			return strings.TrimSpace(t)
		}
	}
}

// IsNumericType reports whether the declared type is an integer, decimal or
// floating point family in MySQL, PostgreSQL or ClickHouse spelling.
func IsNumericType(declared string) bool {
	base := baseType(declared)
	for _, prefix := range numericBases {
		if strings.HasPrefix(base, prefix) {
			// "interval" shares the "int" prefix
			return !strings.HasPrefix(base, "interval")
		}
	}
	return false
}

// IsTemporalType reports whether the declared type is a date or time family.
func IsTemporalType(declared string) bool {
	t := strings.ToLower(declared)
	return strings.Contains(t, "date") || strings.Contains(t, "time")
}

// IsTextType reports whether values of the declared type arrive as strings.
func IsTextType(declared string) bool {
	base := baseType(declared)
	for _, prefix := range textBases {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}
