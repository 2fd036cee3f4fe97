package db

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	// ErrTableNotFound is returned when a table does not exist or exposes no columns.
	ErrTableNotFound = errors.New("table not found")
	// ErrInvalidIdentifier is returned for table or column names that cannot be quoted safely.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// TextTimeLayout is used to bind range arguments against text timestamp columns.
// Zero padded values compare correctly as strings.
const TextTimeLayout = "2006-01-02 15:04:05"

type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

func (o Order) SQL() string {
	if o == OrderDesc {
		return "DESC"
	}
	return "ASC"
}

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Day returns the range covering the calendar day of t in t's location.
func Day(t time.Time) TimeRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// ParseDay parses a YYYY-MM-DD date into a day range.
func ParseDay(date string, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("parse day %q: %w", date, err)
	}
	return Day(t), nil
}

// RowQuery selects Columns from Table. TimeColumn carries the optional Range
// filter and orders rows unless OrderColumn is set. TextTime makes providers
// bind the range as TextTimeLayout strings instead of timestamps.
type RowQuery struct {
	Table       string
	Columns     []string
	TimeColumn  string
	OrderColumn string
	TextTime    bool
	Order       Order
	Range       *TimeRange
	Limit       int
}

// SortColumn is the column rows are ordered by, or "" for storage order.
func (q RowQuery) SortColumn() string {
	if q.OrderColumn != "" {
		return q.OrderColumn
	}
	return q.TimeColumn
}

// Validate checks identifiers before they are interpolated into SQL.
func (q RowQuery) Validate() error {
	if err := ValidateIdentifier(q.Table); err != nil {
		return err
	}
	if len(q.Columns) == 0 {
		return fmt.Errorf("%w: no columns selected from %q", ErrInvalidIdentifier, q.Table)
	}
	for _, c := range q.Columns {
		if err := ValidateIdentifier(c); err != nil {
			return err
		}
	}
	for _, c := range []string{q.TimeColumn, q.OrderColumn} {
		if c == "" {
			continue
		}
		if err := ValidateIdentifier(c); err != nil {
			return err
		}
	}
	if q.Range != nil && q.TimeColumn == "" {
		return fmt.Errorf("range filter on %q requires a time column", q.Table)
	}
	return nil
}

// AverageQuery averages Columns per Bucket of TimeColumn. The bucket start is
// returned under TimeColumn so callers can treat the result like raw rows.
type AverageQuery struct {
	Table      string
	Columns    []string
	TimeColumn string
	TextTime   bool
	Bucket     time.Duration
	Range      *TimeRange
	Limit      int
}

func (q AverageQuery) Validate() error {
	if q.TimeColumn == "" {
		return fmt.Errorf("average query on %q requires a time column", q.Table)
	}
	if q.Bucket < time.Second {
		return fmt.Errorf("average query on %q: bucket %s is below one second", q.Table, q.Bucket)
	}
	return RowQuery{Table: q.Table, Columns: q.Columns, TimeColumn: q.TimeColumn}.Validate()
}

// RangeArgs returns the bound values for a range filter.
func RangeArgs(r TimeRange, text bool) (any, any) {
	if text {
		return r.Start.Format(TextTimeLayout), r.End.Format(TextTimeLayout)
	}
	return r.Start, r.End
}

var identifierPattern = regexp.MustCompile(`^[\p{L}\p{N}_ ]+$`)

// ValidateIdentifier accepts letters, digits, underscores and inner spaces.
func ValidateIdentifier(name string) error {
	if name == "" || len(name) > 128 || !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}
