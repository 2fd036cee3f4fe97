package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed labels.yaml
var defaultLabelsYAML []byte

// SensorDescriptor is the display metadata derived from a column name.
type SensorDescriptor struct {
	ColumnName   string `json:"column_name"`
	DisplayLabel string `json:"display_label"`
	Unit         string `json:"unit"`
}

// PercentUnit marks readings confined to [0,100].
const PercentUnit = "%"

// IsPercent reports whether readings of the sensor are confined to [0,100].
func (d SensorDescriptor) IsPercent() bool {
	return d.Unit == PercentUnit
}

type LabelRule struct {
	All    []string          `yaml:"all"`
	Any    []string          `yaml:"any"`
	Labels map[string]string `yaml:"labels"`
	Unit   string            `yaml:"unit"`
}

func (r LabelRule) matches(lowerName string) bool {
	for _, k := range r.All {
		if !strings.Contains(lowerName, strings.ToLower(k)) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return len(r.All) > 0
	}
	for _, k := range r.Any {
		if strings.Contains(lowerName, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Labels is an ordered table of label rules for one locale.
type Labels struct {
	Rules  []LabelRule `yaml:"rules"`
	Locale string      `yaml:"-"`
}

// DefaultLabels returns the built-in table for locale.
func DefaultLabels(locale string) *Labels {
	l, err := ParseLabels(defaultLabelsYAML, locale)
	if err != nil {
		panic(fmt.Sprintf("embedded label table: %v", err))
	}
	return l
}

// LoadLabels reads a label table from a YAML file. An empty path yields the
// built-in table.
func LoadLabels(path, locale string) (*Labels, error) {
	if path == "" {
		return DefaultLabels(locale), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading label file: %w", err)
	}
	return ParseLabels(data, locale)
}

func ParseLabels(data []byte, locale string) (*Labels, error) {
	var l Labels
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing label table: %w", err)
	}
	if len(l.Rules) == 0 {
		return nil, errors.New("label table has no rules")
	}
	for i, r := range l.Rules {
		if len(r.All) == 0 && len(r.Any) == 0 {
			return nil, fmt.Errorf("label rule %d has no keywords", i)
		}
	}
	if locale == "" {
		locale = "en"
	}
	l.Locale = locale
	return &l, nil
}

// Describe returns the first matching rule's label and unit, falling back to
// the bare column name with no unit.
func (l *Labels) Describe(column string) SensorDescriptor {
	lower := strings.ToLower(column)
	for _, r := range l.Rules {
		if !r.matches(lower) {
			continue
		}
		label := r.Labels[l.Locale]
		if label == "" {
			label = r.Labels["en"]
		}
		if label == "" {
			label = column
		}
		return SensorDescriptor{ColumnName: column, DisplayLabel: label, Unit: r.Unit}
	}
	return SensorDescriptor{ColumnName: column, DisplayLabel: column}
}
