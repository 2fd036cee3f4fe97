package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLabels(t *testing.T) {
	en := DefaultLabels("en")
	ko := DefaultLabels("ko")

	tests := []struct {
		column string
		label  string
		kor    string
		unit   string
	}{
		{"temperature", "Temperature", "온도", "°C"},
		{"humidity_pct", "Humidity", "습도", "%"},
		{"tank_pressure_kpa", "Tank pressure", "탱크 압력", "kPa"},
		{"line_pressure", "Pressure", "압력", "kPa"},
		{"voltage", "Voltage", "전압", "V"},
		{"current_a", "Current", "전류", "A"},
		{"energy_used", "Power", "전력", "kW"},
		{"belt_speed", "Speed", "속도", "m/s"},
		{"coolant_flow", "Flow", "유량", "L/min"},
		{"tank_level", "Level", "레벨", "%"},
		{"motor_rpm", "Rotation", "회전수", "RPM"},
		{"vibration", "Vibration", "진동", "mm/s"},
		{"압력_1", "Pressure", "압력", "kPa"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			d := en.Describe(tt.column)
			assert.Equal(t, tt.label, d.DisplayLabel)
			assert.Equal(t, tt.unit, d.Unit)
			assert.Equal(t, tt.kor, ko.Describe(tt.column).DisplayLabel)
		})
	}

	unknown := en.Describe("weight")
	assert.Equal(t, SensorDescriptor{ColumnName: "weight", DisplayLabel: "weight"}, unknown)
	assert.True(t, en.Describe("humidity").IsPercent())
	assert.False(t, en.Describe("temperature").IsPercent())
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - any: [temp]
    labels: {en: Oven temperature}
    unit: "°F"
`), 0o600))

	l, err := LoadLabels(path, "de")
	require.NoError(t, err)
	d := l.Describe("oven_temp")
	assert.Equal(t, "Oven temperature", d.DisplayLabel)
	assert.Equal(t, "°F", d.Unit)

	l, err = LoadLabels("", "ko")
	require.NoError(t, err)
	assert.Equal(t, "ko", l.Locale)

	_, err = LoadLabels(filepath.Join(dir, "missing.yaml"), "en")
	assert.Error(t, err)

	_, err = ParseLabels([]byte("rules: []"), "en")
	assert.Error(t, err)

	_, err = ParseLabels([]byte("rules:\n  - unit: V\n"), "en")
	assert.Error(t, err)
}
