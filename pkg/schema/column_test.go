package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/sensorx/pkg/db"
)

func TestClassifyColumn(t *testing.T) {
	tests := []struct {
		name string
		col  db.Column
		want Role
	}{
		{"decimal pressure", db.Column{Name: "tank_pressure_kpa", Type: "decimal(10,2)"}, RoleSensor},
		{"recorded_at datetime", db.Column{Name: "recorded_at", Type: "datetime"}, RoleTimestamp},
		{"timestamp by type only", db.Column{Name: "ts", Type: "DateTime64(3)"}, RoleTimestamp},
		{"timestamp name wins over sensor", db.Column{Name: "temp_time", Type: "Float64"}, RoleTimestamp},
		{"nullable clickhouse float", db.Column{Name: "Humidity", Type: "Nullable(Float32)"}, RoleSensor},
		{"korean sensor", db.Column{Name: "온도", Type: "double"}, RoleSensor},
		{"sensor keyword on text is not sensor", db.Column{Name: "power_state", Type: "varchar(16)"}, RoleOther},
		{"numeric without keyword", db.Column{Name: "weight", Type: "float"}, RoleOther},
		{"lot identifier", db.Column{Name: "lot_no", Type: "varchar(32)"}, RoleIdentifier},
		{"camel identifier", db.Column{Name: "batchId", Type: "bigint"}, RoleIdentifier},
		{"humidity is not an id", db.Column{Name: "humidity_note", Type: "text"}, RoleOther},
		{"interval is not numeric", db.Column{Name: "flow_window", Type: "interval"}, RoleOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyColumn(tt.col))
		})
	}
}

func TestClassify_PressureTable(t *testing.T) {
	table := Classify("sensors", []db.Column{
		{Name: "tank_pressure_kpa", Type: "decimal"},
		{Name: "recorded_at", Type: "datetime"},
	})

	require.Len(t, table.SensorColumns(), 1)
	assert.Equal(t, "tank_pressure_kpa", table.SensorColumns()[0].Name)
	ts, ok := table.TimestampColumn()
	require.True(t, ok)
	assert.Equal(t, "recorded_at", ts.Name)
	assert.False(t, table.TimestampIsText())

	d := DefaultLabels("en").Describe("tank_pressure_kpa")
	assert.Equal(t, "kPa", d.Unit)
	assert.Equal(t, "Tank pressure", d.DisplayLabel)
}

func TestClassify_RolesAreExclusiveAndStable(t *testing.T) {
	cols := []db.Column{
		{Name: "id", Type: "Int64"},
		{Name: "created", Type: "String"},
		{Name: "voltage_l1", Type: "Float64"},
		{Name: "comment", Type: "String"},
	}
	first := Classify("t", cols)
	second := Classify("t", cols)
	assert.Equal(t, first, second)

	want := []Role{RoleIdentifier, RoleTimestamp, RoleSensor, RoleOther}
	for i, c := range first.Columns {
		assert.Equal(t, want[i], c.Role, c.Name)
	}
	assert.True(t, first.TimestampIsText())
	assert.Equal(t, []string{"voltage_l1"}, first.SensorNames())

	id, ok := first.IdentifierColumn()
	require.True(t, ok)
	assert.Equal(t, "id", id.Name)
	assert.Len(t, first.Numeric(), 2)
	assert.True(t, first.Has("comment"))
	assert.False(t, first.Has("missing"))
}

func TestSplitName(t *testing.T) {
	assert.Equal(t, []string{"tank", "pressure", "kpa"}, SplitName("tankPressure_kpa"))
	assert.Equal(t, []string{"lot", "id"}, SplitName("lotID"))
	assert.Equal(t, []string{"motor", "rpm"}, SplitName("motor-rpm"))
	assert.Empty(t, SplitName("__"))
}

func TestTypeFamilies(t *testing.T) {
	assert.True(t, IsNumericType("Nullable(Decimal(18, 4))"))
	assert.True(t, IsNumericType("LowCardinality(Nullable(UInt16))"))
	assert.True(t, IsNumericType("double precision"))
	assert.True(t, IsNumericType("int(11) unsigned"))
	assert.False(t, IsNumericType("interval"))
	assert.False(t, IsNumericType("timestamp"))
	assert.True(t, IsTextType("character varying"))
	assert.True(t, IsTextType("Nullable(String)"))
	assert.False(t, IsTextType("DateTime"))
	assert.True(t, IsTemporalType("timestamp with time zone"))
}
