package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SX_INT", "12")
	t.Setenv("SX_BAD_INT", "-3")
	t.Setenv("SX_FLOAT", "2.5")
	t.Setenv("SX_INF", "+Inf")
	t.Setenv("SX_BOOL", "yes")
	t.Setenv("SX_DUR", "0s")

	assert.Equal(t, "fallback", Env("SX_MISSING", "fallback"))
	assert.Equal(t, 12, EnvInt("SX_INT", 4))
	assert.Equal(t, 4, EnvInt("SX_BAD_INT", 4))
	assert.Equal(t, 2.5, EnvFloat("SX_FLOAT", 3))
	assert.Equal(t, 3.0, EnvFloat("SX_INF", 3))
	assert.True(t, EnvBool("SX_BOOL", false))
	assert.True(t, EnvBool("SX_MISSING", true))
	assert.Equal(t, time.Duration(0), EnvDuration("SX_DUR", time.Minute))
	assert.Equal(t, time.Minute, EnvDuration("SX_MISSING", time.Minute))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"raw_data", "simulation_results"}, SplitList(" raw_data, ,simulation_results,raw_data "))
	assert.Empty(t, SplitList(""))
}
