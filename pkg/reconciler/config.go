package reconciler

import (
	"time"

	"github.com/canopy-network/sensorx/pkg/anomaly"
	"github.com/canopy-network/sensorx/pkg/bounds"
	"github.com/canopy-network/sensorx/pkg/trend"
	"github.com/canopy-network/sensorx/pkg/utils"
)

// Defaults for Config.
const (
	DefaultFetchConcurrency = 4
	DefaultRequestTimeout   = 30 * time.Second
	DefaultRawTable         = "raw_data"
	DefaultSimulatedTable   = "simulation_results"
	DefaultRecentLimit      = 50
	DefaultAlertLimit       = 100
	DefaultHistoryLimit     = 5000
	DefaultReferenceLimit   = 20000
)

// Config holds engine settings.
type Config struct {
	// FetchConcurrency sizes the worker pool shared by all requests.
	FetchConcurrency int
	// RequestTimeout bounds one Run, fetches included.
	RequestTimeout time.Duration
	IQRMultiplier  float64
	AlertSigma     float64

	// RawTable and SimulatedTable are the comparison tables history is
	// reconciled across.
	RawTable       string
	SimulatedTable string
	MarkerColumn   string

	// RecentLimit is the number of newest rows trends are computed from.
	RecentLimit int
	// AlertLimit is the number of newest rows sigma alerts are computed from.
	AlertLimit     int
	HistoryLimit   int
	ReferenceLimit int

	LabelsFile  string
	LabelLocale string
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		FetchConcurrency: DefaultFetchConcurrency,
		RequestTimeout:   DefaultRequestTimeout,
		IQRMultiplier:    bounds.DefaultMultiplier,
		AlertSigma:       trend.DefaultSigma,
		RawTable:         DefaultRawTable,
		SimulatedTable:   DefaultSimulatedTable,
		MarkerColumn:     anomaly.DefaultMarkerColumn,
		RecentLimit:      DefaultRecentLimit,
		AlertLimit:       DefaultAlertLimit,
		HistoryLimit:     DefaultHistoryLimit,
		ReferenceLimit:   DefaultReferenceLimit,
		LabelLocale:      "en",
	}
}

// ConfigFromEnv overlays environment variables on DefaultConfig.
func ConfigFromEnv() Config {
	d := DefaultConfig()
	return Config{
		FetchConcurrency: utils.EnvInt("FETCH_CONCURRENCY", d.FetchConcurrency),
		RequestTimeout:   utils.EnvDuration("REQUEST_TIMEOUT", d.RequestTimeout),
		IQRMultiplier:    utils.EnvFloat("IQR_MULTIPLIER", d.IQRMultiplier),
		AlertSigma:       utils.EnvFloat("ALERT_SIGMA", d.AlertSigma),
		RawTable:         utils.Env("RAW_TABLE", d.RawTable),
		SimulatedTable:   utils.Env("SIMULATED_TABLE", d.SimulatedTable),
		MarkerColumn:     utils.Env("MARKER_COLUMN", d.MarkerColumn),
		RecentLimit:      utils.EnvInt("RECENT_LIMIT", d.RecentLimit),
		AlertLimit:       utils.EnvInt("ALERT_LIMIT", d.AlertLimit),
		HistoryLimit:     utils.EnvInt("HISTORY_LIMIT", d.HistoryLimit),
		ReferenceLimit:   utils.EnvInt("REFERENCE_LIMIT", d.ReferenceLimit),
		LabelsFile:       utils.Env("SENSOR_LABELS_FILE", ""),
		LabelLocale:      utils.Env("SENSOR_LABEL_LOCALE", d.LabelLocale),
	}
}

// withDefaults fills zero fields so a partially built Config is usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = d.FetchConcurrency
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.IQRMultiplier <= 0 {
		c.IQRMultiplier = d.IQRMultiplier
	}
	if c.AlertSigma <= 0 {
		c.AlertSigma = d.AlertSigma
	}
	if c.RawTable == "" {
		c.RawTable = d.RawTable
	}
	if c.SimulatedTable == "" {
		c.SimulatedTable = d.SimulatedTable
	}
	if c.MarkerColumn == "" {
		c.MarkerColumn = d.MarkerColumn
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = d.RecentLimit
	}
	if c.AlertLimit <= 0 {
		c.AlertLimit = d.AlertLimit
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.ReferenceLimit <= 0 {
		c.ReferenceLimit = d.ReferenceLimit
	}
	if c.LabelLocale == "" {
		c.LabelLocale = d.LabelLocale
	}
	return c
}
