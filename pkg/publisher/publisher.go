// Package publisher writes reconciliation results to Redis for downstream
// consumers: one stream entry per result and one Pub/Sub notice per outlier
// or alert.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/sensorx/pkg/anomaly"
	"github.com/canopy-network/sensorx/pkg/logging"
	"github.com/canopy-network/sensorx/pkg/reconciler"
	"github.com/canopy-network/sensorx/pkg/trend"
)

const keyPrefix = "sensorx"

// Sink is the subset of Client the publisher writes through.
type Sink interface {
	XAdd(ctx context.Context, stream string, values map[string]any) (string, error)
	Publish(ctx context.Context, channel string, message any) error
}

func SnapshotStream(table string) string { return fmt.Sprintf("%s:%s:snapshots", keyPrefix, table) }
func OutlierChannel(table string) string { return fmt.Sprintf("%s:%s:outliers", keyPrefix, table) }
func AlertChannel(table string) string   { return fmt.Sprintf("%s:%s:alerts", keyPrefix, table) }

// OutlierNotice is the Pub/Sub payload for one outlier point.
type OutlierNotice struct {
	Table   string         `json:"table"`
	Sensor  string         `json:"sensor"`
	TimeKey string         `json:"time_key"`
	Time    string         `json:"time"`
	Value   *float64       `json:"value"`
	Reasons anomaly.Reason `json:"reasons"`
}

// AlertNotice is the Pub/Sub payload for one sigma alert.
type AlertNotice struct {
	Table string `json:"table"`
	trend.Alert
}

type Publisher struct {
	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

func New(sink Sink, logger *zap.Logger) *Publisher {
	return &Publisher{sink: sink, logger: logging.OrNop(logger), now: time.Now}
}

// PublishResult appends res to the table's snapshot stream, then announces
// its outliers and alerts. Notice failures are logged and joined into the
// returned error; they never prevent later notices.
func (p *Publisher) PublishResult(ctx context.Context, res *reconciler.Result) error {
	values, err := snapshotValues(res, p.now())
	if err != nil {
		return err
	}
	id, err := p.sink.XAdd(ctx, SnapshotStream(res.Table), values)
	if err != nil {
		return err
	}

	var errs []error
	for _, n := range outlierNotices(res) {
		if err := p.publishJSON(ctx, OutlierChannel(res.Table), n); err != nil {
			errs = append(errs, err)
		}
	}
	for _, a := range res.Alerts {
		if err := p.publishJSON(ctx, AlertChannel(res.Table), AlertNotice{Table: res.Table, Alert: a}); err != nil {
			errs = append(errs, err)
		}
	}

	p.logger.Debug("published result",
		zap.String("table", res.Table),
		zap.String("id", id),
		zap.Int("alerts", len(res.Alerts)),
		zap.Int("failed_notices", len(errs)))
	return errors.Join(errs...)
}

func (p *Publisher) publishJSON(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding notice: %w", err)
	}
	if err := p.sink.Publish(ctx, channel, payload); err != nil {
		p.logger.Warn("Failed to publish notice", zap.String("channel", channel), zap.Error(err))
		return err
	}
	return nil
}

func snapshotValues(res *reconciler.Result, at time.Time) (map[string]any, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encoding result for %s: %w", res.Table, err)
	}
	return map[string]any{
		"table":        res.Table,
		"status":       string(res.Status),
		"mode":         string(res.Mode),
		"data_points":  res.DataPoints,
		"alerts":       len(res.Alerts),
		"published_at": at.UTC().Format(time.RFC3339),
		"payload":      string(payload),
	}, nil
}

func outlierNotices(res *reconciler.Result) []OutlierNotice {
	points := res.Outliers()
	out := make([]OutlierNotice, len(points))
	for i, p := range points {
		out[i] = OutlierNotice{
			Table:   res.Table,
			Sensor:  p.Sensor,
			TimeKey: p.TimeKey,
			Time:    p.Time,
			Value:   p.Value,
			Reasons: p.Reasons,
		}
	}
	return out
}
