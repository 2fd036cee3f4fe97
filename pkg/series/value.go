package series

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Point is one value of one series at a canonical time key.
type Point struct {
	TimeKey string   `json:"time_key"`
	Value   *float64 `json:"value"`
}

// ZeroFill returns a copy of points with absent values replaced by 0. Only
// consumers that explicitly want zeros should call it.
func ZeroFill(points []Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = p
		if p.Value == nil {
			zero := 0.0
			out[i].Value = &zero
		}
	}
	return out
}

// Float coerces a row value into a number. Anything that is not numeric,
// including empty strings, is absent rather than zero.
func Float(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// lookup reads column from row, falling back to a case-insensitive match.
func lookup(row map[string]any, column string) (any, bool) {
	if v, ok := row[column]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}

// object decodes a JSON object column that may arrive decoded or as text.
func object(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(x), &m); err != nil {
			return nil
		}
		return m
	case []byte:
		return object(string(x))
	default:
		return nil
	}
}
