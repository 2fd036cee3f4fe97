package db

import (
	"math"
	"reflect"
	"time"
)

// Normalize converts a scanned driver value into one of the primitive kinds a
// Row carries. Pointers are dereferenced, integers widen to int64, floats to
// float64 and byte slices become strings. Values of any other type are
// returned unchanged.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64, int64, string, bool, time.Time, map[string]any:
		return x
	case float32:
		return float64(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return widenUnsigned(uint64(x))
	case uint64:
		return widenUnsigned(x)
	case []byte:
		return string(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes())
		}
	case reflect.String:
		return rv.String()
	}
	return v
}

func widenUnsigned(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}
