package entity

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Normalize converts a value scanned by database/sql into one of the scalar
// types entities hold: string, int64, float64, bool, time.Time or nil.
func Normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return strconv.FormatUint(t, 10)
		}
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// String renders a scalar the way it would be written in a query result.
// nil renders as the empty string.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(Normalize(v))
	}
}

func toInt(v any) (int64, error) {
	switch t := Normalize(v).(type) {
	case int64:
		return t, nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v has a fractional part", t)
		}
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch t := Normalize(v).(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch t := Normalize(v).(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case string:
		return strconv.ParseBool(t)
	default:
		return false, fmt.Errorf("unsupported type %T", v)
	}
}

// copyValue detaches byte slices so that clones never share backing arrays.
func copyValue(v any) any {
	if b, ok := v.([]byte); ok {
		return append([]byte(nil), b...)
	}
	return v
}
