package remote

import (
	"time"
)

// Conversions from mirrored values. A value decoded from the wire may have a different
// Go type than the one the host published (e.g. every integer decodes to int64),
// and a value that was never received is nil. Each conversion returns the zero value
// when the value does not convert.

func AsString(value any) string {
	if v, ok := value.(string); ok {
		return v
	}
	return ""
}

func AsBool(value any) bool {
	if v, ok := value.(bool); ok {
		return v
	}
	return false
}

func AsInt64(value any) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func AsInt(value any) int {
	return int(AsInt64(value))
}

func AsFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func AsTime(value any) time.Time {
	if v, ok := value.(time.Time); ok {
		return v
	}
	return time.Time{}
}

func AsDuration(value any) time.Duration {
	switch v := value.(type) {
	case time.Duration:
		return v
	case int64:
		return time.Duration(v)
	default:
		return 0
	}
}

func AsDescriptor(value any) (Descriptor, bool) {
	v, ok := value.(Descriptor)
	return v, ok && !v.IsZero()
}

func AsDescriptors(value any) []Descriptor {
	if v, ok := value.([]Descriptor); ok {
		return v
	}
	return nil
}

func AsStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		strs := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				strs = append(strs, s)
			}
		}
		return strs
	default:
		return nil
	}
}
