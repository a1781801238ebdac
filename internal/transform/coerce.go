package transform

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the canonical business-date text form.
	DateLayout = "2006-01-02"
	// TimestampLayout is the exchange's last-updated timestamp format.
	TimestampLayout = "2006-01-02T15:04:05.000000"
)

// dateLayouts are the upstream date-string formats accepted for business
// dates, tried in order.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// coerceInt converts an upstream value to a nullable int64. Non-numeric
// values become nil rather than an error.
func coerceInt(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return int64(x)
	case int64:
		return x
	case int:
		return int64(x)
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			// The exchange occasionally reports counts as floats.
			f, ferr := strconv.ParseFloat(x, 64)
			if ferr != nil {
				return nil
			}
			return int64(f)
		}
		return n
	default:
		return nil
	}
}

// coerceFloat converts an upstream value to a nullable decimal.
func coerceFloat(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return decimal.NewFromFloat(x)
	case int64:
		return decimal.NewFromInt(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return nil
		}
		return d
	default:
		return nil
	}
}

// coerceString renders an upstream value as text, keeping nulls.
func coerceString(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return nil
	}
}

// coerceDate parses an upstream business-date string. The second return is
// false when the value could not be parsed; the caller stores null.
func coerceDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// coerceDateTime parses the last-updated timestamp, returning canonical text
// or nil on failure.
func coerceDateTime(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		// Sub-second precision is sometimes omitted upstream.
		t, err = time.Parse("2006-01-02T15:04:05", s)
		if err != nil {
			return nil
		}
	}
	return t.Format("2006-01-02T15:04:05")
}
