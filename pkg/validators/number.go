package validators

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ToDecimal converts decoded form values into an exact decimal. Blank strings
// and non-numeric values report false.
func ToDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int8:
		return decimal.NewFromInt(int64(v)), true
	case int16:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.RequireFromString(strconv.FormatUint(uint64(v), 10)), true
	case uint32:
		return decimal.NewFromInt(int64(v)), true
	case uint64:
		return decimal.RequireFromString(strconv.FormatUint(v, 10)), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(trimmed)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// Hours parses a clock value ("HH:MM" or "HH:MM:SS") or a plain number of
// hours into decimal hours.
func Hours(value any) (decimal.Decimal, bool) {
	s, ok := value.(string)
	if !ok || !strings.Contains(s, ":") {
		return ToDecimal(value)
	}
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return decimal.Zero, false
	}
	var units [3]int64
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return decimal.Zero, false
		}
		units[i] = n
	}
	if units[1] >= 60 || units[2] >= 60 {
		return decimal.Zero, false
	}
	seconds := units[0]*3600 + units[1]*60 + units[2]
	return decimal.NewFromInt(seconds).Div(decimal.NewFromInt(3600)), true
}

// Shortfall reports whether computed falls short of declared by more than
// tolerance. Overages never count.
func Shortfall(declared, computed, tolerance decimal.Decimal) bool {
	return computed.LessThan(declared.Sub(tolerance.Abs()))
}
