package condition

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type node interface {
	eval(src Source) (bool, error)
}

type orNode struct {
	left  node
	right node
}

func (n orNode) eval(src Source) (bool, error) {
	ok, err := n.left.eval(src)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return n.right.eval(src)
}

type andNode struct {
	left  node
	right node
}

func (n andNode) eval(src Source) (bool, error) {
	ok, err := n.left.eval(src)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return n.right.eval(src)
}

type notNode struct {
	inner node
}

func (n notNode) eval(src Source) (bool, error) {
	ok, err := n.inner.eval(src)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct {
	path string
}

func (n truthyNode) eval(src Source) (bool, error) {
	value, ok := src.Lookup(n.path)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type compareNode struct {
	path    string
	op      tokenKind
	literal literal
}

func (n compareNode) eval(src Source) (bool, error) {
	value, ok := src.Lookup(n.path)
	if !ok {
		value = nil
	}

	switch n.literal.kind {
	case litNull:
		return n.equality(value == nil)
	case litBool:
		got, _ := coerceBool(value)
		return n.equality(got == (n.literal.raw == "true"))
	case litString:
		return n.equality(coerceString(value) == n.literal.raw)
	case litNumber:
		got, ok := coerceNumber(value)
		if !ok {
			// Blank numeric inputs compare as zero; anything else never matches
			// an ordering comparison.
			if value != nil && strings.TrimSpace(coerceString(value)) != "" {
				return n.op == tokenNeq, nil
			}
			got = decimal.Zero
		}
		cmp := got.Cmp(n.literal.number)
		switch n.op {
		case tokenEq:
			return cmp == 0, nil
		case tokenNeq:
			return cmp != 0, nil
		case tokenLt:
			return cmp < 0, nil
		case tokenLte:
			return cmp <= 0, nil
		case tokenGt:
			return cmp > 0, nil
		case tokenGte:
			return cmp >= 0, nil
		}
	}
	return false, fmt.Errorf("condition: unsupported comparison on %q", n.path)
}

func (n compareNode) equality(equal bool) (bool, error) {
	switch n.op {
	case tokenEq:
		return equal, nil
	case tokenNeq:
		return !equal, nil
	default:
		return false, fmt.Errorf("condition: unsupported operator for %s literal", n.literal.raw)
	}
}

func truthy(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "0", "off", "no":
			return false
		}
		return true
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return err == nil && !d.IsZero()
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func coerceBool(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	if s, ok := value.(string); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(s))
		if err == nil {
			return parsed, true
		}
	}
	return truthy(value), true
}

// coerceNumber converts decoded values to an exact decimal.
func coerceNumber(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
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
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}

func equalLoose(value, want any) bool {
	switch w := want.(type) {
	case nil:
		return value == nil
	case bool:
		got, _ := coerceBool(value)
		return got == w
	case string:
		return coerceString(value) == w
	}
	wn, ok := coerceNumber(want)
	if !ok {
		return coerceString(value) == coerceString(want)
	}
	got, ok := coerceNumber(value)
	return ok && got.Equal(wn)
}
