package validators

import (
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-formstate/pkg/condition"
	"github.com/goliatone/go-formstate/pkg/form"
)

// Group validator kinds.
const (
	KindExceedsLimit      = "exceedsLimit"
	KindDurationShortfall = "durationShortfall"
	KindRangeOrder        = "rangeOrder"
)

// DefaultTolerance is the allowance applied by DurationShortfall.
var DefaultTolerance = decimal.RequireFromString("0.1")

// GroupOption tunes a group validator.
type GroupOption func(*groupConfig)

type groupConfig struct {
	when      condition.Predicate
	message   string
	tolerance decimal.Decimal
	target    string
}

// When attaches the governing condition. While it evaluates false the
// validator clears its violation regardless of the inputs.
func When(p condition.Predicate) GroupOption {
	return func(c *groupConfig) { c.when = p }
}

// WithMessage overrides the violation message.
func WithMessage(message string) GroupOption {
	return func(c *groupConfig) {
		if message != "" {
			c.message = message
		}
	}
}

// WithTolerance overrides DefaultTolerance.
func WithTolerance(tolerance decimal.Decimal) GroupOption {
	return func(c *groupConfig) { c.tolerance = tolerance }
}

// WithTarget redirects the violation onto another field of the record.
func WithTarget(path string) GroupOption {
	return func(c *groupConfig) {
		if path != "" {
			c.target = path
		}
	}
}

func newGroupConfig(target, message string, options []GroupOption) groupConfig {
	cfg := groupConfig{
		when:      condition.Always,
		message:   message,
		tolerance: DefaultTolerance,
		target:    target,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c groupConfig) active(rec *form.Record) bool {
	ok, err := c.when.Eval(rec)
	return err == nil && ok
}

// ExceedsLimit flags the target field when its numeric value is greater than
// the value of the limit field. The violation is cleared when the governing
// condition turns off, and otherwise only once the limit field itself carries
// no violations.
func ExceedsLimit(target, limit string, options ...GroupOption) form.GroupValidator {
	cfg := newGroupConfig(target, "Value exceeds the allowed limit", options)
	return form.NewGroupValidator(KindExceedsLimit, func(rec *form.Record) form.ViolationSet {
		field, ok := rec.Field(cfg.target)
		if !ok {
			return nil
		}
		if !cfg.active(rec) {
			field.ClearViolation(KindExceedsLimit)
			return nil
		}
		limitField, ok := rec.Field(limit)
		if !ok {
			return nil
		}
		value, okValue := ToDecimal(field.Value())
		bound, okBound := ToDecimal(limitField.Value())
		if okValue && okBound && value.GreaterThan(bound) {
			field.SetViolation(KindExceedsLimit, cfg.message)
			return nil
		}
		if limitField.Valid() {
			field.ClearViolation(KindExceedsLimit)
		}
		return nil
	})
}

// DurationShortfall compares the declared duration field against the span
// between the start and end fields. Clock values ("HH:MM") and plain hour
// numbers are accepted; an end before the start wraps past midnight. The
// declared field is flagged only when the span falls short of it by more than
// the tolerance.
func DurationShortfall(declared, start, end string, options ...GroupOption) form.GroupValidator {
	cfg := newGroupConfig(declared, "Declared hours exceed the scheduled span", options)
	day := decimal.NewFromInt(24)
	return form.NewGroupValidator(KindDurationShortfall, func(rec *form.Record) form.ViolationSet {
		field, ok := rec.Field(cfg.target)
		if !ok {
			return nil
		}
		if !cfg.active(rec) {
			field.ClearViolation(KindDurationShortfall)
			return nil
		}
		want, okDeclared := lookupHours(rec, declared, ToDecimal)
		from, okStart := lookupHours(rec, start, Hours)
		to, okEnd := lookupHours(rec, end, Hours)
		if !okDeclared || !okStart || !okEnd {
			field.ClearViolation(KindDurationShortfall)
			return nil
		}
		span := to.Sub(from)
		if span.IsNegative() {
			span = span.Add(day)
		}
		if Shortfall(want, span, cfg.tolerance) {
			field.SetViolation(KindDurationShortfall, cfg.message)
		} else {
			field.ClearViolation(KindDurationShortfall)
		}
		return nil
	})
}

// RangeOrder flags the "to" field when the "from" value is greater than it.
// Values compare as numbers when both parse, and as strings otherwise, which
// orders ISO dates and zero-padded clock values.
func RangeOrder(from, to string, options ...GroupOption) form.GroupValidator {
	cfg := newGroupConfig(to, "End must not be before start", options)
	return form.NewGroupValidator(KindRangeOrder, func(rec *form.Record) form.ViolationSet {
		field, ok := rec.Field(cfg.target)
		if !ok {
			return nil
		}
		if !cfg.active(rec) {
			field.ClearViolation(KindRangeOrder)
			return nil
		}
		lo, okLo := rec.Lookup(from)
		hi, okHi := rec.Lookup(to)
		if !okLo || !okHi || form.IsBlank(lo) || form.IsBlank(hi) {
			field.ClearViolation(KindRangeOrder)
			return nil
		}
		if outOfOrder(lo, hi) {
			field.SetViolation(KindRangeOrder, cfg.message)
		} else {
			field.ClearViolation(KindRangeOrder)
		}
		return nil
	})
}

func outOfOrder(lo, hi any) bool {
	a, okA := ToDecimal(lo)
	b, okB := ToDecimal(hi)
	if okA && okB {
		return a.GreaterThan(b)
	}
	sa, okA := lo.(string)
	sb, okB := hi.(string)
	return okA && okB && sa > sb
}

func lookupHours(rec *form.Record, path string, parse func(any) (decimal.Decimal, bool)) (decimal.Decimal, bool) {
	value, ok := rec.Lookup(path)
	if !ok || form.IsBlank(value) {
		return decimal.Zero, false
	}
	return parse(value)
}
