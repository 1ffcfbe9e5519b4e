package validators

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-formstate/pkg/form"
)

// Required flags blank values: nil, whitespace-only strings, empty lists.
func Required(message string) form.Validator {
	return form.RequiredValidator(message)
}

// Pattern flags non-blank string values that do not fully match expr. The
// expression is anchored at both ends.
func Pattern(expr, message string) (form.Validator, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("validators: pattern %q: %w", expr, err)
	}
	if message == "" {
		message = "Invalid format"
	}
	return form.NewValidator(form.KindPattern, func(value any, _ *form.Record) form.ViolationSet {
		if form.IsBlank(value) {
			return nil
		}
		if !re.MatchString(fmt.Sprint(value)) {
			return form.Violation(form.KindPattern, message)
		}
		return nil
	}), nil
}

// Min flags numeric values below bound. Blank or non-numeric values pass;
// pair with Required or Pattern to reject those.
func Min(bound decimal.Decimal, message string) form.Validator {
	if message == "" {
		message = fmt.Sprintf("Must be at least %s", bound.String())
	}
	return form.NewValidator(form.KindMin, func(value any, _ *form.Record) form.ViolationSet {
		n, ok := ToDecimal(value)
		if ok && n.LessThan(bound) {
			return form.Violation(form.KindMin, message)
		}
		return nil
	})
}

// Max flags numeric values above bound.
func Max(bound decimal.Decimal, message string) form.Validator {
	if message == "" {
		message = fmt.Sprintf("Must be at most %s", bound.String())
	}
	return form.NewValidator(form.KindMax, func(value any, _ *form.Record) form.ViolationSet {
		n, ok := ToDecimal(value)
		if ok && n.GreaterThan(bound) {
			return form.Violation(form.KindMax, message)
		}
		return nil
	})
}

// MinLength flags non-blank strings shorter than n runes.
func MinLength(n int, message string) form.Validator {
	if message == "" {
		message = fmt.Sprintf("Must be at least %d characters", n)
	}
	return form.NewValidator(form.KindMinLength, func(value any, _ *form.Record) form.ViolationSet {
		s, ok := value.(string)
		if !ok || s == "" {
			return nil
		}
		if utf8.RuneCountInString(s) < n {
			return form.Violation(form.KindMinLength, message)
		}
		return nil
	})
}

// MaxLength flags strings longer than n runes.
func MaxLength(n int, message string) form.Validator {
	if message == "" {
		message = fmt.Sprintf("Must be at most %d characters", n)
	}
	return form.NewValidator(form.KindMaxLength, func(value any, _ *form.Record) form.ViolationSet {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(s) > n {
			return form.Violation(form.KindMaxLength, message)
		}
		return nil
	})
}
