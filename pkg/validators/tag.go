package validators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formstate/pkg/form"
)

// ErrUnknownTag is returned when a validator/v10 tag cannot be compiled.
var ErrUnknownTag = errors.New("validators: unknown validation tag")

var validate = validator.New()

// Tag builds a validator from a go-playground/validator tag such as "email",
// "url", "uuid4", or "oneof=a b". The violation kind is the tag name that
// failed. Blank values pass unless the tag itself is "required".
func Tag(tag, message string) (form.Validator, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: empty tag", ErrUnknownTag)
	}
	if err := probe(tag); err != nil {
		return nil, err
	}

	kind := tagName(tag)
	return form.NewValidator(kind, func(value any, _ *form.Record) form.ViolationSet {
		if form.IsBlank(value) && !strings.Contains(tag, "required") {
			return nil
		}
		err := validate.Var(value, tag)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			failed := verrs[0].Tag()
			msg := message
			if msg == "" {
				msg = fmt.Sprintf("Failed %q validation", failed)
			}
			return form.Violation(failed, msg)
		}
		return form.Violation(kind, err.Error())
	}), nil
}

// probe compiles tag once so unknown tags surface at construction instead of
// panicking on first use.
func probe(tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %q: %v", ErrUnknownTag, tag, r)
		}
	}()
	_ = validate.Var("", tag)
	return nil
}

func tagName(tag string) string {
	first := strings.Split(tag, ",")[0]
	name, _, _ := strings.Cut(first, "=")
	return strings.TrimSpace(name)
}
