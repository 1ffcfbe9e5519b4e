package form

// Validator checks a single field value. Implementations must be pure: the
// record is supplied for context only and must not be mutated.
type Validator interface {
	Kind() string
	Validate(value any, rec *Record) ViolationSet
}

// ValidatorFunc adapts a plain function into the Validate signature.
type ValidatorFunc func(value any, rec *Record) ViolationSet

// NewValidator wraps fn under the supplied kind. The kind identifies the
// validator when dependency rules install or remove it.
func NewValidator(kind string, fn ValidatorFunc) Validator {
	return funcValidator{kind: kind, fn: fn}
}

type funcValidator struct {
	kind string
	fn   ValidatorFunc
}

func (v funcValidator) Kind() string { return v.kind }

func (v funcValidator) Validate(value any, rec *Record) ViolationSet {
	if v.fn == nil {
		return nil
	}
	return v.fn(value, rec)
}

// GroupValidator checks a whole record. It returns record-level violations
// and may set or clear violations on specific fields of the record through
// Field.SetViolation and Field.ClearViolation.
type GroupValidator interface {
	Kind() string
	ValidateGroup(rec *Record) ViolationSet
}

// NewGroupValidator wraps fn under the supplied kind.
func NewGroupValidator(kind string, fn func(rec *Record) ViolationSet) GroupValidator {
	return funcGroupValidator{kind: kind, fn: fn}
}

type funcGroupValidator struct {
	kind string
	fn   func(rec *Record) ViolationSet
}

func (v funcGroupValidator) Kind() string { return v.kind }

func (v funcGroupValidator) ValidateGroup(rec *Record) ViolationSet {
	if v.fn == nil {
		return nil
	}
	return v.fn(rec)
}
