package form

// FieldType is the simplified enum used for payload coercion.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

// Numeric reports whether values of this type are coerced to numbers.
func (t FieldType) Numeric() bool {
	return t == FieldTypeInteger || t == FieldTypeNumber
}

// Field is a single editable value inside a Record. Its identity is its key
// within the owning record.
type Field struct {
	key        string
	kind       FieldType
	value      any
	initial    any
	enabled    bool
	validators []Validator
	own        ViolationSet
	targeted   ViolationSet
	dirty      bool
	touched    bool
	parent     *Record
}

// FieldOption configures a field at construction time.
type FieldOption func(*Field)

// WithType sets the field type. Fields default to FieldTypeString.
func WithType(kind FieldType) FieldOption {
	return func(f *Field) {
		if kind != "" {
			f.kind = kind
		}
	}
}

// WithValue sets the initial value. Reset without an explicit value falls
// back to it.
func WithValue(value any) FieldOption {
	return func(f *Field) {
		f.initial = CopyValue(value)
		f.value = CopyValue(value)
	}
}

// WithValidators attaches validators at construction time.
func WithValidators(validators ...Validator) FieldOption {
	return func(f *Field) {
		f.validators = appendValidators(f.validators, validators...)
	}
}

// Disabled creates the field in the disabled state.
func Disabled() FieldOption {
	return func(f *Field) {
		f.enabled = false
	}
}

// NewField constructs a detached field. Records attach fields through
// Record.AddField, which is the usual entry point.
func NewField(key string, options ...FieldOption) *Field {
	f := &Field{
		key:     key,
		kind:    FieldTypeString,
		enabled: true,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	f.revalidate()
	return f
}

// SetOption tweaks a single SetValue call.
type SetOption func(*setConfig)

type setConfig struct {
	emit  bool
	dirty bool
}

// Silent suppresses the change event, so no dependency propagation or group
// validation runs for this write.
func Silent() SetOption {
	return func(c *setConfig) { c.emit = false }
}

// Pristine leaves the dirty flag untouched. Loads use it together with Silent.
func Pristine() SetOption {
	return func(c *setConfig) { c.dirty = false }
}

func newSetConfig(options []SetOption) setConfig {
	cfg := setConfig{emit: true, dirty: true}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (f *Field) Key() string     { return f.key }
func (f *Field) Type() FieldType { return f.kind }
func (f *Field) Value() any      { return f.value }
func (f *Field) Enabled() bool   { return f.enabled }
func (f *Field) Dirty() bool     { return f.dirty }
func (f *Field) Touched() bool   { return f.touched }

// Record returns the owning record, or nil for detached fields.
func (f *Field) Record() *Record { return f.parent }

// Path returns the dotted path of the field from the root record.
func (f *Field) Path() string {
	if f.parent == nil {
		return f.key
	}
	return joinPath(f.parent.Path(), f.key)
}

// SetValue stores v, marks the field dirty, re-runs its validators, and emits
// a change event that drives dependency propagation and group validation.
// Violations never block the write.
func (f *Field) SetValue(v any, options ...SetOption) {
	cfg := newSetConfig(options)
	f.value = CopyValue(v)
	if cfg.dirty {
		f.dirty = true
	}
	f.revalidate()
	if cfg.emit && f.parent != nil {
		f.parent.notify(ChangeEvent{Path: f.Path(), Field: f, Value: f.value})
	}
}

// Reset stores v without emitting, clears dirty and touched, and re-runs
// validators.
func (f *Field) Reset(v any) {
	f.value = CopyValue(v)
	f.dirty = false
	f.touched = false
	f.revalidate()
}

// ResetInitial restores the construction-time value.
func (f *Field) ResetInitial() {
	f.Reset(f.initial)
}

// SetEnabled toggles the field. Disabling clears every violation immediately,
// regardless of the value. It reports whether the state changed.
func (f *Field) SetEnabled(enabled bool) bool {
	if f.enabled == enabled {
		return false
	}
	f.enabled = enabled
	if !enabled {
		f.own = nil
		f.targeted = nil
		return true
	}
	f.revalidate()
	return true
}

func (f *Field) MarkTouched()  { f.touched = true }
func (f *Field) MarkPristine() { f.dirty = false }

// Validators returns a copy of the attached validators.
func (f *Field) Validators() []Validator {
	return append([]Validator(nil), f.validators...)
}

// HasValidator reports whether a validator of the supplied kind is attached.
func (f *Field) HasValidator(kind string) bool {
	for _, v := range f.validators {
		if v.Kind() == kind {
			return true
		}
	}
	return false
}

// SetValidators replaces every validator and re-validates.
func (f *Field) SetValidators(validators ...Validator) {
	f.validators = appendValidators(nil, validators...)
	f.revalidate()
}

// AddValidators attaches validators, replacing any with the same kind.
func (f *Field) AddValidators(validators ...Validator) {
	f.validators = appendValidators(f.validators, validators...)
	f.revalidate()
}

// RemoveValidators detaches validators by kind and re-validates.
func (f *Field) RemoveValidators(kinds ...string) {
	if len(kinds) == 0 || len(f.validators) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(kinds))
	for _, kind := range kinds {
		drop[kind] = struct{}{}
	}
	kept := f.validators[:0]
	for _, v := range f.validators {
		if _, ok := drop[v.Kind()]; ok {
			continue
		}
		kept = append(kept, v)
	}
	f.validators = kept
	f.revalidate()
}

// ClearValidators detaches every validator.
func (f *Field) ClearValidators() {
	f.validators = nil
	f.revalidate()
}

// Validate re-runs the field validators and returns the current violations.
func (f *Field) Validate() ViolationSet {
	f.revalidate()
	return f.Errors()
}

// Errors returns the field's own violations merged with those set by group
// validators. Disabled fields never report violations.
func (f *Field) Errors() ViolationSet {
	if !f.enabled {
		return nil
	}
	return Merge(f.own, f.targeted)
}

// Valid reports whether the field is disabled or carries no violations.
func (f *Field) Valid() bool {
	return len(f.Errors()) == 0
}

// SetViolation attaches a violation on behalf of a group validator. It is a
// no-op on disabled fields.
func (f *Field) SetViolation(kind, message string) {
	if !f.enabled || kind == "" {
		return
	}
	if f.targeted == nil {
		f.targeted = make(ViolationSet, 1)
	}
	f.targeted[kind] = message
}

// ClearViolation removes a violation previously set with SetViolation.
func (f *Field) ClearViolation(kind string) {
	if len(f.targeted) == 0 {
		return
	}
	delete(f.targeted, kind)
	if len(f.targeted) == 0 {
		f.targeted = nil
	}
}

func (f *Field) revalidate() {
	if !f.enabled {
		f.own = nil
		return
	}
	var out ViolationSet
	for _, v := range f.validators {
		out = Merge(out, v.Validate(f.value, f.parent))
	}
	f.own = out
}

func appendValidators(existing []Validator, validators ...Validator) []Validator {
	for _, v := range validators {
		if v == nil {
			continue
		}
		replaced := false
		for i, current := range existing {
			if current.Kind() == v.Kind() {
				existing[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, v)
		}
	}
	return existing
}
