package schema

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-formstate/pkg/condition"
	"github.com/goliatone/go-formstate/pkg/dependency"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/payload"
	"github.com/goliatone/go-formstate/pkg/validators"
	"github.com/goliatone/go-formstate/pkg/wizard"
)

// Blueprint is a freshly built form: a record tree plus the rules, steps and
// payload options declared for it. Every Build call returns a new record.
type Blueprint struct {
	ID       string
	Title    string
	Record   *form.Record
	Bindings []dependency.Binding
	Steps    []wizard.Step
	Payload  []payload.Option
}

// BuildOption tunes Build.
type BuildOption func(*builder)

// WithTolerance sets the tolerance of group validators that do not declare
// one.
func WithTolerance(tolerance decimal.Decimal) BuildOption {
	return func(b *builder) { b.tolerance = &tolerance }
}

// Build builds the form id from the store.
func (s *Store) Build(id string, options ...BuildOption) (*Blueprint, error) {
	def, ok := s.Definition(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, id)
	}
	return def.Build(options...)
}

// Build compiles the definition. Every validator, condition and path is
// checked; problems are reported as *DefinitionError.
func (d Definition) Build(options ...BuildOption) (*Blueprint, error) {
	b := &builder{def: d}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}

	apply, err := b.section(d.Section, "")
	if err != nil {
		return nil, err
	}
	rec := form.NewRecord(d.ID)
	apply(rec)

	for _, check := range b.checks {
		if _, ok := rec.Field(sample(check)); !ok {
			return nil, b.fail(check, fmt.Errorf("%w: field not declared", ErrUnknownPath))
		}
	}

	bindings, err := b.rules(rec)
	if err != nil {
		return nil, err
	}
	steps, err := b.steps(rec)
	if err != nil {
		return nil, err
	}

	return &Blueprint{
		ID:       d.ID,
		Title:    d.Title,
		Record:   rec,
		Bindings: bindings,
		Steps:    steps,
		Payload:  b.payload(),
	}, nil
}

type builder struct {
	def       Definition
	tolerance *decimal.Decimal
	checks    []string
}

func (b *builder) fail(path string, err error) error {
	return &DefinitionError{Source: b.def.Source, Form: b.def.ID, Path: path, Err: err}
}

// section compiles s into a function that populates a record. Collection
// item sections become item shapes, so compilation errors surface here and
// never inside a shape.
func (b *builder) section(s Section, prefix string) (func(*form.Record), error) {
	var steps []func(*form.Record)
	seen := make(map[string]struct{})
	claim := func(name string) (string, error) {
		name = strings.TrimSpace(name)
		path := join(prefix, name)
		if name == "" {
			return "", b.fail(prefix, ErrEmptyKey)
		}
		if _, dup := seen[name]; dup {
			return "", b.fail(path, ErrDuplicateKey)
		}
		seen[name] = struct{}{}
		return name, nil
	}

	for _, spec := range s.Fields {
		key, err := claim(spec.Key)
		if err != nil {
			return nil, err
		}
		options, err := b.field(spec, join(prefix, key))
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(r *form.Record) { r.AddField(key, options...) })
	}

	for _, spec := range s.Groups {
		name, err := claim(spec.Name)
		if err != nil {
			return nil, err
		}
		apply, err := b.section(spec.Section, join(prefix, name))
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(r *form.Record) { apply(r.AddGroup(name)) })
	}

	for _, spec := range s.Collections {
		name, err := claim(spec.Name)
		if err != nil {
			return nil, err
		}
		path := join(prefix, name)
		shape, err := b.section(spec.Section, join(path, dependency.Wildcard))
		if err != nil {
			return nil, err
		}
		var options []form.CollectionOption
		if key := strings.TrimSpace(spec.IDKey); key != "" {
			options = append(options, form.WithIDKey(key))
		}
		if len(spec.Required) > 0 {
			for _, field := range spec.Required {
				b.checks = append(b.checks, join(join(path, dependency.Wildcard), field))
			}
			options = append(options, form.WithRequiredFields(spec.Required...))
		}
		if spec.Governed != nil && !*spec.Governed {
			options = append(options, form.Ungoverned())
		}
		steps = append(steps, func(r *form.Record) {
			r.AddCollection(name, form.ItemShape(shape), options...)
		})
	}

	groupValidators := make([]form.GroupValidator, 0, len(s.Validators))
	for _, spec := range s.Validators {
		v, err := b.groupValidator(spec, prefix)
		if err != nil {
			return nil, err
		}
		groupValidators = append(groupValidators, v)
	}

	return func(r *form.Record) {
		for _, step := range steps {
			step(r)
		}
		if len(groupValidators) > 0 {
			r.AddValidators(groupValidators...)
		}
	}, nil
}

func (b *builder) field(spec FieldSpec, path string) ([]form.FieldOption, error) {
	kind, err := fieldType(spec.Type)
	if err != nil {
		return nil, b.fail(path, err)
	}
	options := []form.FieldOption{form.WithType(kind)}
	if spec.Default != nil {
		options = append(options, form.WithValue(spec.Default))
	}

	var list []form.Validator
	if spec.Required {
		list = append(list, validators.Required(""))
	}
	for _, vs := range spec.Validators {
		v, err := compileValidator(vs)
		if err != nil {
			return nil, b.fail(path, err)
		}
		list = append(list, v)
	}
	if len(list) > 0 {
		options = append(options, form.WithValidators(list...))
	}
	if spec.Disabled {
		options = append(options, form.Disabled())
	}
	return options, nil
}

func fieldType(raw string) (form.FieldType, error) {
	switch kind := form.FieldType(strings.ToLower(strings.TrimSpace(raw))); kind {
	case "":
		return form.FieldTypeString, nil
	case form.FieldTypeString, form.FieldTypeInteger, form.FieldTypeNumber,
		form.FieldTypeBoolean, form.FieldTypeArray, form.FieldTypeObject:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
}

func compileValidator(spec ValidatorSpec) (form.Validator, error) {
	kind := strings.TrimSpace(spec.Kind)
	switch kind {
	case form.KindRequired:
		return validators.Required(spec.Message), nil
	case form.KindPattern:
		expr, ok := spec.Value.(string)
		if !ok || expr == "" {
			return nil, fmt.Errorf("%w: pattern needs a string value", ErrInvalidValidator)
		}
		v, err := validators.Pattern(expr, spec.Message)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValidator, err)
		}
		return v, nil
	case form.KindMin, form.KindMax:
		bound, ok := validators.ToDecimal(spec.Value)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a numeric value", ErrInvalidValidator, kind)
		}
		if kind == form.KindMin {
			return validators.Min(bound, spec.Message), nil
		}
		return validators.Max(bound, spec.Message), nil
	case form.KindMinLength, form.KindMaxLength:
		n, ok := form.ToInt64(spec.Value)
		if !ok || n < 0 {
			return nil, fmt.Errorf("%w: %s needs a non-negative integer", ErrInvalidValidator, kind)
		}
		if kind == form.KindMinLength {
			return validators.MinLength(int(n), spec.Message), nil
		}
		return validators.MaxLength(int(n), spec.Message), nil
	case "tag":
		tag := strings.TrimSpace(spec.Tag)
		if tag == "" {
			tag, _ = spec.Value.(string)
		}
		v, err := validators.Tag(tag, spec.Message)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValidator, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownValidator, spec.Kind)
	}
}

func (b *builder) groupValidator(spec GroupValidatorSpec, prefix string) (form.GroupValidator, error) {
	var options []validators.GroupOption
	if when := strings.TrimSpace(spec.When); when != "" {
		expr, err := condition.Parse(when)
		if err != nil {
			return nil, b.fail(prefix, fmt.Errorf("%w: %v", ErrInvalidCondition, err))
		}
		options = append(options, validators.When(expr))
	}
	if spec.Message != "" {
		options = append(options, validators.WithMessage(spec.Message))
	}
	switch {
	case spec.Tolerance != nil:
		options = append(options, validators.WithTolerance(decimal.NewFromFloat(*spec.Tolerance)))
	case b.tolerance != nil:
		options = append(options, validators.WithTolerance(*b.tolerance))
	}

	require := func(paths ...string) error {
		for _, p := range paths {
			if strings.TrimSpace(p) == "" {
				return b.fail(prefix, fmt.Errorf("%w: %s needs %d paths", ErrInvalidValidator, spec.Kind, len(paths)))
			}
		}
		for _, p := range paths {
			b.checks = append(b.checks, join(prefix, p))
		}
		return nil
	}

	switch strings.TrimSpace(spec.Kind) {
	case validators.KindExceedsLimit:
		if err := require(spec.Target, spec.Limit); err != nil {
			return nil, err
		}
		return validators.ExceedsLimit(spec.Target, spec.Limit, options...), nil
	case validators.KindDurationShortfall:
		if err := require(spec.Declared, spec.Start, spec.End); err != nil {
			return nil, err
		}
		if spec.Target != "" {
			b.checks = append(b.checks, join(prefix, spec.Target))
			options = append(options, validators.WithTarget(spec.Target))
		}
		return validators.DurationShortfall(spec.Declared, spec.Start, spec.End, options...), nil
	case validators.KindRangeOrder:
		if err := require(spec.From, spec.To); err != nil {
			return nil, err
		}
		if spec.Target != "" {
			b.checks = append(b.checks, join(prefix, spec.Target))
			options = append(options, validators.WithTarget(spec.Target))
		}
		return validators.RangeOrder(spec.From, spec.To, options...), nil
	default:
		return nil, b.fail(prefix, fmt.Errorf("%w: %q", ErrUnknownValidator, spec.Kind))
	}
}

func (b *builder) rules(rec *form.Record) ([]dependency.Binding, error) {
	var bindings []dependency.Binding
	index := make(map[string]int)

	for _, spec := range b.def.Rules {
		source := strings.TrimSpace(spec.Source)
		target := strings.TrimSpace(spec.Target)
		if _, ok := rec.Node(sample(source)); !ok || source == "" {
			return nil, b.fail(source, fmt.Errorf("%w: rule source", ErrUnknownPath))
		}
		if _, ok := rec.Node(sample(target)); !ok || target == "" {
			return nil, b.fail(target, fmt.Errorf("%w: rule target", ErrUnknownPath))
		}

		rule := dependency.Rule{
			Target:  target,
			Toggle:  spec.Toggle,
			Reset:   spec.Reset,
			ResetTo: spec.ResetTo,
		}
		if when := strings.TrimSpace(spec.When); when != "" {
			expr, err := condition.Parse(when)
			if err != nil {
				return nil, b.fail(source, fmt.Errorf("%w: %v", ErrInvalidCondition, err))
			}
			rule.When = expr
		}
		for _, vs := range spec.Require {
			v, err := compileValidator(vs)
			if err != nil {
				return nil, b.fail(target, err)
			}
			rule.Require = append(rule.Require, v)
		}

		if i, ok := index[source]; ok {
			bindings[i].Rules = append(bindings[i].Rules, rule)
			continue
		}
		index[source] = len(bindings)
		bindings = append(bindings, dependency.Binding{Source: source, Rules: []dependency.Rule{rule}})
	}

	if err := dependency.New(rec).Bind(bindings...); err != nil {
		return nil, b.fail("", fmt.Errorf("%w: %v", ErrInvalidRule, err))
	}
	return bindings, nil
}

func (b *builder) steps(rec *form.Record) ([]wizard.Step, error) {
	steps := make([]wizard.Step, 0, len(b.def.Steps))
	for i, spec := range b.def.Steps {
		for _, path := range spec.Fields {
			if _, ok := rec.Node(sample(path)); !ok {
				return nil, b.fail(path, fmt.Errorf("%w: step %d", ErrUnknownPath, i+1))
			}
		}
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		steps = append(steps, wizard.Step{Name: name, Stage: form.NewView(rec, spec.Fields...)})
	}
	return steps, nil
}

func (b *builder) payload() []payload.Option {
	spec := b.def.Payload
	var options []payload.Option
	if len(spec.Defaults) > 0 {
		options = append(options, payload.WithDefaults(spec.Defaults))
	}
	if len(spec.Include) > 0 {
		options = append(options, payload.WithIncluded(spec.Include...))
	}
	if spec.Unchanged {
		options = append(options, payload.WithUnchanged(true))
	}
	if spec.Sanitize {
		options = append(options, payload.WithSanitizer(nil))
	}
	return options
}

// sample resolves wildcard segments to the first item, which always exists
// because collections seed a placeholder.
func sample(path string) string {
	segments := strings.Split(strings.TrimSpace(path), ".")
	for i, segment := range segments {
		if segment == dependency.Wildcard {
			segments[i] = "0"
		}
	}
	return strings.Join(segments, ".")
}

func join(prefix, name string) string {
	name = strings.TrimSpace(name)
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}
