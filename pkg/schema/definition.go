package schema

// Definition declares one form: its record shape, dependency rules, wizard
// steps and payload options. ID and Source are filled by the loader.
type Definition struct {
	ID          string `json:"-" yaml:"-"`
	Source      string `json:"-" yaml:"-"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Section `yaml:",inline"`

	Rules   []RuleSpec  `json:"rules,omitempty" yaml:"rules,omitempty"`
	Steps   []StepSpec  `json:"steps,omitempty" yaml:"steps,omitempty"`
	Payload PayloadSpec `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Section is a record shape shared by the form root, nested groups and
// collection items.
type Section struct {
	Fields      []FieldSpec          `json:"fields,omitempty" yaml:"fields,omitempty"`
	Groups      []GroupSpec          `json:"groups,omitempty" yaml:"groups,omitempty"`
	Collections []CollectionSpec     `json:"collections,omitempty" yaml:"collections,omitempty"`
	Validators  []GroupValidatorSpec `json:"validators,omitempty" yaml:"validators,omitempty"`
}

// FieldSpec declares a field.
type FieldSpec struct {
	Key        string          `json:"key" yaml:"key"`
	Type       string          `json:"type,omitempty" yaml:"type,omitempty"`
	Default    any             `json:"default,omitempty" yaml:"default,omitempty"`
	Disabled   bool            `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Required   bool            `json:"required,omitempty" yaml:"required,omitempty"`
	Validators []ValidatorSpec `json:"validators,omitempty" yaml:"validators,omitempty"`
}

// ValidatorSpec declares a field validator. Kind is one of required,
// pattern, min, max, minLength, maxLength or tag; Value carries the bound or
// expression and Tag the validator/v10 tag for kind tag.
type ValidatorSpec struct {
	Kind    string `json:"kind" yaml:"kind"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
	Tag     string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// GroupSpec declares a nested record.
type GroupSpec struct {
	Name    string `json:"name" yaml:"name"`
	Section `yaml:",inline"`
}

// CollectionSpec declares a repeatable collection. Required lists the item
// sub-fields that are required while the collection is governed on.
// Governed defaults to true.
type CollectionSpec struct {
	Name     string   `json:"name" yaml:"name"`
	IDKey    string   `json:"idKey,omitempty" yaml:"idKey,omitempty"`
	Required []string `json:"required,omitempty" yaml:"required,omitempty"`
	Governed *bool    `json:"governed,omitempty" yaml:"governed,omitempty"`
	Section  `yaml:",inline"`
}

// GroupValidatorSpec declares a cross-field validator attached to the
// enclosing section. Paths are relative to that section; for collections
// they address fields of each item.
type GroupValidatorSpec struct {
	Kind      string   `json:"kind" yaml:"kind"`
	Target    string   `json:"target,omitempty" yaml:"target,omitempty"`
	Limit     string   `json:"limit,omitempty" yaml:"limit,omitempty"`
	Declared  string   `json:"declared,omitempty" yaml:"declared,omitempty"`
	Start     string   `json:"start,omitempty" yaml:"start,omitempty"`
	End       string   `json:"end,omitempty" yaml:"end,omitempty"`
	From      string   `json:"from,omitempty" yaml:"from,omitempty"`
	To        string   `json:"to,omitempty" yaml:"to,omitempty"`
	When      string   `json:"when,omitempty" yaml:"when,omitempty"`
	Message   string   `json:"message,omitempty" yaml:"message,omitempty"`
	Tolerance *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// RuleSpec declares a dependency rule. When is a condition expression; an
// empty When always holds.
type RuleSpec struct {
	Source  string          `json:"source" yaml:"source"`
	Target  string          `json:"target" yaml:"target"`
	When    string          `json:"when,omitempty" yaml:"when,omitempty"`
	Toggle  bool            `json:"toggle,omitempty" yaml:"toggle,omitempty"`
	Require []ValidatorSpec `json:"require,omitempty" yaml:"require,omitempty"`
	Reset   bool            `json:"reset,omitempty" yaml:"reset,omitempty"`
	ResetTo any             `json:"resetTo,omitempty" yaml:"resetTo,omitempty"`
}

// StepSpec declares a wizard step as a list of member paths.
type StepSpec struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
}

// PayloadSpec declares payload builder options.
type PayloadSpec struct {
	Defaults  map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Include   []string       `json:"include,omitempty" yaml:"include,omitempty"`
	Unchanged bool           `json:"unchanged,omitempty" yaml:"unchanged,omitempty"`
	Sanitize  bool           `json:"sanitize,omitempty" yaml:"sanitize,omitempty"`
}
