package form

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrIndexOutOfRange is returned when a collection item index does not exist.
var ErrIndexOutOfRange = errors.New("form: collection index out of range")

// DefaultIDKey is the item key holding the persisted identifier.
const DefaultIDKey = "id"

// ItemShape declares the members of a freshly created collection item.
type ItemShape func(item *Record)

// CollectionOption configures a collection at construction time.
type CollectionOption func(*Collection)

// WithIDKey overrides the key read from seeds to populate item origin ids.
func WithIDKey(key string) CollectionOption {
	return func(c *Collection) {
		if key != "" {
			c.idKey = key
		}
	}
}

// WithRequiredFields designates item sub-fields that receive a required
// validator while the collection is governed on.
func WithRequiredFields(paths ...string) CollectionOption {
	return func(c *Collection) {
		c.required = append(c.required, paths...)
	}
}

// Ungoverned creates the collection with governance off: disabled and without
// required validators until Govern(true) is called.
func Ungoverned() CollectionOption {
	return func(c *Collection) {
		c.governed = false
		c.enabled = false
	}
}

// Collection is an ordered list of same-shaped records. Items optionally
// mirror persisted entities through their origin id.
type Collection struct {
	name     string
	parent   *Record
	shape    ItemShape
	items    []*Record
	enabled  bool
	governed bool
	required []string
	idKey    string
	modified bool
	created  int
}

func newCollection(name string, parent *Record, shape ItemShape, options ...CollectionOption) *Collection {
	c := &Collection{
		name:     name,
		parent:   parent,
		shape:    shape,
		enabled:  true,
		governed: true,
		idKey:    DefaultIDKey,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	if parent != nil && !parent.enabled {
		c.enabled = false
	}
	return c
}

func (c *Collection) Name() string  { return c.name }
func (c *Collection) IDKey() string { return c.idKey }
func (c *Collection) Len() int      { return len(c.items) }

// Record returns the record owning the collection.
func (c *Collection) Record() *Record { return c.parent }

// Path returns the dotted path of the collection from the root record.
func (c *Collection) Path() string {
	if c.parent == nil {
		return c.name
	}
	return joinPath(c.parent.Path(), c.name)
}

// RequiredFields returns the designated item sub-fields.
func (c *Collection) RequiredFields() []string {
	return append([]string(nil), c.required...)
}

// Items returns the current items in order.
func (c *Collection) Items() []*Record {
	return append([]*Record(nil), c.items...)
}

// Item returns the item at index.
func (c *Collection) Item(index int) (*Record, bool) {
	if index < 0 || index >= len(c.items) {
		return nil, false
	}
	return c.items[index], true
}

// AddItem appends a new item populated from seed. A numeric seed value under
// the id key marks the item as mirroring a persisted entity.
func (c *Collection) AddItem(seed map[string]any) *Record {
	item := c.newItem(seed, setConfig{emit: false, dirty: false})
	c.items = append(c.items, item)
	c.modified = true
	c.emit()
	return item
}

// RemoveItem drops the item at index.
func (c *Collection) RemoveItem(index int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, c.Path(), index)
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	c.modified = true
	c.emit()
	return nil
}

// Load replaces every item with the supplied values without emitting or
// marking anything dirty. An empty list seeds one placeholder item.
func (c *Collection) Load(items []map[string]any) {
	c.load(items, setConfig{emit: false, dirty: false})
}

func (c *Collection) load(items []map[string]any, cfg setConfig) {
	c.items = nil
	for _, values := range items {
		c.items = append(c.items, c.newItem(values, cfg))
	}
	c.seed()
	c.modified = cfg.dirty
	if cfg.emit {
		c.emit()
	}
}

func (c *Collection) seed() {
	if len(c.items) > 0 {
		return
	}
	item := c.newItem(nil, setConfig{})
	item.seeded = true
	c.items = append(c.items, item)
}

func (c *Collection) newItem(values map[string]any, cfg setConfig) *Record {
	item := NewRecord(strconv.Itoa(c.created))
	c.created++
	item.owner = c
	if c.shape != nil {
		c.shape(item)
	}
	opts := []SetOption{Silent()}
	if !cfg.dirty {
		opts = append(opts, Pristine())
	}
	item.Patch(values, opts...)
	if raw, ok := values[c.idKey]; ok {
		if id, ok := ToInt64(raw); ok {
			item.SetOriginID(id)
		}
	}
	c.applyGovernance(item)
	if !c.enabled {
		item.SetEnabled(false)
	}
	return item
}

// Enabled reports whether the collection takes part in validity and payloads.
func (c *Collection) Enabled() bool { return c.enabled }

// Governed reports whether designated sub-fields currently carry required
// validators.
func (c *Collection) Governed() bool { return c.governed }

// SetEnabled implements Node by delegating to SetAllItemsEnabled.
func (c *Collection) SetEnabled(enabled bool) bool {
	return c.SetAllItemsEnabled(enabled)
}

// SetAllItemsEnabled enables or disables the collection and every item. It
// reports whether the collection state changed.
func (c *Collection) SetAllItemsEnabled(enabled bool) bool {
	changed := c.enabled != enabled
	c.enabled = enabled
	for _, item := range c.items {
		item.SetEnabled(enabled)
		if enabled {
			c.applyGovernance(item)
		}
	}
	return changed
}

// Govern applies the state of the governing toggle. On: every item (and every
// item added later) requires its designated sub-fields. Off: those validators
// are removed and the collection is excluded from validity; values are kept.
func (c *Collection) Govern(on bool) bool {
	changed := c.governed != on || c.enabled != on
	c.governed = on
	for _, item := range c.items {
		c.applyGovernance(item)
	}
	c.SetAllItemsEnabled(on)
	return changed
}

func (c *Collection) applyGovernance(item *Record) {
	for _, path := range c.required {
		f, ok := item.Field(path)
		if !ok {
			continue
		}
		if c.governed {
			f.AddValidators(RequiredValidator(""))
		} else {
			f.RemoveValidators(KindRequired)
		}
	}
}

// Valid reports whether the collection is disabled or every item is valid.
func (c *Collection) Valid() bool {
	if !c.enabled {
		return true
	}
	for _, item := range c.items {
		if !item.Valid() {
			return false
		}
	}
	return true
}

// Validate re-runs validators on every item and reports validity.
func (c *Collection) Validate() bool {
	if !c.enabled {
		return true
	}
	valid := true
	for _, item := range c.items {
		if !item.Validate() {
			valid = false
		}
	}
	return valid
}

// RawValues returns the raw value map of every item.
func (c *Collection) RawValues() []any {
	out := make([]any, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item.RawValues())
	}
	return out
}

func (c *Collection) indexOf(item *Record) int {
	for i, candidate := range c.items {
		if candidate == item {
			return i
		}
	}
	return -1
}

func (c *Collection) emit() {
	if c.parent == nil {
		return
	}
	c.parent.notify(ChangeEvent{Path: c.Path()})
}

// RequiredValidator flags blank values. It lives here so collections can
// govern sub-fields without importing the validator library.
func RequiredValidator(message string) Validator {
	if message == "" {
		message = "This field is required"
	}
	return NewValidator(KindRequired, func(value any, _ *Record) ViolationSet {
		if IsBlank(value) {
			return Violation(KindRequired, message)
		}
		return nil
	})
}
