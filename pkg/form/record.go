package form

import (
	"strconv"
	"strings"
)

// Node is implemented by every addressable member of a record tree: *Field,
// *Record, and *Collection.
type Node interface {
	Path() string
	Enabled() bool
	SetEnabled(enabled bool) bool
}

// ChangeEvent describes a single value change. Field is nil for structural
// collection changes (item added or removed), in which case Path names the
// collection.
type ChangeEvent struct {
	Path  string
	Field *Field
	Value any
}

type memberKind int

const (
	memberField memberKind = iota
	memberGroup
	memberCollection
)

type member struct {
	name string
	kind memberKind
}

type listener struct {
	id int
	fn func(ChangeEvent)
}

// Record is a named group of fields, nested records, and repeatable
// collections. A record is valid iff every enabled field is valid, every group
// validator returned no violation, and every nested record and enabled
// collection is valid.
type Record struct {
	name        string
	parent      *Record
	owner       *Collection
	order       []member
	fields      map[string]*Field
	groups      map[string]*Record
	collections map[string]*Collection
	validators  []GroupValidator
	errors      ViolationSet
	enabled     bool

	listeners   []listener
	nextID      int
	dispatching bool

	originID  int64
	hasOrigin bool
	seeded    bool
}

// NewRecord constructs an empty root record.
func NewRecord(name string) *Record {
	return &Record{
		name:        name,
		fields:      make(map[string]*Field),
		groups:      make(map[string]*Record),
		collections: make(map[string]*Collection),
		enabled:     true,
	}
}

// Name returns the record name. Collection items are named after their
// position at creation time; use Path for the live address.
func (r *Record) Name() string { return r.name }

// Parent returns the enclosing record: the record owning a nested group, or
// the record owning the collection of an item. Roots return nil.
func (r *Record) Parent() *Record {
	if r.owner != nil {
		return r.owner.parent
	}
	return r.parent
}

// Owner returns the collection owning this record when it is an item.
func (r *Record) Owner() *Collection { return r.owner }

// Root walks up to the top-level record.
func (r *Record) Root() *Record {
	current := r
	for current.Parent() != nil {
		current = current.Parent()
	}
	return current
}

// Path returns the dotted address of the record. The root path is empty and
// collection items are addressed by their current index.
func (r *Record) Path() string {
	if r.owner != nil {
		return joinPath(r.owner.Path(), strconv.Itoa(r.owner.indexOf(r)))
	}
	if r.parent == nil {
		return ""
	}
	return joinPath(r.parent.Path(), r.name)
}

// Contains reports whether path addresses this record or one of its
// descendants.
func (r *Record) Contains(path string) bool {
	own := r.Path()
	if own == "" {
		return true
	}
	return path == own || strings.HasPrefix(path, own+".")
}

// AddField attaches a new field under key, replacing any existing member with
// the same name.
func (r *Record) AddField(key string, options ...FieldOption) *Field {
	f := NewField(key, options...)
	f.parent = r
	if !r.enabled {
		f.SetEnabled(false)
	}
	r.remove(key)
	r.fields[key] = f
	r.order = append(r.order, member{name: key, kind: memberField})
	f.revalidate()
	return f
}

// AddGroup attaches a nested record under name.
func (r *Record) AddGroup(name string) *Record {
	g := NewRecord(name)
	g.parent = r
	if !r.enabled {
		g.enabled = false
	}
	r.remove(name)
	r.groups[name] = g
	r.order = append(r.order, member{name: name, kind: memberGroup})
	return g
}

// AddCollection attaches a repeatable collection whose items are built by
// shape. The collection is seeded with one empty item.
func (r *Record) AddCollection(name string, shape ItemShape, options ...CollectionOption) *Collection {
	c := newCollection(name, r, shape, options...)
	r.remove(name)
	r.collections[name] = c
	r.order = append(r.order, member{name: name, kind: memberCollection})
	c.seed()
	return c
}

// AddValidators attaches group validators evaluated after every change.
func (r *Record) AddValidators(validators ...GroupValidator) {
	for _, v := range validators {
		if v != nil {
			r.validators = append(r.validators, v)
		}
	}
}

// Validators returns a copy of the group validators.
func (r *Record) Validators() []GroupValidator {
	return append([]GroupValidator(nil), r.validators...)
}

func (r *Record) remove(name string) {
	if _, ok := r.fields[name]; ok {
		delete(r.fields, name)
	} else if _, ok := r.groups[name]; ok {
		delete(r.groups, name)
	} else if _, ok := r.collections[name]; ok {
		delete(r.collections, name)
	} else {
		return
	}
	kept := r.order[:0]
	for _, m := range r.order {
		if m.name != name {
			kept = append(kept, m)
		}
	}
	r.order = kept
}

// Each visits direct members in declaration order.
func (r *Record) Each(fn func(name string, node Node)) {
	for _, m := range r.order {
		switch m.kind {
		case memberField:
			fn(m.name, r.fields[m.name])
		case memberGroup:
			fn(m.name, r.groups[m.name])
		case memberCollection:
			fn(m.name, r.collections[m.name])
		}
	}
}

// Fields returns the direct fields in declaration order.
func (r *Record) Fields() []*Field {
	var out []*Field
	for _, m := range r.order {
		if m.kind == memberField {
			out = append(out, r.fields[m.name])
		}
	}
	return out
}

// Collections returns the direct collections in declaration order.
func (r *Record) Collections() []*Collection {
	var out []*Collection
	for _, m := range r.order {
		if m.kind == memberCollection {
			out = append(out, r.collections[m.name])
		}
	}
	return out
}

// Walk visits every field in the tree, including collection items, in
// declaration order.
func (r *Record) Walk(fn func(f *Field)) {
	for _, m := range r.order {
		switch m.kind {
		case memberField:
			fn(r.fields[m.name])
		case memberGroup:
			r.groups[m.name].Walk(fn)
		case memberCollection:
			for _, item := range r.collections[m.name].items {
				item.Walk(fn)
			}
		}
	}
}

// Node resolves a dotted path relative to this record.
func (r *Record) Node(path string) (Node, bool) {
	path = strings.Trim(strings.TrimSpace(path), ".")
	if path == "" {
		return r, true
	}
	return r.node(strings.Split(path, "."))
}

func (r *Record) node(segments []string) (Node, bool) {
	head, rest := segments[0], segments[1:]
	if f, ok := r.fields[head]; ok {
		if len(rest) == 0 {
			return f, true
		}
		return nil, false
	}
	if g, ok := r.groups[head]; ok {
		if len(rest) == 0 {
			return g, true
		}
		return g.node(rest)
	}
	if c, ok := r.collections[head]; ok {
		if len(rest) == 0 {
			return c, true
		}
		idx, err := strconv.Atoi(rest[0])
		if err != nil {
			return nil, false
		}
		item, ok := c.Item(idx)
		if !ok {
			return nil, false
		}
		if len(rest) == 1 {
			return item, true
		}
		return item.node(rest[1:])
	}
	return nil, false
}

// Field resolves a field by dotted path.
func (r *Record) Field(path string) (*Field, bool) {
	node, ok := r.Node(path)
	if !ok {
		return nil, false
	}
	f, ok := node.(*Field)
	return f, ok
}

// Group resolves a nested record (or collection item) by dotted path.
func (r *Record) Group(path string) (*Record, bool) {
	node, ok := r.Node(path)
	if !ok {
		return nil, false
	}
	g, ok := node.(*Record)
	return g, ok
}

// Collection resolves a collection by dotted path.
func (r *Record) Collection(path string) (*Collection, bool) {
	node, ok := r.Node(path)
	if !ok {
		return nil, false
	}
	c, ok := node.(*Collection)
	return c, ok
}

// Lookup returns the raw value addressed by path: a field value, a nested
// record's raw value map, or a collection's list of item maps.
func (r *Record) Lookup(path string) (any, bool) {
	node, ok := r.Node(path)
	if !ok {
		return nil, false
	}
	switch n := node.(type) {
	case *Field:
		return n.Value(), true
	case *Record:
		return n.RawValues(), true
	case *Collection:
		return n.RawValues(), true
	}
	return nil, false
}

// RawValues returns every value in the tree, enabled or not, as nested maps
// and slices.
func (r *Record) RawValues() map[string]any {
	return r.values(false)
}

// Values returns only enabled values.
func (r *Record) Values() map[string]any {
	return r.values(true)
}

func (r *Record) values(enabledOnly bool) map[string]any {
	out := make(map[string]any, len(r.order))
	for _, m := range r.order {
		switch m.kind {
		case memberField:
			f := r.fields[m.name]
			if enabledOnly && !f.enabled {
				continue
			}
			out[m.name] = CopyValue(f.value)
		case memberGroup:
			g := r.groups[m.name]
			if enabledOnly && !g.enabled {
				continue
			}
			out[m.name] = g.values(enabledOnly)
		case memberCollection:
			c := r.collections[m.name]
			if enabledOnly && !c.enabled {
				continue
			}
			items := make([]any, 0, len(c.items))
			for _, item := range c.items {
				items = append(items, item.values(enabledOnly))
			}
			out[m.name] = items
		}
	}
	return out
}

// Patch writes the supplied values onto matching members. Nested maps patch
// nested records; lists load collections. Unknown keys are ignored.
func (r *Record) Patch(values map[string]any, options ...SetOption) {
	if len(values) == 0 {
		return
	}
	cfg := newSetConfig(options)
	for _, m := range r.order {
		raw, ok := values[m.name]
		if !ok {
			continue
		}
		switch m.kind {
		case memberField:
			r.fields[m.name].SetValue(raw, options...)
		case memberGroup:
			if nested, ok := raw.(map[string]any); ok {
				r.groups[m.name].Patch(nested, options...)
			}
		case memberCollection:
			c := r.collections[m.name]
			c.load(toMapList(raw), cfg)
		}
	}
}

// Enabled reports whether the record takes part in validity and payloads.
func (r *Record) Enabled() bool { return r.enabled }

// SetEnabled enables or disables the record and every descendant. It reports
// whether the record's own state changed.
func (r *Record) SetEnabled(enabled bool) bool {
	changed := r.enabled != enabled
	r.enabled = enabled
	for _, m := range r.order {
		switch m.kind {
		case memberField:
			r.fields[m.name].SetEnabled(enabled)
		case memberGroup:
			r.groups[m.name].SetEnabled(enabled)
		case memberCollection:
			r.collections[m.name].SetEnabled(enabled)
		}
	}
	if !enabled {
		r.errors = nil
	}
	return changed
}

// Errors returns the record-level violations from the last group validation.
func (r *Record) Errors() ViolationSet {
	if !r.enabled {
		return nil
	}
	return r.errors.Clone()
}

// Validate re-runs every validator in the subtree and reports validity.
func (r *Record) Validate() bool {
	r.revalidateFields()
	r.validateGroups()
	return r.Valid()
}

// Valid reports validity from the last validation run without re-running
// validators.
func (r *Record) Valid() bool {
	if !r.enabled {
		return true
	}
	if len(r.errors) > 0 {
		return false
	}
	for _, m := range r.order {
		switch m.kind {
		case memberField:
			if !r.fields[m.name].Valid() {
				return false
			}
		case memberGroup:
			if !r.groups[m.name].Valid() {
				return false
			}
		case memberCollection:
			if !r.collections[m.name].Valid() {
				return false
			}
		}
	}
	return true
}

// ValidateGroups re-runs only the group validators of the subtree.
func (r *Record) ValidateGroups() {
	r.validateGroups()
}

func (r *Record) revalidateFields() {
	for _, m := range r.order {
		switch m.kind {
		case memberField:
			r.fields[m.name].revalidate()
		case memberGroup:
			r.groups[m.name].revalidateFields()
		case memberCollection:
			for _, item := range r.collections[m.name].items {
				item.revalidateFields()
			}
		}
	}
}

func (r *Record) validateGroups() {
	if !r.enabled {
		r.errors = nil
		return
	}
	for _, m := range r.order {
		switch m.kind {
		case memberGroup:
			r.groups[m.name].validateGroups()
		case memberCollection:
			c := r.collections[m.name]
			if !c.enabled {
				continue
			}
			for _, item := range c.items {
				item.validateGroups()
			}
		}
	}
	var out ViolationSet
	for _, v := range r.validators {
		out = Merge(out, v.ValidateGroup(r))
	}
	r.errors = out
}

// MarkAllTouched flags every field in the subtree as touched so violations
// become visible.
func (r *Record) MarkAllTouched() {
	r.Walk(func(f *Field) { f.MarkTouched() })
}

// Dirty reports whether any field was edited or any collection changed shape
// since the last MarkPristine.
func (r *Record) Dirty() bool {
	for _, m := range r.order {
		switch m.kind {
		case memberField:
			if r.fields[m.name].dirty {
				return true
			}
		case memberGroup:
			if r.groups[m.name].Dirty() {
				return true
			}
		case memberCollection:
			c := r.collections[m.name]
			if c.modified {
				return true
			}
			for _, item := range c.items {
				if item.Dirty() {
					return true
				}
			}
		}
	}
	return false
}

// MarkPristine clears dirty flags across the subtree.
func (r *Record) MarkPristine() {
	for _, m := range r.order {
		switch m.kind {
		case memberField:
			r.fields[m.name].dirty = false
		case memberGroup:
			r.groups[m.name].MarkPristine()
		case memberCollection:
			c := r.collections[m.name]
			c.modified = false
			for _, item := range c.items {
				item.MarkPristine()
			}
		}
	}
}

// OriginID returns the persisted identifier mirrored by a collection item.
func (r *Record) OriginID() (int64, bool) { return r.originID, r.hasOrigin }

// SetOriginID marks the record as mirroring a persisted entity.
func (r *Record) SetOriginID(id int64) {
	r.originID = id
	r.hasOrigin = true
}

// ClearOriginID marks the record as not yet persisted.
func (r *Record) ClearOriginID() {
	r.originID = 0
	r.hasOrigin = false
}

// Seeded reports whether the record is the placeholder item a collection
// creates when it would otherwise be empty.
func (r *Record) Seeded() bool { return r.seeded }

// Subscribe registers fn for change events raised anywhere under this record.
// The returned function removes the subscription.
func (r *Record) Subscribe(fn func(ChangeEvent)) func() {
	if fn == nil {
		return func() {}
	}
	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, listener{id: id, fn: fn})
	return func() {
		kept := r.listeners[:0]
		for _, l := range r.listeners {
			if l.id != id {
				kept = append(kept, l)
			}
		}
		r.listeners = kept
	}
}

// notify delivers ev to listeners from the emitting record up to the root and
// then re-runs group validation. Events raised while listeners are running
// are stored but not re-dispatched, so one edit yields one dispatch.
func (r *Record) notify(ev ChangeEvent) {
	root := r.Root()
	if root.dispatching {
		return
	}
	root.dispatching = true
	func() {
		defer func() { root.dispatching = false }()
		for current := r; current != nil; current = current.Parent() {
			listeners := append([]listener(nil), current.listeners...)
			for _, l := range listeners {
				l.fn(ev)
			}
		}
	}()
	root.validateGroups()
}

func joinPath(parent, child string) string {
	parent = strings.TrimSpace(parent)
	child = strings.TrimSpace(child)
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

func toMapList(raw any) []map[string]any {
	switch typed := raw.(type) {
	case []map[string]any:
		return typed
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
