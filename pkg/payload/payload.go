package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/snapshot"
	"github.com/goliatone/go-formstate/pkg/validators"
)

var (
	// ErrNilRecord is returned when Build receives no record.
	ErrNilRecord = errors.New("payload: record required")
	// ErrUnknownCollection is returned for a change set whose collection does
	// not exist in the record.
	ErrUnknownCollection = errors.New("payload: unknown collection")
)

// Request keys.
const (
	KeyID         = "id"
	KeyIndex      = "index"
	KeyRecordType = "record_type"
	KeyCreate     = "create"
	KeyUpdate     = "update"
	KeyDelete     = "delete"
)

// Request is the backend envelope.
type Request struct {
	Data map[string]any `json:"request_data"`
}

// JSON renders the request with two-space indentation.
func (r Request) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Build composes the request for rec. Enabled values are emitted in the
// record's nested shape; each collection with a change set is spliced in as
// {create, update, delete}, while collections without one are emitted as a
// plain list. Numeric fields are coerced to exact JSON numbers, blank ones to
// 0. Build never mutates rec.
func Build(rec *form.Record, changes []snapshot.ChangeSet, options ...Option) (Request, error) {
	if rec == nil {
		return Request{}, ErrNilRecord
	}
	cfg := newConfig(options)

	byPath := make(map[string]snapshot.ChangeSet, len(changes))
	for _, set := range changes {
		if _, ok := rec.Collection(set.Collection); !ok {
			return Request{}, fmt.Errorf("%w: %q", ErrUnknownCollection, set.Collection)
		}
		byPath[set.Collection] = set
	}

	b := builder{cfg: cfg, changes: byPath}
	data := b.record(rec)
	for path, value := range cfg.defaults {
		if !hasPath(data, path) {
			setPath(data, path, form.CopyValue(value))
		}
	}
	if cfg.hasID {
		data[KeyID] = cfg.id
	}
	return Request{Data: data}, nil
}

type builder struct {
	cfg     config
	changes map[string]snapshot.ChangeSet
}

func (b builder) record(r *form.Record) map[string]any {
	out := make(map[string]any)
	r.Each(func(name string, node form.Node) {
		switch n := node.(type) {
		case *form.Field:
			if !n.Enabled() && !b.included(n.Path()) {
				return
			}
			out[name] = b.value(n)
		case *form.Record:
			if !n.Enabled() {
				return
			}
			out[name] = b.record(n)
		case *form.Collection:
			if !n.Enabled() {
				return
			}
			if set, ok := b.changes[n.Path()]; ok {
				out[name] = b.changeSet(set)
				return
			}
			items := make([]any, 0, n.Len())
			for _, item := range n.Items() {
				if item.Seeded() && !item.Dirty() {
					continue
				}
				items = append(items, b.record(item))
			}
			out[name] = items
		}
	})
	return out
}

func (b builder) changeSet(set snapshot.ChangeSet) map[string]any {
	create := make([]any, 0, len(set.Create))
	for _, entry := range set.Create {
		create = append(create, b.entry(entry, false))
	}
	updated := append([]snapshot.Entry(nil), set.Update...)
	if b.cfg.unchanged {
		updated = append(updated, set.Unchanged...)
		sort.SliceStable(updated, func(i, j int) bool { return updated[i].Index < updated[j].Index })
	}
	update := make([]any, 0, len(updated))
	for _, entry := range updated {
		update = append(update, b.entry(entry, true))
	}
	remove := make([]any, 0, len(set.Remove))
	for _, entry := range set.Remove {
		remove = append(remove, map[string]any{
			KeyID:         entry.OriginID,
			KeyIndex:      entry.Index,
			KeyRecordType: string(entry.Type),
		})
	}
	return map[string]any{
		KeyCreate: create,
		KeyUpdate: update,
		KeyDelete: remove,
	}
}

func (b builder) entry(entry snapshot.Entry, withID bool) map[string]any {
	var out map[string]any
	if entry.Item != nil {
		out = b.record(entry.Item)
	} else {
		out = make(map[string]any)
	}
	if withID && entry.HasOrigin {
		out[KeyID] = entry.OriginID
	}
	out[KeyIndex] = entry.Index
	out[KeyRecordType] = string(entry.Type)
	return out
}

func (b builder) included(path string) bool {
	_, ok := b.cfg.included[path]
	return ok
}

func (b builder) value(f *form.Field) any {
	raw := form.CopyValue(f.Value())
	if f.Type().Numeric() {
		return numeric(raw, f.Type())
	}
	if f.Type() == form.FieldTypeBoolean {
		if s, ok := raw.(string); ok {
			return form.Truthy(s)
		}
		return raw
	}
	if s, ok := raw.(string); ok && b.cfg.sanitizer != nil {
		return strings.TrimSpace(html.UnescapeString(b.cfg.sanitizer.Sanitize(s)))
	}
	return raw
}

// numeric converts blank values to 0 and numeric strings to exact JSON
// numbers. Values that do not parse are passed through for the backend to
// reject.
func numeric(raw any, kind form.FieldType) any {
	if form.IsBlank(raw) {
		return json.Number("0")
	}
	d, ok := validators.ToDecimal(raw)
	if !ok {
		return raw
	}
	if kind == form.FieldTypeInteger && d.IsInteger() {
		return json.Number(d.StringFixed(0))
	}
	return json.Number(d.String())
}

func hasPath(values map[string]any, path string) bool {
	var current any = values
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		current, ok = m[segment]
		if !ok {
			return false
		}
	}
	return true
}

func setPath(values map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := values
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}
