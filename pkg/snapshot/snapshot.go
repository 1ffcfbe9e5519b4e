package snapshot

import (
	"sort"
	"strings"
	"time"

	"github.com/wI2L/jsondiff"

	"github.com/goliatone/go-formstate/pkg/form"
)

// Item is the frozen state of one collection item.
type Item struct {
	OriginID  int64
	HasOrigin bool
	Seeded    bool
	Values    map[string]any
}

// Snapshot is an immutable deep copy of a record's raw values, enabled or
// not, together with the origin ids of every collection item.
type Snapshot struct {
	takenAt     time.Time
	values      map[string]any
	collections map[string][]Item
	idKeys      map[string]string
}

// Take captures rec.
func Take(rec *form.Record) *Snapshot {
	s := &Snapshot{
		takenAt:     time.Now(),
		values:      rec.RawValues(),
		collections: make(map[string][]Item),
		idKeys:      make(map[string]string),
	}
	for _, c := range Collections(rec) {
		items := make([]Item, 0, c.Len())
		for _, item := range c.Items() {
			id, ok := item.OriginID()
			items = append(items, Item{
				OriginID:  id,
				HasOrigin: ok,
				Seeded:    item.Seeded() && !item.Dirty(),
				Values:    item.RawValues(),
			})
		}
		s.collections[c.Path()] = items
		s.idKeys[c.Path()] = c.IDKey()
	}
	return s
}

// TakenAt returns the capture time.
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Values returns a copy of the captured raw values.
func (s *Snapshot) Values() map[string]any {
	return form.CopyValue(s.values).(map[string]any)
}

// Paths lists the captured collection paths, sorted.
func (s *Snapshot) Paths() []string {
	out := make([]string, 0, len(s.collections))
	for path := range s.collections {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Items returns a copy of the captured items of the collection at path.
func (s *Snapshot) Items(path string) []Item {
	items := s.collections[path]
	out := make([]Item, len(items))
	for i, item := range items {
		item.Values = form.CopyValue(item.Values).(map[string]any)
		out[i] = item
	}
	return out
}

// Compare returns the structural JSON patch turning the snapshot values into
// the record's current raw values.
func (s *Snapshot) Compare(rec *form.Record) (jsondiff.Patch, error) {
	return jsondiff.Compare(s.values, rec.RawValues())
}

// IsDirty reports whether rec differs from s: any raw value (disabled fields
// included), any collection's item count or member values, or any
// collection's set of origin ids. An unreadable comparison counts as dirty.
func IsDirty(rec *form.Record, s *Snapshot) bool {
	if s == nil {
		return true
	}
	patch, err := s.Compare(rec)
	if err != nil || len(patch) > 0 {
		return true
	}
	for _, c := range Collections(rec) {
		if !sameOrigins(c, s.collections[c.Path()]) {
			return true
		}
	}
	return false
}

// Restore writes the captured values back onto rec without emitting change
// events and marks the tree pristine. Collections are reloaded with their
// captured origin ids; a captured lone placeholder is re-seeded.
func (s *Snapshot) Restore(rec *form.Record) {
	values := s.Values()
	for path, items := range s.collections {
		list := make([]any, 0, len(items))
		if !(len(items) == 1 && items[0].Seeded) {
			key := s.idKeys[path]
			for _, item := range items {
				entry := form.CopyValue(item.Values).(map[string]any)
				if item.HasOrigin {
					entry[key] = item.OriginID
				}
				list = append(list, entry)
			}
		}
		setPath(values, path, list)
	}
	rec.Patch(values, form.Silent(), form.Pristine())
	rec.MarkPristine()
	rec.Validate()
}

// Collections lists the collections reachable from rec through nested
// records, in declaration order. Collections inside collection items are not
// included; they are diffed as part of their item's values.
func Collections(rec *form.Record) []*form.Collection {
	var out []*form.Collection
	rec.Each(func(_ string, node form.Node) {
		switch n := node.(type) {
		case *form.Record:
			out = append(out, Collections(n)...)
		case *form.Collection:
			out = append(out, n)
		}
	})
	return out
}

func sameOrigins(c *form.Collection, items []Item) bool {
	current := make(map[int64]int)
	for _, item := range c.Items() {
		if id, ok := item.OriginID(); ok {
			current[id]++
		}
	}
	captured := make(map[int64]int)
	for _, item := range items {
		if item.HasOrigin {
			captured[item.OriginID]++
		}
	}
	if len(current) != len(captured) {
		return false
	}
	for id, n := range current {
		if captured[id] != n {
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
