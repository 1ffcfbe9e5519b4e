package snapshot

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"

	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/form"
)

// RecordType tags a collection entry in the emitted request.
type RecordType string

const (
	RecordAdd     RecordType = "add"
	RecordUpdate  RecordType = "update"
	RecordNothing RecordType = "nothing"
	RecordRemove  RecordType = "remove"
)

// Entry is one classified collection item. Index is 1-based: present items
// use their current position and removed items continue the sequence after
// them.
type Entry struct {
	Index     int
	OriginID  int64
	HasOrigin bool
	Type      RecordType
	// Item is the live item for create, update and unchanged entries.
	Item *form.Record
	// Values holds the captured values for removed entries.
	Values map[string]any
	// Changed lists the item-relative paths that differ from the snapshot.
	Changed []string
}

// ChangeSet classifies the items of one collection against a snapshot.
type ChangeSet struct {
	Collection string
	IDKey      string
	Create     []Entry
	Update     []Entry
	Unchanged  []Entry
	Remove     []Entry
}

// Empty reports whether the set carries no create, update or remove entries.
func (c ChangeSet) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Remove) == 0
}

// DiffOption configures Diff and DiffCollection.
type DiffOption func(*diffConfig)

type diffConfig struct {
	logger *logrus.Entry
}

// WithLogger reports items whose origin id the snapshot never captured.
func WithLogger(entry *logrus.Entry) DiffOption {
	return func(c *diffConfig) { c.logger = logging.Or(entry) }
}

// Diff classifies every collection of rec against s, in declaration order.
func Diff(rec *form.Record, s *Snapshot, options ...DiffOption) []ChangeSet {
	var out []ChangeSet
	for _, c := range Collections(rec) {
		out = append(out, DiffCollection(c, s, options...))
	}
	return out
}

// DiffCollection classifies the items of current against the snapshot.
//
// Items without an origin id are created, except an untouched placeholder.
// Items whose origin id was captured are unchanged when their raw values are
// structurally equal and updated otherwise; an origin id the snapshot never
// saw is treated as an update. Captured items missing from current are
// removed.
func DiffCollection(current *form.Collection, s *Snapshot, options ...DiffOption) ChangeSet {
	cfg := diffConfig{logger: logging.Discard()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	set := ChangeSet{Collection: current.Path(), IDKey: current.IDKey()}

	var captured []Item
	if s != nil {
		captured = s.collections[current.Path()]
	}
	byOrigin := make(map[int64]Item, len(captured))
	for _, item := range captured {
		if item.HasOrigin {
			byOrigin[item.OriginID] = item
		}
	}

	present := make(map[int64]struct{})
	items := current.Items()
	for i, item := range items {
		entry := Entry{Index: i + 1, Item: item}
		id, ok := item.OriginID()
		if !ok {
			if item.Seeded() && !item.Dirty() {
				continue
			}
			entry.Type = RecordAdd
			set.Create = append(set.Create, entry)
			continue
		}
		entry.OriginID, entry.HasOrigin = id, true
		present[id] = struct{}{}

		before, seen := byOrigin[id]
		if !seen {
			cfg.logger.WithFields(logrus.Fields{
				"collection": set.Collection,
				"origin_id":  id,
				"index":      entry.Index,
			}).Warn("item origin id missing from snapshot, sending as update")
			entry.Type = RecordUpdate
			entry.Changed = fieldPaths(item.RawValues())
			set.Update = append(set.Update, entry)
			continue
		}
		changed := changedPaths(before.Values, item.RawValues())
		if len(changed) == 0 {
			entry.Type = RecordNothing
			set.Unchanged = append(set.Unchanged, entry)
			continue
		}
		entry.Type = RecordUpdate
		entry.Changed = changed
		set.Update = append(set.Update, entry)
	}

	next := len(items) + 1
	for _, item := range captured {
		if !item.HasOrigin {
			continue
		}
		if _, ok := present[item.OriginID]; ok {
			continue
		}
		set.Remove = append(set.Remove, Entry{
			Index:     next,
			OriginID:  item.OriginID,
			HasOrigin: true,
			Type:      RecordRemove,
			Values:    form.CopyValue(item.Values).(map[string]any),
		})
		next++
	}
	return set
}

// changedPaths returns the item-relative dotted paths touched by the JSON
// patch between before and after.
func changedPaths(before, after map[string]any) []string {
	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return fieldPaths(after)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, op := range patch {
		path := pointerToPath(string(op.Path))
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	parts := strings.Split(pointer, "/")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[i] = strings.ReplaceAll(part, "~0", "~")
	}
	return strings.Join(parts, ".")
}

func fieldPaths(values map[string]any) []string {
	out := make([]string, 0, len(values))
	for key := range values {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
