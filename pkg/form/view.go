package form

import (
	"sort"
	"strings"
)

// View exposes a subset of a root record's members, addressed by path, as a
// single validatable unit. Wizard steps use views when a step spans fields
// that do not share a nested record.
type View struct {
	root  *Record
	paths []string
}

// NewView builds a view over the supplied member paths of root.
func NewView(root *Record, paths ...string) *View {
	clean := make([]string, 0, len(paths))
	for _, path := range paths {
		if trimmed := strings.Trim(strings.TrimSpace(path), "."); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	return &View{root: root, paths: clean}
}

// Paths returns the member paths in declaration order.
func (v *View) Paths() []string {
	return append([]string(nil), v.paths...)
}

// Nodes resolves the member paths, skipping any that no longer exist.
func (v *View) Nodes() []Node {
	out := make([]Node, 0, len(v.paths))
	for _, path := range v.paths {
		if node, ok := v.root.Node(path); ok {
			out = append(out, node)
		}
	}
	return out
}

// Contains reports whether path is one of the view's members or lies under
// one of them.
func (v *View) Contains(path string) bool {
	for _, member := range v.paths {
		if path == member || strings.HasPrefix(path, member+".") {
			return true
		}
	}
	return false
}

// Validate re-runs the validators of every member plus the root's group
// validators, which may target member fields, and reports validity.
func (v *View) Validate() bool {
	for _, node := range v.Nodes() {
		switch n := node.(type) {
		case *Field:
			n.revalidate()
		case *Record:
			n.revalidateFields()
		case *Collection:
			for _, item := range n.items {
				item.revalidateFields()
			}
		}
	}
	v.root.validateGroups()
	return v.Valid()
}

// Valid reports validity from the last validation run.
func (v *View) Valid() bool {
	for _, node := range v.Nodes() {
		switch n := node.(type) {
		case *Field:
			if !n.Valid() {
				return false
			}
		case *Record:
			if !n.Valid() {
				return false
			}
		case *Collection:
			if !n.Valid() {
				return false
			}
		}
	}
	return true
}

// MarkAllTouched flags every field under the view as touched.
func (v *View) MarkAllTouched() {
	v.eachField(func(f *Field) { f.MarkTouched() })
}

// Errors returns the violations of every invalid field under the view keyed
// by field path.
func (v *View) Errors() map[string]ViolationSet {
	out := make(map[string]ViolationSet)
	v.eachField(func(f *Field) {
		if errs := f.Errors(); len(errs) > 0 {
			out[f.Path()] = errs
		}
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func (v *View) eachField(fn func(*Field)) {
	for _, node := range v.Nodes() {
		switch n := node.(type) {
		case *Field:
			fn(n)
		case *Record:
			n.Walk(fn)
		case *Collection:
			for _, item := range n.items {
				item.Walk(fn)
			}
		}
	}
}

// ErrorPaths lists the paths of invalid fields in a record, sorted.
func ErrorPaths(rec *Record) []string {
	var out []string
	rec.Walk(func(f *Field) {
		if !f.Valid() {
			out = append(out, f.Path())
		}
	})
	sort.Strings(out)
	return out
}
