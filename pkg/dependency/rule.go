package dependency

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/condition"
	"github.com/goliatone/go-formstate/pkg/form"
)

// Wildcard binds a path segment to any collection item index.
const Wildcard = "*"

// Rule describes the effect a watched source has on one target. The target
// may be a field, a nested record, or a collection; `*` segments bind to the
// item index captured from the source, and unbound ones fan out over every
// current item.
type Rule struct {
	Target string
	// When gates the rule. Nil means always on.
	When condition.Predicate
	// Toggle enables the target while When holds and disables it otherwise.
	// Collections are governed instead (Collection.Govern).
	Toggle bool
	// Require installs these validators on a field target while When holds
	// and removes them, by kind, otherwise.
	Require []form.Validator
	// Reset restores the target field value while When does not hold: to
	// ResetTo when set, otherwise to the field's initial value.
	Reset   bool
	ResetTo any
}

// apply evaluates the rule against src and mutates node. It reports whether
// the node's enablement or value changed.
func (r Rule) apply(node form.Node, on bool) bool {
	changed := false
	if r.Toggle {
		if c, ok := node.(*form.Collection); ok {
			changed = c.Govern(on) || changed
		} else {
			changed = node.SetEnabled(on) || changed
		}
	}

	f, ok := node.(*form.Field)
	if !ok {
		return changed
	}
	if len(r.Require) > 0 {
		if on {
			f.AddValidators(r.Require...)
		} else {
			kinds := make([]string, 0, len(r.Require))
			for _, v := range r.Require {
				kinds = append(kinds, v.Kind())
			}
			f.RemoveValidators(kinds...)
		}
	}
	if r.Reset && !on {
		before := f.Value()
		if r.ResetTo != nil {
			f.Reset(r.ResetTo)
		} else {
			f.ResetInitial()
		}
		if !reflect.DeepEqual(before, f.Value()) {
			changed = true
		}
	}
	return changed
}

func (r Rule) predicate() condition.Predicate {
	if r.When == nil {
		return condition.Always
	}
	return r.When
}

func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// match reports whether path matches pattern and returns the item indexes
// captured by wildcard segments.
func match(pattern, path []string) ([]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	var captures []string
	for i, segment := range pattern {
		if segment == Wildcard {
			if _, err := strconv.Atoi(path[i]); err != nil {
				return nil, false
			}
			captures = append(captures, path[i])
			continue
		}
		if segment != path[i] {
			return nil, false
		}
	}
	return captures, true
}

// bind substitutes captured indexes into the wildcard segments of pattern,
// left to right. Unbound wildcards are kept.
func bind(pattern []string, captures []string) []string {
	out := make([]string, len(pattern))
	next := 0
	for i, segment := range pattern {
		if segment == Wildcard && next < len(captures) {
			out[i] = captures[next]
			next++
			continue
		}
		out[i] = segment
	}
	return out
}

// expand resolves a pattern into the concrete paths present in root.
func expand(root *form.Record, pattern []string) []string {
	paths := []string{""}
	for _, segment := range pattern {
		var next []string
		for _, prefix := range paths {
			if segment != Wildcard {
				next = append(next, joinPath(prefix, segment))
				continue
			}
			c, ok := root.Collection(prefix)
			if !ok {
				continue
			}
			for i := 0; i < c.Len(); i++ {
				next = append(next, joinPath(prefix, strconv.Itoa(i)))
			}
		}
		paths = next
	}
	out := paths[:0]
	for _, path := range paths {
		if _, ok := root.Node(path); ok {
			out = append(out, path)
		}
	}
	return out
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
