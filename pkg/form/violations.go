package form

import (
	"sort"
	"strings"
)

// Canonical violation kinds produced by the built-in validators. Custom
// validators may use any other non-empty kind.
const (
	KindRequired  = "required"
	KindPattern   = "pattern"
	KindMin       = "min"
	KindMax       = "max"
	KindMinLength = "minLength"
	KindMaxLength = "maxLength"
	KindRemote    = "remote"
)

// ViolationSet maps violation kinds to an optional human readable message. A
// nil or empty set means the value is valid.
type ViolationSet map[string]string

// Violation returns a set holding a single kind.
func Violation(kind, message string) ViolationSet {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return nil
	}
	return ViolationSet{kind: message}
}

// Has reports whether the set carries the supplied kind.
func (v ViolationSet) Has(kind string) bool {
	if len(v) == 0 {
		return false
	}
	_, ok := v[kind]
	return ok
}

// Empty reports whether the set holds no violations.
func (v ViolationSet) Empty() bool {
	return len(v) == 0
}

// Kinds returns the violation kinds sorted for deterministic output.
func (v ViolationSet) Kinds() []string {
	if len(v) == 0 {
		return nil
	}
	kinds := make([]string, 0, len(v))
	for kind := range v {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Message returns the message of the first kind (sorted order) carrying one,
// falling back to the kind name itself.
func (v ViolationSet) Message() string {
	kinds := v.Kinds()
	for _, kind := range kinds {
		if msg := strings.TrimSpace(v[kind]); msg != "" {
			return msg
		}
	}
	if len(kinds) > 0 {
		return kinds[0]
	}
	return ""
}

// Clone returns a copy of the set, or nil when it is empty.
func (v ViolationSet) Clone() ViolationSet {
	if len(v) == 0 {
		return nil
	}
	out := make(ViolationSet, len(v))
	for kind, msg := range v {
		out[kind] = msg
	}
	return out
}

// Merge combines sets left to right; later messages win on kind collisions.
// The result is nil when every input is empty.
func Merge(sets ...ViolationSet) ViolationSet {
	var out ViolationSet
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		if out == nil {
			out = make(ViolationSet, len(set))
		}
		for kind, msg := range set {
			out[kind] = msg
		}
	}
	return out
}
