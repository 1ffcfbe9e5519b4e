package condition

import (
	"strconv"
	"strings"
)

// Source resolves dotted paths to values. *form.Record satisfies it.
type Source interface {
	Lookup(path string) (any, bool)
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(path string) (any, bool)

// Lookup delegates to the underlying function.
func (fn SourceFunc) Lookup(path string) (any, bool) {
	return fn(path)
}

// Values is a Source over nested maps and lists as produced by JSON/YAML
// decoding or Record.RawValues.
type Values map[string]any

// Lookup prefers an exact key match and otherwise walks the dotted path,
// indexing lists by numeric segments.
func (v Values) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if len(v) == 0 || path == "" {
		return nil, false
	}
	if value, ok := v[path]; ok {
		return value, true
	}

	var current any = map[string]any(v)
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(typed) {
				return nil, false
			}
			current = typed[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Chain tries each source in order and returns the first hit.
func Chain(sources ...Source) Source {
	return SourceFunc(func(path string) (any, bool) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if value, ok := src.Lookup(path); ok {
				return value, true
			}
		}
		return nil, false
	})
}

// Predicate decides whether a dependency rule applies.
type Predicate interface {
	Eval(src Source) (bool, error)
}

// PredicateFunc adapts a function into a Predicate.
type PredicateFunc func(src Source) (bool, error)

// Eval delegates to the underlying function.
func (fn PredicateFunc) Eval(src Source) (bool, error) {
	return fn(src)
}

// Always is satisfied unconditionally.
var Always Predicate = PredicateFunc(func(Source) (bool, error) { return true, nil })

// Truthy is satisfied when the value at path is truthy.
func Truthy(path string) Predicate {
	return PredicateFunc(func(src Source) (bool, error) {
		value, ok := src.Lookup(path)
		if !ok {
			return false, nil
		}
		return truthy(value), nil
	})
}

// Equals is satisfied when the value at path equals want after the same
// coercion rules the expression language applies to literals.
func Equals(path string, want any) Predicate {
	return PredicateFunc(func(src Source) (bool, error) {
		value, _ := src.Lookup(path)
		return equalLoose(value, want), nil
	})
}

// In is satisfied when the value at path equals any of the candidates.
func In(path string, candidates ...any) Predicate {
	return PredicateFunc(func(src Source) (bool, error) {
		value, _ := src.Lookup(path)
		for _, candidate := range candidates {
			if equalLoose(value, candidate) {
				return true, nil
			}
		}
		return false, nil
	})
}

// Not negates p.
func Not(p Predicate) Predicate {
	return PredicateFunc(func(src Source) (bool, error) {
		ok, err := p.Eval(src)
		if err != nil {
			return false, err
		}
		return !ok, nil
	})
}
