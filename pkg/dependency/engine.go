package dependency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/condition"
	"github.com/goliatone/go-formstate/pkg/form"
)

var (
	// ErrNoSource is returned by Watch when the source path is empty.
	ErrNoSource = errors.New("dependency: source path required")
	// ErrNoTarget is returned by Watch when a rule has no target.
	ErrNoTarget = errors.New("dependency: rule target required")
	// ErrSelfTarget is returned by Watch when a rule targets its own source.
	ErrSelfTarget = errors.New("dependency: rule targets its own source")
)

// Binding groups the rules registered for one source path.
type Binding struct {
	Source string
	Rules  []Rule
}

// Pass summarises one propagation pass.
type Pass struct {
	Origin  string
	Visited []string
	Changed []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for pass summaries.
func WithLogger(entry *logrus.Entry) Option {
	return func(e *Engine) {
		if entry != nil {
			e.logger = entry
		}
	}
}

// Engine is the propagation graph for one record tree. Edges run from a
// watched source path to the targets of its rules, evaluated in declaration
// order.
type Engine struct {
	root     *form.Record
	bindings []binding
	logger   *logrus.Entry
	cancel   func()
	running  bool
	passes   int
	last     Pass
}

type binding struct {
	source  string
	pattern []string
	rules   []Rule
}

// New constructs an engine over root. Call Watch to register rules and Start
// to subscribe to change events.
func New(root *form.Record, options ...Option) *Engine {
	e := &Engine{root: root, logger: logging.Discard()}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Watch registers rules for source. Rules for the same source accumulate in
// call order.
func (e *Engine) Watch(source string, rules ...Rule) error {
	pattern := splitPath(source)
	if len(pattern) == 0 {
		return ErrNoSource
	}
	normalized := strings.Join(pattern, ".")
	for i, rule := range rules {
		target := splitPath(rule.Target)
		if len(target) == 0 {
			return fmt.Errorf("%w: %s rule %d", ErrNoTarget, normalized, i)
		}
		if strings.Join(target, ".") == normalized {
			return fmt.Errorf("%w: %s", ErrSelfTarget, normalized)
		}
	}
	for i := range e.bindings {
		if e.bindings[i].source == normalized {
			e.bindings[i].rules = append(e.bindings[i].rules, rules...)
			return nil
		}
	}
	e.bindings = append(e.bindings, binding{source: normalized, pattern: pattern, rules: append([]Rule(nil), rules...)})
	return nil
}

// Bind registers every binding in order.
func (e *Engine) Bind(bindings ...Binding) error {
	for _, b := range bindings {
		if err := e.Watch(b.Source, b.Rules...); err != nil {
			return err
		}
	}
	return nil
}

// Bindings returns the registered bindings.
func (e *Engine) Bindings() []Binding {
	out := make([]Binding, 0, len(e.bindings))
	for _, b := range e.bindings {
		out = append(out, Binding{Source: b.source, Rules: append([]Rule(nil), b.rules...)})
	}
	return out
}

// Start subscribes to the record's change events and applies every rule once
// so the initial state is consistent. Calling Start twice is a no-op.
func (e *Engine) Start() {
	if e.cancel != nil {
		return
	}
	e.cancel = e.root.Subscribe(func(ev form.ChangeEvent) {
		e.Propagate(ev.Path)
	})
	e.Sync()
}

// Stop removes the subscription installed by Start.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil
}

// Sync runs a pass seeded with every concrete source path, bringing targets in
// line with current values. Used after loads and resets, which are silent.
func (e *Engine) Sync() Pass {
	var seeds []string
	for _, b := range e.bindings {
		seeds = append(seeds, expand(e.root, b.pattern)...)
	}
	return e.run("", seeds)
}

// Propagate runs one pass starting from the edited path. A call made while a
// pass is already running is ignored and returns an empty Pass.
func (e *Engine) Propagate(path string) Pass {
	path = strings.Join(splitPath(path), ".")
	seeds := []string{path}
	if c, ok := e.root.Collection(path); ok {
		// Structural change: rules scoped to items must reach new members.
		seeds = append(seeds, e.sourcesUnder(c.Path())...)
		seeds = append(seeds, e.sourcesTargeting(c.Path())...)
	}
	return e.run(path, seeds)
}

// Passes reports how many passes have completed.
func (e *Engine) Passes() int { return e.passes }

// Last returns the summary of the most recent pass.
func (e *Engine) Last() Pass { return e.last }

func (e *Engine) run(origin string, seeds []string) Pass {
	if e.running {
		return Pass{}
	}
	e.running = true
	defer func() { e.running = false }()

	pass := Pass{Origin: origin}
	visited := make(map[string]struct{})
	queue := append([]string(nil), seeds...)

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if _, seen := visited[path]; seen {
			continue
		}
		visited[path] = struct{}{}
		pass.Visited = append(pass.Visited, path)

		for _, target := range e.visit(path) {
			pass.Changed = append(pass.Changed, target)
			queue = append(queue, target)
			queue = append(queue, e.sourcesUnder(target)...)
		}
	}

	e.passes++
	e.last = pass
	e.logger.WithFields(logrus.Fields{
		"origin":  origin,
		"visited": len(pass.Visited),
		"changed": pass.Changed,
	}).Debug("dependency pass complete")
	return pass
}

// visit applies every binding matching path and returns the targets whose
// enablement or value changed.
func (e *Engine) visit(path string) []string {
	segments := splitPath(path)
	var changed []string
	for _, b := range e.bindings {
		captures, ok := match(b.pattern, segments)
		if !ok {
			continue
		}
		src := e.scope(path)
		for _, rule := range b.rules {
			on, err := rule.predicate().Eval(src)
			if err != nil {
				e.logger.WithError(err).WithFields(logrus.Fields{
					"source": path,
					"target": rule.Target,
				}).Warn("dependency condition failed; treating as off")
				on = false
			}
			for _, target := range expand(e.root, bind(splitPath(rule.Target), captures)) {
				node, ok := e.root.Node(target)
				if !ok {
					continue
				}
				if rule.apply(node, on) {
					changed = append(changed, target)
				}
			}
		}
	}
	return changed
}

// scope returns the lookup used for conditions fired by path: the record that
// holds the source first, so item-relative names resolve inside the item, then
// the root.
func (e *Engine) scope(path string) condition.Source {
	node, ok := e.root.Node(path)
	if !ok {
		return e.root
	}
	var holder *form.Record
	switch n := node.(type) {
	case *form.Field:
		holder = n.Record()
	case *form.Record:
		holder = n
	case *form.Collection:
		holder = n.Record()
	}
	if holder == nil || holder == e.root {
		return e.root
	}
	return condition.Chain(holder, e.root)
}

// sourcesUnder lists concrete source paths located under prefix.
func (e *Engine) sourcesUnder(prefix string) []string {
	var out []string
	for _, b := range e.bindings {
		for _, path := range expand(e.root, b.pattern) {
			if path != prefix && strings.HasPrefix(path, prefix+".") {
				out = append(out, path)
			}
		}
	}
	return out
}

// sourcesTargeting lists concrete source paths with at least one rule whose
// target lies under prefix.
func (e *Engine) sourcesTargeting(prefix string) []string {
	want := splitPath(prefix)
	var out []string
	for _, b := range e.bindings {
		for _, rule := range b.rules {
			target := splitPath(rule.Target)
			if len(target) <= len(want) {
				continue
			}
			if _, ok := match(target[:len(want)], want); ok {
				out = append(out, expand(e.root, b.pattern)...)
				break
			}
		}
	}
	return out
}
