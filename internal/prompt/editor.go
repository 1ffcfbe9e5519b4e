package prompt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/session"
	"github.com/goliatone/go-formstate/pkg/wizard"
)

// DefaultMaxAttempts bounds how often one step is re-prompted after failing
// its gate.
const DefaultMaxAttempts = 3

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the editor logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(e *Editor) {
		if entry != nil {
			e.logger = entry
		}
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(e *Editor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// Editor walks a session's wizard interactively: one prompt per enabled
// field, repeat prompts for collection items, and a review menu at the end.
type Editor struct {
	driver      Driver
	logger      *logrus.Entry
	maxAttempts int
}

// NewEditor returns an editor prompting through driver.
func NewEditor(driver Driver, options ...Option) *Editor {
	e := &Editor{driver: driver, logger: logging.Discard(), maxAttempts: DefaultMaxAttempts}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Run edits s from step 1 until the user finishes on the review menu. A step
// that stays invalid after the configured attempts ends the run with its
// *wizard.StepError.
func (e *Editor) Run(ctx context.Context, s *session.Session) error {
	w := s.Wizard()
	w.Reset()
	attempts := 0
	for {
		n := w.Current()
		step, _ := w.Step(n)
		if err := e.Step(ctx, s, n, step); err != nil {
			return err
		}

		last := w.IsLast()
		if err := w.NextStrict(); err != nil {
			attempts++
			e.logger.WithFields(logrus.Fields{"step": n, "attempt": attempts}).Debug("step rejected")
			if reportErr := e.report(ctx, s, step); reportErr != nil {
				return reportErr
			}
			if attempts >= e.maxAttempts {
				return err
			}
			continue
		}
		attempts = 0
		if !last {
			continue
		}

		target, err := e.review(ctx, w)
		if err != nil {
			return err
		}
		if target == 0 {
			return nil
		}
		if err := w.Jump(target); err != nil {
			return err
		}
	}
}

// Step prompts every enabled member of step n.
func (e *Editor) Step(ctx context.Context, s *session.Session, n int, step wizard.Step) error {
	title := fmt.Sprintf("Step %d/%d", n, s.Wizard().Len())
	if step.Name != "" {
		title += ": " + step.Name
	}
	if err := e.driver.Info(ctx, title); err != nil {
		return err
	}
	for _, node := range stageNodes(step.Stage) {
		if err := e.node(ctx, node); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editor) node(ctx context.Context, node form.Node) error {
	switch n := node.(type) {
	case *form.Field:
		return e.field(ctx, n)
	case *form.Record:
		var members []form.Node
		n.Each(func(_ string, child form.Node) { members = append(members, child) })
		for _, child := range members {
			if err := e.node(ctx, child); err != nil {
				return err
			}
		}
	case *form.Collection:
		return e.collection(ctx, n)
	}
	return nil
}

func (e *Editor) field(ctx context.Context, f *form.Field) error {
	if !f.Enabled() {
		return nil
	}
	if f.Type() == form.FieldTypeBoolean {
		answer, err := e.driver.Confirm(ctx, ConfirmConfig{
			Message: f.Path(),
			Default: form.Truthy(f.Value()),
		})
		if err != nil {
			return err
		}
		if answer != form.Truthy(f.Value()) {
			f.SetValue(answer)
		}
		return nil
	}

	current := ""
	if !form.IsBlank(f.Value()) {
		current = fmt.Sprint(f.Value())
	}
	answer, err := e.driver.Input(ctx, InputConfig{
		Message: f.Path(),
		Default: current,
		Help:    string(f.Type()),
	})
	if err != nil {
		return err
	}
	if answer = strings.TrimSpace(answer); answer != current {
		f.SetValue(answer)
	}
	return nil
}

func (e *Editor) collection(ctx context.Context, c *form.Collection) error {
	if !c.Enabled() {
		return nil
	}
	for i, item := range c.Items() {
		if err := e.driver.Info(ctx, fmt.Sprintf("%s #%d", c.Path(), i+1)); err != nil {
			return err
		}
		if err := e.node(ctx, item); err != nil {
			return err
		}
	}
	for {
		more, err := e.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add another %s item?", c.Name())})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		item := c.AddItem(nil)
		if err := e.driver.Info(ctx, fmt.Sprintf("%s #%d", c.Path(), c.Len())); err != nil {
			return err
		}
		if err := e.node(ctx, item); err != nil {
			return err
		}
	}
}

func (e *Editor) report(ctx context.Context, s *session.Session, step wizard.Step) error {
	container, _ := step.Stage.(wizard.Container)
	var lines []string
	s.Record().Walk(func(f *form.Field) {
		if f.Valid() || (container != nil && !container.Contains(f.Path())) {
			return
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", f.Path(), describe(f.Errors())))
	})
	sort.Strings(lines)
	if err := e.driver.Info(ctx, "Please fix:"); err != nil {
		return err
	}
	for _, line := range lines {
		if err := e.driver.Info(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editor) review(ctx context.Context, w *wizard.Controller) (int, error) {
	options := []string{"Finish"}
	for i, step := range w.Steps() {
		options = append(options, fmt.Sprintf("Edit step %d: %s", i+1, step.Name))
	}
	choice, err := e.driver.Select(ctx, SelectConfig{Message: "Review", Options: options})
	if err != nil {
		return 0, err
	}
	if choice < 0 || choice >= len(options) {
		return 0, nil
	}
	return choice, nil
}

func describe(errs form.ViolationSet) string {
	if msg := errs.Message(); msg != "" {
		return msg
	}
	return strings.Join(errs.Kinds(), ", ")
}

func stageNodes(stage wizard.Stage) []form.Node {
	switch st := stage.(type) {
	case *form.View:
		return st.Nodes()
	case *form.Record:
		var out []form.Node
		st.Each(func(_ string, node form.Node) { out = append(out, node) })
		return out
	default:
		return nil
	}
}
