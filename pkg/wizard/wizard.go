package wizard

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formstate/internal/logging"
)

var (
	// ErrNoSteps is returned when a controller is built without steps.
	ErrNoSteps = errors.New("wizard: at least one step required")
	// ErrStepInvalid reports a step that failed its validity gate.
	ErrStepInvalid = errors.New("wizard: step is invalid")
	// ErrStepOutOfRange reports a navigation target outside 1..N.
	ErrStepOutOfRange = errors.New("wizard: step out of range")
)

// Stage is the validatable content of one step. *form.Record and *form.View
// satisfy it.
type Stage interface {
	Validate() bool
	MarkAllTouched()
}

// Container is implemented by stages that can report whether a field path
// belongs to them.
type Container interface {
	Contains(path string) bool
}

// Step is one page of the wizard.
type Step struct {
	Name  string
	Stage Stage
}

// StepError carries the 1-based step that blocked navigation.
type StepError struct {
	Step int
	Name string
	Err  error
}

func (e *StepError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("step %d (%s): %v", e.Step, e.Name, e.Err)
	}
	return fmt.Sprintf("step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for transition entries.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Controller) {
		if entry != nil {
			c.logger = entry
		}
	}
}

// Controller tracks the current step of one editing session. Steps are
// numbered from 1; the controller starts on step 1 and has no terminal state.
type Controller struct {
	steps   []Step
	current int
	logger  *logrus.Entry
}

// New builds a controller over steps.
func New(steps []Step, options ...Option) (*Controller, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	for i, step := range steps {
		if step.Stage == nil {
			return nil, fmt.Errorf("wizard: step %d (%s) has no stage", i+1, step.Name)
		}
	}
	c := &Controller{
		steps:  append([]Step(nil), steps...),
		logger: logging.Discard(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Current returns the 1-based current step.
func (c *Controller) Current() int { return c.current + 1 }

// Len returns the number of steps.
func (c *Controller) Len() int { return len(c.steps) }

// Step returns the step at the 1-based index n.
func (c *Controller) Step(n int) (Step, bool) {
	if n < 1 || n > len(c.steps) {
		return Step{}, false
	}
	return c.steps[n-1], true
}

// Steps returns every step in order.
func (c *Controller) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// IsFirst reports whether the wizard is on step 1.
func (c *Controller) IsFirst() bool { return c.current == 0 }

// IsLast reports whether the wizard is on step N.
func (c *Controller) IsLast() bool { return c.current == len(c.steps)-1 }

// Next advances one step without validation. It stays on the last step.
func (c *Controller) Next() int {
	if c.current < len(c.steps)-1 {
		c.move(c.current + 1)
	}
	return c.Current()
}

// NextStrict advances one step only when the current step is valid. On
// failure every field of the step is marked touched and a *StepError wrapping
// ErrStepInvalid is returned.
func (c *Controller) NextStrict() error {
	if err := c.gate(c.current); err != nil {
		return err
	}
	c.Next()
	return nil
}

// Prev retreats one step. It is never blocked.
func (c *Controller) Prev() int {
	if c.current > 0 {
		c.move(c.current - 1)
	}
	return c.Current()
}

// GoTo navigates to the 1-based target. Backward jumps are free. Forward
// jumps validate each step on the way and stop on the first invalid one,
// returning its *StepError. The resulting current step is always returned.
func (c *Controller) GoTo(target int) (int, error) {
	if target < 1 || target > len(c.steps) {
		return c.Current(), fmt.Errorf("%w: %d not in 1..%d", ErrStepOutOfRange, target, len(c.steps))
	}
	idx := target - 1
	if idx <= c.current {
		c.move(idx)
		return c.Current(), nil
	}
	for c.current < idx {
		if err := c.gate(c.current); err != nil {
			return c.Current(), err
		}
		c.move(c.current + 1)
	}
	return c.Current(), nil
}

// Jump moves to the 1-based target without any validation. Used to surface
// the step owning an error.
func (c *Controller) Jump(target int) error {
	if target < 1 || target > len(c.steps) {
		return fmt.Errorf("%w: %d not in 1..%d", ErrStepOutOfRange, target, len(c.steps))
	}
	c.move(target - 1)
	return nil
}

// Reset returns to step 1.
func (c *Controller) Reset() {
	c.move(0)
}

// FirstInvalid validates every step and returns the first invalid one.
func (c *Controller) FirstInvalid() (int, bool) {
	for i, step := range c.steps {
		if !step.Stage.Validate() {
			return i + 1, true
		}
	}
	return 0, false
}

// ValidateAll validates every step, marking the fields of invalid steps
// touched, and reports whether all are valid.
func (c *Controller) ValidateAll() bool {
	valid := true
	for _, step := range c.steps {
		if !step.Stage.Validate() {
			step.Stage.MarkAllTouched()
			valid = false
		}
	}
	return valid
}

// StepFor returns the first step whose stage contains path.
func (c *Controller) StepFor(path string) (int, bool) {
	for i, step := range c.steps {
		container, ok := step.Stage.(Container)
		if ok && container.Contains(path) {
			return i + 1, true
		}
	}
	return 0, false
}

func (c *Controller) gate(idx int) error {
	step := c.steps[idx]
	if step.Stage.Validate() {
		return nil
	}
	step.Stage.MarkAllTouched()
	c.logger.WithFields(logrus.Fields{
		"step": idx + 1,
		"name": step.Name,
	}).Debug("wizard step gate failed")
	return &StepError{Step: idx + 1, Name: step.Name, Err: ErrStepInvalid}
}

func (c *Controller) move(idx int) {
	if idx == c.current {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"from": c.current + 1,
		"to":   idx + 1,
	}).Debug("wizard transition")
	c.current = idx
}
