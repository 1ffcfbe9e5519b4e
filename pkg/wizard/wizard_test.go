package wizard

import (
	"errors"
	"testing"

	"github.com/goliatone/go-formstate/pkg/form"
)

type fakeStage struct {
	valid   bool
	touched bool
	paths   []string
}

func (s *fakeStage) Validate() bool  { return s.valid }
func (s *fakeStage) MarkAllTouched() { s.touched = true }

func (s *fakeStage) Contains(path string) bool {
	for _, p := range s.paths {
		if p == path {
			return true
		}
	}
	return false
}

func newController(t *testing.T, stages ...*fakeStage) *Controller {
	t.Helper()
	steps := make([]Step, 0, len(stages))
	for _, s := range stages {
		steps = append(steps, Step{Stage: s})
	}
	c, err := New(steps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGoToStopsAtFirstInvalidStep(t *testing.T) {
	t.Parallel()

	second := &fakeStage{valid: false}
	c := newController(t, &fakeStage{valid: true}, second, &fakeStage{valid: true}, &fakeStage{valid: true})

	got, err := c.GoTo(4)
	if got != 2 || c.Current() != 2 {
		t.Fatalf("expected wizard on step 2, got %d", got)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != 2 || !errors.Is(err, ErrStepInvalid) {
		t.Fatalf("expected StepError for step 2, got %v", err)
	}
	if !second.touched {
		t.Fatalf("expected invalid step marked touched")
	}

	second.valid = true
	if got, err := c.GoTo(4); err != nil || got != 4 {
		t.Fatalf("expected step 4, got %d (%v)", got, err)
	}
	if got, err := c.GoTo(1); err != nil || got != 1 {
		t.Fatalf("backward jumps must be free, got %d (%v)", got, err)
	}
}

func TestNextAndPrev(t *testing.T) {
	t.Parallel()

	first := &fakeStage{valid: false}
	c := newController(t, first, &fakeStage{valid: true})

	if err := c.NextStrict(); !errors.Is(err, ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	if c.Current() != 1 || !first.touched {
		t.Fatalf("strict gate must keep step 1 and mark it touched")
	}

	if got := c.Next(); got != 2 {
		t.Fatalf("Next must advance without validation, got %d", got)
	}
	if got := c.Next(); got != 2 || !c.IsLast() {
		t.Fatalf("Next must stay on the last step, got %d", got)
	}
	if got := c.Prev(); got != 1 || !c.IsFirst() {
		t.Fatalf("expected step 1, got %d", got)
	}
	if got := c.Prev(); got != 1 {
		t.Fatalf("Prev must stay on step 1, got %d", got)
	}
}

func TestJumpFirstInvalidAndStepFor(t *testing.T) {
	t.Parallel()

	c := newController(t,
		&fakeStage{valid: true, paths: []string{"name"}},
		&fakeStage{valid: false, paths: []string{"limit"}},
		&fakeStage{valid: false},
	)

	if n, ok := c.FirstInvalid(); !ok || n != 2 {
		t.Fatalf("expected first invalid step 2, got %d (%v)", n, ok)
	}
	if n, ok := c.StepFor("limit"); !ok || n != 2 {
		t.Fatalf("expected limit on step 2, got %d (%v)", n, ok)
	}
	if _, ok := c.StepFor("unknown"); ok {
		t.Fatalf("unexpected step for unknown path")
	}
	if err := c.Jump(3); err != nil || c.Current() != 3 {
		t.Fatalf("Jump must ignore validity, got %d (%v)", c.Current(), err)
	}
	if err := c.Jump(9); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("expected ErrStepOutOfRange, got %v", err)
	}
	if c.ValidateAll() {
		t.Fatalf("expected ValidateAll false")
	}
	c.Reset()
	if c.Current() != 1 {
		t.Fatalf("expected Reset to step 1")
	}
}

func TestControllerWithFormViews(t *testing.T) {
	t.Parallel()

	rec := form.NewRecord("department")
	rec.AddField("name", form.WithValidators(form.RequiredValidator("")))
	rec.AddField("code")
	rec.AddField("manager", form.WithValidators(form.RequiredValidator("")))

	c, err := New([]Step{
		{Name: "basics", Stage: form.NewView(rec, "name", "code")},
		{Name: "people", Stage: form.NewView(rec, "manager")},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.GoTo(2); err == nil {
		t.Fatalf("expected gate failure on basics")
	}
	name, _ := rec.Field("name")
	if !name.Touched() {
		t.Fatalf("expected name touched after gate failure")
	}
	name.SetValue("Finance")
	if got, err := c.GoTo(2); err != nil || got != 2 {
		t.Fatalf("expected step 2, got %d (%v)", got, err)
	}
	if n, ok := c.StepFor("manager"); !ok || n != 2 {
		t.Fatalf("expected manager on step 2, got %d", n)
	}
}

func TestNewRequiresSteps(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); !errors.Is(err, ErrNoSteps) {
		t.Fatalf("expected ErrNoSteps, got %v", err)
	}
}
