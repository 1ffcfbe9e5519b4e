package session

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/dependency"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/payload"
	"github.com/goliatone/go-formstate/pkg/snapshot"
	"github.com/goliatone/go-formstate/pkg/wizard"
)

// DefaultGenericMessage is reported when a submit fails without a structured
// issue the session can map to a field.
const DefaultGenericMessage = "The request could not be completed. Please try again."

// DefaultClientMessage is the summary reported when client-side validation
// blocks a submit.
const DefaultClientMessage = "Please correct the highlighted fields before saving."

// DataSource is the data-access collaborator. Load returns the persisted
// values of record id; Submit sends the request and returns the backend
// result.
type DataSource interface {
	Load(ctx context.Context, id int64) (map[string]any, error)
	Submit(ctx context.Context, req payload.Request) (any, error)
}

// Option configures a Session.
type Option func(*Session)

// WithDataSource sets the collaborator used by Load and Submit.
func WithDataSource(source DataSource) Option {
	return func(s *Session) { s.source = source }
}

// WithBindings registers dependency bindings on the session engine.
func WithBindings(bindings ...dependency.Binding) Option {
	return func(s *Session) { s.bindings = append(s.bindings, bindings...) }
}

// WithSteps orders the record into wizard steps. Without steps the whole
// record is a single step.
func WithSteps(steps ...wizard.Step) Option {
	return func(s *Session) { s.steps = append(s.steps, steps...) }
}

// WithPayloadOptions appends options passed to every payload build.
func WithPayloadOptions(options ...payload.Option) Option {
	return func(s *Session) { s.payloadOptions = append(s.payloadOptions, options...) }
}

// WithLogger sets the base logger; the session adds its session_id.
func WithLogger(entry *logrus.Entry) Option {
	return func(s *Session) {
		s.logger = logging.Or(entry)
	}
}

// WithGenericMessage overrides the fallback message for unmapped remote
// failures.
func WithGenericMessage(message string) Option {
	return func(s *Session) {
		if message = strings.TrimSpace(message); message != "" {
			s.genericMessage = message
		}
	}
}

// Session owns one editing flow over a record: dependency propagation, step
// navigation, the baseline snapshot and submission. A Session is not safe for
// concurrent edits; only Submit is guarded.
type Session struct {
	id             uuid.UUID
	record         *form.Record
	engine         *dependency.Engine
	wizard         *wizard.Controller
	snapshot       *snapshot.Snapshot
	source         DataSource
	bindings       []dependency.Binding
	steps          []wizard.Step
	payloadOptions []payload.Option
	genericMessage string
	logger         *logrus.Entry
	unsubscribe    func()
	submitting     atomic.Bool

	originID  int64
	hasOrigin bool
}

// New builds a session over rec, binds the dependency rules, runs an initial
// propagation pass and takes the create-flow baseline snapshot.
func New(rec *form.Record, options ...Option) (*Session, error) {
	if rec == nil {
		return nil, errors.New("session: record required")
	}
	s := &Session{
		id:             uuid.New(),
		record:         rec,
		logger:         logging.Discard(),
		genericMessage: DefaultGenericMessage,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.WithField("session_id", s.id.String())

	s.engine = dependency.New(rec, dependency.WithLogger(s.logger))
	if err := s.engine.Bind(s.bindings...); err != nil {
		return nil, errors.Wrap(err, "bind rules")
	}

	steps := s.steps
	if len(steps) == 0 {
		steps = []wizard.Step{{Name: rec.Name(), Stage: rec}}
	}
	controller, err := wizard.New(steps, wizard.WithLogger(s.logger))
	if err != nil {
		return nil, errors.Wrap(err, "build wizard")
	}
	s.wizard = controller

	s.unsubscribe = rec.Subscribe(func(ev form.ChangeEvent) {
		if ev.Field != nil {
			ev.Field.ClearViolation(form.KindRemote)
		}
	})
	s.engine.Start()
	rec.Validate()
	s.snapshot = snapshot.Take(rec)
	return s, nil
}

// ID returns the session identifier used in log entries.
func (s *Session) ID() string { return s.id.String() }

func (s *Session) Record() *form.Record         { return s.record }
func (s *Session) Engine() *dependency.Engine   { return s.engine }
func (s *Session) Wizard() *wizard.Controller   { return s.wizard }
func (s *Session) Snapshot() *snapshot.Snapshot { return s.snapshot }
func (s *Session) Logger() *logrus.Entry        { return s.logger }

// Submitting reports whether a submit is in flight.
func (s *Session) Submitting() bool { return s.submitting.Load() }

// OriginID returns the id passed to Load; ok is false in the create flow.
func (s *Session) OriginID() (int64, bool) { return s.originID, s.hasOrigin }

// PayloadOptions returns a copy of the options applied to every build.
func (s *Session) PayloadOptions() []payload.Option {
	return append([]payload.Option(nil), s.payloadOptions...)
}

// Close detaches the session from its record.
func (s *Session) Close() {
	s.engine.Stop()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Load fetches record id, writes it into the record without raising change
// events, re-runs propagation and takes the update-flow baseline snapshot.
func (s *Session) Load(ctx context.Context, id int64) error {
	if s.source == nil {
		return ErrNoDataSource
	}
	values, err := s.source.Load(ctx, id)
	if err != nil {
		s.log(ctx).WithField("record_id", id).WithError(err).Warn("session load failed")
		return errors.Wrapf(err, "load record %d", id)
	}
	return s.Hydrate(id, values)
}

// Hydrate installs values as the persisted state of record id, the same way
// Load does, for callers that fetch data themselves.
func (s *Session) Hydrate(id int64, values map[string]any) error {
	s.record.Patch(values, form.Silent(), form.Pristine())
	s.engine.Sync()
	s.record.MarkPristine()
	s.record.Validate()
	s.snapshot = snapshot.Take(s.record)
	s.wizard.Reset()
	s.originID = id
	s.hasOrigin = true

	s.logger.WithFields(logrus.Fields{
		"record_id":   id,
		"collections": len(s.snapshot.Paths()),
	}).Debug("session loaded")
	return nil
}

// SetValue edits the field at path, raising propagation.
func (s *Session) SetValue(path string, value any) error {
	f, ok := s.record.Field(path)
	if !ok {
		return errors.Wrapf(ErrUnknownPath, "field %q", path)
	}
	f.SetValue(value)
	return nil
}

// AddItem appends an item to the collection at path.
func (s *Session) AddItem(path string, seed map[string]any) (*form.Record, error) {
	c, ok := s.record.Collection(path)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPath, "collection %q", path)
	}
	return c.AddItem(seed), nil
}

// RemoveItem removes the item at index from the collection at path.
func (s *Session) RemoveItem(path string, index int) error {
	c, ok := s.record.Collection(path)
	if !ok {
		return errors.Wrapf(ErrUnknownPath, "collection %q", path)
	}
	if err := c.RemoveItem(index); err != nil {
		return errors.Wrapf(err, "remove %s[%d]", path, index)
	}
	return nil
}

// Dirty reports whether the record differs from the baseline snapshot.
func (s *Session) Dirty() bool {
	return snapshot.IsDirty(s.record, s.snapshot)
}

// CanSave reports whether a submit may start: nothing is in flight and, in
// the update flow, something changed since load.
func (s *Session) CanSave() bool {
	if s.submitting.Load() {
		return false
	}
	if s.hasOrigin {
		return s.Dirty()
	}
	return true
}

// Changes diffs every collection against the baseline snapshot.
func (s *Session) Changes() []snapshot.ChangeSet {
	return snapshot.Diff(s.record, s.snapshot, snapshot.WithLogger(s.logger))
}

// Payload builds the request the next submit would send. Collection change
// sets are only spliced in the update flow.
func (s *Session) Payload() (payload.Request, error) {
	options := s.PayloadOptions()
	var changes []snapshot.ChangeSet
	if s.hasOrigin {
		options = append(options, payload.WithID(s.originID))
		changes = s.Changes()
	}
	return payload.Build(s.record, changes, options...)
}

// Submit validates every step, builds the request and hands it to the data
// source. Client-side failures move the wizard to the first invalid step;
// remote failures move it to the step of the first reported issue. Either
// way a *Rejection is returned and nothing is retried.
func (s *Session) Submit(ctx context.Context) (any, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInFlight
	}
	defer s.submitting.Store(false)

	if s.source == nil {
		return nil, ErrNoDataSource
	}

	s.record.MarkAllTouched()
	if !s.wizard.ValidateAll() || !s.record.Validate() {
		step, _ := s.wizard.FirstInvalid()
		if step > 0 {
			_ = s.wizard.Jump(step)
		}
		s.log(ctx).WithField("step", step).Warn("submit blocked by validation")
		return nil, &Rejection{Kind: RejectionClient, Step: step, Message: DefaultClientMessage}
	}

	req, err := s.Payload()
	if err != nil {
		return nil, errors.Wrap(err, "build payload")
	}

	result, err := s.source.Submit(ctx, req)
	if err != nil {
		return nil, s.reject(ctx, err)
	}

	s.snapshot = snapshot.Take(s.record)
	s.record.MarkPristine()
	s.log(ctx).WithField("update", s.hasOrigin).Info("submit accepted")
	return result, nil
}

// log prefers a logger carried by ctx, tagged with the session id, over the
// session's own.
func (s *Session) log(ctx context.Context) *logrus.Entry {
	if entry := logging.FromContext(ctx); entry != nil {
		return entry.WithField("session_id", s.ID())
	}
	return s.logger
}

func (s *Session) reject(ctx context.Context, err error) error {
	rejection := &Rejection{
		Kind:    RejectionRemote,
		Message: s.genericMessage,
		Err:     errors.Wrap(err, "submit"),
	}

	var remote *RemoteValidationError
	if errors.As(err, &remote) && len(remote.Issues) > 0 {
		issue := remote.Issues[0]
		if msg := strings.TrimSpace(issue.Message); msg != "" {
			rejection.Message = msg
		}
		if path, ok := s.mapField(issue.Field); ok {
			rejection.Field = path
			if f, found := s.record.Field(path); found {
				f.SetViolation(form.KindRemote, rejection.Message)
			}
		}
		rejection.Step = s.stepFor(issue.Step, rejection.Field)
		if rejection.Step > 0 {
			_ = s.wizard.Jump(rejection.Step)
		}
	}

	s.log(ctx).WithFields(logrus.Fields{
		"step":  rejection.Step,
		"field": rejection.Field,
	}).WithError(err).Warn("submit rejected")
	return rejection
}

func (s *Session) stepFor(explicit int, field string) int {
	if explicit >= 1 && explicit <= s.wizard.Len() {
		return explicit
	}
	if field == "" {
		return 0
	}
	if step, ok := s.wizard.StepFor(field); ok {
		return step
	}
	return 0
}

func (s *Session) mapField(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	paths := make(map[string]struct{})
	s.record.Walk(func(f *form.Field) {
		paths[f.Path()] = struct{}{}
	})
	return MapPath(raw, paths)
}

// ApplyErrorPayload maps a backend error payload onto the record, attaching
// the first message of each mapped field as a remote violation. The mapping
// is returned so callers can surface form-level messages.
func (s *Session) ApplyErrorPayload(errs map[string][]string) ErrorMapping {
	mapping := MapErrorPayload(s.record, errs)
	for path, messages := range mapping.Fields {
		if f, ok := s.record.Field(path); ok && len(messages) > 0 {
			f.SetViolation(form.KindRemote, messages[0])
		}
	}
	return mapping
}

// Reset restores the baseline snapshot, re-runs propagation, drops remote
// violations and returns the wizard to step 1.
func (s *Session) Reset() {
	s.snapshot.Restore(s.record)
	s.engine.Sync()
	s.record.Walk(func(f *form.Field) {
		f.ClearViolation(form.KindRemote)
	})
	s.record.MarkPristine()
	s.record.Validate()
	s.wizard.Reset()
	s.logger.Debug("session reset")
}
