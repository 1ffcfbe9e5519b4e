package schema_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formstate/pkg/dependency"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/payload"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/snapshot"
	"github.com/goliatone/go-formstate/pkg/validators"
)

func loadForms(t *testing.T) *schema.Store {
	t.Helper()
	store, err := schema.LoadFS(os.DirFS("testdata/forms"))
	require.NoError(t, err)
	return store
}

func build(t *testing.T, id string) (*schema.Blueprint, *dependency.Engine) {
	t.Helper()
	bp, err := loadForms(t).Build(id)
	require.NoError(t, err)

	engine := dependency.New(bp.Record)
	require.NoError(t, engine.Bind(bp.Bindings...))
	engine.Start()
	t.Cleanup(engine.Stop)
	return bp, engine
}

func field(t *testing.T, rec *form.Record, path string) *form.Field {
	t.Helper()
	f, ok := rec.Field(path)
	require.True(t, ok, "field %s", path)
	return f
}

func TestLoadFSMixedFormats(t *testing.T) {
	t.Parallel()

	store := loadForms(t)
	assert.Equal(t, []string{"leave_type", "work_schedule", "workflow"}, store.IDs())

	def, ok := store.Definition("workflow")
	require.True(t, ok)
	assert.Equal(t, "workflow.json", def.Source)
	assert.Equal(t, "Approval workflow", def.Title)

	empty, err := schema.LoadFS(nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestLeaveTypeBlueprint(t *testing.T) {
	t.Parallel()

	bp, _ := build(t, "leave_type")
	rec := bp.Record
	require.Len(t, bp.Steps, 2)
	assert.Equal(t, "allowance", bp.Steps[1].Name)

	days := field(t, rec, "carryover_days")
	assert.False(t, days.Enabled(), "carryover starts off")
	assert.Equal(t, form.FieldTypeInteger, days.Type())

	field(t, rec, "max_days").SetValue(10)
	field(t, rec, "allow_carryover").SetValue(true)
	assert.True(t, days.Enabled())
	assert.True(t, days.HasValidator(form.KindRequired))

	days.SetValue(12)
	assert.Equal(t, "Carryover cannot exceed the yearly allowance", days.Errors()[validators.KindExceedsLimit])

	field(t, rec, "allow_carryover").SetValue(false)
	assert.Empty(t, days.Errors())
	assert.Equal(t, 0, days.Value())

	code := field(t, rec, "code")
	code.SetValue("abc")
	assert.Equal(t, "Use 2-6 capital letters", code.Errors()[form.KindPattern])
	email := field(t, rec, "contact_email")
	email.SetValue("nope")
	assert.Equal(t, "Enter a valid email address", email.Errors()["email"])

	req, err := payload.Build(rec, nil, bp.Payload...)
	require.NoError(t, err)
	assert.Equal(t, 1, req.Data["version"])
}

func TestWorkScheduleItemValidators(t *testing.T) {
	t.Parallel()

	bp, _ := build(t, "work_schedule")
	rec := bp.Record
	shifts, ok := rec.Collection("shifts")
	require.True(t, ok)
	assert.False(t, shifts.Enabled(), "ungoverned collection starts disabled")
	assert.Equal(t, 1, shifts.Len(), "collections seed a placeholder")

	field(t, rec, "has_shifts").SetValue(true)
	require.True(t, shifts.Enabled())
	assert.True(t, field(t, rec, "shifts.0.day").HasValidator(form.KindRequired))

	field(t, rec, "shifts.0.start_time").SetValue("09:00")
	field(t, rec, "shifts.0.end_time").SetValue("17:00")
	hours := field(t, rec, "shifts.0.hours")
	hours.SetValue("8.05")
	assert.False(t, hours.Errors().Has(validators.KindDurationShortfall), "within tolerance")
	hours.SetValue("9")
	assert.Equal(t, "Declared hours exceed the shift span", hours.Errors()[validators.KindDurationShortfall])

	item := shifts.AddItem(map[string]any{"start_time": "22:00", "end_time": "06:00", "hours": 8})
	rec.Validate()
	hoursLate, _ := item.Field("hours")
	assert.True(t, hoursLate.Valid(), "night shifts wrap past midnight")
}

func TestWorkflowItemScopedRules(t *testing.T) {
	t.Parallel()

	bp, _ := build(t, "workflow")
	rec := bp.Record

	field(t, rec, "has_steps").SetValue(true)
	approver := field(t, rec, "steps.0.approver_id")
	assert.False(t, approver.Enabled())

	field(t, rec, "steps.0.kind").SetValue("user")
	assert.True(t, approver.Enabled())
	rec.Validate()
	assert.Equal(t, "Pick an approver", approver.Errors()[form.KindRequired])

	steps, _ := rec.Collection("steps")
	second := steps.AddItem(map[string]any{"kind": "role"})
	secondApprover, _ := second.Field("approver_id")
	assert.False(t, secondApprover.Enabled(), "rules bind to the edited item only")

	field(t, rec, "window.starts_on").SetValue("2026-03-10")
	ends := field(t, rec, "window.ends_on")
	ends.SetValue("2026-03-01")
	assert.Equal(t, "End must follow start", ends.Errors()[validators.KindRangeOrder])

	field(t, rec, "name").SetValue("<i>Approvals</i>")
	field(t, rec, "internal_note").SetValue("kept")
	req, err := payload.Build(rec, snapshot.Diff(rec, snapshot.Take(rec)), bp.Payload...)
	require.NoError(t, err)
	assert.Equal(t, "Approvals", req.Data["name"])
	assert.Equal(t, "kept", req.Data["internal_note"])
}

func TestBuildReturnsFreshRecords(t *testing.T) {
	t.Parallel()

	store := loadForms(t)
	first, err := store.Build("leave_type")
	require.NoError(t, err)
	second, err := store.Build("leave_type")
	require.NoError(t, err)
	assert.NotSame(t, first.Record, second.Record)

	_, err = store.Build("missing")
	assert.ErrorIs(t, err, schema.ErrUnknownForm)
}

func TestDuplicateFormAcrossFiles(t *testing.T) {
	t.Parallel()

	_, err := schema.LoadFS(os.DirFS("testdata/invalid"))
	var defErr *schema.DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.ErrorIs(t, err, schema.ErrDuplicateForm)
	assert.Equal(t, "department", defErr.Form)
	assert.Equal(t, "duplicate_b.yaml", defErr.Source)
}

func TestDefinitionErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want error
		path string
	}{
		{
			name: "empty document",
			doc:  "  ",
			want: schema.ErrEmptyDocument,
		},
		{
			name: "unknown type",
			doc:  "forms:\n  f:\n    fields:\n      - {key: age, type: decimal}\n",
			want: schema.ErrUnknownType,
			path: "age",
		},
		{
			name: "unknown validator",
			doc:  "forms:\n  f:\n    fields:\n      - key: age\n        validators: [{kind: even}]\n",
			want: schema.ErrUnknownValidator,
			path: "age",
		},
		{
			name: "duplicate key",
			doc:  "forms:\n  f:\n    fields:\n      - key: age\n      - key: age\n",
			want: schema.ErrDuplicateKey,
			path: "age",
		},
		{
			name: "bad condition",
			doc:  "forms:\n  f:\n    fields: [{key: a}, {key: b}]\n    rules:\n      - {source: a, target: b, when: 'a =='}\n",
			want: schema.ErrInvalidCondition,
			path: "a",
		},
		{
			name: "unknown rule target",
			doc:  "forms:\n  f:\n    fields: [{key: a}]\n    rules:\n      - {source: a, target: b, toggle: true}\n",
			want: schema.ErrUnknownPath,
			path: "b",
		},
		{
			name: "self target",
			doc:  "forms:\n  f:\n    fields: [{key: a}]\n    rules:\n      - {source: a, target: a, toggle: true}\n",
			want: schema.ErrInvalidRule,
		},
		{
			name: "unknown step path",
			doc:  "forms:\n  f:\n    fields: [{key: a}]\n    steps:\n      - {name: one, fields: [a, z]}\n",
			want: schema.ErrUnknownPath,
			path: "z",
		},
		{
			name: "group validator path",
			doc:  "forms:\n  f:\n    fields: [{key: a}]\n    validators:\n      - {kind: rangeOrder, from: a, to: missing}\n",
			want: schema.ErrUnknownPath,
			path: "missing",
		},
		{
			name: "required item field",
			doc:  "forms:\n  f:\n    collections:\n      - {name: rows, required: [x], fields: [{key: y}]}\n",
			want: schema.ErrUnknownPath,
			path: "rows.*.x",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store, err := schema.Parse(schema.SourceInline(tc.name), []byte(tc.doc))
			if err == nil {
				_, err = store.Build("f")
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var defErr *schema.DefinitionError
			require.ErrorAs(t, err, &defErr)
			assert.Equal(t, tc.name, defErr.Source)
			assert.Equal(t, tc.path, defErr.Path)
		})
	}
}
