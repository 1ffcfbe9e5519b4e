package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

type scriptedDriver struct {
	inputs   []string
	confirms []bool
	selects  []int
}

func (d *scriptedDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", prompt.ErrAborted
	}
	next := d.inputs[0]
	d.inputs = d.inputs[1:]
	return next, nil
}

func (d *scriptedDriver) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) {
	if len(d.confirms) == 0 {
		return false, prompt.ErrAborted
	}
	next := d.confirms[0]
	d.confirms = d.confirms[1:]
	return next, nil
}

func (d *scriptedDriver) Select(context.Context, prompt.SelectConfig) (int, error) {
	if len(d.selects) == 0 {
		return 0, prompt.ErrAborted
	}
	next := d.selects[0]
	d.selects = d.selects[1:]
	return next, nil
}

func (d *scriptedDriver) Info(context.Context, string) error { return nil }

func newTestApp(driver prompt.Driver) (*App, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	app := &App{
		Out:         out,
		Err:         errOut,
		Environment: map[string]string{"FORMSTATE_FORMS_DIR": testsupport.FormsDir()},
		Driver: func(io.Writer) prompt.Driver {
			return driver
		},
	}
	return app, out, errOut
}

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

func TestValidateReportsViolations(t *testing.T) {
	t.Parallel()

	app, out, errOut := newTestApp(nil)
	err := Execute(context.Background(), app, []string{
		"validate", "--form", "leave_type", "--values", testdata("leave_invalid.json"), "--json",
	})
	require.ErrorIs(t, err, ErrInvalidValues)
	assert.Contains(t, errOut.String(), "4 field(s)")

	var report validationReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.Valid)
	assert.Equal(t, []fieldReport{
		{Path: "name", Step: 1, Kinds: []string{"required"}},
		{Path: "code", Step: 1, Kinds: []string{"pattern"}, Message: "Use 2-6 capital letters"},
		{Path: "carryover_days", Step: 2, Kinds: []string{"exceedsLimit"}, Message: "Carryover cannot exceed the yearly allowance"},
		{Path: "contact_email", Step: 1, Kinds: []string{"email"}, Message: "Enter a valid email address"},
	}, clearRequiredMessage(report.Fields))
}

// clearRequiredMessage drops the default required message so the assertion
// does not pin its wording.
func clearRequiredMessage(fields []fieldReport) []fieldReport {
	for i := range fields {
		if len(fields[i].Kinds) == 1 && fields[i].Kinds[0] == "required" {
			fields[i].Message = ""
		}
	}
	return fields
}

func TestValidateAcceptsValidValues(t *testing.T) {
	t.Parallel()

	app, out, _ := newTestApp(nil)
	err := Execute(context.Background(), app, []string{
		"validate", "--form", "leave_type", "--values", testdata("leave_valid.json"),
	})
	require.NoError(t, err)
	assert.Equal(t, "leave_type: valid\n", out.String())
}

func TestDiffPrintsUpdateRequest(t *testing.T) {
	t.Parallel()

	app, out, _ := newTestApp(nil)
	err := Execute(context.Background(), app, []string{
		"diff", "--form", "workflow", "--id", "42",
		"--before", testdata("workflow_before.json"),
		"--after", testdata("workflow_after.json"),
	})
	require.NoError(t, err)

	golden := testdata("workflow_diff.golden.json")
	if testsupport.WriteMaybeGolden(t, golden, out.Bytes()) {
		return
	}
	if diff := testsupport.CompareJSON(t, testsupport.MustReadGolden(t, golden), out.Bytes()); diff != "" {
		t.Fatalf("diff output mismatch (-want +got):\n%s", diff)
	}
}

func TestEditSubmitsLoadedRecord(t *testing.T) {
	t.Parallel()

	driver := &scriptedDriver{
		inputs:   []string{"Annual Leave", "AN", "", "25"},
		confirms: []bool{false},
		selects:  []int{0},
	}
	app, out, _ := newTestApp(driver)
	err := Execute(context.Background(), app, []string{
		"edit", "--form", "leave_type", "--records", testdata("records"), "--id", "7",
	})
	require.NoError(t, err)

	var req struct {
		Data map[string]any `json:"request_data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &req))
	assert.Equal(t, float64(7), req.Data["id"])
	assert.Equal(t, "Annual Leave", req.Data["name"])
	assert.Equal(t, float64(25), req.Data["max_days"])
	assert.Equal(t, float64(1), req.Data["version"])
	assert.NotContains(t, req.Data, "carryover_days")
}

func TestEditUnknownRecord(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(&scriptedDriver{})
	err := Execute(context.Background(), app, []string{
		"edit", "--form", "leave_type", "--records", testdata("records"), "--id", "99",
	})
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestEditAborted(t *testing.T) {
	t.Parallel()

	app, out, _ := newTestApp(&scriptedDriver{})
	err := Execute(context.Background(), app, []string{"edit", "--form", "leave_type"})
	require.ErrorIs(t, err, prompt.ErrAborted)
	assert.Empty(t, out.String())
}

func TestListForms(t *testing.T) {
	t.Parallel()

	app, out, _ := newTestApp(nil)
	require.NoError(t, Execute(context.Background(), app, []string{"list"}))
	assert.Contains(t, out.String(), "leave_type\tLeave type\t")
	assert.Contains(t, out.String(), "workflow\tApproval workflow\t")
	assert.Contains(t, out.String(), "work_schedule\t")
}

func TestMissingFormsDir(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(nil)
	app.Environment = map[string]string{}
	err := Execute(context.Background(), app, []string{"validate", "--form", "leave_type", "--values", testdata("leave_valid.json")})
	require.ErrorIs(t, err, ErrNoFormsDir)
}

func TestUnknownForm(t *testing.T) {
	t.Parallel()

	app, _, errOut := newTestApp(nil)
	err := Execute(context.Background(), app, []string{"validate", "--values", testdata("leave_valid.json")})
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "--form required")
}
