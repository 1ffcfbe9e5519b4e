package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/session"
	"github.com/goliatone/go-formstate/pkg/testsupport"
	"github.com/goliatone/go-formstate/pkg/wizard"
)

type stubDriver struct {
	inputs     []string
	confirms   []bool
	selects    []int
	infos      []string
	messages   []string
	inputPos   int
	confirmPos int
	selectPos  int
	inputErr   error
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.inputErr != nil {
		return "", s.inputErr
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted for " + cfg.Message)
	}
	s.messages = append(s.messages, cfg.Message)
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirms) {
		return false, errors.New("no confirm scripted for " + cfg.Message)
	}
	s.messages = append(s.messages, cfg.Message)
	val := s.confirms[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selects) {
		return -1, errors.New("no select scripted")
	}
	val := s.selects[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

func newSession(t *testing.T, id string) *session.Session {
	t.Helper()
	bp := testsupport.MustBuild(t, id)
	s, err := session.New(bp.Record,
		session.WithBindings(bp.Bindings...),
		session.WithSteps(bp.Steps...),
		session.WithPayloadOptions(bp.Payload...),
	)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestEditorSkipsDisabledFieldsUntilEnabled(t *testing.T) {
	t.Parallel()

	s := newSession(t, "leave_type")
	driver := &stubDriver{
		inputs:   []string{"Annual", "AN", "hr@example.com", "20", "5", "2026-03-31"},
		confirms: []bool{true},
		selects:  []int{0},
	}
	if err := NewEditor(driver).Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"name", "code", "contact_email",
		"max_days", "allow_carryover", "carryover_days", "carryover_expiry",
	}
	if diff := cmp.Diff(want, driver.messages); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}

	req, err := s.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if got := req.Data["carryover_days"]; got != json.Number("5") {
		t.Fatalf("expected carryover_days 5, got %#v", got)
	}
}

func TestEditorRepromptsInvalidStep(t *testing.T) {
	t.Parallel()

	s := newSession(t, "leave_type")
	driver := &stubDriver{
		inputs: []string{
			"", "AN", "",
			"Annual", "AN", "",
			"20",
		},
		confirms: []bool{false},
		selects:  []int{0},
	}
	if err := NewEditor(driver).Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	found := false
	for _, info := range driver.infos {
		if strings.HasPrefix(info, "  name:") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected name violation reported, got %v", driver.infos)
	}
}

func TestEditorGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	s := newSession(t, "leave_type")
	driver := &stubDriver{inputs: []string{"", "", "", "", "", ""}}
	err := NewEditor(driver, WithMaxAttempts(2)).Run(context.Background(), s)

	var stepErr *wizard.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != 1 {
		t.Fatalf("expected StepError on step 1, got %v", err)
	}
}

func TestEditorCollectionItems(t *testing.T) {
	t.Parallel()

	s := newSession(t, "workflow")
	driver := &stubDriver{
		inputs:   []string{"Flow", "Two approvers", "2026-01-01", "2026-02-01", "user", "7", "role"},
		confirms: []bool{true, true, false},
		selects:  []int{0},
	}
	if err := NewEditor(driver).Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	req, err := s.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	want := []any{
		map[string]any{"kind": "user", "approver_id": json.Number("7")},
		map[string]any{"kind": "role"},
	}
	if diff := cmp.Diff(want, req.Data["steps"]); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestEditorReviewJumpsBack(t *testing.T) {
	t.Parallel()

	s := newSession(t, "leave_type")
	driver := &stubDriver{
		inputs: []string{
			"Annual", "AN", "",
			"20",
			"20",
		},
		confirms: []bool{false, false},
		selects:  []int{2, 0},
	}
	if err := NewEditor(driver).Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if driver.selectPos != 2 {
		t.Fatalf("expected two review menus, got %d", driver.selectPos)
	}
}

func TestEditorAbort(t *testing.T) {
	t.Parallel()

	s := newSession(t, "leave_type")
	driver := &stubDriver{inputErr: ErrAborted}
	if err := NewEditor(driver).Run(context.Background(), s); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}
