package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/snapshot"
)

func newWorkflow() *form.Record {
	rec := form.NewRecord("workflow")
	rec.AddField("name")
	rec.AddField("priority", form.WithType(form.FieldTypeInteger))
	rec.AddField("budget", form.WithType(form.FieldTypeNumber))
	rec.AddField("active", form.WithType(form.FieldTypeBoolean))
	rec.AddField("internal_note", form.Disabled())
	meta := rec.AddGroup("meta")
	meta.AddField("code")
	rec.AddCollection("steps", func(item *form.Record) {
		item.AddField("kind")
		item.AddField("approver_id", form.WithType(form.FieldTypeInteger))
	})
	return rec
}

func decode(t *testing.T, req Request) map[string]any {
	t.Helper()
	raw, err := req.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestBuildUpdateRequest(t *testing.T) {
	t.Parallel()

	rec := newWorkflow()
	rec.Patch(map[string]any{
		"name":     "Approvals",
		"priority": "2",
		"budget":   "1500.50",
		"active":   "true",
		"meta":     map[string]any{"code": "APR"},
		"steps": []any{
			map[string]any{"id": 10, "kind": "role", "approver_id": "7"},
			map[string]any{"id": 11, "kind": "user", "approver_id": "8"},
		},
	}, form.Silent(), form.Pristine())
	snap := snapshot.Take(rec)

	steps, _ := rec.Collection("steps")
	if err := steps.RemoveItem(1); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	steps.AddItem(map[string]any{"kind": "manager"})
	kind, _ := rec.Field("steps.0.kind")
	kind.SetValue("grade")

	req, err := Build(rec, snapshot.Diff(rec, snap), WithID(42), WithDefaults(map[string]any{"version": 1}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := map[string]any{
		"request_data": map[string]any{
			"id":       float64(42),
			"name":     "Approvals",
			"priority": float64(2),
			"budget":   1500.5,
			"active":   true,
			"version":  float64(1),
			"meta":     map[string]any{"code": "APR"},
			"steps": map[string]any{
				"create": []any{
					map[string]any{"kind": "manager", "approver_id": float64(0), "index": float64(2), "record_type": "add"},
				},
				"update": []any{
					map[string]any{"id": float64(10), "kind": "grade", "approver_id": float64(7), "index": float64(1), "record_type": "update"},
				},
				"delete": []any{
					map[string]any{"id": float64(11), "index": float64(3), "record_type": "remove"},
				},
			},
		},
	}
	if diff := cmp.Diff(want, decode(t, req)); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOptions(t *testing.T) {
	t.Parallel()

	rec := newWorkflow()
	rec.Patch(map[string]any{
		"name":          "<b>Night</b> rota",
		"internal_note": "kept",
		"steps": []any{
			map[string]any{"id": 5, "kind": "role", "approver_id": 1},
		},
	}, form.Silent(), form.Pristine())
	snap := snapshot.Take(rec)

	req, err := Build(rec, snapshot.Diff(rec, snap),
		WithIncluded("internal_note"),
		WithUnchanged(true),
		WithSanitizer(nil),
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	data := req.Data
	if got := data["name"]; got != "Night rota" {
		t.Fatalf("expected sanitized name, got %q", got)
	}
	if got := data["internal_note"]; got != "kept" {
		t.Fatalf("expected included disabled field, got %v", got)
	}
	if got := data["priority"]; got != json.Number("0") {
		t.Fatalf("expected blank numeric coerced to 0, got %#v", got)
	}
	if _, ok := data["id"]; ok {
		t.Fatalf("create requests must not carry an id")
	}

	steps := data["steps"].(map[string]any)
	update := steps["update"].([]any)
	if len(update) != 1 {
		t.Fatalf("expected one unchanged entry, got %v", update)
	}
	entry := update[0].(map[string]any)
	if entry["record_type"] != "nothing" || entry["id"] != int64(5) {
		t.Fatalf("unexpected unchanged entry %v", entry)
	}
}

func TestBuildWithoutChangeSetsEmitsPlainLists(t *testing.T) {
	t.Parallel()

	rec := newWorkflow()
	req, err := Build(rec, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]any{}, req.Data["steps"]); diff != "" {
		t.Fatalf("untouched placeholder must not be emitted (-want +got):\n%s", diff)
	}
	if _, ok := req.Data["internal_note"]; ok {
		t.Fatalf("disabled fields must be omitted by default")
	}

	if _, err := Build(nil, nil); !errors.Is(err, ErrNilRecord) {
		t.Fatalf("expected ErrNilRecord, got %v", err)
	}
	if _, err := Build(rec, []snapshot.ChangeSet{{Collection: "missing"}}); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestSanitizerKeepsPlainText(t *testing.T) {
	t.Parallel()

	rec := newWorkflow()
	rec.Patch(map[string]any{
		"name": `R&D "Ops" <b>team</b>`,
		"meta": map[string]any{"code": "a < b"},
	})

	req, err := Build(rec, nil, WithSanitizer(nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := req.Data["name"]; got != `R&D "Ops" team` {
		t.Fatalf("expected tags stripped without entity escaping, got %q", got)
	}
	meta := req.Data["meta"].(map[string]any)
	if got := meta["code"]; got != "a < b" {
		t.Fatalf("expected bare comparison kept, got %q", got)
	}
}

func TestUnchangedEntriesFollowItemOrder(t *testing.T) {
	t.Parallel()

	rec := newWorkflow()
	rec.Patch(map[string]any{
		"steps": []any{
			map[string]any{"id": 10, "kind": "role"},
			map[string]any{"id": 11, "kind": "role"},
			map[string]any{"id": 12, "kind": "role"},
		},
	}, form.Silent(), form.Pristine())
	snap := snapshot.Take(rec)

	steps, _ := rec.Collection("steps")
	last, _ := steps.Item(2)
	kind, _ := last.Field("kind")
	kind.SetValue("user")

	req, err := Build(rec, snapshot.Diff(rec, snap), WithUnchanged(true))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	update := req.Data["steps"].(map[string]any)["update"].([]any)

	var got []string
	for _, raw := range update {
		entry := raw.(map[string]any)
		got = append(got, fmt.Sprintf("%v:%v", entry["index"], entry["record_type"]))
	}
	want := []string{"1:nothing", "2:nothing", "3:update"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("update order mismatch (-want +got):\n%s", diff)
	}
}
