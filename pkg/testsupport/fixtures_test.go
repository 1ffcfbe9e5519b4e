package testsupport

import (
	"path/filepath"
	"testing"
)

func TestFixtureForms(t *testing.T) {
	t.Parallel()

	store := LoadForms(t)
	if store.Empty() {
		t.Fatalf("expected fixture definitions in %s", FormsDir())
	}
	bp := MustBuild(t, "workflow")
	if bp.Record == nil || len(bp.Steps) != 2 {
		t.Fatalf("unexpected blueprint %+v", bp)
	}
	if got := filepath.Base(FormPath("leave_type.yaml")); got != "leave_type.yaml" {
		t.Fatalf("FormPath mismatch: %s", got)
	}
}

func TestCompareJSONIgnoresFormatting(t *testing.T) {
	t.Parallel()

	want := []byte(`{"a": 1, "b": [true]}`)
	got := []byte("{\n  \"b\": [true],\n  \"a\": 1\n}")
	if diff := CompareJSON(t, want, got); diff != "" {
		t.Fatalf("unexpected diff (-want +got):\n%s", diff)
	}
	if diff := CompareGolden(1, 2); diff == "" {
		t.Fatalf("expected diff for differing values")
	}
}
