package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// FormsDir returns the absolute path of the shared form definition fixtures.
func FormsDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("pkg", "schema", "testdata", "forms")
	}
	return filepath.Join(filepath.Dir(file), "..", "schema", "testdata", "forms")
}

// FormPath returns the path of a fixture file inside FormsDir.
func FormPath(name string) string {
	return filepath.Join(FormsDir(), name)
}

// LoadForms loads every fixture definition.
func LoadForms(t *testing.T) *schema.Store {
	t.Helper()

	store, err := LoadFormsFromDir(FormsDir())
	if err != nil {
		t.Fatalf("load forms: %v", err)
	}
	return store
}

// LoadFormsFromDir loads definitions without requiring testing.T, for callers
// wiring fixtures in setup functions.
func LoadFormsFromDir(dir string) (*schema.Store, error) {
	if dir == "" {
		return nil, errors.New("testsupport: forms directory is required")
	}
	store, err := schema.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("testsupport: load forms: %w", err)
	}
	return store, nil
}

// MustBuild builds the fixture form id into a fresh blueprint.
func MustBuild(t *testing.T, id string) *schema.Blueprint {
	t.Helper()

	bp, err := LoadForms(t).Build(id)
	if err != nil {
		t.Fatalf("build %s: %v", id, err)
	}
	return bp
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// CompareJSON decodes both documents and diffs them structurally, ignoring
// formatting.
func CompareJSON(t *testing.T, want, got []byte) string {
	t.Helper()

	var w, g any
	if err := json.Unmarshal(want, &w); err != nil {
		t.Fatalf("decode want: %v", err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("decode got: %v", err)
	}
	return cmp.Diff(w, g)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
