package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/goliatone/go-formstate/pkg/form"
)

var (
	// ErrSubmitInFlight is returned when Submit is called while a previous
	// submit has not returned yet.
	ErrSubmitInFlight = errors.New("session: submit already in flight")
	// ErrNoDataSource is returned by Load and Submit without a data source.
	ErrNoDataSource = errors.New("session: data source required")
	// ErrUnknownPath is returned for edits addressing a missing member.
	ErrUnknownPath = errors.New("session: unknown path")
)

// RejectionKind distinguishes client-side from remote submit failures.
type RejectionKind int

const (
	RejectionClient RejectionKind = iota + 1
	RejectionRemote
)

func (k RejectionKind) String() string {
	switch k {
	case RejectionClient:
		return "client"
	case RejectionRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Rejection is returned by Submit when nothing was persisted. Step is the
// 1-based wizard step the session moved to, or 0 when none applies.
type Rejection struct {
	Kind    RejectionKind
	Step    int
	Field   string
	Message string
	Err     error
}

func (r *Rejection) Error() string {
	msg := fmt.Sprintf("session: %s rejection: %s", r.Kind, r.Message)
	if r.Field != "" {
		msg += fmt.Sprintf(" (field %s)", r.Field)
	}
	return msg
}

func (r *Rejection) Unwrap() error { return r.Err }

// RemoteIssue is one structured validation failure reported by the backend.
// Step is 1-based and optional; Field may use loose paths such as
// "/body/steps/0/kind" or "$.steps[0].kind".
type RemoteIssue struct {
	Step    int    `json:"step,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// RemoteValidationError is returned by a DataSource when the backend rejects
// the request with structured issues.
type RemoteValidationError struct {
	Issues []RemoteIssue
}

func (e *RemoteValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "session: remote validation failed"
	}
	return fmt.Sprintf("session: remote validation failed: %s", e.Issues[0].Message)
}

// ErrorMapping splits a backend error payload into field messages keyed by
// record path and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrorPayload normalises backend error payload keys (JSON pointers,
// bracketed indexes, request wrappers) onto the field paths of rec. Keys that
// match no field become form-level messages so nothing is lost.
func MapErrorPayload(rec *form.Record, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	fieldPaths := make(map[string]struct{})
	rec.Walk(func(f *form.Field) {
		fieldPaths[f.Path()] = struct{}{}
	})

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		mapped, ok := MapPath(rawPath, fieldPaths)
		if !ok {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[mapped] = append(mapping.Fields[mapped], normalized...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// MapPath resolves a loose backend path to the longest matching field path.
func MapPath(raw string, fieldPaths map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}
	segments := parsePathSegments(trimmed)
	if len(segments) == 0 {
		return "", false
	}

	best := ""
	for _, variant := range segmentVariants(segments) {
		if path := longestMatchingPath(variant, fieldPaths); path != "" {
			if strings.Count(path, ".") > strings.Count(best, ".") || best == "" {
				best = path
			}
		}
	}
	return best, best != ""
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

// segmentVariants tries the path as given, without request wrappers, and
// with numeric indexes shifted from 1-based to 0-based for backends that
// report item positions as the emitted "index".
func segmentVariants(segments []string) [][]string {
	var variants [][]string
	seen := make(map[string]struct{}, 4)
	add := func(candidate []string) {
		if len(candidate) == 0 {
			return
		}
		key := strings.Join(candidate, ".")
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, append([]string(nil), candidate...))
	}

	unwrapped := dropWrapperSegments(segments)
	add(segments)
	add(unwrapped)
	add(shiftIndexes(unwrapped))
	return variants
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":         {},
		"request":      {},
		"request_data": {},
		"payload":      {},
		"data":         {},
	}
	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func shiftIndexes(segments []string) []string {
	out := make([]string, len(segments))
	for i, segment := range segments {
		if n, err := strconv.Atoi(segment); err == nil && n > 0 {
			out[i] = strconv.Itoa(n - 1)
			continue
		}
		out[i] = segment
	}
	return out
}

func longestMatchingPath(segments []string, fieldPaths map[string]struct{}) string {
	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := fieldPaths[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
