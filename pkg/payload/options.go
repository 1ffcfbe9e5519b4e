package payload

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Option tunes a Build call.
type Option func(*config)

type config struct {
	id        int64
	hasID     bool
	defaults  map[string]any
	included  map[string]struct{}
	unchanged bool
	sanitizer *bluemonday.Policy
}

func newConfig(options []Option) config {
	cfg := config{
		defaults: make(map[string]any),
		included: make(map[string]struct{}),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithID sets the top-level identifier emitted on update requests.
func WithID(id int64) Option {
	return func(c *config) {
		c.id = id
		c.hasID = true
	}
}

// WithDefaults supplies values for paths absent from the emitted data, such
// as fields the screen never shows or disabled fields the backend still
// expects.
func WithDefaults(defaults map[string]any) Option {
	return func(c *config) {
		for path, value := range defaults {
			if path = strings.TrimSpace(path); path != "" {
				c.defaults[path] = value
			}
		}
	}
}

// WithIncluded emits the listed field paths even while they are disabled.
func WithIncluded(paths ...string) Option {
	return func(c *config) {
		for _, path := range paths {
			if path = strings.TrimSpace(path); path != "" {
				c.included[path] = struct{}{}
			}
		}
	}
}

// WithUnchanged emits unchanged collection items in the update list tagged
// with record_type "nothing".
func WithUnchanged(on bool) Option {
	return func(c *config) { c.unchanged = on }
}

// WithSanitizer strips markup from string values with policy. A nil policy
// selects the strict policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(c *config) {
		if policy == nil {
			policy = strictPolicy()
		}
		c.sanitizer = policy
	}
}

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}
