package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formstate/pkg/payload"
)

// Prefix is prepended to every environment variable name.
const Prefix = "FORMSTATE_"

// DefaultEnvFiles are loaded when present. Values already set in the process
// environment win.
var DefaultEnvFiles = []string{".env", ".env.local"}

var (
	ErrLogFormat = errors.New("config: log format must be text or json")
	ErrTolerance = errors.New("config: tolerance must not be negative")
)

// Config is the process configuration of the formstate CLI.
type Config struct {
	LogLevel         string  `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat        string  `env:"LOG_FORMAT" envDefault:"text"`
	Tolerance        float64 `env:"TOLERANCE" envDefault:"0.1"`
	IncludeUnchanged bool    `env:"INCLUDE_UNCHANGED" envDefault:"false"`
	SanitizeText     bool    `env:"SANITIZE_TEXT" envDefault:"false"`
	FormsDir         string  `env:"FORMS_DIR" envDefault:""`
}

// LoadEnv loads the env files that exist and reports how many were read.
func LoadEnv(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads env files and then parses the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	if _, err := LoadEnv(files); err != nil {
		return Config{}, fmt.Errorf("config: load env files: %w", err)
	}
	return parse(env.Options{Prefix: Prefix})
}

// FromMap parses configuration from an explicit environment, ignoring the
// process environment.
func FromMap(environment map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrLogFormat, c.LogFormat)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: %v", ErrTolerance, c.Tolerance)
	}
	return nil
}

// LogrusLevel maps LogLevel onto logrus. Unknown levels fall back to warn;
// "silent" only lets panics through.
func (c Config) LogrusLevel() logrus.Level {
	if c.LogLevel == "silent" {
		return logrus.PanicLevel
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

// Logger builds a logger writing to out with the configured level and format.
func (c Config) Logger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(c.LogrusLevel())
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return logger
}

// ToleranceDecimal returns Tolerance as an exact decimal.
func (c Config) ToleranceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Tolerance)
}

// PayloadOptions returns the payload options implied by the configuration.
func (c Config) PayloadOptions() []payload.Option {
	var options []payload.Option
	if c.IncludeUnchanged {
		options = append(options, payload.WithUnchanged(true))
	}
	if c.SanitizeText {
		options = append(options, payload.WithSanitizer(nil))
	}
	return options
}
