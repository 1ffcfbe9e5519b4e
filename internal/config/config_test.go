package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMapDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := FromMap(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Tolerance: 0.1,
	}, cfg)
	assert.Equal(t, "0.1", cfg.ToleranceDecimal().String())
	assert.Empty(t, cfg.PayloadOptions())
}

func TestFromMapOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := FromMap(map[string]string{
		"FORMSTATE_LOG_LEVEL":         "DEBUG",
		"FORMSTATE_LOG_FORMAT":        "json",
		"FORMSTATE_TOLERANCE":         "0.25",
		"FORMSTATE_INCLUDE_UNCHANGED": "true",
		"FORMSTATE_SANITIZE_TEXT":     "true",
		"FORMSTATE_FORMS_DIR":         "forms",
	})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, cfg.LogrusLevel())
	assert.Equal(t, "forms", cfg.FormsDir)
	assert.Len(t, cfg.PayloadOptions(), 2)

	var buf bytes.Buffer
	cfg.Logger(&buf).WithField("form", "leave_type").Debug("loaded")
	assert.Contains(t, buf.String(), `"form":"leave_type"`)
}

func TestValidation(t *testing.T) {
	t.Parallel()

	_, err := FromMap(map[string]string{"FORMSTATE_LOG_FORMAT": "xml"})
	assert.ErrorIs(t, err, ErrLogFormat)

	_, err = FromMap(map[string]string{"FORMSTATE_TOLERANCE": "-1"})
	assert.ErrorIs(t, err, ErrTolerance)

	_, err = FromMap(map[string]string{"FORMSTATE_TOLERANCE": "lots"})
	assert.Error(t, err)
}

func TestLogrusLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, logrus.PanicLevel, Config{LogLevel: "silent"}.LogrusLevel())
	assert.Equal(t, logrus.WarnLevel, Config{LogLevel: "chatty"}.LogrusLevel())
	assert.Equal(t, logrus.InfoLevel, Config{LogLevel: "info"}.LogrusLevel())
}

func TestLoadEnvSkipsMissingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(present, []byte("FORMSTATE_TEST_ONLY_KEY=1\n"), 0o600))

	n, err := LoadEnv([]string{filepath.Join(dir, "missing.env"), present})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "1", os.Getenv("FORMSTATE_TEST_ONLY_KEY"))
}
