// Package cli implements the formstate command tree.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	formstate "github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/internal/config"
	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/session"
)

// ErrNoFormsDir is returned when neither --forms nor FORMSTATE_FORMS_DIR
// names a definitions directory.
var ErrNoFormsDir = errors.New("cli: forms directory required (--forms or FORMSTATE_FORMS_DIR)")

// App carries the process streams and collaborators shared by every command.
type App struct {
	Out      io.Writer
	Err      io.Writer
	EnvFiles []string
	// Environment replaces the process environment when non-nil.
	Environment map[string]string
	// Driver builds the prompt driver used by edit.
	Driver func(out io.Writer) prompt.Driver

	cfg    config.Config
	logger *logrus.Logger
}

// NewApp returns an App bound to the process streams.
func NewApp() *App {
	return &App{
		Out:      os.Stdout,
		Err:      os.Stderr,
		EnvFiles: config.DefaultEnvFiles,
		Driver:   prompt.NewSurveyDriver,
	}
}

type globalFlags struct {
	formsDir string
	formID   string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "formstate",
		Short:         "Validate, diff and edit declarative forms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.configure()
		},
	}
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)
	cmd.PersistentFlags().StringVar(&flags.formsDir, "forms", "", "directory holding form definitions (defaults to FORMSTATE_FORMS_DIR)")
	cmd.PersistentFlags().StringVar(&flags.formID, "form", "", "form id to use")

	cmd.AddCommand(
		newValidateCmd(app, flags),
		newDiffCmd(app, flags),
		newEditCmd(app, flags),
		newListCmd(app, flags),
	)
	return cmd
}

// Execute runs the command tree with args and reports the error on Err.
func Execute(ctx context.Context, app *App, args []string) error {
	cmd := NewRootCommand(app)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = io.WriteString(app.Err, "error: "+err.Error()+"\n")
		return err
	}
	return nil
}

func (a *App) configure() error {
	var (
		cfg config.Config
		err error
	)
	if a.Environment != nil {
		cfg, err = config.FromMap(a.Environment)
	} else {
		cfg, err = config.Load(a.EnvFiles...)
	}
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(a.Err)
	return nil
}

func (a *App) entry(command string) *logrus.Entry {
	return logrus.NewEntry(a.logger).WithField("command", command)
}

func (a *App) store(flags *globalFlags) (*formstate.Store, error) {
	dir := strings.TrimSpace(flags.formsDir)
	if dir == "" {
		dir = a.cfg.FormsDir
	}
	if dir == "" {
		return nil, ErrNoFormsDir
	}
	store, err := formstate.LoadDefinitionsDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "load definitions from %s", dir)
	}
	return store, nil
}

func (a *App) blueprint(flags *globalFlags) (*schema.Blueprint, error) {
	store, err := a.store(flags)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(flags.formID)
	if id == "" {
		return nil, errors.Errorf("cli: --form required (one of %s)", strings.Join(store.IDs(), ", "))
	}
	bp, err := store.Build(id, schema.WithTolerance(a.cfg.ToleranceDecimal()))
	if err != nil {
		return nil, errors.Wrapf(err, "build form %s", id)
	}
	return bp, nil
}

func (a *App) session(flags *globalFlags, command string, options ...session.Option) (*session.Session, error) {
	bp, err := a.blueprint(flags)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithLogger(a.entry(command).WithField("form", bp.ID)),
		session.WithPayloadOptions(a.cfg.PayloadOptions()...),
	}
	return formstate.NewSession(bp, append(opts, options...)...)
}

func readValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return decodeValues(data, path)
}

func decodeValues(data []byte, label string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, errors.Wrapf(err, "decode %s", label)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
