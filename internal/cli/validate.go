package cli

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/session"
)

// ErrInvalidValues is returned by validate when at least one field fails.
var ErrInvalidValues = errors.New("cli: values failed validation")

type validationReport struct {
	Form   string        `json:"form"`
	Valid  bool          `json:"valid"`
	Fields []fieldReport `json:"fields"`
}

type fieldReport struct {
	Path    string   `json:"path"`
	Step    int      `json:"step,omitempty"`
	Kinds   []string `json:"kinds"`
	Message string   `json:"message,omitempty"`
}

func newValidateCmd(app *App, flags *globalFlags) *cobra.Command {
	var (
		valuesPath string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a values document against a form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := readValues(valuesPath)
			if err != nil {
				return err
			}
			s, err := app.session(flags, "validate")
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Hydrate(0, values); err != nil {
				return errors.Wrap(err, "apply values")
			}
			report := validate(s, flags.formID)
			s.Logger().WithField("invalid", len(report.Fields)).Debug("validated")

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				printReport(cmd, report)
			}
			if !report.Valid {
				return fmt.Errorf("%w: %d field(s)", ErrInvalidValues, len(report.Fields))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "JSON document with the values to validate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func validate(s *session.Session, id string) validationReport {
	s.Wizard().ValidateAll()
	s.Record().Validate()

	report := validationReport{Form: id, Fields: []fieldReport{}}
	s.Record().Walk(func(f *form.Field) {
		if f.Valid() {
			return
		}
		errs := f.Errors()
		entry := fieldReport{Path: f.Path(), Kinds: errs.Kinds()}
		for _, kind := range entry.Kinds {
			if msg := strings.TrimSpace(errs[kind]); msg != "" {
				entry.Message = msg
				break
			}
		}
		if step, ok := s.Wizard().StepFor(f.Path()); ok {
			entry.Step = step
		}
		report.Fields = append(report.Fields, entry)
	})
	report.Valid = len(report.Fields) == 0
	return report
}

func printReport(cmd *cobra.Command, report validationReport) {
	out := cmd.OutOrStdout()
	if report.Valid {
		fmt.Fprintf(out, "%s: valid\n", report.Form)
		return
	}
	fmt.Fprintf(out, "%s: %d invalid field(s)\n", report.Form, len(report.Fields))
	for _, field := range report.Fields {
		line := fmt.Sprintf("  %s: %s", field.Path, strings.Join(field.Kinds, ", "))
		if field.Message != "" {
			line += " (" + field.Message + ")"
		}
		if field.Step > 0 {
			line += fmt.Sprintf(" [step %d]", field.Step)
		}
		fmt.Fprintln(out, line)
	}
}
