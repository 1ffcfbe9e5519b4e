package cli

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/session"
)

func newEditCmd(app *App, flags *globalFlags) *cobra.Command {
	var (
		recordsDir  string
		id          int64
		maxAttempts int
	)
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Fill in a form interactively and print the resulting request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logging.WithContext(cmd.Context(), app.entry("edit"))
			source := FileSource{Dir: recordsDir, Out: cmd.OutOrStdout()}
			s, err := app.session(flags, "edit", session.WithDataSource(source))
			if err != nil {
				return err
			}
			defer s.Close()

			if id > 0 {
				if err := s.Load(ctx, id); err != nil {
					return err
				}
			}

			editor := prompt.NewEditor(app.Driver(cmd.ErrOrStderr()),
				prompt.WithLogger(s.Logger()),
				prompt.WithMaxAttempts(maxAttempts),
			)
			if err := editor.Run(ctx, s); err != nil {
				return errors.Wrap(err, "edit")
			}
			if !s.CanSave() {
				fmt.Fprintln(cmd.ErrOrStderr(), "no changes")
				return nil
			}

			if _, err := s.Submit(ctx); err != nil {
				var rejection *session.Rejection
				if errors.As(err, &rejection) && rejection.Field != "" {
					return errors.Errorf("%s: %s", rejection.Field, rejection.Message)
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recordsDir, "records", ".", "directory holding <id>.json value documents")
	cmd.Flags().Int64Var(&id, "id", 0, "id of the record to edit; 0 creates a new one")
	cmd.Flags().IntVar(&maxAttempts, "attempts", prompt.DefaultMaxAttempts, "prompts per step before giving up")
	return cmd
}
