package cli

import (
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

func newDiffCmd(app *App, flags *globalFlags) *cobra.Command {
	var (
		beforePath string
		afterPath  string
		id         int64
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Print the update request that turns one values document into another",
		RunE: func(cmd *cobra.Command, _ []string) error {
			before, err := readValues(beforePath)
			if err != nil {
				return err
			}
			after, err := readValues(afterPath)
			if err != nil {
				return err
			}
			s, err := app.session(flags, "diff")
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Hydrate(id, before); err != nil {
				return errors.Wrap(err, "load before")
			}
			s.Record().Patch(after)

			req, err := s.Payload()
			if err != nil {
				return errors.Wrap(err, "build payload")
			}
			s.Logger().WithField("dirty", s.Dirty()).Debug("diff computed")
			return writeJSON(cmd.OutOrStdout(), req)
		},
	}
	cmd.Flags().StringVar(&beforePath, "before", "", "JSON document with the persisted values")
	cmd.Flags().StringVar(&afterPath, "after", "", "JSON document with the edited values")
	cmd.Flags().Int64Var(&id, "id", 1, "id of the persisted record")
	_ = cmd.MarkFlagRequired("before")
	_ = cmd.MarkFlagRequired("after")
	return cmd
}
