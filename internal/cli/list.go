package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the forms found in the definitions directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.store(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range store.IDs() {
				def, _ := store.Definition(id)
				if def.Title != "" {
					fmt.Fprintf(out, "%s\t%s\t%s\n", id, def.Title, def.Source)
					continue
				}
				fmt.Fprintf(out, "%s\t-\t%s\n", id, def.Source)
			}
			return nil
		},
	}
}
