package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check bindings against the catalog and that every template is readable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Binding mismatches already fail inside loadRuntime.
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		if err := rt.factory.CheckTemplates(cmd.Context()); err != nil {
			return fmt.Errorf("templates under %s: %w", rt.factory.ProjectRoot(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d operations bound, templates under %s\n",
			len(rt.factory.Catalog().Names()), rt.factory.ProjectRoot())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
