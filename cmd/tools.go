package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the agent tools, their bindings and arguments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		return printTools(cmd.OutOrStdout(), rt.factory.Catalog(), rt.factory.Bindings())
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func printTools(w io.Writer, catalog *harness.Catalog, bindings *harness.Bindings) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tMODEL\tTEMPLATE\tARGUMENTS")
	for _, spec := range catalog.List() {
		binding, _ := bindings.Lookup(spec.Name)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.ToolName(), binding.Model, binding.Template, describeFields(spec.Fields))
	}
	return tw.Flush()
}

// describeFields renders "a*, b[], c" where * marks required and [] lists.
func describeFields(fields []harness.FieldSpec) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		p := f.Key
		if f.Kind == harness.KindStringArray {
			p += "[]"
		}
		if f.Required {
			p += "*"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}
