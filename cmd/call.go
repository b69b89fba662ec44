package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var callArgs string

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Dispatch a single tool call and print the agent output",
	Example: `  agents-mcp call call_developer --args '{"task_file": "tmp/tasks/01.md"}'
  agents-mcp call call_plan_reviewer --args '{"plan_file": "tmp/plan.md", "task_files": ["tmp/tasks/01.md"], "tz_file": "tmp/tz.md"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callArgs, "args", "", "tool arguments as a JSON object")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}

	var bag map[string]any
	if callArgs != "" {
		if err := json.Unmarshal([]byte(callArgs), &bag); err != nil {
			return fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher, closeJournal, err := rt.dispatcher(ctx)
	if err != nil {
		return err
	}
	defer closeJournal()

	res := dispatcher.Dispatch(ctx, args[0], bag)
	if res.IsError {
		fmt.Fprintln(cmd.ErrOrStderr(), res.Text)
		return errors.New("tool call failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return nil
}
