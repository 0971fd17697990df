package main

import (
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <project-id>",
	Short: "Compare a project's live data against its stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	app, err := newApp(os.Stderr, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.checker.Check(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(result)
}
