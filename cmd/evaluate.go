package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <objective>",
	Short: "Evaluate a single objective and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "evaluate: migrate")
		}

		eval, err := env.Evaluator.EvaluateObjective(ctx, strings.Join(args, " "))
		if err != nil {
			return eris.Wrap(err, "evaluate objective")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(eval), "encode result")
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}
