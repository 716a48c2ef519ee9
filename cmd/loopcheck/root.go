package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loopcheck",
		Short: "Loopcheck - scoring engine for recorded browser-agent runs",
		Long: `Loopcheck evaluates recorded browser-agent runs against task specs.

It resolves state snapshots captured during a run, diffs first against last
state, checks the task's declarative assertions, and scores the agent's
behavior (loops, action sequence, efficiency, task success) into a single
pass/fail verdict.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; explicit environment still applies.
		_ = godotenv.Load()

		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newEvalCommand())
	cmd.AddCommand(newBatchCommand())
	cmd.AddCommand(newCompareCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
