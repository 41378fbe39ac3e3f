package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/triage/internal/logger"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Aggregate PR review feedback from GitHub and SonarQube",
	Long: "Triage lists the feedback attached to a pull request (review comments,\n" +
		"conversation comments, CI checks, and SonarQube findings) as one\n" +
		"normalized, filterable listing.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Initialize(flagVerbose)
	},
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging to stderr")

	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(sonarCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print triage version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "triage version %s\n", version)
	},
}
