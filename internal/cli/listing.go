package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/triage/internal/aggregate"
	"github.com/dshills/triage/internal/cache"
	"github.com/dshills/triage/internal/config"
	"github.com/dshills/triage/internal/github"
	"github.com/dshills/triage/internal/output"
)

// Shared listing flags
var (
	flagJSON    bool
	flagCount   bool
	flagFormat  string
	flagOut     string
	flagDetails bool
	flagOwner   string
	flagRepo    string
)

func addListingFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Output the full result as JSON")
	cmd.Flags().BoolVar(&flagCount, "count", false, "Output only the item count")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif, count)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&flagDetails, "details", false, "Show full bodies, diff excerpts, and fetch totals")
}

func addRepoFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOwner, "owner", "", "Repository owner (default: detect from git remote)")
	cmd.Flags().StringVar(&flagRepo, "repo", "", "Repository name (default: detect from git remote)")
}

// resolveFormat applies the shortcut flags on top of the configured format.
// --count beats --json beats --format.
func resolveFormat(cfg config.Config) string {
	switch {
	case flagCount:
		return "count"
	case flagJSON:
		return "json"
	case flagFormat != "":
		return flagFormat
	default:
		return cfg.Format
	}
}

// resolveRepo fills owner/repo from flags or the local git remote.
func resolveRepo() (string, string, error) {
	owner, repo := flagOwner, flagRepo
	if owner != "" && repo != "" {
		return owner, repo, nil
	}
	detectedOwner, detectedRepo, err := github.DetectRepo()
	if err != nil {
		return "", "", err
	}
	if owner == "" {
		owner = detectedOwner
	}
	if repo == "" {
		repo = detectedRepo
	}
	return owner, repo, nil
}

func newStore(cfg config.Config) *cache.Cache {
	store, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		// A broken cache is not worth failing a listing over.
		fmt.Fprintf(os.Stderr, "Warning: cache disabled: %v\n", err)
		store, _ = cache.New(false, "", 0)
	}
	return store
}

// emitResult writes the formatted result and echoes warnings to stderr so
// they never pollute piped output. JSON carries its own warnings field.
func emitResult(result *aggregate.Result, format string) {
	if format != "json" {
		for _, warning := range result.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}
	if err := output.WriteResult(result, format, flagOut, flagDetails); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
	}
}
