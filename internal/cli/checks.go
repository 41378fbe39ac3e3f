package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/triage/internal/aggregate"
	"github.com/dshills/triage/internal/config"
	"github.com/dshills/triage/internal/github"
)

var flagCheckType string

var checksCmd = &cobra.Command{
	Use:   "checks <pr-number>",
	Short: "List CI checks and status contexts for a pull request",
	Long: "Fetch check runs and legacy commit statuses for a pull request's head\n" +
		"commit. A status context that duplicates a check run of the same name\n" +
		"is dropped; check runs are the richer mechanism.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prNumber, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid PR number %q\n", args[0])
			exitCode = ExitUsageError
			return nil
		}

		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}

		opts, err := checkOptions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		if err := opts.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		owner, repo, err := resolveRepo()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\nUse --owner and --repo flags to specify manually.\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		ghClient, err := github.NewClient(cfg.GitHub.APIURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}
		ghClient.UseCache(newStore(cfg))

		ctx := context.Background()

		sha, err := ghClient.PRHead(ctx, owner, repo, prNumber)
		if err != nil {
			if github.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return nil
		}

		var payloads []aggregate.SourcePayload
		checkRuns, err := ghClient.ListCheckRuns(ctx, owner, repo, sha)
		if fatal := reportFetchError("check runs", err); fatal {
			return nil
		}
		payloads = append(payloads, aggregate.SourcePayload{Kind: aggregate.KindCheckRun, Document: checkRuns})

		statuses, err := ghClient.ListCombinedStatus(ctx, owner, repo, sha)
		if fatal := reportFetchError("commit statuses", err); fatal {
			return nil
		}
		payloads = append(payloads, aggregate.SourcePayload{Kind: aggregate.KindStatusContext, Document: statuses})

		result, err := aggregate.Aggregate(payloads, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		emitResult(result, resolveFormat(cfg))
		return nil
	},
}

func checkOptions() (aggregate.Options, error) {
	opts := aggregate.Options{Authors: aggregate.AuthorsAll}
	switch flagCheckType {
	case "":
		opts.Kinds = []aggregate.Kind{aggregate.KindCheckRun, aggregate.KindStatusContext}
	case "check":
		opts.Kinds = []aggregate.Kind{aggregate.KindCheckRun}
	case "status":
		opts.Kinds = []aggregate.Kind{aggregate.KindStatusContext}
	default:
		return opts, fmt.Errorf("invalid type filter %q (want check or status)", flagCheckType)
	}
	return opts, nil
}

func init() {
	checksCmd.Flags().StringVarP(&flagCheckType, "type", "t", "", "Check type (check, status)")
	addListingFlags(checksCmd)
	addRepoFlags(checksCmd)
}
