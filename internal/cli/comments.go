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

var (
	flagBots         bool
	flagHumans       bool
	flagShowResolved bool
	flagCommentPath  string
	flagCommentType  string
)

var commentsCmd = &cobra.Command{
	Use:   "comments <pr-number>",
	Short: "List review and conversation comments on a pull request",
	Long: "Fetch inline review comments (with thread resolution state) and general\n" +
		"conversation comments for a pull request, and list them filtered by\n" +
		"author, type, resolution, and path.",
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

		opts, err := commentOptions(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		// Filter validation happens before any fetch.
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
		payloads, fatal := fetchCommentPayloads(ctx, ghClient, owner, repo, prNumber)
		if fatal {
			return nil
		}

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

func commentOptions(cfg config.Config) (aggregate.Options, error) {
	var opts aggregate.Options

	switch {
	case flagBots && flagHumans:
		return opts, fmt.Errorf("--bots and --humans are mutually exclusive")
	case flagBots:
		opts.Authors = aggregate.AuthorsBots
	case flagHumans:
		opts.Authors = aggregate.AuthorsHumans
	default:
		opts.Authors = aggregate.AuthorFilter(cfg.Comments.DefaultAuthors)
	}

	switch flagCommentType {
	case "":
		opts.Kinds = []aggregate.Kind{aggregate.KindReviewComment, aggregate.KindIssueComment}
	case "review":
		opts.Kinds = []aggregate.Kind{aggregate.KindReviewComment}
	case "issue":
		opts.Kinds = []aggregate.Kind{aggregate.KindIssueComment}
	default:
		return opts, fmt.Errorf("invalid type filter %q (want review or issue)", flagCommentType)
	}

	opts.IncludeResolved = flagShowResolved
	opts.Path = flagCommentPath
	return opts, nil
}

// fetchCommentPayloads gathers the three comment sources in a fixed order:
// REST review comments first, then the GraphQL threads (so resolution state
// wins the merge), then issue comments. A failed source degrades to a nil
// payload; only an auth failure stops the run.
func fetchCommentPayloads(ctx context.Context, ghClient *github.Client, owner, repo string, prNumber int) ([]aggregate.SourcePayload, bool) {
	var payloads []aggregate.SourcePayload

	restComments, err := ghClient.ListReviewComments(ctx, owner, repo, prNumber)
	if fatal := reportFetchError("review comments", err); fatal {
		return nil, true
	}
	payloads = append(payloads, aggregate.SourcePayload{Kind: aggregate.KindReviewComment, Document: restComments})

	threads, err := ghClient.ListReviewThreads(ctx, owner, repo, prNumber)
	if fatal := reportFetchError("review threads", err); fatal {
		return nil, true
	}
	if threads != nil {
		payloads = append(payloads, aggregate.SourcePayload{Kind: aggregate.KindReviewComment, Document: threads})
	}

	issueComments, err := ghClient.ListIssueComments(ctx, owner, repo, prNumber)
	if fatal := reportFetchError("issue comments", err); fatal {
		return nil, true
	}
	payloads = append(payloads, aggregate.SourcePayload{Kind: aggregate.KindIssueComment, Document: issueComments})

	return payloads, false
}

// reportFetchError surfaces a fetch failure. Auth errors are fatal; anything
// else becomes a stderr warning and the source is treated as empty.
func reportFetchError(source string, err error) bool {
	if err == nil {
		return false
	}
	if github.IsAuthError(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitAuthError
		return true
	}
	fmt.Fprintf(os.Stderr, "Warning: could not fetch %s: %v\n", source, err)
	return false
}

func init() {
	commentsCmd.Flags().BoolVar(&flagBots, "bots", false, "Only comments from bot accounts")
	commentsCmd.Flags().BoolVar(&flagHumans, "humans", false, "Only comments from human accounts")
	commentsCmd.Flags().BoolVar(&flagShowResolved, "show-resolved", false, "Include resolved review threads")
	commentsCmd.Flags().StringVar(&flagCommentPath, "path", "", "Only review comments on this exact file path")
	commentsCmd.Flags().StringVarP(&flagCommentType, "type", "t", "", "Comment type (review, issue)")
	addListingFlags(commentsCmd)
	addRepoFlags(commentsCmd)
}
