package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/triage/internal/aggregate"
	"github.com/dshills/triage/internal/config"
	"github.com/dshills/triage/internal/sonar"
)

var (
	flagSonarSeverity  string
	flagSonarComponent string
	flagSonarRule      string
	flagSonarStatus    string
	flagSonarKey       string
	flagSonarType      string
	flagSonarProject   string
	flagSonarPR        string
)

var sonarCmd = &cobra.Command{
	Use:   "sonar",
	Short: "List SonarQube issues and security hotspots",
	Long: "Fetch unresolved SonarQube issues and security hotspots for a project or\n" +
		"PR analysis. An exact key search (-k) ignores project scoping and, when\n" +
		"the unresolved scope misses, retries once against resolved findings.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}

		opts, err := sonarOptions()
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

		client, err := sonar.NewClient(cfg.Sonar.HostURL)
		if err != nil {
			if sonar.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return nil
		}
		client.UseCache(newStore(cfg))

		project := flagSonarProject
		if project == "" {
			project = cfg.Sonar.Project
		}

		ctx := context.Background()
		scope := sonar.Scope{
			Project:     project,
			PullRequest: flagSonarPR,
			Key:         flagSonarKey,
		}

		payloads, fatal := fetchSonarPayloads(ctx, client, scope)
		if fatal {
			return nil
		}

		// The key lookup retries once against the resolved scope before
		// giving up; the wider fetch only happens on a miss.
		fallback := func() ([]aggregate.SourcePayload, error) {
			wide := scope
			wide.IncludeResolved = true
			fallbackPayloads, fatal := fetchSonarPayloads(ctx, client, wide)
			if fatal {
				return nil, fmt.Errorf("authentication failed")
			}
			return fallbackPayloads, nil
		}

		result, err := aggregate.Lookup(payloads, fallback, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		emitResult(result, resolveFormat(cfg))
		return nil
	},
}

func sonarOptions() (aggregate.Options, error) {
	opts := aggregate.Options{
		Authors:   aggregate.AuthorsAll,
		Severity:  flagSonarSeverity,
		Component: flagSonarComponent,
		Rule:      flagSonarRule,
		Status:    flagSonarStatus,
		Key:       flagSonarKey,
	}
	switch flagSonarType {
	case "":
		opts.Kinds = []aggregate.Kind{aggregate.KindIssue, aggregate.KindSecurityHotspot}
	case "issue":
		opts.Kinds = []aggregate.Kind{aggregate.KindIssue}
	case "hotspot":
		opts.Kinds = []aggregate.Kind{aggregate.KindSecurityHotspot}
	default:
		return opts, fmt.Errorf("invalid type filter %q (want issue or hotspot)", flagSonarType)
	}
	return opts, nil
}

func fetchSonarPayloads(ctx context.Context, client *sonar.Client, scope sonar.Scope) ([]aggregate.SourcePayload, bool) {
	var payloads []aggregate.SourcePayload

	issues, err := client.SearchIssues(ctx, scope)
	if fatal := reportSonarFetchError("issues", err); fatal {
		return nil, true
	}
	payloads = append(payloads, aggregate.SourcePayload{Kind: aggregate.KindIssue, Document: issues})

	hotspots, err := client.SearchHotspots(ctx, scope)
	if fatal := reportSonarFetchError("hotspots", err); fatal {
		return nil, true
	}
	payloads = append(payloads, aggregate.SourcePayload{Kind: aggregate.KindSecurityHotspot, Document: hotspots})

	return payloads, false
}

func reportSonarFetchError(source string, err error) bool {
	if err == nil {
		return false
	}
	if sonar.IsAuthError(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitAuthError
		return true
	}
	fmt.Fprintf(os.Stderr, "Warning: could not fetch %s: %v\n", source, err)
	return false
}

func init() {
	sonarCmd.Flags().StringVarP(&flagSonarSeverity, "severity", "s", "", "Only findings with this severity (e.g. MAJOR, BLOCKER)")
	sonarCmd.Flags().StringVarP(&flagSonarComponent, "component", "c", "", "Only findings on this exact component")
	sonarCmd.Flags().StringVarP(&flagSonarRule, "rule", "r", "", "Only findings for this rule key")
	sonarCmd.Flags().StringVar(&flagSonarStatus, "status", "", "Only findings with this status (e.g. open, confirmed)")
	sonarCmd.Flags().StringVarP(&flagSonarKey, "key", "k", "", "Exact issue or hotspot key (searches resolved scope on miss)")
	sonarCmd.Flags().StringVarP(&flagSonarType, "type", "t", "", "Finding type (issue, hotspot)")
	sonarCmd.Flags().StringVar(&flagSonarProject, "project", "", "Sonar project key (default: from config)")
	sonarCmd.Flags().StringVar(&flagSonarPR, "pr", "", "Scope to a pull request analysis")
	addListingFlags(sonarCmd)
}
