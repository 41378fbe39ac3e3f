package aggregate

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphQLThreads builds a reviewThreads document with one single-comment
// thread per entry; each entry is (resolved, botAuthor).
func graphQLThreads(t *testing.T, comments ...[2]bool) json.RawMessage {
	t.Helper()
	type node struct {
		IsResolved bool           `json:"isResolved"`
		Path       string         `json:"path"`
		Line       int            `json:"line"`
		Comments   map[string]any `json:"comments"`
	}
	var nodes []node
	for i, c := range comments {
		typename := "User"
		login := fmt.Sprintf("user%d", i)
		if c[1] {
			typename = "Bot"
			login = fmt.Sprintf("bot%d", i)
		}
		nodes = append(nodes, node{
			IsResolved: c[0],
			Path:       "src/main.go",
			Line:       10 + i,
			Comments: map[string]any{
				"nodes": []map[string]any{{
					"databaseId": 1000 + i,
					"author":     map[string]any{"login": login, "__typename": typename},
					"body":       "looks wrong",
					"createdAt":  "2026-03-01T10:00:00Z",
					"url":        "https://example.com/c",
				}},
			},
		})
	}
	doc := map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"pullRequest": map[string]any{
					"reviewThreads": map[string]any{"nodes": nodes},
				},
			},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func issueComments(t *testing.T, botFlags ...bool) json.RawMessage {
	t.Helper()
	var comments []map[string]any
	for i, bot := range botFlags {
		userType := "User"
		if bot {
			userType = "Bot"
		}
		comments = append(comments, map[string]any{
			"id":         int64(2000 + i),
			"user":       map[string]any{"login": fmt.Sprintf("acct%d", i), "type": userType},
			"body":       "general remark",
			"created_at": "2026-03-01T11:00:00Z",
			"html_url":   "https://example.com/ic",
		})
	}
	raw, err := json.Marshal(comments)
	require.NoError(t, err)
	return raw
}

func TestAggregate_TotalMatchesItems(t *testing.T) {
	payloads := []SourcePayload{
		{Kind: KindReviewComment, Document: graphQLThreads(t, [2]bool{false, false}, [2]bool{true, true})},
		{Kind: KindIssueComment, Document: issueComments(t, true, false)},
	}

	for _, authors := range []AuthorFilter{AuthorsBots, AuthorsHumans, AuthorsAll} {
		result, err := Aggregate(payloads, Options{Authors: authors})
		require.NoError(t, err)
		assert.Equal(t, len(result.Items), result.Total, "authors=%s", authors)
	}
}

func TestAggregate_AuthorPartition(t *testing.T) {
	payloads := []SourcePayload{
		{Kind: KindReviewComment, Document: graphQLThreads(t,
			[2]bool{false, false}, [2]bool{false, true}, [2]bool{false, false})},
		{Kind: KindIssueComment, Document: issueComments(t, true, false, false)},
	}

	counts := make(map[AuthorFilter]int)
	for _, authors := range []AuthorFilter{AuthorsBots, AuthorsHumans, AuthorsAll} {
		result, err := Aggregate(payloads, Options{Authors: authors})
		require.NoError(t, err)
		counts[authors] = result.Total
	}

	assert.Equal(t, counts[AuthorsAll], counts[AuthorsBots]+counts[AuthorsHumans])
}

func TestAggregate_BotsExcludeResolvedScenario(t *testing.T) {
	// 3 review comments (2 unresolved human, 1 resolved bot) + 2 issue
	// comments (1 bot, 1 human). Bots with resolved excluded leaves just
	// the bot issue comment.
	payloads := []SourcePayload{
		{Kind: KindReviewComment, Document: graphQLThreads(t,
			[2]bool{false, false}, [2]bool{false, false}, [2]bool{true, true})},
		{Kind: KindIssueComment, Document: issueComments(t, true, false)},
	}

	result, err := Aggregate(payloads, Options{Authors: AuthorsBots})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, KindIssueComment, result.Items[0].Kind)
	assert.Equal(t, AuthorBot, result.Items[0].Author)
}

func TestAggregate_ResolvedFilter(t *testing.T) {
	payloads := []SourcePayload{
		{Kind: KindReviewComment, Document: graphQLThreads(t, [2]bool{true, false})},
	}

	result, err := Aggregate(payloads, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total, "resolved thread hidden by default")
	assert.Equal(t, 1, result.Fetched, "fetched count still reports it")

	result, err = Aggregate(payloads, Options{IncludeResolved: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, StatusResolved, result.Items[0].Status)
}

func TestAggregate_CheckRunBeatsStatusContext(t *testing.T) {
	checkRuns := json.RawMessage(`{"check_runs":[
		{"id":11,"name":"build","status":"completed","conclusion":"SUCCESS",
		 "app":{"slug":"ci","name":"CI"},"html_url":"https://example.com/run"}]}`)
	statuses := json.RawMessage(`{"statuses":[
		{"id":21,"context":"build","state":"pending",
		 "creator":{"login":"ci-bot","type":"Bot"}},
		{"id":22,"context":"lint-legacy","state":"success",
		 "creator":{"login":"ci-bot","type":"Bot"}}]}`)

	result, err := Aggregate([]SourcePayload{
		{Kind: KindCheckRun, Document: checkRuns},
		{Kind: KindStatusContext, Document: statuses},
	}, Options{})
	require.NoError(t, err)

	require.Equal(t, 2, result.Total)
	assert.Equal(t, KindCheckRun, result.Items[0].Kind)
	assert.Equal(t, "success", result.Items[0].Status, "conclusion lower-cased")
	assert.Equal(t, KindStatusContext, result.Items[1].Kind)
	assert.Equal(t, "lint-legacy", result.Items[1].SourceKey, "only the non-duplicate status survives")
}

func TestAggregate_Idempotent(t *testing.T) {
	payloads := []SourcePayload{
		{Kind: KindReviewComment, Document: graphQLThreads(t, [2]bool{false, true})},
		{Kind: KindIssueComment, Document: issueComments(t, false)},
	}

	first, err := Aggregate(payloads, Options{})
	require.NoError(t, err)
	second, err := Aggregate(payloads, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Fetched, second.Fetched)
	assert.Equal(t, first.Items, second.Items)
}

func TestAggregate_MergeRESTAndGraphQLViews(t *testing.T) {
	rest := json.RawMessage(`[{"id":1000,"path":"src/main.go","line":10,
		"user":{"login":"reviewer","type":"User"},
		"body":"looks wrong","diff_hunk":"@@ -1 +1 @@"}]`)
	graph := graphQLThreads(t, [2]bool{true, false})

	result, err := Aggregate([]SourcePayload{
		{Kind: KindReviewComment, Document: rest},
		{Kind: KindReviewComment, Document: graph},
	}, Options{IncludeResolved: true})
	require.NoError(t, err)

	require.Equal(t, 1, result.Total, "two views of one comment merge")
	item := result.Items[0]
	assert.Equal(t, StatusResolved, item.Status, "later GraphQL payload wins resolution")
	assert.Equal(t, "@@ -1 +1 @@", item.Attr("diffHunk"), "REST-only field survives the merge")
}

func TestAggregate_SonarTypeFilter(t *testing.T) {
	issues := json.RawMessage(`{"issues":[
		{"key":"ISS-1","rule":"go:S1000","severity":"MAJOR","component":"app/a.go","status":"OPEN","message":"m1"},
		{"key":"ISS-2","rule":"go:S2000","severity":"BLOCKER","component":"app/b.go","status":"OPEN","message":"m2"}]}`)
	hotspots := json.RawMessage(`{"hotspots":[
		{"key":"HOT-1","ruleKey":"go:S5000","vulnerabilityProbability":"HIGH","component":"app/c.go","status":"TO_REVIEW","message":"m3"}]}`)

	payloads := []SourcePayload{
		{Kind: KindIssue, Document: issues},
		{Kind: KindSecurityHotspot, Document: hotspots},
	}

	result, err := Aggregate(payloads, Options{Kinds: []Kind{KindSecurityHotspot}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, KindSecurityHotspot, result.Items[0].Kind)

	result, err = Aggregate(payloads, Options{Severity: "BLOCKER"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "ISS-2", result.Items[0].Key)
}

func TestLookup_FallsBackToResolvedScope(t *testing.T) {
	unresolved := []SourcePayload{
		{Kind: KindIssue, Document: json.RawMessage(`{"issues":[]}`)},
	}
	resolved := []SourcePayload{
		{Kind: KindIssue, Document: json.RawMessage(`{"issues":[
			{"key":"ABC123","rule":"go:S1000","severity":"MINOR","component":"app/a.go","status":"RESOLVED","message":"fixed"}]}`)},
	}

	fallbackCalls := 0
	result, err := Lookup(unresolved, func() ([]SourcePayload, error) {
		fallbackCalls++
		return resolved, nil
	}, Options{Key: "ABC123"})
	require.NoError(t, err)

	assert.Equal(t, 1, fallbackCalls)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "ABC123", result.Items[0].Key)
}

func TestLookup_NoFallbackWithoutKey(t *testing.T) {
	called := false
	result, err := Lookup([]SourcePayload{
		{Kind: KindIssue, Document: json.RawMessage(`{"issues":[]}`)},
	}, func() ([]SourcePayload, error) {
		called = true
		return nil, nil
	}, Options{})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 0, result.Total)
}

func TestLookup_MissInBothScopesIsNotAnError(t *testing.T) {
	empty := []SourcePayload{
		{Kind: KindIssue, Document: json.RawMessage(`{"issues":[]}`)},
	}
	result, err := Lookup(empty, func() ([]SourcePayload, error) {
		return empty, nil
	}, Options{Key: "NOPE"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}

func TestAggregate_InvalidFilters(t *testing.T) {
	_, err := Aggregate(nil, Options{Authors: "robots"})
	require.Error(t, err)

	_, err = Aggregate(nil, Options{Kinds: []Kind{"gists"}})
	require.Error(t, err)
}

func TestAggregate_BadPayloadBecomesWarning(t *testing.T) {
	payloads := []SourcePayload{
		{Kind: KindReviewComment, Document: json.RawMessage(`not json at all`)},
		{Kind: KindIssueComment, Document: issueComments(t, false)},
	}

	result, err := Aggregate(payloads, Options{})
	require.NoError(t, err, "partial failure never aborts the run")
	assert.Equal(t, 1, result.Total, "healthy source still listed")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "review_comment")
}

func TestAggregate_MissingPayloadBecomesWarning(t *testing.T) {
	result, err := Aggregate([]SourcePayload{
		{Kind: KindCheckRun, Document: nil},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "unavailable")
}

func TestAggregate_AbsentKindIsEmptyNotError(t *testing.T) {
	result, err := Aggregate([]SourcePayload{
		{Kind: KindIssueComment, Document: issueComments(t, false)},
	}, Options{Kinds: []Kind{KindCheckRun}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Warnings)
}

func TestAggregate_OrderingContract(t *testing.T) {
	// Payloads arrive out of declared order; output must not.
	payloads := []SourcePayload{
		{Kind: KindSecurityHotspot, Document: json.RawMessage(`{"hotspots":[
			{"key":"HOT-1","status":"TO_REVIEW","message":"m"}]}`)},
		{Kind: KindIssueComment, Document: issueComments(t, false)},
		{Kind: KindReviewComment, Document: graphQLThreads(t, [2]bool{false, false})},
	}

	result, err := Aggregate(payloads, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
	assert.Equal(t, KindReviewComment, result.Items[0].Kind)
	assert.Equal(t, KindIssueComment, result.Items[1].Kind)
	assert.Equal(t, KindSecurityHotspot, result.Items[2].Kind)
}

func TestAggregate_PathFilterOnlyAffectsReviewComments(t *testing.T) {
	payloads := []SourcePayload{
		{Kind: KindReviewComment, Document: graphQLThreads(t, [2]bool{false, false})},
		{Kind: KindIssueComment, Document: issueComments(t, false)},
	}

	result, err := Aggregate(payloads, Options{Path: "other/file.go"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, KindIssueComment, result.Items[0].Kind, "issue comments pass the path filter untouched")

	result, err = Aggregate(payloads, Options{Path: "src/main.go"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
}
