package aggregate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// SourcePayload pairs a declared kind with the parsed JSON body its fetcher
// returned. Document may be nil when the fetch failed; the aggregator treats
// that as an empty set and records a warning.
type SourcePayload struct {
	Kind     Kind
	Document json.RawMessage
}

// projector maps one raw payload into records. Individual items that lack
// required fields are skipped, not reported; only a document that cannot be
// decoded at all is an error.
type projector func(doc json.RawMessage) ([]Record, error)

// projectors is the per-kind projection table. Dispatch is on the declared
// kind, never on sniffing the document shape across kinds.
var projectors = map[Kind]projector{
	KindReviewComment:   projectReviewComments,
	KindIssueComment:    projectIssueComments,
	KindCheckRun:        projectCheckRuns,
	KindStatusContext:   projectStatusContexts,
	KindIssue:           projectIssues,
	KindSecurityHotspot: projectHotspots,
}

// restUser is the actor object on GitHub REST resources.
type restUser struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

func (u restUser) authorType() AuthorType {
	switch u.Type {
	case "Bot":
		return AuthorBot
	case "User", "Organization":
		return AuthorHuman
	case "":
		return AuthorUnknown
	default:
		return AuthorHuman
	}
}

// graphAuthor is the actor object on GitHub GraphQL resources. The __typename
// marker is the only authoritative bot flag GraphQL exposes.
type graphAuthor struct {
	Login    string `json:"login"`
	TypeName string `json:"__typename"`
}

func (a graphAuthor) authorType() AuthorType {
	switch a.TypeName {
	case "Bot":
		return AuthorBot
	case "":
		return AuthorUnknown
	default:
		return AuthorHuman
	}
}

// projectReviewComments handles both views of inline PR comments: the
// GraphQL reviewThreads document (which carries thread resolution) and the
// REST pulls/comments array (which does not). Both project to
// KindReviewComment keyed by the numeric comment id, so the merge step can
// fold the two views of one comment together.
func projectReviewComments(doc json.RawMessage) ([]Record, error) {
	if looksLikeGraphQL(doc) {
		return projectReviewThreads(doc)
	}

	var comments []struct {
		ID        int64    `json:"id"`
		Path      string   `json:"path"`
		Line      int      `json:"line"`
		User      restUser `json:"user"`
		Body      string   `json:"body"`
		DiffHunk  string   `json:"diff_hunk"`
		CreatedAt string   `json:"created_at"`
		HTMLURL   string   `json:"html_url"`
	}
	if err := json.Unmarshal(doc, &comments); err != nil {
		return nil, errors.Wrap(err, "decoding review comments")
	}

	var records []Record
	for _, c := range comments {
		if c.ID == 0 {
			continue
		}
		key := strconv.FormatInt(c.ID, 10)
		r := Record{
			Kind:      KindReviewComment,
			Key:       key,
			SourceKey: key,
			Author:    c.User.authorType(),
		}
		r.setAttr("path", c.Path)
		if c.Line > 0 {
			r.setAttr("line", strconv.Itoa(c.Line))
		}
		r.setAttr("author", c.User.Login)
		r.setAttr("body", c.Body)
		r.setAttr("diffHunk", c.DiffHunk)
		r.setAttr("createdAt", c.CreatedAt)
		r.setAttr("url", c.HTMLURL)
		records = append(records, r)
	}
	return records, nil
}

func projectReviewThreads(doc json.RawMessage) ([]Record, error) {
	var payload struct {
		Data struct {
			Repository struct {
				PullRequest struct {
					ReviewThreads struct {
						Nodes []struct {
							IsResolved bool   `json:"isResolved"`
							Path       string `json:"path"`
							Line       int    `json:"line"`
							Comments   struct {
								Nodes []struct {
									DatabaseID int64       `json:"databaseId"`
									Author     graphAuthor `json:"author"`
									Body       string      `json:"body"`
									DiffHunk   string      `json:"diffHunk"`
									CreatedAt  string      `json:"createdAt"`
									URL        string      `json:"url"`
								} `json:"nodes"`
							} `json:"comments"`
						} `json:"nodes"`
					} `json:"reviewThreads"`
				} `json:"pullRequest"`
			} `json:"repository"`
		} `json:"data"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding review threads")
	}

	var records []Record
	for _, thread := range payload.Data.Repository.PullRequest.ReviewThreads.Nodes {
		status := StatusOpen
		if thread.IsResolved {
			status = StatusResolved
		}
		for _, c := range thread.Comments.Nodes {
			if c.DatabaseID == 0 {
				continue
			}
			key := strconv.FormatInt(c.DatabaseID, 10)
			r := Record{
				Kind:      KindReviewComment,
				Key:       key,
				SourceKey: key,
				Author:    c.Author.authorType(),
				Status:    status,
			}
			r.setAttr("path", thread.Path)
			if thread.Line > 0 {
				r.setAttr("line", strconv.Itoa(thread.Line))
			}
			r.setAttr("author", c.Author.Login)
			r.setAttr("body", c.Body)
			r.setAttr("diffHunk", c.DiffHunk)
			r.setAttr("createdAt", c.CreatedAt)
			r.setAttr("url", c.URL)
			records = append(records, r)
		}
	}
	return records, nil
}

// looksLikeGraphQL reports whether doc is a GraphQL response envelope rather
// than a REST array.
func looksLikeGraphQL(doc json.RawMessage) bool {
	trimmed := strings.TrimLeft(string(doc), " \t\r\n")
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return false
	}
	return len(envelope.Data) > 0
}

func projectIssueComments(doc json.RawMessage) ([]Record, error) {
	var comments []struct {
		ID        int64    `json:"id"`
		User      restUser `json:"user"`
		Body      string   `json:"body"`
		CreatedAt string   `json:"created_at"`
		HTMLURL   string   `json:"html_url"`
	}
	if err := json.Unmarshal(doc, &comments); err != nil {
		return nil, errors.Wrap(err, "decoding issue comments")
	}

	var records []Record
	for _, c := range comments {
		if c.ID == 0 {
			continue
		}
		key := strconv.FormatInt(c.ID, 10)
		r := Record{
			Kind:      KindIssueComment,
			Key:       key,
			SourceKey: key,
			Author:    c.User.authorType(),
		}
		r.setAttr("author", c.User.Login)
		r.setAttr("body", c.Body)
		r.setAttr("createdAt", c.CreatedAt)
		r.setAttr("url", c.HTMLURL)
		records = append(records, r)
	}
	return records, nil
}

func projectCheckRuns(doc json.RawMessage) ([]Record, error) {
	var payload struct {
		CheckRuns []struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			Status      string `json:"status"`
			Conclusion  string `json:"conclusion"`
			StartedAt   string `json:"started_at"`
			CompletedAt string `json:"completed_at"`
			HTMLURL     string `json:"html_url"`
			App         struct {
				Slug string `json:"slug"`
				Name string `json:"name"`
			} `json:"app"`
		} `json:"check_runs"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding check runs")
	}

	var records []Record
	for _, run := range payload.CheckRuns {
		if run.ID == 0 || run.Name == "" {
			continue
		}
		// Completed runs report their conclusion; in-flight runs report
		// the lifecycle status (queued, in_progress).
		status := run.Status
		if status == "completed" {
			status = run.Conclusion
		}
		author := AuthorUnknown
		if run.App.Slug != "" || run.App.Name != "" {
			author = AuthorBot
		}
		r := Record{
			Kind:      KindCheckRun,
			Key:       strconv.FormatInt(run.ID, 10),
			SourceKey: run.Name,
			Author:    author,
			Status:    strings.ToLower(status),
		}
		r.setAttr("name", run.Name)
		r.setAttr("workflow", run.App.Name)
		r.setAttr("startedAt", run.StartedAt)
		r.setAttr("completedAt", run.CompletedAt)
		r.setAttr("url", run.HTMLURL)
		records = append(records, r)
	}
	return records, nil
}

func projectStatusContexts(doc json.RawMessage) ([]Record, error) {
	var payload struct {
		Statuses []struct {
			ID        int64    `json:"id"`
			Context   string   `json:"context"`
			State     string   `json:"state"`
			Creator   restUser `json:"creator"`
			TargetURL string   `json:"target_url"`
			CreatedAt string   `json:"created_at"`
		} `json:"statuses"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding status contexts")
	}

	var records []Record
	for _, s := range payload.Statuses {
		if s.ID == 0 || s.Context == "" {
			continue
		}
		r := Record{
			Kind:      KindStatusContext,
			Key:       strconv.FormatInt(s.ID, 10),
			SourceKey: s.Context,
			Author:    s.Creator.authorType(),
			Status:    strings.ToLower(s.State),
		}
		r.setAttr("name", s.Context)
		r.setAttr("author", s.Creator.Login)
		r.setAttr("createdAt", s.CreatedAt)
		r.setAttr("url", s.TargetURL)
		records = append(records, r)
	}
	return records, nil
}

func projectIssues(doc json.RawMessage) ([]Record, error) {
	var payload struct {
		Issues []struct {
			Key          string `json:"key"`
			Rule         string `json:"rule"`
			Severity     string `json:"severity"`
			Component    string `json:"component"`
			Project      string `json:"project"`
			Line         int    `json:"line"`
			Message      string `json:"message"`
			Status       string `json:"status"`
			Author       string `json:"author"`
			CreationDate string `json:"creationDate"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding issues")
	}

	var records []Record
	for _, issue := range payload.Issues {
		if issue.Key == "" {
			continue
		}
		author := AuthorUnknown
		if issue.Author != "" {
			// Sonar attributes issues to SCM blame authors; there is no
			// bot flag in the schema.
			author = AuthorHuman
		}
		r := Record{
			Kind:      KindIssue,
			Key:       issue.Key,
			SourceKey: issue.Key,
			Author:    author,
			Status:    strings.ToLower(issue.Status),
		}
		r.setAttr("rule", issue.Rule)
		r.setAttr("severity", issue.Severity)
		r.setAttr("component", issue.Component)
		r.setAttr("project", issue.Project)
		if issue.Line > 0 {
			r.setAttr("line", strconv.Itoa(issue.Line))
		}
		r.setAttr("message", issue.Message)
		r.setAttr("author", issue.Author)
		r.setAttr("createdAt", issue.CreationDate)
		records = append(records, r)
	}
	return records, nil
}

func projectHotspots(doc json.RawMessage) ([]Record, error) {
	var payload struct {
		Hotspots []struct {
			Key                      string `json:"key"`
			Component                string `json:"component"`
			Project                  string `json:"project"`
			SecurityCategory         string `json:"securityCategory"`
			VulnerabilityProbability string `json:"vulnerabilityProbability"`
			Status                   string `json:"status"`
			Resolution               string `json:"resolution"`
			Line                     int    `json:"line"`
			Message                  string `json:"message"`
			RuleKey                  string `json:"ruleKey"`
			Author                   string `json:"author"`
			CreationDate             string `json:"creationDate"`
		} `json:"hotspots"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding hotspots")
	}

	var records []Record
	for _, h := range payload.Hotspots {
		if h.Key == "" {
			continue
		}
		author := AuthorUnknown
		if h.Author != "" {
			author = AuthorHuman
		}
		status := strings.ToLower(h.Status)
		if h.Resolution != "" {
			status = strings.ToLower(h.Resolution)
		}
		r := Record{
			Kind:      KindSecurityHotspot,
			Key:       h.Key,
			SourceKey: h.Key,
			Author:    author,
			Status:    status,
		}
		r.setAttr("rule", h.RuleKey)
		r.setAttr("severity", h.VulnerabilityProbability)
		r.setAttr("category", h.SecurityCategory)
		r.setAttr("component", h.Component)
		r.setAttr("project", h.Project)
		if h.Line > 0 {
			r.setAttr("line", strconv.Itoa(h.Line))
		}
		r.setAttr("message", h.Message)
		r.setAttr("author", h.Author)
		r.setAttr("createdAt", h.CreationDate)
		records = append(records, r)
	}
	return records, nil
}
