package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/dshills/triage/internal/cache"
	"github.com/dshills/triage/internal/logger"
)

const defaultAPIURL = "https://api.github.com"

// Client provides access to the GitHub REST and GraphQL APIs.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
	limiter *rate.Limiter
	store   *cache.Cache
}

// NewClient creates a new GitHub client. Requires GITHUB_TOKEN env var. The
// endpoint comes from GITHUB_API_URL, then apiURL (the configured Enterprise
// host), then the public API.
func NewClient(apiURL string) (*Client, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, &authError{message: "GITHUB_TOKEN environment variable is not set"}
	}

	if env := os.Getenv("GITHUB_API_URL"); env != "" {
		apiURL = env
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	apiURL = strings.TrimRight(apiURL, "/")

	return &Client{
		token:   token,
		apiURL:  apiURL,
		httpCli: &http.Client{Timeout: 60 * time.Second},
		// GitHub's secondary rate limits trip on bursts well below the
		// hourly quota; pace outbound calls instead of retrying.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}, nil
}

// UseCache routes responses through the given store. A nil store disables
// caching.
func (c *Client) UseCache(store *cache.Cache) {
	c.store = store
}

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// do issues one request, with cache lookup and rate pacing. There is no
// retry: a failed source surfaces as a warning upstream, by contract.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, accept string) (json.RawMessage, error) {
	key := cache.RequestKey(method, url, string(payload))
	if c.store != nil {
		if body, ok := c.store.Get(key); ok {
			logger.Log.Debugw("cache hit", "url", url)
			return json.RawMessage(body), nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "waiting for rate limiter")
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Log.Debugw("github request", "method", method, "url", url)
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return nil, &authError{message: string(body)}
	case resp.StatusCode == 404:
		return nil, errors.Newf("not found: %s", url)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.Newf("GitHub API error (status %d): %s", resp.StatusCode, string(body))
	}

	if c.store != nil {
		if err := c.store.Put(key, string(body)); err != nil {
			logger.Log.Debugw("cache write failed", "error", err)
		}
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, url string) (json.RawMessage, error) {
	return c.do(ctx, "GET", url, nil, "application/vnd.github.v3+json")
}

// PRHead returns the head commit SHA of a pull request, which the check and
// status endpoints key on.
func (c *Client) PRHead(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.apiURL, owner, repo, prNumber)
	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	var pr struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", errors.Wrap(err, "parsing pull request")
	}
	if pr.Head.SHA == "" {
		return "", errors.Newf("pull request #%d has no head SHA", prNumber)
	}
	return pr.Head.SHA, nil
}

// ListReviewComments fetches the REST view of inline PR comments. The raw
// body is returned untouched; projection happens in the aggregate package.
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, prNumber int) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments?per_page=100", c.apiURL, owner, repo, prNumber)
	return c.get(ctx, url)
}

// ListIssueComments fetches general conversation comments on a PR.
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, prNumber int) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments?per_page=100", c.apiURL, owner, repo, prNumber)
	return c.get(ctx, url)
}

// reviewThreadsQuery asks GraphQL for review threads with their resolution
// state, which the REST comments endpoint does not expose.
const reviewThreadsQuery = `query($owner: String!, $repo: String!, $pr: Int!) {
  repository(owner: $owner, name: $repo) {
    pullRequest(number: $pr) {
      reviewThreads(first: 100) {
        nodes {
          isResolved
          path
          line
          comments(first: 100) {
            nodes {
              databaseId
              author { login __typename }
              body
              diffHunk
              createdAt
              url
            }
          }
        }
      }
    }
  }
}`

// ListReviewThreads fetches the GraphQL view of inline PR comments.
func (c *Client) ListReviewThreads(ctx context.Context, owner, repo string, prNumber int) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]any{
		"query": reviewThreadsQuery,
		"variables": map[string]any{
			"owner": owner,
			"repo":  repo,
			"pr":    prNumber,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling GraphQL query")
	}
	return c.do(ctx, "POST", c.apiURL+"/graphql", payload, "application/json")
}

// ListCheckRuns fetches check runs for a commit.
func (c *Client) ListCheckRuns(ctx context.Context, owner, repo, sha string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits/%s/check-runs?per_page=100", c.apiURL, owner, repo, sha)
	return c.get(ctx, url)
}

// ListCombinedStatus fetches legacy status contexts for a commit.
func (c *Client) ListCombinedStatus(ctx context.Context, owner, repo, sha string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits/%s/status", c.apiURL, owner, repo, sha)
	return c.get(ctx, url)
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo() (owner, repo string, err error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", errors.Wrap(err, "cannot detect repo: git remote get-url origin failed")
	}
	url := strings.TrimSpace(string(out))
	return ParseRemoteURL(url)
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", errors.Newf("cannot parse owner/repo from remote URL: %s", url)
}
