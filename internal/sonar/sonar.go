package sonar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/dshills/triage/internal/cache"
	"github.com/dshills/triage/internal/logger"
)

// Client provides access to the SonarQube Web API.
type Client struct {
	token   string
	hostURL string
	httpCli *http.Client
	limiter *rate.Limiter
	store   *cache.Cache
}

// NewClient creates a new SonarQube client. Requires SONAR_TOKEN; the host
// comes from hostURL or, when empty, SONAR_HOST_URL.
func NewClient(hostURL string) (*Client, error) {
	token := os.Getenv("SONAR_TOKEN")
	if token == "" {
		return nil, &authError{message: "SONAR_TOKEN environment variable is not set"}
	}

	if hostURL == "" {
		hostURL = os.Getenv("SONAR_HOST_URL")
	}
	if hostURL == "" {
		return nil, errors.New("SonarQube host not configured (set sonar.hostUrl or SONAR_HOST_URL)")
	}
	hostURL = strings.TrimRight(hostURL, "/")

	return &Client{
		token:   token,
		hostURL: hostURL,
		httpCli: &http.Client{Timeout: 60 * time.Second},
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

// Scope selects which slice of the project's findings a search covers. The
// key-lookup retry flips from the unresolved scope to the full scope.
type Scope struct {
	// Project is the Sonar project key. Ignored when Key is set: an exact
	// key search goes wide on purpose.
	Project string

	// PullRequest scopes the search to a PR analysis when non-empty.
	PullRequest string

	// Key is an exact issue or hotspot key.
	Key string

	// IncludeResolved widens the search past unresolved findings.
	IncludeResolved bool
}

// SearchIssues fetches issues matching the scope. The raw body is returned
// untouched for the aggregate package to project.
func (c *Client) SearchIssues(ctx context.Context, scope Scope) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("ps", "500")
	if scope.Key != "" {
		params.Set("issues", scope.Key)
	} else {
		if scope.Project != "" {
			params.Set("componentKeys", scope.Project)
		}
		if scope.PullRequest != "" {
			params.Set("pullRequest", scope.PullRequest)
		}
	}
	if !scope.IncludeResolved {
		params.Set("resolved", "false")
	}
	return c.get(ctx, "/api/issues/search?"+params.Encode())
}

// SearchHotspots fetches security hotspots matching the scope.
func (c *Client) SearchHotspots(ctx context.Context, scope Scope) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("ps", "500")
	if scope.Key != "" {
		params.Set("hotspots", scope.Key)
	} else {
		if scope.Project != "" {
			params.Set("projectKey", scope.Project)
		}
		if scope.PullRequest != "" {
			params.Set("pullRequest", scope.PullRequest)
		}
	}
	if !scope.IncludeResolved {
		params.Set("status", "TO_REVIEW")
	}
	return c.get(ctx, "/api/hotspots/search?"+params.Encode())
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	full := c.hostURL + path

	key := cache.RequestKey("GET", full, "")
	if c.store != nil {
		if body, ok := c.store.Get(key); ok {
			logger.Log.Debugw("cache hit", "url", full)
			return json.RawMessage(body), nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "waiting for rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", full, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	// Sonar tokens authenticate as basic-auth usernames with no password.
	req.SetBasicAuth(c.token, "")

	logger.Log.Debugw("sonar request", "url", full)
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s", full)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return nil, &authError{message: string(body)}
	case resp.StatusCode != 200:
		return nil, errors.Newf("SonarQube API error (status %d): %s", resp.StatusCode, string(body))
	}

	if c.store != nil {
		if err := c.store.Put(key, string(body)); err != nil {
			logger.Log.Debugw("cache write failed", "error", err)
		}
	}
	return json.RawMessage(body), nil
}
