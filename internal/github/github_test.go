package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dshills/triage/internal/cache"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GITHUB_API_URL", server.URL)
	c, err := NewClient("")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	c.httpCli = server.Client()
	return c
}

func TestNewClient_RequiresToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	_, err := NewClient("")
	if err == nil {
		t.Fatal("Expected error without GITHUB_TOKEN")
	}
	if !IsAuthError(err) {
		t.Errorf("Expected auth error, got %v", err)
	}
}

func TestNewClient_EndpointPrecedence(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "test-token")

	t.Setenv("GITHUB_API_URL", "")
	c, err := NewClient("https://ghe.example.com/api/v3/")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if c.apiURL != "https://ghe.example.com/api/v3" {
		t.Errorf("apiURL = %q, want configured Enterprise host", c.apiURL)
	}

	t.Setenv("GITHUB_API_URL", "https://env.example.com")
	c, err = NewClient("https://ghe.example.com/api/v3")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if c.apiURL != "https://env.example.com" {
		t.Errorf("apiURL = %q, want env var to win over config", c.apiURL)
	}

	t.Setenv("GITHUB_API_URL", "")
	c, err = NewClient("")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if c.apiURL != defaultAPIURL {
		t.Errorf("apiURL = %q, want public API default", c.apiURL)
	}
}

func TestPRHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Authorization = %q, want %q", r.Header.Get("Authorization"), "Bearer test-token")
		}
		if r.URL.Path != "/repos/owner/repo/pulls/42" {
			t.Errorf("Path = %q, want %q", r.URL.Path, "/repos/owner/repo/pulls/42")
		}
		w.Write([]byte(`{"head":{"sha":"abc123"}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	sha, err := c.PRHead(context.Background(), "owner", "repo", 42)
	if err != nil {
		t.Fatalf("PRHead error: %v", err)
	}
	if sha != "abc123" {
		t.Errorf("sha = %q, want %q", sha, "abc123")
	}
}

func TestListReviewComments_RawBody(t *testing.T) {
	raw := `[{"id":1001,"path":"a.go","body":"bump"}]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/repos/owner/repo/pulls/7/comments") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(raw))
	}))
	defer server.Close()

	c := testClient(t, server)
	body, err := c.ListReviewComments(context.Background(), "owner", "repo", 7)
	if err != nil {
		t.Fatalf("ListReviewComments error: %v", err)
	}
	if string(body) != raw {
		t.Errorf("body = %q, want untouched raw payload", string(body))
	}
}

func TestListReviewThreads_PostsGraphQL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/graphql" {
			t.Errorf("got %s %s, want POST /graphql", r.Method, r.URL.Path)
		}
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if !strings.Contains(req.Query, "reviewThreads") {
			t.Error("query does not ask for reviewThreads")
		}
		if req.Variables["pr"] != float64(7) {
			t.Errorf("pr variable = %v, want 7", req.Variables["pr"])
		}
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	if _, err := c.ListReviewThreads(context.Background(), "owner", "repo", 7); err != nil {
		t.Fatalf("ListReviewThreads error: %v", err)
	}
}

func TestDo_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	c := testClient(t, server)
	_, err := c.ListIssueComments(context.Background(), "owner", "repo", 1)
	if err == nil {
		t.Fatal("Expected error for 401")
	}
	if !IsAuthError(err) {
		t.Errorf("Expected auth error, got %v", err)
	}
}

func TestDo_ServesFromCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	store, err := cache.New(true, t.TempDir(), 120)
	if err != nil {
		t.Fatalf("cache.New error: %v", err)
	}
	c := testClient(t, server)
	c.UseCache(store)

	for i := 0; i < 3; i++ {
		if _, err := c.ListIssueComments(context.Background(), "owner", "repo", 1); err != nil {
			t.Fatalf("ListIssueComments error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1 (rest from cache)", calls)
	}
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"https", "https://github.com/dshills/triage.git", "dshills", "triage", false},
		{"https no suffix", "https://github.com/dshills/triage", "dshills", "triage", false},
		{"ssh", "git@github.com:dshills/triage.git", "dshills", "triage", false},
		{"enterprise https", "https://ghe.example.com/team/project.git", "team", "project", false},
		{"garbage", "not-a-url", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRemoteURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRemoteURL error: %v", err)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("got %s/%s, want %s/%s", owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}
