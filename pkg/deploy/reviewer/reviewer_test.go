package reviewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tvandinther/themedist/pkg/deploy"
)

func discard(string) {}

func TestRepositoryPath(t *testing.T) {
	cases := map[string]string{
		"https://github.com/acme/theme-dist.git":         "acme/theme-dist",
		"https://gitlab.example.com/group/sub/theme.git": "group/sub/theme",
		"git@github.com:acme/theme-dist.git":             "acme/theme-dist",
		"ssh://git@gitea.local:2222/acme/theme-dist":     "acme/theme-dist",
	}
	for remote, want := range cases {
		got, err := repositoryPath(remote)
		if err != nil {
			t.Fatalf("%s: %v", remote, err)
		}
		if got != want {
			t.Fatalf("%s: got %q want %q", remote, got, want)
		}
	}

	for _, bad := range []string{"", "theme-dist", "https://github.com/theme-dist"} {
		if _, err := repositoryPath(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}

	owner, repo, err := getOwnerRepo("https://gitlab.example.com/group/sub/theme.git")
	if err != nil || owner != "group/sub" || repo != "theme" {
		t.Fatalf("unexpected owner/repo %q %q (%v)", owner, repo, err)
	}
}

func reviewRequest(remote string) *deploy.ReviewRequest {
	return &deploy.ReviewRequest{
		RemoteURL: remote,
		Head:      "deploy/production",
		Base:      "main",
		Title:     "Deploy theme",
		Body:      "body",
	}
}

type giteaServer struct {
	existing   []map[string]any
	created    map[string]any
	ignorePage bool
	versions   int
	lists      int
}

func (s *giteaServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/v1/version":
		s.versions++
		_ = json.NewEncoder(w).Encode(map[string]string{"version": "1.22.0"})
	case r.URL.Path == "/api/v1/repos/acme/theme-dist/pulls" && r.Method == http.MethodGet:
		s.lists++
		if s.ignorePage || r.URL.Query().Get("page") == "1" {
			_ = json.NewEncoder(w).Encode(s.existing)
			return
		}
		_, _ = w.Write([]byte("[]"))
	case r.URL.Path == "/api/v1/repos/acme/theme-dist/pulls" && r.Method == http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&s.created); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"html_url": "http://gitea.local/acme/theme-dist/pulls/7",
			"head":     map[string]any{"ref": s.created["head"]},
			"base":     map[string]any{"ref": s.created["base"]},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestGiteaCreatesPullRequest(t *testing.T) {
	backend := &giteaServer{}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	g, err := NewGitea(srv.URL, "token")
	if err != nil {
		t.Fatalf("new gitea: %v", err)
	}

	result, err := g.CreateReview(context.Background(), reviewRequest("https://gitea.local/acme/theme-dist.git"), discard)
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if !result.Created || result.Existed {
		t.Fatalf("expected a new pull request, got %+v", result)
	}
	if result.URL != "http://gitea.local/acme/theme-dist/pulls/7" {
		t.Fatalf("unexpected url %q", result.URL)
	}
	if backend.created["head"] != "deploy/production" || backend.created["base"] != "main" {
		t.Fatalf("unexpected create payload: %v", backend.created)
	}
}

func TestGiteaFindsExistingPullRequest(t *testing.T) {
	backend := &giteaServer{existing: []map[string]any{
		{"html_url": "http://gitea.local/acme/theme-dist/pulls/1", "head": map[string]any{"ref": "other"}, "base": map[string]any{"ref": "main"}},
		{"html_url": "http://gitea.local/acme/theme-dist/pulls/2", "head": map[string]any{"ref": "deploy/production"}, "base": map[string]any{"ref": "main"}},
	}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	g, err := NewGitea(srv.URL, "token")
	if err != nil {
		t.Fatalf("new gitea: %v", err)
	}

	result, err := g.CreateReview(context.Background(), reviewRequest("git@gitea.local:acme/theme-dist.git"), discard)
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if !result.Existed || result.URL != "http://gitea.local/acme/theme-dist/pulls/2" {
		t.Fatalf("expected existing pull request 2, got %+v", result)
	}
	if backend.created != nil {
		t.Fatalf("no pull request should be created when one exists")
	}
}

func TestGiteaStopsOnShortPage(t *testing.T) {
	backend := &giteaServer{
		ignorePage: true,
		existing: []map[string]any{
			{"html_url": "http://gitea.local/acme/theme-dist/pulls/1", "head": map[string]any{"ref": "other"}, "base": map[string]any{"ref": "main"}},
		},
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	g, err := NewGitea(srv.URL, "token")
	if err != nil {
		t.Fatalf("new gitea: %v", err)
	}

	result, err := g.CreateReview(context.Background(), reviewRequest("https://gitea.local/acme/theme-dist.git"), discard)
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if result.Existed || backend.created == nil {
		t.Fatalf("expected a new pull request, got %+v", result)
	}
	if backend.lists != 1 {
		t.Fatalf("expected a single list request, got %d", backend.lists)
	}
	if backend.versions != 0 {
		t.Fatalf("the server version should not be queried, got %d requests", backend.versions)
	}
}

func TestNewGiteaDoesNotContactServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewGitea(url, "token"); err != nil {
		t.Fatalf("constructing a client should not need the server: %v", err)
	}
}

func TestGitlabCreatesMergeRequest(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasSuffix(r.URL.Path, "/merge_requests") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("source_branch") != "deploy/production" {
				t.Errorf("expected source_branch filter, got %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte("[]"))
		case http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&created)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"iid":     3,
				"web_url": "https://gitlab.example.com/acme/theme-dist/-/merge_requests/3",
				"state":   "opened",
			})
		}
	}))
	defer srv.Close()

	g, err := NewGitlab(srv.URL, "token")
	if err != nil {
		t.Fatalf("new gitlab: %v", err)
	}

	result, err := g.CreateReview(context.Background(), reviewRequest("https://gitlab.example.com/acme/theme-dist.git"), discard)
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if result.Existed || result.URL != "https://gitlab.example.com/acme/theme-dist/-/merge_requests/3" {
		t.Fatalf("unexpected result %+v", result)
	}
	if created["source_branch"] != "deploy/production" || created["target_branch"] != "main" {
		t.Fatalf("unexpected create payload %v", created)
	}
}

func TestGitlabFindsExistingMergeRequest(t *testing.T) {
	posted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			posted = true
		}
		_, _ = w.Write([]byte(`[{"iid": 9, "state": "opened", "web_url": "https://gitlab.example.com/acme/theme-dist/-/merge_requests/9"}]`))
	}))
	defer srv.Close()

	g, err := NewGitlab(srv.URL, "token")
	if err != nil {
		t.Fatalf("new gitlab: %v", err)
	}

	result, err := g.CreateReview(context.Background(), reviewRequest("https://gitlab.example.com/acme/theme-dist.git"), discard)
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if !result.Existed || !strings.HasSuffix(result.URL, "/9") {
		t.Fatalf("expected existing merge request, got %+v", result)
	}
	if posted {
		t.Fatalf("no merge request should be created when one exists")
	}
}
