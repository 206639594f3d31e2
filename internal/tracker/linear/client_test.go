package linear

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/faultline/pkg/models"
)

// --- helpers ---

type capturedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// linearServer answers each GraphQL operation by matching a substring of its query.
func linearServer(t *testing.T, responses map[string]string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "lin_api_test" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type: %q", got)
		}

		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		seen = append(seen, req)

		for fragment, body := range responses {
			if strings.Contains(req.Query, fragment) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(body))
				return
			}
		}
		t.Errorf("unexpected query: %s", req.Query)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(ts.Close)
	return ts, &seen
}

func newTestClient(baseURL string) *Client {
	return NewClient("lin_api_test", baseURL, 5*time.Second)
}

// --- CreateIssue ---

func TestCreateIssue_Success(t *testing.T) {
	ts, seen := linearServer(t, map[string]string{
		"issueCreate": `{"data":{"issueCreate":{"success":true,"issue":{"id":"iss-1","identifier":"ENG-42","title":"[Error] boom","url":"https://linear.app/x/issue/ENG-42"}}}}`,
	})

	issue, err := newTestClient(ts.URL).CreateIssue(context.Background(), "[Error] boom", "body", "team-1", []string{"lbl-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issue.ID != "iss-1" || issue.Identifier != "ENG-42" {
		t.Errorf("unexpected issue: %+v", issue)
	}
	if issue.URL != "https://linear.app/x/issue/ENG-42" {
		t.Errorf("unexpected url: %s", issue.URL)
	}

	input := (*seen)[0].Variables["input"].(map[string]any)
	if input["teamId"] != "team-1" || input["title"] != "[Error] boom" {
		t.Errorf("unexpected input: %v", input)
	}
	labels, ok := input["labelIds"].([]any)
	if !ok || len(labels) != 1 || labels[0] != "lbl-1" {
		t.Errorf("unexpected labelIds: %v", input["labelIds"])
	}
}

func TestCreateIssue_OmitsEmptyLabels(t *testing.T) {
	ts, seen := linearServer(t, map[string]string{
		"issueCreate": `{"data":{"issueCreate":{"success":true,"issue":{"id":"iss-1","identifier":"ENG-1","url":"u"}}}}`,
	})

	if _, err := newTestClient(ts.URL).CreateIssue(context.Background(), "t", "d", "team-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := (*seen)[0].Variables["input"].(map[string]any)
	if _, present := input["labelIds"]; present {
		t.Errorf("labelIds should be omitted, got %v", input["labelIds"])
	}
}

func TestCreateIssue_NotSuccessful(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"issueCreate": `{"data":{"issueCreate":{"success":false,"issue":null}}}`,
	})

	_, err := newTestClient(ts.URL).CreateIssue(context.Background(), "t", "d", "team-1", nil)
	if !errors.Is(err, models.ErrTrackerRemote) {
		t.Fatalf("expected ErrTrackerRemote, got %v", err)
	}
}

func TestCreateIssue_GraphQLErrors(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"issueCreate": `{"errors":[{"message":"teamId invalid"},{"message":"forbidden"}]}`,
	})

	_, err := newTestClient(ts.URL).CreateIssue(context.Background(), "t", "d", "bad", nil)
	if !errors.Is(err, models.ErrTrackerRemote) {
		t.Fatalf("expected ErrTrackerRemote, got %v", err)
	}
	if !strings.Contains(err.Error(), "teamId invalid, forbidden") {
		t.Errorf("expected joined messages, got %v", err)
	}
}

func TestCreateIssue_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CreateIssue(context.Background(), "t", "d", "team-1", nil)
	if !errors.Is(err, models.ErrTrackerRemote) {
		t.Fatalf("expected ErrTrackerRemote, got %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestCreateIssue_NoData(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"issueCreate": `{"data":null}`,
	})

	_, err := newTestClient(ts.URL).CreateIssue(context.Background(), "t", "d", "team-1", nil)
	if !errors.Is(err, models.ErrTrackerRemote) {
		t.Fatalf("expected ErrTrackerRemote, got %v", err)
	}
}

// --- AddComment ---

func TestAddComment_Success(t *testing.T) {
	ts, seen := linearServer(t, map[string]string{
		"commentCreate": `{"data":{"commentCreate":{"success":true,"comment":{"id":"cmt-9"}}}}`,
	})

	id, err := newTestClient(ts.URL).AddComment(context.Background(), "iss-1", "**Error Occurrence #2**")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "cmt-9" {
		t.Errorf("unexpected comment id: %s", id)
	}
	input := (*seen)[0].Variables["input"].(map[string]any)
	if input["issueId"] != "iss-1" || input["body"] != "**Error Occurrence #2**" {
		t.Errorf("unexpected input: %v", input)
	}
}

func TestAddComment_IssueGone(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"commentCreate": `{"errors":[{"message":"Entity not found"}]}`,
	})

	_, err := newTestClient(ts.URL).AddComment(context.Background(), "gone", "b")
	if !errors.Is(err, models.ErrTrackerRemote) {
		t.Fatalf("expected ErrTrackerRemote, got %v", err)
	}
}

// --- ResolveTeam ---

func TestResolveTeam_ByID(t *testing.T) {
	id := "0b7c6f2e-1a2b-4c3d-8e9f-a0b1c2d3e4f5"
	ts, _ := linearServer(t, map[string]string{
		"team(id:": `{"data":{"team":{"id":"` + id + `","name":"Engineering"}}}`,
	})

	team, err := newTestClient(ts.URL).ResolveTeam(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != id || team.Name != "Engineering" {
		t.Errorf("unexpected team: %+v", team)
	}
}

func TestResolveTeam_ByKeyUppercased(t *testing.T) {
	ts, seen := linearServer(t, map[string]string{
		"team(key:": `{"data":{"team":{"id":"team-eng","name":"Engineering"}}}`,
	})

	team, err := newTestClient(ts.URL).ResolveTeam(context.Background(), "eng")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != "team-eng" {
		t.Errorf("unexpected team: %+v", team)
	}
	if (*seen)[0].Variables["key"] != "ENG" {
		t.Errorf("expected upper-cased key, got %v", (*seen)[0].Variables["key"])
	}
}

func TestResolveTeam_FallsBackToNameMatch(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"team(key:": `{"errors":[{"message":"Entity not found"}]}`,
		"teams {":   `{"data":{"teams":{"nodes":[{"id":"t-1","name":"Design","key":"DES"},{"id":"t-2","name":"Platform Team","key":"PLT"}]}}}`,
	})

	team, err := newTestClient(ts.URL).ResolveTeam(context.Background(), "platform team")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != "t-2" || team.Name != "Platform Team" {
		t.Errorf("unexpected team: %+v", team)
	}
}

func TestResolveTeam_KeyTransportFailureFallsBackToNameMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
			return
		}
		if strings.Contains(req.Query, "team(key:") {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"teams":{"nodes":[{"id":"t-9","name":"Checkout","key":"CHK"}]}}}`))
	}))
	defer ts.Close()

	team, err := newTestClient(ts.URL).ResolveTeam(context.Background(), "checkout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != "t-9" {
		t.Errorf("unexpected team: %+v", team)
	}
}

func TestResolveTeam_NotFound(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"team(key:": `{"data":{"team":null}}`,
		"teams {":   `{"data":{"teams":{"nodes":[{"id":"t-1","name":"Design","key":"DES"}]}}}`,
	})

	_, err := newTestClient(ts.URL).ResolveTeam(context.Background(), "Nope")
	if !errors.Is(err, models.ErrTrackerNotFound) {
		t.Fatalf("expected ErrTrackerNotFound, got %v", err)
	}
}

// --- ResolveLabel ---

func TestResolveLabel_PrefersTeamLabel(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"issueLabels": `{"data":{"issueLabels":{"nodes":[
			{"id":"lbl-ws","name":"Bug","team":null},
			{"id":"lbl-other","name":"Bug","team":{"id":"team-2"}},
			{"id":"lbl-team","name":"bug","team":{"id":"team-1"}}
		]}}}`,
	})

	id, err := newTestClient(ts.URL).ResolveLabel(context.Background(), "team-1", "bug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "lbl-team" {
		t.Errorf("expected team label, got %s", id)
	}
}

func TestResolveLabel_WorkspaceFallback(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"issueLabels": `{"data":{"issueLabels":{"nodes":[{"id":"lbl-ws","name":"Bug","team":null}]}}}`,
	})

	id, err := newTestClient(ts.URL).ResolveLabel(context.Background(), "team-1", "Bug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "lbl-ws" {
		t.Errorf("expected workspace label, got %s", id)
	}
}

func TestResolveLabel_NotFound(t *testing.T) {
	ts, _ := linearServer(t, map[string]string{
		"issueLabels": `{"data":{"issueLabels":{"nodes":[]}}}`,
	})

	_, err := newTestClient(ts.URL).ResolveLabel(context.Background(), "team-1", "missing")
	if !errors.Is(err, models.ErrTrackerNotFound) {
		t.Fatalf("expected ErrTrackerNotFound, got %v", err)
	}
}

// --- transport ---

func TestExecute_Unreachable(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")

	_, err := c.AddComment(context.Background(), "iss-1", "b")
	if !errors.Is(err, models.ErrTrackerUnreachable) {
		t.Fatalf("expected ErrTrackerUnreachable, got %v", err)
	}
}

func TestExecute_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(ts.URL).CreateIssue(ctx, "t", "d", "team-1", nil)
	if !errors.Is(err, models.ErrTrackerTimeout) {
		t.Fatalf("expected ErrTrackerTimeout, got %v", err)
	}
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("k", "", time.Second)
	if c.baseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got %s", c.baseURL)
	}
	if c.Name() != "linear" {
		t.Errorf("unexpected name: %s", c.Name())
	}
}
