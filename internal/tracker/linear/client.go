// Package linear implements models.IssueTracker on top of Linear's GraphQL API.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/kiranshivaraju/faultline/pkg/models"
)

// DefaultBaseURL is Linear's public GraphQL endpoint.
const DefaultBaseURL = "https://api.linear.app/graphql"

var reUUID = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

const (
	queryTeamByID = `query GetTeam($id: String!) {
  team(id: $id) { id name }
}`
	queryTeamByKey = `query GetTeamByKey($key: String!) {
  team(key: $key) { id name }
}`
	queryTeams = `query ListTeams {
  teams { nodes { id name key } }
}`
	queryLabels = `query FindLabel($name: String!) {
  issueLabels(filter: { name: { eqIgnoreCase: $name } }) {
    nodes { id name team { id } }
  }
}`
	mutationCreateIssue = `mutation CreateIssue($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    issue { id identifier title url }
    success
  }
}`
	mutationCreateComment = `mutation CreateComment($input: CommentCreateInput!) {
  commentCreate(input: $input) {
    comment { id }
    success
  }
}`
)

// Client talks to Linear over HTTP. The API key is sent verbatim in the
// Authorization header, as Linear expects for personal keys.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a Linear client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "linear" }

// ResolveTeam accepts a team id, key or name. Ids are looked up directly, then
// the identifier is tried as an upper-cased key, and finally matched
// case-insensitively against every team's name and key.
func (c *Client) ResolveTeam(ctx context.Context, identifier string) (models.Team, error) {
	if reUUID.MatchString(identifier) {
		var resp teamResponse
		if err := c.execute(ctx, queryTeamByID, map[string]any{"id": identifier}, &resp); err != nil {
			return models.Team{}, err
		}
		if resp.Team != nil {
			return models.Team{ID: resp.Team.ID, Name: resp.Team.Name}, nil
		}
	}

	// Any key lookup failure falls through to the name match; a tracker that is
	// really down fails the list query below as well.
	var byKey teamResponse
	err := c.execute(ctx, queryTeamByKey, map[string]any{"key": strings.ToUpper(identifier)}, &byKey)
	if err == nil && byKey.Team != nil {
		return models.Team{ID: byKey.Team.ID, Name: byKey.Team.Name}, nil
	}
	if err != nil {
		slog.Debug("team key lookup failed, matching by name", "team", identifier, "error", err)
	}

	var list teamsResponse
	if err := c.execute(ctx, queryTeams, nil, &list); err != nil {
		return models.Team{}, err
	}
	for _, t := range list.Teams.Nodes {
		if strings.EqualFold(t.Name, identifier) || strings.EqualFold(t.Key, identifier) {
			return models.Team{ID: t.ID, Name: t.Name}, nil
		}
	}

	return models.Team{}, fmt.Errorf("%w: team %q", models.ErrTrackerNotFound, identifier)
}

// ResolveLabel finds a label by name, preferring one owned by teamID over a
// workspace-wide label.
func (c *Client) ResolveLabel(ctx context.Context, teamID, name string) (string, error) {
	var resp labelsResponse
	if err := c.execute(ctx, queryLabels, map[string]any{"name": name}, &resp); err != nil {
		return "", err
	}

	workspace := ""
	for _, l := range resp.IssueLabels.Nodes {
		if l.Team == nil {
			if workspace == "" {
				workspace = l.ID
			}
			continue
		}
		if l.Team.ID == teamID {
			return l.ID, nil
		}
	}
	if workspace != "" {
		return workspace, nil
	}

	return "", fmt.Errorf("%w: label %q", models.ErrTrackerNotFound, name)
}

func (c *Client) CreateIssue(ctx context.Context, title, description, teamID string, labelIDs []string) (models.Issue, error) {
	input := map[string]any{
		"title":       title,
		"description": description,
		"teamId":      teamID,
	}
	if len(labelIDs) > 0 {
		input["labelIds"] = labelIDs
	}

	var resp createIssueResponse
	if err := c.execute(ctx, mutationCreateIssue, map[string]any{"input": input}, &resp); err != nil {
		return models.Issue{}, err
	}
	if !resp.IssueCreate.Success || resp.IssueCreate.Issue == nil {
		return models.Issue{}, fmt.Errorf("%w: issue was not created", models.ErrTrackerRemote)
	}

	issue := resp.IssueCreate.Issue
	return models.Issue{ID: issue.ID, Identifier: issue.Identifier, URL: issue.URL}, nil
}

func (c *Client) AddComment(ctx context.Context, issueID, body string) (string, error) {
	input := map[string]any{
		"issueId": issueID,
		"body":    body,
	}

	var resp createCommentResponse
	if err := c.execute(ctx, mutationCreateComment, map[string]any{"input": input}, &resp); err != nil {
		return "", err
	}
	if !resp.CommentCreate.Success || resp.CommentCreate.Comment == nil {
		return "", fmt.Errorf("%w: comment was not created", models.ErrTrackerRemote)
	}

	return resp.CommentCreate.Comment.ID, nil
}

// execute posts one GraphQL operation and decodes its data into out.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encoding graphql request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", models.ErrTrackerRemote, resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("%w: decoding linear response: %v", models.ErrTrackerRemote, err)
	}

	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%w: %s", models.ErrTrackerRemote, strings.Join(msgs, ", "))
	}

	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return fmt.Errorf("%w: response contained no data", models.ErrTrackerRemote)
	}

	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("%w: decoding linear data: %v", models.ErrTrackerRemote, err)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrTrackerTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrTrackerTimeout, err)
	}

	return fmt.Errorf("%w: %v", models.ErrTrackerUnreachable, err)
}

// --- Linear wire types ---

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type linearTeam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

type teamResponse struct {
	Team *linearTeam `json:"team"`
}

type teamsResponse struct {
	Teams struct {
		Nodes []linearTeam `json:"nodes"`
	} `json:"teams"`
}

type labelsResponse struct {
	IssueLabels struct {
		Nodes []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Team *struct {
				ID string `json:"id"`
			} `json:"team"`
		} `json:"nodes"`
	} `json:"issueLabels"`
}

type linearIssue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

type createIssueResponse struct {
	IssueCreate struct {
		Issue   *linearIssue `json:"issue"`
		Success bool         `json:"success"`
	} `json:"issueCreate"`
}

type createCommentResponse struct {
	CommentCreate struct {
		Comment *struct {
			ID string `json:"id"`
		} `json:"comment"`
		Success bool `json:"success"`
	} `json:"commentCreate"`
}

// Compile-time check that Client implements IssueTracker.
var _ models.IssueTracker = (*Client)(nil)
