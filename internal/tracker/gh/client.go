// Package gh implements models.IssueTracker on top of GitHub Issues.
//
// A GitHub "team" is a repository written as "owner/repo". Issue ids returned by
// CreateIssue have the form "owner/repo#number" so that AddComment can address
// the issue without any further lookup. GitHub labels are referenced by name.
package gh

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/kiranshivaraju/faultline/pkg/models"
)

// Client talks to the GitHub REST API with a personal or installation token.
type Client struct {
	gh *github.Client
}

// NewClient creates a GitHub client authenticated with token. A non-empty
// baseURL points the client at a GitHub Enterprise Server instance.
func NewClient(token, baseURL string, timeout time.Duration) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = timeout

	gh := github.NewClient(httpClient)
	if baseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, errors.Wrap(err, "configuring github enterprise url")
		}
	}
	return &Client{gh: gh}, nil
}

// newWithClient points a client at an arbitrary API root. Used by tests.
func newWithClient(httpClient *http.Client, apiRoot string) (*Client, error) {
	if !strings.HasSuffix(apiRoot, "/") {
		apiRoot += "/"
	}
	u, err := url.Parse(apiRoot)
	if err != nil {
		return nil, errors.Wrap(err, "parsing api root")
	}
	gh := github.NewClient(httpClient)
	gh.BaseURL = u
	return &Client{gh: gh}, nil
}

func (c *Client) Name() string { return "github" }

// ResolveTeam verifies that the "owner/repo" identifier names an accessible repository.
func (c *Client) ResolveTeam(ctx context.Context, identifier string) (models.Team, error) {
	owner, repo, err := splitRepo(identifier)
	if err != nil {
		return models.Team{}, err
	}

	r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return models.Team{}, classifyError(err, "resolving repository "+identifier)
	}
	full := r.GetFullName()
	if full == "" {
		full = owner + "/" + repo
	}
	return models.Team{ID: full, Name: full}, nil
}

// ResolveLabel checks that the label exists in the repository and returns its name.
func (c *Client) ResolveLabel(ctx context.Context, teamID, name string) (string, error) {
	owner, repo, err := splitRepo(teamID)
	if err != nil {
		return "", err
	}

	l, _, err := c.gh.Issues.GetLabel(ctx, owner, repo, name)
	if err != nil {
		return "", classifyError(err, "resolving label "+name)
	}
	return l.GetName(), nil
}

func (c *Client) CreateIssue(ctx context.Context, title, description, teamID string, labelIDs []string) (models.Issue, error) {
	owner, repo, err := splitRepo(teamID)
	if err != nil {
		return models.Issue{}, err
	}

	req := &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(description),
	}
	if len(labelIDs) > 0 {
		labels := append([]string(nil), labelIDs...)
		req.Labels = &labels
	}

	iss, _, err := c.gh.Issues.Create(ctx, owner, repo, req)
	if err != nil {
		return models.Issue{}, classifyError(err, "creating issue in "+teamID)
	}

	n := iss.GetNumber()
	return models.Issue{
		ID:         fmt.Sprintf("%s/%s#%d", owner, repo, n),
		Identifier: fmt.Sprintf("#%d", n),
		URL:        iss.GetHTMLURL(),
	}, nil
}

func (c *Client) AddComment(ctx context.Context, issueID, body string) (string, error) {
	owner, repo, number, err := splitIssueID(issueID)
	if err != nil {
		return "", err
	}

	cmt, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: github.String(body)})
	if err != nil {
		// A deleted or transferred issue is a remote failure from the reporter's
		// point of view, not a lookup miss.
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) {
			return "", errors.Wrapf(models.ErrTrackerRemote, "commenting on %s: %v", issueID, err)
		}
		return "", classifyError(err, "commenting on "+issueID)
	}
	return strconv.FormatInt(cmt.GetID(), 10), nil
}

// classifyError maps go-github and transport errors to the tracker sentinels.
func classifyError(err error, action string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Wrapf(models.ErrTrackerTimeout, "%s: %v", action, err)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return errors.Wrapf(models.ErrTrackerRemote, "%s: rate limited: %v", action, err)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		if ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return errors.Wrapf(models.ErrTrackerNotFound, "%s", action)
		}
		return errors.Wrapf(models.ErrTrackerRemote, "%s: %v", action, err)
	}

	return errors.Wrapf(models.ErrTrackerUnreachable, "%s: %v", action, err)
}

func splitRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errors.Wrapf(models.ErrTrackerNotFound, "repository must be owner/repo, got %q", s)
	}
	return owner, repo, nil
}

func splitIssueID(s string) (owner, repo string, number int, err error) {
	full, num, ok := strings.Cut(s, "#")
	if !ok {
		return "", "", 0, errors.Wrapf(models.ErrTrackerRemote, "malformed issue id %q", s)
	}
	owner, repo, err = splitRepo(full)
	if err != nil {
		return "", "", 0, err
	}
	number, err = strconv.Atoi(num)
	if err != nil || number <= 0 {
		return "", "", 0, errors.Wrapf(models.ErrTrackerRemote, "malformed issue number in %q", s)
	}
	return owner, repo, number, nil
}

// Compile-time check that Client implements IssueTracker.
var _ models.IssueTracker = (*Client)(nil)
