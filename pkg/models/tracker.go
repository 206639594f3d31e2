package models

import (
	"context"
	"errors"
)

// Sentinel errors shared by every issue-tracker backend.
var (
	ErrTrackerNotFound    = errors.New("issue tracker: not found")
	ErrTrackerRemote      = errors.New("issue tracker: remote error")
	ErrTrackerUnreachable = errors.New("issue tracker: unreachable")
	ErrTrackerTimeout     = errors.New("issue tracker: timeout")
)

// IssueTracker is the interface every issue-tracker integration implements.
// The reporter only ever talks to this interface.
type IssueTracker interface {
	// Name returns the backend identifier (e.g., "linear", "github").
	Name() string
	// ResolveTeam maps a team name, key or raw id to its canonical id.
	ResolveTeam(ctx context.Context, identifier string) (Team, error)
	// ResolveLabel maps a label name to the id passed to CreateIssue.
	ResolveLabel(ctx context.Context, teamID, name string) (string, error)
	// CreateIssue opens a new issue and returns its handle.
	CreateIssue(ctx context.Context, title, description, teamID string, labelIDs []string) (Issue, error)
	// AddComment appends a comment to an existing issue and returns the comment id.
	AddComment(ctx context.Context, issueID, body string) (string, error)
}

// Team is a resolved issue-tracker team or project.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issue is the handle returned by the tracker for a created issue.
type Issue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	URL        string `json:"url"`
}
