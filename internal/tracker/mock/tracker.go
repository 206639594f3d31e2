package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

// Tracker satisfies models.IssueTracker for testing. Unset funcs return
// zero values; every call is counted.
type Tracker struct {
	Name_            string
	ResolveTeamFunc  func(ctx context.Context, identifier string) (models.Team, error)
	ResolveLabelFunc func(ctx context.Context, teamID, name string) (string, error)
	CreateIssueFunc  func(ctx context.Context, title, description, teamID string, labelIDs []string) (models.Issue, error)
	AddCommentFunc   func(ctx context.Context, issueID, body string) (string, error)

	mu       sync.Mutex
	created  []CreateCall
	comments []CommentCall
}

// CreateCall records the arguments of one CreateIssue call.
type CreateCall struct {
	Title       string
	Description string
	TeamID      string
	LabelIDs    []string
}

// CommentCall records the arguments of one AddComment call.
type CommentCall struct {
	IssueID string
	Body    string
}

func (m *Tracker) Name() string { return m.Name_ }

func (m *Tracker) ResolveTeam(ctx context.Context, identifier string) (models.Team, error) {
	if m.ResolveTeamFunc != nil {
		return m.ResolveTeamFunc(ctx, identifier)
	}
	return models.Team{}, nil
}

func (m *Tracker) ResolveLabel(ctx context.Context, teamID, name string) (string, error) {
	if m.ResolveLabelFunc != nil {
		return m.ResolveLabelFunc(ctx, teamID, name)
	}
	return "", nil
}

func (m *Tracker) CreateIssue(ctx context.Context, title, description, teamID string, labelIDs []string) (models.Issue, error) {
	m.mu.Lock()
	m.created = append(m.created, CreateCall{Title: title, Description: description, TeamID: teamID, LabelIDs: labelIDs})
	m.mu.Unlock()

	if m.CreateIssueFunc != nil {
		return m.CreateIssueFunc(ctx, title, description, teamID, labelIDs)
	}
	return models.Issue{}, nil
}

func (m *Tracker) AddComment(ctx context.Context, issueID, body string) (string, error) {
	m.mu.Lock()
	m.comments = append(m.comments, CommentCall{IssueID: issueID, Body: body})
	m.mu.Unlock()

	if m.AddCommentFunc != nil {
		return m.AddCommentFunc(ctx, issueID, body)
	}
	return "", nil
}

// Created returns a copy of every CreateIssue call so far.
func (m *Tracker) Created() []CreateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CreateCall(nil), m.created...)
}

// Comments returns a copy of every AddComment call so far.
func (m *Tracker) Comments() []CommentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CommentCall(nil), m.comments...)
}

// NewTracker returns a Tracker that resolves any team, creates issues with
// sequential identifiers and accepts every comment.
func NewTracker() *Tracker {
	var mu sync.Mutex
	seq := 0
	return &Tracker{
		Name_: "mock",
		ResolveTeamFunc: func(_ context.Context, identifier string) (models.Team, error) {
			return models.Team{ID: uuid.NewString(), Name: identifier}, nil
		},
		ResolveLabelFunc: func(_ context.Context, _, name string) (string, error) {
			return "label-" + name, nil
		},
		CreateIssueFunc: func(_ context.Context, _, _, _ string, _ []string) (models.Issue, error) {
			mu.Lock()
			seq++
			n := seq
			mu.Unlock()
			id := uuid.NewString()
			return models.Issue{
				ID:         id,
				Identifier: fmt.Sprintf("MOCK-%d", n),
				URL:        fmt.Sprintf("https://tracker.example/issue/MOCK-%d", n),
			}, nil
		},
		AddCommentFunc: func(_ context.Context, _, _ string) (string, error) {
			return uuid.NewString(), nil
		},
	}
}

// NewFailingTracker returns a Tracker whose every call fails with err.
func NewFailingTracker(err error) *Tracker {
	return &Tracker{
		Name_: "mock-failing",
		ResolveTeamFunc: func(_ context.Context, _ string) (models.Team, error) {
			return models.Team{}, err
		},
		ResolveLabelFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", err
		},
		CreateIssueFunc: func(_ context.Context, _, _, _ string, _ []string) (models.Issue, error) {
			return models.Issue{}, err
		},
		AddCommentFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutTracker returns a Tracker that blocks until the context is cancelled.
func NewTimeoutTracker() *Tracker {
	return &Tracker{
		Name_: "mock-timeout",
		ResolveTeamFunc: func(ctx context.Context, _ string) (models.Team, error) {
			<-ctx.Done()
			return models.Team{}, models.ErrTrackerTimeout
		},
		CreateIssueFunc: func(ctx context.Context, _, _, _ string, _ []string) (models.Issue, error) {
			<-ctx.Done()
			return models.Issue{}, models.ErrTrackerTimeout
		},
		AddCommentFunc: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", models.ErrTrackerTimeout
		},
	}
}

// Compile-time check that Tracker implements IssueTracker.
var _ models.IssueTracker = (*Tracker)(nil)
