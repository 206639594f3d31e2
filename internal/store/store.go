package store

import (
	"context"
	"errors"
	"time"

	"github.com/kiranshivaraju/faultline/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the data access interface for the issue ledger.
type Store interface {
	Ping(ctx context.Context) error

	UpsertIssue(ctx context.Context, rec *models.IssueRecord) (*models.IssueRecord, error)
	ListIssues(ctx context.Context, filter IssueFilter) ([]*models.IssueRecord, int, error)
	GetIssue(ctx context.Context, signature string) (*models.IssueRecord, error)
}

type IssueFilter struct {
	Tracker     string
	Environment string
	Since       time.Time
	Page        int
	Limit       int
}
