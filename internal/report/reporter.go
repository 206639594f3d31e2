package report

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/internal/config"
	"github.com/kiranshivaraju/faultline/internal/metrics"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

const (
	defaultTimeout = 5 * time.Second
	storeTimeout   = 2 * time.Second
)

var reTeamUUID = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Reporter is what error boundaries, handlers and middleware depend on.
// ReportError never panics and never returns an error: ok is false whenever
// nothing was reported, for whatever reason.
type Reporter interface {
	ReportError(ctx context.Context, ec models.ErrorContext) (issueID string, ok bool)
}

// Recorder persists a ledger row for every reported occurrence.
type Recorder interface {
	UpsertIssue(ctx context.Context, rec *models.IssueRecord) (*models.IssueRecord, error)
}

// Config is the reporter's slice of the process configuration.
type Config struct {
	Environment string
	APIKey      string
	Team        string
	Label       string
	// Timeout bounds each tracker call separately.
	Timeout time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithRecorder attaches a ledger that is written after each successful report.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the time source used for cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Status is a point-in-time view of the reporter for operators.
type Status struct {
	Enabled      bool   `json:"enabled"`
	Tracker      string `json:"tracker"`
	Team         string `json:"team"`
	TeamID       string `json:"team_id"`
	CacheEntries int    `json:"cache_entries"`
}

// Service is the deduplicating reporter. It is only enabled in production with a
// tracker credential and team configured; otherwise every call is a no-op.
type Service struct {
	tracker  models.IssueTracker
	store    Store
	recorder Recorder
	now      func() time.Time
	timeout  time.Duration
	team     string
	label    string

	mu       sync.RWMutex
	enabled  bool
	teamID   string
	labelIDs []string
}

// New builds a Service from explicit configuration. Call Initialize once at
// startup to resolve the team and label.
func New(cfg Config, tracker models.IssueTracker, store Store, opts ...Option) *Service {
	s := &Service{
		tracker: tracker,
		store:   store,
		now:     time.Now,
		timeout: cfg.Timeout,
		team:    cfg.Team,
		label:   cfg.Label,
		teamID:  cfg.Team,
		enabled: config.IsProduction(cfg.Environment) &&
			cfg.APIKey != "" && cfg.Team != "" && tracker != nil && store != nil,
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize resolves the configured team to its canonical id and the optional
// label to its id. A team that cannot be resolved disables the reporter and is
// returned as an error; a label that cannot be resolved is only logged.
func (s *Service) Initialize(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	teamID := s.team
	if !reTeamUUID.MatchString(s.team) {
		team, err := s.tracker.ResolveTeam(ctx, s.team)
		if err != nil {
			s.mu.Lock()
			s.enabled = false
			s.mu.Unlock()
			return fmt.Errorf("resolving team %q: %w", s.team, err)
		}
		teamID = team.ID
	}

	var labelIDs []string
	if s.label != "" {
		id, err := s.tracker.ResolveLabel(ctx, teamID, s.label)
		if err != nil {
			slog.Warn("error label not resolved, issues will be created without it",
				"label", s.label, "error", err)
		} else {
			labelIDs = []string{id}
		}
	}

	s.mu.Lock()
	s.teamID = teamID
	s.labelIDs = labelIDs
	s.mu.Unlock()

	slog.Info("error reporter initialized", "tracker", s.tracker.Name(), "team_id", teamID)
	return nil
}

// Enabled reports whether ReportError will contact the tracker.
func (s *Service) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Status returns the current reporter state.
func (s *Service) Status(ctx context.Context) Status {
	s.mu.RLock()
	st := Status{Enabled: s.enabled, Team: s.team, TeamID: s.teamID}
	s.mu.RUnlock()

	if s.tracker != nil {
		st.Tracker = s.tracker.Name()
	}
	if s.store != nil {
		if n, err := s.store.Len(ctx); err == nil {
			st.CacheEntries = n
		}
	}
	return st
}

// ReportError reports one occurrence. The first occurrence of a signature opens
// an issue; later ones comment on the cached issue. If commenting fails, a new
// issue is opened instead. Every failure is logged and yields ok == false.
//
// Concurrent first occurrences of the same signature are not serialized and may
// open one issue each.
func (s *Service) ReportError(ctx context.Context, ec models.ErrorContext) (issueID string, ok bool) {
	s.mu.RLock()
	enabled, teamID, labelIDs := s.enabled, s.teamID, s.labelIDs
	s.mu.RUnlock()

	if !enabled || s.tracker == nil || teamID == "" {
		metrics.RecordReport(metrics.OutcomeDisabled)
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while reporting error", "error", r)
			metrics.RecordReport(metrics.OutcomeFailed)
			issueID, ok = "", false
		}
	}()

	sig := Signature(ec.Message, ec.Stack, ec.URL)

	cached, found, err := s.lookup(ctx, sig)
	if err != nil {
		slog.Error("failed to read dedup cache", "signature", sig, "error", err)
		metrics.RecordReport(metrics.OutcomeFailed)
		return "", false
	}

	if found {
		n := cached.OccurrenceCount + 1
		err := s.comment(ctx, cached.IssueID, FormatOccurrence(n, ec))
		if err == nil {
			cached.LastOccurrence = s.now()
			cached.OccurrenceCount = n
			s.remember(ctx, sig, cached)
			s.record(ctx, sig, ec, cached, "")
			metrics.RecordReport(metrics.OutcomeCommented)
			return cached.IssueID, true
		}
		slog.Error("failed to add comment to issue, creating a new one",
			"signature", sig, "issue_id", cached.IssueID, "error", err)
		metrics.RecordReport(metrics.OutcomeCommentFailed)
	}

	issue, err := s.create(ctx, Title(ec.Message), Format(ec), teamID, labelIDs)
	if err != nil {
		slog.Error("failed to report error", "signature", sig, "error", err)
		metrics.RecordReport(metrics.OutcomeFailed)
		return "", false
	}

	entry := models.CacheEntry{
		IssueID:         issue.ID,
		IssueIdentifier: issue.Identifier,
		LastOccurrence:  s.now(),
		OccurrenceCount: 1,
	}
	s.remember(ctx, sig, entry)
	s.record(ctx, sig, ec, entry, issue.URL)
	metrics.RecordReport(metrics.OutcomeCreated)

	slog.Info("issue created for error", "signature", sig, "issue", issue.Identifier)
	return issue.ID, true
}

// comment and create each get their own timeout, so a comment that hangs until
// its deadline still leaves the fallback create a full budget.
func (s *Service) comment(ctx context.Context, issueID, body string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	_, err := s.tracker.AddComment(ctx, issueID, body)
	metrics.ObserveTracker("add_comment", start)
	return err
}

func (s *Service) create(ctx context.Context, title, description, teamID string, labelIDs []string) (models.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	issue, err := s.tracker.CreateIssue(ctx, title, description, teamID, labelIDs)
	metrics.ObserveTracker("create_issue", start)
	return issue, err
}

func (s *Service) lookup(ctx context.Context, sig string) (models.CacheEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.store.Get(ctx, sig)
}

// persistContext bounds the writes made after the tracker has answered. They
// are detached from the caller's cancellation: the issue already exists, and
// losing the cache entry would open a duplicate on the next occurrence.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
}

// remember writes the cache entry. The issue already exists, so a cache failure
// only costs deduplication of the next occurrence.
func (s *Service) remember(ctx context.Context, sig string, entry models.CacheEntry) {
	ctx, cancel := persistContext(ctx)
	defer cancel()
	if err := s.store.Put(ctx, sig, entry); err != nil {
		slog.Warn("failed to update dedup cache", "signature", sig, "error", err)
	}
}

func (s *Service) record(ctx context.Context, sig string, ec models.ErrorContext, entry models.CacheEntry, issueURL string) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := persistContext(ctx)
	defer cancel()

	now := entry.LastOccurrence.UTC()
	rec := &models.IssueRecord{
		ID:               uuid.New(),
		Signature:        sig,
		Tracker:          s.tracker.Name(),
		IssueID:          entry.IssueID,
		IssueIdentifier:  entry.IssueIdentifier,
		IssueURL:         issueURL,
		Title:            Title(ec.Message),
		Environment:      ec.Environment,
		OccurrenceCount:  entry.OccurrenceCount,
		TotalOccurrences: 1,
		FirstSeenAt:      now,
		LastSeenAt:       now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.recorder.UpsertIssue(ctx, rec); err != nil {
		slog.Warn("failed to record issue in ledger", "signature", sig, "error", err)
	}
}

// Compile-time check that Service implements Reporter.
var _ Reporter = (*Service)(nil)
