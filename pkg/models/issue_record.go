package models

import (
	"time"

	"github.com/google/uuid"
)

// IssueRecord is the ledger row for one error signature and the issue that
// currently represents it. It is an audit trail; dedup never reads it back.
type IssueRecord struct {
	ID               uuid.UUID `db:"id"                json:"id"`
	Signature        string    `db:"signature"         json:"signature"`
	Tracker          string    `db:"tracker"           json:"tracker"`
	IssueID          string    `db:"issue_id"          json:"issue_id"`
	IssueIdentifier  string    `db:"issue_identifier"  json:"issue_identifier"`
	IssueURL         string    `db:"issue_url"         json:"issue_url"`
	Title            string    `db:"title"             json:"title"`
	Environment      string    `db:"environment"       json:"environment"`
	OccurrenceCount  int       `db:"occurrence_count"  json:"occurrence_count"`
	TotalOccurrences int       `db:"total_occurrences" json:"total_occurrences"`
	FirstSeenAt      time.Time `db:"first_seen_at"     json:"first_seen_at"`
	LastSeenAt       time.Time `db:"last_seen_at"      json:"last_seen_at"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"        json:"updated_at"`
}
