// Package models contains shared data models used across the faultline codebase.
package models

import "time"

// ErrorContext is an immutable snapshot of one error occurrence.
// Optional fields are empty strings when absent.
type ErrorContext struct {
	Message        string         `json:"message"`
	Stack          string         `json:"stack,omitempty"`
	Timestamp      string         `json:"timestamp"`
	URL            string         `json:"url,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
	RequestMethod  string         `json:"requestMethod,omitempty"`
	Environment    string         `json:"environment"`
	UserID         string         `json:"userId,omitempty"`
	SessionID      string         `json:"sessionId,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
}

// CacheEntry maps an error signature to the external issue currently representing it.
type CacheEntry struct {
	IssueID         string    `json:"issue_id"`
	IssueIdentifier string    `json:"issue_identifier"`
	LastOccurrence  time.Time `json:"last_occurrence"`
	OccurrenceCount int       `json:"occurrence_count"`
}
