// Package errordata defines the core domain types for error analysis:
// raw error records, stack frames, and deduplicated error groups.
package errordata

import (
	"time"

	"github.com/google/uuid"
)

// GroupStatus is the lifecycle status of an ErrorGroup.
type GroupStatus string

const (
	// StatusOpen marks a group that is unresolved.
	StatusOpen GroupStatus = "open"

	// StatusResolved marks a group that was fixed. A new matching
	// occurrence reopens it.
	StatusResolved GroupStatus = "resolved"

	// StatusIgnored marks a group that is deliberately muted.
	// New occurrences never reopen an ignored group.
	StatusIgnored GroupStatus = "ignored"
)

// StackFrame is a single parsed frame of a stack trace.
type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Function string `json:"function,omitempty"`
}

// ErrorRecord is the unit of analysis. It is immutable once created;
// the ingest path owns its creation.
type ErrorRecord struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	Type        string       `json:"type"`
	Message     string       `json:"message"`
	StackTrace  string       `json:"stack_trace,omitempty"`
	Frames      []StackFrame `json:"frames,omitempty"`
	URL         string       `json:"url,omitempty"`
	Browser     string       `json:"browser,omitempty"`
	OS          string       `json:"os,omitempty"`
	Environment string       `json:"environment,omitempty"`
	StatusCode  int          `json:"status_code,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// NewRecord creates an ErrorRecord with a generated ID and the current
// timestamp.
func NewRecord(projectID, errType, message string) ErrorRecord {
	return ErrorRecord{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Type:      errType,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorGroup is the deduplicated identity for one fingerprint within a
// project. It is created on the first occurrence of a fingerprint and
// mutated on every subsequent matching occurrence.
type ErrorGroup struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Fingerprint string      `json:"fingerprint"`
	Type        string      `json:"type"`
	Message     string      `json:"message"`
	Count       int         `json:"count"`
	FirstSeen   time.Time   `json:"first_seen"`
	LastSeen    time.Time   `json:"last_seen"`
	Status      GroupStatus `json:"status"`

	// AffectedUsers is a best-effort impact estimate maintained by the
	// prediction path. Updating it must never fail a primary operation.
	AffectedUsers int `json:"affected_users,omitempty"`
}
