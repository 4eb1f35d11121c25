// Package groups maintains the deduplicated ErrorGroup lifecycle:
// create-or-increment on ingest, resolve/ignore transitions, and the
// best-effort impact counters updated by the prediction path.
package groups

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/fingerprint"
)

// ErrGroupNotFound is returned when a group ID or fingerprint does not
// resolve to a known group.
var ErrGroupNotFound = errors.New("error group not found")

// Tracker resolves incoming errors to their ErrorGroup. Groups are
// keyed by project and fingerprint, so the same fingerprint in two
// projects yields two independent groups.
type Tracker struct {
	engine *fingerprint.Engine
	logger *zap.Logger

	mu    sync.RWMutex
	byKey map[string]*errordata.ErrorGroup
	byID  map[string]*errordata.ErrorGroup
}

// NewTracker creates an empty tracker.
func NewTracker(engine *fingerprint.Engine, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		engine: engine,
		logger: logger,
		byKey:  map[string]*errordata.ErrorGroup{},
		byID:   map[string]*errordata.ErrorGroup{},
	}
}

func groupKey(projectID, fp string) string {
	return projectID + "/" + fp
}

// Record resolves the record to its group, creating it on first
// occurrence and incrementing count and lastSeen on every subsequent
// one. A resolved group reopens on recurrence; an ignored group keeps
// its status. Returns the group and its fingerprint.
func (t *Tracker) Record(rec errordata.ErrorRecord) (errordata.ErrorGroup, string) {
	fp := t.engine.Fingerprint(rec)
	key := groupKey(rec.ProjectID, fp)

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	group, ok := t.byKey[key]
	if !ok {
		group = &errordata.ErrorGroup{
			ID:          uuid.NewString(),
			ProjectID:   rec.ProjectID,
			Fingerprint: fp,
			Type:        rec.Type,
			Message:     rec.Message,
			Count:       1,
			FirstSeen:   ts,
			LastSeen:    ts,
			Status:      errordata.StatusOpen,
		}
		t.byKey[key] = group
		t.byID[group.ID] = group
		t.logger.Debug("created error group",
			zap.String("group_id", group.ID),
			zap.String("fingerprint", fp))
		return *group, fp
	}

	group.Count++
	if ts.After(group.LastSeen) {
		group.LastSeen = ts
	}
	if group.Status == errordata.StatusResolved {
		group.Status = errordata.StatusOpen
		t.logger.Info("reopened resolved group",
			zap.String("group_id", group.ID),
			zap.Int("count", group.Count))
	}
	return *group, fp
}

// Get returns a group by ID.
func (t *Tracker) Get(groupID string) (errordata.ErrorGroup, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	group, ok := t.byID[groupID]
	if !ok {
		return errordata.ErrorGroup{}, ErrGroupNotFound
	}
	return *group, nil
}

// Lookup returns the group for a project and fingerprint.
func (t *Tracker) Lookup(projectID, fp string) (errordata.ErrorGroup, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	group, ok := t.byKey[groupKey(projectID, fp)]
	if !ok {
		return errordata.ErrorGroup{}, ErrGroupNotFound
	}
	return *group, nil
}

// Resolve marks a group resolved.
func (t *Tracker) Resolve(groupID string) error {
	return t.setStatus(groupID, errordata.StatusResolved)
}

// Ignore mutes a group. Ignored groups never reopen on recurrence.
func (t *Tracker) Ignore(groupID string) error {
	return t.setStatus(groupID, errordata.StatusIgnored)
}

func (t *Tracker) setStatus(groupID string, status errordata.GroupStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	group, ok := t.byID[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	group.Status = status
	return nil
}

// RecordImpactFor bumps the affected-users estimate for the group the
// record's fingerprint resolves to, without counting a new occurrence.
func (t *Tracker) RecordImpactFor(rec errordata.ErrorRecord, users int) {
	t.RecordImpact(rec.ProjectID, t.engine.Fingerprint(rec), users)
}

// RecordImpact bumps the affected-users estimate for the group owning
// the fingerprint. Missing groups are logged and skipped: impact is a
// secondary metric and must never fail the calling operation.
func (t *Tracker) RecordImpact(projectID, fp string, users int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	group, ok := t.byKey[groupKey(projectID, fp)]
	if !ok {
		t.logger.Debug("impact update for unknown group",
			zap.String("project_id", projectID),
			zap.String("fingerprint", fp))
		return
	}
	group.AffectedUsers += users
}

// Snapshot exports all groups for persistence.
func (t *Tracker) Snapshot() []errordata.ErrorGroup {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]errordata.ErrorGroup, 0, len(t.byKey))
	for _, group := range t.byKey {
		out = append(out, *group)
	}
	return out
}

// Load replaces the tracker state with persisted groups.
func (t *Tracker) Load(groups []errordata.ErrorGroup) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byKey = make(map[string]*errordata.ErrorGroup, len(groups))
	t.byID = make(map[string]*errordata.ErrorGroup, len(groups))
	for i := range groups {
		group := groups[i]
		t.byKey[groupKey(group.ProjectID, group.Fingerprint)] = &group
		t.byID[group.ID] = &group
	}
}

// Len returns the number of tracked groups.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byKey)
}
