package groups

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/fingerprint"
)

func newTestTracker() *Tracker {
	return NewTracker(fingerprint.NewEngine(nil), nil)
}

func sampleRecord(projectID string) errordata.ErrorRecord {
	return errordata.ErrorRecord{
		ID:        "e1",
		ProjectID: projectID,
		Type:      "TypeError",
		Message:   "Cannot read properties of undefined",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTracker_GroupingIdempotence(t *testing.T) {
	tr := newTestTracker()

	var group errordata.ErrorGroup
	for i := 0; i < 5; i++ {
		group, _ = tr.Record(sampleRecord("p1"))
	}

	assert.Equal(t, 5, group.Count)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, errordata.StatusOpen, group.Status)
}

func TestTracker_ProjectsAreIsolated(t *testing.T) {
	tr := newTestTracker()

	g1, fp1 := tr.Record(sampleRecord("p1"))
	g2, fp2 := tr.Record(sampleRecord("p2"))

	assert.Equal(t, fp1, fp2)
	assert.NotEqual(t, g1.ID, g2.ID)
	assert.Equal(t, 2, tr.Len())
}

func TestTracker_ResolvedGroupReopensOnRecurrence(t *testing.T) {
	tr := newTestTracker()

	group, _ := tr.Record(sampleRecord("p1"))
	require.NoError(t, tr.Resolve(group.ID))

	got, err := tr.Get(group.ID)
	require.NoError(t, err)
	assert.Equal(t, errordata.StatusResolved, got.Status)

	reopened, _ := tr.Record(sampleRecord("p1"))
	assert.Equal(t, errordata.StatusOpen, reopened.Status)
	assert.Equal(t, 2, reopened.Count)
}

func TestTracker_IgnoredGroupStaysIgnored(t *testing.T) {
	tr := newTestTracker()

	group, _ := tr.Record(sampleRecord("p1"))
	require.NoError(t, tr.Ignore(group.ID))

	after, _ := tr.Record(sampleRecord("p1"))
	assert.Equal(t, errordata.StatusIgnored, after.Status)
	assert.Equal(t, 2, after.Count)
}

func TestTracker_LastSeenAdvances(t *testing.T) {
	tr := newTestTracker()

	first := sampleRecord("p1")
	group, _ := tr.Record(first)
	assert.Equal(t, first.Timestamp, group.FirstSeen)

	later := sampleRecord("p1")
	later.Timestamp = first.Timestamp.Add(time.Hour)
	group, _ = tr.Record(later)

	assert.Equal(t, first.Timestamp, group.FirstSeen)
	assert.Equal(t, later.Timestamp, group.LastSeen)
}

func TestTracker_RecordImpact(t *testing.T) {
	tr := newTestTracker()

	group, fp := tr.Record(sampleRecord("p1"))
	tr.RecordImpact("p1", fp, 3)
	tr.RecordImpact("p1", fp, 2)

	got, err := tr.Get(group.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AffectedUsers)

	// Unknown fingerprints are ignored, never an error.
	tr.RecordImpact("p1", "missing", 1)
}

func TestTracker_StatusOpsOnMissingGroup(t *testing.T) {
	tr := newTestTracker()

	assert.ErrorIs(t, tr.Resolve("missing"), ErrGroupNotFound)
	assert.ErrorIs(t, tr.Ignore("missing"), ErrGroupNotFound)
	_, err := tr.Get("missing")
	assert.ErrorIs(t, err, ErrGroupNotFound)
	_, err = tr.Lookup("p1", "missing")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestTracker_SnapshotAndLoad(t *testing.T) {
	tr := newTestTracker()

	group, fp := tr.Record(sampleRecord("p1"))
	tr.Record(sampleRecord("p1"))

	snapshot := tr.Snapshot()
	require.Len(t, snapshot, 1)

	restored := newTestTracker()
	restored.Load(snapshot)

	got, err := restored.Lookup("p1", fp)
	require.NoError(t, err)
	assert.Equal(t, group.ID, got.ID)
	assert.Equal(t, 2, got.Count)

	// Recording against restored state increments, not duplicates.
	again, _ := restored.Record(sampleRecord("p1"))
	assert.Equal(t, 3, again.Count)
	assert.Equal(t, 1, restored.Len())
}
