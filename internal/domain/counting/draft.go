package counting

import (
	"context"
	"fmt"
	"time"

	"stocktake/internal/core/id"
)

// DraftTTL is how long an abandoned draft survives before the store
// drops it. A count older than a day is stale: stock has moved too much
// for the numbers to be trusted.
const DraftTTL = 24 * time.Hour

// Draft is the persisted snapshot of a counting session, written on a
// debounce so a crashed device can pick up where it left off.
type Draft struct {
	Timestamp    time.Time     `json:"timestamp"`
	Observations []Observation `json:"observations"`
	LocationID   id.ID         `json:"locationId"`
	PolicyHint   string        `json:"policyHint,omitempty"`
}

// IsStale reports whether the draft is older than the TTL. Stores with
// native expiry never surface stale drafts; this guards the ones that
// cannot expire on their own.
func (d *Draft) IsStale(now time.Time) bool {
	return now.Sub(d.Timestamp) > DraftTTL
}

// DraftKey builds the storage key for a session's draft. A session
// editing an existing record keys by that record so the fresh-count
// draft for the same location is not clobbered.
func DraftKey(userID string, locationID id.ID, editingRecordID *id.ID) string {
	scope := locationID.String()
	if editingRecordID != nil {
		scope = editingRecordID.String()
	}
	return fmt.Sprintf("reconciliation_draft_%s_%s", userID, scope)
}

// DraftStore persists session drafts.
type DraftStore interface {
	// Save writes a draft under key with the given TTL.
	Save(ctx context.Context, key string, draft *Draft, ttl time.Duration) error

	// Load reads a draft. Returns nil draft (no error) when absent.
	Load(ctx context.Context, key string) (*Draft, error)

	// Delete removes a draft. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteStale removes drafts older than the TTL. Stores with native
	// expiry may implement this as a no-op.
	DeleteStale(ctx context.Context) (int, error)
}
