package counting

import (
	"context"
	"sync"

	"stocktake/internal/core/id"
	"stocktake/internal/domain/reconciliation"
	"stocktake/pkg/logger"
)

// Manager owns the live counting sessions of this process, one per
// draft key. Opening the same count twice returns the same session.
type Manager struct {
	products  ProductLookup
	submitter Submitter
	drafts    DraftStore
	scheduler Scheduler

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(products ProductLookup, submitter Submitter, drafts DraftStore, scheduler Scheduler) *Manager {
	if scheduler == nil {
		scheduler = RealScheduler()
	}
	return &Manager{
		products:  products,
		submitter: submitter,
		drafts:    drafts,
		scheduler: scheduler,
		sessions:  make(map[string]*Session),
	}
}

// Open returns the session for (user, location/record), creating it and
// restoring its draft if needed. The second return says whether a saved
// draft was loaded.
func (m *Manager) Open(ctx context.Context, userID string, locationID id.ID, editingRecordID *id.ID, policy reconciliation.Policy) (*Session, bool, error) {
	key := DraftKey(userID, locationID, editingRecordID)

	m.mu.Lock()
	if existing, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return existing, false, nil
	}
	m.mu.Unlock()

	session, err := NewSession(SessionConfig{
		UserID:          userID,
		LocationID:      locationID,
		EditingRecordID: editingRecordID,
		Policy:          policy,
		Products:        m.products,
		Submitter:       m.submitter,
		Drafts:          m.drafts,
		Scheduler:       m.scheduler,
	})
	if err != nil {
		return nil, false, err
	}

	restored, err := session.RestoreDraft(ctx)
	if err != nil {
		// A broken draft must not block a fresh count.
		logger.Warn(ctx, "draft restore failed, starting empty", "key", key, "error", err)
		restored = false
	}

	m.mu.Lock()
	// Another request may have opened the same session meanwhile.
	if existing, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return existing, false, nil
	}
	m.sessions[key] = session
	m.mu.Unlock()

	return session, restored, nil
}

// Get returns a live session by draft key.
func (m *Manager) Get(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	return s, ok
}

// RecordConfirmed drops the edit session and saved draft for a record
// that reached its terminal state. Best-effort: a draft left behind
// would only restore a count whose submit can no longer succeed.
func (m *Manager) RecordConfirmed(ctx context.Context, countedBy string, recordID id.ID) {
	key := DraftKey(countedBy, id.Nil(), &recordID)

	m.mu.Lock()
	session, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok {
		session.draftSaver.Cancel()
	}

	if m.drafts != nil {
		if err := m.drafts.Delete(ctx, key); err != nil {
			logger.Warn(ctx, "confirmed record draft cleanup failed", "key", key, "error", err)
		}
	}
}

// Close removes a session from the registry. With discard the draft is
// deleted; otherwise it is flushed so the count can resume later.
func (m *Manager) Close(ctx context.Context, key string, discard bool) error {
	m.mu.Lock()
	session, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	if discard {
		return session.DiscardDraft(ctx)
	}
	return session.SaveDraftNow(ctx)
}
