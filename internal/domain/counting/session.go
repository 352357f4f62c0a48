package counting

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/domain/catalogs/product"
	"stocktake/internal/domain/reconciliation"
	"stocktake/pkg/logger"
)

// ProductLookup resolves scanned barcodes.
type ProductLookup interface {
	FindByBarcode(ctx context.Context, barcode string) (*product.Product, error)
}

// Submitter turns a finished count into a reconciliation record.
// Implemented by the reconciliation service.
type Submitter interface {
	Create(ctx context.Context, locationID id.ID, countedBy string, policy reconciliation.Policy, counts []reconciliation.CountInput) (*reconciliation.Record, error)
	UpdateCounts(ctx context.Context, recordID id.ID, counts []reconciliation.CountInput) (*reconciliation.Record, error)
}

// SessionConfig wires a counting session.
type SessionConfig struct {
	UserID     string
	LocationID id.ID

	// EditingRecordID is set when the session corrects an existing
	// pending record instead of creating a new one.
	EditingRecordID *id.ID

	Policy reconciliation.Policy

	Products  ProductLookup
	Submitter Submitter
	Drafts    DraftStore

	// Scheduler defaults to wall clock; tests inject their own.
	Scheduler Scheduler
}

// Session is one user's live count at one location. All methods are
// safe for concurrent use; a device may fire scans from multiple
// goroutines.
type Session struct {
	userID          string
	locationID      id.ID
	editingRecordID *id.ID
	policy          reconciliation.Policy

	products  ProductLookup
	submitter Submitter
	drafts    DraftStore

	mu  sync.Mutex
	acc *Accumulator

	draftSaver *Debouncer

	// submitting is the single-flight guard: a second Submit while one
	// is in flight is rejected, not queued.
	submitting atomic.Bool
}

// NewSession creates a counting session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.UserID == "" {
		return nil, apperror.NewValidation("counting user is required").
			WithDetail("field", "userId")
	}
	if id.IsNil(cfg.LocationID) {
		return nil, apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	if _, err := reconciliation.ParsePolicy(string(cfg.Policy)); err != nil {
		return nil, err
	}

	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = RealScheduler()
	}

	s := &Session{
		userID:          cfg.UserID,
		locationID:      cfg.LocationID,
		editingRecordID: cfg.EditingRecordID,
		policy:          cfg.Policy,
		products:        cfg.Products,
		submitter:       cfg.Submitter,
		drafts:          cfg.Drafts,
		acc:             NewAccumulator(),
	}

	s.draftSaver = NewDebouncer(scheduler, DraftDebounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.SaveDraftNow(ctx); err != nil {
			logger.Warn(ctx, "draft save failed", "key", s.DraftKey(), "error", err)
		}
	})

	return s, nil
}

// DraftKey returns the storage key for this session's draft.
func (s *Session) DraftKey() string {
	return DraftKey(s.userID, s.locationID, s.editingRecordID)
}

// LocationID returns the counted location.
func (s *Session) LocationID() id.ID {
	return s.locationID
}

// ScanBarcode resolves a barcode and stacks the scanned quantity.
// An unknown barcode fails just this scan; the session keeps going.
func (s *Session) ScanBarcode(ctx context.Context, barcode string, kind UnitKind, delta int64) (*product.Product, error) {
	prod, err := s.products.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}

	s.ScanProduct(prod.ID, kind, delta)
	return prod, nil
}

// ScanProduct stacks a scanned quantity onto the product's bucket.
func (s *Session) ScanProduct(productID id.ID, kind UnitKind, delta int64) {
	s.mu.Lock()
	s.acc.Scan(productID, kind, delta)
	s.mu.Unlock()

	s.draftSaver.Trigger()
}

// SetQuantity overwrites a bucket with a typed quantity (count list
// flow). Explicit zeros are kept, negatives clamp to zero.
func (s *Session) SetQuantity(productID id.ID, kind UnitKind, qty int64) {
	s.mu.Lock()
	s.acc.Set(productID, kind, qty)
	s.mu.Unlock()

	s.draftSaver.Trigger()
}

// RemoveProduct drops both buckets for a product.
func (s *Session) RemoveProduct(productID id.ID) {
	s.mu.Lock()
	s.acc.Remove(productID, UnitCarton)
	s.acc.Remove(productID, UnitSingle)
	s.mu.Unlock()

	s.draftSaver.Trigger()
}

// Observations returns the current buckets in first-seen order.
func (s *Session) Observations() []Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.Observations()
}

// SaveDraftNow writes the draft snapshot immediately, bypassing the
// debounce.
func (s *Session) SaveDraftNow(ctx context.Context) error {
	if s.drafts == nil {
		return nil
	}

	s.mu.Lock()
	draft := &Draft{
		Timestamp:    time.Now().UTC(),
		Observations: s.acc.Observations(),
		LocationID:   s.locationID,
		PolicyHint:   string(s.policy),
	}
	s.mu.Unlock()

	return s.drafts.Save(ctx, s.DraftKey(), draft, DraftTTL)
}

// RestoreDraft loads a previously saved draft into the session.
// Returns false when there is nothing usable to restore.
func (s *Session) RestoreDraft(ctx context.Context) (bool, error) {
	if s.drafts == nil {
		return false, nil
	}

	draft, err := s.drafts.Load(ctx, s.DraftKey())
	if err != nil {
		return false, err
	}
	if draft == nil {
		return false, nil
	}

	if draft.IsStale(time.Now().UTC()) {
		// A day-old count is noise, not data. Drop it.
		if err := s.drafts.Delete(ctx, s.DraftKey()); err != nil {
			logger.Warn(ctx, "stale draft delete failed", "key", s.DraftKey(), "error", err)
		}
		return false, nil
	}

	s.mu.Lock()
	s.acc.Restore(draft.Observations)
	s.mu.Unlock()

	logger.Info(ctx, "counting draft restored",
		"key", s.DraftKey(),
		"observations", len(draft.Observations),
	)
	return true, nil
}

// DiscardDraft deletes the saved draft and clears the session.
func (s *Session) DiscardDraft(ctx context.Context) error {
	s.draftSaver.Cancel()

	s.mu.Lock()
	s.acc = NewAccumulator()
	s.mu.Unlock()

	if s.drafts == nil {
		return nil
	}
	return s.drafts.Delete(ctx, s.DraftKey())
}

// Submit turns the accumulated count into a reconciliation record.
//
// Single-flight: while one submit is in flight, further calls fail fast
// with CONFLICT instead of producing duplicate records from double-taps.
func (s *Session) Submit(ctx context.Context) (*reconciliation.Record, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, apperror.NewConflict("submission already in progress").
			WithDetail("key", s.DraftKey())
	}
	defer s.submitting.Store(false)

	s.mu.Lock()
	perProduct := s.acc.PerProduct()
	s.mu.Unlock()

	if len(perProduct) == 0 {
		return nil, apperror.NewValidation("nothing counted yet").
			WithDetail("field", "observations")
	}

	counts := make([]reconciliation.CountInput, 0, len(perProduct))
	for _, pc := range perProduct {
		counts = append(counts, reconciliation.CountInput{
			ProductID: pc.ProductID,
			Counted:   pc.Counted,
		})
	}

	var record *reconciliation.Record
	var err error
	if s.editingRecordID != nil {
		record, err = s.submitter.UpdateCounts(ctx, *s.editingRecordID, counts)
	} else {
		record, err = s.submitter.Create(ctx, s.locationID, s.userID, s.policy, counts)
	}
	if err != nil {
		return nil, err
	}

	// The count is now owned by the record; the draft has served its
	// purpose.
	s.draftSaver.Cancel()
	s.mu.Lock()
	s.acc = NewAccumulator()
	s.mu.Unlock()

	if s.drafts != nil {
		if derr := s.drafts.Delete(ctx, s.DraftKey()); derr != nil {
			logger.Warn(ctx, "draft cleanup failed", "key", s.DraftKey(), "error", derr)
		}
	}

	return record, nil
}
