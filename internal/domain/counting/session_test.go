package counting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
	"stocktake/internal/domain/catalogs/product"
	"stocktake/internal/domain/reconciliation"
)

type fakeLookup struct {
	byBarcode map[string]*product.Product
}

func (f *fakeLookup) FindByBarcode(_ context.Context, barcode string) (*product.Product, error) {
	if prod, ok := f.byBarcode[barcode]; ok {
		return prod, nil
	}
	return nil, apperror.NewNotFound("product", barcode)
}

type fakeDraftStore struct {
	mu     sync.Mutex
	drafts map[string]*Draft
	saves  int
	loadErr error
	saveErr error
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{drafts: make(map[string]*Draft)}
}

func (f *fakeDraftStore) Save(_ context.Context, key string, draft *Draft, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.drafts[key] = draft
	return nil
}

func (f *fakeDraftStore) Load(_ context.Context, key string) (*Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.drafts[key], nil
}

func (f *fakeDraftStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.drafts, key)
	return nil
}

func (f *fakeDraftStore) DeleteStale(_ context.Context) (int, error) {
	return 0, nil
}

func (f *fakeDraftStore) get(key string) *Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[key]
}

type fakeSubmitter struct {
	mu          sync.Mutex
	created     []reconciliation.CountInput
	updated     map[id.ID][]reconciliation.CountInput
	createCalls int
	updateCalls int
	err         error

	// block, when set, is closed by the test to release an in-flight call.
	block   chan struct{}
	started chan struct{}
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{updated: make(map[id.ID][]reconciliation.CountInput)}
}

func (f *fakeSubmitter) Create(_ context.Context, locationID id.ID, countedBy string, policy reconciliation.Policy, counts []reconciliation.CountInput) (*reconciliation.Record, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.createCalls++
	f.created = counts
	return reconciliation.NewRecord(locationID, countedBy, policy), nil
}

func (f *fakeSubmitter) UpdateCounts(_ context.Context, recordID id.ID, counts []reconciliation.CountInput) (*reconciliation.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.updateCalls++
	f.updated[recordID] = counts
	return &reconciliation.Record{}, nil
}

func testProduct(barcode string, perCarton int64) *product.Product {
	prod := product.NewProduct("PR-1", "Cola 330ml", perCarton)
	prod.ID = id.New()
	prod.Barcode = &barcode
	return prod
}

func newTestSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	if cfg.UserID == "" {
		cfg.UserID = "user-7"
	}
	if id.IsNil(cfg.LocationID) {
		cfg.LocationID = id.New()
	}
	if cfg.Policy == "" {
		cfg.Policy = reconciliation.PolicyDelta
	}
	session, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}

func TestNewSessionValidation(t *testing.T) {
	base := SessionConfig{
		UserID:     "user-7",
		LocationID: id.New(),
		Policy:     reconciliation.PolicyDelta,
	}

	missingUser := base
	missingUser.UserID = ""
	if _, err := NewSession(missingUser); err == nil {
		t.Error("expected error for missing user")
	}

	missingLocation := base
	missingLocation.LocationID = id.Nil()
	if _, err := NewSession(missingLocation); err == nil {
		t.Error("expected error for missing location")
	}

	badPolicy := base
	badPolicy.Policy = "AVERAGE"
	if _, err := NewSession(badPolicy); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestScanBarcodeUnknownFailsOnlyThatScan(t *testing.T) {
	cola := testProduct("4001", 12)
	sched := &fakeScheduler{}
	session := newTestSession(t, SessionConfig{
		Products:  &fakeLookup{byBarcode: map[string]*product.Product{"4001": cola}},
		Scheduler: sched,
	})

	if _, err := session.ScanBarcode(context.Background(), "9999", UnitSingle, 1); !apperror.IsNotFound(err) {
		t.Fatalf("unknown barcode error = %v, want NOT_FOUND", err)
	}
	if len(session.Observations()) != 0 {
		t.Error("failed scan must not add an observation")
	}

	prod, err := session.ScanBarcode(context.Background(), "4001", UnitSingle, 2)
	if err != nil {
		t.Fatalf("ScanBarcode: %v", err)
	}
	if prod.ID != cola.ID {
		t.Error("resolved wrong product")
	}
	obs := session.Observations()
	if len(obs) != 1 || obs[0].Quantity != 2 {
		t.Errorf("observations = %+v, want one bucket of 2", obs)
	}
}

func TestDebouncedDraftSave(t *testing.T) {
	drafts := newFakeDraftStore()
	sched := &fakeScheduler{}
	session := newTestSession(t, SessionConfig{
		Drafts:    drafts,
		Scheduler: sched,
	})
	prod := id.New()

	session.ScanProduct(prod, UnitSingle, 1)
	session.ScanProduct(prod, UnitSingle, 1)
	session.SetQuantity(prod, UnitCarton, 3)

	if drafts.saves != 0 {
		t.Fatalf("draft saved %d times before debounce fired", drafts.saves)
	}

	sched.Fire()

	if drafts.saves != 1 {
		t.Fatalf("draft saved %d times, want 1 (burst coalesced)", drafts.saves)
	}
	draft := drafts.get(session.DraftKey())
	if draft == nil {
		t.Fatal("draft not stored under session key")
	}
	if len(draft.Observations) != 2 {
		t.Errorf("draft has %d observations, want 2", len(draft.Observations))
	}
	if draft.LocationID != session.LocationID() {
		t.Error("draft location does not match session")
	}
	if draft.PolicyHint != string(reconciliation.PolicyDelta) {
		t.Errorf("policy hint = %q", draft.PolicyHint)
	}
}

func TestRestoreDraft(t *testing.T) {
	drafts := newFakeDraftStore()
	userID, locationID := "user-7", id.New()
	prod := id.New()
	key := DraftKey(userID, locationID, nil)
	drafts.drafts[key] = &Draft{
		Timestamp:    time.Now().UTC().Add(-time.Hour),
		Observations: []Observation{{ProductID: prod, UnitKind: UnitSingle, Quantity: 5}},
		LocationID:   locationID,
	}

	session := newTestSession(t, SessionConfig{
		UserID:     userID,
		LocationID: locationID,
		Drafts:     drafts,
		Scheduler:  &fakeScheduler{},
	})

	restored, err := session.RestoreDraft(context.Background())
	if err != nil {
		t.Fatalf("RestoreDraft: %v", err)
	}
	if !restored {
		t.Fatal("expected draft to be restored")
	}
	obs := session.Observations()
	if len(obs) != 1 || obs[0].Quantity != 5 {
		t.Errorf("observations = %+v, want the saved bucket of 5", obs)
	}
}

func TestRestoreDraftDropsStale(t *testing.T) {
	drafts := newFakeDraftStore()
	userID, locationID := "user-7", id.New()
	key := DraftKey(userID, locationID, nil)
	drafts.drafts[key] = &Draft{
		Timestamp:    time.Now().UTC().Add(-25 * time.Hour),
		Observations: []Observation{{ProductID: id.New(), UnitKind: UnitSingle, Quantity: 5}},
		LocationID:   locationID,
	}

	session := newTestSession(t, SessionConfig{
		UserID:     userID,
		LocationID: locationID,
		Drafts:     drafts,
		Scheduler:  &fakeScheduler{},
	})

	restored, err := session.RestoreDraft(context.Background())
	if err != nil {
		t.Fatalf("RestoreDraft: %v", err)
	}
	if restored {
		t.Error("stale draft must not be restored")
	}
	if drafts.get(key) != nil {
		t.Error("stale draft must be deleted")
	}
	if len(session.Observations()) != 0 {
		t.Error("session must start empty after a stale draft")
	}
}

func TestDiscardDraft(t *testing.T) {
	drafts := newFakeDraftStore()
	sched := &fakeScheduler{}
	session := newTestSession(t, SessionConfig{Drafts: drafts, Scheduler: sched})

	session.ScanProduct(id.New(), UnitSingle, 4)
	sched.Fire()
	if drafts.get(session.DraftKey()) == nil {
		t.Fatal("draft not saved")
	}

	if err := session.DiscardDraft(context.Background()); err != nil {
		t.Fatalf("DiscardDraft: %v", err)
	}
	if drafts.get(session.DraftKey()) != nil {
		t.Error("draft still stored after discard")
	}
	if len(session.Observations()) != 0 {
		t.Error("session not cleared after discard")
	}
}

func TestSubmitCreatesRecordAndCleansUp(t *testing.T) {
	drafts := newFakeDraftStore()
	sched := &fakeScheduler{}
	submitter := newFakeSubmitter()
	session := newTestSession(t, SessionConfig{
		Submitter: submitter,
		Drafts:    drafts,
		Scheduler: sched,
	})
	prod := id.New()

	session.ScanProduct(prod, UnitCarton, 2)
	session.ScanProduct(prod, UnitSingle, 11)
	sched.Fire()

	record, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if record == nil {
		t.Fatal("Submit returned nil record")
	}
	if submitter.createCalls != 1 {
		t.Fatalf("createCalls = %d, want 1", submitter.createCalls)
	}
	if len(submitter.created) != 1 {
		t.Fatalf("submitted %d counts, want 1", len(submitter.created))
	}
	want := units.CartonUnits{Cartons: 2, Units: 11}
	if submitter.created[0].ProductID != prod || submitter.created[0].Counted != want {
		t.Errorf("submitted count = %+v, want %v for the scanned product", submitter.created[0], want)
	}
	if drafts.get(session.DraftKey()) != nil {
		t.Error("draft still stored after submit")
	}
	if len(session.Observations()) != 0 {
		t.Error("session not cleared after submit")
	}
}

func TestSubmitEmptyFails(t *testing.T) {
	session := newTestSession(t, SessionConfig{
		Submitter: newFakeSubmitter(),
		Scheduler: &fakeScheduler{},
	})

	_, err := session.Submit(context.Background())
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeValidation {
		t.Fatalf("empty submit error = %v, want VALIDATION_ERROR", err)
	}
}

func TestSubmitFailureKeepsSession(t *testing.T) {
	drafts := newFakeDraftStore()
	sched := &fakeScheduler{}
	submitter := newFakeSubmitter()
	submitter.err = errors.New("register unavailable")
	session := newTestSession(t, SessionConfig{
		Submitter: submitter,
		Drafts:    drafts,
		Scheduler: sched,
	})

	session.ScanProduct(id.New(), UnitSingle, 3)
	sched.Fire()

	if _, err := session.Submit(context.Background()); err == nil {
		t.Fatal("expected submit error")
	}
	if len(session.Observations()) != 1 {
		t.Error("failed submit must not clear the count")
	}
	if drafts.get(session.DraftKey()) == nil {
		t.Error("failed submit must not delete the draft")
	}

	// A retry after the failure is allowed.
	submitter.err = nil
	if _, err := session.Submit(context.Background()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestSubmitSingleFlight(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.block = make(chan struct{})
	submitter.started = make(chan struct{})
	session := newTestSession(t, SessionConfig{
		Submitter: submitter,
		Scheduler: &fakeScheduler{},
	})
	session.ScanProduct(id.New(), UnitSingle, 1)

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(context.Background())
		done <- err
	}()

	<-submitter.started

	_, err := session.Submit(context.Background())
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeConflict {
		t.Fatalf("concurrent submit error = %v, want CONFLICT", err)
	}

	close(submitter.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if submitter.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", submitter.createCalls)
	}
}

func TestSubmitEditPathUpdatesRecord(t *testing.T) {
	submitter := newFakeSubmitter()
	recordID := id.New()
	session := newTestSession(t, SessionConfig{
		EditingRecordID: &recordID,
		Submitter:       submitter,
		Scheduler:       &fakeScheduler{},
	})
	prod := id.New()

	session.SetQuantity(prod, UnitSingle, 0) // explicit zero survives to submission

	if _, err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitter.createCalls != 0 {
		t.Error("edit session must not create a new record")
	}
	counts, ok := submitter.updated[recordID]
	if !ok {
		t.Fatal("UpdateCounts not called for the edited record")
	}
	if len(counts) != 1 || counts[0].ProductID != prod || !counts[0].Counted.IsZero() {
		t.Errorf("updated counts = %+v, want one explicit zero", counts)
	}
}

func TestManagerReturnsSameSession(t *testing.T) {
	drafts := newFakeDraftStore()
	mgr := NewManager(&fakeLookup{}, newFakeSubmitter(), drafts, &fakeScheduler{})
	userID, locationID := "user-7", id.New()

	first, restored, err := mgr.Open(context.Background(), userID, locationID, nil, reconciliation.PolicyDelta)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if restored {
		t.Error("nothing to restore on first open")
	}

	second, _, err := mgr.Open(context.Background(), userID, locationID, nil, reconciliation.PolicyDelta)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if first != second {
		t.Error("reopening the same count must return the same session")
	}

	if _, ok := mgr.Get(first.DraftKey()); !ok {
		t.Error("session not registered under its draft key")
	}
}

func TestManagerRecordConfirmedDropsEditDraft(t *testing.T) {
	drafts := newFakeDraftStore()
	mgr := NewManager(&fakeLookup{}, newFakeSubmitter(), drafts, &fakeScheduler{})
	userID, locationID, recordID := "user-7", id.New(), id.New()

	session, _, err := mgr.Open(context.Background(), userID, locationID, &recordID, reconciliation.PolicyDelta)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	session.ScanProduct(id.New(), UnitSingle, 3)
	if err := session.SaveDraftNow(context.Background()); err != nil {
		t.Fatalf("SaveDraftNow: %v", err)
	}

	// Someone else confirms the record while the edit draft is parked.
	mgr.RecordConfirmed(context.Background(), userID, recordID)

	if drafts.get(session.DraftKey()) != nil {
		t.Error("edit draft must be deleted once the record is confirmed")
	}
	if _, ok := mgr.Get(session.DraftKey()); ok {
		t.Error("edit session still registered after confirm")
	}

	// Reopening the edit must start empty, not resurrect the old count.
	reopened, restored, err := mgr.Open(context.Background(), userID, locationID, &recordID, reconciliation.PolicyDelta)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if restored {
		t.Error("no draft must be restored for a confirmed record")
	}
	if len(reopened.Observations()) != 0 {
		t.Error("reopened edit session must start empty")
	}
}

func TestManagerCloseFlushesDraft(t *testing.T) {
	drafts := newFakeDraftStore()
	mgr := NewManager(&fakeLookup{}, newFakeSubmitter(), drafts, &fakeScheduler{})
	userID, locationID := "user-7", id.New()

	session, _, err := mgr.Open(context.Background(), userID, locationID, nil, reconciliation.PolicyDelta)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	session.ScanProduct(id.New(), UnitSingle, 2)

	if err := mgr.Close(context.Background(), session.DraftKey(), false); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if drafts.get(session.DraftKey()) == nil {
		t.Error("closing without discard must flush the draft")
	}
	if _, ok := mgr.Get(session.DraftKey()); ok {
		t.Error("closed session still registered")
	}

	// Reopening restores the flushed draft.
	reopened, restored, err := mgr.Open(context.Background(), userID, locationID, nil, reconciliation.PolicyDelta)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !restored {
		t.Error("expected draft restore on reopen")
	}
	if len(reopened.Observations()) != 1 {
		t.Error("restored session missing the flushed count")
	}
}
