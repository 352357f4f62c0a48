package draftcache

import (
	"context"
	"testing"
	"time"

	"stocktake/internal/core/id"
	"stocktake/internal/domain/counting"
)

func testDraft() *counting.Draft {
	return &counting.Draft{
		Timestamp: time.Now().UTC(),
		Observations: []counting.Observation{
			{ProductID: id.New(), UnitKind: counting.UnitSingle, Quantity: 5},
		},
		LocationID: id.New(),
		PolicyHint: "DELTA",
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	draft := testDraft()

	if err := store.Save(ctx, "draft-1", draft, counting.DraftTTL); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "draft-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("draft not found after save")
	}
	if len(loaded.Observations) != 1 || loaded.Observations[0].Quantity != 5 {
		t.Errorf("loaded draft = %+v", loaded)
	}
	if loaded.LocationID != draft.LocationID {
		t.Error("location lost in round trip")
	}

	// A copy is returned; mutating it must not touch the store.
	loaded.PolicyHint = "BASELINE"
	again, _ := store.Load(ctx, "draft-1")
	if again.PolicyHint != "DELTA" {
		t.Error("store entry mutated through loaded copy")
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := NewMemoryStore()

	draft, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if draft != nil {
		t.Error("missing key must load as nil, not error")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, "draft-1", testDraft(), counting.DraftTTL); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "draft-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if draft, _ := store.Load(ctx, "draft-1"); draft != nil {
		t.Error("draft still loadable after delete")
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "draft-1"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestMemoryStoreDeleteStale(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, "expired", testDraft(), -time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, "fresh", testDraft(), counting.DraftTTL); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Expired entries read as absent even before the sweep.
	if draft, _ := store.Load(ctx, "expired"); draft != nil {
		t.Error("expired draft must load as nil")
	}

	removed, err := store.DeleteStale(ctx)
	if err != nil {
		t.Fatalf("DeleteStale: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if draft, _ := store.Load(ctx, "fresh"); draft == nil {
		t.Error("fresh draft swept by mistake")
	}
}
