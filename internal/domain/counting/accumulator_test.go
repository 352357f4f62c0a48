package counting

import (
	"testing"

	"stocktake/internal/core/id"
)

func TestScanStacksQuantities(t *testing.T) {
	acc := NewAccumulator()
	prod := id.New()

	acc.Scan(prod, UnitSingle, 1)
	acc.Scan(prod, UnitSingle, 1)
	acc.Scan(prod, UnitSingle, 3)

	qty, ok := acc.Get(prod, UnitSingle)
	if !ok || qty != 5 {
		t.Errorf("bucket = (%d, %v), want (5, true)", qty, ok)
	}
}

func TestScanKeepsGrainsSeparate(t *testing.T) {
	acc := NewAccumulator()
	prod := id.New()

	acc.Scan(prod, UnitCarton, 2)
	acc.Scan(prod, UnitSingle, 7)

	if qty, _ := acc.Get(prod, UnitCarton); qty != 2 {
		t.Errorf("carton bucket = %d, want 2", qty)
	}
	if qty, _ := acc.Get(prod, UnitSingle); qty != 7 {
		t.Errorf("single bucket = %d, want 7", qty)
	}
	if acc.Len() != 2 {
		t.Errorf("len = %d, want 2", acc.Len())
	}
}

func TestScanToZeroRemovesBucket(t *testing.T) {
	acc := NewAccumulator()
	prod := id.New()

	acc.Scan(prod, UnitSingle, 3)
	acc.Scan(prod, UnitSingle, -3)

	if _, ok := acc.Get(prod, UnitSingle); ok {
		t.Error("bucket scanned down to zero must disappear")
	}

	// Driving below zero behaves the same.
	acc.Scan(prod, UnitSingle, 2)
	acc.Scan(prod, UnitSingle, -5)
	if _, ok := acc.Get(prod, UnitSingle); ok {
		t.Error("bucket scanned below zero must disappear")
	}

	// A lone negative scan does not create a bucket.
	acc.Scan(prod, UnitCarton, -1)
	if _, ok := acc.Get(prod, UnitCarton); ok {
		t.Error("negative scan on empty bucket must not create it")
	}
}

func TestSetKeepsExplicitZero(t *testing.T) {
	acc := NewAccumulator()
	prod := id.New()

	acc.Set(prod, UnitSingle, 0)

	qty, ok := acc.Get(prod, UnitSingle)
	if !ok || qty != 0 {
		t.Errorf("explicit zero = (%d, %v), want (0, true)", qty, ok)
	}
}

func TestSetClampsNegative(t *testing.T) {
	acc := NewAccumulator()
	prod := id.New()

	acc.Set(prod, UnitSingle, -4)

	qty, ok := acc.Get(prod, UnitSingle)
	if !ok || qty != 0 {
		t.Errorf("negative set = (%d, %v), want clamped (0, true)", qty, ok)
	}
}

func TestSetOverwrites(t *testing.T) {
	acc := NewAccumulator()
	prod := id.New()

	acc.Scan(prod, UnitSingle, 9)
	acc.Set(prod, UnitSingle, 3)

	if qty, _ := acc.Get(prod, UnitSingle); qty != 3 {
		t.Errorf("bucket = %d, want 3 after explicit set", qty)
	}
}

func TestObservationsKeepFirstSeenOrder(t *testing.T) {
	acc := NewAccumulator()
	prodA, prodB := id.New(), id.New()

	acc.Scan(prodA, UnitSingle, 1)
	acc.Scan(prodB, UnitCarton, 2)
	acc.Scan(prodA, UnitSingle, 1) // re-scan must not reorder

	obs := acc.Observations()
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].ProductID != prodA || obs[0].Quantity != 2 {
		t.Errorf("first observation = %+v, want product A qty 2", obs[0])
	}
	if obs[1].ProductID != prodB || obs[1].Quantity != 2 {
		t.Errorf("second observation = %+v, want product B qty 2", obs[1])
	}
}

func TestRemove(t *testing.T) {
	acc := NewAccumulator()
	prod := id.New()

	acc.Scan(prod, UnitSingle, 4)
	acc.Remove(prod, UnitSingle)

	if acc.Len() != 0 {
		t.Error("removed bucket still present")
	}
	// Removing again is a no-op.
	acc.Remove(prod, UnitSingle)
}

func TestRestoreRoundTrip(t *testing.T) {
	acc := NewAccumulator()
	prodA, prodB := id.New(), id.New()

	acc.Scan(prodA, UnitCarton, 3)
	acc.Set(prodB, UnitSingle, 0)

	restored := NewAccumulator()
	restored.Restore(acc.Observations())

	if qty, ok := restored.Get(prodA, UnitCarton); !ok || qty != 3 {
		t.Errorf("restored carton bucket = (%d, %v), want (3, true)", qty, ok)
	}
	if qty, ok := restored.Get(prodB, UnitSingle); !ok || qty != 0 {
		t.Errorf("restored zero bucket = (%d, %v), want (0, true)", qty, ok)
	}
}

func TestPerProductFoldsGrains(t *testing.T) {
	acc := NewAccumulator()
	prodA, prodB := id.New(), id.New()

	acc.Scan(prodA, UnitSingle, 11)
	acc.Scan(prodB, UnitCarton, 1)
	acc.Scan(prodA, UnitCarton, 2)

	counts := acc.PerProduct()
	if len(counts) != 2 {
		t.Fatalf("expected 2 products, got %d", len(counts))
	}

	if counts[0].ProductID != prodA || counts[0].Counted.Cartons != 2 || counts[0].Counted.Units != 11 {
		t.Errorf("product A = %+v, want (2 cartons, 11 units)", counts[0])
	}
	if counts[1].ProductID != prodB || counts[1].Counted.Cartons != 1 || counts[1].Counted.Units != 0 {
		t.Errorf("product B = %+v, want (1 carton, 0 units)", counts[1])
	}
}
