package reconciliation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/entity"
	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
)

func testLineProduct(perCarton int64) LineProduct {
	return LineProduct{ProductID: id.New(), Code: "PR-1", UnitsPerCarton: perCarton}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"BASELINE", PolicyBaseline, false},
		{"DELTA", PolicyDelta, false},
		{"", "", true},
		{"baseline", "", true},
		{"NET", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePolicy(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePolicy(%q): unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	ctx := context.Background()
	locID := id.New()

	valid := func() *Record {
		r := NewRecord(locID, "user-1", PolicyDelta)
		r.AddLine(testLineProduct(12), units.CartonUnits{Cartons: 1}, units.CartonUnits{Units: 11})
		return r
	}

	t.Run("valid record passes", func(t *testing.T) {
		if err := valid().Validate(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing location", func(t *testing.T) {
		r := valid()
		r.LocationID = id.Nil()
		assertValidationError(t, r.Validate(ctx))
	})

	t.Run("missing user", func(t *testing.T) {
		r := valid()
		r.CountedBy = ""
		assertValidationError(t, r.Validate(ctx))
	})

	t.Run("no lines", func(t *testing.T) {
		r := NewRecord(locID, "user-1", PolicyDelta)
		assertValidationError(t, r.Validate(ctx))
	})

	t.Run("bad policy", func(t *testing.T) {
		r := valid()
		r.Policy = "NET"
		assertValidationError(t, r.Validate(ctx))
	})
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		t.Errorf("expected %s, got %v", apperror.CodeValidation, err)
	}
}

func TestRecordConfirmIsOneWay(t *testing.T) {
	r := NewRecord(id.New(), "user-1", PolicyDelta)
	r.AddLine(testLineProduct(12), units.CartonUnits{}, units.CartonUnits{Units: 3})

	if r.IsConfirmed() {
		t.Fatal("new record must be pending")
	}

	if err := r.Confirm("supervisor"); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	if !r.IsConfirmed() {
		t.Fatal("record not confirmed")
	}
	if r.ConfirmedAt == nil || r.ConfirmedBy == nil || *r.ConfirmedBy != "supervisor" {
		t.Error("confirmation metadata not recorded")
	}

	firstConfirmedAt := *r.ConfirmedAt

	err := r.Confirm("someone-else")
	if !apperror.IsAlreadyConfirmed(err) {
		t.Fatalf("second confirm: expected RECORD_ALREADY_CONFIRMED, got %v", err)
	}

	// The losing confirm must not touch the record.
	if *r.ConfirmedBy != "supervisor" || !r.ConfirmedAt.Equal(firstConfirmedAt) {
		t.Error("second confirm modified the record")
	}
}

func TestRecordCanModify(t *testing.T) {
	r := NewRecord(id.New(), "user-1", PolicyBaseline)
	r.AddLine(testLineProduct(6), units.CartonUnits{Cartons: 2}, units.CartonUnits{Cartons: 2})

	if err := r.CanModify(); err != nil {
		t.Fatalf("pending record must be editable: %v", err)
	}

	if err := r.Confirm("supervisor"); err != nil {
		t.Fatal(err)
	}
	if err := r.CanModify(); !apperror.IsAlreadyConfirmed(err) {
		t.Errorf("confirmed record must reject edits, got %v", err)
	}
}

func TestAddLineComputesPairwiseDelta(t *testing.T) {
	r := NewRecord(id.New(), "user-1", PolicyDelta)

	// Net change is +1 base unit, but the per-grain delta must show one
	// carton in and eleven loose units out.
	r.AddLine(testLineProduct(12), units.CartonUnits{Units: 11}, units.CartonUnits{Cartons: 1})

	line := r.Lines[0]
	if line.DeltaCartons != 1 || line.DeltaUnits != -11 {
		t.Errorf("delta = (%d, %d), want (1, -11)", line.DeltaCartons, line.DeltaUnits)
	}
	if !line.HasDiscrepancy() {
		t.Error("line with delta must report a discrepancy")
	}
}

func TestAddLineSnapshotsProductAndPricesShrinkage(t *testing.T) {
	r := NewRecord(id.New(), "user-1", PolicyDelta)

	prod := LineProduct{
		ProductID:      id.New(),
		Code:           "PR-44",
		UnitsPerCarton: 12,
		UnitCost:       decimal.RequireFromString("2.50"),
	}

	// Shortage of 1 carton and 2 loose units: -14 base units at 2.50 each.
	r.AddLine(prod, units.CartonUnits{Cartons: 3, Units: 5}, units.CartonUnits{Cartons: 2, Units: 3})

	line := r.Lines[0]
	if line.ProductCode != "PR-44" {
		t.Errorf("product code = %q, want PR-44", line.ProductCode)
	}
	if !line.UnitCost.Equal(prod.UnitCost) {
		t.Errorf("unit cost = %s, want %s", line.UnitCost, prod.UnitCost)
	}
	if want := decimal.RequireFromString("-35"); !line.ShrinkageAmount.Equal(want) {
		t.Errorf("shrinkage = %s, want %s", line.ShrinkageAmount, want)
	}

	// A corrected count reprices the line against the same snapshot.
	if err := r.SetCounted(1, units.CartonUnits{Cartons: 3, Units: 5}); err != nil {
		t.Fatal(err)
	}
	if !r.Lines[0].ShrinkageAmount.IsZero() {
		t.Errorf("shrinkage after matching recount = %s, want 0", r.Lines[0].ShrinkageAmount)
	}
}

func TestSetCountedKeepsSnapshot(t *testing.T) {
	r := NewRecord(id.New(), "user-1", PolicyDelta)
	r.AddLine(testLineProduct(12), units.CartonUnits{Cartons: 3, Units: 4}, units.CartonUnits{Cartons: 3, Units: 4})

	if err := r.SetCounted(1, units.CartonUnits{Cartons: 2, Units: 10}); err != nil {
		t.Fatal(err)
	}

	line := r.Lines[0]
	if line.BeforeCartons != 3 || line.BeforeUnits != 4 {
		t.Error("edit must not touch the book snapshot")
	}
	if line.DeltaCartons != -1 || line.DeltaUnits != 6 {
		t.Errorf("delta = (%d, %d), want (-1, 6)", line.DeltaCartons, line.DeltaUnits)
	}

	if err := r.SetCounted(5, units.CartonUnits{}); err == nil {
		t.Error("out-of-range line number must fail")
	}
}

func TestGenerateMovements(t *testing.T) {
	ctx := context.Background()
	locID := id.New()

	t.Run("mixed sign delta yields receipt and expense", func(t *testing.T) {
		r := NewRecord(locID, "user-1", PolicyDelta)
		productID := id.New()
		r.AddLine(LineProduct{ProductID: productID, Code: "PR-1", UnitsPerCarton: 12}, units.CartonUnits{Units: 11}, units.CartonUnits{Cartons: 1})

		movements, err := r.GenerateMovements(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(movements) != 2 {
			t.Fatalf("expected 2 movements, got %d", len(movements))
		}

		var receipt, expense *entity.StockMovement
		for i := range movements {
			switch movements[i].RecordType {
			case entity.RecordTypeReceipt:
				receipt = &movements[i]
			case entity.RecordTypeExpense:
				expense = &movements[i]
			}
		}
		if receipt == nil || expense == nil {
			t.Fatal("expected one receipt and one expense")
		}
		if receipt.Cartons != 1 || receipt.Units != 0 {
			t.Errorf("receipt = (%d, %d), want (1, 0)", receipt.Cartons, receipt.Units)
		}
		if expense.Cartons != 0 || expense.Units != 11 {
			t.Errorf("expense = (%d, %d), want (0, 11)", expense.Cartons, expense.Units)
		}
		if receipt.RecorderID != r.ID || receipt.LocationID != locID || receipt.ProductID != productID {
			t.Error("movement dimensions not set from record")
		}
	})

	t.Run("zero delta yields no movements", func(t *testing.T) {
		r := NewRecord(locID, "user-1", PolicyDelta)
		r.AddLine(testLineProduct(12), units.CartonUnits{Cartons: 2, Units: 3}, units.CartonUnits{Cartons: 2, Units: 3})

		movements, err := r.GenerateMovements(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(movements) != 0 {
			t.Errorf("expected no movements, got %d", len(movements))
		}
	})

	t.Run("pure shortage yields single expense", func(t *testing.T) {
		r := NewRecord(locID, "user-1", PolicyDelta)
		r.AddLine(testLineProduct(12), units.CartonUnits{Cartons: 2, Units: 3}, units.CartonUnits{Cartons: 1, Units: 1})

		movements, err := r.GenerateMovements(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(movements) != 1 {
			t.Fatalf("expected 1 movement, got %d", len(movements))
		}
		m := movements[0]
		if m.RecordType != entity.RecordTypeExpense || m.Cartons != 1 || m.Units != 2 {
			t.Errorf("got %s (%d, %d), want expense (1, 2)", m.RecordType, m.Cartons, m.Units)
		}
	})
}
