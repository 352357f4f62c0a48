// Package reconciliation provides the stock reconciliation record: a
// document that captures a physical count against book stock and, once
// confirmed, corrects the stock register.
package reconciliation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/entity"
	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
)

// Policy decides how a confirmed record hits the register.
type Policy string

const (
	// PolicyBaseline declares the counted quantities as the absolute
	// truth: the register balance is set to the count.
	PolicyBaseline Policy = "BASELINE"

	// PolicyDelta posts only the signed difference between count and
	// book quantity, leaving other stock history intact.
	PolicyDelta Policy = "DELTA"
)

// ParsePolicy validates a policy string.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyBaseline, PolicyDelta:
		return Policy(s), nil
	}
	return "", apperror.NewValidation("unknown reconciliation policy").
		WithDetail("field", "policy").
		WithDetail("value", s)
}

// Status represents the record lifecycle state.
// The transition is one-way: PENDING_CONFIRMATION -> CONFIRMED.
type Status string

const (
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION"
	StatusConfirmed           Status = "CONFIRMED"
)

// Record is a stock reconciliation document.
type Record struct {
	entity.Document

	LocationID id.ID  `db:"location_id" json:"locationId"`
	CountedBy  string `db:"counted_by" json:"countedBy"`
	Policy     Policy `db:"policy" json:"policy"`
	Status     Status `db:"status" json:"status"`

	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`
	ConfirmedBy *string    `db:"confirmed_by" json:"confirmedBy,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one product within a reconciliation record.
//
// The Before* fields are the book snapshot taken when the record was
// built. They are never recomputed afterwards; an edited record keeps
// comparing the corrected count against the stock the counter actually
// saw on the shelf.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// ProductCode is snapshotted for review rules and display
	ProductCode string `db:"product_code" json:"productCode"`

	// UnitsPerCarton is snapshotted from the product so later packaging
	// changes do not rewrite history.
	UnitsPerCarton int64 `db:"units_per_carton" json:"unitsPerCarton"`

	// UnitCost is the per-unit cost snapshot used to price the shrinkage
	UnitCost decimal.Decimal `db:"unit_cost" json:"unitCost"`

	// Book snapshot at build time
	BeforeCartons int64 `db:"before_cartons" json:"beforeCartons"`
	BeforeUnits   int64 `db:"before_units" json:"beforeUnits"`

	// Physical count
	CountedCartons int64 `db:"counted_cartons" json:"countedCartons"`
	CountedUnits   int64 `db:"counted_units" json:"countedUnits"`

	// Pairwise difference: counted minus before, per grain
	DeltaCartons int64 `db:"delta_cartons" json:"deltaCartons"`
	DeltaUnits   int64 `db:"delta_units" json:"deltaUnits"`

	// ShrinkageAmount is the signed delta in base units priced at the
	// snapshot unit cost. Negative when stock went missing.
	ShrinkageAmount decimal.Decimal `db:"shrinkage_amount" json:"shrinkageAmount"`

	// NeedsReview is set by review rules on confirm
	NeedsReview  bool    `db:"needs_review" json:"needsReview"`
	ReviewReason *string `db:"review_reason" json:"reviewReason,omitempty"`
}

// Before returns the book snapshot pair.
func (l *Line) Before() units.CartonUnits {
	return units.CartonUnits{Cartons: l.BeforeCartons, Units: l.BeforeUnits}
}

// Counted returns the counted pair.
func (l *Line) Counted() units.CartonUnits {
	return units.CartonUnits{Cartons: l.CountedCartons, Units: l.CountedUnits}
}

// Delta returns the signed per-grain difference.
func (l *Line) Delta() units.CartonUnits {
	return units.CartonUnits{Cartons: l.DeltaCartons, Units: l.DeltaUnits}
}

// HasDiscrepancy reports whether count and book snapshot differ in any grain.
func (l *Line) HasDiscrepancy() bool {
	return l.DeltaCartons != 0 || l.DeltaUnits != 0
}

// NewRecord creates a new reconciliation record in pending state.
func NewRecord(locationID id.ID, countedBy string, policy Policy) *Record {
	return &Record{
		Document:   entity.NewDocument(),
		LocationID: locationID,
		CountedBy:  countedBy,
		Policy:     policy,
		Status:     StatusPendingConfirmation,
		Lines:      make([]Line, 0),
	}
}

// LineProduct is the product snapshot a line carries: identity, code,
// packaging and cost as they were when the line was built.
type LineProduct struct {
	ProductID      id.ID
	Code           string
	UnitsPerCarton int64
	UnitCost       decimal.Decimal
}

// AddLine appends a line with its book snapshot and count, computing the
// pairwise delta and pricing the shrinkage.
func (r *Record) AddLine(prod LineProduct, before, counted units.CartonUnits) {
	line := Line{
		LineID:         id.New(),
		LineNo:         len(r.Lines) + 1,
		ProductID:      prod.ProductID,
		ProductCode:    prod.Code,
		UnitsPerCarton: units.PerCarton(prod.UnitsPerCarton),
		UnitCost:       prod.UnitCost,
		BeforeCartons:  before.Cartons,
		BeforeUnits:    before.Units,
	}
	line.setCounted(counted)

	r.Lines = append(r.Lines, line)
}

// setCounted writes the count and recomputes the delta and shrinkage
// against the book snapshot.
func (l *Line) setCounted(counted units.CartonUnits) {
	l.CountedCartons = counted.Cartons
	l.CountedUnits = counted.Units

	delta := units.Delta(l.Before(), counted)
	l.DeltaCartons = delta.Cartons
	l.DeltaUnits = delta.Units
	l.ShrinkageAmount = l.UnitCost.Mul(decimal.NewFromInt(delta.Total(l.UnitsPerCarton)))
}

// SetCounted replaces the count on a line and recomputes its delta
// against the original book snapshot. Used by the edit flow.
func (r *Record) SetCounted(lineNo int, counted units.CartonUnits) error {
	if lineNo < 1 || lineNo > len(r.Lines) {
		return apperror.NewValidation("invalid line number").
			WithDetail("lineNo", lineNo)
	}

	r.Lines[lineNo-1].setCounted(counted)
	return nil
}

// Validate implements entity.Validatable.
func (r *Record) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}

	if r.CountedBy == "" {
		return apperror.NewValidation("counting user is required").
			WithDetail("field", "countedBy")
	}

	if len(r.Lines) == 0 {
		return apperror.NewValidation("record has no counted products").
			WithDetail("field", "lines")
	}

	if _, err := ParsePolicy(string(r.Policy)); err != nil {
		return err
	}

	return nil
}

// IsConfirmed reports whether the record reached its terminal state.
func (r *Record) IsConfirmed() bool {
	return r.Status == StatusConfirmed
}

// Confirm moves the record to its terminal state. A second confirm
// attempt fails and leaves the record untouched.
func (r *Record) Confirm(confirmedBy string) error {
	if r.Status != StatusPendingConfirmation {
		return apperror.NewAlreadyConfirmed(r.ID.String())
	}

	now := time.Now().UTC()
	r.Status = StatusConfirmed
	r.ConfirmedAt = &now
	r.ConfirmedBy = &confirmedBy
	return nil
}

// CanModify rejects edits on confirmed records.
func (r *Record) CanModify() error {
	if r.IsConfirmed() {
		return apperror.NewAlreadyConfirmed(r.ID.String())
	}
	return nil
}

// GetDocumentType identifies this document in register movements.
func (r *Record) GetDocumentType() string { return "ReconciliationRecord" }

// GenerateMovements creates register movements for line deltas.
//
// A pairwise delta can carry mixed signs (one carton in, eleven loose
// units out), so each line may yield up to two movements: a receipt for
// positive components and an expense for negative ones.
func (r *Record) GenerateMovements(ctx context.Context) ([]entity.StockMovement, error) {
	movements := make([]entity.StockMovement, 0, len(r.Lines))
	newVersion := r.PostedVersion + 1

	for _, line := range r.Lines {
		receipt, expense := splitByDirection(line.Delta())

		if !receipt.IsZero() {
			movements = append(movements, entity.NewStockMovement(
				r.ID, r.GetDocumentType(), newVersion, r.Date,
				entity.RecordTypeReceipt,
				r.LocationID, line.ProductID,
				receipt,
			))
		}
		if !expense.IsZero() {
			movements = append(movements, entity.NewStockMovement(
				r.ID, r.GetDocumentType(), newVersion, r.Date,
				entity.RecordTypeExpense,
				r.LocationID, line.ProductID,
				expense,
			))
		}
	}

	return movements, nil
}

// splitByDirection separates a signed delta into non-negative receipt
// and expense components.
func splitByDirection(delta units.CartonUnits) (receipt, expense units.CartonUnits) {
	if delta.Cartons > 0 {
		receipt.Cartons = delta.Cartons
	} else {
		expense.Cartons = -delta.Cartons
	}
	if delta.Units > 0 {
		receipt.Units = delta.Units
	} else {
		expense.Units = -delta.Units
	}
	return receipt, expense
}
