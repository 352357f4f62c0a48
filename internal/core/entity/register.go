// Package entity provides core domain entities.
package entity

import (
	"time"

	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
)

// RecordType defines movement direction for accumulation registers.
type RecordType string

const (
	// RecordTypeReceipt increases balance
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases balance
	RecordTypeExpense RecordType = "expense"
)

// MovementBase contains common fields for all register movements.
// Movements are immutable - they are never updated, only deleted and recreated.
type MovementBase struct {
	// LineID is unique identifier for this movement line (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// RecorderID is the document that created this movement
	RecorderID id.ID `db:"recorder_id" json:"recorderId"`

	// RecorderType is the document type (e.g., "ReconciliationRecord")
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// RecorderVersion tracks which posting iteration created this movement.
	// Allows efficient cleanup: DELETE WHERE recorder_id = X AND recorder_version < Y
	RecorderVersion int `db:"recorder_version" json:"recorderVersion"`

	// Period is the business date for the movement (for period-based queries)
	Period time.Time `db:"period" json:"period"`

	// RecordType: receipt or expense
	RecordType RecordType `db:"record_type" json:"recordType"`

	// CreatedAt is when the movement was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovementBase creates a new movement base with generated LineID.
func NewMovementBase(recorderID id.ID, recorderType string, recorderVersion int, period time.Time, recordType RecordType) MovementBase {
	return MovementBase{
		LineID:          id.New(),
		RecorderID:      recorderID,
		RecorderType:    recorderType,
		RecorderVersion: recorderVersion,
		Period:          period,
		RecordType:      recordType,
		CreatedAt:       time.Now().UTC(),
	}
}

// StockMovement represents a movement in the stock accumulation register.
// Quantities are carried in both grains so the journal reflects what
// physically moved, not just the net base-unit change.
type StockMovement struct {
	MovementBase

	// Dimensions
	LocationID id.ID `db:"location_id" json:"locationId"`
	ProductID  id.ID `db:"product_id" json:"productId"`

	// Resources: always non-negative, direction comes from RecordType
	Cartons int64 `db:"cartons" json:"cartons"`
	Units   int64 `db:"units" json:"units"`
}

// NewStockMovement creates a new stock movement.
func NewStockMovement(
	recorderID id.ID,
	recorderType string,
	recorderVersion int,
	period time.Time,
	recordType RecordType,
	locationID, productID id.ID,
	qty units.CartonUnits,
) StockMovement {
	return StockMovement{
		MovementBase: NewMovementBase(recorderID, recorderType, recorderVersion, period, recordType),
		LocationID:   locationID,
		ProductID:    productID,
		Cartons:      qty.Cartons,
		Units:        qty.Units,
	}
}

// SignedQuantity returns the movement quantity with sign based on record
// type. Receipt = positive, Expense = negative.
func (m *StockMovement) SignedQuantity() units.CartonUnits {
	q := units.CartonUnits{Cartons: m.Cartons, Units: m.Units}
	if m.RecordType == RecordTypeExpense {
		return units.CartonUnits{Cartons: -q.Cartons, Units: -q.Units}
	}
	return q
}

// StockBalance represents current balance in the stock register.
// This is a materialized view for fast balance queries.
type StockBalance struct {
	// Dimensions
	LocationID id.ID `db:"location_id" json:"locationId"`
	ProductID  id.ID `db:"product_id" json:"productId"`

	// Balances
	Cartons int64 `db:"cartons" json:"cartons"`
	Units   int64 `db:"units" json:"units"`

	// Metadata
	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Quantity returns the balance as a CartonUnits pair.
func (b *StockBalance) Quantity() units.CartonUnits {
	return units.CartonUnits{Cartons: b.Cartons, Units: b.Units}
}
