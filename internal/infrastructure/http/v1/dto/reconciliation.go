package dto

import (
	"time"

	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
	"stocktake/internal/domain/reconciliation"
)

// --- Request DTOs ---

// CountLineRequest is one counted product in a create/update request.
type CountLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Cartons   int64  `json:"cartons" binding:"gte=0"`
	Units     int64  `json:"units" binding:"gte=0"`
}

// CreateReconciliationRequest creates a pending record from a count.
type CreateReconciliationRequest struct {
	LocationID string             `json:"locationId" binding:"required"`
	Policy     string             `json:"policy" binding:"required"`
	Counts     []CountLineRequest `json:"counts" binding:"required,min=1,dive"`
}

// UpdateReconciliationRequest replaces counts on a pending record.
type UpdateReconciliationRequest struct {
	Counts []CountLineRequest `json:"counts" binding:"required,min=1,dive"`
}

// ToCountInputs converts count lines to builder inputs.
func ToCountInputs(lines []CountLineRequest) []reconciliation.CountInput {
	counts := make([]reconciliation.CountInput, 0, len(lines))
	for _, line := range lines {
		productID, _ := id.Parse(line.ProductID)
		counts = append(counts, reconciliation.CountInput{
			ProductID: productID,
			Counted:   units.CartonUnits{Cartons: line.Cartons, Units: line.Units},
		})
	}
	return counts
}

// --- Response DTOs ---

// ReconciliationLineResponse is one line in API responses.
type ReconciliationLineResponse struct {
	LineID          string  `json:"lineId"`
	LineNo          int     `json:"lineNo"`
	ProductID       string  `json:"productId"`
	ProductCode     string  `json:"productCode"`
	UnitsPerCarton  int64   `json:"unitsPerCarton"`
	UnitCost        string  `json:"unitCost"`
	BeforeCartons   int64   `json:"beforeCartons"`
	BeforeUnits     int64   `json:"beforeUnits"`
	CountedCartons  int64   `json:"countedCartons"`
	CountedUnits    int64   `json:"countedUnits"`
	DeltaCartons    int64   `json:"deltaCartons"`
	DeltaUnits      int64   `json:"deltaUnits"`
	ShrinkageAmount string  `json:"shrinkageAmount"`
	NeedsReview     bool    `json:"needsReview"`
	ReviewReason    *string `json:"reviewReason,omitempty"`
}

// ReconciliationResponse is a record in API responses.
type ReconciliationResponse struct {
	DocumentResponse
	LocationID  string                       `json:"locationId"`
	CountedBy   string                       `json:"countedBy"`
	Policy      string                       `json:"policy"`
	Status      string                       `json:"status"`
	ConfirmedAt *time.Time                   `json:"confirmedAt,omitempty"`
	ConfirmedBy *string                      `json:"confirmedBy,omitempty"`
	Lines       []ReconciliationLineResponse `json:"lines,omitempty"`
}

// FromReconciliation converts domain entity to response DTO.
func FromReconciliation(r *reconciliation.Record) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		DocumentResponse: FromDocument(r.Document),
		LocationID:       r.LocationID.String(),
		CountedBy:        r.CountedBy,
		Policy:           string(r.Policy),
		Status:           string(r.Status),
		ConfirmedAt:      r.ConfirmedAt,
		ConfirmedBy:      r.ConfirmedBy,
	}

	resp.Lines = make([]ReconciliationLineResponse, len(r.Lines))
	for i, line := range r.Lines {
		resp.Lines[i] = ReconciliationLineResponse{
			LineID:          line.LineID.String(),
			LineNo:          line.LineNo,
			ProductID:       line.ProductID.String(),
			ProductCode:     line.ProductCode,
			UnitsPerCarton:  line.UnitsPerCarton,
			UnitCost:        line.UnitCost.String(),
			BeforeCartons:   line.BeforeCartons,
			BeforeUnits:     line.BeforeUnits,
			CountedCartons:  line.CountedCartons,
			CountedUnits:    line.CountedUnits,
			DeltaCartons:    line.DeltaCartons,
			DeltaUnits:      line.DeltaUnits,
			ShrinkageAmount: line.ShrinkageAmount.String(),
			NeedsReview:     line.NeedsReview,
			ReviewReason:    line.ReviewReason,
		}
	}

	return resp
}
