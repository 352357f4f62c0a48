package dto

import (
	"stocktake/internal/domain/counting"
)

// --- Request DTOs ---

// OpenSessionRequest starts (or resumes) a counting session.
type OpenSessionRequest struct {
	LocationID      string  `json:"locationId" binding:"required"`
	Policy          string  `json:"policy" binding:"required"`
	EditingRecordID *string `json:"editingRecordId"`
}

// ScanRequest records one scanner event.
type ScanRequest struct {
	Barcode  string `json:"barcode" binding:"required"`
	UnitKind string `json:"unitKind" binding:"required"`
	Quantity int64  `json:"quantity"`
}

// SetQuantityRequest overwrites a bucket with a typed quantity.
type SetQuantityRequest struct {
	ProductID string `json:"productId" binding:"required"`
	UnitKind  string `json:"unitKind" binding:"required"`
	Quantity  int64  `json:"quantity"`
}

// CloseSessionRequest closes a session, optionally discarding its draft.
type CloseSessionRequest struct {
	Discard bool `json:"discard"`
}

// --- Response DTOs ---

// ObservationResponse is one accumulated bucket.
type ObservationResponse struct {
	ProductID string `json:"productId"`
	UnitKind  string `json:"unitKind"`
	Quantity  int64  `json:"quantity"`
}

// SessionResponse describes a counting session's current state.
type SessionResponse struct {
	Key          string                `json:"key"`
	LocationID   string                `json:"locationId"`
	Restored     bool                  `json:"restored"`
	Observations []ObservationResponse `json:"observations"`
}

// FromObservations maps accumulator buckets to DTOs.
func FromObservations(obs []counting.Observation) []ObservationResponse {
	out := make([]ObservationResponse, len(obs))
	for i, o := range obs {
		out[i] = ObservationResponse{
			ProductID: o.ProductID.String(),
			UnitKind:  string(o.UnitKind),
			Quantity:  o.Quantity,
		}
	}
	return out
}

// ScanResponse confirms a successful scan with the resolved product.
type ScanResponse struct {
	Product      ProductResponse       `json:"product"`
	Observations []ObservationResponse `json:"observations"`
}
