package dto

import (
	"time"

	"stocktake/internal/core/entity"
)

// StockBalanceResponse is one balance row in API responses.
type StockBalanceResponse struct {
	LocationID     string    `json:"locationId"`
	ProductID      string    `json:"productId"`
	Cartons        int64     `json:"cartons"`
	Units          int64     `json:"units"`
	LastMovementAt time.Time `json:"lastMovementAt"`
}

// FromStockBalance converts a register balance to a response DTO.
func FromStockBalance(b entity.StockBalance) StockBalanceResponse {
	return StockBalanceResponse{
		LocationID:     b.LocationID.String(),
		ProductID:      b.ProductID.String(),
		Cartons:        b.Cartons,
		Units:          b.Units,
		LastMovementAt: b.LastMovementAt,
	}
}

// FromStockBalances converts a balance slice.
func FromStockBalances(balances []entity.StockBalance) []StockBalanceResponse {
	out := make([]StockBalanceResponse, len(balances))
	for i, b := range balances {
		out[i] = FromStockBalance(b)
	}
	return out
}

// StockMovementResponse is one journal row in API responses.
type StockMovementResponse struct {
	LineID       string    `json:"lineId"`
	RecorderID   string    `json:"recorderId"`
	RecorderType string    `json:"recorderType"`
	Period       time.Time `json:"period"`
	RecordType   string    `json:"recordType"`
	LocationID   string    `json:"locationId"`
	ProductID    string    `json:"productId"`
	Cartons      int64     `json:"cartons"`
	Units        int64     `json:"units"`
}

// FromStockMovements converts a movement slice.
func FromStockMovements(movements []entity.StockMovement) []StockMovementResponse {
	out := make([]StockMovementResponse, len(movements))
	for i, m := range movements {
		out[i] = StockMovementResponse{
			LineID:       m.LineID.String(),
			RecorderID:   m.RecorderID.String(),
			RecorderType: m.RecorderType,
			Period:       m.Period,
			RecordType:   string(m.RecordType),
			LocationID:   m.LocationID.String(),
			ProductID:    m.ProductID.String(),
			Cartons:      m.Cartons,
			Units:        m.Units,
		}
	}
	return out
}

// AvailabilityResponse is total product availability across locations.
type AvailabilityResponse struct {
	ProductID  string `json:"productId"`
	TotalUnits int64  `json:"totalUnits"`
}
