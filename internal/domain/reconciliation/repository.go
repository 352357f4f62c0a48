package reconciliation

import (
	"context"
	"time"

	"stocktake/internal/core/id"
	"stocktake/internal/domain"
)

// Repository defines operations for reconciliation records.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, recordID id.ID) (*Record, error)
	Update(ctx context.Context, record *Record) error
	Delete(ctx context.Context, recordID id.ID) error

	GetLines(ctx context.Context, recordID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, recordID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error)

	// GetForUpdate retrieves a record with row lock. The confirm flow
	// relies on this to serialize concurrent confirm attempts.
	GetForUpdate(ctx context.Context, recordID id.ID) (*Record, error)
}

// ListFilter for filtering reconciliation records.
type ListFilter struct {
	domain.ListFilter

	LocationID *id.ID
	CountedBy  *string
	Status     *Status
	Policy     *Policy
	DateFrom   *time.Time
	DateTo     *time.Time
}
