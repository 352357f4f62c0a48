package location

import (
	"context"
	"fmt"
	"time"

	"stocktake/internal/core/id"
	"stocktake/internal/core/numerator"
	"stocktake/internal/core/tx"
	"stocktake/internal/domain"
)

// Service provides business logic for the Location catalog.
type Service struct {
	*domain.CatalogService[*Location]
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new Location service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Location]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "location",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate generates a code when the caller did not supply one.
func (s *Service) prepareForCreate(ctx context.Context, item *Location) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("LOC"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return nil
}

// SetDefault marks one location as the default, clearing the flag on others.
func (s *Service) SetDefault(ctx context.Context, locationID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		loc, err := s.repo.GetForUpdate(ctx, locationID)
		if err != nil {
			return err
		}

		if err := s.repo.ClearDefault(ctx); err != nil {
			return fmt.Errorf("clear default location: %w", err)
		}

		loc.IsDefault = true
		loc.Touch()
		return s.repo.Update(ctx, loc)
	})
}
