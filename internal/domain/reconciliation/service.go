package reconciliation

import (
	"context"
	"fmt"
	"time"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/numerator"
	"stocktake/internal/core/tx"
	"stocktake/internal/core/units"
	"stocktake/internal/domain"
	"stocktake/internal/domain/registers/stock"
	"stocktake/pkg/logger"
)

// Service provides business operations for reconciliation records.
type Service struct {
	repo         Repository
	builder      *Builder
	stockService *stock.Service
	numerator    numerator.Generator
	txManager    tx.Manager
	reviews      *ReviewSet
	hooks        *domain.HookRegistry[*Record]
}

// NewService creates a new reconciliation service.
// reviews may be nil when no review rules are configured.
func NewService(
	repo Repository,
	builder *Builder,
	stockService *stock.Service,
	numerator numerator.Generator,
	txManager tx.Manager,
	reviews *ReviewSet,
) *Service {
	return &Service{
		repo:         repo,
		builder:      builder,
		stockService: stockService,
		numerator:    numerator,
		txManager:    txManager,
		reviews:      reviews,
		hooks:        domain.NewHookRegistry[*Record](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Record] {
	return s.hooks
}

// Create builds and persists a new pending record from a finished count.
// The book snapshot for every line is taken here.
func (s *Service) Create(ctx context.Context, locationID id.ID, countedBy string, policy Policy, counts []CountInput) (*Record, error) {
	record, err := s.builder.Build(ctx, locationID, countedBy, policy, counts)
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunBeforeCreate(ctx, record); err != nil {
		return nil, err
	}

	if record.Number == "" {
		cfg := numerator.DefaultConfig(NumberPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, time.Now())
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		record.Number = number
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, record); err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		if err := s.repo.SaveLines(ctx, record.ID, record.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterCreate(ctx, record); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "reconciliation record created",
		"id", record.ID,
		"number", record.Number,
		"location_id", record.LocationID,
		"policy", record.Policy,
		"lines", len(record.Lines),
	)
	return record, nil
}

// GetByID retrieves a record with lines.
func (s *Service) GetByID(ctx context.Context, recordID id.ID) (*Record, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	record.Lines = lines

	return record, nil
}

// UpdateCounts replaces the counted quantities on a pending record.
// Book snapshots of surviving lines are kept as taken at count time.
func (s *Service) UpdateCounts(ctx context.Context, recordID id.ID, counts []CountInput) (*Record, error) {
	var record *Record

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.repo.GetForUpdate(ctx, recordID)
		if err != nil {
			return err
		}

		lines, err := s.repo.GetLines(ctx, recordID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		record.Lines = lines

		if err := s.builder.Rebuild(ctx, record, counts); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, record); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		return s.repo.SaveLines(ctx, record.ID, record.Lines)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reconciliation record updated",
		"id", record.ID,
		"lines", len(record.Lines),
	)
	return record, nil
}

// Delete soft-deletes a pending record. Confirmed records are history
// and cannot be removed.
func (s *Service) Delete(ctx context.Context, recordID id.ID) error {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}

	if err := record.CanModify(); err != nil {
		return err
	}

	return s.repo.Delete(ctx, recordID)
}

// List retrieves records with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error) {
	return s.repo.List(ctx, filter)
}

// Confirm applies a pending record to the stock register and moves it to
// its terminal state. All-or-nothing: movements, balances, and the
// status change commit in one transaction.
//
// Concurrent confirms serialize on the row lock; the loser sees
// CONFIRMED and gets RECORD_ALREADY_CONFIRMED.
func (s *Service) Confirm(ctx context.Context, recordID id.ID, confirmedBy string) (*Record, error) {
	if confirmedBy == "" {
		return nil, apperror.NewValidation("confirming user is required").
			WithDetail("field", "confirmedBy")
	}

	var record *Record

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.repo.GetForUpdate(ctx, recordID)
		if err != nil {
			return err
		}

		lines, err := s.repo.GetLines(ctx, recordID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		record.Lines = lines

		if err := record.Confirm(confirmedBy); err != nil {
			return err
		}

		if err := s.reviewLines(ctx, record); err != nil {
			return err
		}

		if err := s.applyToRegister(ctx, record); err != nil {
			return err
		}

		record.MarkPosted()

		if err := s.repo.Update(ctx, record); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		return s.repo.SaveLines(ctx, record.ID, record.Lines)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reconciliation record confirmed",
		"id", record.ID,
		"number", record.Number,
		"policy", record.Policy,
		"confirmed_by", confirmedBy,
	)
	return record, nil
}

// reviewLines runs configured review rules over discrepancy lines,
// flagging or rejecting per rule.
func (s *Service) reviewLines(ctx context.Context, record *Record) error {
	if s.reviews == nil {
		return nil
	}

	for i := range record.Lines {
		line := &record.Lines[i]
		if !line.HasDiscrepancy() {
			continue
		}

		perCarton := line.UnitsPerCarton
		facts := LineFacts{
			ProductCode:    line.ProductCode,
			UnitsPerCarton: perCarton,
			BeforeTotal:    line.Before().Total(perCarton),
			CountedTotal:   line.Counted().Total(perCarton),
			DeltaCartons:   line.DeltaCartons,
			DeltaUnits:     line.DeltaUnits,
			DeltaTotal:     line.Delta().Total(perCarton),
		}

		flagged, reason, err := s.reviews.Evaluate(facts)
		if err != nil {
			return err
		}
		if flagged {
			line.NeedsReview = true
			line.ReviewReason = &reason
		}
	}

	return nil
}

// applyToRegister posts movements and, for baseline records, overwrites
// balances with the counted quantities.
//
// Known race, deliberately visible: book stock can change between the
// count snapshot and this confirm. The snapshot is not silently
// refreshed; a drifted line is logged so the discrepancy trail stays
// honest. Baseline records then declare the count as truth, delta
// records adjust whatever the book says now.
func (s *Service) applyToRegister(ctx context.Context, record *Record) error {
	for _, line := range record.Lines {
		current, err := s.stockService.GetBalance(ctx, record.LocationID, line.ProductID)
		if err != nil {
			return err
		}
		if current != line.Before() {
			logger.Warn(ctx, "book stock drifted since count snapshot",
				"record_id", record.ID,
				"product_id", line.ProductID,
				"snapshot_cartons", line.BeforeCartons,
				"snapshot_units", line.BeforeUnits,
				"current_cartons", current.Cartons,
				"current_units", current.Units,
			)
		}
	}

	movements, err := record.GenerateMovements(ctx)
	if err != nil {
		return fmt.Errorf("generate movements: %w", err)
	}

	if err := s.stockService.RecordMovements(ctx, movements); err != nil {
		return err
	}

	if record.Policy == PolicyBaseline {
		for _, line := range record.Lines {
			counted := units.Normalize(line.Counted(), line.UnitsPerCarton)
			if err := s.stockService.SetBalance(ctx, record.LocationID, line.ProductID, counted); err != nil {
				return fmt.Errorf("set balance for %s: %w", line.ProductID, err)
			}
		}
	}

	return nil
}
