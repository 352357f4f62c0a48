package reconciliation

import "stocktake/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for this document
	// type. Reconciliation records feed shrinkage reports, so the
	// sequence must have no gaps.
	NumeratorStrategy = numerator.StrategyStrict

	// NumberPrefix is the document number prefix (RC-2026-00001).
	NumberPrefix = "RC"
)
