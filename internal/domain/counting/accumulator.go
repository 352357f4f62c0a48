// Package counting implements the live counting session: the in-memory
// accumulation of scanned and typed quantities before they become a
// reconciliation record.
package counting

import (
	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/units"
)

// UnitKind says which grain an observation counts.
type UnitKind string

const (
	UnitCarton UnitKind = "carton"
	UnitSingle UnitKind = "single"
)

// ParseUnitKind validates a unit kind string.
func ParseUnitKind(s string) (UnitKind, error) {
	switch UnitKind(s) {
	case UnitCarton, UnitSingle:
		return UnitKind(s), nil
	}
	return "", apperror.NewValidation("unknown unit kind").
		WithDetail("field", "unitKind").
		WithDetail("value", s)
}

// Observation is one accumulated bucket: how many of one grain of one
// product have been counted so far.
type Observation struct {
	ProductID id.ID    `json:"productId"`
	UnitKind  UnitKind `json:"unitKind"`
	Quantity  int64    `json:"quantity"`
}

type bucketKey struct {
	productID id.ID
	kind      UnitKind
}

// Accumulator collects observations keyed by (product, unit kind),
// preserving first-seen order for display. Not safe for concurrent use;
// Session adds the locking.
type Accumulator struct {
	order   []bucketKey
	buckets map[bucketKey]int64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		buckets: make(map[bucketKey]int64),
	}
}

// Scan adds a scanned delta to a bucket. Scanning is incremental: each
// scan of the same product and grain stacks onto the bucket. A bucket
// driven to zero or below disappears, because in scan mode "nothing
// scanned" and "scanned down to nothing" look the same to the counter.
func (a *Accumulator) Scan(productID id.ID, kind UnitKind, delta int64) {
	key := bucketKey{productID: productID, kind: kind}

	current, exists := a.buckets[key]
	next := current + delta

	if next <= 0 {
		if exists {
			a.remove(key)
		}
		return
	}

	if !exists {
		a.order = append(a.order, key)
	}
	a.buckets[key] = next
}

// Set overwrites a bucket with an explicit quantity, as typed on a count
// list. Unlike scan mode an explicit zero stays: the counter is stating
// "I looked, there are none". Negative input clamps to zero.
func (a *Accumulator) Set(productID id.ID, kind UnitKind, qty int64) {
	if qty < 0 {
		qty = 0
	}

	key := bucketKey{productID: productID, kind: kind}
	if _, exists := a.buckets[key]; !exists {
		a.order = append(a.order, key)
	}
	a.buckets[key] = qty
}

// Remove drops a bucket entirely.
func (a *Accumulator) Remove(productID id.ID, kind UnitKind) {
	key := bucketKey{productID: productID, kind: kind}
	if _, exists := a.buckets[key]; exists {
		a.remove(key)
	}
}

func (a *Accumulator) remove(key bucketKey) {
	delete(a.buckets, key)
	for i, k := range a.order {
		if k == key {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

// Get returns the bucket quantity and whether the bucket exists.
func (a *Accumulator) Get(productID id.ID, kind UnitKind) (int64, bool) {
	qty, ok := a.buckets[bucketKey{productID: productID, kind: kind}]
	return qty, ok
}

// Len returns the number of buckets.
func (a *Accumulator) Len() int {
	return len(a.buckets)
}

// Observations returns all buckets in first-seen order.
func (a *Accumulator) Observations() []Observation {
	out := make([]Observation, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, Observation{
			ProductID: key.productID,
			UnitKind:  key.kind,
			Quantity:  a.buckets[key],
		})
	}
	return out
}

// Restore replaces the accumulator contents from saved observations.
func (a *Accumulator) Restore(observations []Observation) {
	a.order = a.order[:0]
	a.buckets = make(map[bucketKey]int64, len(observations))
	for _, obs := range observations {
		a.Set(obs.ProductID, obs.UnitKind, obs.Quantity)
	}
}

// PerProduct folds carton and single buckets into one quantity pair per
// product, in first-seen product order. This is the shape the record
// builder takes.
func (a *Accumulator) PerProduct() []ProductCount {
	index := make(map[id.ID]int)
	var out []ProductCount

	for _, key := range a.order {
		i, seen := index[key.productID]
		if !seen {
			i = len(out)
			index[key.productID] = i
			out = append(out, ProductCount{ProductID: key.productID})
		}

		qty := a.buckets[key]
		switch key.kind {
		case UnitCarton:
			out[i].Counted.Cartons += qty
		case UnitSingle:
			out[i].Counted.Units += qty
		}
	}

	return out
}

// ProductCount is the folded count for one product.
type ProductCount struct {
	ProductID id.ID
	Counted   units.CartonUnits
}
