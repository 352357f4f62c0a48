// Package units implements carton/loose-unit quantity arithmetic.
//
// Stock for a product is counted in two grains at once: whole cartons and
// loose base units. A product's packaging config says how many base units
// one carton holds. All arithmetic is integer; fractional quantities do
// not exist in this domain.
package units

// PerCarton sanitizes a product's units-per-carton setting.
// Zero or negative configs collapse to 1 so every division below is safe
// and a "cartonless" product degenerates to plain unit counting.
func PerCarton(perCarton int64) int64 {
	if perCarton <= 0 {
		return 1
	}
	return perCarton
}

// CartonUnits is a quantity expressed as whole cartons plus loose units.
// Deltas are also represented with this type, in which case either
// component may be negative.
type CartonUnits struct {
	Cartons int64 `json:"cartons"`
	Units   int64 `json:"units"`
}

// Total collapses the pair into a single base-unit count.
func (q CartonUnits) Total(perCarton int64) int64 {
	return q.Cartons*PerCarton(perCarton) + q.Units
}

// IsZero reports whether both components are zero.
func (q CartonUnits) IsZero() bool {
	return q.Cartons == 0 && q.Units == 0
}

// Add returns the component-wise sum. No carry normalization is applied;
// callers that need canonical form go through Split.
func (q CartonUnits) Add(other CartonUnits) CartonUnits {
	return CartonUnits{
		Cartons: q.Cartons + other.Cartons,
		Units:   q.Units + other.Units,
	}
}

// Split decomposes a non-negative base-unit total into the canonical
// carton/unit pair: loose units strictly less than one carton.
// Negative totals are a caller bug here; they are clamped to zero because
// physical stock cannot go below empty.
func Split(total, perCarton int64) CartonUnits {
	if total < 0 {
		total = 0
	}
	pc := PerCarton(perCarton)
	return CartonUnits{
		Cartons: total / pc,
		Units:   total % pc,
	}
}

// Normalize re-expresses a non-negative quantity in canonical form,
// carrying overflowing loose units into cartons. (2 cartons, 30 units) at
// 12 per carton becomes (4 cartons, 6 units).
func Normalize(q CartonUnits, perCarton int64) CartonUnits {
	return Split(q.Total(perCarton), perCarton)
}

// Delta computes the signed adjustment that takes stock from before to
// after, component by component.
//
// The decomposition is deliberately pairwise rather than a Split of the
// net base-unit difference. Counting 11 loose units against a book state
// of 1 full carton of 12 must post as (-1 carton, +11 units), not as a
// synthetic (0, -1): the movement journal has to mirror what physically
// moved in each grain.
func Delta(before, after CartonUnits) CartonUnits {
	return CartonUnits{
		Cartons: after.Cartons - before.Cartons,
		Units:   after.Units - before.Units,
	}
}

// Apply adds a signed delta to a quantity and renormalizes. The result is
// clamped at zero total; the register layer treats underflow as a
// business-rule violation before ever calling this.
func Apply(q CartonUnits, delta CartonUnits, perCarton int64) CartonUnits {
	return Split(q.Total(perCarton)+delta.Total(perCarton), perCarton)
}
