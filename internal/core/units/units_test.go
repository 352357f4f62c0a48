package units

import (
	"testing"
)

func TestPerCarton(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want int64
	}{
		{"positive passes through", 12, 12},
		{"zero defaults to one", 0, 1},
		{"negative defaults to one", -5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PerCarton(tt.in); got != tt.want {
				t.Errorf("PerCarton(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestTotal(t *testing.T) {
	tests := []struct {
		name      string
		q         CartonUnits
		perCarton int64
		want      int64
	}{
		{"cartons and units", CartonUnits{Cartons: 3, Units: 5}, 12, 41},
		{"units only", CartonUnits{Units: 7}, 12, 7},
		{"cartons only", CartonUnits{Cartons: 2}, 24, 48},
		{"per-carton one", CartonUnits{Cartons: 3, Units: 5}, 1, 8},
		{"zero config treated as one", CartonUnits{Cartons: 3, Units: 5}, 0, 8},
		{"negative delta components", CartonUnits{Cartons: -1, Units: 11}, 12, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Total(tt.perCarton); got != tt.want {
				t.Errorf("Total = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		perCarton int64
		want      CartonUnits
	}{
		{"exact cartons", 36, 12, CartonUnits{Cartons: 3, Units: 0}},
		{"with remainder", 41, 12, CartonUnits{Cartons: 3, Units: 5}},
		{"less than one carton", 7, 12, CartonUnits{Cartons: 0, Units: 7}},
		{"zero", 0, 12, CartonUnits{}},
		{"negative clamped to zero", -4, 12, CartonUnits{}},
		{"per-carton one", 9, 1, CartonUnits{Cartons: 9, Units: 0}},
		{"zero config treated as one", 9, 0, CartonUnits{Cartons: 9, Units: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Split(tt.total, tt.perCarton); got != tt.want {
				t.Errorf("Split(%d, %d) = %+v, want %+v", tt.total, tt.perCarton, got, tt.want)
			}
		})
	}
}

// Splitting a total and collapsing it back must be lossless for any
// non-negative quantity.
func TestTotalSplitRoundTrip(t *testing.T) {
	perCartons := []int64{1, 6, 12, 24, 100}
	totals := []int64{0, 1, 5, 11, 12, 13, 99, 100, 1000, 12345}

	for _, pc := range perCartons {
		for _, total := range totals {
			q := Split(total, pc)
			if got := q.Total(pc); got != total {
				t.Errorf("Split(%d, %d).Total = %d, want %d", total, pc, got, total)
			}
			if q.Units >= PerCarton(pc) {
				t.Errorf("Split(%d, %d) not canonical: %+v", total, pc, q)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		q         CartonUnits
		perCarton int64
		want      CartonUnits
	}{
		{"already canonical", CartonUnits{Cartons: 2, Units: 5}, 12, CartonUnits{Cartons: 2, Units: 5}},
		{"carries overflow", CartonUnits{Cartons: 2, Units: 30}, 12, CartonUnits{Cartons: 4, Units: 6}},
		{"exact carry", CartonUnits{Cartons: 0, Units: 24}, 12, CartonUnits{Cartons: 2, Units: 0}},
		{"boundary stays loose", CartonUnits{Cartons: 0, Units: 11}, 12, CartonUnits{Cartons: 0, Units: 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.q, tt.perCarton); got != tt.want {
				t.Errorf("Normalize(%+v, %d) = %+v, want %+v", tt.q, tt.perCarton, got, tt.want)
			}
		})
	}
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name   string
		before CartonUnits
		after  CartonUnits
		want   CartonUnits
	}{
		{
			"no change",
			CartonUnits{Cartons: 2, Units: 3},
			CartonUnits{Cartons: 2, Units: 3},
			CartonUnits{},
		},
		{
			"pure increase",
			CartonUnits{Cartons: 1, Units: 2},
			CartonUnits{Cartons: 3, Units: 7},
			CartonUnits{Cartons: 2, Units: 5},
		},
		{
			"pure decrease",
			CartonUnits{Cartons: 3, Units: 7},
			CartonUnits{Cartons: 1, Units: 2},
			CartonUnits{Cartons: -2, Units: -5},
		},
		{
			// Net change is +1 base unit, but what moved is one full carton
			// in and eleven loose units out. The movement journal needs the
			// per-grain truth, not the net split.
			"mixed sign components",
			CartonUnits{Cartons: 0, Units: 11},
			CartonUnits{Cartons: 1, Units: 0},
			CartonUnits{Cartons: 1, Units: -11},
		},
		{
			"loose broken out of carton",
			CartonUnits{Cartons: 1, Units: 0},
			CartonUnits{Cartons: 0, Units: 11},
			CartonUnits{Cartons: -1, Units: 11},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delta(tt.before, tt.after); got != tt.want {
				t.Errorf("Delta(%+v, %+v) = %+v, want %+v", tt.before, tt.after, got, tt.want)
			}
		})
	}
}

// Applying Delta(before, after) to before must land exactly on after's
// total, regardless of how the components are distributed.
func TestDeltaApplyConsistency(t *testing.T) {
	const perCarton = 12
	states := []CartonUnits{
		{},
		{Cartons: 0, Units: 11},
		{Cartons: 1, Units: 0},
		{Cartons: 2, Units: 5},
		{Cartons: 5, Units: 11},
	}

	for _, before := range states {
		for _, after := range states {
			d := Delta(before, after)
			got := Apply(before, d, perCarton)
			want := Normalize(after, perCarton)
			if got != want {
				t.Errorf("Apply(%+v, Delta=%+v) = %+v, want %+v", before, d, got, want)
			}
		}
	}
}

func TestApplyClampsAtZero(t *testing.T) {
	got := Apply(CartonUnits{Cartons: 0, Units: 3}, CartonUnits{Cartons: -1, Units: 0}, 12)
	if !got.IsZero() {
		t.Errorf("Apply below zero = %+v, want zero", got)
	}
}
