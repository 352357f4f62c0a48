package reconciliation

import (
	"testing"
)

func TestCompileRulesRejectsBadExpressions(t *testing.T) {
	if _, err := CompileRules([]ReviewRule{
		{Name: "broken", Expression: "abs_delta_total >"},
	}); err == nil {
		t.Error("syntax error must fail compilation")
	}

	if _, err := CompileRules([]ReviewRule{
		{Name: "not-bool", Expression: "abs_delta_total + 1"},
	}); err == nil {
		t.Error("non-bool expression must fail compilation")
	}

	if _, err := CompileRules([]ReviewRule{
		{Name: "unknown-var", Expression: "no_such_fact > 5"},
	}); err == nil {
		t.Error("unknown variable must fail compilation")
	}
}

func TestReviewSetEvaluate(t *testing.T) {
	set, err := CompileRules([]ReviewRule{
		{Name: "per-product", Expression: `product_code == "PR-9" && delta_total < 0`},
		{Name: "big-move", Expression: "abs_delta_total >= 48"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		facts      LineFacts
		wantFlag   bool
		wantReason string
	}{
		{
			"small delta passes",
			LineFacts{ProductCode: "PR-1", DeltaTotal: -3},
			false, "",
		},
		{
			"watched product shortage",
			LineFacts{ProductCode: "PR-9", DeltaTotal: -1},
			true, "per-product",
		},
		{
			"large surplus",
			LineFacts{ProductCode: "PR-1", DeltaTotal: 60},
			true, "big-move",
		},
		{
			"large shortage via abs",
			LineFacts{ProductCode: "PR-1", DeltaTotal: -60},
			true, "big-move",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagged, reason, err := set.Evaluate(tt.facts)
			if err != nil {
				t.Fatal(err)
			}
			if flagged != tt.wantFlag || reason != tt.wantReason {
				t.Errorf("Evaluate = (%v, %q), want (%v, %q)", flagged, reason, tt.wantFlag, tt.wantReason)
			}
		})
	}
}

func TestReviewSetEvaluateBlocking(t *testing.T) {
	set, err := CompileRules([]ReviewRule{
		{Name: "hard-limit", Expression: "abs_delta_total > 100", Blocking: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	flagged, _, err := set.Evaluate(LineFacts{DeltaTotal: -150})
	if err == nil {
		t.Fatal("blocking match must return an error")
	}
	if !flagged {
		t.Error("blocking match must still report flagged")
	}

	if _, _, err := set.Evaluate(LineFacts{DeltaTotal: -10}); err != nil {
		t.Errorf("non-matching line must pass: %v", err)
	}
}

func TestNilReviewSet(t *testing.T) {
	var set *ReviewSet
	flagged, reason, err := set.Evaluate(LineFacts{DeltaTotal: 1000})
	if flagged || reason != "" || err != nil {
		t.Error("nil set must be a no-op")
	}
}
