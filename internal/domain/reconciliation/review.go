package reconciliation

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"stocktake/internal/core/apperror"
)

// ReviewRule flags discrepancy lines that a supervisor should look at
// before trusting the count. The expression is CEL over line facts and
// must evaluate to bool.
//
// Example: "abs_delta_total > 50 || abs_delta_total * 100 > before_total * 20"
type ReviewRule struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`

	// Blocking rules fail the confirm instead of just flagging the line.
	Blocking bool `json:"blocking"`
}

// ReviewSet is a compiled set of review rules.
type ReviewSet struct {
	rules []compiledRule
}

type compiledRule struct {
	rule    ReviewRule
	program cel.Program
}

// reviewEnv declares the facts a rule may reference.
func reviewEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("product_code", cel.StringType),
		cel.Variable("units_per_carton", cel.IntType),
		cel.Variable("before_total", cel.IntType),
		cel.Variable("counted_total", cel.IntType),
		cel.Variable("delta_cartons", cel.IntType),
		cel.Variable("delta_units", cel.IntType),
		cel.Variable("delta_total", cel.IntType),
		cel.Variable("abs_delta_total", cel.IntType),
	)
}

// CompileRules compiles rule expressions once, at startup.
func CompileRules(rules []ReviewRule) (*ReviewSet, error) {
	env, err := reviewEnv()
	if err != nil {
		return nil, fmt.Errorf("create review env: %w", err)
	}

	set := &ReviewSet{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		ast, iss := env.Compile(r.Expression)
		if iss != nil && iss.Err() != nil {
			return nil, apperror.NewValidation("invalid review rule expression").
				WithDetail("rule", r.Name).
				WithDetail("error", iss.Err().Error())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, apperror.NewValidation("review rule must evaluate to bool").
				WithDetail("rule", r.Name)
		}

		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("compile rule %s: %w", r.Name, err)
		}

		set.rules = append(set.rules, compiledRule{rule: r, program: prg})
	}

	return set, nil
}

// LineFacts are the values exposed to rule expressions for one line.
type LineFacts struct {
	ProductCode    string
	UnitsPerCarton int64
	BeforeTotal    int64
	CountedTotal   int64
	DeltaCartons   int64
	DeltaUnits     int64
	DeltaTotal     int64
}

// Evaluate runs all rules against one line. The first matching rule
// wins; blocking matches return an error, others return the rule name
// as the review reason.
func (s *ReviewSet) Evaluate(facts LineFacts) (flagged bool, reason string, err error) {
	if s == nil || len(s.rules) == 0 {
		return false, "", nil
	}

	abs := facts.DeltaTotal
	if abs < 0 {
		abs = -abs
	}

	vars := map[string]any{
		"product_code":     facts.ProductCode,
		"units_per_carton": facts.UnitsPerCarton,
		"before_total":     facts.BeforeTotal,
		"counted_total":    facts.CountedTotal,
		"delta_cartons":    facts.DeltaCartons,
		"delta_units":      facts.DeltaUnits,
		"delta_total":      facts.DeltaTotal,
		"abs_delta_total":  abs,
	}

	for _, cr := range s.rules {
		out, _, evalErr := cr.program.Eval(vars)
		if evalErr != nil {
			return false, "", fmt.Errorf("evaluate rule %s: %w", cr.rule.Name, evalErr)
		}

		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}

		if cr.rule.Blocking {
			return true, cr.rule.Name, apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"Discrepancy exceeds the confirmation limit",
			).WithDetail("rule", cr.rule.Name).
				WithDetail("product_code", facts.ProductCode)
		}
		return true, cr.rule.Name, nil
	}

	return false, "", nil
}
