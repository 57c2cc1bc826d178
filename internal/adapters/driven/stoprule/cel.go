// Package stoprule provides stop rules written as CEL expressions.
package stoprule

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure CEL implements the interface.
var _ driven.StopRule = (*CEL)(nil)

var log = logger.New("stoprule")

// Variables available to expressions. All are ints except the failed_*
// flags, which are bools.
var variables = []struct {
	name string
	typ  *cel.Type
}{
	{"steps", cel.IntType},
	{"hops", cel.IntType},
	{"passages", cel.IntType},
	{"triples", cel.IntType},
	{"pending", cel.IntType},
	{"last_hop_triples", cel.IntType},
	{"extracted_in_hop", cel.IntType},
	{"stalled_retrievals", cel.IntType},
	{"question_words", cel.IntType},
	{"failed_retrieve", cel.BoolType},
	{"failed_extract", cel.BoolType},
}

// CEL stops retrieval when a boolean CEL expression over the evidence
// statistics is true, e.g. "stalled_retrievals >= 2 && passages > 20".
// Compiled programs are safe for concurrent use.
type CEL struct {
	expr    string
	program cel.Program
}

// NewCEL compiles expr. A syntax error, an unknown variable or a
// non-boolean result is a configuration error.
func NewCEL(expr string) (*CEL, error) {
	opts := make([]cel.EnvOption, 0, len(variables))
	for _, v := range variables {
		opts = append(opts, cel.Variable(v.name, v.typ))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, domain.NewConfigurationError("planner.stop_rule", expr, iss.Err().Error())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, domain.NewConfigurationError("planner.stop_rule", expr,
			"must evaluate to bool, got "+ast.OutputType().String())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, domain.NewConfigurationError("planner.stop_rule", expr, err.Error())
	}
	return &CEL{expr: expr, program: prg}, nil
}

// Name returns the expression.
func (c *CEL) Name() string {
	return "cel(" + c.expr + ")"
}

// ShouldStop evaluates the expression. Evaluation errors such as
// division by zero count as false.
func (c *CEL) ShouldStop(st domain.EvidenceStats) bool {
	out, _, err := c.program.Eval(map[string]any{
		"steps":              int64(st.Steps),
		"hops":               int64(st.Hops),
		"passages":           int64(st.Passages),
		"triples":            int64(st.Triples),
		"pending":            int64(st.Pending),
		"last_hop_triples":   int64(st.LastHopTriples),
		"extracted_in_hop":   int64(st.ExtractedInHop),
		"stalled_retrievals": int64(st.StalledRetrievals),
		"question_words":     int64(st.QuestionWords),
		"failed_retrieve":    st.FailedRetrieve,
		"failed_extract":     st.FailedExtract,
	})
	if err != nil {
		log.Warn("stop rule evaluation failed", "rule", c.expr, "error", err)
		return false
	}
	stop, ok := out.Value().(bool)
	return ok && stop
}
