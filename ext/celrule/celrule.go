// Package celrule builds vschema extension rules from CEL expressions.
//
// The expression sees two variables: value (the value under validation) and
// params (the rule parameters, References already resolved). It must
// evaluate to a bool; false reports "<extension>.<rule>" with the params
// merged into the error context.
//
//	ext := vschema.Extension{
//		Name: "even",
//		Base: vschema.Number(),
//		Rules: []vschema.RuleDef{
//			celrule.MustRule("divisible", "int(value) % int(params.by) == 0", vschema.Param{Name: "by"}),
//		},
//	}
package celrule

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/reoring/vschema"
)

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
}

// Rule compiles expr into a RuleDef named name.
func Rule(name, expr string, params ...vschema.Param) (vschema.RuleDef, error) {
	env, err := newEnv()
	if err != nil {
		return vschema.RuleDef{}, fmt.Errorf("celrule: env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return vschema.RuleDef{}, fmt.Errorf("celrule: compile %s: %w", name, iss.Err())
	}
	if t := ast.OutputType(); t != cel.BoolType && t != cel.DynType {
		return vschema.RuleDef{}, fmt.Errorf("celrule: %s must evaluate to bool, got %s", name, t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return vschema.RuleDef{}, fmt.Errorf("celrule: program %s: %w", name, err)
	}
	return vschema.RuleDef{
		Name:        name,
		Params:      params,
		Description: expr,
		Validate: func(value any, p map[string]any, c *vschema.HookContext) (any, error) {
			if p == nil {
				p = map[string]any{}
			}
			ctx := vschema.Context{"value": value}
			for k, v := range p {
				ctx[k] = v
			}
			out, _, err := prg.Eval(map[string]any{"value": value, "params": p})
			if err != nil {
				ctx["error"] = err.Error()
				return value, c.Error(name, ctx)
			}
			if ok, isBool := out.Value().(bool); !isBool || !ok {
				return value, c.Error(name, ctx)
			}
			return value, nil
		},
	}, nil
}

// MustRule is Rule that panics on a compile error.
func MustRule(name, expr string, params ...vschema.Param) vschema.RuleDef {
	r, err := Rule(name, expr, params...)
	if err != nil {
		panic(err)
	}
	return r
}
