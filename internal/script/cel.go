package script

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// CEL compiles Common Expression Language scripts.
// Numeric literals must match the operand type: write `amount * 2.0`,
// numbers passed in are doubles.
type CEL struct {
	env *cel.Env
}

// NewCEL creates a CEL environment declaring vars (StandardVars if none)
// as dynamically typed variables.
func NewCEL(vars ...string) (*CEL, error) {
	if len(vars) == 0 {
		vars = StandardVars
	}
	opts := make([]cel.EnvOption, 0, len(vars))
	for _, v := range vars {
		opts = append(opts, cel.Variable(v, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating cel env: %w", err)
	}
	return &CEL{env: env}, nil
}

// Compile parses and checks code.
func (c *CEL) Compile(code string) (Program, error) {
	ast, iss := c.env.Compile(code)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compiling cel %q: %w", code, iss.Err())
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building cel program %q: %w", code, err)
	}
	return celProgram{prg: prg}, nil
}

type celProgram struct {
	prg cel.Program
}

func (p celProgram) Eval(vars map[string]any) (any, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("evaluating cel: %w", err)
	}
	return celNative(out), nil
}

// celNative converts a CEL value into plain Go values
// (float64, int64, string, bool, map[string]any, []any, nil).
func celNative(v ref.Val) any {
	switch x := v.(type) {
	case types.Null:
		return nil
	case traits.Mapper:
		out := make(map[string]any)
		it := x.Iterator()
		for it.HasNext() == types.True {
			k := it.Next()
			out[fmt.Sprint(k.Value())] = celNative(x.Get(k))
		}
		return out
	case traits.Lister:
		var out []any
		it := x.Iterator()
		for it.HasNext() == types.True {
			out = append(out, celNative(it.Next()))
		}
		return out
	default:
		return v.Value()
	}
}
