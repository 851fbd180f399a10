package script

import (
	"fmt"
	"strconv"

	"github.com/Shopify/go-lua"
)

// chunkGlobal is where a compiled chunk is kept inside its state.
const chunkGlobal = "__bodysim_chunk"

// Lua compiles Lua chunks. A chunk returns its result:
//
//	return { type = "cut", severity = amount * 0.8 }
type Lua struct{}

// NewLua creates a Lua provider.
func NewLua() *Lua { return &Lua{} }

// Compile loads code into a dedicated state.
// The state is reused by every Eval of the program; programs, like the rest
// of the core, run on one simulation goroutine.
func (Lua) Compile(code string) (Program, error) {
	st := lua.NewState()
	lua.OpenLibraries(st)
	if err := lua.LoadString(st, code); err != nil {
		return nil, fmt.Errorf("compiling lua: %w", err)
	}
	st.SetGlobal(chunkGlobal)
	return &luaProgram{state: st}, nil
}

type luaProgram struct {
	state *lua.State
}

func (p *luaProgram) Eval(vars map[string]any) (any, error) {
	st := p.state
	for name, v := range vars {
		pushLua(st, v)
		st.SetGlobal(name)
	}
	st.Global(chunkGlobal)
	if err := st.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("running lua: %w", err)
	}
	out := fromLua(st, -1)
	st.Pop(1)
	return out, nil
}

func pushLua(st *lua.State, v any) {
	switch x := v.(type) {
	case nil:
		st.PushNil()
	case bool:
		st.PushBoolean(x)
	case string:
		st.PushString(x)
	case map[string]any:
		st.NewTable()
		for k, val := range x {
			pushLua(st, val)
			st.SetField(-2, k)
		}
	case []any:
		st.NewTable()
		for i, val := range x {
			pushLua(st, val)
			st.RawSetInt(-2, i+1)
		}
	default:
		if n, ok := Number(v); ok {
			st.PushNumber(n)
			return
		}
		st.PushString(fmt.Sprint(v))
	}
}

func fromLua(st *lua.State, idx int) any {
	switch st.TypeOf(idx) {
	case lua.TypeBoolean:
		return st.ToBoolean(idx)
	case lua.TypeNumber:
		n, _ := st.ToNumber(idx)
		return n
	case lua.TypeString:
		s, _ := st.ToString(idx)
		return s
	case lua.TypeTable:
		idx = st.AbsIndex(idx)
		out := make(map[string]any)
		st.PushNil()
		for st.Next(idx) {
			// key at -2, value at -1; never ToString a number key in place
			var key string
			if st.TypeOf(-2) == lua.TypeString {
				key, _ = st.ToString(-2)
			} else if n, ok := st.ToNumber(-2); ok {
				key = strconv.FormatFloat(n, 'g', -1, 64)
			}
			out[key] = fromLua(st, -1)
			st.Pop(1)
		}
		return out
	default:
		return nil
	}
}
