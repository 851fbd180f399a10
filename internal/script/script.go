package script

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDisabled is returned by providers that never compile (predictive copies).
var ErrDisabled = errors.New("scripting disabled")

// Variables every provider declares. Contexts set the subset they need.
var StandardVars = []string{"amount", "source", "part", "injury", "value", "current"}

// Program is a compiled script.
type Program interface {
	Eval(vars map[string]any) (any, error)
}

// Provider compiles data-driven scripts.
type Provider interface {
	Compile(code string) (Program, error)
}

// Mode tells whether this process is the authority for simulation state.
type Mode uint8

const (
	Authoritative Mode = iota // server: compiles scripts, runs regen and dependencies
	Predictive                // client mirror: relies on pushed state
)

func (m Mode) String() string {
	switch m {
	case Authoritative:
		return "authoritative"
	case Predictive:
		return "predictive"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode parses "authoritative" or "predictive".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "authoritative", "server":
		return Authoritative, nil
	case "predictive", "client":
		return Predictive, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// Engine names accepted by ForMode.
const (
	EngineCEL = "cel"
	EngineLua = "lua"
)

// ForMode returns the provider for mode and engine.
// Predictive mode always gets Disabled.
func ForMode(mode Mode, engine string) (Provider, error) {
	if mode == Predictive {
		return Disabled{}, nil
	}
	switch strings.ToLower(engine) {
	case "", EngineCEL:
		return NewCEL()
	case EngineLua:
		return NewLua(), nil
	default:
		return nil, fmt.Errorf("unknown script engine %q", engine)
	}
}

// Disabled refuses to compile anything.
type Disabled struct{}

func (Disabled) Compile(string) (Program, error) { return nil, ErrDisabled }

// Func compiles code and wraps it into a typed function.
// conv converts the raw script result.
func Func[R any](p Provider, code string, conv func(any) (R, error)) (func(vars map[string]any) (R, error), error) {
	if p == nil {
		return nil, ErrDisabled
	}
	prg, err := p.Compile(code)
	if err != nil {
		return nil, err
	}
	return func(vars map[string]any) (R, error) {
		out, err := prg.Eval(vars)
		if err != nil {
			var zero R
			return zero, err
		}
		return conv(out)
	}, nil
}
