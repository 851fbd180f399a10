package stat

import "math"

// Bounds are the clamping parameters of a stat.
type Bounds struct {
	Min      float64
	Max      float64
	OverCap  bool // clamp final value to Max
	UnderCap bool // clamp final value to Min
}

// Unbounded disables step 7 of Calculate; Capmin/Capmax still apply.
var Unbounded = Bounds{Min: math.Inf(-1), Max: math.Inf(1)}

// Calculate folds mods onto base in the fixed evaluation order:
//
//  1. OverrideFinal returns immediately;
//  2. OverrideBase replaces base;
//  3. Flat values are summed onto base (newBase);
//  4. every Percent adds newBase × value (percentages do not compound);
//  5. every Multiplier multiplies by (1 + value) (multipliers compound);
//  6. FlatPostMods are added;
//  7. OverCap/UnderCap clamp to Max/Min;
//  8. the result is clamped into [max(Capmin), min(Capmax)], with ±Inf
//     for empty sets.
//
// When several OverrideFinal (or OverrideBase) modifiers are present the
// last one in mods wins. Stat passes modifiers in insertion order.
func Calculate(base float64, mods []Modifier, b Bounds) float64 {
	var (
		flat, percent, post float64
		mult                = 1.0
		capMin              = math.Inf(-1)
		capMax              = math.Inf(1)
		overrideFinal       float64
		hasOverrideFinal    bool
	)

	for _, m := range mods {
		switch m.Type {
		case OverrideFinal:
			overrideFinal, hasOverrideFinal = m.Value, true
		case OverrideBase:
			base = m.Value
		case Flat:
			flat += m.Value
		case Percent:
			percent += m.Value
		case Multiplier:
			mult *= 1 + m.Value
		case FlatPostMods:
			post += m.Value
		case Capmin:
			capMin = math.Max(capMin, m.Value)
		case Capmax:
			capMax = math.Min(capMax, m.Value)
		}
	}
	if hasOverrideFinal {
		return overrideFinal
	}

	newBase := base + flat
	final := newBase + newBase*percent
	final *= mult
	final += post

	if b.OverCap && final > b.Max {
		final = b.Max
	}
	if b.UnderCap && final < b.Min {
		final = b.Min
	}

	// Capmin is applied last so it wins over a smaller Capmax.
	if final > capMax {
		final = capMax
	}
	if final < capMin {
		final = capMin
	}
	return final
}
