package body

import "github.com/udisondev/bodysim/internal/stat"

// ProvidedStat is one contribution of a part to a stat, interpolated
// between AtZero and AtFull by the part's health fraction.
type ProvidedStat struct {
	AtFull    float64           `yaml:"at_full"`
	AtZero    float64           `yaml:"at_zero"`
	Operation stat.ModifierType `yaml:"operation"`
	// StandaloneOnly uses the part's own health, ignoring a dead parent.
	StandaloneOnly bool `yaml:"standalone_only"`
	// AppliesToOwner pushes the contribution onto the owner's stat;
	// otherwise it only counts in Body.GetStatByGroup.
	AppliesToOwner bool `yaml:"applies_to_owner"`
}

// ValueAt interpolates the contribution for a health fraction in [0, 1].
func (ps ProvidedStat) ValueAt(fraction float64) float64 {
	fraction = min(max(fraction, 0), 1)
	return ps.AtZero + (ps.AtFull-ps.AtZero)*fraction
}
