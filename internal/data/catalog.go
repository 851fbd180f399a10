package data

import (
	"github.com/udisondev/bodysim/internal/body"
	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/script"
)

// Catalog holds everything loaded from the data directory.
type Catalog struct {
	Registry  *injury.Registry
	Templates map[string]*body.Template
}

// Paths locates the data files of a catalog.
type Paths struct {
	InjuryTypes string
	DamageTypes string
	Templates   string // directory
}

// LoadCatalog loads injury types, then damage types, then templates.
func LoadCatalog(paths Paths, p script.Provider) (*Catalog, error) {
	reg := injury.NewRegistry()
	if err := LoadInjuryTypes(reg, paths.InjuryTypes, p); err != nil {
		return nil, err
	}
	if err := LoadDamageTypes(reg, paths.DamageTypes, p); err != nil {
		return nil, err
	}
	templates, err := LoadTemplates(paths.Templates, p)
	if err != nil {
		return nil, err
	}
	return &Catalog{Registry: reg, Templates: templates}, nil
}

// Template returns the template called name.
func (c *Catalog) Template(name string) (*body.Template, bool) {
	t, ok := c.Templates[name]
	return t, ok
}
