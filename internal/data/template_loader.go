package data

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/bodysim/internal/body"
	"github.com/udisondev/bodysim/internal/script"
)

// LoadTemplate читает один body template и компилирует его формулы.
// Ошибки компиляции логируются, формула заменяется на falloff.
func LoadTemplate(path string, p script.Provider) (*body.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}
	tpl, err := ParseTemplate(raw, p)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return tpl, nil
}

// ParseTemplate decodes and compiles a template.
func ParseTemplate(raw []byte, p script.Provider) (*body.Template, error) {
	var tpl body.Template
	if err := yaml.Unmarshal(raw, &tpl); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if tpl.Name == "" {
		return nil, errors.New("template without name")
	}
	if err := tpl.Compile(p); err != nil {
		slog.Error("compiling template formulas", "template", tpl.Name, "error", err)
	}
	return &tpl, nil
}

// LoadTemplates загружает все *.yaml и *.yml из dir, ключ — имя шаблона.
func LoadTemplates(dir string, p script.Provider) (map[string]*body.Template, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("listing templates in %s: %w", dir, err)
		}
		files = append(files, m...)
	}
	slices.Sort(files)

	out := make(map[string]*body.Template, len(files))
	for _, f := range files {
		tpl, err := LoadTemplate(f, p)
		if err != nil {
			return nil, err
		}
		if _, dup := out[tpl.Name]; dup {
			return nil, fmt.Errorf("template %q defined twice (%s)", tpl.Name, f)
		}
		out[tpl.Name] = tpl
	}

	slog.Info("loaded body templates", "count", len(out), "dir", dir)
	return out, nil
}
