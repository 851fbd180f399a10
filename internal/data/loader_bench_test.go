package data

import (
	"testing"

	"github.com/udisondev/bodysim/internal/script"
)

// BenchmarkLoadCatalog benchmarks the full testdata catalog load,
// including CEL compilation of every rule and formula.
func BenchmarkLoadCatalog(b *testing.B) {
	p, err := script.NewCEL()
	if err != nil {
		b.Fatalf("NewCEL: %v", err)
	}
	b.ReportAllocs()
	for range b.N {
		if _, err := LoadCatalog(testPaths, p); err != nil {
			b.Fatalf("LoadCatalog: %v", err)
		}
	}
}

// BenchmarkBuildTemplate benchmarks instantiating a body from a loaded template.
func BenchmarkBuildTemplate(b *testing.B) {
	p, err := script.NewCEL()
	if err != nil {
		b.Fatalf("NewCEL: %v", err)
	}
	cat, err := LoadCatalog(testPaths, p)
	if err != nil {
		b.Fatalf("LoadCatalog: %v", err)
	}
	tpl, ok := cat.Template("humanoid")
	if !ok {
		b.Fatal("humanoid template missing")
	}
	b.ReportAllocs()
	for range b.N {
		if _, err := tpl.Build(nil); err != nil {
			b.Fatalf("Build: %v", err)
		}
	}
}
