//go:build governance

package rel_test

import (
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/leapstack-labs/relq"

// TestGovernance_PkgDoesNotImportInternal verifies the layering rule: the
// public library under pkg/ must never depend on internal/. The CLI wires
// the library; the library must stay usable without it.
func TestGovernance_PkgDoesNotImportInternal(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	for _, p := range pkgs {
		for importPath := range p.Imports {
			if strings.HasPrefix(importPath, modulePath+"/internal/") {
				t.Errorf("LAYERING VIOLATION: '%s' imports '%s'.\n"+
					"   Fix: move the shared code under pkg/ or invert the dependency.",
					strings.TrimPrefix(p.PkgPath, modulePath+"/"), importPath)
			}
		}
	}
}

// TestGovernance_RelImportsOnlyStdlib verifies that the IR core has no
// dependencies at all: pkg/rel is pure data and validation, and everything
// else (dialects, SQL generation, adapters) layers on top of it.
func TestGovernance_RelImportsOnlyStdlib(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/rel")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	for _, p := range pkgs {
		for importPath := range p.Imports {
			if strings.Contains(importPath, ".") {
				t.Errorf("%s imports non-stdlib package: %s (pkg/rel must stay dependency-free)",
					strings.TrimPrefix(p.PkgPath, modulePath+"/"), importPath)
			}
		}
	}
}
