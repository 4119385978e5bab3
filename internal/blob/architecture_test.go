package blob

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestImportBoundaries ensures only the blob package wraps the infra blob
// backends and that the public pkg tree never reaches into internal.
func TestImportBoundaries(t *testing.T) {
	const (
		infraPrefix   = "genomecore/internal/infra/blob"
		allowedPrefix = "genomecore/internal/blob"
		publicPrefix  = "genomecore/pkg/"
		internalRoot  = "genomecore/internal"
	)

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "genomecore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		pos := filepath.Join(pkg.PkgPath, "...")
		public := strings.HasPrefix(pkg.PkgPath, publicPrefix)
		wrapsInfra := strings.HasPrefix(pkg.PkgPath, allowedPrefix) || strings.HasPrefix(pkg.PkgPath, infraPrefix)
		for importPath := range pkg.Imports {
			if public && hasPrefixPath(importPath, internalRoot) {
				seen[pos+": "+importPath] = struct{}{}
			}
			if !wrapsInfra && hasPrefixPath(importPath, infraPrefix) {
				seen[pos+": "+importPath] = struct{}{}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import: %s", v)
		}
		t.Fatalf("found %d forbidden imports", len(violations))
	}
}

func hasPrefixPath(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}
