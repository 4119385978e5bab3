package domain

import (
	"strings"
	"testing"

	"genomecore/testutil"
)

// TestDomainIsLeaf keeps the shared vocabulary free of every other module
// package, directly and transitively.
func TestDomainIsLeaf(t *testing.T) {
	testutil.AssertLayering(t, ".", "pkg/domain")
	testutil.AssertNoTransitiveDependency(t, ".", func(path string) bool {
		return strings.HasPrefix(path, "genomecore/") && path != "genomecore/pkg/domain"
	}, "domain must not depend on other module packages")
}
