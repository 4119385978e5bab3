package overlay

import (
	"testing"

	"genomecore/testutil"
)

func TestLayering(t *testing.T) {
	testutil.AssertLayering(t, ".", "pkg/overlay")
}
