package xmlio

import (
	"testing"

	"genomecore/testutil"
)

func TestLayering(t *testing.T) {
	testutil.AssertLayering(t, ".", "pkg/xmlio")
}
