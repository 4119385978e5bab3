package genome

import "testing"

func TestPadTableBounds(t *testing.T) {
	for _, nt := range NodeTypes() {
		def, inc, max := nt.DefaultPadCount(), nt.PadIncrement(), nt.MaxPadCount()
		if def > max {
			t.Fatalf("%s: default %d exceeds max %d", nt, def, max)
		}
		if !nt.PadCountAllowed(def) {
			t.Fatalf("%s: default pad count not allowed", nt)
		}
		if inc == 0 && def != max {
			t.Fatalf("%s: fixed pad types must have default == max", nt)
		}
	}
}

func TestMapPadCountReachesRequest(t *testing.T) {
	for _, nt := range NodeTypes() {
		for old := 0; old <= 70; old++ {
			got := MapPadCount(old, nt)
			if !nt.PadCountAllowed(got) {
				t.Fatalf("%s: MapPadCount(%d) = %d is not a legal count", nt, old, got)
			}
			if nt.PadIncrement() == 0 {
				if got != nt.DefaultPadCount() {
					t.Fatalf("%s: fixed type should snap to default, got %d", nt, got)
				}
				continue
			}
			if old <= nt.MaxPadCount() && got < old {
				t.Fatalf("%s: MapPadCount(%d) = %d is below the request", nt, old, got)
			}
			if got-nt.PadIncrement() >= old && got != nt.DefaultPadCount() {
				t.Fatalf("%s: MapPadCount(%d) = %d overshoots by a whole increment", nt, old, got)
			}
		}
	}
}

func TestMapPadCountExamples(t *testing.T) {
	cases := []struct {
		old  int
		nt   NodeType
		want int
	}{
		{old: 7, nt: NodeBare, want: 4},
		{old: 3, nt: NodeBox, want: 4},
		{old: 7, nt: NodeBox, want: 8},
		{old: 9, nt: NodeDiamond, want: 12},
		{old: 99, nt: NodeDiamond, want: 40},
		{old: 12, nt: NodeGene, want: 12},
		{old: 61, nt: NodeGene, want: 60},
	}
	for _, tc := range cases {
		if got := MapPadCount(tc.old, tc.nt); got != tc.want {
			t.Fatalf("MapPadCount(%d, %s) = %d, want %d", tc.old, tc.nt, got, tc.want)
		}
	}
}

type mapResources map[string]string

func (m mapResources) String(key string) string { return m[key] }

func TestNodeTypeParsingAndDisplay(t *testing.T) {
	if _, ok := ParseNodeType("hexagon"); ok {
		t.Fatalf("expected unknown type")
	}
	nt, ok := ParseNodeType("slash")
	if !ok || nt != NodeSlash {
		t.Fatalf("ParseNodeType(slash) = %v %v", nt, ok)
	}
	res := mapResources{"nodeType.box": "Box"}
	if NodeBox.DisplayName(res) != "Box" || NodeBare.DisplayName(res) != "bare" || NodeGene.DisplayName(nil) != "gene" {
		t.Fatalf("display name lookup mismatch")
	}
}
