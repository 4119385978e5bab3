package model

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
)

func writeDocument(t *testing.T, doc *Document) string {
	t.Helper()
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.String()
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := newTestDocument(t)
	top, _ := doc.Instance("top")
	if _, err := top.AddGroup(genome.Group{ID: "g1", Name: "Group", Members: domain.NewIDSet("A:0", "B:0")}); err != nil {
		t.Fatalf("group: %v", err)
	}
	child, _ := doc.Instance("child")
	if _, err := child.InheritGroup("g1", ""); err != nil {
		t.Fatalf("inherit: %v", err)
	}
	first := writeDocument(t, doc)
	if !strings.Contains(first, `<model version="2">`) {
		t.Fatalf("missing versioned root element:\n%s", first)
	}

	got, err := Read(strings.NewReader(first))
	if err != nil {
		t.Fatalf("read: %v\n%s", err, first)
	}
	if len(got.Fixups()) != 0 {
		t.Fatalf("current documents need no fixups, got %v", got.Fixups())
	}
	kid, ok := got.Instance("child")
	if !ok || kid.Parent() == nil || kid.Parent().Key() != "top" || !kid.HasGroup("g1:0") {
		t.Fatalf("child instance not restored")
	}
	if p, ok := got.Proxy("dyn"); !ok || p.Static().Key() != "top" || !p.IsSingle() {
		t.Fatalf("proxy not restored")
	}
	for _, label := range []string{"A", "B", "L", "top", "child", "dyn", "g1"} {
		if !got.Labels().Contains(label) {
			t.Fatalf("label %s not registered", label)
		}
	}
	if second := writeDocument(t, got); second != first {
		t.Fatalf("round trip differs:\n%s\n---\n%s", first, second)
	}
}

// illegalChildMarkup returns a document whose child instance holds A:0 as
// active below a variable parent.
func illegalChildMarkup(t *testing.T, version string) string {
	t.Helper()
	doc := New("root", "Test network")
	root := doc.Root()
	if _, err := root.AddGene(genome.NewNode("A", genome.NodeGene, "A")); err != nil {
		t.Fatalf("gene: %v", err)
	}
	top, err := doc.AddRootInstance("top", "Top")
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	if _, err := top.AddNodeInstance(genome.NodeInstance{ID: "A:0", Activity: genome.Variable(0.5)}); err != nil {
		t.Fatalf("top node: %v", err)
	}
	child, err := doc.AddChildInstance("top", "child", "Child")
	if err != nil {
		t.Fatalf("child: %v", err)
	}
	if _, err := child.AddNodeInstance(genome.NodeInstance{ID: "A:0", Activity: genome.Inactive()}); err != nil {
		t.Fatalf("child node: %v", err)
	}
	out := writeDocument(t, doc)
	out = strings.Replace(out, `activity="inactive"`, `activity="active"`, 1)
	return strings.Replace(out, `version="2"`, `version="`+version+`"`, 1)
}

func TestReadRepairsLegacyActivities(t *testing.T) {
	doc, err := Read(strings.NewReader(illegalChildMarkup(t, "1")))
	if err != nil {
		t.Fatalf("read legacy: %v", err)
	}
	fixups := doc.Fixups()
	if len(fixups) != 1 || fixups[0] != "A:0" {
		t.Fatalf("fixups = %v", fixups)
	}
	child, _ := doc.Instance("child")
	if ni, _ := child.NodeInstance("A:0"); ni.Activity != genome.Variable(0.5) {
		t.Fatalf("legacy activity clamped to %s", ni.Activity)
	}
}

func TestReadRejectsIllegalActivities(t *testing.T) {
	_, err := Read(strings.NewReader(illegalChildMarkup(t, "2")))
	if !errors.Is(err, domain.ErrIllegalActivity) {
		t.Fatalf("expected illegal activity, got %v", err)
	}
}

func TestReadRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"wrong root":        `<genomes/>`,
		"no genome":         `<model version="2"></model>`,
		"instances first":   `<model><instances/><genome key="r"/></model>`,
		"stray instance":    `<model><genome key="r"/><instance key="i"/></model>`,
		"second genome":     `<model><genome key="r"/><genome key="s"/></model>`,
		"bad version":       `<model version="two"><genome key="r"/></model>`,
		"unknown top level": `<model><genome key="r"/><layouts/></model>`,
	}
	for name, doc := range cases {
		if _, err := Read(strings.NewReader(doc)); !errors.Is(err, domain.ErrFormat) {
			t.Fatalf("%s: expected format error, got %v", name, err)
		}
	}
}
