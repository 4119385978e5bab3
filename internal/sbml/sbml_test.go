package sbml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
)

func exportableGenome(t *testing.T) *genome.DBGenome {
	t.Helper()
	g := genome.NewDBGenome("root", "Kernel <A&B>", domain.NewLabeller())
	for _, id := range []string{"G1", "G2"} {
		if _, err := g.AddGene(genome.NewNode(id, genome.NodeGene, "gene "+id)); err != nil {
			t.Fatalf("gene: %v", err)
		}
	}
	if _, err := g.AddNode(genome.NewNode("X-1", genome.NodeBox, "box")); err != nil {
		t.Fatalf("node: %v", err)
	}
	for _, l := range []genome.Linkage{
		{ID: "L1", Source: "G1", Target: "G2", Sign: domain.SignPositive},
		{ID: "L2", Source: "X-1", Target: "G2", Sign: domain.SignNegative},
		{ID: "L3", Source: "G2", Target: "X-1", Sign: domain.SignPositive},
	} {
		if _, err := g.AddLinkage(l); err != nil {
			t.Fatalf("link %s: %v", l.ID, err)
		}
	}
	return g
}

func TestWriteRendersSpeciesAndReactions(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, exportableGenome(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`name="Kernel &lt;A&amp;B&gt;"`,
		`<species id="s_G1" name="gene G1"`,
		`<species id="s_X_1" name="box" compartment="cell" initialAmount="0"/>`,
		`<reaction id="expr_s_G2"`,
		`<modifierSpeciesReference species="s_X_1" name="L2:repressor"/>`,
		`<modifierSpeciesReference species="s_G1" name="L1:activator"/>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "expr_s_G1") {
		t.Fatalf("genes without inputs get no reaction")
	}
	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		if _, err := dec.Token(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("output is not well formed: %v", err)
		}
	}
}

func TestWriteRefusesDuplicatePaths(t *testing.T) {
	g := exportableGenome(t)
	if _, err := g.AddLinkage(genome.Linkage{ID: "L4", Source: "G1", Target: "G2", Sign: domain.SignPositive, LandingPad: 1}, genome.PermitMergeable()); err != nil {
		t.Fatalf("duplicate link: %v", err)
	}
	var buf bytes.Buffer
	err := Write(&buf, g)
	if !errors.Is(err, ErrNotExportable) {
		t.Fatalf("expected refusal, got %v", err)
	}
	var pe *ProblemError
	if !errors.As(err, &pe) || len(pe.Problems) != 1 || pe.Problems[0].ID != "L4" {
		t.Fatalf("problems = %+v", pe)
	}
	if buf.Len() != 0 {
		t.Fatalf("refused export wrote output")
	}
}
