package sif

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
)

func newGenome() *genome.DBGenome {
	return genome.NewDBGenome("root", "Imported", domain.NewLabeller())
}

func TestParseRelationSynonyms(t *testing.T) {
	cases := map[string]domain.Sign{
		"promotes":  domain.SignPositive,
		"POS":       domain.SignPositive,
		"represses": domain.SignNegative,
		"neg":       domain.SignNegative,
		"regulates": domain.SignNone,
		"neu":       domain.SignNone,
	}
	for tag, want := range cases {
		got, ok := ParseRelation(tag)
		if !ok || got != want {
			t.Fatalf("ParseRelation(%q) = %v, %v", tag, got, ok)
		}
	}
	if _, ok := ParseRelation("inhibits"); ok {
		t.Fatalf("unknown tag accepted")
	}
}

func TestParseSplitsTabsAndSpaces(t *testing.T) {
	in := "# comment\n\nwnt 8\tpos\tblimp1\nfoxa neg gcm\nlonely\n"
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("interactions = %+v", got)
	}
	if got[0].Source != "wnt 8" || got[0].Target != "blimp1" || got[0].Sign != domain.SignPositive || got[0].Line != 3 {
		t.Fatalf("tab line = %+v", got[0])
	}
	if got[1].Sign != domain.SignNegative || got[1].Relation != "neg" {
		t.Fatalf("space line = %+v", got[1])
	}
	if got[2].Relation != "" || got[2].Source != "lonely" {
		t.Fatalf("lone node = %+v", got[2])
	}

	for _, bad := range []string{"a b\n", "a likes b\n", "a b c d\n"} {
		if _, err := Parse(strings.NewReader(bad)); !errors.Is(err, domain.ErrFormat) {
			t.Fatalf("Parse(%q): expected format error, got %v", bad, err)
		}
	}
}

func TestImportCreatesGenesOnDemand(t *testing.T) {
	g := newGenome()
	if _, err := g.AddGene(genome.NewNode("G1", genome.NodeGene, "wnt8")); err != nil {
		t.Fatalf("seed gene: %v", err)
	}
	in := "wnt8\tpromotes\tblimp1\nblimp1\trepresses\twnt8\nwnt8\tpos\tblimp1\nwnt8\tregulates\tblimp1\notx\n"
	var calls int
	stats, err := Import(context.Background(), strings.NewReader(in), g, MonitorFunc(func(done, total int) error {
		calls++
		if total != 5 {
			t.Fatalf("total = %d", total)
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Lines != 5 || stats.GenesCreated != 2 || stats.LinksCreated != 3 || stats.LinksSkipped != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if calls != 6 {
		t.Fatalf("monitor called %d times", calls)
	}
	if len(g.GeneIDs()) != 3 || len(g.LinkIDs()) != 3 {
		t.Fatalf("genes %v links %v", g.GeneIDs(), g.LinkIDs())
	}
	if got := len(g.LinksOutOf("G1")); got != 2 {
		t.Fatalf("existing gene should be reused, has %d outbound links", got)
	}
}

func TestImportRollsBackOnExitRequest(t *testing.T) {
	g := newGenome()
	before := g.Labels().Len()
	in := "a promotes b\nb promotes c\nc promotes d\n"
	stop := MonitorFunc(func(done, _ int) error {
		if done == 2 {
			return domain.ErrExitRequested
		}
		return nil
	})
	stats, err := Import(context.Background(), strings.NewReader(in), g, stop)
	if !errors.Is(err, domain.ErrExitRequested) {
		t.Fatalf("expected exit request, got %v", err)
	}
	if stats.LinksCreated != 0 || len(stats.Changes) != 0 {
		t.Fatalf("stats after rollback = %+v", stats)
	}
	if len(g.NodeIDs()) != 0 || len(g.LinkIDs()) != 0 || g.Labels().Len() != before {
		t.Fatalf("rollback left nodes %v links %v labels %d", g.NodeIDs(), g.LinkIDs(), g.Labels().Len())
	}
}

func TestImportRollsBackOnCancel(t *testing.T) {
	g := newGenome()
	ctx, cancel := context.WithCancel(context.Background())
	mon := MonitorFunc(func(done, _ int) error {
		if done == 1 {
			cancel()
		}
		return nil
	})
	_, err := Import(ctx, strings.NewReader("a promotes b\nb promotes c\n"), g, mon)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(g.NodeIDs()) != 0 || g.Labels().Len() != 0 {
		t.Fatalf("cancelled import left state behind")
	}
}

func TestImportRejectsMalformedInputUntouched(t *testing.T) {
	g := newGenome()
	if _, err := Import(context.Background(), strings.NewReader("a promotes b\nbroken line here now\n"), g, nil); !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if len(g.NodeIDs()) != 0 {
		t.Fatalf("malformed input must not mutate the genome")
	}
}

func TestExportRoundTrip(t *testing.T) {
	g := newGenome()
	in := "wnt8\tpromotes\tblimp1\nblimp1\trepresses\totx\notx\tregulates\twnt8\nalone\n"
	if _, err := Import(context.Background(), strings.NewReader(in), g, nil); err != nil {
		t.Fatalf("import: %v", err)
	}
	var buf bytes.Buffer
	if err := Export(&buf, g); err != nil {
		t.Fatalf("export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"wnt8\tpromotes\tblimp1\n", "blimp1\trepresses\totx\n", "otx\tregulates\twnt8\n", "alone\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}

	again := newGenome()
	stats, err := Import(context.Background(), strings.NewReader(out), again, nil)
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if stats.GenesCreated != 4 || stats.LinksCreated != 3 {
		t.Fatalf("reimport stats = %+v", stats)
	}
}
