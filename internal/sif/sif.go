// Package sif reads and writes the simple interaction format: one
// "source relation target" triple per line, or a lone node name.
package sif

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
)

// Relation tags written by Export.
const (
	TagPromotes  = "promotes"
	TagRepresses = "represses"
	TagRegulates = "regulates"
)

// ParseRelation maps a relation tag to a link sign. The legacy tags pos, neg
// and neu are accepted as synonyms.
func ParseRelation(tag string) (domain.Sign, bool) {
	switch strings.ToLower(tag) {
	case TagPromotes, "pos":
		return domain.SignPositive, true
	case TagRepresses, "neg":
		return domain.SignNegative, true
	case TagRegulates, "neu":
		return domain.SignNone, true
	}
	return domain.SignNone, false
}

// RelationTag returns the tag Export writes for a sign.
func RelationTag(s domain.Sign) string {
	switch s {
	case domain.SignPositive:
		return TagPromotes
	case domain.SignNegative:
		return TagRepresses
	}
	return TagRegulates
}

// Monitor is consulted between import steps. Returning domain.ErrExitRequested
// abandons the import; the genome is left as it was.
type Monitor interface {
	Progress(done, total int) error
}

// MonitorFunc adapts a function to Monitor.
type MonitorFunc func(done, total int) error

// Progress implements Monitor.
func (f MonitorFunc) Progress(done, total int) error { return f(done, total) }

// Interaction is one parsed line. Relation is empty for a lone node.
type Interaction struct {
	Line     int
	Source   string
	Relation string
	Sign     domain.Sign
	Target   string
}

// Parse reads every line of r. Lines holding a tab are split on tabs so node
// names may contain spaces; other lines are split on runs of whitespace.
// Blank lines and lines starting with # are skipped.
func Parse(r io.Reader) ([]Interaction, error) {
	var out []Interaction
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var fields []string
		if strings.Contains(text, "\t") {
			for _, f := range strings.Split(text, "\t") {
				if f = strings.TrimSpace(f); f != "" {
					fields = append(fields, f)
				}
			}
		} else {
			fields = strings.Fields(text)
		}
		switch len(fields) {
		case 1:
			out = append(out, Interaction{Line: line, Source: fields[0]})
		case 3:
			sign, ok := ParseRelation(fields[1])
			if !ok {
				return nil, &domain.FormatError{Line: line, Detail: fmt.Sprintf("unknown relation %q", fields[1])}
			}
			out = append(out, Interaction{Line: line, Source: fields[0], Relation: strings.ToLower(fields[1]), Sign: sign, Target: fields[2]})
		default:
			return nil, &domain.FormatError{Line: line, Detail: fmt.Sprintf("expected 1 or 3 fields, got %d", len(fields))}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &domain.FormatError{Line: line, Detail: "read failed", Err: err}
	}
	return out, nil
}

// Stats summarizes an import.
type Stats struct {
	Lines        int
	GenesCreated int
	LinksCreated int
	LinksSkipped int
	Changes      []genome.GenomeChange
}

// Import adds the interactions in r to g. Nodes are matched by name; unknown
// names become new genes. A triple that repeats an existing link's source,
// target and sign is skipped. Any failure, cancellation of ctx or exit
// request from mon undoes every change already applied, releasing the labels
// the import took.
func Import(ctx context.Context, r io.Reader, g *genome.DBGenome, mon Monitor) (Stats, error) {
	lines, err := Parse(r)
	if err != nil {
		return Stats{}, err
	}
	im := &importer{g: g, byName: make(map[string]string)}
	for _, id := range g.NodeIDs() {
		name := g.NodeName(id)
		if _, taken := im.byName[name]; !taken {
			im.byName[name] = id
		}
	}
	for i, in := range lines {
		if err := ctx.Err(); err != nil {
			return Stats{}, im.rollback(err)
		}
		if mon != nil {
			if err := mon.Progress(i, len(lines)); err != nil {
				return Stats{}, im.rollback(err)
			}
		}
		if err := im.apply(in); err != nil {
			return Stats{}, im.rollback(fmt.Errorf("line %d: %w", in.Line, err))
		}
	}
	if mon != nil {
		if err := mon.Progress(len(lines), len(lines)); err != nil {
			return Stats{}, im.rollback(err)
		}
	}
	im.stats.Lines = len(lines)
	return im.stats, nil
}

type importer struct {
	g      *genome.DBGenome
	byName map[string]string
	stats  Stats
}

func (im *importer) apply(in Interaction) error {
	src, err := im.node(in.Source)
	if err != nil || in.Relation == "" {
		return err
	}
	trg, err := im.node(in.Target)
	if err != nil {
		return err
	}
	for _, id := range im.g.LinksOutOf(src) {
		l, _ := im.g.Linkage(id)
		if l.Target == trg && l.Sign == in.Sign {
			im.stats.LinksSkipped++
			return nil
		}
	}
	chg, err := im.g.AddLinkage(genome.Linkage{
		ID:     im.g.Labels().Next(),
		Source: src,
		Target: trg,
		Sign:   in.Sign,
	}, genome.PermitMergeable())
	if err != nil {
		return err
	}
	im.record(chg)
	im.stats.LinksCreated++
	return nil
}

func (im *importer) node(name string) (string, error) {
	if id, ok := im.byName[name]; ok {
		return id, nil
	}
	n := genome.NewNode(im.g.Labels().Next(), genome.NodeGene, name)
	chg, err := im.g.AddGene(n)
	if err != nil {
		return "", err
	}
	im.record(chg)
	im.byName[name] = n.ID
	im.stats.GenesCreated++
	return n.ID, nil
}

func (im *importer) record(chg genome.GenomeChange) {
	im.stats.Changes = append(im.stats.Changes, chg)
}

// rollback undoes applied changes newest first and returns cause. A failed
// undo is joined to the cause.
func (im *importer) rollback(cause error) error {
	changes := im.stats.Changes
	for i := len(changes) - 1; i >= 0; i-- {
		if err := im.g.ChangeUndo(changes[i]); err != nil {
			return errors.Join(cause, fmt.Errorf("rollback: %w", err))
		}
	}
	im.stats = Stats{}
	return cause
}

// Export writes one tab-separated triple per root genome link, in link ID
// order, followed by a lone line for every node no link touches.
func Export(w io.Writer, g *genome.DBGenome) error {
	bw := bufio.NewWriter(w)
	touched := make(domain.IDSet)
	for _, id := range g.LinkIDs() {
		l, _ := g.Linkage(id)
		touched.Add(l.Source)
		touched.Add(l.Target)
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\n", g.NodeName(l.Source), RelationTag(l.Sign), g.NodeName(l.Target)); err != nil {
			return err
		}
	}
	for _, id := range g.NodeIDs() {
		if touched.Has(id) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s\n", g.NodeName(id)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
