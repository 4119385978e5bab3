// Package sbml renders a root genome as an SBML level 2 model: one species
// per node and one expression reaction per link target.
package sbml

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
)

//go:embed model.tmpl
var templates embed.FS

var modelTemplate = template.Must(template.New("model.tmpl").Funcs(template.FuncMap{
	"esc": escape,
}).ParseFS(templates, "model.tmpl"))

// ErrNotExportable is returned when the genome fails an SBML precondition.
var ErrNotExportable = errors.New("genome cannot be exported as SBML")

// ProblemError lists the reasons a genome was refused.
type ProblemError struct {
	Problems []genome.SBMLProblem
}

func (e *ProblemError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s %s: %s", p.Kind, p.ID, p.Detail))
	}
	return ErrNotExportable.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ProblemError) Unwrap() error { return ErrNotExportable }

type species struct {
	ID   string
	Name string
	Gene bool
}

type modifier struct {
	Species string
	Link    string
	Role    string
}

type reaction struct {
	ID        string
	Product   string
	Modifiers []modifier
}

type model struct {
	ID        string
	Name      string
	Species   []species
	Reactions []reaction
}

// Write renders g. Genomes that fail CanWriteSBML are refused with a
// ProblemError and nothing is written.
func Write(w io.Writer, g *genome.DBGenome) error {
	if problems := g.SBMLProblems(); len(problems) > 0 {
		return &ProblemError{Problems: problems}
	}
	bw := bufio.NewWriter(w)
	if err := modelTemplate.Execute(bw, build(g)); err != nil {
		return fmt.Errorf("render sbml: %w", err)
	}
	return bw.Flush()
}

func build(g *genome.DBGenome) model {
	m := model{ID: speciesID(g.Key()), Name: g.Name()}
	for _, id := range g.NodeIDs() {
		n, _ := g.AnyNode(id)
		m.Species = append(m.Species, species{ID: speciesID(id), Name: n.Name, Gene: n.IsGene()})
	}
	for _, id := range g.NodeIDs() {
		into := g.LinksInto(id)
		if len(into) == 0 {
			continue
		}
		r := reaction{ID: "expr_" + speciesID(id), Product: speciesID(id)}
		for _, lid := range into {
			l, _ := g.Linkage(lid)
			r.Modifiers = append(r.Modifiers, modifier{Species: speciesID(l.Source), Link: lid, Role: role(l.Sign)})
		}
		m.Reactions = append(m.Reactions, r)
	}
	return m
}

func role(s domain.Sign) string {
	switch s {
	case domain.SignPositive:
		return "activator"
	case domain.SignNegative:
		return "repressor"
	}
	return "modulator"
}

// speciesID turns a genome ID into an SBML SId: letters, digits and
// underscores, not starting with a digit.
func speciesID(id string) string {
	var b strings.Builder
	b.WriteString("s_")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func escape(s string) string { return escaper.Replace(s) }
