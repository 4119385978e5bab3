package genome

import (
	"strconv"

	"genomecore/pkg/xmlio"
)

// Write emits the root genome: properties, then nodes, genes, links, notes
// and overlays, each sorted by ID.
func (g *DBGenome) Write(w *xmlio.Writer) {
	w.Open("genome", xmlio.A("key", g.key), xmlio.A("name", g.props.Name), xmlio.A("longName", g.props.LongName))
	w.OptionalText("description", g.props.Description)
	if ids := g.NonGeneIDs(); len(ids) > 0 {
		w.Open("nodes")
		for _, id := range ids {
			WriteNode(w, *g.nodes[id])
		}
		w.Close("nodes")
	}
	if ids := g.GeneIDs(); len(ids) > 0 {
		w.Open("genes")
		for _, id := range ids {
			WriteNode(w, *g.genes[id])
		}
		w.Close("genes")
	}
	if ids := g.LinkIDs(); len(ids) > 0 {
		w.Open("links")
		for _, id := range ids {
			WriteLinkage(w, *g.links[id])
		}
		w.Close("links")
	}
	if ids := g.NoteIDs(); len(ids) > 0 {
		w.Open("notes")
		for _, id := range ids {
			n := g.notes[id]
			w.Text("note", n.Text, xmlio.A("id", n.ID), xmlio.A("name", n.Name))
		}
		w.Close("notes")
	}
	g.overlays.Write(w)
	w.Close("genome")
}

// WriteNode emits a node as <node> or a gene as <gene>. The pad count is
// omitted when it equals the type default.
func WriteNode(w *xmlio.Writer, n Node) {
	el := "node"
	attrs := []xmlio.Attr{xmlio.A("id", n.ID)}
	if n.IsGene() {
		el = "gene"
	} else {
		attrs = append(attrs, xmlio.A("type", string(n.Type)))
	}
	attrs = append(attrs, xmlio.A("name", n.Name), xmlio.IntAttr("pads", n.PadCount, n.Type.DefaultPadCount()))
	if n.Gene != nil {
		attrs = append(attrs, xmlio.IntAttr("evidence", n.Gene.Evidence, 0))
	}
	hasRegions := n.Gene != nil && len(n.Gene.Regions) > 0
	if n.Description == "" && len(n.URLs) == 0 && n.Logic == nil && !hasRegions {
		w.Empty(el, attrs...)
		return
	}
	w.Open(el, attrs...)
	w.OptionalText("description", n.Description)
	w.List("urls", "url", n.URLs)
	if n.Logic != nil {
		writeLogic(w, *n.Logic)
	}
	if hasRegions {
		w.Open("regions")
		for _, r := range n.Gene.Regions {
			w.Empty("region",
				xmlio.A("name", r.Name),
				xmlio.A("start", strconv.Itoa(r.StartPad)),
				xmlio.A("end", strconv.Itoa(r.EndPad)),
				xmlio.IntAttr("evidence", r.Evidence, 0),
			)
		}
		w.Close("regions")
	}
	w.Close(el)
}

func writeLogic(w *xmlio.Writer, l InternalLogic) {
	if len(l.Params) == 0 {
		w.Empty("logic", xmlio.A("function", string(l.Function)))
		return
	}
	w.Open("logic", xmlio.A("function", string(l.Function)))
	for _, p := range l.Params {
		w.Empty("param", xmlio.A("name", p.Name), xmlio.A("value", strconv.FormatFloat(p.Value, 'g', -1, 64)))
	}
	w.Close("logic")
}

// WriteLinkage emits a root link.
func WriteLinkage(w *xmlio.Writer, l Linkage) {
	attrs := []xmlio.Attr{
		xmlio.A("id", l.ID),
		xmlio.A("src", l.Source),
		xmlio.A("trg", l.Target),
		xmlio.A("sign", l.Sign.String()),
		xmlio.IntAttr("launch", l.LaunchPad, 0),
		xmlio.IntAttr("landing", l.LandingPad, 0),
		xmlio.IntAttr("evidence", l.Evidence, 0),
	}
	if l.Description == "" && len(l.URLs) == 0 {
		w.Empty("link", attrs...)
		return
	}
	w.Open("link", attrs...)
	w.OptionalText("description", l.Description)
	w.List("urls", "url", l.URLs)
	w.Close("link")
}

func activityAttrs(a Activity) []xmlio.Attr {
	attrs := []xmlio.Attr{xmlio.A("activity", string(a.State))}
	if a.State == StateVariable {
		attrs = append(attrs, xmlio.FloatAttr("level", a.Level, 0))
	}
	return attrs
}

// Write emits the instance with its node instances, link instances, groups
// and overlays.
func (inst *GenomeInstance) Write(w *xmlio.Writer) {
	attrs := []xmlio.Attr{xmlio.A("key", inst.key), xmlio.A("name", inst.name)}
	if inst.parent != nil {
		attrs = append(attrs, xmlio.A("parent", inst.parent.key))
	}
	if inst.times != nil {
		attrs = append(attrs, xmlio.A("minTime", strconv.Itoa(inst.times.Min)), xmlio.A("maxTime", strconv.Itoa(inst.times.Max)))
	}
	w.Open("instance", attrs...)
	w.OptionalText("description", inst.description)
	if ids := inst.NodeIDs(); len(ids) > 0 {
		w.Open("nodeInstances")
		for _, id := range ids {
			WriteNodeInstance(w, *inst.nodes[id])
		}
		w.Close("nodeInstances")
	}
	if ids := inst.LinkIDs(); len(ids) > 0 {
		w.Open("linkInstances")
		for _, id := range ids {
			WriteLinkageInstance(w, *inst.links[id])
		}
		w.Close("linkInstances")
	}
	if ids := inst.GroupIDs(); len(ids) > 0 {
		w.Open("groups")
		for _, id := range ids {
			WriteGroup(w, *inst.groups[id])
		}
		w.Close("groups")
	}
	inst.overlays.Write(w)
	w.Close("instance")
}

// WriteNodeInstance emits a node instance.
func WriteNodeInstance(w *xmlio.Writer, ni NodeInstance) {
	attrs := append([]xmlio.Attr{xmlio.A("id", ni.ID)}, activityAttrs(ni.Activity)...)
	attrs = append(attrs, xmlio.A("name", ni.NameOverride))
	if ni.Description == "" && len(ni.URLs) == 0 {
		w.Empty("nodeInstance", attrs...)
		return
	}
	w.Open("nodeInstance", attrs...)
	w.OptionalText("description", ni.Description)
	w.List("urls", "url", ni.URLs)
	w.Close("nodeInstance")
}

// WriteLinkageInstance emits a link instance.
func WriteLinkageInstance(w *xmlio.Writer, li LinkageInstance) {
	attrs := append([]xmlio.Attr{
		xmlio.A("id", li.ID),
		xmlio.A("src", li.SourceInstance),
		xmlio.A("trg", li.TargetInstance),
	}, activityAttrs(li.Activity)...)
	if li.Description == "" && len(li.URLs) == 0 {
		w.Empty("linkInstance", attrs...)
		return
	}
	w.Open("linkInstance", attrs...)
	w.OptionalText("description", li.Description)
	w.List("urls", "url", li.URLs)
	w.Close("linkInstance")
}

// WriteGroup emits a group. Members are written in ID order.
func WriteGroup(w *xmlio.Writer, g Group) {
	attrs := []xmlio.Attr{
		xmlio.A("id", g.ID),
		xmlio.A("name", g.Name),
		xmlio.A("parent", g.ParentID),
		xmlio.A("activeSubset", g.ActiveSubset),
	}
	if len(g.Members) == 0 {
		w.Empty("group", attrs...)
		return
	}
	w.Open("group", attrs...)
	for _, id := range g.Members.Sorted() {
		w.Empty("member", xmlio.A("id", id))
	}
	w.Close("group")
}

// Write emits the proxy definition and its overlays.
func (p *DynamicInstanceProxy) Write(w *xmlio.Writer) {
	attrs := []xmlio.Attr{
		xmlio.A("key", p.key),
		xmlio.A("name", p.name),
		xmlio.A("static", p.static.key),
		xmlio.A("minTime", strconv.Itoa(p.minTime)),
		xmlio.A("maxTime", strconv.Itoa(p.maxTime)),
		xmlio.BoolAttr("single", p.single),
	}
	if p.overlays.Len() == 0 {
		w.Empty("proxy", attrs...)
		return
	}
	w.Open("proxy", attrs...)
	p.overlays.Write(w)
	w.Close("proxy")
}
