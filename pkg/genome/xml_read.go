package genome

import (
	"strconv"

	"genomecore/pkg/domain"
	"genomecore/pkg/overlay"
	"genomecore/pkg/xmlio"
)

func unexpected(ctx *xmlio.Context, name string) error {
	return &domain.FormatError{Element: name, Line: ctx.Line(), Detail: "unexpected element under " + strconv.Quote(ctx.Parent())}
}

func requiredInt(attrs xmlio.Attrs, element, name string) (int, error) {
	if _, err := attrs.Required(element, name); err != nil {
		return 0, err
	}
	return attrs.Int(element, name, 0)
}

func parseActivity(element string, attrs xmlio.Attrs) (Activity, error) {
	tag := attrs.String("activity", string(StateActive))
	state, ok := ParseActivityState(tag)
	if !ok {
		return Activity{}, &domain.FormatError{Element: element, Attr: "activity", Detail: "unknown activity " + strconv.Quote(tag)}
	}
	level, err := attrs.Float(element, "level", 0)
	if err != nil {
		return Activity{}, err
	}
	a := Activity{State: state}
	if state == StateVariable {
		a.Level = level
	}
	return a, nil
}

// NodeFromAttrs builds a node from a <node> or <gene> start element.
// Absent pad counts take the type default.
func NodeFromAttrs(element string, attrs xmlio.Attrs) (Node, error) {
	id, err := attrs.Required(element, "id")
	if err != nil {
		return Node{}, err
	}
	t := NodeGene
	if element != "gene" {
		tag, err := attrs.Required(element, "type")
		if err != nil {
			return Node{}, err
		}
		var ok bool
		if t, ok = ParseNodeType(tag); !ok || t.IsGene() {
			return Node{}, &domain.FormatError{Element: element, Attr: "type", Detail: "unknown node type " + strconv.Quote(tag)}
		}
	}
	n := NewNode(id, t, attrs.String("name", ""))
	if n.PadCount, err = attrs.Int(element, "pads", t.DefaultPadCount()); err != nil {
		return Node{}, err
	}
	if n.Gene != nil {
		if n.Gene.Evidence, err = attrs.Int(element, "evidence", 0); err != nil {
			return Node{}, err
		}
	}
	return n, nil
}

// LinkageFromAttrs builds a link from a <link> start element.
func LinkageFromAttrs(attrs xmlio.Attrs) (Linkage, error) {
	const el = "link"
	var l Linkage
	var err error
	if l.ID, err = attrs.Required(el, "id"); err != nil {
		return Linkage{}, err
	}
	if l.Source, err = attrs.Required(el, "src"); err != nil {
		return Linkage{}, err
	}
	if l.Target, err = attrs.Required(el, "trg"); err != nil {
		return Linkage{}, err
	}
	if l.Sign, err = attrs.Sign(el, "sign", domain.SignNone); err != nil {
		return Linkage{}, err
	}
	if l.LaunchPad, err = attrs.Int(el, "launch", 0); err != nil {
		return Linkage{}, err
	}
	if l.LandingPad, err = attrs.Int(el, "landing", 0); err != nil {
		return Linkage{}, err
	}
	if l.Evidence, err = attrs.Int(el, "evidence", 0); err != nil {
		return Linkage{}, err
	}
	return l, nil
}

// GroupFromAttrs builds a group from a <group> start element.
func GroupFromAttrs(attrs xmlio.Attrs) (Group, error) {
	id, err := attrs.Required("group", "id")
	if err != nil {
		return Group{}, err
	}
	return Group{
		ID:           id,
		Name:         attrs.String("name", ""),
		ParentID:     attrs.String("parent", ""),
		ActiveSubset: attrs.String("activeSubset", ""),
	}, nil
}

// overlayHook forwards an <overlays> subtree and loads the result into set.
type overlayHook struct {
	d xmlio.Delegate
	r *overlay.Reader
}

func (h *overlayHook) begin(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	h.r = overlay.NewReader()
	return h.d.Begin(ctx, h.r, name, attrs)
}

func (h *overlayHook) end(ctx *xmlio.Context, name string, set *overlay.Set) error {
	done, err := h.d.EndElement(ctx, name)
	if err != nil || !done {
		return err
	}
	overlays, firstView := h.r.Result()
	return set.Load(overlays, firstView)
}

// RootReader builds a root genome from a <genome> subtree.
type RootReader struct {
	labels *domain.Labeller
	g      *DBGenome
	node   *Node
	link   *Linkage
	note   *Note
	text   xmlio.TextBuffer
	ov     overlayHook
}

// NewRootReader returns a reader that registers IDs in labels.
func NewRootReader(labels *domain.Labeller) *RootReader {
	return &RootReader{labels: labels}
}

// Genome returns the genome built so far.
func (r *RootReader) Genome() *DBGenome { return r.g }

// StartElement implements xmlio.Handler.
func (r *RootReader) StartElement(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	if r.ov.d.Active() {
		return r.ov.d.StartElement(ctx, name, attrs)
	}
	if name == "genome" {
		key, err := attrs.Required(name, "key")
		if err != nil {
			return err
		}
		r.g = NewDBGenome(key, attrs.String("name", ""), r.labels)
		r.g.props.LongName = attrs.String("longName", "")
		return nil
	}
	if r.g == nil {
		return unexpected(ctx, name)
	}
	var err error
	switch name {
	case "nodes", "genes", "links", "notes", "urls", "regions":
	case "description", "url":
		r.text.Reset()
	case "node", "gene":
		var n Node
		if n, err = NodeFromAttrs(name, attrs); err == nil {
			r.node = &n
		}
	case "logic":
		err = r.logic(ctx, name, attrs)
	case "param":
		err = r.param(ctx, name, attrs)
	case "region":
		err = r.region(ctx, name, attrs)
	case "link":
		var l Linkage
		if l, err = LinkageFromAttrs(attrs); err == nil {
			r.link = &l
		}
	case "note":
		var id string
		if id, err = attrs.Required(name, "id"); err == nil {
			r.note = &Note{ID: id, Name: attrs.String("name", "")}
			r.text.Reset()
		}
	case "overlays":
		err = r.ov.begin(ctx, name, attrs)
	default:
		err = unexpected(ctx, name)
	}
	return err
}

func (r *RootReader) logic(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	if r.node == nil {
		return unexpected(ctx, name)
	}
	fn := LogicFunction(attrs.String("function", ""))
	if !fn.Valid() {
		return &domain.FormatError{Element: name, Attr: "function", Detail: "unknown logic function " + strconv.Quote(string(fn))}
	}
	r.node.Logic = &InternalLogic{Function: fn}
	return nil
}

func (r *RootReader) param(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	if r.node == nil || r.node.Logic == nil {
		return unexpected(ctx, name)
	}
	pname, err := attrs.Required(name, "name")
	if err != nil {
		return err
	}
	v, err := attrs.Float(name, "value", 0)
	if err != nil {
		return err
	}
	r.node.Logic.Params = append(r.node.Logic.Params, SimParam{Name: pname, Value: v})
	return nil
}

func (r *RootReader) region(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	if r.node == nil || r.node.Gene == nil {
		return unexpected(ctx, name)
	}
	reg := GeneRegion{Name: attrs.String("name", "")}
	var err error
	if reg.StartPad, err = requiredInt(attrs, name, "start"); err != nil {
		return err
	}
	if reg.EndPad, err = requiredInt(attrs, name, "end"); err != nil {
		return err
	}
	if reg.Evidence, err = attrs.Int(name, "evidence", 0); err != nil {
		return err
	}
	r.node.Gene.Regions = append(r.node.Gene.Regions, reg)
	return nil
}

// CharData implements xmlio.Handler.
func (r *RootReader) CharData(ctx *xmlio.Context, text string) error {
	if r.ov.d.Active() {
		return r.ov.d.CharData(ctx, text)
	}
	r.text.Write(text)
	return nil
}

// EndElement implements xmlio.Handler.
func (r *RootReader) EndElement(ctx *xmlio.Context, name string) error {
	if r.ov.d.Active() {
		return r.ov.end(ctx, name, r.g.overlays)
	}
	var err error
	switch name {
	case "description":
		text := r.text.Take()
		switch {
		case r.node != nil:
			r.node.Description = text
		case r.link != nil:
			r.link.Description = text
		default:
			r.g.props.Description = text
		}
	case "url":
		text := r.text.Take()
		switch {
		case r.node != nil:
			r.node.URLs = append(r.node.URLs, text)
		case r.link != nil:
			r.link.URLs = append(r.link.URLs, text)
		}
	case "node":
		_, err = r.g.AddNode(*r.node)
		r.node = nil
	case "gene":
		_, err = r.g.AddGene(*r.node)
		r.node = nil
	case "link":
		_, err = r.g.AddLinkage(*r.link, PermitMergeable())
		r.link = nil
	case "note":
		r.note.Text = r.text.Take()
		_, err = r.g.AddNote(*r.note)
		r.note = nil
	}
	return err
}

// InstanceReader builds one genome instance from an <instance> subtree.
// Parents are resolved through lookup, so instances must be read in
// parent-before-child order. Activities are loaded unchecked.
type InstanceReader struct {
	root   *DBGenome
	lookup func(key string) (*GenomeInstance, bool)
	inst   *GenomeInstance
	ni     *NodeInstance
	li     *LinkageInstance
	grp    *Group
	text   xmlio.TextBuffer
	ov     overlayHook
}

// NewInstanceReader returns a reader attaching instances below root.
func NewInstanceReader(root *DBGenome, lookup func(key string) (*GenomeInstance, bool)) *InstanceReader {
	return &InstanceReader{root: root, lookup: lookup}
}

// Instance returns the instance built so far.
func (r *InstanceReader) Instance() *GenomeInstance { return r.inst }

// StartElement implements xmlio.Handler.
func (r *InstanceReader) StartElement(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	if r.ov.d.Active() {
		return r.ov.d.StartElement(ctx, name, attrs)
	}
	if name == "instance" {
		return r.open(attrs)
	}
	if r.inst == nil {
		return unexpected(ctx, name)
	}
	var err error
	switch name {
	case "nodeInstances", "linkInstances", "groups", "urls":
	case "description", "url":
		r.text.Reset()
	case "nodeInstance":
		var ni NodeInstance
		if ni.ID, err = attrs.Required(name, "id"); err != nil {
			return err
		}
		if ni.Activity, err = parseActivity(name, attrs); err != nil {
			return err
		}
		ni.NameOverride = attrs.String("name", "")
		r.ni = &ni
	case "linkInstance":
		var li LinkageInstance
		if li.ID, err = attrs.Required(name, "id"); err != nil {
			return err
		}
		if li.SourceInstance, err = attrs.Required(name, "src"); err != nil {
			return err
		}
		if li.TargetInstance, err = attrs.Required(name, "trg"); err != nil {
			return err
		}
		if li.Activity, err = parseActivity(name, attrs); err != nil {
			return err
		}
		r.li = &li
	case "group":
		var g Group
		if g, err = GroupFromAttrs(attrs); err == nil {
			r.grp = &g
		}
	case "member":
		if r.grp == nil {
			return unexpected(ctx, name)
		}
		var id string
		if id, err = attrs.Required(name, "id"); err == nil {
			if r.grp.Members == nil {
				r.grp.Members = domain.NewIDSet()
			}
			r.grp.Members.Add(id)
		}
	case "overlays":
		err = r.ov.begin(ctx, name, attrs)
	default:
		err = unexpected(ctx, name)
	}
	return err
}

func (r *InstanceReader) open(attrs xmlio.Attrs) error {
	const el = "instance"
	key, err := attrs.Required(el, "key")
	if err != nil {
		return err
	}
	name := attrs.String("name", "")
	if parentKey := attrs.String("parent", ""); parentKey != "" {
		parent, ok := r.lookup(parentKey)
		if !ok {
			return &domain.FormatError{Element: el, Attr: "parent", Detail: "unknown parent instance " + strconv.Quote(parentKey)}
		}
		r.inst, err = parent.NewChildInstance(key, name)
	} else {
		r.inst, err = r.root.NewRootInstance(key, name)
	}
	if err != nil {
		return err
	}
	if attrs.Has("minTime") || attrs.Has("maxTime") {
		minTime, err := requiredInt(attrs, el, "minTime")
		if err != nil {
			return err
		}
		maxTime, err := requiredInt(attrs, el, "maxTime")
		if err != nil {
			return err
		}
		return r.inst.SetTimes(minTime, maxTime)
	}
	return nil
}

// CharData implements xmlio.Handler.
func (r *InstanceReader) CharData(ctx *xmlio.Context, text string) error {
	if r.ov.d.Active() {
		return r.ov.d.CharData(ctx, text)
	}
	r.text.Write(text)
	return nil
}

// EndElement implements xmlio.Handler.
func (r *InstanceReader) EndElement(ctx *xmlio.Context, name string) error {
	if r.ov.d.Active() {
		return r.ov.end(ctx, name, r.inst.overlays)
	}
	var err error
	switch name {
	case "description":
		text := r.text.Take()
		switch {
		case r.ni != nil:
			r.ni.Description = text
		case r.li != nil:
			r.li.Description = text
		default:
			r.inst.description = text
		}
	case "url":
		text := r.text.Take()
		switch {
		case r.ni != nil:
			r.ni.URLs = append(r.ni.URLs, text)
		case r.li != nil:
			r.li.URLs = append(r.li.URLs, text)
		}
	case "nodeInstance":
		err = r.inst.LoadNodeInstance(*r.ni)
		r.ni = nil
	case "linkInstance":
		err = r.inst.LoadLinkageInstance(*r.li)
		r.li = nil
	case "group":
		err = r.inst.LoadGroup(*r.grp)
		r.grp = nil
	}
	return err
}

// ProxyReader builds a dynamic proxy from a <proxy> subtree. The activity
// source is attached by the caller afterwards.
type ProxyReader struct {
	lookup func(key string) (*GenomeInstance, bool)
	p      *DynamicInstanceProxy
	ov     overlayHook
}

// NewProxyReader returns a reader resolving static instances through lookup.
func NewProxyReader(lookup func(key string) (*GenomeInstance, bool)) *ProxyReader {
	return &ProxyReader{lookup: lookup}
}

// Proxy returns the proxy built so far.
func (r *ProxyReader) Proxy() *DynamicInstanceProxy { return r.p }

// StartElement implements xmlio.Handler.
func (r *ProxyReader) StartElement(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	if r.ov.d.Active() {
		return r.ov.d.StartElement(ctx, name, attrs)
	}
	switch name {
	case "proxy":
		return r.open(attrs)
	case "overlays":
		if r.p == nil {
			return unexpected(ctx, name)
		}
		return r.ov.begin(ctx, name, attrs)
	}
	return unexpected(ctx, name)
}

func (r *ProxyReader) open(attrs xmlio.Attrs) error {
	const el = "proxy"
	key, err := attrs.Required(el, "key")
	if err != nil {
		return err
	}
	staticKey, err := attrs.Required(el, "static")
	if err != nil {
		return err
	}
	static, ok := r.lookup(staticKey)
	if !ok {
		return &domain.FormatError{Element: el, Attr: "static", Detail: "unknown instance " + strconv.Quote(staticKey)}
	}
	minTime, err := requiredInt(attrs, el, "minTime")
	if err != nil {
		return err
	}
	maxTime, err := requiredInt(attrs, el, "maxTime")
	if err != nil {
		return err
	}
	single, err := attrs.Bool(el, "single", false)
	if err != nil {
		return err
	}
	r.p, err = NewDynamicInstanceProxy(key, attrs.String("name", ""), static, minTime, maxTime, single, nil)
	return err
}

// CharData implements xmlio.Handler.
func (r *ProxyReader) CharData(ctx *xmlio.Context, text string) error {
	if r.ov.d.Active() {
		return r.ov.d.CharData(ctx, text)
	}
	return nil
}

// EndElement implements xmlio.Handler.
func (r *ProxyReader) EndElement(ctx *xmlio.Context, name string) error {
	if r.ov.d.Active() {
		return r.ov.end(ctx, name, r.p.overlays)
	}
	return nil
}
