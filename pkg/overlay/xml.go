package overlay

import (
	"strconv"

	"genomecore/pkg/domain"
	"genomecore/pkg/xmlio"
)

// Write emits the owner's overlays in ID order. Nothing is written for an
// empty set.
func (s *Set) Write(w *xmlio.Writer) {
	if len(s.overlays) == 0 {
		return
	}
	w.Open("overlays", xmlio.A("firstView", s.firstView))
	for _, id := range s.IDs() {
		WriteOverlay(w, *s.overlays[id])
	}
	w.Close("overlays")
}

// WriteOverlay emits one overlay with its modules, linkages and first view.
func WriteOverlay(w *xmlio.Writer, o NetworkOverlay) {
	w.Open("overlay", xmlio.A("id", o.ID), xmlio.A("name", o.Name))
	w.OptionalText("description", o.Description)
	for _, id := range o.ModuleIDs() {
		WriteModule(w, *o.Modules[id])
	}
	for _, id := range o.LinkageIDs() {
		l := o.Linkages[id]
		w.Empty("moduleLink",
			xmlio.A("id", l.ID),
			xmlio.A("source", l.Source),
			xmlio.A("target", l.Target),
			xmlio.A("sign", l.Sign.String()),
		)
	}
	writeFirstView(w, o.FirstView)
	w.Close("overlay")
}

// WriteModule emits one module. Members are written in ID order.
func WriteModule(w *xmlio.Writer, m NetModule) {
	attrs := []xmlio.Attr{xmlio.A("id", m.ID), xmlio.A("name", m.Name), xmlio.A("group", m.GroupID)}
	if m.Description == "" && len(m.Members) == 0 && len(m.Tags) == 0 && len(m.NameValues) == 0 {
		w.Empty("module", attrs...)
		return
	}
	w.Open("module", attrs...)
	w.OptionalText("description", m.Description)
	for _, id := range m.Members.Sorted() {
		w.Empty("member", xmlio.A("id", id))
	}
	for _, tag := range m.Tags {
		w.Text("tag", tag)
	}
	for _, nv := range m.NameValues {
		w.Empty("nameValue", xmlio.A("name", nv.Name), xmlio.A("value", nv.Value))
	}
	w.Close("module")
}

func writeFirstView(w *xmlio.Writer, fv FirstView) {
	if len(fv.Modules.Set) == 0 && len(fv.Revealed.Set) == 0 && fv.Modules.Tag == 0 && fv.Revealed.Tag == 0 {
		return
	}
	w.Open("firstView", xmlio.IntAttr("modulesTag", fv.Modules.Tag, 0), xmlio.IntAttr("revealedTag", fv.Revealed.Tag, 0))
	for _, id := range fv.Modules.Set.Sorted() {
		w.Empty("viewModule", xmlio.A("id", id))
	}
	for _, id := range fv.Revealed.Set.Sorted() {
		w.Empty("revealedModule", xmlio.A("id", id))
	}
	w.Close("firstView")
}

// Reader builds overlays from an <overlays> subtree.
type Reader struct {
	overlays  []NetworkOverlay
	firstView string
	cur       *NetworkOverlay
	mod       *NetModule
	text      xmlio.TextBuffer
}

// NewReader returns an empty reader.
func NewReader() *Reader { return &Reader{} }

// Result returns the parsed overlays and the first-view overlay ID.
func (r *Reader) Result() ([]NetworkOverlay, string) { return r.overlays, r.firstView }

// StartElement implements xmlio.Handler.
func (r *Reader) StartElement(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	switch name {
	case "overlays":
		r.firstView = attrs.String("firstView", "")
		return nil
	case "overlay":
		id, err := attrs.Required(name, "id")
		if err != nil {
			return err
		}
		o := NewNetworkOverlay(id, attrs.String("name", ""))
		r.cur = &o
		return nil
	case "description", "tag":
		r.text.Reset()
		return nil
	}
	if r.cur == nil {
		return unexpected(name, ctx)
	}
	switch name {
	case "module":
		id, err := attrs.Required(name, "id")
		if err != nil {
			return err
		}
		r.mod = &NetModule{ID: id, Name: attrs.String("name", ""), GroupID: attrs.String("group", ""), Members: domain.NewIDSet()}
	case "member":
		if r.mod == nil {
			return unexpected(name, ctx)
		}
		id, err := attrs.Required(name, "id")
		if err != nil {
			return err
		}
		r.mod.Members.Add(id)
	case "nameValue":
		if r.mod == nil {
			return unexpected(name, ctx)
		}
		n, err := attrs.Required(name, "name")
		if err != nil {
			return err
		}
		r.mod.NameValues = append(r.mod.NameValues, NameValuePair{Name: n, Value: attrs.String("value", "")})
	case "moduleLink":
		return r.linkage(attrs)
	case "firstView":
		mt, err := attrs.Int(name, "modulesTag", 0)
		if err != nil {
			return err
		}
		rt, err := attrs.Int(name, "revealedTag", 0)
		if err != nil {
			return err
		}
		r.cur.FirstView = FirstView{
			Modules:  TaggedSet{Tag: mt, Set: domain.NewIDSet()},
			Revealed: TaggedSet{Tag: rt, Set: domain.NewIDSet()},
		}
	case "viewModule", "revealedModule":
		id, err := attrs.Required(name, "id")
		if err != nil {
			return err
		}
		if name == "viewModule" {
			r.cur.FirstView.Modules.Set.Add(id)
		} else {
			r.cur.FirstView.Revealed.Set.Add(id)
		}
	default:
		return unexpected(name, ctx)
	}
	return nil
}

func (r *Reader) linkage(attrs xmlio.Attrs) error {
	const el = "moduleLink"
	id, err := attrs.Required(el, "id")
	if err != nil {
		return err
	}
	src, err := attrs.Required(el, "source")
	if err != nil {
		return err
	}
	trg, err := attrs.Required(el, "target")
	if err != nil {
		return err
	}
	sign, err := attrs.Sign(el, "sign", domain.SignNone)
	if err != nil {
		return err
	}
	r.cur.Linkages[id] = &NetModuleLinkage{ID: id, Source: src, Target: trg, Sign: sign}
	return nil
}

// CharData implements xmlio.Handler.
func (r *Reader) CharData(_ *xmlio.Context, text string) error {
	r.text.Write(text)
	return nil
}

// EndElement implements xmlio.Handler.
func (r *Reader) EndElement(_ *xmlio.Context, name string) error {
	switch name {
	case "description":
		text := r.text.Take()
		switch {
		case r.mod != nil:
			r.mod.Description = text
		case r.cur != nil:
			r.cur.Description = text
		}
	case "tag":
		if r.mod != nil {
			r.mod.Tags = append(r.mod.Tags, r.text.Take())
		}
	case "module":
		r.cur.Modules[r.mod.ID] = r.mod
		r.mod = nil
	case "overlay":
		r.overlays = append(r.overlays, *r.cur)
		r.cur = nil
	}
	return nil
}

func unexpected(name string, ctx *xmlio.Context) error {
	return &domain.FormatError{Element: name, Line: ctx.Line(), Detail: "unexpected element under " + strconv.Quote(ctx.Parent())}
}

// Load installs parsed overlays into an empty set, registering their IDs
// and validating module contents against the owner.
func (s *Set) Load(overlays []NetworkOverlay, firstView string) error {
	for _, o := range overlays {
		if _, err := s.AddOverlay(o); err != nil {
			return err
		}
	}
	if firstView != "" {
		if _, err := s.SetFirstViewOverlay(firstView); err != nil {
			return err
		}
	}
	return nil
}
