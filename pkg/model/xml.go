package model

import (
	"fmt"
	"io"
	"strconv"

	"genomecore/pkg/domain"
	"genomecore/pkg/genome"
	"genomecore/pkg/xmlio"
)

// Write emits the document: the root genome, every instance with parents
// before children, then every proxy.
func (d *Document) Write(out io.Writer) error {
	w := xmlio.NewWriter(out)
	w.Header()
	w.Open("model", xmlio.A("version", strconv.Itoa(FormatVersion)))
	d.root.Write(w)
	if insts := d.Instances(); len(insts) > 0 {
		w.Open("instances")
		for _, inst := range insts {
			inst.Write(w)
		}
		w.Close("instances")
	}
	if proxies := d.Proxies(); len(proxies) > 0 {
		w.Open("proxies")
		for _, p := range proxies {
			p.Write(w)
		}
		w.Close("proxies")
	}
	w.Close("model")
	return w.Flush()
}

// Read parses a document. Instance activities that break the parent rule
// are clamped when the document predates FormatVersion and rejected
// otherwise.
func Read(r io.Reader) (*Document, error) {
	h := &documentHandler{labels: domain.NewLabeller()}
	if err := xmlio.Parse(r, h); err != nil {
		return nil, err
	}
	if h.doc == nil {
		return nil, &domain.FormatError{Element: "model", Detail: "document has no genome"}
	}
	if err := h.doc.finishLoad(h.version); err != nil {
		return nil, err
	}
	return h.doc, nil
}

func (d *Document) finishLoad(version int) error {
	insts := d.Instances()
	for _, inst := range insts {
		if err := inst.ValidateGroups(); err != nil {
			return fmt.Errorf("instance %s: %w", inst.Key(), err)
		}
	}
	for _, inst := range insts {
		if version < FormatVersion {
			d.fixups = append(d.fixups, inst.FixupLegacyIOActivityBounds()...)
			continue
		}
		if bad := inst.IllegalActivities(); len(bad) > 0 {
			return domain.Contract("model.Read", domain.ErrIllegalActivity, "instance %s items %v break the parent activity rule", inst.Key(), bad)
		}
	}
	return nil
}

// documentHandler dispatches each top-level subtree to the genome reader
// that owns it.
type documentHandler struct {
	labels  *domain.Labeller
	doc     *Document
	version int
	d       xmlio.Delegate
	root    *genome.RootReader
	inst    *genome.InstanceReader
	proxy   *genome.ProxyReader
}

func (h *documentHandler) StartElement(ctx *xmlio.Context, name string, attrs xmlio.Attrs) error {
	if h.d.Active() {
		return h.d.StartElement(ctx, name, attrs)
	}
	if ctx.Depth() == 1 {
		if name != "model" {
			return &domain.FormatError{Element: name, Detail: "document root must be <model>"}
		}
		v, err := attrs.Int(name, "version", 1)
		h.version = v
		return err
	}
	switch name {
	case "genome":
		if h.doc != nil {
			return &domain.FormatError{Element: name, Detail: "second root genome"}
		}
		h.root = genome.NewRootReader(h.labels)
		return h.d.Begin(ctx, h.root, name, attrs)
	case "instances", "proxies":
		if h.doc == nil {
			return &domain.FormatError{Element: name, Detail: "instances precede the root genome"}
		}
		return nil
	case "instance":
		if ctx.Parent() != "instances" {
			break
		}
		h.inst = genome.NewInstanceReader(h.doc.root, h.doc.Instance)
		return h.d.Begin(ctx, h.inst, name, attrs)
	case "proxy":
		if ctx.Parent() != "proxies" {
			break
		}
		h.proxy = genome.NewProxyReader(h.doc.Instance)
		return h.d.Begin(ctx, h.proxy, name, attrs)
	}
	return &domain.FormatError{Element: name, Detail: "unexpected element under " + strconv.Quote(ctx.Parent())}
}

func (h *documentHandler) CharData(ctx *xmlio.Context, text string) error {
	if h.d.Active() {
		return h.d.CharData(ctx, text)
	}
	return nil
}

func (h *documentHandler) EndElement(ctx *xmlio.Context, name string) error {
	if !h.d.Active() {
		return nil
	}
	done, err := h.d.EndElement(ctx, name)
	if err != nil || !done {
		return err
	}
	switch name {
	case "genome":
		h.doc = newDocument(h.labels, h.root.Genome())
		h.root = nil
	case "instance":
		inst := h.inst.Instance()
		h.doc.instances[inst.Key()] = inst
		h.inst = nil
	case "proxy":
		p := h.proxy.Proxy()
		h.doc.proxies[p.Key()] = p
		h.proxy = nil
	}
	return nil
}
