package xmlio

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"genomecore/pkg/domain"
)

// Handler receives the element stream of a document. The parse context is
// passed explicitly; handlers keep their in-progress entities in their own
// state rather than in a shared scratch object.
type Handler interface {
	StartElement(ctx *Context, name string, attrs Attrs) error
	CharData(ctx *Context, text string) error
	EndElement(ctx *Context, name string) error
}

// Context describes the parser position while a handler runs.
type Context struct {
	stack []string
	dec   *xml.Decoder
}

// Depth returns the number of open elements, including the current one.
func (c *Context) Depth() int { return len(c.stack) }

// Parent returns the name of the enclosing element, or "" at the root.
func (c *Context) Parent() string {
	if len(c.stack) < 2 {
		return ""
	}
	return c.stack[len(c.stack)-2]
}

// Current returns the name of the innermost open element.
func (c *Context) Current() string {
	if len(c.stack) == 0 {
		return ""
	}
	return c.stack[len(c.stack)-1]
}

// Path returns the open elements joined with "/".
func (c *Context) Path() string { return strings.Join(c.stack, "/") }

// Line returns the current input line.
func (c *Context) Line() int {
	if c.dec == nil {
		return 0
	}
	line, _ := c.dec.InputPos()
	return line
}

// Parse streams r through h. Handler errors abort the parse; format errors
// are annotated with the input line.
func Parse(r io.Reader, h Handler) error {
	dec := xml.NewDecoder(r)
	ctx := &Context{dec: dec}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if len(ctx.stack) != 0 {
				return &domain.FormatError{Element: ctx.Current(), Detail: "unexpected end of document"}
			}
			return nil
		}
		if err != nil {
			return &domain.FormatError{Line: ctx.Line(), Detail: "malformed markup", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			ctx.stack = append(ctx.stack, t.Name.Local)
			if err := h.StartElement(ctx, t.Name.Local, AttrsOf(t)); err != nil {
				return annotate(ctx, err)
			}
		case xml.CharData:
			if len(ctx.stack) == 0 {
				continue
			}
			if err := h.CharData(ctx, string(t)); err != nil {
				return annotate(ctx, err)
			}
		case xml.EndElement:
			if err := h.EndElement(ctx, t.Name.Local); err != nil {
				return annotate(ctx, err)
			}
			ctx.stack = ctx.stack[:len(ctx.stack)-1]
		}
	}
}

func annotate(ctx *Context, err error) error {
	var fe *domain.FormatError
	if errors.As(err, &fe) {
		if fe.Line == 0 {
			fe.Line = ctx.Line()
		}
		return fe
	}
	return fmt.Errorf("%s (line %d): %w", ctx.Path(), ctx.Line(), err)
}

// TextBuffer accumulates character data for the innermost text element.
type TextBuffer struct {
	b strings.Builder
}

// Write appends text.
func (t *TextBuffer) Write(text string) { t.b.WriteString(text) }

// Take returns the accumulated text and resets the buffer.
func (t *TextBuffer) Take() string {
	s := t.b.String()
	t.b.Reset()
	return s
}

// Reset discards buffered text.
func (t *TextBuffer) Reset() { t.b.Reset() }

// Delegate forwards the events of one element subtree to a nested handler.
// The owning handler calls Begin from its StartElement and routes events
// through the delegate while Active reports true.
type Delegate struct {
	h     Handler
	depth int
}

// Active reports whether a subtree is being forwarded.
func (d *Delegate) Active() bool { return d.h != nil }

// Begin starts forwarding the subtree rooted at the current element.
func (d *Delegate) Begin(ctx *Context, h Handler, name string, attrs Attrs) error {
	d.h = h
	d.depth = ctx.Depth()
	return h.StartElement(ctx, name, attrs)
}

// StartElement forwards a nested start tag.
func (d *Delegate) StartElement(ctx *Context, name string, attrs Attrs) error {
	return d.h.StartElement(ctx, name, attrs)
}

// CharData forwards character data.
func (d *Delegate) CharData(ctx *Context, text string) error {
	return d.h.CharData(ctx, text)
}

// EndElement forwards an end tag and reports whether it closed the subtree.
func (d *Delegate) EndElement(ctx *Context, name string) (bool, error) {
	err := d.h.EndElement(ctx, name)
	if ctx.Depth() == d.depth {
		d.h = nil
		return true, err
	}
	return false, err
}
