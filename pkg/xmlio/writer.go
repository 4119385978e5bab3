// Package xmlio holds the markup plumbing shared by every model entity: an
// indentation-tracking writer, flat attribute maps, and a streaming parser that
// drives element handlers with an explicit parse context.
package xmlio

import (
	"bufio"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// Attr is a single markup attribute. Attributes with an empty value are
// omitted from output; readers treat absence as "use the default".
type Attr struct {
	Name  string
	Value string
}

// A builds an attribute.
func A(name, value string) Attr { return Attr{Name: name, Value: value} }

// IntAttr builds an integer attribute that is omitted when equal to def.
func IntAttr(name string, v, def int) Attr {
	if v == def {
		return Attr{Name: name}
	}
	return Attr{Name: name, Value: strconv.Itoa(v)}
}

// FloatAttr builds a float attribute that is omitted when equal to def.
func FloatAttr(name string, v, def float64) Attr {
	if v == def {
		return Attr{Name: name}
	}
	return Attr{Name: name, Value: strconv.FormatFloat(v, 'g', -1, 64)}
}

// BoolAttr builds a boolean attribute written only when true.
func BoolAttr(name string, v bool) Attr {
	if !v {
		return Attr{Name: name}
	}
	return Attr{Name: name, Value: "true"}
}

// Writer emits nested markup with two-space indentation. The first write
// error is retained and reported by Flush; later writes become no-ops.
type Writer struct {
	out   *bufio.Writer
	depth int
	err   error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w)}
}

// Header writes the XML declaration.
func (w *Writer) Header() {
	w.write(xml.Header)
}

// Open starts an element and indents its children.
func (w *Writer) Open(name string, attrs ...Attr) {
	w.indent()
	w.write("<" + name)
	w.attrs(attrs)
	w.write(">\n")
	w.depth++
}

// Close ends an element opened with Open.
func (w *Writer) Close(name string) {
	w.depth--
	w.indent()
	w.write("</" + name + ">\n")
}

// Empty writes a self-closing element.
func (w *Writer) Empty(name string, attrs ...Attr) {
	w.indent()
	w.write("<" + name)
	w.attrs(attrs)
	w.write(" />\n")
}

// Text writes an element holding escaped character data.
func (w *Writer) Text(name, text string, attrs ...Attr) {
	w.indent()
	w.write("<" + name)
	w.attrs(attrs)
	w.write(">")
	w.escaped(text)
	w.write("</" + name + ">\n")
}

// OptionalText writes a text element only when text is non-empty.
func (w *Writer) OptionalText(name, text string) {
	if text == "" {
		return
	}
	w.Text(name, text)
}

// List writes items as <outer><inner>item</inner>...</outer>, or nothing when empty.
func (w *Writer) List(outer, inner string, items []string) {
	if len(items) == 0 {
		return
	}
	w.Open(outer)
	for _, item := range items {
		w.Text(inner, item)
	}
	w.Close(outer)
}

// Depth reports the current nesting level.
func (w *Writer) Depth() int { return w.depth }

// Flush writes buffered output and returns the first error encountered.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.out.Flush()
}

func (w *Writer) attrs(attrs []Attr) {
	for _, a := range attrs {
		if a.Value == "" {
			continue
		}
		w.write(" " + a.Name + "=\"")
		w.escaped(a.Value)
		w.write("\"")
	}
}

func (w *Writer) indent() {
	if w.depth > 0 {
		w.write(strings.Repeat("  ", w.depth))
	}
}

func (w *Writer) escaped(s string) {
	if w.err != nil {
		return
	}
	w.err = xml.EscapeText(w.out, []byte(s))
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.out.WriteString(s)
}
