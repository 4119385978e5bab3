package xmlio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"genomecore/pkg/domain"
)

type recordingHandler struct {
	events []string
	text   TextBuffer
	failOn string
}

func (h *recordingHandler) StartElement(ctx *Context, name string, attrs Attrs) error {
	if name == h.failOn {
		_, err := attrs.Required(name, "id")
		return err
	}
	h.events = append(h.events, "start:"+ctx.Path()+":"+attrs.String("id", ""))
	return nil
}

func (h *recordingHandler) CharData(_ *Context, text string) error {
	h.text.Write(text)
	return nil
}

func (h *recordingHandler) EndElement(ctx *Context, name string) error {
	text := strings.TrimSpace(h.text.Take())
	h.events = append(h.events, "end:"+name+":"+text+":"+ctx.Parent())
	return nil
}

func TestWriterOmitsEmptyAttributes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Open("genome", A("id", "g"), A("name", ""))
	w.Empty("node", A("id", "n1"), IntAttr("pads", 4, 4), BoolAttr("flag", false))
	w.Text("description", "a < b & c")
	w.OptionalText("note", "")
	w.List("urls", "url", []string{"http://x"})
	w.Close("genome")
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "name=") || strings.Contains(out, "pads=") || strings.Contains(out, "flag=") {
		t.Fatalf("expected default attributes omitted:\n%s", out)
	}
	if !strings.Contains(out, "a &lt; b &amp; c") {
		t.Fatalf("expected escaped text:\n%s", out)
	}
	if !strings.Contains(out, "  <node id=\"n1\" />") {
		t.Fatalf("expected indented child:\n%s", out)
	}
	if strings.Contains(out, "<note>") {
		t.Fatalf("expected empty optional text omitted")
	}
}

func TestParseDrivesHandler(t *testing.T) {
	doc := `<model><genome id="g"><description>hello</description></genome></model>`
	h := &recordingHandler{}
	if err := Parse(strings.NewReader(doc), h); err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{
		"start:model:",
		"start:model/genome:g",
		"start:model/genome/description:",
		"end:description:hello:genome",
		"end:genome::model",
		"end:model::",
	}
	if len(h.events) != len(want) {
		t.Fatalf("events = %v", h.events)
	}
	for i := range want {
		if h.events[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, h.events[i], want[i])
		}
	}
}

func TestParseReportsFormatErrors(t *testing.T) {
	h := &recordingHandler{failOn: "node"}
	err := Parse(strings.NewReader("<model>\n<node/>\n</model>"), h)
	if !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	var fe *domain.FormatError
	if !errors.As(err, &fe) || fe.Line == 0 {
		t.Fatalf("expected line annotation, got %v", err)
	}

	if err := Parse(strings.NewReader("<model><open></model>"), &recordingHandler{}); !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected malformed markup error, got %v", err)
	}
}

func TestAttrsParsing(t *testing.T) {
	a := Attrs{"n": "3", "f": "0.5", "b": "true", "s": "negative", "bad": "x"}
	if n, err := a.Int("e", "n", 0); err != nil || n != 3 {
		t.Fatalf("int: %d %v", n, err)
	}
	if n, err := a.Int("e", "missing", 7); err != nil || n != 7 {
		t.Fatalf("int default: %d %v", n, err)
	}
	if f, err := a.Float("e", "f", 0); err != nil || f != 0.5 {
		t.Fatalf("float: %v %v", f, err)
	}
	if b, err := a.Bool("e", "b", false); err != nil || !b {
		t.Fatalf("bool: %v %v", b, err)
	}
	if s, err := a.Sign("e", "s", domain.SignNone); err != nil || s != domain.SignNegative {
		t.Fatalf("sign: %v %v", s, err)
	}
	if _, err := a.Int("e", "bad", 0); !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected bad integer to be a format error")
	}
	if _, err := a.Sign("e", "bad", domain.SignNone); !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected bad sign to be a format error")
	}
	if _, err := a.Required("e", "missing"); !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected missing attribute to be a format error")
	}
}
