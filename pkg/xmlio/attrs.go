package xmlio

import (
	"encoding/xml"
	"strconv"
	"strings"

	"genomecore/pkg/domain"
)

// Attrs is the flat attribute map an element factory builds from.
type Attrs map[string]string

// AttrsOf flattens the attributes of a start element. Namespaces are dropped.
func AttrsOf(el xml.StartElement) Attrs {
	out := make(Attrs, len(el.Attr))
	for _, a := range el.Attr {
		out[a.Name.Local] = a.Value
	}
	return out
}

// Has reports whether name is present.
func (a Attrs) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// String returns the attribute or def when absent.
func (a Attrs) String(name, def string) string {
	if v, ok := a[name]; ok {
		return v
	}
	return def
}

// Required returns a non-blank attribute or a format error naming it.
func (a Attrs) Required(element, name string) (string, error) {
	v, ok := a[name]
	if !ok || strings.TrimSpace(v) == "" {
		return "", &domain.FormatError{Element: element, Attr: name, Detail: "missing required attribute"}
	}
	return v, nil
}

// Int parses an integer attribute, returning def when absent.
func (a Attrs) Int(element, name string, def int) (int, error) {
	v, ok := a[name]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &domain.FormatError{Element: element, Attr: name, Detail: "bad integer", Err: err}
	}
	return n, nil
}

// Float parses a floating point attribute, returning def when absent.
func (a Attrs) Float(element, name string, def float64) (float64, error) {
	v, ok := a[name]
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &domain.FormatError{Element: element, Attr: name, Detail: "bad number", Err: err}
	}
	return f, nil
}

// Bool parses a boolean attribute, returning def when absent.
func (a Attrs) Bool(element, name string, def bool) (bool, error) {
	v, ok := a[name]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, &domain.FormatError{Element: element, Attr: name, Detail: "bad boolean", Err: err}
	}
	return b, nil
}

// Sign parses a linkage sign tag, returning def when absent.
func (a Attrs) Sign(element, name string, def domain.Sign) (domain.Sign, error) {
	v, ok := a[name]
	if !ok || v == "" {
		return def, nil
	}
	sign, known := domain.ParseSign(v)
	if !known {
		return domain.SignNone, &domain.FormatError{Element: element, Attr: name, Detail: "unknown sign " + strconv.Quote(v)}
	}
	return sign, nil
}
