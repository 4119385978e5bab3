package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
)

// Export formats and their artifact extensions.
const (
	FormatXML  = "xml"
	FormatSIF  = "sif"
	FormatSBML = "sbml"
)

// Metadata keys carried by every export artifact.
const (
	MetaModel    = "model"
	MetaRevision = "revision"
	MetaFormat   = "format"
)

var contentTypes = map[string]string{
	FormatXML:  "application/xml",
	FormatSIF:  "text/plain; charset=utf-8",
	FormatSBML: "application/sbml+xml",
}

// ContentType returns the MIME type of an export format, or "" when the
// format is unknown.
func ContentType(format string) string { return contentTypes[format] }

// ExportPrefix is the key prefix holding every export of a model.
func ExportPrefix(model string) string { return "exports/" + model + "/" }

// ExportKey names the artifact of one model revision in one format.
func ExportKey(model, revision, format string) string {
	return path.Join("exports", model, revision+"."+format)
}

// Artifact is one rendered export.
type Artifact struct {
	Model    string
	Revision string
	Format   string
	Data     []byte
}

// PutExport stores a rendered export under its ExportKey with model,
// revision and format metadata.
func PutExport(ctx context.Context, store Store, a Artifact) (Info, error) {
	ct := ContentType(a.Format)
	if ct == "" {
		return Info{}, fmt.Errorf("unknown export format %q", a.Format)
	}
	if a.Model == "" || strings.ContainsAny(a.Model, "/\\") || strings.Contains(a.Model, "..") {
		return Info{}, fmt.Errorf("invalid model name %q", a.Model)
	}
	return store.Put(ctx, ExportKey(a.Model, a.Revision, a.Format), bytes.NewReader(a.Data), PutOptions{
		ContentType: ct,
		Metadata: map[string]string{
			MetaModel:    a.Model,
			MetaRevision: a.Revision,
			MetaFormat:   a.Format,
		},
	})
}

// DeleteExports removes every artifact of a model and returns how many were
// deleted.
func DeleteExports(ctx context.Context, store Store, model string) (int, error) {
	infos, err := store.List(ctx, ExportPrefix(model))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, info := range infos {
		ok, err := store.Delete(ctx, info.Key)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}
