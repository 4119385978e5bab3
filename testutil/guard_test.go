package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestHigherLayerForbidden(t *testing.T) {
	genome := HigherLayerForbidden("pkg/genome")
	cases := []struct {
		in   string
		want bool
	}{
		{"genomecore/pkg/domain", false},
		{"genomecore/pkg/xmlio", false},
		{"genomecore/pkg/overlay", false},
		{"genomecore/pkg/genome", true},
		{"genomecore/pkg/model", true},
		{"genomecore/pkg/model@v1.2.0", true},
		{"genomecore/pkg/modelutil", false},
		{"genomecore/internal/sif", true},
		{"encoding/xml", false},
	}
	for _, c := range cases {
		if got := genome(c.in); got != c.want {
			t.Fatalf("HigherLayerForbidden(pkg/genome)(%q)=%v want %v", c.in, got, c.want)
		}
	}
	if !HigherLayerForbidden("pkg/unknown")("genomecore/pkg/domain") {
		t.Fatalf("unknown layer should forbid every public layer")
	}
}

func TestInternalImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"genomecore/internal/blob", true},
		{"example.com/some/internal/deep/path", true},
		{"example.com/internal", false},
		{"internal", false},
		{"genomecore/pkg/genome", false},
		{"", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestDirectImportViolationsSkipsTestsAndSubdirs(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.go":      "package tmp\nimport (\n\t\"fmt\"\n\tm \"genomecore/pkg/model\"\n)\n",
		"a_test.go": "package tmp\nimport \"genomecore/internal/core\"\n",
		"notes.txt": "import \"genomecore/internal/core\"",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.go"), []byte("package sub\nimport \"genomecore/internal/sif\"\n"), 0o600); err != nil {
		t.Fatalf("write sub: %v", err)
	}

	viols, err := directImportViolations(dir, HigherLayerForbidden("pkg/genome"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "genomecore/pkg/model (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	var rec recordingFatal
	failIfDirectViolations(&rec, "layering", viols)
	if rec.msg == "" {
		t.Fatalf("expected failure message")
	}
}

func TestAssertNoDirectImportsEmptyDir(t *testing.T) {
	AssertNoDirectImports(t, t.TempDir(), func(string) bool { return true }, "empty directory")
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\ngenomecore/pkg/domain\n\ngenomecore/internal/core\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", InternalImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if len(viols) != 1 || viols[0] != "genomecore/internal/core" {
		t.Fatalf("unexpected violations %v", viols)
	}
	var rec recordingFatal
	failIfTransitiveViolations(&rec, "no internal", viols)
	if rec.msg == "" {
		t.Fatalf("expected failure message")
	}
}
