package importer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestProcess_NestedImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.ew"), "import math\nprint 1\nimport io\n")
	writeFile(t, filepath.Join(dir, "math.ew"), "def square\nimport base\n")
	writeFile(t, filepath.Join(dir, "base.ew"), "def one\n")
	writeFile(t, filepath.Join(dir, "io.ew"), "def out\n")

	out, err := Process(filepath.Join(dir, "main.ew"))
	if err != nil {
		t.Fatal(err)
	}
	if out != filepath.Join(dir, "main.ew_processed") {
		t.Errorf("output path = %q", out)
	}
	want := "def square\ndef one\nprint 1\ndef out\n"
	if got := readFile(t, out); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcess_NotImportLines(t *testing.T) {
	dir := t.TempDir()
	src := strings.Join([]string{
		"import  math",  // two spaces: three fields
		"import math x", // three fields
		"  import math", // leading space
		"imports math",  // other keyword
		"import\tmath",  // tab is not a separator
		"",
	}, "\n") + "\n"
	writeFile(t, filepath.Join(dir, "main.ew"), src)

	out, err := Process(filepath.Join(dir, "main.ew"))
	if err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, out); got != src {
		t.Errorf("got %q, want %q", got, src)
	}
}

func TestProcess_DiamondImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.ew"), "import a\nimport b\n")
	writeFile(t, filepath.Join(dir, "a.ew"), "import common\na\n")
	writeFile(t, filepath.Join(dir, "b.ew"), "import common\nb\n")
	writeFile(t, filepath.Join(dir, "common.ew"), "c\n")

	out, err := Process(filepath.Join(dir, "main.ew"))
	if err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, out); got != "c\na\nc\nb\n" {
		t.Errorf("got %q", got)
	}
}

func TestProcess_RelativeToImporter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.ew"), "import lib/util\n")
	writeFile(t, filepath.Join(dir, "lib", "util.ew"), "import helper\n")
	writeFile(t, filepath.Join(dir, "lib", "helper.ew"), "h\n")

	out, err := Process(filepath.Join(dir, "main.ew"))
	if err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, out); got != "h\n" {
		t.Errorf("got %q", got)
	}
}

func TestProcess_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "prog.txt"), "")
	writeFile(t, filepath.Join(dir, "missing.ew"), "import nowhere\n")
	writeFile(t, filepath.Join(dir, "self.ew"), "import self\n")
	writeFile(t, filepath.Join(dir, "ping.ew"), "import pong\n")
	writeFile(t, filepath.Join(dir, "pong.ew"), "import ping\n")

	tests := []struct {
		name string
		file string
		is   error
		want string
	}{
		{"wrong extension", "prog.txt", ErrWrongExtension, "wrong extension, should be .ew"},
		{"missing module", "missing.ew", fs.ErrNotExist, "module nowhere does not exist"},
		{"self import", "self.ew", ErrImportCycle, "circular import"},
		{"mutual import", "ping.ew", ErrImportCycle, "circular import"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Process(filepath.Join(dir, tt.file))
			if !errors.Is(err, tt.is) {
				t.Fatalf("error = %v, want %v", err, tt.is)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "missing.ew_processed")); err == nil {
		t.Error("output written despite a failed merge")
	}
}
