// Package importer implements the source preprocessor: every line of the
// form "import <name>" is replaced by the contents of <name>.ew.
package importer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/hikkiyomi/ewlang/internal/config"
)

var log = commonlog.GetLogger("ewlang.importer")

var (
	ErrWrongExtension = errors.New("wrong extension, should be " + config.SourceFileExt)
	ErrImportCycle    = errors.New("circular import")
)

// Merger inlines imports recursively.
type Merger struct {
	processing map[string]bool // cycle detection
	merged     int
}

func NewMerger() *Merger {
	return &Merger{processing: make(map[string]bool)}
}

// Process merges the imports of path and writes the result next to it as
// <path>_processed, returning the output path.
func Process(path string) (string, error) {
	if !config.HasSourceExt(path) {
		return "", fmt.Errorf("%s: %w", path, ErrWrongExtension)
	}

	m := NewMerger()
	lines, err := m.Merge(path)
	if err != nil {
		return "", err
	}

	out := path + config.ProcessedSuffix
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(out, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	log.Infof("wrote %s (%d lines, %d modules inlined)", out, len(lines), m.merged)
	return out, nil
}

// Merge returns the lines of path with every import replaced by the merged
// lines of the named module. Modules resolve relative to the directory of
// the file importing them. The same module may be imported more than once;
// importing a module that is still being merged is an error.
func (m *Merger) Merge(path string) ([]string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if m.processing[absPath] {
		return nil, fmt.Errorf("%w: %s", ErrImportCycle, path)
	}
	m.processing[absPath] = true
	defer delete(m.processing, absPath)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var result []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		name, ok := importName(line)
		if !ok {
			result = append(result, line)
			continue
		}

		module := filepath.Join(filepath.Dir(path), name+config.SourceFileExt)
		if _, err := os.Stat(module); err != nil {
			return nil, fmt.Errorf("module %s does not exist: %w", name, err)
		}
		log.Debugf("%s imports %s", path, module)

		inlined, err := m.Merge(module)
		if err != nil {
			return nil, err
		}
		m.merged++
		result = append(result, inlined...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return result, nil
}

// importName matches a line of exactly two single-space separated fields,
// the first being the import keyword.
func importName(line string) (string, bool) {
	fields := strings.Split(line, " ")
	if len(fields) != 2 || fields[0] != config.ImportKeyword {
		return "", false
	}
	return fields[1], true
}
