package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineLength bounds a single bytecode line.
const maxLineLength = 1 << 20

// Read parses the textual instruction stream.
//
// A line holding a ':' defines a label named by the text before it, bound to
// the index of the next instruction. Any other non-blank line is a
// tab-separated instruction; empty fields collapse, so indentation with tabs
// is allowed.
func Read(r io.Reader) (*Program, error) {
	p := NewProgram()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineLength)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if colon := strings.IndexByte(line, ':'); colon >= 0 {
			name := strings.TrimSpace(line[:colon])
			if colon == 0 || name == "" {
				return nil, fmt.Errorf("line %d: %w: the name of mark is empty", lineNo, ErrMalformedLabel)
			}
			if _, dup := p.Labels[name]; dup {
				return nil, fmt.Errorf("line %d: %w: duplicate label %q", lineNo, ErrMalformedLabel, name)
			}
			p.Labels[name] = len(p.Instructions)
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool { return r == '\t' })
		if len(fields) == 0 {
			continue
		}
		op, ok := LookupOpcode(strings.TrimSpace(fields[0]))
		if !ok {
			return nil, fmt.Errorf("line %d: %w: %q", lineNo, ErrUnknownOpcode, fields[0])
		}
		var args []string
		for _, f := range fields[1:] {
			if f = strings.TrimSpace(f); f != "" {
				args = append(args, f)
			}
		}
		p.Instructions = append(p.Instructions, Instruction{Op: op, Args: args})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading bytecode: %w", err)
	}
	return p, nil
}

// ParseString reads a program held in memory.
func ParseString(src string) (*Program, error) {
	return Read(strings.NewReader(src))
}

// ReadFile reads the program stored at path.
func ReadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
