package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// WriteIR prints p in the textual grammar Read accepts: each label on its
// own line before the instruction it marks, instructions as
// "\t<op>\t<arg>\t...". Labels at or past the end come last.
func WriteIR(w io.Writer, p *Program) error {
	bw := bufio.NewWriter(w)
	at := p.LabelsAt()

	for i, in := range p.Instructions {
		for _, name := range at[i] {
			fmt.Fprintf(bw, "%s:\n", name)
		}
		bw.WriteString("\t" + in.Op.String() + "\t")
		for _, arg := range in.Args {
			bw.WriteString(arg + "\t")
		}
		bw.WriteByte('\n')
	}

	var tail []int
	for idx := range at {
		if idx >= len(p.Instructions) || idx < 0 {
			tail = append(tail, idx)
		}
	}
	slices.Sort(tail)
	for _, idx := range tail {
		for _, name := range at[idx] {
			fmt.Fprintf(bw, "%s:\n", name)
		}
	}
	return bw.Flush()
}

// DumpIR writes the IR of p to path, replacing the file.
func DumpIR(path string, p *Program) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteIR(f, p); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Disassemble returns a human-readable listing of the program
func Disassemble(p *Program, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	at := p.LabelsAt()
	for i, in := range p.Instructions {
		for _, label := range at[i] {
			sb.WriteString(fmt.Sprintf("     %s:\n", label))
		}
		disassembleInstruction(&sb, in, i)
	}
	for _, label := range at[len(p.Instructions)] {
		sb.WriteString(fmt.Sprintf("     %s: (end)\n", label))
	}

	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, in Instruction, offset int) {
	sb.WriteString(fmt.Sprintf("%04d ", offset))
	switch {
	case len(in.Args) == 0:
		sb.WriteString(fmt.Sprintf("%s\n", in.Op))
	case in.Op.IsBranch():
		sb.WriteString(fmt.Sprintf("%-8s -> %s\n", in.Op, in.Args[0]))
	default:
		sb.WriteString(fmt.Sprintf("%-8s %s\n", in.Op, strings.Join(in.Args, " ")))
	}
}
