package bytecode

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hikkiyomi/ewlang/internal/bigint"
)

// EntrypointLabel marks the first executed instruction.
const EntrypointLabel = "entrypoint"

var (
	ErrMalformedLabel = errors.New("malformed label")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrUnknownLabel   = errors.New("unknown label")
)

// Instruction is an opcode plus its textual operands.
type Instruction struct {
	Op   Opcode   `cbor:"1,keyasint"`
	Args []string `cbor:"2,keyasint,omitempty"`
}

// NewPush builds "push <lit>".
func NewPush(lit string) Instruction {
	return Instruction{Op: OP_PUSH, Args: []string{lit}}
}

// Arg returns operand i or "" when absent.
func (in Instruction) Arg(i int) string {
	if i < len(in.Args) {
		return in.Args[i]
	}
	return ""
}

// IsLiteralPush reports a push of a decimal numeral.
func (in Instruction) IsLiteralPush() bool {
	return in.Op == OP_PUSH && len(in.Args) == 1 && IsNumeral(in.Args[0])
}

func (in Instruction) String() string {
	if len(in.Args) == 0 {
		return in.Op.String()
	}
	return in.Op.String() + " " + strings.Join(in.Args, " ")
}

// IsNumeral reports whether an operand is an integer literal rather than a
// variable name: an optional '-' followed by decimal digits.
func IsNumeral(s string) bool {
	return bigint.IsNumeral(s)
}

// Program is an instruction list plus its label table.
type Program struct {
	Instructions []Instruction  `cbor:"1,keyasint"`
	Labels       map[string]int `cbor:"2,keyasint"`
}

func NewProgram() *Program {
	return &Program{Labels: make(map[string]int)}
}

// Clone returns a deep copy, so a pass can rewrite it freely.
func (p *Program) Clone() *Program {
	out := &Program{
		Instructions: make([]Instruction, len(p.Instructions)),
		Labels:       maps.Clone(p.Labels),
	}
	if out.Labels == nil {
		out.Labels = make(map[string]int)
	}
	for i, in := range p.Instructions {
		out.Instructions[i] = Instruction{Op: in.Op, Args: slices.Clone(in.Args)}
	}
	return out
}

// Target resolves a label to its instruction index.
func (p *Program) Target(label string) (int, error) {
	idx, ok := p.Labels[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return idx, nil
}

// Entrypoint returns the index of the entrypoint label.
func (p *Program) Entrypoint() (int, error) {
	return p.Target(EntrypointLabel)
}

// LabelsAt groups label names by instruction index, names sorted.
func (p *Program) LabelsAt() map[int][]string {
	at := make(map[int][]string)
	for name, idx := range p.Labels {
		at[idx] = append(at[idx], name)
	}
	for _, names := range at {
		slices.Sort(names)
	}
	return at
}

// Labelled reports which instruction indices carry at least one label.
func (p *Program) Labelled() map[int]bool {
	set := make(map[int]bool, len(p.Labels))
	for _, idx := range p.Labels {
		set[idx] = true
	}
	return set
}

// Validate checks that every label lies within [0, len] and that every
// branch names a known label.
func (p *Program) Validate() error {
	for name, idx := range p.Labels {
		if idx < 0 || idx > len(p.Instructions) {
			return fmt.Errorf("%w: %q points at %d of %d instructions", ErrMalformedLabel, name, idx, len(p.Instructions))
		}
	}
	for i, in := range p.Instructions {
		if !in.Op.IsBranch() {
			continue
		}
		if _, err := p.Target(in.Arg(0)); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, in, err)
		}
	}
	return nil
}
