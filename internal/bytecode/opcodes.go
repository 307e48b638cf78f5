// Package bytecode defines the textual ewlang instruction stream: opcodes,
// instructions and label tables, the reader that parses it, the IR writer and
// disassembler that print it, and the binary bundle format.
package bytecode

import "fmt"

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack and variables
	OP_PUSH  Opcode = iota // push <numeral> | push <name>
	OP_POP                 // pop <name> | pop arr <name>
	OP_PRINT               // print top of stack

	// Arithmetic
	OP_ADD // +
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /
	OP_MOD // %

	// Comparison
	OP_COMP_LT // <
	OP_COMP_GT // >
	OP_COMP_GE // >=
	OP_COMP_LE // <=
	OP_COMP_NE // !=
	OP_COMP_EQ // ==

	// Control flow
	OP_JZ  // jz <label>
	OP_JMP // jmp <label>

	OP_NEG // Unary minus, in place

	// Functions
	OP_CALL   // call <label>
	OP_RETURN // return <n>

	// Arrays
	OP_ARRAY  // array <name>
	OP_ACCESS // access <name>
	OP_LENGTH // length <name>

	// Logic
	OP_BIN_AND // and, no short circuit
	OP_BIN_OR  // or, no short circuit
)

// OpcodeNames maps opcodes to their textual mnemonics
var OpcodeNames = map[Opcode]string{
	OP_PUSH:    "push",
	OP_POP:     "pop",
	OP_PRINT:   "print",
	OP_ADD:     "add",
	OP_SUB:     "sub",
	OP_MUL:     "mul",
	OP_DIV:     "div",
	OP_MOD:     "mod",
	OP_COMP_LT: "compLT",
	OP_COMP_GT: "compGT",
	OP_COMP_GE: "compGE",
	OP_COMP_LE: "compLE",
	OP_COMP_NE: "compNE",
	OP_COMP_EQ: "compEQ",
	OP_JZ:      "jz",
	OP_JMP:     "jmp",
	OP_NEG:     "neg",
	OP_CALL:    "call",
	OP_RETURN:  "return",
	OP_ARRAY:   "array",
	OP_ACCESS:  "access",
	OP_LENGTH:  "length",
	OP_BIN_AND: "binAND",
	OP_BIN_OR:  "binOR",
}

// opcodeByName is built once from OpcodeNames and only read afterwards.
var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(OpcodeNames))
	for op, name := range OpcodeNames {
		m[name] = op
	}
	return m
}()

// LookupOpcode resolves a mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", byte(op))
}

// comparisonSymbols maps comparison opcodes to the operator they evaluate.
var comparisonSymbols = map[Opcode]string{
	OP_COMP_LT: "<",
	OP_COMP_GT: ">",
	OP_COMP_GE: ">=",
	OP_COMP_LE: "<=",
	OP_COMP_NE: "!=",
	OP_COMP_EQ: "==",
}

// ComparisonSymbol returns the operator of a comparison opcode.
func (op Opcode) ComparisonSymbol() (string, bool) {
	s, ok := comparisonSymbols[op]
	return s, ok
}

// IsArithmetic reports add, sub, mul, div and mod.
func (op Opcode) IsArithmetic() bool {
	return op >= OP_ADD && op <= OP_MOD
}

func (op Opcode) IsComparison() bool {
	return op >= OP_COMP_LT && op <= OP_COMP_EQ
}

func (op Opcode) IsLogical() bool {
	return op == OP_BIN_AND || op == OP_BIN_OR
}

// IsBinary reports opcodes that pop two operands and push one result.
func (op Opcode) IsBinary() bool {
	return op.IsArithmetic() || op.IsComparison() || op.IsLogical()
}

// IsBranch reports opcodes whose first operand is a label.
func (op Opcode) IsBranch() bool {
	return op == OP_JZ || op == OP_JMP || op == OP_CALL
}
