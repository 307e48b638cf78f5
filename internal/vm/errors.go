package vm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrUnknownVariable    = errors.New("unknown variable")
	ErrArrayTooLarge      = errors.New("provided array size is too big")
	ErrUnknownInstruction = errors.New("caught unknown instruction")
	ErrBadOperand         = errors.New("bad operand")
	ErrFrameLimit         = errors.New("too many nested calls")
)

// RuntimeError is a failure raised while executing an instruction.
type RuntimeError struct {
	PC    int
	Op    string
	Trace []string
	Err   error
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("runtime error: %04d %s: %v", e.PC, e.Op, e.Err))
	if len(e.Trace) > 0 {
		sb.WriteString("\nStack trace:")
		for _, line := range e.Trace {
			sb.WriteString("\n  at ")
			sb.WriteString(line)
		}
	}
	return sb.String()
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// formatError attaches the failing instruction and a frame trace, innermost
// frame first. Each outer frame is shown at its call site.
func (vm *VM) formatError(err error) error {
	rt := &RuntimeError{PC: vm.cur, Err: err}
	if vm.cur < len(vm.program.Instructions) {
		rt.Op = vm.program.Instructions[vm.cur].Op.String()
	}
	for i := len(vm.frames) - 1; i >= 0; i-- {
		site := vm.cur
		if i < len(vm.frames)-1 {
			site = vm.frames[i+1].ReturnAddress - 1
		}
		rt.Trace = append(rt.Trace, fmt.Sprintf("%s (instruction %d)", vm.frames[i].name, site))
	}
	return rt
}
