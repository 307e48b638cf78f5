package vm

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/hikkiyomi/ewlang/internal/bigint"
	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/value"
)

// step executes one instruction. done is true once the top-level frame
// has returned.
func (vm *VM) step() (done bool, err error) {
	in := vm.program.Instructions[vm.pc]
	vm.cur = vm.pc
	vm.pc++
	vm.steps++

	if vm.trace && log.AllowLevel(commonlog.Debug) {
		log.Debugf("%04d %-8s %v stack=%d frames=%d", vm.cur, in.Op, in.Args, len(vm.stack), len(vm.frames))
	}

	switch op := in.Op; {
	case op == bytecode.OP_PUSH:
		return false, vm.opPush(in)
	case op == bytecode.OP_POP:
		return false, vm.opPop(in)
	case op == bytecode.OP_PRINT:
		return false, vm.opPrint()
	case op.IsBinary():
		return false, vm.binaryOp(op)
	case op == bytecode.OP_NEG:
		return false, vm.opNeg()
	case op == bytecode.OP_JMP:
		target, err := vm.target(in)
		if err != nil {
			return false, err
		}
		vm.pc = target
		return false, nil
	case op == bytecode.OP_JZ:
		return false, vm.opJz(in)
	case op == bytecode.OP_CALL:
		return false, vm.opCall(in)
	case op == bytecode.OP_RETURN:
		return vm.opReturn(in)
	case op == bytecode.OP_ARRAY:
		return false, vm.opArray(in)
	case op == bytecode.OP_ACCESS:
		return false, vm.opAccess(in)
	case op == bytecode.OP_LENGTH:
		return false, vm.opLength(in)
	default:
		return false, fmt.Errorf("%w: %d", ErrUnknownInstruction, byte(op))
	}
}

// =============================================================================
// Stack helpers
// =============================================================================

func (vm *VM) push(r value.Ref) {
	vm.stack = append(vm.stack, r)
}

func (vm *VM) pop(what string) (value.Ref, error) {
	n := len(vm.stack)
	if n == 0 {
		return value.Ref{}, fmt.Errorf("%w: nothing to %s", ErrStackUnderflow, what)
	}
	r := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return r, nil
}

// popInteger pops a value that must be an Integer.
func (vm *VM) popInteger(what string) (bigint.Int, error) {
	r, err := vm.pop(what)
	if err != nil {
		return bigint.Int{}, err
	}
	v, err := vm.heap.Get(r)
	if err != nil {
		return bigint.Int{}, err
	}
	if v.Kind() != value.KindInteger {
		return bigint.Int{}, fmt.Errorf("%w: %s is %s, not integer", value.ErrTypeMismatch, what, v.Kind())
	}
	return v.Int(), nil
}

func (vm *VM) alloc(v *value.Value) {
	vm.push(vm.frame().Alloc(v))
}

func operand(in bytecode.Instruction, want int) error {
	if len(in.Args) < want {
		return fmt.Errorf("%w: %s needs %d argument(s), got %d", ErrBadOperand, in.Op, want, len(in.Args))
	}
	return nil
}

func (vm *VM) lookup(name string) (value.Ref, error) {
	r, ok := vm.frame().Lookup(name)
	if !ok {
		return value.Ref{}, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	return r, nil
}

func (vm *VM) lookupArray(name string) (value.Ref, *value.Value, error) {
	r, err := vm.lookup(name)
	if err != nil {
		return value.Ref{}, nil, err
	}
	v, err := vm.heap.Get(r)
	if err != nil {
		return value.Ref{}, nil, err
	}
	if v.Kind() != value.KindArray {
		return value.Ref{}, nil, fmt.Errorf("%w: %s is %s, not array", value.ErrTypeMismatch, name, v.Kind())
	}
	return r, v, nil
}

func (vm *VM) target(in bytecode.Instruction) (int, error) {
	if err := operand(in, 1); err != nil {
		return 0, err
	}
	return vm.program.Target(in.Args[0])
}

// =============================================================================
// Handlers
// =============================================================================

func (vm *VM) opPush(in bytecode.Instruction) error {
	if len(in.Args) != 1 {
		return fmt.Errorf("%w: push should have exactly one argument", ErrBadOperand)
	}
	arg := in.Args[0]
	if bytecode.IsNumeral(arg) {
		v, err := value.FromString(arg)
		if err != nil {
			return err
		}
		vm.alloc(v)
		return nil
	}
	r, err := vm.lookup(arg)
	if err != nil {
		return err
	}
	vm.push(r)
	return nil
}

// opPop binds the top of stack to a variable, or with two operands
// ("pop arr <name>") pops an index and then a value and stores the value
// into the array held by <name>.
func (vm *VM) opPop(in bytecode.Instruction) error {
	if err := operand(in, 1); err != nil {
		return err
	}
	if len(in.Args) == 1 {
		r, err := vm.pop("pop")
		if err != nil {
			return err
		}
		vm.frame().Bind(in.Args[0], r)
		return nil
	}

	idx, err := vm.popInteger("array index")
	if err != nil {
		return err
	}
	x, err := vm.pop("store")
	if err != nil {
		return err
	}
	arr, _, err := vm.lookupArray(in.Args[1])
	if err != nil {
		return err
	}
	return vm.heap.SetElem(arr, idx, x)
}

func (vm *VM) opPrint() error {
	r, err := vm.pop("print")
	if err != nil {
		return err
	}
	s, err := vm.heap.Render(r)
	if err != nil {
		return err
	}
	_, err = io.WriteString(vm.out, s+"\n")
	return err
}

func (vm *VM) opJz(in bytecode.Instruction) error {
	target, err := vm.target(in)
	if err != nil {
		return err
	}
	cond, err := vm.popInteger("jz condition")
	if err != nil {
		return err
	}
	if cond.IsZero() {
		vm.pc = target
	}
	return nil
}
