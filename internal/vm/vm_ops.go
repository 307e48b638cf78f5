package vm

import (
	"fmt"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/value"
)

// binaryOp pops rhs then lhs, so the second-popped value is the left operand.
func (vm *VM) binaryOp(op bytecode.Opcode) error {
	if len(vm.stack) < 2 {
		return fmt.Errorf("%w: value stack does not contain 2 values for %s", ErrStackUnderflow, op)
	}
	rr, _ := vm.pop(op.String())
	lr, _ := vm.pop(op.String())
	rhs, err := vm.heap.Get(rr)
	if err != nil {
		return err
	}
	lhs, err := vm.heap.Get(lr)
	if err != nil {
		return err
	}

	var res *value.Value
	switch op {
	case bytecode.OP_ADD:
		res, err = lhs.Add(rhs)
	case bytecode.OP_SUB:
		res, err = lhs.Sub(rhs)
	case bytecode.OP_MUL:
		res, err = lhs.Mul(rhs)
	case bytecode.OP_DIV:
		res, err = lhs.Div(rhs)
	case bytecode.OP_MOD:
		res, err = lhs.Mod(rhs)
	case bytecode.OP_BIN_AND:
		res = lhs.And(rhs)
	case bytecode.OP_BIN_OR:
		res = lhs.Or(rhs)
	default:
		sym, _ := op.ComparisonSymbol()
		res, err = lhs.Compare(sym, rhs)
	}
	if err != nil {
		return err
	}
	vm.alloc(res)
	return nil
}

func (vm *VM) opNeg() error {
	if len(vm.stack) == 0 {
		return fmt.Errorf("%w: value stack is empty for neg", ErrStackUnderflow)
	}
	v, err := vm.heap.Get(vm.stack[len(vm.stack)-1])
	if err != nil {
		return err
	}
	return v.Negate()
}

func (vm *VM) opArray(in bytecode.Instruction) error {
	if err := operand(in, 1); err != nil {
		return err
	}
	size, err := vm.popInteger("array size")
	if err != nil {
		return err
	}
	if size.Sign() < 0 {
		return fmt.Errorf("%w: negative array size %s", ErrBadOperand, size)
	}
	n, ok := size.Int64()
	if !ok || n > int64(vm.arrayLimit) {
		return fmt.Errorf("%w: %s exceeds %d", ErrArrayTooLarge, size, vm.arrayLimit)
	}
	f := vm.frame()
	f.Bind(in.Args[0], f.AllocArray(int(n)))
	return nil
}

func (vm *VM) opAccess(in bytecode.Instruction) error {
	if err := operand(in, 1); err != nil {
		return err
	}
	idx, err := vm.popInteger("array index")
	if err != nil {
		return err
	}
	arr, _, err := vm.lookupArray(in.Args[0])
	if err != nil {
		return err
	}
	elem, err := vm.heap.Elem(arr, idx)
	if err != nil {
		return err
	}
	vm.push(elem)
	return nil
}

func (vm *VM) opLength(in bytecode.Instruction) error {
	if err := operand(in, 1); err != nil {
		return err
	}
	_, v, err := vm.lookupArray(in.Args[0])
	if err != nil {
		return err
	}
	vm.alloc(value.FromInt64(int64(v.Len())))
	return nil
}
