package vm

import (
	"fmt"
	"strconv"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/value"
)

func (vm *VM) opCall(in bytecode.Instruction) error {
	target, err := vm.target(in)
	if err != nil {
		return err
	}
	if len(vm.frames) >= vm.maxFrames {
		return fmt.Errorf("%w: %d frames", ErrFrameLimit, len(vm.frames))
	}
	vm.frames = append(vm.frames, callFrame{
		Frame: value.NewFrame(vm.heap, vm.pc),
		name:  in.Args[0],
	})
	vm.pc = target
	return nil
}

// opReturn ends the program from the top-level frame. Otherwise the top n
// values, and everything reachable from them, are rescued into the caller
// before the current frame is released.
func (vm *VM) opReturn(in bytecode.Instruction) (bool, error) {
	if len(in.Args) != 1 {
		return false, fmt.Errorf("%w: return should have one argument", ErrBadOperand)
	}
	f := vm.frame()
	if f.ReturnAddress == value.TopLevel {
		return true, nil
	}

	n, err := strconv.Atoi(in.Args[0])
	if err != nil || n < 0 {
		return false, fmt.Errorf("%w: return count %q", ErrBadOperand, in.Args[0])
	}
	if len(vm.stack) < n {
		return false, fmt.Errorf("%w: returning %d values from a stack of %d", ErrStackUnderflow, n, len(vm.stack))
	}

	caller := vm.frames[len(vm.frames)-2]
	for _, r := range vm.stack[len(vm.stack)-n:] {
		if err := caller.Rescue(r); err != nil {
			return false, err
		}
	}

	vm.pc = f.ReturnAddress
	f.Release()
	vm.frames = vm.frames[:len(vm.frames)-1]
	return false, nil
}
