// Package vm implements the execution engine for ewlang bytecode
package vm

import (
	"context"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/config"
	"github.com/hikkiyomi/ewlang/internal/value"
)

var log = commonlog.GetLogger("ewlang.vm")

const (
	InitialStackSize  = 256
	InitialFrameCount = 16

	// checkInterval is how many instructions run between context polls
	checkInterval = 1000
)

// callFrame pairs a value.Frame with the label it was entered through.
type callFrame struct {
	*value.Frame
	name string
}

// VM executes one bytecode.Program at a time.
type VM struct {
	program *bytecode.Program
	heap    *value.Heap

	frames []callFrame
	stack  []value.Ref

	// pc is the next instruction, cur the one executing
	pc  int
	cur int

	steps int

	arrayLimit int
	maxFrames  int
	trace      bool

	// Output writer (defaults to os.Stdout)
	out io.Writer

	// Context for cancellation
	Context context.Context
}

// New creates a new VM instance
func New() *VM {
	return &VM{
		arrayLimit: config.DefaultArraySizeLimit,
		maxFrames:  config.DefaultMaxFrames,
		out:        os.Stdout,
	}
}

// SetOutput sets the writer print instructions go to
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetContext sets the context for cancellation
func (vm *VM) SetContext(ctx context.Context) {
	vm.Context = ctx
}

// SetArrayLimit bounds the size an array instruction may request.
func (vm *VM) SetArrayLimit(n int) {
	vm.arrayLimit = n
}

// SetMaxFrames bounds the call depth.
func (vm *VM) SetMaxFrames(n int) {
	vm.maxFrames = n
}

// SetTrace logs every executed instruction at debug level.
func (vm *VM) SetTrace(on bool) {
	vm.trace = on
}

// Steps returns how many instructions the last Run executed.
func (vm *VM) Steps() int {
	return vm.steps
}

// Heap exposes the arena of the last Run.
func (vm *VM) Heap() *value.Heap {
	return vm.heap
}

// Run executes p from its entrypoint until the top-level frame returns or
// the program counter runs past the last instruction. All frames are
// released before Run returns, successful or not.
func (vm *VM) Run(p *bytecode.Program) error {
	start, err := p.Entrypoint()
	if err != nil {
		return err
	}

	vm.program = p
	vm.heap = value.NewHeap()
	vm.stack = make([]value.Ref, 0, InitialStackSize)
	vm.frames = make([]callFrame, 0, InitialFrameCount)
	vm.frames = append(vm.frames, callFrame{
		Frame: value.NewFrame(vm.heap, value.TopLevel),
		name:  bytecode.EntrypointLabel,
	})
	vm.pc = start
	vm.steps = 0
	defer vm.releaseFrames()

	err = vm.execute()
	log.Infof("executed %d instructions", vm.steps)
	return err
}

// execute is the main interpreter loop
func (vm *VM) execute() error {
	opsSinceCheck := 0

	for vm.pc < len(vm.program.Instructions) {
		opsSinceCheck++
		if opsSinceCheck >= checkInterval {
			opsSinceCheck = 0
			if vm.Context != nil {
				select {
				case <-vm.Context.Done():
					return vm.formatError(vm.Context.Err())
				default:
				}
			}
		}

		done, err := vm.step()
		if err != nil {
			return vm.formatError(err)
		}
		if done {
			return nil
		}
	}
	return nil
}

func (vm *VM) frame() *callFrame {
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) releaseFrames() {
	for i := len(vm.frames) - 1; i >= 0; i-- {
		vm.frames[i].Release()
	}
	vm.frames = vm.frames[:0]
	vm.stack = vm.stack[:0]
}
