package backend

import (
	"fmt"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/pipeline"
	"github.com/hikkiyomi/ewlang/internal/vm"
)

// VMBackend executes programs using the bytecode VM
type VMBackend struct {
	debugMode bool
}

// NewVM creates a new VM backend. Debug mode traces every instruction.
func NewVM(debugMode ...bool) *VMBackend {
	debug := false
	if len(debugMode) > 0 {
		debug = debugMode[0]
	}
	return &VMBackend{debugMode: debug}
}

// Run executes the program held by ctx under its configured limits.
func (b *VMBackend) Run(ctx *pipeline.PipelineContext) error {
	if ctx.Program == nil {
		return fmt.Errorf("no program to execute")
	}

	machine := vm.New()
	if ctx.Output != nil {
		machine.SetOutput(ctx.Output)
	}
	if ctx.Context != nil {
		machine.SetContext(ctx.Context)
	}
	if ctx.Config != nil {
		machine.SetArrayLimit(ctx.Config.ArraySizeLimit())
		machine.SetMaxFrames(ctx.Config.MaxFrames())
		machine.SetTrace(b.debugMode || ctx.Config.Debug.Trace)
	} else {
		machine.SetTrace(b.debugMode)
	}

	log.Infof("run %s: executing %s (%d instructions, optimized: %t)",
		ctx.RunID, displayName(ctx), len(ctx.Program.Instructions), ctx.Optimized)

	err := machine.Run(ctx.Program)
	if err != nil {
		log.Debugf("run %s: failed after %d steps", ctx.RunID, machine.Steps())
		return err
	}
	log.Debugf("run %s: finished after %d steps", ctx.RunID, machine.Steps())
	return nil
}

// Name returns the backend name
func (b *VMBackend) Name() string {
	return "vm"
}

// Disassemble returns the listing of the program in ctx
func (b *VMBackend) Disassemble(ctx *pipeline.PipelineContext) (string, error) {
	if ctx.Program == nil {
		return "", fmt.Errorf("no program to disassemble")
	}
	return bytecode.Disassemble(ctx.Program, displayName(ctx)), nil
}

func displayName(ctx *pipeline.PipelineContext) string {
	if ctx.FilePath != "" {
		return ctx.FilePath
	}
	return "main"
}
