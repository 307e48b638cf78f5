package pipeline

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/config"
)

// PipelineContext carries one program through reading, optimization and
// execution.
type PipelineContext struct {
	// RunID tags the log lines of one run.
	RunID uuid.UUID

	Source   []byte
	FilePath string
	Config   *config.Config

	Program *bytecode.Program
	// Optimized is set once the optimizer ran (or a cached optimized
	// program was loaded).
	Optimized bool
	CacheHit  bool

	// Output receives print instructions (defaults to os.Stdout)
	Output io.Writer

	// Context cancels execution
	Context context.Context

	Errors []error
}

// NewPipelineContext prepares source for a pipeline run under the default
// configuration.
func NewPipelineContext(source []byte) *PipelineContext {
	return &PipelineContext{
		RunID:   uuid.New(),
		Source:  source,
		Config:  config.Default(),
		Output:  os.Stdout,
		Context: context.Background(),
	}
}

// NewProgramContext starts a pipeline from an already read program, e.g.
// one loaded from a bundle.
func NewProgramContext(p *bytecode.Program, optimized bool) *PipelineContext {
	ctx := NewPipelineContext(nil)
	ctx.Program = p
	ctx.Optimized = optimized
	return ctx
}

// AddError records a stage failure.
func (ctx *PipelineContext) AddError(err error) {
	ctx.Errors = append(ctx.Errors, err)
}

// Failed reports whether any stage has failed.
func (ctx *PipelineContext) Failed() bool {
	return len(ctx.Errors) > 0
}

// Err returns the first failure, or nil.
func (ctx *PipelineContext) Err() error {
	if len(ctx.Errors) == 0 {
		return nil
	}
	return ctx.Errors[0]
}
