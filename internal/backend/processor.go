package backend

import (
	"github.com/hikkiyomi/ewlang/internal/pipeline"
)

// ExecutionProcessor implements pipeline.Processor to run a Backend
type ExecutionProcessor struct {
	Backend Backend
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.Program == nil || ctx.Failed() {
		return ctx
	}

	if err := p.Backend.Run(ctx); err != nil {
		// Runtime errors keep their type so callers can inspect the trace
		ctx.AddError(err)
	}
	return ctx
}
