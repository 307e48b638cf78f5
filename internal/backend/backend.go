// Package backend plugs the bytecode phases and the execution engine into
// the pipeline.
package backend

import (
	"github.com/tliron/commonlog"

	"github.com/hikkiyomi/ewlang/internal/pipeline"
)

var log = commonlog.GetLogger("ewlang.backend")

// Backend is the interface for execution backends
type Backend interface {
	// Run executes the program from pipeline context
	Run(ctx *pipeline.PipelineContext) error

	// Name returns the backend name for display
	Name() string
}
