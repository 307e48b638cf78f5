package pipeline

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
)

type recordingProcessor struct {
	name string
	seen *[]string
	err  error
}

func (p *recordingProcessor) Process(ctx *PipelineContext) *PipelineContext {
	*p.seen = append(*p.seen, p.name)
	if p.err != nil {
		ctx.AddError(p.err)
	}
	return ctx
}

func TestPipeline_RunsEveryStage(t *testing.T) {
	var seen []string
	boom := errors.New("boom")
	p := New(
		&recordingProcessor{name: "read", seen: &seen},
		&recordingProcessor{name: "optimize", seen: &seen, err: boom},
		&recordingProcessor{name: "execute", seen: &seen},
	)

	ctx := p.Run(NewPipelineContext([]byte("entrypoint:\n")))
	if len(seen) != 3 || seen[0] != "read" || seen[2] != "execute" {
		t.Errorf("stages = %v", seen)
	}
	if !ctx.Failed() || !errors.Is(ctx.Err(), boom) {
		t.Errorf("errors = %v", ctx.Errors)
	}
}

func TestNewPipelineContext(t *testing.T) {
	ctx := NewPipelineContext([]byte("x"))
	if ctx.RunID == uuid.Nil {
		t.Error("RunID not set")
	}
	if ctx.Config == nil || ctx.Output == nil || ctx.Context == nil {
		t.Errorf("defaults missing: %+v", ctx)
	}
	if ctx.Failed() || ctx.Err() != nil {
		t.Error("fresh context reports failure")
	}
	if other := NewPipelineContext(nil); other.RunID == ctx.RunID {
		t.Error("run ids repeat")
	}
}

func TestNewProgramContext(t *testing.T) {
	p := bytecode.NewProgram()
	ctx := NewProgramContext(p, true)
	if ctx.Program != p || !ctx.Optimized || ctx.Source != nil {
		t.Errorf("unexpected context: %+v", ctx)
	}
}
