package backend

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/cache"
	"github.com/hikkiyomi/ewlang/internal/optimizer"
	"github.com/hikkiyomi/ewlang/internal/pipeline"
)

// ReaderProcessor parses ctx.Source into ctx.Program. It does nothing when a
// program is already present.
type ReaderProcessor struct{}

func (rp *ReaderProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() || ctx.Program != nil {
		return ctx
	}

	p, err := bytecode.Read(bytes.NewReader(ctx.Source))
	if err != nil {
		if ctx.FilePath != "" {
			err = fmt.Errorf("%s: %w", ctx.FilePath, err)
		}
		ctx.AddError(err)
		return ctx
	}
	ctx.Program = p
	log.Infof("run %s: read %d instructions, %d labels", ctx.RunID, len(p.Instructions), len(p.Labels))
	return ctx
}

// OptimizerProcessor runs the optimizer passes once.
type OptimizerProcessor struct {
	Options optimizer.Options
}

func NewOptimizerProcessor(opts optimizer.Options) *OptimizerProcessor {
	return &OptimizerProcessor{Options: opts}
}

func (op *OptimizerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() || ctx.Program == nil || ctx.Optimized {
		return ctx
	}
	if !op.Options.Fold && !op.Options.DeadCode {
		return ctx
	}

	if _, err := optimizer.Optimize(ctx.Program, op.Options); err != nil {
		ctx.AddError(fmt.Errorf("optimizing: %w", err))
		return ctx
	}
	ctx.Optimized = true
	return ctx
}

// IRDumpProcessor writes the program in its textual form to Path.
type IRDumpProcessor struct {
	Path string
}

func (dp *IRDumpProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if dp.Path == "" || ctx.Failed() || ctx.Program == nil {
		return ctx
	}
	if err := bytecode.DumpIR(dp.Path, ctx.Program); err != nil {
		ctx.AddError(fmt.Errorf("dumping IR: %w", err))
		return ctx
	}
	log.Debugf("run %s: IR written to %s", ctx.RunID, dp.Path)
	return ctx
}

// CacheLookupProcessor loads a previously optimized program for the same
// source text. It belongs in pipelines that optimize with every pass
// enabled, since that is what CacheStoreProcessor stores.
type CacheLookupProcessor struct {
	Store *cache.Store
}

func (cp *CacheLookupProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if cp.Store == nil || ctx.Failed() || ctx.Program != nil {
		return ctx
	}

	b, err := cp.Store.Get(cache.Key(ctx.Source))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warningf("run %s: cache lookup failed: %s", ctx.RunID, err)
		}
		return ctx
	}
	ctx.Program = b.Program
	ctx.Optimized = b.Optimized
	ctx.CacheHit = true
	log.Infof("run %s: using cached build %s", ctx.RunID, b.BuildID)
	return ctx
}

// CacheStoreProcessor saves a freshly optimized program. Cache failures are
// logged and never fail the run.
type CacheStoreProcessor struct {
	Store *cache.Store
}

func (cp *CacheStoreProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if cp.Store == nil || ctx.Failed() || ctx.Program == nil || ctx.CacheHit || !ctx.Optimized {
		return ctx
	}

	b := bytecode.NewBundle(ctx.FilePath, ctx.Source, ctx.Program.Clone(), true)
	if err := cp.Store.Put(cache.Key(ctx.Source), b); err != nil {
		log.Warningf("run %s: cache store failed: %s", ctx.RunID, err)
	}
	return ctx
}
