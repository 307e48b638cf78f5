package backend

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/cache"
	"github.com/hikkiyomi/ewlang/internal/optimizer"
	"github.com/hikkiyomi/ewlang/internal/pipeline"
	"github.com/hikkiyomi/ewlang/internal/vm"
)

const squareProgram = `entrypoint:
	push	2
	push	3
	add
	call	square
	print
	return	0
unused:
	push	1
	print
	return	0
square:
	pop	x
	push	x
	push	x
	mul
	return	1
`

// runPipeline pushes src through the standard stages and returns the final
// context plus everything printed.
func runPipeline(t *testing.T, src string) (*pipeline.PipelineContext, string) {
	t.Helper()
	var out bytes.Buffer
	ctx := pipeline.NewPipelineContext([]byte(src))
	ctx.Output = &out

	ctx = pipeline.New(
		&ReaderProcessor{},
		NewOptimizerProcessor(optimizer.DefaultOptions()),
		NewExecutionProcessor(NewVM()),
	).Run(ctx)
	return ctx, out.String()
}

func TestPipeline_ReadOptimizeExecute(t *testing.T) {
	ctx, out := runPipeline(t, squareProgram)
	if ctx.Failed() {
		t.Fatalf("errors: %v", ctx.Errors)
	}
	if out != "25\n" {
		t.Errorf("output = %q", out)
	}
	if !ctx.Optimized {
		t.Error("program was not optimized")
	}
	if len(ctx.Program.Instructions) != 9 {
		t.Errorf("optimized program has %d instructions:\n%s", len(ctx.Program.Instructions),
			bytecode.Disassemble(ctx.Program, "main"))
	}
}

func TestPipeline_ReadErrorSkipsExecution(t *testing.T) {
	var out bytes.Buffer
	ctx := pipeline.NewPipelineContext([]byte("entrypoint:\n\tpush\t1\n\tprint\n\tfrobnicate\n"))
	ctx.FilePath = "prog.ewbc"
	ctx.Output = &out

	ctx = pipeline.New(
		&ReaderProcessor{},
		NewOptimizerProcessor(optimizer.DefaultOptions()),
		NewExecutionProcessor(NewVM()),
	).Run(ctx)

	if !errors.Is(ctx.Err(), bytecode.ErrUnknownOpcode) {
		t.Fatalf("error = %v", ctx.Err())
	}
	if !strings.HasPrefix(ctx.Err().Error(), "prog.ewbc: line 4") {
		t.Errorf("error = %q", ctx.Err())
	}
	if out.Len() != 0 || ctx.Program != nil {
		t.Error("execution ran after a read error")
	}
}

func TestPipeline_OptimizerErrorSkipsExecution(t *testing.T) {
	ctx, out := runPipeline(t, "main:\n\tpush\t1\n\tprint\n")
	if !errors.Is(ctx.Err(), bytecode.ErrUnknownLabel) {
		t.Fatalf("error = %v", ctx.Err())
	}
	if len(ctx.Errors) != 1 || out != "" {
		t.Errorf("errors = %v, output = %q", ctx.Errors, out)
	}
}

func TestPipeline_RuntimeError(t *testing.T) {
	src := "entrypoint:\n\tpush\t1\n\tprint\n\tpush\ty\n\tprint\n"
	ctx, out := runPipeline(t, src)
	var rt *vm.RuntimeError
	if !errors.As(ctx.Err(), &rt) {
		t.Fatalf("error = %v, want *vm.RuntimeError", ctx.Err())
	}
	if !errors.Is(ctx.Err(), vm.ErrUnknownVariable) {
		t.Errorf("error = %v", ctx.Err())
	}
	if out != "1\n" {
		t.Errorf("output before the failure = %q", out)
	}
}

func TestPipeline_ConfigLimits(t *testing.T) {
	var out bytes.Buffer
	ctx := pipeline.NewPipelineContext([]byte("entrypoint:\n\tpush\t11\n\tarray\ta\n"))
	ctx.Output = &out
	limit := 10
	ctx.Config.Limits.ArraySize = &limit

	ctx = pipeline.New(&ReaderProcessor{}, NewExecutionProcessor(NewVM())).Run(ctx)
	if !errors.Is(ctx.Err(), vm.ErrArrayTooLarge) {
		t.Errorf("error = %v", ctx.Err())
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	cancel()

	ctx := pipeline.NewPipelineContext([]byte("entrypoint:\nloop:\n\tjmp\tloop\n"))
	ctx.Context = c
	ctx = pipeline.New(&ReaderProcessor{}, NewExecutionProcessor(NewVM())).Run(ctx)
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("error = %v", ctx.Err())
	}
}

func TestIRDumpProcessor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimized_ir.tmp")
	ctx, _ := runPipeline(t, squareProgram)
	ctx = (&IRDumpProcessor{Path: path}).Process(ctx)
	if ctx.Failed() {
		t.Fatal(ctx.Err())
	}

	dumped, err := bytecode.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	machine := vm.New()
	machine.SetOutput(&out)
	if err := machine.Run(dumped); err != nil {
		t.Fatal(err)
	}
	if out.String() != "25\n" {
		t.Errorf("dumped program printed %q", out.String())
	}

	ctx = (&IRDumpProcessor{Path: filepath.Join(t.TempDir(), "missing", "ir.tmp")}).Process(ctx)
	if !ctx.Failed() {
		t.Error("expected an error for an unwritable dump path")
	}
}

func TestCacheProcessors(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "programs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	run := func() (*pipeline.PipelineContext, string) {
		t.Helper()
		var out bytes.Buffer
		ctx := pipeline.NewPipelineContext([]byte(squareProgram))
		ctx.Output = &out
		ctx = pipeline.New(
			&CacheLookupProcessor{Store: store},
			&ReaderProcessor{},
			NewOptimizerProcessor(optimizer.DefaultOptions()),
			&CacheStoreProcessor{Store: store},
			NewExecutionProcessor(NewVM()),
		).Run(ctx)
		if ctx.Failed() {
			t.Fatal(ctx.Err())
		}
		return ctx, out.String()
	}

	first, out1 := run()
	if first.CacheHit {
		t.Error("first run hit an empty cache")
	}
	second, out2 := run()
	if !second.CacheHit || !second.Optimized {
		t.Errorf("second run: hit %v, optimized %v", second.CacheHit, second.Optimized)
	}
	if out1 != out2 || out2 != "25\n" {
		t.Errorf("outputs differ: %q vs %q", out1, out2)
	}

	hits, err := store.Hits(cache.Key([]byte(squareProgram)))
	if err != nil || hits != 1 {
		t.Errorf("hits = %d, %v", hits, err)
	}
}

func TestVMBackend_Disassemble(t *testing.T) {
	ctx, _ := runPipeline(t, squareProgram)
	listing, err := NewVM().Disassemble(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"== main ==", "square:", "push     5"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}

	if _, err := NewVM().Disassemble(pipeline.NewPipelineContext(nil)); err == nil {
		t.Error("expected an error without a program")
	}
}

func TestVMBackend_NoProgram(t *testing.T) {
	b := NewVM(true)
	if b.Name() != "vm" {
		t.Errorf("Name() = %q", b.Name())
	}
	if err := b.Run(pipeline.NewPipelineContext(nil)); err == nil {
		t.Error("expected an error without a program")
	}
}

func TestPipeline_BundleProgram(t *testing.T) {
	p, err := bytecode.ParseString("entrypoint:\n\tpush\t0\n\tarray\ta\n\tpush\ta\n\tprint\n")
	if err != nil {
		t.Fatal(err)
	}
	data, err := bytecode.NewBundle("prog", nil, p, false).Serialize()
	if err != nil {
		t.Fatal(err)
	}
	b, err := bytecode.Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	ctx := pipeline.NewProgramContext(b.Program, b.Optimized)
	ctx.Output = &out
	ctx = pipeline.New(&ReaderProcessor{}, NewExecutionProcessor(NewVM())).Run(ctx)
	if ctx.Failed() {
		t.Fatal(ctx.Err())
	}
	if out.String() != "[  ]\n" {
		t.Errorf("output = %q", out.String())
	}
}
