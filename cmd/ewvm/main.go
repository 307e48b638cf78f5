package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/hikkiyomi/ewlang/internal/backend"
	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/cache"
	"github.com/hikkiyomi/ewlang/internal/config"
	"github.com/hikkiyomi/ewlang/internal/importer"
	"github.com/hikkiyomi/ewlang/internal/optimizer"
	"github.com/hikkiyomi/ewlang/internal/pipeline"
)

const usage = `Usage:
  ewvm [options] <bytecode-file>       read, optimize and execute a program
  ewvm -c|--compile <bytecode-file>    write an optimized bundle (<file>.ewb)
  ewvm -r|--run <bundle.ewb>           execute a bundle
  ewvm -p|--preprocess <source.ew>     inline imports into <source.ew>_processed
  ewvm -help                           show this message

Options:
  --debug           trace every instruction (implies log verbosity 2)
  --no-opt          skip constant folding and dead-code elimination
  --ir PATH         write the optimized IR to PATH
  --disasm          print a listing of the optimized program instead of running it
  --config PATH     use PATH instead of the nearest ewvm.yaml / ewvm.toml
  --cache DB        cache optimized programs in the sqlite database DB
`

// options holds the host flags of a run.
type options struct {
	debug      bool
	noOpt      bool
	disasm     bool
	irPath     string
	configPath string
	cachePath  string
	file       string
}

// cli is one invocation of the host.
type cli struct {
	args   []string
	stdout io.Writer
	stderr io.Writer
	ctx    context.Context
	status int
}

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(status)
}

// run dispatches args and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{args: args, stdout: stdout, stderr: stderr, ctx: ctx}

	switch {
	case c.handleHelp():
	case c.handleCompile():
	case c.handleRunCompiled():
	case c.handlePreprocess():
	default:
		c.handleRun()
	}
	return c.status
}

// fail reports err on stderr, in red when stderr is a terminal.
func (c *cli) fail(err error) {
	c.status = 1
	prefix := "error:"
	if isTerminal(c.stderr) {
		prefix = "\x1b[1;31merror:\x1b[0m"
	}
	fmt.Fprintf(c.stderr, "%s %s\n", prefix, err)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *cli) handleHelp() bool {
	if len(c.args) < 2 {
		fmt.Fprint(c.stderr, usage)
		c.status = 1
		return true
	}
	switch c.args[1] {
	case "-help", "--help", "-h", "help":
		fmt.Fprint(c.stdout, usage)
		return true
	}
	return false
}

// handleCompile reads and optimizes a bytecode file and writes its bundle
func (c *cli) handleCompile() bool {
	if len(c.args) < 3 {
		return false
	}
	if c.args[1] != "-c" && c.args[1] != "--compile" {
		return false
	}
	path := c.args[2]

	source, err := os.ReadFile(path)
	if err != nil {
		c.fail(fmt.Errorf("reading %s: %w", path, err))
		return true
	}
	cfg, err := loadConfig("", path)
	if err != nil {
		c.fail(err)
		return true
	}
	configureLogging(cfg, false)

	pctx := pipeline.NewPipelineContext(source)
	pctx.FilePath = path
	pctx.Config = cfg
	pctx = pipeline.New(
		&backend.ReaderProcessor{},
		backend.NewOptimizerProcessor(optimizerOptions(cfg, false)),
	).Run(pctx)
	if pctx.Failed() {
		c.fail(pctx.Err())
		return true
	}

	data, err := bytecode.NewBundle(path, source, pctx.Program, pctx.Optimized).Serialize()
	if err != nil {
		c.fail(err)
		return true
	}
	outputPath := config.BundlePath(path)
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		c.fail(fmt.Errorf("writing bundle: %w", err))
		return true
	}

	fmt.Fprintf(c.stdout, "Compiled %s -> %s\n", path, outputPath)
	fmt.Fprintf(c.stdout, "Bytecode size: %d bytes\n", len(data))
	return true
}

// handleRunCompiled runs a bundle written by handleCompile
func (c *cli) handleRunCompiled() bool {
	if len(c.args) < 3 {
		return false
	}
	if c.args[1] != "-r" && c.args[1] != "--run" {
		return false
	}
	path := c.args[2]

	data, err := os.ReadFile(path)
	if err != nil {
		c.fail(fmt.Errorf("reading bundle: %w", err))
		return true
	}
	b, err := bytecode.Deserialize(data)
	if err != nil {
		c.fail(fmt.Errorf("%s: %w", path, err))
		return true
	}
	cfg, err := loadConfig("", path)
	if err != nil {
		c.fail(err)
		return true
	}
	configureLogging(cfg, false)

	pctx := pipeline.NewProgramContext(b.Program, b.Optimized)
	pctx.FilePath = b.Source
	pctx.Config = cfg
	pctx.Output = c.stdout
	pctx.Context = c.ctx
	pctx = pipeline.New(backend.NewExecutionProcessor(backend.NewVM())).Run(pctx)
	if pctx.Failed() {
		c.fail(pctx.Err())
	}
	return true
}

// handlePreprocess inlines the imports of a source module
func (c *cli) handlePreprocess() bool {
	if len(c.args) < 3 {
		return false
	}
	if c.args[1] != "-p" && c.args[1] != "--preprocess" {
		return false
	}

	out, err := importer.Process(c.args[2])
	if err != nil {
		c.fail(err)
		return true
	}
	fmt.Fprintf(c.stdout, "Preprocessed %s -> %s\n", c.args[2], out)
	return true
}

// handleRun reads, optimizes and executes a bytecode file.
func (c *cli) handleRun() {
	opts, err := parseOptions(c.args[1:])
	if err != nil {
		c.fail(err)
		return
	}

	source, err := os.ReadFile(opts.file)
	if err != nil {
		c.fail(fmt.Errorf("reading %s: %w", opts.file, err))
		return
	}
	cfg, err := loadConfig(opts.configPath, opts.file)
	if err != nil {
		c.fail(err)
		return
	}
	configureLogging(cfg, opts.debug)

	irPath := opts.irPath
	if irPath == "" {
		irPath = cfg.Debug.IRDump
	}
	cachePath := opts.cachePath
	if cachePath == "" {
		cachePath = cfg.Cache.Path
	}
	optOpts := optimizerOptions(cfg, opts.noOpt)

	var stages []pipeline.Processor
	var store *cache.Store
	if cachePath != "" && optOpts == optimizer.DefaultOptions() {
		store, err = cache.Open(cachePath)
		if err != nil {
			c.fail(err)
			return
		}
		defer store.Close()
		stages = append(stages, &backend.CacheLookupProcessor{Store: store})
	}
	stages = append(stages,
		&backend.ReaderProcessor{},
		backend.NewOptimizerProcessor(optOpts),
	)
	if store != nil {
		stages = append(stages, &backend.CacheStoreProcessor{Store: store})
	}
	stages = append(stages, &backend.IRDumpProcessor{Path: irPath})

	vmBackend := backend.NewVM(opts.debug)
	if !opts.disasm {
		stages = append(stages, backend.NewExecutionProcessor(vmBackend))
	}

	pctx := pipeline.NewPipelineContext(source)
	pctx.FilePath = opts.file
	pctx.Config = cfg
	pctx.Output = c.stdout
	pctx.Context = c.ctx
	pctx = pipeline.New(stages...).Run(pctx)

	if pctx.Failed() {
		for _, err := range pctx.Errors {
			c.fail(err)
		}
		return
	}
	if opts.disasm {
		listing, err := vmBackend.Disassemble(pctx)
		if err != nil {
			c.fail(err)
			return
		}
		fmt.Fprint(c.stdout, listing)
	}
}

// parseOptions separates host flags from the program path.
func parseOptions(args []string) (*options, error) {
	opts := &options{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		value := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s needs a value", arg)
			}
			i++
			return args[i], nil
		}

		var err error
		switch arg {
		case "-debug", "--debug":
			opts.debug = true
		case "-no-opt", "--no-opt":
			opts.noOpt = true
		case "-disasm", "--disasm":
			opts.disasm = true
		case "-ir", "--ir":
			opts.irPath, err = value()
		case "-config", "--config":
			opts.configPath, err = value()
		case "-cache", "--cache":
			opts.cachePath, err = value()
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown option %s", arg)
			}
			if opts.file != "" {
				return nil, fmt.Errorf("unexpected argument %s", arg)
			}
			opts.file = arg
		}
		if err != nil {
			return nil, err
		}
	}
	if opts.file == "" {
		return nil, errors.New("no bytecode file given")
	}
	return opts, nil
}

// loadConfig reads explicit when given, otherwise the configuration nearest
// to the program.
func loadConfig(explicit, programPath string) (*config.Config, error) {
	if explicit != "" {
		return config.LoadConfig(explicit)
	}
	return config.Discover(filepath.Dir(programPath))
}

func optimizerOptions(cfg *config.Config, disabled bool) optimizer.Options {
	if disabled {
		return optimizer.Options{}
	}
	return optimizer.Options{Fold: cfg.FoldEnabled(), DeadCode: cfg.DeadCodeEnabled()}
}

func configureLogging(cfg *config.Config, debug bool) {
	verbosity := cfg.Log.Verbosity
	if debug && verbosity < 2 {
		verbosity = 2
	}
	var path *string
	if cfg.Log.File != "" {
		path = &cfg.Log.File
	}
	commonlog.Configure(verbosity, path)
}
