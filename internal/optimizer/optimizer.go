// Package optimizer rewrites a bytecode.Program before execution: constant
// folding first, then dead-code elimination from the entrypoint. Both passes
// keep the label table pointing at the same logical instructions.
package optimizer

import (
	"slices"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
)

var log = commonlog.GetLogger("ewlang.optimizer")

// Options selects the passes to run.
type Options struct {
	Fold     bool
	DeadCode bool
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{Fold: true, DeadCode: true}
}

// Report summarizes one Optimize call.
type Report struct {
	Before  int
	After   int
	Folded  int
	Removed int
}

// Optimize runs the enabled passes over p in place, folding first.
func Optimize(p *bytecode.Program, opts Options) (Report, error) {
	r := Report{Before: len(p.Instructions)}
	if opts.Fold {
		n, err := FoldConstants(p)
		if err != nil {
			return r, err
		}
		r.Folded = n
	}
	if opts.DeadCode {
		n, err := EliminateDeadCode(p)
		if err != nil {
			return r, err
		}
		r.Removed = n
	}
	r.After = len(p.Instructions)
	log.Infof("optimized %d -> %d instructions (%d folded, %d unreachable)", r.Before, r.After, r.Folded, r.Removed)
	return r, nil
}

// shiftLabels moves every label left by the number of deleted indices
// strictly below it.
func shiftLabels(labels map[string]int, deleted []int) {
	if len(deleted) == 0 {
		return
	}
	deleted = slices.Clone(deleted)
	slices.Sort(deleted)
	deleted = slices.Compact(deleted)
	for name, idx := range labels {
		labels[name] = idx - sort.SearchInts(deleted, idx)
	}
}
