package optimizer

import (
	"fmt"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
)

// EliminateDeadCode deletes every instruction not reachable from the
// entrypoint and returns how many were removed.
//
// Successors: return has none, jmp only its target, jz and call both their
// target and the next instruction, everything else the next instruction.
// Constant jz conditions are not specialized.
func EliminateDeadCode(p *bytecode.Program) (int, error) {
	start, err := p.Entrypoint()
	if err != nil {
		return 0, err
	}

	n := len(p.Instructions)
	visited := make([]bool, n)
	work := []int{start}

	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]

		// running off the end terminates the program
		if idx < 0 || idx >= n || visited[idx] {
			continue
		}
		visited[idx] = true
		in := p.Instructions[idx]

		switch in.Op {
		case bytecode.OP_RETURN:
			continue
		case bytecode.OP_JMP:
			target, err := branchTarget(p, idx, in)
			if err != nil {
				return 0, err
			}
			work = append(work, target)
			continue
		}

		work = append(work, idx+1)
		if in.Op == bytecode.OP_JZ || in.Op == bytecode.OP_CALL {
			target, err := branchTarget(p, idx, in)
			if err != nil {
				return 0, err
			}
			work = append(work, target)
		}
	}

	kept := p.Instructions[:0:0]
	var deleted []int
	for i, in := range p.Instructions {
		if visited[i] {
			kept = append(kept, in)
		} else {
			deleted = append(deleted, i)
		}
	}
	p.Instructions = kept
	shiftLabels(p.Labels, deleted)

	if len(deleted) > 0 {
		log.Debugf("removed %d unreachable instructions", len(deleted))
	}
	return len(deleted), nil
}

func branchTarget(p *bytecode.Program, idx int, in bytecode.Instruction) (int, error) {
	if len(in.Args) == 0 {
		return 0, fmt.Errorf("instruction %d: %s needs a label: %w", idx, in.Op, bytecode.ErrUnknownLabel)
	}
	target, err := p.Target(in.Args[0])
	if err != nil {
		return 0, fmt.Errorf("instruction %d: %w", idx, err)
	}
	return target, nil
}
