package optimizer

import (
	"github.com/hikkiyomi/ewlang/internal/bytecode"
	"github.com/hikkiyomi/ewlang/internal/value"
)

// shadowEntry mirrors one runtime stack slot during folding.
type shadowEntry struct {
	val      *value.Value
	constant bool
	// out is the position in the rewritten list of the literal push that
	// produced the slot, -1 when it was not a literal push.
	out int
}

var unknown = shadowEntry{out: -1}

type shadowStack []shadowEntry

func (s *shadowStack) push(e shadowEntry) {
	*s = append(*s, e)
}

// pop treats underflow as an unknown value: a function body consumes the
// arguments its caller pushed.
func (s *shadowStack) pop() shadowEntry {
	n := len(*s)
	if n == 0 {
		return unknown
	}
	e := (*s)[n-1]
	*s = (*s)[:n-1]
	return e
}

func (s *shadowStack) drop(n int) {
	for ; n > 0; n-- {
		s.pop()
	}
}

// forget keeps the depth but marks every slot non-constant.
func (s shadowStack) forget() {
	for i := range s {
		s[i] = unknown
	}
}

type emitted struct {
	in     bytecode.Instruction
	origin int
}

// FoldConstants evaluates arithmetic, comparison, logical and negation
// instructions whose operands are literal pushes, replacing the operation
// and its operands by a single push of the result. It rewrites p in place
// and returns the number of folded operations.
//
// A labelled instruction is a merge point, so the shadow stack forgets what
// it knows there. call, jmp and return forget the whole stack. Operations
// that fail (division by zero, type errors) are kept for the runtime to
// report.
func FoldConstants(p *bytecode.Program) (int, error) {
	labelled := p.Labelled()

	var (
		out     []emitted
		deleted []int
		stack   shadowStack
		folded  int
	)

	for i, in := range p.Instructions {
		if labelled[i] {
			stack.forget()
		}

		replaced := false
		switch {
		case in.Op == bytecode.OP_PUSH:
			if in.IsLiteralPush() {
				v, err := value.FromString(in.Args[0])
				if err != nil {
					return folded, err
				}
				stack.push(shadowEntry{val: v, constant: true, out: len(out)})
			} else {
				stack.push(unknown)
			}

		case in.Op.IsBinary():
			rhs := stack.pop()
			lhs := stack.pop()
			n := len(out)
			if lhs.constant && rhs.constant && lhs.out == n-2 && rhs.out == n-1 {
				if res, ok := evaluate(in.Op, lhs.val, rhs.val); ok {
					deleted = append(deleted, out[n-2].origin, out[n-1].origin)
					out = out[:n-2]
					stack.push(shadowEntry{val: res, constant: true, out: len(out)})
					out = append(out, emitted{in: bytecode.NewPush(res.String()), origin: i})
					folded++
					replaced = true
					break
				}
			}
			stack.push(unknown)

		case in.Op == bytecode.OP_NEG:
			top := stack.pop()
			n := len(out)
			if top.constant && top.out == n-1 {
				res := value.NewInteger(top.val.Int().Neg())
				deleted = append(deleted, out[n-1].origin)
				out = out[:n-1]
				stack.push(shadowEntry{val: res, constant: true, out: len(out)})
				out = append(out, emitted{in: bytecode.NewPush(res.String()), origin: i})
				folded++
				replaced = true
				break
			}
			stack.push(unknown)

		case in.Op == bytecode.OP_POP:
			if len(in.Args) >= 2 {
				stack.drop(2)
			} else {
				stack.drop(1)
			}

		case in.Op == bytecode.OP_PRINT, in.Op == bytecode.OP_JZ, in.Op == bytecode.OP_ARRAY:
			stack.drop(1)

		case in.Op == bytecode.OP_ACCESS:
			stack.drop(1)
			stack.push(unknown)

		case in.Op == bytecode.OP_LENGTH:
			stack.push(unknown)

		case in.Op == bytecode.OP_CALL, in.Op == bytecode.OP_JMP, in.Op == bytecode.OP_RETURN:
			stack = stack[:0]
		}

		if !replaced {
			out = append(out, emitted{in: in, origin: i})
		}
	}

	instructions := make([]bytecode.Instruction, len(out))
	for j, e := range out {
		instructions[j] = e.in
	}
	p.Instructions = instructions
	shiftLabels(p.Labels, deleted)

	if folded > 0 {
		log.Debugf("folded %d operations, %d instructions removed", folded, len(deleted))
	}
	return folded, nil
}

// evaluate runs op through the same value operators the VM uses.
func evaluate(op bytecode.Opcode, lhs, rhs *value.Value) (*value.Value, bool) {
	var (
		res *value.Value
		err error
	)
	switch op {
	case bytecode.OP_ADD:
		res, err = lhs.Add(rhs)
	case bytecode.OP_SUB:
		res, err = lhs.Sub(rhs)
	case bytecode.OP_MUL:
		res, err = lhs.Mul(rhs)
	case bytecode.OP_DIV:
		res, err = lhs.Div(rhs)
	case bytecode.OP_MOD:
		res, err = lhs.Mod(rhs)
	case bytecode.OP_BIN_AND:
		res = lhs.And(rhs)
	case bytecode.OP_BIN_OR:
		res = lhs.Or(rhs)
	default:
		sym, ok := op.ComparisonSymbol()
		if !ok {
			return nil, false
		}
		res, err = lhs.Compare(sym, rhs)
	}
	if err != nil {
		log.Debugf("not folding %s: %s", op, err)
		return nil, false
	}
	return res, true
}
