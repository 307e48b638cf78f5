// Package value holds the runtime values of the ewlang VM and the
// frame-scoped ownership arena they live in.
//
// A Value is either an Integer (one bigint.Int) or an Array (a fixed-length
// sequence of non-owning Refs to other values). Every value is owned by one
// or more Frames; a Ref never keeps a value alive by itself.
package value

import (
	"errors"
	"fmt"

	"github.com/hikkiyomi/ewlang/internal/bigint"
)

var (
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUnsupported       = errors.New("unsupported operation")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrDanglingReference = errors.New("dangling reference")
)

// Kind tags the variant stored in a Value.
type Kind uint8

const (
	KindInteger Kind = iota
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged union over the two runtime variants.
type Value struct {
	kind  Kind
	num   bigint.Int
	elems []Ref
}

func NewInteger(n bigint.Int) *Value {
	return &Value{kind: KindInteger, num: n}
}

func FromInt64(n int64) *Value {
	return NewInteger(bigint.New(n))
}

// FromString parses a numeral; the sign comes from a leading '-'.
func FromString(s string) (*Value, error) {
	n, err := bigint.Parse(s)
	if err != nil {
		return nil, err
	}
	return NewInteger(n), nil
}

func fromBool(b bool) *Value {
	if b {
		return FromInt64(1)
	}
	return FromInt64(0)
}

func (v *Value) Kind() Kind { return v.kind }

// Int returns the integer payload. It is the zero Int for arrays.
func (v *Value) Int() bigint.Int { return v.num }

// Len returns the element count of an array, 0 for integers.
func (v *Value) Len() int { return len(v.elems) }

// IsZero reports whether v is the Integer zero.
func (v *Value) IsZero() bool {
	return v.kind == KindInteger && v.num.IsZero()
}

// Truthy is the logical reading used by binAND/binOR: non-zero integers and
// every array are true.
func (v *Value) Truthy() bool {
	if v.kind == KindArray {
		return true
	}
	return !v.num.IsZero()
}

// Negate flips the sign of an Integer in place, so every reference sees it.
func (v *Value) Negate() error {
	if v.kind != KindInteger {
		return fmt.Errorf("%w: negating %s", ErrUnsupported, v.kind)
	}
	v.num.Negate()
	return nil
}

// String renders integers only; arrays need the heap, see Heap.Render.
func (v *Value) String() string {
	if v.kind == KindArray {
		return fmt.Sprintf("array(%d)", len(v.elems))
	}
	return v.num.String()
}

// =============================================================================
// Arithmetic
// =============================================================================

func (v *Value) Add(o *Value) (*Value, error) {
	if err := v.arith(o, "summing"); err != nil {
		return nil, err
	}
	return NewInteger(v.num.Add(o.num)), nil
}

func (v *Value) Sub(o *Value) (*Value, error) {
	if err := v.arith(o, "subtracting"); err != nil {
		return nil, err
	}
	return NewInteger(v.num.Sub(o.num)), nil
}

func (v *Value) Mul(o *Value) (*Value, error) {
	if err := v.arith(o, "multiplying"); err != nil {
		return nil, err
	}
	return NewInteger(v.num.Mul(o.num)), nil
}

func (v *Value) Div(o *Value) (*Value, error) {
	if err := v.arith(o, "dividing"); err != nil {
		return nil, err
	}
	n, err := v.num.Div(o.num)
	if err != nil {
		return nil, err
	}
	return NewInteger(n), nil
}

func (v *Value) Mod(o *Value) (*Value, error) {
	if err := v.arith(o, "taking remainder of"); err != nil {
		return nil, err
	}
	n, err := v.num.Mod(o.num)
	if err != nil {
		return nil, err
	}
	return NewInteger(n), nil
}

func (v *Value) arith(o *Value, verb string) error {
	if v.kind != o.kind {
		return fmt.Errorf("%w: %s integer and non-integer", ErrTypeMismatch, verb)
	}
	if v.kind != KindInteger {
		return fmt.Errorf("%w: %s arrays", ErrUnsupported, verb)
	}
	return nil
}

// =============================================================================
// Comparison
// =============================================================================

func (v *Value) Less(o *Value) (bool, error) {
	c, err := v.cmp(o, "<")
	return c < 0, err
}

func (v *Value) Greater(o *Value) (bool, error) {
	c, err := v.cmp(o, ">")
	return c > 0, err
}

func (v *Value) LessEqual(o *Value) (bool, error) {
	c, err := v.cmp(o, "<=")
	return c <= 0 && err == nil, err
}

func (v *Value) GreaterEqual(o *Value) (bool, error) {
	c, err := v.cmp(o, ">=")
	return c >= 0 && err == nil, err
}

// Equal compares integers by value. An array is never equal to the Integer
// zero, which is how programs test an array reference for "null".
func (v *Value) Equal(o *Value) (bool, error) {
	if v.kind == KindArray || o.kind == KindArray {
		if v.IsZero() || o.IsZero() {
			return false, nil
		}
		return false, fmt.Errorf("%w: == on %s and %s", ErrUnsupported, v.kind, o.kind)
	}
	return v.num.Equal(o.num), nil
}

func (v *Value) NotEqual(o *Value) (bool, error) {
	eq, err := v.Equal(o)
	if err != nil {
		return false, fmt.Errorf("%w: != on %s and %s", ErrUnsupported, v.kind, o.kind)
	}
	return !eq, nil
}

func (v *Value) cmp(o *Value, op string) (int, error) {
	if v.kind != o.kind {
		return 0, fmt.Errorf("%w: %s integer and non-integer", ErrTypeMismatch, op)
	}
	if v.kind != KindInteger {
		return 0, fmt.Errorf("%w: %s on arrays", ErrUnsupported, op)
	}
	return v.num.Cmp(o.num), nil
}

// Compare dispatches a comparison by operator name ("<", ">", "<=", ">=",
// "!=", "==") and returns the Integer 0/1 result.
func (v *Value) Compare(op string, o *Value) (*Value, error) {
	var (
		b   bool
		err error
	)
	switch op {
	case "<":
		b, err = v.Less(o)
	case ">":
		b, err = v.Greater(o)
	case "<=":
		b, err = v.LessEqual(o)
	case ">=":
		b, err = v.GreaterEqual(o)
	case "!=":
		b, err = v.NotEqual(o)
	case "==":
		b, err = v.Equal(o)
	default:
		return nil, fmt.Errorf("%w: comparison %q", ErrUnsupported, op)
	}
	if err != nil {
		return nil, err
	}
	return fromBool(b), nil
}

// And and Or are the non-short-circuit logical operators.
func (v *Value) And(o *Value) *Value { return fromBool(v.Truthy() && o.Truthy()) }
func (v *Value) Or(o *Value) *Value  { return fromBool(v.Truthy() || o.Truthy()) }

// Index converts n to a position in a sequence of the given size.
func Index(n bigint.Int, size int) (int, error) {
	i, ok := n.Int64()
	if !ok || i < 0 || i >= int64(size) {
		return 0, fmt.Errorf("%w: index %s, size %d", ErrIndexOutOfRange, n, size)
	}
	return int(i), nil
}
