package value

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hikkiyomi/ewlang/internal/bigint"
)

// Ref is a generational handle into a Heap. It does not own the value: once
// every owning frame has been released the slot is recycled and the Ref
// resolves to ErrDanglingReference. The zero Ref is never valid.
type Ref struct {
	slot uint32
	gen  uint32
}

func (r Ref) String() string {
	return fmt.Sprintf("#%d.%d", r.slot, r.gen)
}

type cell struct {
	val    *Value
	gen    uint32
	owners []*Frame
}

// Heap is the arena shared by all frames of one execution.
type Heap struct {
	cells []cell
	free  []uint32
	live  int
}

func NewHeap() *Heap {
	// slot 0 is reserved so the zero Ref never resolves
	return &Heap{cells: make([]cell, 1, 64)}
}

// Live returns the number of values currently owned by at least one frame.
func (h *Heap) Live() int {
	return h.live
}

func (h *Heap) alloc(v *Value, owner *Frame) Ref {
	var idx uint32
	if n := len(h.free); n > 0 {
		idx = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		idx = uint32(len(h.cells))
		h.cells = append(h.cells, cell{})
	}
	c := &h.cells[idx]
	c.gen++
	c.val = v
	c.owners = append(c.owners[:0], owner)
	h.live++
	return Ref{slot: idx, gen: c.gen}
}

func (h *Heap) cell(r Ref) (*cell, error) {
	if r.slot == 0 || int(r.slot) >= len(h.cells) {
		return nil, fmt.Errorf("%w: %s", ErrDanglingReference, r)
	}
	c := &h.cells[r.slot]
	if c.gen != r.gen || c.val == nil {
		return nil, fmt.Errorf("%w: %s", ErrDanglingReference, r)
	}
	return c, nil
}

// Get dereferences r.
func (h *Heap) Get(r Ref) (*Value, error) {
	c, err := h.cell(r)
	if err != nil {
		return nil, err
	}
	return c.val, nil
}

// adopt makes f an owner of r and of everything reachable from it through
// array cells. Already visited arrays are skipped, so cycles terminate.
func (h *Heap) adopt(r Ref, f *Frame, visited map[Ref]bool) error {
	if visited[r] {
		return nil
	}
	visited[r] = true
	c, err := h.cell(r)
	if err != nil {
		return err
	}
	if !slices.Contains(c.owners, f) {
		c.owners = append(c.owners, f)
		f.objects = append(f.objects, r)
	}
	for _, e := range c.val.elems {
		if err := h.adopt(e, f, visited); err != nil {
			return err
		}
	}
	return nil
}

// disown drops f from the owners of r and recycles the slot when nobody
// owns it any more.
func (h *Heap) disown(r Ref, f *Frame) {
	c, err := h.cell(r)
	if err != nil {
		return
	}
	c.owners = slices.DeleteFunc(c.owners, func(o *Frame) bool { return o == f })
	if len(c.owners) > 0 {
		return
	}
	c.val = nil
	c.owners = c.owners[:0]
	h.free = append(h.free, r.slot)
	h.live--
}

// Elem returns the reference stored at index n of the array r.
func (h *Heap) Elem(r Ref, n bigint.Int) (Ref, error) {
	v, err := h.Get(r)
	if err != nil {
		return Ref{}, err
	}
	if v.kind != KindArray {
		return Ref{}, fmt.Errorf("%w: indexing %s", ErrTypeMismatch, v.kind)
	}
	i, err := Index(n, len(v.elems))
	if err != nil {
		return Ref{}, err
	}
	return v.elems[i], nil
}

// SetElem stores x at index n of the array r. Every frame owning the array
// becomes an owner of x as well, so the cell stays valid as long as the
// array does.
func (h *Heap) SetElem(r Ref, n bigint.Int, x Ref) error {
	c, err := h.cell(r)
	if err != nil {
		return err
	}
	if c.val.kind != KindArray {
		return fmt.Errorf("%w: indexing %s", ErrTypeMismatch, c.val.kind)
	}
	i, err := Index(n, len(c.val.elems))
	if err != nil {
		return err
	}
	if _, err := h.Get(x); err != nil {
		return err
	}
	c.val.elems[i] = x
	for _, owner := range slices.Clone(c.owners) {
		if err := h.adopt(x, owner, map[Ref]bool{}); err != nil {
			return err
		}
	}
	return nil
}

// Render stringifies r: integers as signed decimals, arrays as
// "[ e0, e1, ... ]". An array met again while rendering itself prints as
// "[...]".
func (h *Heap) Render(r Ref) (string, error) {
	var sb strings.Builder
	if err := h.render(&sb, r, map[Ref]bool{}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (h *Heap) render(sb *strings.Builder, r Ref, open map[Ref]bool) error {
	v, err := h.Get(r)
	if err != nil {
		return err
	}
	if v.kind == KindInteger {
		sb.WriteString(v.num.String())
		return nil
	}
	if open[r] {
		sb.WriteString("[...]")
		return nil
	}
	open[r] = true
	defer delete(open, r)
	sb.WriteString("[ ")
	for i, e := range v.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := h.render(sb, e, open); err != nil {
			return err
		}
	}
	sb.WriteString(" ]")
	return nil
}
