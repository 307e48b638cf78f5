package value

import (
	"github.com/hikkiyomi/ewlang/internal/bigint"
)

// TopLevel is the return address of the outermost frame.
const TopLevel = -1

// Frame is one activation record. Its objects list is the only strong
// ownership root; variable bindings are plain Refs.
type Frame struct {
	ReturnAddress int

	heap    *Heap
	objects []Ref
	vars    map[string]Ref
}

func NewFrame(h *Heap, returnAddress int) *Frame {
	return &Frame{
		ReturnAddress: returnAddress,
		heap:          h,
		vars:          make(map[string]Ref),
	}
}

// Alloc places v on the heap owned by f.
func (f *Frame) Alloc(v *Value) Ref {
	r := f.heap.alloc(v, f)
	f.objects = append(f.objects, r)
	return r
}

func (f *Frame) AllocInteger(n bigint.Int) Ref {
	return f.Alloc(NewInteger(n))
}

// AllocArray allocates n Integer zeros and the array referring to them.
func (f *Frame) AllocArray(n int) Ref {
	elems := make([]Ref, n)
	for i := range elems {
		elems[i] = f.AllocInteger(bigint.Int{})
	}
	return f.Alloc(&Value{kind: KindArray, elems: elems})
}

// Bind points name at r, replacing any earlier binding.
func (f *Frame) Bind(name string, r Ref) {
	f.vars[name] = r
}

func (f *Frame) Lookup(name string) (Ref, bool) {
	r, ok := f.vars[name]
	return r, ok
}

// Rescue makes f an owner of r and of every value transitively reachable
// from it through arrays.
func (f *Frame) Rescue(r Ref) error {
	return f.heap.adopt(r, f, map[Ref]bool{})
}

// Release drops everything f owns. Values without other owners are freed.
func (f *Frame) Release() {
	for _, r := range f.objects {
		f.heap.disown(r, f)
	}
	f.objects = nil
	clear(f.vars)
}

// Objects returns the number of values f owns.
func (f *Frame) Objects() int {
	return len(f.objects)
}
