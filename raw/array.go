package raw

import (
	"unsafe"

	"github.com/gorustyt/navcache/common"
)

type Element interface {
	int32 | uint32 | uint8 | uint16 | float32
}

func kindOf[T Element]() ArrayKind {
	var zero T
	switch any(zero).(type) {
	case int32:
		return KindInt
	case uint32:
		return KindUnsignedInt
	case uint8:
		return KindUnsignedChar
	case uint16:
		return KindUnsignedShort
	default:
		return KindFloat
	}
}

// Array is a typed numeric buffer. An owning array can be resized and
// freed; a view wraps memory owned elsewhere and is only valid while that
// memory is.
type Array[T Element] struct {
	data []T
	view bool
}

// NewArray allocates n elements of the named array kind. It panics when T
// does not match the kind the name resolves to.
func NewArray[T Element](r *Registry, name string, n int) *Array[T] {
	kind := r.ArrayKindOf(name)
	common.AssertTrue(kind == kindOf[T](), "raw: array %q holds %v, not %v", name, kind, kindOf[T]())
	return &Array[T]{data: make([]T, n)}
}

// ViewOf wraps data without copying it.
func ViewOf[T Element](data []T) *Array[T] {
	return &Array[T]{data: data, view: true}
}

func (a *Array[T]) IsView() bool { return a.view }

func (a *Array[T]) Len() int { return len(a.data) }

func (a *Array[T]) Get(i int) T { return a.data[i] }

func (a *Array[T]) Set(i int, v T) { a.data[i] = v }

// Data exposes the backing slice.
func (a *Array[T]) Data() []T { return a.data }

func (a *Array[T]) Resize(n int) {
	common.AssertTrue(!a.view, "raw: resize of an array view")
	if n <= cap(a.data) {
		a.data = a.data[:n]
		return
	}
	grown := make([]T, n)
	copy(grown, a.data)
	a.data = grown
}

// Copy replaces the contents with src, resizing an owning array to fit.
func (a *Array[T]) Copy(src []T) {
	if !a.view {
		a.Resize(len(src))
	}
	copy(a.data, src)
}

// View returns a non-owning array over the same memory.
func (a *Array[T]) View() *Array[T] {
	return ViewOf(a.data)
}

// Free drops the memory reference. Freeing twice is harmless.
func (a *Array[T]) Free() {
	a.data = nil
}

func (a *Array[T]) Address() uintptr {
	if a == nil || len(a.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(a.data)))
}
