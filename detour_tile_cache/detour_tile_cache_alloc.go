package detour_tile_cache

import "unsafe"

type DtTileCacheAlloc interface {
	Reset()
	Alloc(size int) []byte
	Free(buf []byte)
}

// LinearAllocator hands out scratch memory for one tile rebuild at a time.
// Free is a no-op; memory is reclaimed by Reset.
type LinearAllocator struct {
	buffer []byte
	top    int
	high   int
}

func NewLinearAllocator(capacity int) *LinearAllocator {
	a := &LinearAllocator{}
	a.Resize(capacity)
	return a
}

func (a *LinearAllocator) Resize(capacity int) {
	if capacity <= 0 {
		a.buffer = nil
	} else {
		a.buffer = make([]byte, capacity)
	}
	a.top = 0
	a.high = 0
}

func (a *LinearAllocator) Reset() {
	a.high = max(a.high, a.top)
	a.top = 0
}

func (a *LinearAllocator) Alloc(size int) []byte {
	if size < 0 || a.top+size > len(a.buffer) {
		return nil
	}
	buf := a.buffer[a.top : a.top+size : a.top+size]
	a.top += size
	clear(buf)
	return buf
}

func (a *LinearAllocator) Free(buf []byte) {}

func (a *LinearAllocator) Capacity() int { return len(a.buffer) }

// HighWater is the largest amount of memory used by a single rebuild.
func (a *LinearAllocator) HighWater() int { return max(a.high, a.top) }

// Address identifies the backing buffer; zero when nothing is allocated.
func (a *LinearAllocator) Address() uintptr {
	if a == nil || len(a.buffer) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(a.buffer)))
}
