package libretro

/*
#include <stdlib.h>
*/
import "C"
import "unsafe"

// cAllocator hands out C memory so retro_get_memory_data can return
// pointers the frontend may keep between calls.
type cAllocator struct{}

func (cAllocator) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}
	p := C.calloc(C.size_t(size), 1)
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), size)
}

func (cAllocator) Free(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	C.free(unsafe.Pointer(unsafe.SliceData(buf)))
}

// arena owns C memory that must outlive the call that produced it, such as
// the strings in retro_get_system_info. Everything is freed at once.
type arena struct {
	ptrs []unsafe.Pointer
}

func (a *arena) string(s string) *C.char {
	p := C.CString(s)
	a.ptrs = append(a.ptrs, unsafe.Pointer(p))
	return p
}

// alloc returns size zeroed bytes.
func (a *arena) alloc(size int) unsafe.Pointer {
	p := C.calloc(C.size_t(size), 1)
	a.ptrs = append(a.ptrs, p)
	return p
}

func (a *arena) free() {
	for _, p := range a.ptrs {
		C.free(p)
	}
	a.ptrs = nil
}
