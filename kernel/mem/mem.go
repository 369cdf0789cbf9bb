// Kernel memory allocator
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem provides the kernel memory allocators: a bitmap allocator
// handing out physical pages from a contiguous managed region, and a
// header-tagged object allocator backed by a reserved heap window within
// that region, falling back to whole pages for large requests.
//
// Callers must serialize entry, by masking IRQs on the local core or by
// calling from a single-threaded context.
package mem

import (
	"unsafe"

	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/console"
)

const (
	PageSize = 4096

	// ManagedPages is the default number of managed physical pages
	// (64 MB).
	ManagedPages = 64 * 1024 * 1024 / PageSize

	// BitmapAddr is the default bitmap location, above the kernel image
	// and below the managed pages.
	BitmapAddr = 0x100000

	// HeapPages is the size of the object allocator heap window reserved
	// at the start of the managed region.
	HeapPages = 64
)

const blockMagic = 0xdeadbeef

// blockHeader precedes every object allocation.
type blockHeader struct {
	// size is the usable span, rounded up to 16 bytes.
	size uint64
	// magic distinguishes live allocations from stray pointers.
	magic uint64
	// next links returned blocks on the free list.
	next *blockHeader
	// pages is the page count for page-backed allocations, 0 for heap
	// blocks.
	pages uint64
}

const headerSize = uint(unsafe.Sizeof(blockHeader{}))

// Allocator manages a contiguous region of physical pages tracked by a
// bitmap placed at Base, with the pages themselves starting at the next
// page boundary after the bitmap.
type Allocator struct {
	// Base is the bitmap location.
	Base uint
	// Pages is the managed page count.
	Pages uint

	bitmap        []byte
	firstFreePage uint
	used          uint

	heapStart uint
	heapEnd   uint
	heapBrk   uint
	freeList  *blockHeader
}

func (a *Allocator) bitmapSet(page uint) {
	if page < a.Pages {
		a.bitmap[page/8] |= 1 << (page % 8)
	}
}

func (a *Allocator) bitmapClear(page uint) {
	if page < a.Pages {
		a.bitmap[page/8] &^= 1 << (page % 8)
	}
}

func (a *Allocator) bitmapTest(page uint) bool {
	if page >= a.Pages {
		return true
	}

	return a.bitmap[page/8]>>(page%8)&1 != 0
}

// Init prepares the bitmap and reserves the heap window. RAM backing the
// bitmap and heap is verified by a read-back probe; on failure a diagnostic
// is emitted and the allocator stays disabled.
func (a *Allocator) Init() {
	bitmapSize := a.Pages / 8
	pagesStart := (a.Base + bitmapSize + PageSize - 1) &^ (PageSize - 1)
	a.firstFreePage = pagesStart / PageSize

	if !probe(a.Base, 0xaa) {
		console.Puts("  ERROR: cannot write to bitmap at ")
		console.PutHex(uint64(a.Base))
		console.Puts("\n")
		return
	}

	if !probe(pagesStart, 0xbb) {
		console.Puts("  ERROR: cannot write to heap at ")
		console.PutHex(uint64(pagesStart))
		console.Puts("\n")
		return
	}

	a.bitmap = unsafe.Slice((*byte)(unsafe.Pointer(uintptr(a.Base))), bitmapSize)

	for i := range a.bitmap {
		a.bitmap[i] = 0
	}

	a.used = 0

	// the heap window cannot be handed out as pages
	for i := uint(0); i < HeapPages; i++ {
		a.bitmapSet(i)
		a.used++
	}

	a.heapStart = pagesStart
	a.heapEnd = pagesStart + HeapPages*PageSize
	a.heapBrk = a.heapStart
	a.freeList = nil
}

// Disabled returns whether the allocator failed its init probe and is out
// of service.
func (a *Allocator) Disabled() bool {
	return a.bitmap == nil
}

func probe(addr uint, val byte) bool {
	p := (*byte)(unsafe.Pointer(uintptr(addr)))
	*p = val

	if *p != val {
		return false
	}

	*p = 0
	return true
}

// PageAllocN allocates count contiguous pages, returning their physical
// address or 0 when no run is long enough.
func (a *Allocator) PageAllocN(count uint) uint {
	if count == 0 || a.bitmap == nil {
		return 0
	}

	// First fit. When a gap is too short the scan resumes after the
	// conflicting bit, keeping the worst case linear in the bitmap size.
	i := uint(0)

	for i+count <= a.Pages {
		found := true

		for j := uint(0); j < count; j++ {
			if a.bitmapTest(i + j) {
				i = i + j + 1
				found = false
				break
			}
		}

		if found {
			for j := uint(0); j < count; j++ {
				a.bitmapSet(i + j)
				a.used++
			}

			return (a.firstFreePage + i) * PageSize
		}
	}

	return 0
}

// PageFreeN releases count pages starting at addr. Freeing an already free
// page is a silent no-op.
func (a *Allocator) PageFreeN(addr uint, count uint) {
	page := addr / PageSize

	if page < a.firstFreePage {
		return
	}

	local := page - a.firstFreePage

	for i := uint(0); i < count; i++ {
		if a.bitmapTest(local + i) {
			a.bitmapClear(local + i)
			a.used--
		}
	}
}

// Alloc returns a 16-byte aligned allocation of at least size bytes, or 0
// on exhaustion.
//
// Requests above half a page are page-backed; smaller ones are served from
// the free list of returned blocks, then by bumping the heap window, then
// by falling back to pages when the window is exhausted.
func (a *Allocator) Alloc(size uint) uint {
	if size == 0 {
		return 0
	}

	size = (size + 15) &^ 15
	total := size + headerSize

	if size > PageSize/2 {
		return a.pageBacked(size, total)
	}

	var prev *blockHeader

	for blk := a.freeList; blk != nil; blk = blk.next {
		if uint(blk.size) >= size {
			if prev != nil {
				prev.next = blk.next
			} else {
				a.freeList = blk.next
			}

			blk.next = nil
			blk.magic = blockMagic

			return uint(uintptr(unsafe.Pointer(blk))) + headerSize
		}

		prev = blk
	}

	if a.heapBrk+total > a.heapEnd {
		return a.pageBacked(size, total)
	}

	hdr := (*blockHeader)(unsafe.Pointer(uintptr(a.heapBrk)))
	a.heapBrk += total

	hdr.size = uint64(size)
	hdr.magic = blockMagic
	hdr.next = nil
	hdr.pages = 0

	return uint(uintptr(unsafe.Pointer(hdr))) + headerSize
}

func (a *Allocator) pageBacked(size, total uint) uint {
	pages := (total + PageSize - 1) / PageSize

	p := a.PageAllocN(pages)

	if p == 0 {
		return 0
	}

	hdr := (*blockHeader)(unsafe.Pointer(uintptr(p)))
	hdr.size = uint64(size)
	hdr.magic = blockMagic
	hdr.next = nil
	hdr.pages = uint64(pages)

	return p + headerSize
}

// Free returns an allocation to its backing store. A pointer without a
// valid header magic is reported and otherwise ignored.
func (a *Allocator) Free(ptr uint) {
	if ptr == 0 {
		return
	}

	hdr := (*blockHeader)(unsafe.Pointer(uintptr(ptr - headerSize)))

	if hdr.magic != blockMagic {
		console.Puts("[kfree] bad magic\n")
		return
	}

	hdr.magic = 0

	if hdr.pages > 0 {
		a.PageFreeN(uint(uintptr(unsafe.Pointer(hdr))), uint(hdr.pages))
		return
	}

	hdr.next = a.freeList
	a.freeList = hdr
}

// HeapStart returns the object allocator heap window start address.
func (a *Allocator) HeapStart() uint { return a.heapStart }

// HeapEnd returns the object allocator heap window end address.
func (a *Allocator) HeapEnd() uint { return a.heapEnd }

// TotalPages returns the managed page count.
func (a *Allocator) TotalPages() uint { return a.Pages }

// UsedPages returns the allocated page count.
func (a *Allocator) UsedPages() uint { return a.used }

// FreePages returns the available page count.
func (a *Allocator) FreePages() uint { return a.Pages - a.used }

// Default is the system allocator, managing the region at BitmapAddr.
var Default = &Allocator{
	Base:  BitmapAddr,
	Pages: ManagedPages,
}

// Init initializes the system allocator.
func Init() {
	Default.Init()
}

// PageAlloc allocates a single page from the system allocator.
func PageAlloc() uint {
	return Default.PageAllocN(1)
}

// PageAllocN allocates count contiguous pages from the system allocator.
func PageAllocN(count uint) uint {
	return Default.PageAllocN(count)
}

// PageFree releases a single page to the system allocator.
func PageFree(addr uint) {
	Default.PageFreeN(addr, 1)
}

// PageFreeN releases count pages to the system allocator.
func PageFreeN(addr uint, count uint) {
	Default.PageFreeN(addr, count)
}

// Alloc allocates size bytes from the system allocator.
func Alloc(size uint) uint {
	return Default.Alloc(size)
}

// Free returns an allocation to the system allocator.
func Free(ptr uint) {
	Default.Free(ptr)
}

// HeapStart returns the system heap window start address.
func HeapStart() uint { return Default.HeapStart() }

// HeapEnd returns the system heap window end address.
func HeapEnd() uint { return Default.HeapEnd() }

// TotalPages returns the system allocator managed page count.
func TotalPages() uint { return Default.TotalPages() }

// UsedPages returns the system allocator allocated page count.
func UsedPages() uint { return Default.UsedPages() }

// FreePages returns the system allocator available page count.
func FreePages() uint { return Default.FreePages() }
