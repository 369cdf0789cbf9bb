// Kernel command shell
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"unsafe"

	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/console"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/mem"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/sched"
)

// Demo task bodies launched by spawn and memtest. The scheduler's only
// dependency on them is the nullary calling convention.

func taskCounter() {
	for i := uint64(1); i <= 5; i++ {
		console.Puts("[counter] ")
		console.PutDec(i)
		console.Puts("/5\n")
		sched.Sleep(1000)
	}

	console.Puts("[counter] finished\n")
}

func taskSpinner() {
	glyphs := [4]byte{'|', '/', '-', '\\'}

	for i := 0; i < 20; i++ {
		console.Puts("[spinner] ")
		console.Putc(glyphs[i%4])
		console.Puts("\n")
		sched.Sleep(500)
	}

	console.Puts("[spinner] finished\n")
}

func fill(addr uint, size uint, c byte) {
	buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), size)

	for i := range buf {
		buf[i] = c
	}
}

func peek(addr uint) byte {
	return *(*byte)(unsafe.Pointer(uintptr(addr)))
}

func taskMemtest() {
	console.Puts("[memtest] Allocating buffers...\n")

	buf1 := mem.Alloc(64)
	buf2 := mem.Alloc(256)
	buf3 := mem.Alloc(1024)

	if buf1 == 0 || buf2 == 0 || buf3 == 0 {
		console.Puts("[memtest] Allocation failed!\n")
		return
	}

	fill(buf1, 64, 'A')
	fill(buf2, 256, 'B')
	fill(buf3, 1024, 'C')

	console.Puts("[memtest] buf1(64B)=")
	console.PutHex(uint64(buf1))
	console.Puts(" buf2(256B)=")
	console.PutHex(uint64(buf2))
	console.Puts(" buf3(1KB)=")
	console.PutHex(uint64(buf3))
	console.Puts("\n")

	console.Puts("[memtest] Verifying: ")
	console.Putc(peek(buf1))
	console.Putc(peek(buf2))
	console.Putc(peek(buf3))
	console.Puts(" (expect ABC)\n")

	sched.Sleep(2000)

	console.Puts("[memtest] Freeing buffers...\n")
	mem.Free(buf1)
	mem.Free(buf2)
	mem.Free(buf3)

	console.Puts("[memtest] Allocating 4KB page...\n")

	if page := mem.PageAlloc(); page != 0 {
		console.Puts("[memtest] Got page at ")
		console.PutHex(uint64(page))
		console.Puts("\n")

		fill(page, mem.PageSize, 'X')
		console.Puts("[memtest] Page write OK, freeing...\n")
		mem.PageFree(page)
	}

	console.Puts("[memtest] Done. Free pages: ")
	console.PutDec(uint64(mem.FreePages()))
	console.Puts("\n")
}
