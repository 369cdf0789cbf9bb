// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	"unsafe"
)

// Trapframe is the register image saved on the interrupted stack by the IRQ
// exception entry and restored, possibly from a different stack, before
// exception return.
//
// The layout must match the store/load sequence in vectors.s exactly.
type Trapframe struct {
	// X holds the general purpose registers x0-x30.
	X [31]uint64
	// ELR is the exception link register, the address execution resumes
	// at on exception return.
	ELR uint64
	// SPSR is the saved program state: target exception level, stack
	// pointer selection and DAIF mask bits.
	SPSR uint64
	_    uint64
}

// TrapframeSize is the stack space an IRQ entry reserves, in bytes.
const TrapframeSize = int(unsafe.Sizeof(Trapframe{}))

// SPSR_EL1H is the saved program state given to newly created tasks:
// EL1 with SP_EL1 selected, IRQs unmasked, FIQ/SError/Debug masked.
const SPSR_EL1H = 0x345

// SystemIRQHandler is invoked, with IRQs masked, on every IRQ exception
// taken at EL1. It receives the stack pointer the trapframe was saved at
// and returns the stack pointer to restore a trapframe from. It must be
// set before interrupts are enabled.
var SystemIRQHandler func(sp uint64) uint64

// systemIRQ is called from the IRQ vector in vectors.s.
func systemIRQ(sp uint64) uint64 {
	if SystemIRQHandler != nil {
		return SystemIRQHandler(sp)
	}

	return sp
}

// FuncAddr returns the entry address of the argument function, for use as a
// trapframe exception link register value.
func FuncAddr(fn func()) uint64 {
	return **((**uint64)(unsafe.Pointer(&fn)))
}
