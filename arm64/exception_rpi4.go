// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build rpi4

package arm64

import (
	"github.com/ZackZahi/rpi4-bare-metal-os/internal/reg"
)

// VectorTableAddr is the exception vector table location, 2 KB aligned,
// below the translation tables.
const VectorTableAddr = 0x000c0000

// initVectorTable fills the 16 vector table slots with branch instructions
// to the handlers in vectors.s and installs the table. Only the IRQ vector
// for exceptions taken from the current EL with SP_ELx has a real handler;
// every other slot parks the core.
func (cpu *CPU) initVectorTable() {
	irqSlot := uint64(VectorTableAddr + 5*0x80)

	for i := 0; i < 16; i++ {
		slot := uint64(VectorTableAddr + i*0x80)
		target := FuncAddr(exc_hang)

		if slot == irqSlot {
			target = FuncAddr(irq_entry)
		}

		// B <target>
		reg.Write(slot, 0x14000000|uint32((target-slot)>>2)&0x03ffffff)
	}

	dsb_ish()
	isb()

	set_vbar(VectorTableAddr)
}
