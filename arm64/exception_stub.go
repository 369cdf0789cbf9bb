// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !rpi4

package arm64

// VectorTableAddr is the exception vector table location on the target.
const VectorTableAddr = 0x000c0000

func (cpu *CPU) initVectorTable() {
	set_vbar(VectorTableAddr)
}
