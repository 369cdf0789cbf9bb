// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package arm64 provides support for ARM64 (ARMv8-A) architecture specific
// operations.
//
// The following architectures/cores are supported/tested:
//   - ARMv8-A / Cortex-A72 (quad-core)
//
// This package is only meant to be used in freestanding kernel builds
// (`GOARCH=arm64` with the `rpi4` build tag); everything runs at EL1.
package arm64

// CPU instance, one per core.
type CPU struct {
	// TimerInterval is the periodic tick reload value in counter cycles,
	// set by InitPeriodicTimer.
	TimerInterval uint64
}

// CoreID returns the core identifier (0-3) from MPIDR_EL1.
func (cpu *CPU) CoreID() uint32 {
	return uint32(read_mpidr() & 0x3)
}

// EL returns the current exception level.
func (cpu *CPU) EL() uint32 {
	return uint32(read_el()>>2) & 0x3
}

// Init performs initialization of an ARM64 core instance, installing the
// exception vector table.
func (cpu *CPU) Init() {
	cpu.initVectorTable()
}
