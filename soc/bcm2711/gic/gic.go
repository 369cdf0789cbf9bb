// ARM Generic Interrupt Controller (GIC-400) driver
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// IP: ARM Generic Interrupt Controller GIC-400 (GICv2)
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gic implements a driver for the ARM Generic Interrupt Controller
// (GIC-400) as integrated on the BCM2711.
//
// The driver is based on the following reference specifications:
//   - ARM IHI 0048B - ARM GIC Architecture Specification (v1 and v2)
//   - ARM DDI 0471B - ARM GIC-400 Technical Reference Manual
//
// On real hardware the GIC alone routes the generic timer interrupt; on the
// emulated board the per-core local peripherals block must be armed as well
// (see the armlocal package).
package gic

import (
	"github.com/ZackZahi/rpi4-bare-metal-os/internal/reg"
)

// GIC Distributor register map
// (4.1.2, Table 4-1, ARM IHI 0048B).
const (
	GICD_CTLR       = 0x000
	GICD_ISENABLER  = 0x100
	GICD_IPRIORITYR = 0x400
	GICD_ITARGETSR  = 0x800
)

// GIC CPU interface register map
// (4.1.3, Table 4-2, ARM IHI 0048B).
const (
	GICC_CTLR = 0x000
	GICC_PMR  = 0x004
	GICC_IAR  = 0x00c
	GICC_EOIR = 0x010
)

// IRQPriority is the priority assigned to enabled interrupts.
const IRQPriority = 0xa0

// Spurious is the interrupt id returned by GetInterrupt when no interrupt
// is pending.
const Spurious = 0x3ff

// GIC represents a Generic Interrupt Controller instance.
type GIC struct {
	// GICD is the Distributor base address.
	GICD uint64
	// GICC is the CPU interface base address.
	GICC uint64
}

// Init initializes the Generic Interrupt Controller: both halves are
// disabled, the priority mask is opened to accept any priority, then both
// halves are enabled.
func (hw *GIC) Init() {
	if hw.GICD == 0 || hw.GICC == 0 {
		panic("invalid GIC instance")
	}

	reg.Write(hw.GICD+GICD_CTLR, 0)
	reg.Write(hw.GICC+GICC_CTLR, 0)

	reg.Write(hw.GICC+GICC_PMR, 0xff)

	reg.Write(hw.GICD+GICD_CTLR, 1)
	reg.Write(hw.GICC+GICC_CTLR, 1)
}

// InitCore enables the CPU interface on the calling core, for secondary
// core bring-up.
func (hw *GIC) InitCore() {
	reg.Write(hw.GICC+GICC_PMR, 0xff)
	reg.Write(hw.GICC+GICC_CTLR, 1)
}

// EnableInterrupt assigns the argument interrupt a priority, targets it at
// CPU 0 and enables its forwarding to the CPU interface.
func (hw *GIC) EnableInterrupt(id int) {
	if hw.GICD == 0 {
		return
	}

	n := uint64(id / 4)
	shift := (id % 4) * 8

	reg.SetN(hw.GICD+GICD_IPRIORITYR+4*n, shift, 0xff, IRQPriority)
	reg.SetN(hw.GICD+GICD_ITARGETSR+4*n, shift, 0xff, 0x01)

	reg.SetTo(hw.GICD+GICD_ISENABLER+4*uint64(id/32), id%32, true)
}

// GetInterrupt acknowledges a signaled interrupt and returns its id.
func (hw *GIC) GetInterrupt() (id int) {
	if hw.GICC == 0 {
		return Spurious
	}

	return int(reg.Read(hw.GICC+GICC_IAR) & 0x3ff)
}

// EndInterrupt signals completion of the argument interrupt.
func (hw *GIC) EndInterrupt(id int) {
	reg.Write(hw.GICC+GICC_EOIR, uint32(id))
}
