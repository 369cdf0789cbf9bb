// ARM local peripherals driver
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package armlocal implements a driver for the per-core "ARM local
// peripherals" block of BCM2836 lineage SoCs, which gates the generic timer
// interrupt lines to each core.
//
// On the emulated board the generic timer interrupt is only delivered when
// this routing is armed, regardless of the GIC configuration; on real
// hardware arming it is harmless. Both are therefore programmed at boot.
package armlocal

import (
	"github.com/ZackZahi/rpi4-bare-metal-os/internal/reg"
)

// Per-core register windows, one word per core.
const (
	// CORE_TIMER_IRQ_CTRL enables timer interrupt sources for core n at
	// offset 0x40 + 4n.
	CORE_TIMER_IRQ_CTRL = 0x40
	// CORE_IRQ_SOURCE is the read-only pending source word for core n at
	// offset 0x60 + 4n.
	CORE_IRQ_SOURCE = 0x60

	// CNTPNS is the non-secure physical timer bit in both windows.
	CNTPNS = 1
)

// Peripherals represents the ARM local peripherals instance.
type Peripherals struct {
	// Base is the block base address.
	Base uint64
}

// EnableTimerIRQ routes the non-secure physical timer interrupt of the
// argument core to that core.
func (hw *Peripherals) EnableTimerIRQ(core uint32) {
	if hw.Base == 0 {
		panic("invalid local peripherals instance")
	}

	reg.Write(hw.Base+CORE_TIMER_IRQ_CTRL+4*uint64(core), 1<<CNTPNS)
}

// TimerIRQPending returns whether the non-secure physical timer of the
// argument core has a pending interrupt.
func (hw *Peripherals) TimerIRQPending(core uint32) bool {
	return reg.Get(hw.Base+CORE_IRQ_SOURCE+4*uint64(core), CNTPNS, 1) != 0
}
