// Multi-core support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package smp wakes the secondary cores through the firmware spin-table and
// tracks per-core state.
//
// Secondary cores install the translation configuration sampled by the boot
// core, bring up their private timer and tick independently; they do not
// pull from the shared run queue (the queue and the scheduler lock already
// permit it as an extension).
package smp

import (
	"unsafe"

	"github.com/ZackZahi/rpi4-bare-metal-os/arm64"
	"github.com/ZackZahi/rpi4-bare-metal-os/internal/reg"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/console"
	"github.com/ZackZahi/rpi4-bare-metal-os/soc/bcm2711/armlocal"
	"github.com/ZackZahi/rpi4-bare-metal-os/soc/bcm2711/gic"
)

// NumCores is the Cortex-A72 cluster size.
const NumCores = 4

const coreStackSize = 16384

// Core is the per-core descriptor.
type Core struct {
	// Online is set by the core itself from its secondary entry.
	Online bool
	// Ticks counts local timer expirations.
	Ticks uint64
	// TasksRun counts task switches made by the scheduler on this core.
	TasksRun uint64
}

// Config carries the peripherals a secondary core must bring up.
type Config struct {
	// GIC is the interrupt controller whose CPU interface each core
	// enables for itself.
	GIC *gic.GIC
	// Local is the per-core timer IRQ routing block.
	Local *armlocal.Peripherals
	// SpinTable lists the firmware spin-table slots for cores 1-3.
	SpinTable [NumCores - 1]uint64
	// TimerIntervalMS is the tick period programmed on each core.
	TimerIntervalMS uint32
}

var cores [NumCores]Core

var cfg Config

// Secondary core stacks; the boot core keeps its boot stack.
var coreStacks [NumCores - 1][coreStackSize / 8]uint64

// Published for the secondary entry in smp.s: per-core stack tops and the
// boot core translation configuration.
var (
	smpStacks [NumCores]uint64
	smpTTBR0  uint64
	smpTCR    uint64
	smpMAIR   uint64
)

func stackTop(i int) uint64 {
	top := uintptr(unsafe.Pointer(&coreStacks[i][0])) + coreStackSize
	return uint64(top) &^ 15
}

// CoreInfo returns the descriptor of the argument core.
func CoreInfo(id uint32) *Core {
	if id >= NumCores {
		return &cores[0]
	}

	return &cores[id]
}

// OnlineCount returns the number of cores that reached their entry.
func OnlineCount() (n uint32) {
	for i := range cores {
		if cores[i].Online {
			n++
		}
	}

	return
}

// Init wakes cores 1-3 through the spin-table and waits up to 200 ms for
// them to come online, continuing regardless.
func Init(cpu *arm64.CPU, c Config) {
	cfg = c

	cores[0] = Core{Online: true}

	for i := 1; i < NumCores; i++ {
		cores[i] = Core{}
	}

	for i := 0; i < NumCores-1; i++ {
		smpStacks[i+1] = stackTop(i)
	}

	smpTTBR0, smpTCR, smpMAIR = cpu.MMUConfig()

	entry := arm64.FuncAddr(secondary_entry)

	for i, slot := range c.SpinTable {
		console.Puts("  Waking core ")
		console.PutDec(uint64(i + 1))
		console.Puts("...\n")

		// the entry must be visible before the released core loads it
		dsb()
		reg.Write64(slot, entry)
		dsb()
		cpu.SendEvent()
	}

	deadline := cpu.Counter() + cpu.Frequency()/5

	for cpu.Counter() < deadline {
		if cores[1].Online && cores[2].Online && cores[3].Online {
			break
		}
	}

	console.Puts("  ")
	console.PutDec(uint64(OnlineCount()))
	console.Puts("/")
	console.PutDec(NumCores)
	console.Puts(" cores online\n")
}

// secondaryMain is the Go entry of cores 1-3, called from smp.s with the
// MMU still off and a private stack installed.
func secondaryMain(core uint64) {
	cpu := &arm64.CPU{}

	cpu.InstallMMU(smpTTBR0, smpTCR, smpMAIR)
	cpu.Init()

	if cfg.GIC != nil {
		cfg.GIC.InitCore()
	}

	if cfg.Local != nil {
		cfg.Local.EnableTimerIRQ(uint32(core))
	}

	interval := cfg.TimerIntervalMS

	if interval == 0 {
		interval = 100
	}

	cpu.InitPeriodicTimer(interval)

	c := CoreInfo(uint32(core))
	c.Ticks = 0
	c.TasksRun = 0
	c.Online = true

	// The local peripherals block only wakes core 0 by interrupt on the
	// emulated board, so secondary cores poll ISTATUS instead: check,
	// re-arm and account each expiration.
	for {
		if cpu.TimerExpired() {
			cpu.ReArmTimer()
			c.Ticks++
		}

		arm64.Busyloop(100)
	}
}
