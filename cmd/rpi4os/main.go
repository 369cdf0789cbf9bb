// Raspberry Pi 4 bare metal OS
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build rpi4

package main

import (
	"github.com/ZackZahi/rpi4-bare-metal-os/arm64"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/console"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/fs"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/mem"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/sched"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/shell"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/smp"
	"github.com/ZackZahi/rpi4-bare-metal-os/soc/bcm2711"
	"github.com/ZackZahi/rpi4-bare-metal-os/soc/bcm2711/gic"
)

// timerIntervalMS is the scheduling quantum.
const timerIntervalMS = 100

// schedulerEnabled can be cleared (-ldflags -X) to boot with preemption off
// for diagnosis; the shell then stays the only running task.
var schedulerEnabled = "1"

// irqHandler runs with IRQs masked on every IRQ exception. Timer
// expirations drive the tick and the scheduler; any other source is
// acknowledged and ignored.
func irqHandler(sp uint64) uint64 {
	cpu := bcm2711.ARM

	if cpu.TimerExpired() {
		cpu.HandleTimerIRQ()
		smp.CoreInfo(0).Ticks++

		if sched.Enabled() {
			next := sched.ScheduleIRQ(sp)
			if next != sp {
				smp.CoreInfo(0).TasksRun++
			}
			sp = next
		}

		return sp
	}

	if id := bcm2711.GIC.GetInterrupt(); id != gic.Spurious {
		bcm2711.GIC.EndInterrupt(id)
	}

	return sp
}

// kernelMain is entered from boot.s on core 0, with the BSS cleared and the
// boot stack installed.
func kernelMain() {
	cpu := bcm2711.ARM

	bcm2711.UART0.Init()
	console.Default.Device = bcm2711.UART0

	console.Puts("\033[2J\033[H\n")
	console.Puts("========================================\n")
	console.Puts("  Raspberry Pi 4 OS\n")
	console.Puts("========================================\n\n")
	console.Puts("Initializing system...\n")

	console.Puts("Installing exception vectors...\n")
	cpu.Init()

	console.Puts("Initializing memory allocator...\n")
	mem.Init()

	console.Puts("Setting up MMU...\n")
	cpu.InitMMU()
	console.Puts("  MMU enabled! Identity-mapped with caches on.\n")

	console.Puts("Initializing filesystem...\n")
	fs.Init()

	console.Puts("Setting up GIC interrupt controller...\n")
	bcm2711.GIC.Init()

	console.Puts("Timer frequency: ")
	console.PutDec(cpu.Frequency())
	console.Puts(" Hz\n")

	console.Puts("Setting up timer interrupts (100ms interval)...\n")
	cpu.InitPeriodicTimer(timerIntervalMS)
	bcm2711.GIC.EnableInterrupt(arm64.TimerIRQ)
	bcm2711.LocalPeripherals.EnableTimerIRQ(0)

	console.Puts("Initializing task scheduler...\n")
	sched.Init(arm64.TickCount)
	arm64.SystemIRQHandler = irqHandler

	console.Puts("Waking secondary cores...\n")
	smp.Init(cpu, smp.Config{
		GIC:   bcm2711.GIC,
		Local: bcm2711.LocalPeripherals,
		SpinTable: [smp.NumCores - 1]uint64{
			bcm2711.SpinTableCore1,
			bcm2711.SpinTableCore2,
			bcm2711.SpinTableCore3,
		},
		TimerIntervalMS: timerIntervalMS,
	})

	if schedulerEnabled == "1" {
		sched.Enable()
	}

	console.Puts("Enabling interrupts...\n")
	cpu.EnableInterrupts()

	console.Puts("\nSystem ready!\n")
	console.Puts("Type 'help' for available commands.\n\n")

	sh := &shell.Shell{CPU: cpu}
	sh.Run()
}

func main() {
	kernelMain()
}
