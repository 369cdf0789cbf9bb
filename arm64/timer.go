// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

// ARM generic timer, accessed through the architectural system registers.
// Each core has its own physical timer (CNTP_TVAL_EL0, CNTP_CTL_EL0); the
// counter and its frequency are global.

// CNTP_CTL_EL0 bits
const (
	CNTP_CTL_ENABLE  = 1 << 0
	CNTP_CTL_IMASK   = 1 << 1
	CNTP_CTL_ISTATUS = 1 << 2
)

// TimerIRQ is the GIC interrupt id of the non-secure EL1 physical timer
// (CNTPNS).
const TimerIRQ = 30

// Global tick count, incremented by the boot core on every timer IRQ.
var tickCount uint64

// Tick reload value in counter cycles, set once by InitPeriodicTimer and
// read by all cores.
var timerInterval uint64

// Frequency returns the counter frequency in Hz.
//
// The frequency is always read back from CNTFRQ_EL0 rather than cached, so
// that every core gets a correct value regardless of which core ran
// InitPeriodicTimer.
func (cpu *CPU) Frequency() uint64 {
	return read_cntfrq()
}

// Counter returns the raw physical count (CNTPCT_EL0).
func (cpu *CPU) Counter() uint64 {
	return read_cntpct()
}

// InitPeriodicTimer programs the local physical timer for a periodic
// interrupt every intervalMS milliseconds and enables it with the
// interrupt unmasked.
func (cpu *CPU) InitPeriodicTimer(intervalMS uint32) {
	interval := (cpu.Frequency() / 1000) * uint64(intervalMS)
	timerInterval = interval
	cpu.TimerInterval = interval

	write_cntp_tval(interval)
	write_cntp_ctl(CNTP_CTL_ENABLE)
}

// TimerExpired returns whether the local timer condition is met (ISTATUS).
func (cpu *CPU) TimerExpired() bool {
	return read_cntp_ctl()&CNTP_CTL_ISTATUS != 0
}

// ReArmTimer reloads the local timer with the shared tick interval. The
// reload is relative (TVAL), so ticks do not drift cumulatively across
// preemption latency.
func (cpu *CPU) ReArmTimer() {
	interval := timerInterval

	if interval == 0 {
		interval = (cpu.Frequency() / 1000) * 100
	}

	dsb_sy()
	write_cntp_tval(interval)
}

// HandleTimerIRQ increments the global tick count and re-arms the local
// timer. It is meant to be called from the boot core IRQ path.
func (cpu *CPU) HandleTimerIRQ() {
	tickCount++
	cpu.ReArmTimer()
}

// TickCount returns the global tick count.
func TickCount() uint64 {
	return tickCount
}

// DelayMS busy-waits on the physical count for the argument number of
// milliseconds.
func (cpu *CPU) DelayMS(ms uint32) {
	start := cpu.Counter()
	wait := (cpu.Frequency() / 1000) * uint64(ms)

	for cpu.Counter()-start < wait {
	}
}
