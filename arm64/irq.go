// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

// DAIF exception mask bits.
const (
	DAIF_FIQ = 1 << 6
	DAIF_IRQ = 1 << 7
)

// IRQState holds a saved interrupt mask state.
type IRQState uint64

// EnableInterrupts unmasks IRQ interrupts on the local core.
func (cpu *CPU) EnableInterrupts() {
	irq_enable()
}

// DisableInterrupts masks IRQ interrupts on the local core.
func (cpu *CPU) DisableInterrupts() {
	irq_disable()
}

// MaskIRQ masks IRQs on the local core and returns the previous mask state,
// for bracketing critical sections so that early returns cannot leak a
// masked state:
//
//	defer cpu.RestoreIRQ(cpu.MaskIRQ())
func (cpu *CPU) MaskIRQ() IRQState {
	s := IRQState(read_daif())
	irq_disable()

	return s
}

// RestoreIRQ restores the interrupt mask state returned by MaskIRQ.
func (cpu *CPU) RestoreIRQ(s IRQState) {
	if s&DAIF_IRQ == 0 {
		irq_enable()
	}
}

// WaitInterrupt suspends execution until an interrupt is received.
func (cpu *CPU) WaitInterrupt() {
	wfi()
}

// WaitEvent suspends execution until an event is signaled.
func (cpu *CPU) WaitEvent() {
	wfe()
}

// SendEvent signals an event to all cores.
func (cpu *CPU) SendEvent() {
	sev()
}

// Busyloop spins the processor for the argument number of iterations.
func Busyloop(count int32) {
	busyloop(count)
}
