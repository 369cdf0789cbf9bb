// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build rpi4

package arm64

// defined in sysreg.s
func read_mpidr() uint64
func read_el() uint64
func read_daif() uint64
func irq_enable()
func irq_disable()
func wfi()
func wfe()
func sev()
func busyloop(count int32)
func dsb_ish()
func dsb_sy()
func isb()

// defined in sysreg.s
func read_cntfrq() uint64
func read_cntpct() uint64
func read_cntp_ctl() uint64
func write_cntp_ctl(val uint64)
func write_cntp_tval(val uint64)

// defined in sysreg.s
func read_sctlr() uint64
func write_sctlr(val uint64)
func read_tcr() uint64
func write_tcr(val uint64)
func read_mair() uint64
func write_mair(val uint64)
func read_ttbr0() uint64
func write_ttbr0(val uint64)
func write_ttbr1(val uint64)

// defined in vectors.s
func set_vbar(addr uint64)
func irq_entry()
func exc_hang()

// defined in spinlock.s
func spin_lock(lock *uint32)
func spin_unlock(lock *uint32)
