// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !rpi4

package arm64

// Host build: system register access is backed by mock state so that the
// architecture-independent logic can be exercised with go test. The real
// implementations live in the rpi4-tagged assembly files.

import (
	"runtime"
	"sync/atomic"
)

var mock struct {
	MPIDR uint64
	EL    uint64
	DAIF  uint64
	VBAR  uint64

	SCTLR uint64
	TCR   uint64
	MAIR  uint64
	TTBR0 uint64
	TTBR1 uint64

	CNTFRQ    uint64
	CNTPCT    uint64
	CNTP_CTL  uint64
	CNTP_TVAL uint64

	// CounterStep advances CNTPCT on every read so busy-waits terminate.
	CounterStep uint64
}

func init() {
	mock.EL = 1 << 2
	mock.CNTFRQ = 54000000
	mock.CounterStep = 1
}

func read_mpidr() uint64 { return mock.MPIDR }
func read_el() uint64    { return mock.EL }
func read_daif() uint64  { return mock.DAIF }

func irq_enable()  { mock.DAIF &^= DAIF_IRQ }
func irq_disable() { mock.DAIF |= DAIF_IRQ }

func wfi() { runtime.Gosched() }
func wfe() { runtime.Gosched() }
func sev() {}

func busyloop(count int32) {}

func dsb_ish() {}
func dsb_sy()  {}
func isb()     {}

func read_cntfrq() uint64 { return mock.CNTFRQ }

func read_cntpct() uint64 {
	mock.CNTPCT += mock.CounterStep
	return mock.CNTPCT
}

func read_cntp_ctl() uint64 { return mock.CNTP_CTL }

func write_cntp_ctl(val uint64) { mock.CNTP_CTL = val }

func write_cntp_tval(val uint64) {
	mock.CNTP_TVAL = val
	mock.CNTP_CTL &^= CNTP_CTL_ISTATUS
}

func read_sctlr() uint64     { return mock.SCTLR }
func write_sctlr(val uint64) { mock.SCTLR = val }
func read_tcr() uint64       { return mock.TCR }
func write_tcr(val uint64)   { mock.TCR = val }
func read_mair() uint64      { return mock.MAIR }
func write_mair(val uint64)  { mock.MAIR = val }
func read_ttbr0() uint64     { return mock.TTBR0 }
func write_ttbr0(val uint64) { mock.TTBR0 = val }
func write_ttbr1(val uint64) { mock.TTBR1 = val }

func set_vbar(addr uint64) { mock.VBAR = addr }

func spin_lock(lock *uint32) {
	for !atomic.CompareAndSwapUint32(lock, 0, 1) {
		runtime.Gosched()
	}
}

func spin_unlock(lock *uint32) {
	atomic.StoreUint32(lock, 0)
}
