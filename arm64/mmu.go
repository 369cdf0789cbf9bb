// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	"unsafe"
)

// Translation uses a 4 KB granule with 2 MB block descriptors at level 2:
//
//	VA → L0 table → L1 table → L2 block (2 MB)
//
// The identity map covers:
//
//	0x00000000 - 0x3fffffff  1 GB RAM        Normal, cacheable
//	0xc0000000 - 0xffffffff  1 GB peripherals Device-nGnRnE
//
// One L2 table of 512 entries covers exactly 1 GB, so a single L1 entry per
// window (L1[0] and L1[3]) and a single L0 entry suffice; no L3 level is
// needed.

// Translation table locations, 4 KB aligned, below the page allocator
// bitmap and above the kernel image.
const (
	L0TableAddr    = 0x000d0000
	L1TableAddr    = 0x000d1000
	L2RAMTableAddr = 0x000d2000
	L2DevTableAddr = 0x000d3000

	BlockSize    = 0x200000   // 2 MB
	DeviceWindow = 0xc0000000 // start of the peripheral identity window
)

// Translation table descriptor bits
// (D8.3, ARM Architecture Reference Manual for A-profile architecture).
const (
	TTE_VALID = 1 << 0
	TTE_TABLE = 1 << 1 // L0/L1: next-level table
	TTE_BLOCK = 0 << 1 // L1/L2: block mapping
	TTE_AF    = 1 << 10

	// Shareability
	TTE_OSH = 2 << 8
	TTE_ISH = 3 << 8

	// Access permissions
	TTE_AP_RW_EL1 = 0 << 6
	TTE_AP_RO_EL1 = 2 << 6
)

// MAIR_EL1 attribute indices
const (
	MT_DEVICE = 0 // Device-nGnRnE
	MT_NORMAL = 1 // Normal, Write-Back RA/WA
)

// MAIR_EL1 value: Attr0 Device-nGnRnE, Attr1 Normal Write-Back RA/WA.
const MAIR = 0x00<<(MT_DEVICE*8) | 0xff<<(MT_NORMAL*8)

// Block descriptor attribute sets
const (
	BlockDevice = TTE_VALID | TTE_BLOCK | TTE_AF | MT_DEVICE<<2 | TTE_OSH | TTE_AP_RW_EL1
	BlockNormal = TTE_VALID | TTE_BLOCK | TTE_AF | MT_NORMAL<<2 | TTE_ISH | TTE_AP_RW_EL1
	TableEntry  = TTE_VALID | TTE_TABLE
)

// TCR_EL1 value: 48-bit VA (T0SZ=T1SZ=16), inner/outer write-back
// cacheable walks, inner shareable, 4 KB granule, 40-bit PA.
const TCR = 16<<0 | // T0SZ
	1<<8 | // IRGN0 write-back
	1<<10 | // ORGN0 write-back
	3<<12 | // SH0 inner shareable
	0<<14 | // TG0 4 KB
	16<<16 | // T1SZ
	2<<32 // IPS 40-bit

// SCTLR_EL1 bits
const (
	SCTLR_M = 1 << 0
	SCTLR_C = 1 << 2
	SCTLR_I = 1 << 12
)

var mmuEnabled bool

// BuildTranslationTables populates the four argument tables with the
// identity map described above. The address arguments are the physical
// locations of the L1 and L2 tables, needed to form table descriptors.
func BuildTranslationTables(l0, l1, l2ram, l2dev *[512]uint64, l1Addr, l2ramAddr, l2devAddr uint64) {
	for i := 0; i < 512; i++ {
		l0[i] = 0
		l1[i] = 0
		l2ram[i] = 0
		l2dev[i] = 0
	}

	// 512 entries x 2 MB = 1 GB of cacheable RAM
	for i := uint64(0); i < 512; i++ {
		l2ram[i] = i*BlockSize | BlockNormal
	}

	// 1 GB peripheral window at 3 GB, covering the BCM2711 peripherals,
	// the ARM local peripherals and the GIC
	for i := uint64(0); i < 512; i++ {
		l2dev[i] = DeviceWindow + i*BlockSize | BlockDevice
	}

	// each L1 entry covers 1 GB
	l1[0] = l2ramAddr | TableEntry
	l1[3] = l2devAddr | TableEntry

	// each L0 entry covers 512 GB
	l0[0] = l1Addr | TableEntry
}

// InitMMU builds the identity-mapped translation tables, programs the
// translation registers and enables the MMU together with the data and
// instruction caches. It must be called exactly once on the boot core,
// before any cache-sensitive operation.
func (cpu *CPU) InitMMU() {
	l0 := (*[512]uint64)(unsafe.Pointer(uintptr(L0TableAddr)))
	l1 := (*[512]uint64)(unsafe.Pointer(uintptr(L1TableAddr)))
	l2ram := (*[512]uint64)(unsafe.Pointer(uintptr(L2RAMTableAddr)))
	l2dev := (*[512]uint64)(unsafe.Pointer(uintptr(L2DevTableAddr)))

	BuildTranslationTables(l0, l1, l2ram, l2dev, L1TableAddr, L2RAMTableAddr, L2DevTableAddr)

	write_mair(MAIR)
	write_tcr(TCR)
	write_ttbr0(L0TableAddr)
	write_ttbr1(0)

	// publish the tables before the enable write
	dsb_ish()
	isb()

	write_sctlr(read_sctlr() | SCTLR_M | SCTLR_C | SCTLR_I)
	isb()

	mmuEnabled = true
}

// InstallMMU installs a translation configuration sampled on another core
// and enables the MMU and caches, for secondary core bring-up.
func (cpu *CPU) InstallMMU(ttbr0, tcr, mair uint64) {
	write_mair(mair)
	write_tcr(tcr)
	write_ttbr0(ttbr0)
	write_ttbr1(0)

	dsb_ish()
	isb()

	write_sctlr(read_sctlr() | SCTLR_M | SCTLR_C | SCTLR_I)
	isb()
}

// MMUConfig returns the live translation registers, for sharing with
// secondary cores and for diagnostics.
func (cpu *CPU) MMUConfig() (ttbr0, tcr, mair uint64) {
	return read_ttbr0(), read_tcr(), read_mair()
}

// MMUEnabled returns whether InitMMU has completed on the boot core.
func (cpu *CPU) MMUEnabled() bool {
	return mmuEnabled
}

// ConsolePrinter is the minimal output interface DumpConfig emits through.
type ConsolePrinter interface {
	Puts(s string)
	PutDec(v uint64)
	PutHex(v uint64)
}

var ipsNames = [6]string{
	"32-bit (4GB)", "36-bit (64GB)", "40-bit (1TB)",
	"42-bit (4TB)", "44-bit (16TB)", "48-bit (256TB)",
}

// DumpConfig emits a textual description of the live MMU configuration.
func (cpu *CPU) DumpConfig(p ConsolePrinter) {
	sctlr := read_sctlr()
	tcr := read_tcr()
	mair := read_mair()
	ttbr0 := read_ttbr0()

	p.Puts("MMU Configuration:\n")
	p.Puts("  SCTLR_EL1: ")
	p.PutHex(sctlr)
	p.Puts("\n    MMU:     ")
	putOnOff(p, sctlr&SCTLR_M != 0)
	p.Puts("\n    D-Cache: ")
	putOnOff(p, sctlr&SCTLR_C != 0)
	p.Puts("\n    I-Cache: ")
	putOnOff(p, sctlr&SCTLR_I != 0)
	p.Puts("\n")

	p.Puts("  TCR_EL1:   ")
	p.PutHex(tcr)
	p.Puts("\n    T0SZ:   ")
	p.PutDec(tcr & 0x3f)
	p.Puts(" (")
	p.PutDec(64 - tcr&0x3f)
	p.Puts("-bit VA)\n    IPS:    ")

	if ips := (tcr >> 32) & 0x7; ips < 6 {
		p.Puts(ipsNames[ips])
	} else {
		p.PutDec(ips)
	}
	p.Puts("\n")

	p.Puts("  MAIR_EL1:  ")
	p.PutHex(mair)
	p.Puts("\n    Attr0:  ")
	p.PutHex(mair & 0xff)
	p.Puts(" (Device)\n    Attr1:  ")
	p.PutHex(mair >> 8 & 0xff)
	p.Puts(" (Normal)\n")

	p.Puts("  TTBR0_EL1: ")
	p.PutHex(ttbr0)
	p.Puts("\n\nMemory map:\n")
	p.Puts("  0x00000000-0x3FFFFFFF  1GB RAM    (Normal, cacheable)\n")
	p.Puts("  0xC0000000-0xFFFFFFFF  1GB Device (UART, GIC, timers)\n")
}

func putOnOff(p ConsolePrinter, on bool) {
	if on {
		p.Puts("ON")
	} else {
		p.Puts("OFF")
	}
}
