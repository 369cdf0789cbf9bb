// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !rpi4

package arm64

import (
	"testing"
)

func buildTestTables() (l0, l1, l2ram, l2dev *[512]uint64) {
	l0 = &[512]uint64{}
	l1 = &[512]uint64{}
	l2ram = &[512]uint64{}
	l2dev = &[512]uint64{}

	BuildTranslationTables(l0, l1, l2ram, l2dev, L1TableAddr, L2RAMTableAddr, L2DevTableAddr)

	return
}

func TestTranslationTableRAM(t *testing.T) {
	_, _, l2ram, _ := buildTestTables()

	for _, tc := range []struct {
		entry int
		want  uint64
	}{
		{0, 0x0 | BlockNormal},
		{1, 0x200000 | BlockNormal},
		{256, 0x20000000 | BlockNormal},
		{511, 0x3fe00000 | BlockNormal},
	} {
		if got := l2ram[tc.entry]; got != tc.want {
			t.Errorf("l2ram[%d] = %#x, want %#x", tc.entry, got, tc.want)
		}
	}
}

func TestTranslationTableDevice(t *testing.T) {
	_, _, _, l2dev := buildTestTables()

	for _, tc := range []struct {
		entry int
		want  uint64
	}{
		{0, 0xc0000000 | BlockDevice},
		{448, 0xf8000000 | BlockDevice}, // below the BCM2711 peripherals at 0xfe000000
		{511, 0xffe00000 | BlockDevice},
	} {
		if got := l2dev[tc.entry]; got != tc.want {
			t.Errorf("l2dev[%d] = %#x, want %#x", tc.entry, got, tc.want)
		}
	}
}

func TestTranslationTableRouting(t *testing.T) {
	l0, l1, _, _ := buildTestTables()

	if got := l0[0]; got != L1TableAddr|TableEntry {
		t.Errorf("l0[0] = %#x", got)
	}

	if got := l1[0]; got != L2RAMTableAddr|TableEntry {
		t.Errorf("l1[0] = %#x", got)
	}

	if got := l1[3]; got != L2DevTableAddr|TableEntry {
		t.Errorf("l1[3] = %#x", got)
	}

	// the 2 GB hole between RAM and the device window stays unmapped
	for _, i := range []int{1, 2, 4, 255, 511} {
		if l1[i] != 0 {
			t.Errorf("l1[%d] = %#x, want unmapped", i, l1[i])
		}
	}

	for i := 1; i < 512; i++ {
		if l0[i] != 0 {
			t.Fatalf("l0[%d] = %#x, want unmapped", i, l0[i])
		}
	}
}

func TestBlockAttributes(t *testing.T) {
	if BlockNormal&TTE_VALID == 0 || BlockDevice&TTE_VALID == 0 {
		t.Error("block descriptors must be valid")
	}

	if BlockNormal&TTE_AF == 0 || BlockDevice&TTE_AF == 0 {
		t.Error("block descriptors must carry the access flag")
	}

	if BlockNormal&(1<<1) != 0 || BlockDevice&(1<<1) != 0 {
		t.Error("level 2 mappings must be block, not table, descriptors")
	}

	if attr := BlockNormal >> 2 & 0x7; attr != MT_NORMAL {
		t.Errorf("BlockNormal attribute index = %d", attr)
	}

	if attr := BlockDevice >> 2 & 0x7; attr != MT_DEVICE {
		t.Errorf("BlockDevice attribute index = %d", attr)
	}

	if sh := BlockNormal >> 8 & 0x3; sh != 3 {
		t.Errorf("BlockNormal shareability = %d, want inner", sh)
	}

	if sh := BlockDevice >> 8 & 0x3; sh != 2 {
		t.Errorf("BlockDevice shareability = %d, want outer", sh)
	}
}

func TestMAIR(t *testing.T) {
	// Attr0 Device-nGnRnE, Attr1 Normal Write-Back RA/WA
	if MAIR != 0x00|0xff<<8 {
		t.Errorf("MAIR = %#x", MAIR)
	}
}

func TestTCR(t *testing.T) {
	if t0sz := TCR & 0x3f; t0sz != 16 {
		t.Errorf("T0SZ = %d, want 16 (48-bit VA)", t0sz)
	}

	if tg0 := TCR >> 14 & 0x3; tg0 != 0 {
		t.Errorf("TG0 = %d, want 4KB granule", tg0)
	}

	if sh0 := TCR >> 12 & 0x3; sh0 != 3 {
		t.Errorf("SH0 = %d, want inner shareable", sh0)
	}

	if ips := TCR >> 32 & 0x7; ips != 2 {
		t.Errorf("IPS = %d, want 40-bit PA", ips)
	}
}

func TestInstallMMU(t *testing.T) {
	mock.SCTLR = 0
	cpu := &CPU{}

	cpu.InstallMMU(L0TableAddr, TCR, MAIR)

	ttbr0, tcr, mair := cpu.MMUConfig()

	if ttbr0 != L0TableAddr || tcr != TCR || mair != MAIR {
		t.Errorf("MMUConfig() = %#x, %#x, %#x", ttbr0, tcr, mair)
	}

	if mock.SCTLR&(SCTLR_M|SCTLR_C|SCTLR_I) != SCTLR_M|SCTLR_C|SCTLR_I {
		t.Errorf("SCTLR = %#x: MMU, D-cache and I-cache must all be on", mock.SCTLR)
	}
}
