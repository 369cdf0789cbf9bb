// BCM2711 SoC support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bcm2711 provides support for the Broadcom BCM2711 SoC as found
// on the Raspberry Pi 4.
//
// The package is only meant to be used in freestanding kernel builds
// (`GOARCH=arm64` with the `rpi4` build tag).
package bcm2711

import (
	"github.com/ZackZahi/rpi4-bare-metal-os/arm64"
	"github.com/ZackZahi/rpi4-bare-metal-os/soc/bcm2711/armlocal"
	"github.com/ZackZahi/rpi4-bare-metal-os/soc/bcm2711/gic"
)

// Peripheral base addresses, within the Device window of the identity map.
const (
	// PeripheralBase is the BCM2711 "low peripheral" mode base.
	PeripheralBase = 0xfe000000

	GPIOBase  = PeripheralBase + 0x200000
	UART0Base = PeripheralBase + 0x201000

	// ARMLocalBase is the per-core local peripherals block, remapped on
	// the BCM2711 from its BCM2836 location.
	ARMLocalBase = 0xff800000

	// GICBase is the GIC-400 block.
	GICBase = 0xff840000
)

// Spin-table slots polled by the firmware-parked secondary cores.
const (
	SpinTableCore1 = 0xe0
	SpinTableCore2 = 0xe8
	SpinTableCore3 = 0xf0
)

// ARM is the boot core CPU instance.
var ARM = &arm64.CPU{}

// UART0 is the PL011 serial console.
var UART0 = &UART{
	Base: UART0Base,
	GPIO: GPIOBase,
}

// GIC is the GIC-400 interrupt controller instance.
var GIC = &gic.GIC{
	GICD: GICBase + 0x1000,
	GICC: GICBase + 0x2000,
}

// LocalPeripherals is the per-core interrupt routing block.
var LocalPeripherals = &armlocal.Peripherals{
	Base: ARMLocalBase,
}
