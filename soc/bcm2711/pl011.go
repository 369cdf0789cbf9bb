// BCM2711 SoC support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bcm2711

import (
	"github.com/ZackZahi/rpi4-bare-metal-os/arm64"
	"github.com/ZackZahi/rpi4-bare-metal-os/internal/reg"
)

// PL011 UART registers
// (2.10, BCM2711 ARM Peripherals).
const (
	UARTDR   = 0x00
	UARTFR   = 0x18
	UARTIBRD = 0x24
	UARTFBRD = 0x28
	UARTLCRH = 0x2c
	UARTCR   = 0x30
	UARTICR  = 0x44

	// UARTFR bits
	FR_RXFE = 4
	FR_TXFF = 5

	// UARTLCRH bits
	LCRH_FEN    = 4
	LCRH_WLEN_8 = 0b11 << 5

	// UARTCR bits
	CR_UARTEN = 0
	CR_TXE    = 8
	CR_RXE    = 9
)

// GPIO registers used to route UART0 to pins 14/15
const (
	GPFSEL1   = 0x04
	GPPUD     = 0x94
	GPPUDCLK0 = 0x98
)

// UART represents the PL011 serial port instance.
type UART struct {
	// Base is the controller register block address.
	Base uint64
	// GPIO is the GPIO register block address used for pin muxing.
	GPIO uint64
}

// Init initializes the UART for 115200 8N1 operation on GPIO 14/15.
func (hw *UART) Init() {
	if hw.Base == 0 || hw.GPIO == 0 {
		panic("invalid UART instance")
	}

	reg.Write(hw.Base+UARTCR, 0)

	// route GPIO 14/15 to UART0 (alt0)
	ra := reg.Read(hw.GPIO + GPFSEL1)
	ra &= ^(uint32(7) << 12) // gpio14
	ra |= 4 << 12            // alt0
	ra &= ^(uint32(7) << 15) // gpio15
	ra |= 4 << 15            // alt0
	reg.Write(hw.GPIO+GPFSEL1, ra)

	// disable pull-up/down on both pins
	reg.Write(hw.GPIO+GPPUD, 0)
	arm64.Busyloop(150)
	reg.Write(hw.GPIO+GPPUDCLK0, (1<<14)|(1<<15))
	arm64.Busyloop(150)
	reg.Write(hw.GPIO+GPPUDCLK0, 0)

	// clear pending interrupts
	reg.Write(hw.Base+UARTICR, 0x7ff)

	// 115200 baud from the 48 MHz UART clock:
	// 48000000 / (16 * 115200) = 26 + 3/64
	reg.Write(hw.Base+UARTIBRD, 26)
	reg.Write(hw.Base+UARTFBRD, 3)

	// FIFO on, 8-bit words
	reg.Write(hw.Base+UARTLCRH, 1<<LCRH_FEN|LCRH_WLEN_8)

	// enable UART, TX and RX
	reg.Write(hw.Base+UARTCR, 1<<CR_UARTEN|1<<CR_TXE|1<<CR_RXE)
}

// Tx transmits a single byte, blocking while the FIFO is full. A newline is
// expanded to carriage return and newline.
func (hw *UART) Tx(c byte) {
	if c == '\n' {
		hw.tx('\r')
	}

	hw.tx(c)
}

func (hw *UART) tx(c byte) {
	reg.Wait(hw.Base+UARTFR, FR_TXFF, 1, 0)
	reg.Write(hw.Base+UARTDR, uint32(c))
}

// Rx receives a single byte, blocking until one is available.
func (hw *UART) Rx() byte {
	reg.Wait(hw.Base+UARTFR, FR_RXFE, 1, 0)
	return byte(reg.Read(hw.Base+UARTDR) & 0xff)
}

// TryRx receives a single byte if one is available.
func (hw *UART) TryRx() (c byte, ok bool) {
	if reg.Get(hw.Base+UARTFR, FR_RXFE, 1) == 1 {
		return 0, false
	}

	return byte(reg.Read(hw.Base+UARTDR) & 0xff), true
}

// Write transmits the buffer contents to the serial port.
func (hw *UART) Write(buf []byte) {
	for i := 0; i < len(buf); i++ {
		hw.Tx(buf[i])
	}
}
