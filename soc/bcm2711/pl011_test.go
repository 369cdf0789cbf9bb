// BCM2711 SoC support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bcm2711

import (
	"testing"
	"unsafe"
)

type fakeUART struct {
	uart [0x20]uint32
	gpio [0x30]uint32
}

func (f *fakeUART) driver() *UART {
	return &UART{
		Base: uint64(uintptr(unsafe.Pointer(&f.uart[0]))),
		GPIO: uint64(uintptr(unsafe.Pointer(&f.gpio[0]))),
	}
}

func TestUARTInit(t *testing.T) {
	f := &fakeUART{}
	hw := f.driver()

	hw.Init()

	if got := f.uart[UARTIBRD/4]; got != 26 {
		t.Errorf("UARTIBRD = %d, want 26 (115200 baud)", got)
	}

	if got := f.uart[UARTFBRD/4]; got != 3 {
		t.Errorf("UARTFBRD = %d", got)
	}

	if got := f.uart[UARTLCRH/4]; got != 1<<LCRH_FEN|LCRH_WLEN_8 {
		t.Errorf("UARTLCRH = %#x, want FIFO + 8-bit", got)
	}

	want := uint32(1<<CR_UARTEN | 1<<CR_TXE | 1<<CR_RXE)

	if got := f.uart[UARTCR/4]; got != want {
		t.Errorf("UARTCR = %#x, want %#x", got, want)
	}

	// GPIO 14/15 routed to alt0
	if got := f.gpio[GPFSEL1/4]; got != 4<<12|4<<15 {
		t.Errorf("GPFSEL1 = %#x", got)
	}
}

func TestUARTInitInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Init on a zero instance must panic")
		}
	}()

	hw := &UART{}
	hw.Init()
}

func TestUARTTx(t *testing.T) {
	f := &fakeUART{}
	hw := f.driver()

	hw.Tx('A')

	if got := f.uart[UARTDR/4]; got != 'A' {
		t.Errorf("UARTDR = %#x", got)
	}

	// newline expands to CR LF; the data register holds the last byte
	hw.Tx('\n')

	if got := f.uart[UARTDR/4]; got != '\n' {
		t.Errorf("UARTDR = %#x after newline", got)
	}
}

func TestUARTRx(t *testing.T) {
	f := &fakeUART{}
	hw := f.driver()

	// receive FIFO empty
	f.uart[UARTFR/4] = 1 << FR_RXFE

	if _, ok := hw.TryRx(); ok {
		t.Error("TryRx() returned data with RXFE set")
	}

	f.uart[UARTFR/4] = 0
	f.uart[UARTDR/4] = 'x'

	if c, ok := hw.TryRx(); !ok || c != 'x' {
		t.Errorf("TryRx() = %q, %v", c, ok)
	}

	if c := hw.Rx(); c != 'x' {
		t.Errorf("Rx() = %q", c)
	}
}
