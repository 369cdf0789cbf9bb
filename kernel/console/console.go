// Kernel console
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package console routes kernel text output and keyboard input through an
// installed byte device, with decimal and hexadecimal integer printers.
//
// None of the operations allocate, so they are safe from any kernel
// context, including the IRQ path.
package console

// Device is a byte-oriented console transport, typically a serial port.
type Device interface {
	Tx(c byte)
	Rx() byte
	TryRx() (c byte, ok bool)
}

// Console provides formatted output over a Device.
type Console struct {
	// Device is the underlying transport; output is dropped while unset.
	Device Device
}

// Default is the system console instance.
var Default = &Console{}

// Putc transmits a single byte.
func (c *Console) Putc(b byte) {
	if c.Device == nil {
		return
	}

	c.Device.Tx(b)
}

// Getc receives a single byte, blocking until one is available.
func (c *Console) Getc() byte {
	if c.Device == nil {
		return 0
	}

	return c.Device.Rx()
}

// TryGetc receives a single byte if one is available.
func (c *Console) TryGetc() (byte, bool) {
	if c.Device == nil {
		return 0, false
	}

	return c.Device.TryRx()
}

// Puts transmits a string.
func (c *Console) Puts(s string) {
	for i := 0; i < len(s); i++ {
		c.Putc(s[i])
	}
}

// PutBytes transmits a byte slice.
func (c *Console) PutBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		c.Putc(b[i])
	}
}

// PutDec prints an unsigned integer in decimal.
func (c *Console) PutDec(v uint64) {
	var buf [20]byte

	if v == 0 {
		c.Putc('0')
		return
	}

	i := len(buf)

	for v > 0 {
		i--
		buf[i] = '0' + byte(v%10)
		v /= 10
	}

	for ; i < len(buf); i++ {
		c.Putc(buf[i])
	}
}

// PutHex prints an unsigned integer as 16 hexadecimal digits with a 0x
// prefix.
func (c *Console) PutHex(v uint64) {
	const digits = "0123456789ABCDEF"

	c.Puts("0x")

	for i := 60; i >= 0; i -= 4 {
		c.Putc(digits[(v>>uint(i))&0xf])
	}
}

// Putc transmits a single byte on the default console.
func Putc(b byte) {
	Default.Putc(b)
}

// Getc receives a single byte from the default console.
func Getc() byte {
	return Default.Getc()
}

// TryGetc receives a single byte from the default console if available.
func TryGetc() (byte, bool) {
	return Default.TryGetc()
}

// Puts transmits a string on the default console.
func Puts(s string) {
	Default.Puts(s)
}

// PutBytes transmits a byte slice on the default console.
func PutBytes(b []byte) {
	Default.PutBytes(b)
}

// PutDec prints a decimal integer on the default console.
func PutDec(v uint64) {
	Default.PutDec(v)
}

// PutHex prints a hexadecimal integer on the default console.
func PutHex(v uint64) {
	Default.PutHex(v)
}
