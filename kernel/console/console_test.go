// Kernel console
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package console

import (
	"bytes"
	"testing"
)

type fakeDevice struct {
	in  []byte
	out bytes.Buffer
}

func (d *fakeDevice) Tx(c byte) { d.out.WriteByte(c) }

func (d *fakeDevice) Rx() byte {
	c := d.in[0]
	d.in = d.in[1:]
	return c
}

func (d *fakeDevice) TryRx() (byte, bool) {
	if len(d.in) == 0 {
		return 0, false
	}

	return d.Rx(), true
}

func TestPutDec(t *testing.T) {
	for _, tc := range []struct {
		v    uint64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{100, "100"},
		{16384, "16384"},
		{18446744073709551615, "18446744073709551615"},
	} {
		d := &fakeDevice{}
		c := &Console{Device: d}

		c.PutDec(tc.v)

		if got := d.out.String(); got != tc.want {
			t.Errorf("PutDec(%d) = %q", tc.v, got)
		}
	}
}

func TestPutHex(t *testing.T) {
	for _, tc := range []struct {
		v    uint64
		want string
	}{
		{0, "0x0000000000000000"},
		{0x140000, "0x0000000000140000"},
		{0xdeadbeef, "0x00000000DEADBEEF"},
	} {
		d := &fakeDevice{}
		c := &Console{Device: d}

		c.PutHex(tc.v)

		if got := d.out.String(); got != tc.want {
			t.Errorf("PutHex(%#x) = %q", tc.v, got)
		}
	}
}

func TestPuts(t *testing.T) {
	d := &fakeDevice{}
	c := &Console{Device: d}

	c.Puts("hello\n")
	c.PutBytes([]byte("world"))

	if got := d.out.String(); got != "hello\nworld" {
		t.Errorf("output = %q", got)
	}
}

func TestNilDevice(t *testing.T) {
	c := &Console{}

	// output is dropped, input reads as zero values
	c.Puts("nowhere")
	c.PutDec(1)

	if b := c.Getc(); b != 0 {
		t.Errorf("Getc() = %d", b)
	}

	if _, ok := c.TryGetc(); ok {
		t.Error("TryGetc() reported data")
	}
}

func TestInput(t *testing.T) {
	d := &fakeDevice{in: []byte("ab")}
	c := &Console{Device: d}

	if got := c.Getc(); got != 'a' {
		t.Errorf("Getc() = %q", got)
	}

	if got, ok := c.TryGetc(); !ok || got != 'b' {
		t.Errorf("TryGetc() = %q, %v", got, ok)
	}

	if _, ok := c.TryGetc(); ok {
		t.Error("TryGetc() on empty input reported data")
	}
}
