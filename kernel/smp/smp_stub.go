// Multi-core support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !rpi4

package smp

// Host build: the spin-table release has no core to wake; the entry symbol
// only serves as an address to publish.

func secondary_entry() {}

func dsb() {}
