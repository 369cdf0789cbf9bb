// Multi-core support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build rpi4

package smp

// defined in smp.s
func secondary_entry()
func dsb()
