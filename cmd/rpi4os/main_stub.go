// Raspberry Pi 4 bare metal OS
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !rpi4

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "rpi4os is a freestanding kernel: build with GOARCH=arm64 and -tags rpi4 (see Makefile)")
	os.Exit(1)
}
