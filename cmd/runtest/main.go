// Integration test harness
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// runtest boots the kernel image under qemu and runs console test suites
// against it, or attaches an interactive serial session with -interactive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/ZackZahi/rpi4-bare-metal-os/integration"
)

func main() {
	var (
		image       = flag.String("image", "kernel8.img", "kernel image path")
		qemu        = flag.String("qemu", "", "qemu binary override")
		verbose     = flag.Bool("verbose", false, "log raw console output per case")
		interactive = flag.Bool("interactive", false, "attach an interactive serial session instead of running suites")
	)

	flag.Parse()

	if *interactive {
		if err := attach(*image, *qemu); err != nil {
			fmt.Fprintln(os.Stderr, "runtest:", err)
			os.Exit(1)
		}

		return
	}

	suites := flag.Args()

	if len(suites) == 0 {
		matches, err := filepath.Glob("integration/testdata/*.yaml")
		if err != nil || len(matches) == 0 {
			fmt.Fprintln(os.Stderr, "runtest: no suites given and none found under integration/testdata")
			os.Exit(1)
		}

		suites = matches
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed := 0

	for _, path := range suites {
		suite, err := integration.LoadSuite(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "runtest:", err)
			os.Exit(1)
		}

		if *image != "" {
			suite.Boot.Image = *image
		}

		if *qemu != "" {
			suite.Boot.QEMU = *qemu
		}

		failed += runSuite(ctx, suite, *verbose)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func runSuite(ctx context.Context, suite *integration.Suite, verbose bool) (failed int) {
	fmt.Printf("==> %s (%d cases)\n", suite.Name, len(suite.Tests))

	bar := progressbar.Default(int64(len(suite.Tests)))

	r := integration.NewRunner(suite)
	r.Verbose = verbose
	r.OnCase = func(res integration.CaseResult) {
		_ = bar.Add(1)
	}

	results, err := r.Run(ctx)

	_ = bar.Finish()

	if err != nil {
		fmt.Fprintf(os.Stderr, "runtest: %s: %v\n", suite.Name, err)
		return 1
	}

	for _, c := range results.Cases {
		if c.Passed() {
			fmt.Printf("  PASS %-30s (%s)\n", c.Name, c.Duration.Round(time.Millisecond))
			continue
		}

		fmt.Printf("  FAIL %-30s (%s)\n", c.Name, c.Duration.Round(time.Millisecond))

		for _, e := range c.Errors {
			fmt.Printf("       %v\n", e)
		}
	}

	fmt.Printf("==> %s: %d passed, %d failed\n", suite.Name, results.Passed, results.Failed)

	return results.Failed
}

// attach runs qemu with the serial console bridged to the local terminal in
// raw mode, so line editing, history and completion behave as on real
// hardware.
func attach(image, qemu string) error {
	if qemu == "" {
		qemu = integration.DefaultQEMU
	}

	if _, err := os.Stat(image); err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())

	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}

		defer term.Restore(fd, oldState)
	}

	cmd := exec.Command(qemu,
		"-M", integration.DefaultMachine,
		"-kernel", image,
		"-serial", "stdio",
		"-display", "none",
		"-monitor", "none",
	)

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
