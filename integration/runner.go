// Integration test harness
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CaseResult is the outcome of one test case.
type CaseResult struct {
	Name     string
	Errors   []error
	Duration time.Duration
}

// Passed returns whether the case produced no assertion errors.
func (c *CaseResult) Passed() bool {
	return len(c.Errors) == 0
}

// Results is the outcome of a suite run.
type Results struct {
	Suite  string
	Cases  []CaseResult
	Passed int
	Failed int
}

// Runner boots a kernel image and executes a suite against its console.
type Runner struct {
	Suite *Suite

	// OnCase, when set, is invoked after each completed case.
	OnCase func(CaseResult)

	// Verbose mirrors the raw serial output to the logger.
	Verbose bool

	logger *log.Logger
}

// NewRunner returns a Runner for the argument suite.
func NewRunner(s *Suite) *Runner {
	return &Runner{
		Suite:  s,
		logger: log.New(os.Stderr, "[runtest] ", log.Ltime),
	}
}

// qemuArgs builds the emulator invocation: serial console on stdio, no
// graphics output.
func qemuArgs(b BootConfig) []string {
	return []string{
		"-M", b.Machine,
		"-kernel", b.Image,
		"-serial", "stdio",
		"-display", "none",
		"-monitor", "none",
	}
}

// Run boots the kernel and executes every test case in order, sharing the
// single boot (the kernel never exits, so cases build on each other's
// state by design).
func (r *Runner) Run(ctx context.Context) (*Results, error) {
	b := r.Suite.Boot

	if _, err := os.Stat(b.Image); err != nil {
		return nil, fmt.Errorf("kernel image: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.QEMU, qemuArgs(b)...)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", b.QEMU, err)
	}

	defer func() {
		killProcessGroup(cmd)
		_ = cmd.Wait()
	}()

	e := NewExpecter(stdout)

	r.logger.Printf("booting %s under %s (%s)", b.Image, b.QEMU, b.Machine)

	if err := e.WaitFor(ctx, 0, b.ReadyPrompt, b.Timeout.Duration()); err != nil {
		return nil, fmt.Errorf("kernel did not reach prompt: %w", err)
	}

	results := &Results{Suite: r.Suite.Name}

	for _, tc := range r.Suite.Tests {
		res := r.runCase(ctx, e, stdin, tc)

		results.Cases = append(results.Cases, res)

		if res.Passed() {
			results.Passed++
		} else {
			results.Failed++
		}

		if r.OnCase != nil {
			r.OnCase(res)
		}

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}

	return results, nil
}

func (r *Runner) runCase(ctx context.Context, e *Expecter, stdin io.Writer, tc TestCase) CaseResult {
	start := time.Now()
	mark := e.Mark()

	if tc.Send != "" {
		if _, err := io.WriteString(stdin, tc.Send+"\r"); err != nil {
			return CaseResult{
				Name:     tc.Name,
				Errors:   []error{fmt.Errorf("send %q: %w", tc.Send, err)},
				Duration: time.Since(start),
			}
		}
	}

	if tc.SettleMS > 0 {
		select {
		case <-time.After(time.Duration(tc.SettleMS) * time.Millisecond):
		case <-ctx.Done():
		}
	}

	errs := AssertCase(ctx, e, tc, mark)

	if r.Verbose {
		r.logger.Printf("%s:\n%s", tc.Name, e.Transcript(mark))
	}

	return CaseResult{
		Name:     tc.Name,
		Errors:   errs,
		Duration: time.Since(start),
	}
}

// waitScreen polls the rendered screen until needle appears.
func waitScreen(ctx context.Context, e *Expecter, needle string, timeout time.Duration) error {
	deadline := time.After(timeout)

	for {
		if e.ScreenContains(needle) {
			return nil
		}

		select {
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			return &AssertionError{
				Field:    "screen",
				Expected: needle,
				Actual:   tail(e.ScreenText(), 300),
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func containsStr(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
