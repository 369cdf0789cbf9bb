// Integration test harness
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package integration

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/vt"
)

// Expecter consumes serial output, keeping both the raw transcript and a
// rendered terminal screen, and lets callers wait for text to appear.
//
// Transcript matching happens on ANSI-stripped text, so cursor movement and
// clear-screen sequences from the shell do not break substring assertions;
// screen matching uses the VT emulator state instead, for output that only
// makes sense as a rendered screen (the top monitor).
type Expecter struct {
	mu     sync.Mutex
	raw    bytes.Buffer
	emu    *vt.SafeEmulator
	closed bool
	notify chan struct{}
}

// NewExpecter starts consuming r until EOF.
func NewExpecter(r io.Reader) *Expecter {
	e := &Expecter{
		emu:    vt.NewSafeEmulator(80, 40),
		notify: make(chan struct{}),
	}

	go e.consume(r)

	return e
}

func (e *Expecter) consume(r io.Reader) {
	buf := make([]byte, 4096)

	for {
		n, err := r.Read(buf)

		if n > 0 {
			e.mu.Lock()
			e.raw.Write(buf[:n])
			_, _ = e.emu.Write(buf[:n])
			close(e.notify)
			e.notify = make(chan struct{})
			e.mu.Unlock()
		}

		if err != nil {
			e.mu.Lock()
			e.closed = true
			close(e.notify)
			e.notify = make(chan struct{})
			e.mu.Unlock()
			return
		}
	}
}

// Mark returns the current transcript offset; passing it to WaitFor scopes
// the search to output produced after the mark.
func (e *Expecter) Mark() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.raw.Len()
}

// Transcript returns the ANSI-stripped transcript from the given mark.
func (e *Expecter) Transcript(from int) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if from > e.raw.Len() {
		from = e.raw.Len()
	}

	return ansi.Strip(string(e.raw.Bytes()[from:]))
}

// WaitFor blocks until needle appears in the transcript after the mark, the
// timeout expires or the context is canceled.
func (e *Expecter) WaitFor(ctx context.Context, from int, needle string, timeout time.Duration) error {
	deadline := time.After(timeout)

	for {
		e.mu.Lock()
		ch := e.notify
		closed := e.closed
		e.mu.Unlock()

		if strings.Contains(e.Transcript(from), needle) {
			return nil
		}

		if closed {
			return &AssertionError{
				Field:    "transcript",
				Expected: needle,
				Actual:   tail(e.Transcript(from), 300),
				Message:  "console closed before expected output",
			}
		}

		select {
		case <-ch:
		case <-deadline:
			return &AssertionError{
				Field:    "transcript",
				Expected: needle,
				Actual:   tail(e.Transcript(from), 300),
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ScreenText returns the rendered terminal screen as newline separated
// rows, with trailing blanks trimmed.
func (e *Expecter) ScreenText() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder

	for y := 0; y < e.emu.Height(); y++ {
		var row strings.Builder

		for x := 0; x < e.emu.Width(); x++ {
			cell := e.emu.CellAt(x, y)

			if cell == nil || cell.Content == "" {
				row.WriteByte(' ')
				continue
			}

			row.WriteString(cell.Content)
		}

		sb.WriteString(strings.TrimRight(row.String(), " "))
		sb.WriteByte('\n')
	}

	return strings.TrimRight(sb.String(), "\n")
}

// ScreenContains reports whether needle appears on the rendered screen.
func (e *Expecter) ScreenContains(needle string) bool {
	return strings.Contains(e.ScreenText(), needle)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return "..." + s[len(s)-n:]
}
