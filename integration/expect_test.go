// Integration test harness
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package integration

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestWaitForFindsOutput(t *testing.T) {
	r, w := io.Pipe()
	e := NewExpecter(r)

	go func() {
		io.WriteString(w, "booting...\n")
		io.WriteString(w, "System ready!\nrpi4> ")
		w.Close()
	}()

	if err := e.WaitFor(context.Background(), 0, "rpi4> ", 2*time.Second); err != nil {
		t.Fatalf("WaitFor: %v", err)
	}

	if !strings.Contains(e.Transcript(0), "System ready!") {
		t.Error("transcript incomplete")
	}
}

func TestWaitForTimeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	e := NewExpecter(r)

	err := e.WaitFor(context.Background(), 0, "never", 50*time.Millisecond)

	if err == nil {
		t.Fatal("WaitFor succeeded on absent text")
	}

	var ae *AssertionError

	if !errors.As(err, &ae) {
		t.Fatalf("error type = %T", err)
	}
}

func TestWaitForClosedConsole(t *testing.T) {
	r, w := io.Pipe()
	e := NewExpecter(r)

	w.Close()

	err := e.WaitFor(context.Background(), 0, "never", 2*time.Second)

	if err == nil {
		t.Fatal("WaitFor succeeded after EOF")
	}
}

func TestMarkScopesSearch(t *testing.T) {
	r, w := io.Pipe()
	e := NewExpecter(r)

	io.WriteString(w, "first window\n")

	if err := e.WaitFor(context.Background(), 0, "first", time.Second); err != nil {
		t.Fatal(err)
	}

	mark := e.Mark()

	io.WriteString(w, "second window\n")
	w.Close()

	if err := e.WaitFor(context.Background(), mark, "second", time.Second); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(e.Transcript(mark), "first") {
		t.Error("mark did not scope out earlier output")
	}
}

func TestTranscriptStripsANSI(t *testing.T) {
	r, w := io.Pipe()
	e := NewExpecter(r)

	io.WriteString(w, "\x1b[2J\x1b[Hcleared screen\n")
	w.Close()

	if err := e.WaitFor(context.Background(), 0, "cleared screen", time.Second); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(e.Transcript(0), "\x1b") {
		t.Error("escape sequences leaked into the transcript")
	}
}

func TestScreenText(t *testing.T) {
	r, w := io.Pipe()
	e := NewExpecter(r)

	io.WriteString(w, "top line\r\nsecond line\r\n")
	w.Close()

	waitClosed(t, e)

	screen := e.ScreenText()

	if !strings.Contains(screen, "top line") || !strings.Contains(screen, "second line") {
		t.Errorf("screen = %q", screen)
	}
}

func TestScreenReflectsClear(t *testing.T) {
	r, w := io.Pipe()
	e := NewExpecter(r)

	io.WriteString(w, "old content\r\n")
	io.WriteString(w, "\x1b[2J\x1b[Hfresh\r\n")
	w.Close()

	waitClosed(t, e)

	if e.ScreenContains("old content") {
		t.Error("cleared content still on screen")
	}

	if !e.ScreenContains("fresh") {
		t.Errorf("screen = %q", e.ScreenText())
	}

	// the transcript keeps the full history regardless
	if !strings.Contains(e.Transcript(0), "old content") {
		t.Error("transcript lost pre-clear output")
	}
}

func TestAssertCase(t *testing.T) {
	r, w := io.Pipe()
	e := NewExpecter(r)

	io.WriteString(w, "Allocated 32 bytes at 0x00000000001A0000\n")
	w.Close()

	tc := TestCase{
		Name: "alloc",
		Expect: Expectation{
			Contains:    []string{"Allocated 32 bytes at 0x"},
			NotContains: []string{"Allocation failed"},
			Timeout:     Duration(time.Second),
		},
	}

	if errs := AssertCase(context.Background(), e, tc, 0); len(errs) != 0 {
		t.Errorf("AssertCase errors: %v", errs)
	}

	tc.Expect.NotContains = []string{"Allocated"}

	if errs := AssertCase(context.Background(), e, tc, 0); len(errs) == 0 {
		t.Error("not_contains violation not reported")
	}
}

func waitClosed(t *testing.T, e *Expecter) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		e.mu.Lock()
		closed := e.closed
		e.mu.Unlock()

		if closed {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("expecter never saw EOF")
}
