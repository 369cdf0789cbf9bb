// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !rpi4

package arm64

import (
	"testing"
)

func resetTimer() {
	tickCount = 0
	timerInterval = 0
	mock.CNTFRQ = 54000000
	mock.CNTPCT = 0
	mock.CNTP_CTL = 0
	mock.CNTP_TVAL = 0
	mock.CounterStep = 1
}

func TestInitPeriodicTimer(t *testing.T) {
	resetTimer()

	cpu := &CPU{}
	cpu.InitPeriodicTimer(100)

	want := uint64(54000000 / 1000 * 100)

	if cpu.TimerInterval != want {
		t.Errorf("TimerInterval = %d, want %d", cpu.TimerInterval, want)
	}

	if mock.CNTP_TVAL != want {
		t.Errorf("CNTP_TVAL = %d, want %d", mock.CNTP_TVAL, want)
	}

	if mock.CNTP_CTL != CNTP_CTL_ENABLE {
		t.Errorf("CNTP_CTL = %#x, want enabled with IRQ unmasked", mock.CNTP_CTL)
	}
}

func TestHandleTimerIRQ(t *testing.T) {
	resetTimer()

	cpu := &CPU{}
	cpu.InitPeriodicTimer(100)

	mock.CNTP_CTL |= CNTP_CTL_ISTATUS

	if !cpu.TimerExpired() {
		t.Fatal("TimerExpired() = false with ISTATUS set")
	}

	cpu.HandleTimerIRQ()

	if TickCount() != 1 {
		t.Errorf("TickCount() = %d", TickCount())
	}

	// re-arming writes TVAL, which clears the timer condition
	if cpu.TimerExpired() {
		t.Error("timer still expired after re-arm")
	}

	if mock.CNTP_TVAL != cpu.TimerInterval {
		t.Errorf("CNTP_TVAL = %d after re-arm", mock.CNTP_TVAL)
	}

	cpu.HandleTimerIRQ()
	cpu.HandleTimerIRQ()

	if TickCount() != 3 {
		t.Errorf("TickCount() = %d, want 3", TickCount())
	}
}

func TestReArmFallback(t *testing.T) {
	resetTimer()

	// a core that missed InitPeriodicTimer still re-arms with the
	// 100 ms default computed from the hardware frequency
	cpu := &CPU{}
	cpu.ReArmTimer()

	if want := uint64(54000000 / 1000 * 100); mock.CNTP_TVAL != want {
		t.Errorf("CNTP_TVAL = %d, want %d", mock.CNTP_TVAL, want)
	}
}

func TestDelayMS(t *testing.T) {
	resetTimer()

	mock.CounterStep = 54000 // 1 ms of counter per read

	cpu := &CPU{}

	before := cpu.Counter()
	cpu.DelayMS(5)
	after := cpu.Counter()

	if elapsed := after - before; elapsed < 5*54000 {
		t.Errorf("DelayMS(5) waited only %d cycles", elapsed)
	}
}
