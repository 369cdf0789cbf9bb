// Integration test harness
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package integration boots the kernel image under qemu-system-aarch64 and
// drives its serial console, asserting on the transcript and on the
// rendered terminal screen.
package integration

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Suite defines a complete boot-and-drive test specification.
type Suite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Boot        BootConfig `yaml:"boot"`
	Tests       []TestCase `yaml:"tests"`
}

// BootConfig configures how the kernel is booted.
type BootConfig struct {
	// Image is the kernel image path (kernel8.img).
	Image string `yaml:"image"`
	// QEMU is the emulator binary, qemu-system-aarch64 by default.
	QEMU string `yaml:"qemu"`
	// Machine is the board model, raspi4b by default.
	Machine string `yaml:"machine"`
	// ReadyPrompt is the serial output marking boot completion.
	ReadyPrompt string `yaml:"ready_prompt"`
	// Timeout bounds the wait for ReadyPrompt.
	Timeout Duration `yaml:"timeout"`
}

// TestCase defines a single console interaction.
type TestCase struct {
	Name string `yaml:"name"`
	// Send is typed at the prompt, followed by a carriage return. An
	// empty Send only asserts on already produced output.
	Send   string      `yaml:"send"`
	Expect Expectation `yaml:"expect"`
	// SettleMS delays the expectation checks, for commands whose output
	// spreads over multiple ticks.
	SettleMS int `yaml:"settle_ms"`
}

// Expectation defines expected console output.
type Expectation struct {
	// Contains must all appear in the ANSI-stripped transcript produced
	// after the command was sent.
	Contains []string `yaml:"contains"`
	// NotContains must not appear in that transcript window.
	NotContains []string `yaml:"not_contains"`
	// ScreenContains must appear on the rendered terminal screen, for
	// full-screen output such as the top monitor.
	ScreenContains []string `yaml:"screen_contains"`
	// Timeout bounds the wait for each Contains entry.
	Timeout Duration `yaml:"timeout"`
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	if s == "" {
		return nil
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Defaults applied to loaded suites.
const (
	DefaultQEMU        = "qemu-system-aarch64"
	DefaultMachine     = "raspi4b"
	DefaultReadyPrompt = "rpi4> "

	DefaultBootTimeout   = 30 * time.Second
	DefaultExpectTimeout = 10 * time.Second
)

// LoadSuite reads and validates a YAML suite specification.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite %s: %w", path, err)
	}

	if s.Name == "" {
		return nil, fmt.Errorf("suite %s: missing name", path)
	}

	if s.Boot.QEMU == "" {
		s.Boot.QEMU = DefaultQEMU
	}

	if s.Boot.Machine == "" {
		s.Boot.Machine = DefaultMachine
	}

	if s.Boot.ReadyPrompt == "" {
		s.Boot.ReadyPrompt = DefaultReadyPrompt
	}

	if s.Boot.Timeout == 0 {
		s.Boot.Timeout = Duration(DefaultBootTimeout)
	}

	for i := range s.Tests {
		if s.Tests[i].Name == "" {
			return nil, fmt.Errorf("suite %s: test %d: missing name", path, i)
		}

		if s.Tests[i].Expect.Timeout == 0 {
			s.Tests[i].Expect.Timeout = Duration(DefaultExpectTimeout)
		}
	}

	return &s, nil
}
