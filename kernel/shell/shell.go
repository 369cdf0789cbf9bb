// Kernel command shell
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package shell implements the serial console command interpreter: a single
// line prompt with editing, history and tab completion over a fixed verb
// set.
//
// The shell runs as task 0, the task that adopts the boot context.
package shell

import (
	"github.com/ZackZahi/rpi4-bare-metal-os/arm64"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/console"
)

const (
	lineMax    = 128
	historyMax = 16
)

const prompt = "rpi4> "

// Shell is the command interpreter state.
type Shell struct {
	// CPU is the boot core, used for delays and register dumps.
	CPU *arm64.CPU

	line    [lineMax]byte
	lineLen int

	hist     [historyMax][lineMax]byte
	histLen  [historyMax]int
	histHead int // next slot to write
	histSize int
	histNav  int // steps back while navigating, 0 = live line
}

// Run prints the prompt and interprets commands; it never returns.
func (s *Shell) Run() {
	for {
		console.Puts(prompt)
		line := s.readLine()
		s.process(line)
	}
}

// control bytes handled by the line editor
const (
	ctrlC = 0x03
	tab   = 0x09
	ctrlL = 0x0c
	ctrlU = 0x15
	esc   = 0x1b
	del   = 0x7f
	bs    = 0x08
)

func (s *Shell) readLine() []byte {
	s.lineLen = 0
	s.histNav = 0

	for {
		c := console.Getc()

		switch {
		case c == '\r' || c == '\n':
			console.Puts("\n")
			s.addHistory()
			return s.line[:s.lineLen]

		case c == del || c == bs:
			if s.lineLen > 0 {
				s.lineLen--
				console.Puts("\b \b")
			}

		case c == ctrlC:
			console.Puts("^C\n")
			s.lineLen = 0
			return s.line[:0]

		case c == ctrlU:
			s.eraseLine()

		case c == ctrlL:
			console.Puts("\033[2J\033[H")
			console.Puts(prompt)
			s.reprint()

		case c == tab:
			s.complete()

		case c == esc:
			s.escape()

		case c >= 0x20 && c < 0x7f:
			if s.lineLen < lineMax-1 {
				s.line[s.lineLen] = c
				s.lineLen++
				console.Putc(c)
			}
		}
	}
}

func (s *Shell) eraseLine() {
	for s.lineLen > 0 {
		s.lineLen--
		console.Puts("\b \b")
	}
}

func (s *Shell) reprint() {
	for i := 0; i < s.lineLen; i++ {
		console.Putc(s.line[i])
	}
}

// escape consumes a CSI sequence; Up and Down walk the history.
func (s *Shell) escape() {
	if console.Getc() != '[' {
		return
	}

	switch console.Getc() {
	case 'A':
		s.histWalk(1)
	case 'B':
		s.histWalk(-1)
	}
}

// addHistory records the current line; empty lines and a repeat of the most
// recent entry are not stored.
func (s *Shell) addHistory() {
	if s.lineLen == 0 {
		return
	}

	if s.histSize > 0 && string(s.histEntry(1)) == string(s.line[:s.lineLen]) {
		return
	}

	copy(s.hist[s.histHead][:], s.line[:s.lineLen])
	s.histLen[s.histHead] = s.lineLen
	s.histHead = (s.histHead + 1) % historyMax

	if s.histSize < historyMax {
		s.histSize++
	}
}

// histEntry returns the entry back steps into the past, 1 being the most
// recent command.
func (s *Shell) histEntry(back int) []byte {
	slot := (s.histHead - back + historyMax*2) % historyMax
	return s.hist[slot][:s.histLen[slot]]
}

func (s *Shell) histWalk(dir int) {
	nav := s.histNav + dir

	if nav < 0 || nav > s.histSize {
		return
	}

	s.histNav = nav
	s.eraseLine()

	if nav == 0 {
		return
	}

	entry := s.histEntry(nav)
	s.lineLen = copy(s.line[:], entry)
	s.reprint()
}

// complete extends the verb under the cursor when a single command matches;
// with several matches they are listed instead.
func (s *Shell) complete() {
	// only the first word completes
	for i := 0; i < s.lineLen; i++ {
		if s.line[i] == ' ' {
			return
		}
	}

	part := s.line[:s.lineLen]

	matches := 0
	var match string

	for _, cmd := range commands {
		if hasPrefix(cmd.name, part) {
			matches++
			match = cmd.name
		}
	}

	switch {
	case matches == 1:
		for i := s.lineLen; i < len(match) && s.lineLen < lineMax-1; i++ {
			s.line[s.lineLen] = match[i]
			s.lineLen++
			console.Putc(match[i])
		}

		if s.lineLen < lineMax-1 {
			s.line[s.lineLen] = ' '
			s.lineLen++
			console.Putc(' ')
		}

	case matches > 1:
		console.Puts("\n")

		for _, cmd := range commands {
			if hasPrefix(cmd.name, part) {
				console.Puts(cmd.name)
				console.Puts("  ")
			}
		}

		console.Puts("\n")
		console.Puts(prompt)
		s.reprint()
	}
}

func hasPrefix(s string, prefix []byte) bool {
	if len(prefix) > len(s) {
		return false
	}

	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}

	return true
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && b[0] == ' ' {
		b = b[1:]
	}

	for len(b) > 0 && b[len(b)-1] == ' ' {
		b = b[:len(b)-1]
	}

	return b
}

// splitWord separates the first word from the rest of the line.
func splitWord(b []byte) (word, rest []byte) {
	b = trimSpace(b)

	for i := 0; i < len(b); i++ {
		if b[i] == ' ' {
			return b[:i], trimSpace(b[i:])
		}
	}

	return b, nil
}

func wordIs(word []byte, s string) bool {
	if len(word) != len(s) {
		return false
	}

	for i := range word {
		if word[i] != s[i] {
			return false
		}
	}

	return true
}

func (s *Shell) process(line []byte) {
	verb, args := splitWord(line)

	if len(verb) == 0 {
		return
	}

	for i := range commands {
		if wordIs(verb, commands[i].name) {
			commands[i].run(s, args)
			return
		}
	}

	console.Puts("Unknown command: ")
	console.PutBytes(verb)
	console.Puts("\nType 'help' for available commands.\n")
}

// parseDec parses a decimal integer.
func parseDec(b []byte) (v uint64, ok bool) {
	if len(b) == 0 {
		return 0, false
	}

	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}

		v = v*10 + uint64(c-'0')
		ok = true
	}

	return v, ok
}

// parseHex parses a hexadecimal integer, with or without a 0x prefix.
func parseHex(b []byte) (v uint64, ok bool) {
	if len(b) >= 2 && b[0] == '0' && (b[1] == 'x' || b[1] == 'X') {
		b = b[2:]
	}

	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | uint64(c-'0')
		case c >= 'a' && c <= 'f':
			v = v<<4 | uint64(c-'a'+10)
		case c >= 'A' && c <= 'F':
			v = v<<4 | uint64(c-'A'+10)
		default:
			return v, ok
		}

		ok = true
	}

	return v, ok
}
