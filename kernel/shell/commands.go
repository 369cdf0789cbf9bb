// Kernel command shell
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"github.com/ZackZahi/rpi4-bare-metal-os/arm64"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/console"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/fs"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/mem"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/sched"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/smp"
)

type command struct {
	name string
	help string
	run  func(s *Shell, args []byte)
}

var commands []command

func init() {
	commands = []command{
		{"help", "Show this help message", cmdHelp},
		{"time", "Show current tick count", cmdTime},
		{"info", "Show system information", cmdInfo},
		{"clear", "Clear screen", cmdClear},
		{"ps", "List all tasks", cmdPS},
		{"spawn", "Launch demo tasks (counter + spinner)", cmdSpawn},
		{"kill", "Kill task by id: kill <id>", cmdKill},
		{"top", "Live system monitor (any key exits)", cmdTop},
		{"memtest", "Launch memory test task", cmdMemtest},
		{"mem", "Show memory statistics", cmdMem},
		{"alloc", "Allocate N bytes: alloc <n>", cmdAlloc},
		{"pgalloc", "Allocate a 4KB page", cmdPgalloc},
		{"pgfree", "Free page: pgfree <hex address>", cmdPgfree},
		{"mmu", "Show MMU configuration", cmdMMU},
		{"ls", "List directory: ls [path]", cmdLs},
		{"cd", "Change directory: cd [path]", cmdCd},
		{"pwd", "Print working directory", cmdPwd},
		{"mkdir", "Create directory: mkdir <path>", cmdMkdir},
		{"rmdir", "Remove empty directory: rmdir <path>", cmdRmdir},
		{"touch", "Create empty file: touch <path>", cmdTouch},
		{"cat", "Print file contents: cat <path>", cmdCat},
		{"write", "Write file: write <path> <text>", cmdWrite},
		{"rm", "Remove file: rm <path>", cmdRm},
		{"history", "Show command history", cmdHistory},
	}
}

func cmdHelp(s *Shell, args []byte) {
	console.Puts("Available commands:\n")

	for _, cmd := range commands {
		console.Puts("  ")
		console.Puts(cmd.name)

		for i := len(cmd.name); i < 10; i++ {
			console.Putc(' ')
		}

		console.Puts("- ")
		console.Puts(cmd.help)
		console.Puts("\n")
	}
}

func cmdTime(s *Shell, args []byte) {
	ticks := arm64.TickCount()

	console.Puts("Uptime: ")
	console.PutDec(ticks / 10)
	console.Puts(" seconds (")
	console.PutDec(ticks)
	console.Puts(" ticks)\n")
}

func cmdInfo(s *Shell, args []byte) {
	console.Puts("Raspberry Pi 4 Bare Metal OS\n")
	console.Puts("CPU: ARM Cortex-A72 (ARMv8-A), ")
	console.PutDec(uint64(smp.OnlineCount()))
	console.Puts(" cores online\n")
	console.Puts("Timer frequency: ")
	console.PutDec(s.CPU.Frequency())
	console.Puts(" Hz\n")
	console.Puts("Scheduler: preemptive round-robin (100ms quantum)\n")
	console.Puts("Max tasks: ")
	console.PutDec(sched.MaxTasks)
	console.Puts("\n")
	console.Puts("Total memory: ")
	console.PutDec(uint64(mem.TotalPages() * mem.PageSize / (1024 * 1024)))
	console.Puts(" MB (")
	console.PutDec(uint64(mem.TotalPages()))
	console.Puts(" pages)\n")
	console.Puts("Free memory:  ")
	console.PutDec(uint64(mem.FreePages() * mem.PageSize / (1024 * 1024)))
	console.Puts(" MB (")
	console.PutDec(uint64(mem.FreePages()))
	console.Puts(" pages)\n")
}

func cmdClear(s *Shell, args []byte) {
	console.Puts("\033[2J\033[H")
}

func cmdPS(s *Shell, args []byte) {
	pool := sched.Tasks()

	console.Puts("ID  NAME            STATE\n")
	console.Puts("--  ----            -----\n")

	for i := range pool {
		t := &pool[i]

		if t.State() == sched.Dead && i != 0 {
			continue
		}

		console.PutDec(uint64(t.ID()))

		if t.ID() < 10 {
			console.Puts("   ")
		} else {
			console.Puts("  ")
		}

		console.Puts(t.Name())

		for j := len(t.Name()); j < 16; j++ {
			console.Putc(' ')
		}

		console.Puts(t.State().String())

		if t == sched.Current() {
			console.Puts(" <-- current")
		}

		console.Puts("\n")
	}
}

func cmdSpawn(s *Shell, args []byte) {
	console.Puts("Spawning 'counter' and 'spinner' tasks...\n")
	sched.Create(taskCounter, "counter")
	sched.Create(taskSpinner, "spinner")
}

func cmdKill(s *Shell, args []byte) {
	id, ok := parseDec(args)

	if !ok {
		console.Puts("Usage: kill <id>\n")
		return
	}

	if id == 0 {
		console.Puts("cannot kill shell\n")
		return
	}

	if cur := sched.Current(); cur != nil && uint64(cur.ID()) == id {
		console.Puts("cannot kill the running task\n")
		return
	}

	if sched.Kill(uint32(id)) != 0 {
		console.Puts("kill: no such task\n")
		return
	}

	console.Puts("Killed task ")
	console.PutDec(id)
	console.Puts("\n")
}

func cmdTop(s *Shell, args []byte) {
	for {
		console.Puts("\033[2J\033[H")
		console.Puts("RPi4 OS monitor — press any key to exit\n\n")

		console.Puts("Uptime: ")
		console.PutDec(arm64.TickCount() / 10)
		console.Puts(" seconds\n\n")

		console.Puts("CORE  ONLINE  TICKS       TASKS\n")

		for i := uint32(0); i < smp.NumCores; i++ {
			c := smp.CoreInfo(i)

			console.PutDec(uint64(i))
			console.Puts("     ")

			if c.Online {
				console.Puts("yes     ")
			} else {
				console.Puts("no      ")
			}

			console.PutDec(c.Ticks)
			console.Puts("           ")
			console.PutDec(c.TasksRun)
			console.Puts("\n")
		}

		console.Puts("\n")
		cmdPS(s, nil)

		// poll for a keystroke between refreshes
		for i := 0; i < 10; i++ {
			if _, ok := console.TryGetc(); ok {
				console.Puts("\n")
				return
			}

			s.CPU.DelayMS(50)
		}
	}
}

func cmdMemtest(s *Shell, args []byte) {
	console.Puts("Spawning 'memtest' task...\n")
	sched.Create(taskMemtest, "memtest")
}

func cmdMem(s *Shell, args []byte) {
	console.Puts("Memory statistics:\n")
	console.Puts("  Total pages: ")
	console.PutDec(uint64(mem.TotalPages()))
	console.Puts(" (")
	console.PutDec(uint64(mem.TotalPages() * mem.PageSize / (1024 * 1024)))
	console.Puts(" MB)\n")
	console.Puts("  Used pages:  ")
	console.PutDec(uint64(mem.UsedPages()))
	console.Puts(" (")
	console.PutDec(uint64(mem.UsedPages() * mem.PageSize / 1024))
	console.Puts(" KB)\n")
	console.Puts("  Free pages:  ")
	console.PutDec(uint64(mem.FreePages()))
	console.Puts(" (")
	console.PutDec(uint64(mem.FreePages() * mem.PageSize / (1024 * 1024)))
	console.Puts(" MB)\n")
}

func cmdAlloc(s *Shell, args []byte) {
	size, ok := parseDec(args)

	if !ok || size == 0 {
		console.Puts("Usage: alloc <size>\n")
		return
	}

	ptr := mem.Alloc(uint(size))

	if ptr == 0 {
		console.Puts("Allocation failed!\n")
		return
	}

	console.Puts("Allocated ")
	console.PutDec(size)
	console.Puts(" bytes at ")
	console.PutHex(uint64(ptr))
	console.Puts("\n")
}

func cmdPgalloc(s *Shell, args []byte) {
	page := mem.PageAlloc()

	if page == 0 {
		console.Puts("Page allocation failed!\n")
		return
	}

	console.Puts("Allocated page at ")
	console.PutHex(uint64(page))
	console.Puts("\n")
}

func cmdPgfree(s *Shell, args []byte) {
	addr, ok := parseHex(args)

	if !ok || addr == 0 {
		console.Puts("Usage: pgfree <hex_address>\n")
		return
	}

	mem.PageFree(uint(addr))
	console.Puts("Freed page at ")
	console.PutHex(addr)
	console.Puts("\n")
}

func cmdMMU(s *Shell, args []byte) {
	s.CPU.DumpConfig(console.Default)
}

func cmdLs(s *Shell, args []byte) {
	var dir *fs.Node

	if len(args) == 0 {
		dir = fs.Cwd()
	} else {
		dir = fs.Resolve(args)
	}

	if dir == nil {
		console.Puts("ls: not found\n")
		return
	}

	if dir.Type() == fs.FileNode {
		console.PutBytes(dir.Name())
		console.Puts("  (")
		console.PutDec(uint64(dir.Size()))
		console.Puts(" bytes)\n")
		return
	}

	child := dir.Children()

	if child == nil {
		console.Puts("(empty)\n")
		return
	}

	for ; child != nil; child = child.NextSibling() {
		console.Puts("  ")
		console.PutBytes(child.Name())

		if child.Type() == fs.DirNode {
			console.Puts("/\n")
		} else {
			console.Puts("  (")
			console.PutDec(uint64(child.Size()))
			console.Puts(" bytes)\n")
		}
	}
}

func cmdCd(s *Shell, args []byte) {
	if len(args) == 0 {
		fs.SetCwd(fs.Root())
		return
	}

	dir := fs.Resolve(args)

	if dir == nil {
		console.Puts("cd: not found\n")
		return
	}

	if dir.Type() != fs.DirNode {
		console.Puts("cd: not a directory\n")
		return
	}

	fs.SetCwd(dir)
}

func cmdPwd(s *Shell, args []byte) {
	var buf [fs.PathMax]byte

	n := fs.GetPath(fs.Cwd(), buf[:])
	console.PutBytes(buf[:n])
	console.Puts("\n")
}

func cmdMkdir(s *Shell, args []byte) {
	if len(args) == 0 {
		console.Puts("Usage: mkdir <path>\n")
		return
	}

	fs.Mkdir(args)
}

func cmdRmdir(s *Shell, args []byte) {
	if len(args) == 0 {
		console.Puts("Usage: rmdir <path>\n")
		return
	}

	fs.Rmdir(args)
}

func cmdTouch(s *Shell, args []byte) {
	if len(args) == 0 {
		console.Puts("Usage: touch <path>\n")
		return
	}

	fs.Touch(args)
}

func cmdCat(s *Shell, args []byte) {
	if len(args) == 0 {
		console.Puts("Usage: cat <path>\n")
		return
	}

	data, ok := fs.Read(args)

	if !ok {
		console.Puts("cat: not found\n")
		return
	}

	console.PutBytes(data)

	if len(data) > 0 && data[len(data)-1] != '\n' {
		console.Puts("\n")
	}
}

func cmdWrite(s *Shell, args []byte) {
	path, text := splitWord(args)

	if len(path) == 0 || len(text) == 0 {
		console.Puts("Usage: write <path> <text>\n")
		return
	}

	fs.Write(path, text)
}

func cmdRm(s *Shell, args []byte) {
	if len(args) == 0 {
		console.Puts("Usage: rm <path>\n")
		return
	}

	fs.Rm(args)
}

func cmdHistory(s *Shell, args []byte) {
	for i := s.histSize; i >= 1; i-- {
		console.PutDec(uint64(s.histSize - i + 1))
		console.Puts("  ")
		console.PutBytes(s.histEntry(i))
		console.Puts("\n")
	}
}
