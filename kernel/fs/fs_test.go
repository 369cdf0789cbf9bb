// In-memory filesystem
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fs

import (
	"bytes"
	"runtime"
	"testing"
	"unsafe"

	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/mem"
)

// reset rebuilds the filesystem over an arena-backed allocator.
func reset(t *testing.T) {
	t.Helper()

	const pages = 256

	arena := make([]byte, pages/8+2*mem.PageSize+pages*mem.PageSize)

	old := mem.Default

	mem.Default = &mem.Allocator{
		Base:  uint(uintptr(unsafe.Pointer(&arena[0]))),
		Pages: pages,
	}

	mem.Default.Init()

	t.Cleanup(func() {
		mem.Default = old
		runtime.KeepAlive(arena)
	})

	Init()
}

func TestInit(t *testing.T) {
	reset(t)

	if Root() == nil || Cwd() != Root() {
		t.Fatal("cwd must start at root")
	}

	if Root().Parent() != Root() {
		t.Error("root's parent must be root")
	}

	if Root().Type() != DirNode {
		t.Error("root must be a directory")
	}
}

func TestDotDotClampsAtRoot(t *testing.T) {
	reset(t)

	if got := Resolve([]byte("/..")); got != Root() {
		t.Errorf("Resolve(/..) = %v", got)
	}

	if got := Resolve([]byte("/../../..")); got != Root() {
		t.Errorf("Resolve(/../../..) = %v", got)
	}
}

func TestMkdirResolve(t *testing.T) {
	reset(t)

	a := Mkdir([]byte("/a"))

	if a == nil {
		t.Fatal("Mkdir(/a) = nil")
	}

	b := Mkdir([]byte("/a/b"))

	if b == nil {
		t.Fatal("Mkdir(/a/b) = nil")
	}

	if got := Resolve([]byte("/a/b")); got != b {
		t.Errorf("Resolve(/a/b) = %v", got)
	}

	if b.Parent() != a {
		t.Error("parent link broken")
	}

	// relative resolution from a changed working directory
	SetCwd(a)

	if got := Resolve([]byte("b")); got != b {
		t.Errorf("relative Resolve(b) = %v", got)
	}

	if got := Resolve([]byte("../a/./b")); got != b {
		t.Errorf("Resolve(../a/./b) = %v", got)
	}
}

func TestMkdirErrors(t *testing.T) {
	reset(t)

	if Mkdir([]byte("/x/y/z")) != nil {
		t.Error("mkdir with missing parent must fail")
	}

	Mkdir([]byte("/a"))

	if Mkdir([]byte("/a")) != nil {
		t.Error("mkdir over an existing entry must fail")
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	reset(t)

	Mkdir([]byte("/a"))
	Mkdir([]byte("/a/b"))

	for _, content := range []string{
		"x",
		"hello world",
		string(bytes.Repeat([]byte("0123456789abcdef"), 256)), // MaxData exactly
	} {
		if Write([]byte("/a/b/c"), []byte(content)) == nil {
			t.Fatalf("Write %d bytes failed", len(content))
		}

		data, ok := Read([]byte("/a/b/c"))

		if !ok {
			t.Fatal("Read failed after write")
		}

		if string(data) != content {
			t.Errorf("roundtrip mismatch: %d bytes in, %d out", len(content), len(data))
		}
	}
}

func TestWriteTruncatesAtMaxData(t *testing.T) {
	reset(t)

	long := bytes.Repeat([]byte{'x'}, MaxData+100)

	if Write([]byte("/f"), long) == nil {
		t.Fatal("Write failed")
	}

	data, ok := Read([]byte("/f"))

	if !ok || len(data) != MaxData {
		t.Errorf("len = %d, want %d", len(data), MaxData)
	}
}

func TestWriteReplacesContent(t *testing.T) {
	reset(t)

	Write([]byte("/f"), []byte("first version"))
	Write([]byte("/f"), []byte("second"))

	data, _ := Read([]byte("/f"))

	if string(data) != "second" {
		t.Errorf("Read = %q", data)
	}
}

func TestTouch(t *testing.T) {
	reset(t)

	f := Touch([]byte("/empty"))

	if f == nil || f.Type() != FileNode || f.Size() != 0 {
		t.Fatalf("Touch = %+v", f)
	}

	// touching an existing node returns it
	if Touch([]byte("/empty")) != f {
		t.Error("Touch did not return the existing node")
	}

	data, ok := Read([]byte("/empty"))

	if !ok || len(data) != 0 {
		t.Errorf("empty file read = %q, %v", data, ok)
	}
}

func TestReadErrors(t *testing.T) {
	reset(t)

	if _, ok := Read([]byte("/nope")); ok {
		t.Error("Read of a missing path succeeded")
	}

	Mkdir([]byte("/d"))

	if _, ok := Read([]byte("/d")); ok {
		t.Error("Read of a directory succeeded")
	}
}

func TestRm(t *testing.T) {
	reset(t)

	Write([]byte("/f"), []byte("data"))

	if Rm([]byte("/f")) != 0 {
		t.Fatal("Rm failed")
	}

	if Resolve([]byte("/f")) != nil {
		t.Error("removed file still resolves")
	}

	if Rm([]byte("/f")) != -1 {
		t.Error("Rm of a missing file succeeded")
	}

	Mkdir([]byte("/d"))

	if Rm([]byte("/d")) != -1 {
		t.Error("Rm of a directory succeeded")
	}
}

func TestRmdir(t *testing.T) {
	reset(t)

	Mkdir([]byte("/d"))
	Mkdir([]byte("/d/sub"))

	if Rmdir([]byte("/d")) != -1 {
		t.Error("Rmdir of a non-empty directory succeeded")
	}

	if Rmdir([]byte("/")) != -1 {
		t.Error("Rmdir of root succeeded")
	}

	if Rmdir([]byte("/d/sub")) != 0 {
		t.Error("Rmdir of an empty directory failed")
	}

	if Resolve([]byte("/d/sub")) != nil {
		t.Error("removed directory still resolves")
	}
}

func TestRmdirMovesCwdUp(t *testing.T) {
	reset(t)

	d := Mkdir([]byte("/d"))
	SetCwd(d)

	if Rmdir([]byte("/d")) != 0 {
		t.Fatal("Rmdir failed")
	}

	if Cwd() != Root() {
		t.Error("cwd not moved to parent after removal")
	}
}

func TestGetPath(t *testing.T) {
	reset(t)

	Mkdir([]byte("/a"))
	b := Mkdir([]byte("/a/b"))

	var buf [PathMax]byte

	if n := GetPath(Root(), buf[:]); string(buf[:n]) != "/" {
		t.Errorf("GetPath(root) = %q", buf[:n])
	}

	if n := GetPath(b, buf[:]); string(buf[:n]) != "/a/b" {
		t.Errorf("GetPath(b) = %q", buf[:n])
	}
}

func TestNodePoolExhaustion(t *testing.T) {
	reset(t)

	created := 0

	for i := 0; i < MaxNodes+8; i++ {
		var name [8]byte
		n := copy(name[:], "d")
		n += copy(name[n:], []byte{byte('a' + i/26), byte('a' + i%26)})

		if Mkdir(append([]byte("/"), name[:n]...)) != nil {
			created++
		}
	}

	// the root consumed one slot at init
	if created != MaxNodes-1 {
		t.Errorf("created %d directories, want %d", created, MaxNodes-1)
	}
}

func TestSetCwdIgnoresFiles(t *testing.T) {
	reset(t)

	f := Touch([]byte("/f"))

	SetCwd(f)

	if Cwd() != Root() {
		t.Error("cwd changed to a file")
	}
}
