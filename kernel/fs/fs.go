// In-memory filesystem
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fs implements a tree-structured in-memory filesystem: directories
// hold a linked list of children, file content lives in object allocator
// buffers, and nodes come out of a static pool.
//
// Paths are byte slices so that lookups off the shell input buffer do not
// allocate; absolute (/foo/bar) and relative (foo/bar) forms are supported,
// with "." and ".." components. The root's parent is the root itself, which
// clamps ".." at the top of the tree.
package fs

import (
	"unsafe"

	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/console"
	"github.com/ZackZahi/rpi4-bare-metal-os/kernel/mem"
)

const (
	// NameMax is the node name capacity, including room for a terminator
	// in path reconstruction.
	NameMax = 32
	// PathMax is the longest path GetPath reconstructs.
	PathMax = 128
	// MaxNodes is the node pool capacity, files and directories
	// combined.
	MaxNodes = 64
	// MaxData is the file content cap; longer writes are truncated.
	MaxData = 4096
)

// NodeType distinguishes files from directories.
type NodeType int

const (
	FileNode NodeType = iota
	DirNode
)

// Node is a filesystem entry.
type Node struct {
	name    [NameMax]byte
	nameLen int

	typ    NodeType
	parent *Node

	// directories: linked list of children
	children    *Node
	nextSibling *Node

	// files: content in an object allocator buffer
	data uint
	size uint
}

// Name returns the node name.
func (n *Node) Name() []byte { return n.name[:n.nameLen] }

// Type returns the node type.
func (n *Node) Type() NodeType { return n.typ }

// Parent returns the enclosing directory; the root is its own parent.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the first child of a directory.
func (n *Node) Children() *Node { return n.children }

// NextSibling returns the next entry in the enclosing directory.
func (n *Node) NextSibling() *Node { return n.nextSibling }

// Size returns the file content length.
func (n *Node) Size() uint { return n.size }

// Data returns the file content.
func (n *Node) Data() []byte {
	if n.data == 0 || n.size == 0 {
		return nil
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(n.data))), n.size)
}

var nodePool [MaxNodes]Node
var nodesUsed int

var root *Node
var cwd *Node

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func allocNode(name []byte, typ NodeType) *Node {
	if nodesUsed >= MaxNodes {
		console.Puts("[fs] ERROR: node pool full\n")
		return nil
	}

	n := &nodePool[nodesUsed]
	nodesUsed++

	n.nameLen = copy(n.name[:NameMax-1], name)
	n.typ = typ
	n.parent = nil
	n.children = nil
	n.nextSibling = nil
	n.data = 0
	n.size = 0

	return n
}

// freeNode releases a node's content; pool slots are not reclaimed, which
// is acceptable for a 64 slot pool.
func freeNode(n *Node) {
	if n.data != 0 {
		mem.Free(n.data)
		n.data = 0
	}

	n.size = 0
	n.nameLen = 0
}

func addChild(dir, child *Node) {
	child.parent = dir
	child.nextSibling = dir.children
	dir.children = child
}

func removeChild(dir, child *Node) {
	pp := &dir.children

	for *pp != nil {
		if *pp == child {
			*pp = child.nextSibling
			child.nextSibling = nil
			child.parent = nil
			return
		}

		pp = &(*pp).nextSibling
	}
}

func findChild(dir *Node, name []byte) *Node {
	if dir == nil || dir.typ != DirNode {
		return nil
	}

	for c := dir.children; c != nil; c = c.nextSibling {
		if bytesEqual(c.Name(), name) {
			return c
		}
	}

	return nil
}

// nextComponent returns the next path component and the remaining path.
func nextComponent(path []byte) (comp, rest []byte) {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}

	i := 0

	for i < len(path) && path[i] != '/' {
		i++
	}

	if i > NameMax-1 {
		i = NameMax - 1
	}

	comp = path[:i]

	for i < len(path) && path[i] != '/' {
		i++
	}

	return comp, path[i:]
}

// Init resets the pool and creates the root directory, which becomes the
// working directory.
func Init() {
	for i := range nodePool {
		nodePool[i] = Node{typ: DirNode}
	}

	nodesUsed = 0

	root = allocNode([]byte{'/'}, DirNode)
	root.parent = root
	cwd = root
}

// Root returns the filesystem root.
func Root() *Node { return root }

// Cwd returns the working directory.
func Cwd() *Node { return cwd }

// SetCwd changes the working directory; non-directories are ignored.
func SetCwd(dir *Node) {
	if dir != nil && dir.typ == DirNode {
		cwd = dir
	}
}

func start(path []byte) (*Node, []byte) {
	if len(path) > 0 && path[0] == '/' {
		return root, path[1:]
	}

	return cwd, path
}

// Resolve returns the node at path, or nil when any component is missing.
// An empty path resolves to the working directory.
func Resolve(path []byte) *Node {
	if len(path) == 0 {
		return cwd
	}

	cur, rest := start(path)

	for len(rest) > 0 {
		var comp []byte
		comp, rest = nextComponent(rest)

		if len(comp) == 0 {
			break
		}

		if len(comp) == 1 && comp[0] == '.' {
			continue
		}

		if len(comp) == 2 && comp[0] == '.' && comp[1] == '.' {
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}

		child := findChild(cur, comp)

		if child == nil {
			return nil
		}

		cur = child
	}

	return cur
}

// resolveParent resolves the enclosing directory of path and returns it
// with the final component name.
func resolveParent(path []byte) (*Node, []byte) {
	cur, rest := start(path)

	// split parent path and basename at the last slash
	last := -1

	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			last = i
		}
	}

	if last < 0 {
		return cur, rest
	}

	base := rest[last+1:]
	walk := rest[:last]

	for len(walk) > 0 {
		var comp []byte
		comp, walk = nextComponent(walk)

		if len(comp) == 0 {
			break
		}

		if len(comp) == 1 && comp[0] == '.' {
			continue
		}

		if len(comp) == 2 && comp[0] == '.' && comp[1] == '.' {
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}

		child := findChild(cur, comp)

		if child == nil || child.typ != DirNode {
			return nil, base
		}

		cur = child
	}

	return cur, base
}

// Mkdir creates a directory, returning nil if the parent is missing, the
// name is empty or the entry already exists.
func Mkdir(path []byte) *Node {
	parent, base := resolveParent(path)

	if parent == nil || parent.typ != DirNode {
		console.Puts("mkdir: parent directory not found\n")
		return nil
	}

	if len(base) == 0 {
		console.Puts("mkdir: missing directory name\n")
		return nil
	}

	if findChild(parent, base) != nil {
		console.Puts("mkdir: entry already exists\n")
		return nil
	}

	dir := allocNode(base, DirNode)

	if dir == nil {
		return nil
	}

	addChild(parent, dir)
	return dir
}

// Rmdir removes an empty directory, returning -1 on any refusal.
func Rmdir(path []byte) int {
	node := Resolve(path)

	if node == nil {
		console.Puts("rmdir: not found\n")
		return -1
	}

	if node.typ != DirNode {
		console.Puts("rmdir: not a directory\n")
		return -1
	}

	if node == root {
		console.Puts("rmdir: cannot remove root\n")
		return -1
	}

	if node.children != nil {
		console.Puts("rmdir: directory not empty\n")
		return -1
	}

	if node == cwd {
		cwd = node.parent
	}

	removeChild(node.parent, node)
	freeNode(node)

	return 0
}

// Touch creates an empty file, or returns the existing node at path.
func Touch(path []byte) *Node {
	if existing := Resolve(path); existing != nil {
		return existing
	}

	parent, base := resolveParent(path)

	if parent == nil || parent.typ != DirNode {
		console.Puts("touch: parent directory not found\n")
		return nil
	}

	if len(base) == 0 {
		console.Puts("touch: missing filename\n")
		return nil
	}

	file := allocNode(base, FileNode)

	if file == nil {
		return nil
	}

	addChild(parent, file)
	return file
}

// Write replaces the content of the file at path, creating it first when
// absent. Content beyond MaxData is truncated.
func Write(path, content []byte) *Node {
	file := Resolve(path)

	if file == nil {
		file = Touch(path)

		if file == nil {
			return nil
		}
	}

	if file.typ != FileNode {
		console.Puts("write: not a file\n")
		return nil
	}

	if file.data != 0 {
		mem.Free(file.data)
		file.data = 0
		file.size = 0
	}

	n := uint(len(content))

	if n > MaxData {
		n = MaxData
	}

	if n > 0 {
		file.data = mem.Alloc(n)

		if file.data == 0 {
			console.Puts("write: allocation failed\n")
			return nil
		}

		buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(file.data))), n)
		copy(buf, content[:n])
		file.size = n
	}

	return file
}

// Read returns the content of the file at path, or nil with ok false when
// the path is missing or not a file.
func Read(path []byte) (data []byte, ok bool) {
	file := Resolve(path)

	if file == nil || file.typ != FileNode {
		return nil, false
	}

	return file.Data(), true
}

// Rm removes a file, returning -1 when path is missing or a directory.
func Rm(path []byte) int {
	node := Resolve(path)

	if node == nil {
		console.Puts("rm: not found\n")
		return -1
	}

	if node.typ == DirNode {
		console.Puts("rm: is a directory (use rmdir)\n")
		return -1
	}

	removeChild(node.parent, node)
	freeNode(node)

	return 0
}

// GetPath reconstructs the absolute path of a node into buf, returning the
// number of bytes written.
func GetPath(node *Node, buf []byte) int {
	if node == nil || len(buf) < 2 {
		return 0
	}

	if node == root {
		buf[0] = '/'
		return 1
	}

	// stack of ancestors up to the root
	var parts [16]*Node
	depth := 0

	for n := node; n != root && depth < len(parts); n = n.parent {
		parts[depth] = n
		depth++
	}

	w := 0

	for i := depth - 1; i >= 0; i-- {
		if w+1+parts[i].nameLen > len(buf) {
			break
		}

		buf[w] = '/'
		w++
		w += copy(buf[w:], parts[i].Name())
	}

	return w
}
