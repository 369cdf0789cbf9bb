// ARM64 processor support
// https://github.com/ZackZahi/rpi4-bare-metal-os
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

// Spinlock is a test-and-set lock over the ARMv8 exclusives, usable across
// cores. The zero value is an unlocked lock.
//
// Contended acquisition waits with WFE; release is a store-release followed
// by SEV so that waiters observe it promptly.
type Spinlock struct {
	lock uint32
}

// Lock acquires the lock, spinning until it is available.
func (l *Spinlock) Lock() {
	spin_lock(&l.lock)
}

// Unlock releases the lock.
func (l *Spinlock) Unlock() {
	spin_unlock(&l.lock)
}
