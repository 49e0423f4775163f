// runtime_status.go - Shared device references for the status overlays

package main

import "sync"

// runtimeStatusSnapshot carries the device references the frontends
// sample for their status displays. Fields are read without further
// locking; each device's own accessors are safe for that.
type runtimeStatusSnapshot struct {
	intr   *IntrUnit
	pit    *PIT8254
	pics   *PICPair
	kbc    *Keyb8042
	vga    *VGAText
	kernel *Kernel
}

type runtimeStatusStore struct {
	mu sync.RWMutex
	runtimeStatusSnapshot
}

func (s *runtimeStatusStore) setMachine(intr *IntrUnit, pit *PIT8254, pics *PICPair, kbc *Keyb8042, vga *VGAText, kernel *Kernel) {
	s.mu.Lock()
	s.intr = intr
	s.pit = pit
	s.pics = pics
	s.kbc = kbc
	s.vga = vga
	s.kernel = kernel
	s.mu.Unlock()
}

func (s *runtimeStatusStore) snapshot() runtimeStatusSnapshot {
	s.mu.RLock()
	snap := s.runtimeStatusSnapshot
	s.mu.RUnlock()
	return snap
}

var runtimeStatus = &runtimeStatusStore{}
