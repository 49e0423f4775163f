// component_reset.go - Reset() methods for all hardware components (hard reset support)

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

// MachineBus.Reset clears RAM. Device mappings survive a reset.
func (m *MachineBus) Reset() {
	for i := range m.memory {
		m.memory[i] = 0
	}
}

// IntrUnit.Reset returns the front end to power-on state: interrupts
// off, no IDT, an empty routine registry. A halted context is
// released so the kernel can observe the reset and boot again; the
// stop latch is left alone.
func (iu *IntrUnit) Reset() {
	iu.intrEnabled.Store(false)
	iu.idtBase.Store(0)
	iu.idtLimit.Store(0)

	iu.mu.Lock()
	iu.routines = make(map[uint32]func())
	iu.nextCode = CODE_BASE
	iu.mu.Unlock()

	iu.resetSeq.Add(1)
	iu.WakeSignal()
}

// PICPair.Reset drops both controllers back to the uninitialised
// state, awaiting a fresh ICW sequence.
func (pp *PICPair) Reset() {
	pp.Master.reset()
	pp.Slave.reset()
}

// PIT8254.Reset clears the register file and parks channel 0.
// Preserves the ticker goroutine and the turbo factor.
func (t *PIT8254) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.chanSel = 0
	t.accessLoHi = false
	t.expectHigh = false
	t.reload = [3]uint16{}
	t.loadLow = 0
	t.armed = false

	select {
	case <-t.program:
	default:
	}
	t.program <- 0
}

// Keyb8042.Reset drops any queued scan codes.
func (k *Keyb8042) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.queue = k.queue[:0]
	k.lastCommand = 0
}

// VGAText.Reset blanks video memory. Preserves the output connection
// and the refresh loop.
func (v *VGAText) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vram = [VGA_TEXT_PAGE_SIZE]uint8{}
	v.dirty = true
}
