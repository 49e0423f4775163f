// keyb_8042.go - 8042 keyboard controller (scancode queue, IRQ1)

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import "sync"

// The controller buffers this many scancode bytes; further bytes are
// dropped until the kernel drains the queue. The real part drops too,
// it just beeps about it.
const KEYB_QUEUE_DEPTH = 16

/*
Keyb8042 models the AT keyboard controller. Display frontends and the
script driver inject set 1 scancodes via Press and Release; the
controller queues them, asserts IRQ1, and hands them to the kernel one
byte at a time through port 0x60. Reading a byte re-pulses IRQ1 while
the queue is non-empty, which is how the real controller keeps the
kernel draining it. Port 0x64 exposes the status register; only the
output-buffer-full bit changes.
*/
type Keyb8042 struct {
	mu    sync.Mutex
	queue []uint8

	lastCommand uint8
	onIRQ       func()
}

func NewKeyb8042(onIRQ func()) *Keyb8042 {
	return &Keyb8042{
		queue: make([]uint8, 0, KEYB_QUEUE_DEPTH),
		onIRQ: onIRQ,
	}
}

// Press queues the make code for a key.
func (k *Keyb8042) Press(scancode uint8) {
	k.inject(scancode &^ SCANCODE_BREAK)
}

// Release queues the break code for a key.
func (k *Keyb8042) Release(scancode uint8) {
	k.inject(scancode | SCANCODE_BREAK)
}

func (k *Keyb8042) inject(code uint8) {
	k.mu.Lock()
	if len(k.queue) >= KEYB_QUEUE_DEPTH {
		k.mu.Unlock()
		return
	}
	k.queue = append(k.queue, code)
	k.mu.Unlock()

	if k.onIRQ != nil {
		k.onIRQ()
	}
}

func (k *Keyb8042) HandleIn(port uint16) uint8 {
	switch port {
	case KEYB_DATA:
		k.mu.Lock()
		if len(k.queue) == 0 {
			k.mu.Unlock()
			return 0
		}
		code := k.queue[0]
		k.queue = k.queue[1:]
		refire := len(k.queue) > 0
		k.mu.Unlock()

		if refire && k.onIRQ != nil {
			k.onIRQ()
		}
		return code
	case KEYB_STATUS:
		k.mu.Lock()
		defer k.mu.Unlock()
		// System flag and keyboard-unlocked are always up after POST.
		status := uint8(0x14)
		if len(k.queue) > 0 {
			status |= KEYB_STATUS_OBF
		}
		return status
	}
	return 0xFF
}

// HandleOut accepts controller and device commands. The kernel never
// sends any, so they are latched and otherwise ignored.
func (k *Keyb8042) HandleOut(port uint16, value uint8) {
	if port == KEYB_STATUS {
		k.mu.Lock()
		k.lastCommand = value
		k.mu.Unlock()
	}
}

// Buffered reports queued bytes, for the status display.
func (k *Keyb8042) Buffered() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.queue)
}

