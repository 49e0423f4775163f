// kernel_keyboard.go - Keyboard driver: scancode decode and the pending key slot

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import "sync/atomic"

// Set 1 make code to ASCII. Break codes are masked to their make code
// before the lookup, so a release decodes to the same character as
// the press; the pressed flag tells them apart. Unmapped codes
// decode to zero.
var scancodeTable = [128]byte{
	0, 27, '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '-', '=', '\b',
	'\t', 'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p', '[', ']', '\n', 0,
	'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', '\'', '`', 0, '\\',
	'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/', 0, '*', 0, ' ',
}

// makeCodeForChar inverts scancodeTable so host frontends can turn a
// character back into the make code that produces it. First mapping
// wins; characters with no key decode to zero.
var makeCodeForChar [128]uint8

func init() {
	for code, ch := range scancodeTable {
		if ch == 0 || ch >= 128 {
			continue
		}
		if makeCodeForChar[ch] == 0 {
			makeCodeForChar[ch] = uint8(code)
		}
	}
}

// KeyEvent is one decoded keyboard event.
type KeyEvent struct {
	Scancode uint8 // raw byte from the controller, break bit included
	Char     byte  // ASCII translation, zero when unmapped
	Pressed  bool
}

/*
KeybDriver owns IRQ1. The handler reads the scancode from the
controller, decodes it and stores the whole event in the single
pending slot; the main loop polls the slot once per pass. The slot is
one 32-bit word holding a valid bit, the pressed flag, the raw
scancode and the decoded character, written with one atomic store and
consumed with one atomic swap. A new event before the old one is
polled simply replaces it, and a poll can never observe half an
event.

Slot layout: bit 31 valid, bit 16 pressed, bits 8-15 raw scancode,
bits 0-7 character.
*/
type KeybDriver struct {
	bus *MachineBus
	cpu *IntrUnit
	pic *PICDriver
	irq *IRQDispatcher

	pending atomic.Uint32
}

const (
	keySlotValid   = 1 << 31
	keySlotPressed = 1 << 16
)

func NewKeybDriver(bus *MachineBus, cpu *IntrUnit, pic *PICDriver, irq *IRQDispatcher) *KeybDriver {
	return &KeybDriver{bus: bus, cpu: cpu, pic: pic, irq: irq}
}

// Init hooks IRQ1 under cli.
func (k *KeybDriver) Init() {
	k.cpu.DisableInterrupts()
	k.irq.Register(1, k.HandleIRQ)
	k.cpu.EnableInterrupts()
}

// HandleIRQ is the IRQ1 handler: fetch, decode, publish, retire.
func (k *KeybDriver) HandleIRQ() {
	scancode := k.bus.In8(KEYB_DATA)

	code := scancode & 0x7F
	var char byte
	if code > 0 {
		char = scancodeTable[code]
	}

	word := uint32(keySlotValid)
	if scancode&SCANCODE_BREAK == 0 {
		word |= keySlotPressed
	}
	word |= uint32(scancode)<<8 | uint32(char)
	k.pending.Store(word)

	k.pic.Acknowledge(1)
}

// Poll takes the pending event, clearing the slot. The second return
// is false when no event arrived since the last poll.
func (k *KeybDriver) Poll() (KeyEvent, bool) {
	word := k.pending.Swap(0)
	if word&keySlotValid == 0 {
		return KeyEvent{}, false
	}
	return KeyEvent{
		Scancode: uint8(word >> 8),
		Char:     byte(word),
		Pressed:  word&keySlotPressed != 0,
	}, true
}
