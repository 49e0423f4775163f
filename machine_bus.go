// machine_bus.go - System bus: conventional RAM, memory-mapped I/O and the x86 port space

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

/*
machine_bus.go - System Bus

This module implements the bus that connects the kernel to the machine. It
models the two address spaces of a real PC/AT: a 1MB memory space holding
conventional RAM plus the VGA text window, and the separate 64K x86 I/O port
space where the interrupt controllers, the timer and the keyboard controller
live. Devices claim ranges in either space during machine assembly; once the
machine starts, the dispatch tables are sealed and accesses need no locking.

Reads from memory or ports that no device claims float to all-ones, matching
an unterminated ISA bus. Wider memory cycles against a device window are
split into byte cycles, so device handlers only ever see bytes.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

const (
	PAGE_SIZE = 0x100 // I/O dispatch granularity, bytes
)

// IORegion describes a memory-mapped device window.
type IORegion struct {
	start, end uint32
	onRead     func(addr uint32) uint8
	onWrite    func(addr uint32, value uint8)
}

// PortRegion describes a range of I/O ports claimed by a device.
type PortRegion struct {
	start, end uint16
	onIn       func(port uint16) uint8
	onOut      func(port uint16, value uint8)
}

type MachineBus struct {
	memory []byte

	mapping      map[uint32][]IORegion
	ioPageBitmap []bool

	portMapping    map[uint32][]PortRegion
	portPageBitmap []bool

	sealed atomic.Bool
}

func NewMachineBus() *MachineBus {
	return &MachineBus{
		memory:         make([]byte, RAM_SIZE),
		mapping:        make(map[uint32][]IORegion),
		ioPageBitmap:   make([]bool, RAM_SIZE/PAGE_SIZE),
		portMapping:    make(map[uint32][]PortRegion),
		portPageBitmap: make([]bool, 0x10000/PAGE_SIZE),
	}
}

/*
SealMappings freezes both dispatch tables. The machine calls this once
assembly is complete; any later MapIO or MapPorts call is a wiring bug
and panics.
*/
func (m *MachineBus) SealMappings() {
	m.sealed.CompareAndSwap(false, true)
}

// MapIO registers byte handlers for a memory range. Dispatch is page
// granular; handlers still receive the exact address.
func (m *MachineBus) MapIO(start, end uint32, onRead func(uint32) uint8, onWrite func(uint32, uint8)) {
	if m.sealed.Load() {
		panic(fmt.Sprintf("MapIO called after machine start (mapping range 0x%05X-0x%05X)", start, end))
	}
	region := IORegion{start: start, end: end, onRead: onRead, onWrite: onWrite}
	for page := start / PAGE_SIZE; page <= end/PAGE_SIZE; page++ {
		m.mapping[page] = append(m.mapping[page], region)
		if int(page) < len(m.ioPageBitmap) {
			m.ioPageBitmap[page] = true
		}
	}
}

// MapPorts registers a device on a range of I/O ports.
func (m *MachineBus) MapPorts(start, end uint16, onIn func(uint16) uint8, onOut func(uint16, uint8)) {
	if m.sealed.Load() {
		panic(fmt.Sprintf("MapPorts called after machine start (port range 0x%03X-0x%03X)", start, end))
	}
	region := PortRegion{start: start, end: end, onIn: onIn, onOut: onOut}
	for page := uint32(start) / PAGE_SIZE; page <= uint32(end)/PAGE_SIZE; page++ {
		m.portMapping[page] = append(m.portMapping[page], region)
		m.portPageBitmap[page] = true
	}
}

func (m *MachineBus) ioRead(addr uint32) (uint8, bool) {
	for _, region := range m.mapping[addr/PAGE_SIZE] {
		if addr >= region.start && addr <= region.end {
			if region.onRead != nil {
				return region.onRead(addr), true
			}
			return 0xFF, true
		}
	}
	return 0, false
}

func (m *MachineBus) ioWrite(addr uint32, value uint8) bool {
	for _, region := range m.mapping[addr/PAGE_SIZE] {
		if addr >= region.start && addr <= region.end {
			if region.onWrite != nil {
				region.onWrite(addr, value)
			}
			return true
		}
	}
	return false
}

func (m *MachineBus) Read8(addr uint32) uint8 {
	if addr >= RAM_SIZE {
		return 0xFF
	}
	if m.ioPageBitmap[addr/PAGE_SIZE] {
		if value, ok := m.ioRead(addr); ok {
			return value
		}
	}
	return m.memory[addr]
}

func (m *MachineBus) Write8(addr uint32, value uint8) {
	if addr >= RAM_SIZE {
		return
	}
	if m.ioPageBitmap[addr/PAGE_SIZE] {
		if m.ioWrite(addr, value) {
			return
		}
	}
	m.memory[addr] = value
}

func (m *MachineBus) Read16(addr uint32) uint16 {
	if addr+1 >= RAM_SIZE {
		return 0xFFFF
	}
	if m.ioPageBitmap[addr/PAGE_SIZE] || m.ioPageBitmap[(addr+1)/PAGE_SIZE] {
		return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
	}
	return binary.LittleEndian.Uint16(m.memory[addr:])
}

func (m *MachineBus) Write16(addr uint32, value uint16) {
	if addr+1 >= RAM_SIZE {
		return
	}
	if m.ioPageBitmap[addr/PAGE_SIZE] || m.ioPageBitmap[(addr+1)/PAGE_SIZE] {
		m.Write8(addr, uint8(value))
		m.Write8(addr+1, uint8(value>>8))
		return
	}
	binary.LittleEndian.PutUint16(m.memory[addr:], value)
}

// In8 runs an input cycle against the port space.
func (m *MachineBus) In8(port uint16) uint8 {
	if m.portPageBitmap[uint32(port)/PAGE_SIZE] {
		for _, region := range m.portMapping[uint32(port)/PAGE_SIZE] {
			if port >= region.start && port <= region.end {
				if region.onIn != nil {
					return region.onIn(port)
				}
				return 0xFF
			}
		}
	}
	return 0xFF
}

// Out8 runs an output cycle. Writes to unclaimed ports are dropped.
func (m *MachineBus) Out8(port uint16, value uint8) {
	if !m.portPageBitmap[uint32(port)/PAGE_SIZE] {
		return
	}
	for _, region := range m.portMapping[uint32(port)/PAGE_SIZE] {
		if port >= region.start && port <= region.end {
			if region.onOut != nil {
				region.onOut(port, value)
			}
			return
		}
	}
}

