// kernel_idt.go - Interrupt descriptor table manager

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

// Kernel policy: where the table lives and which code segment
// handlers run in.
const (
	IDT_BASE  = 0x1000
	KERNEL_CS = 0x08
)

/*
IDTManager owns the interrupt descriptor table. The table is 256
packed 8-byte gates living in kernel RAM; Install writes one gate
byte by byte through the bus, Activate points the CPU at the table
with the base and limit, the lidt of this machine. Until Activate runs
the CPU has no table and delivers nothing.
*/
type IDTManager struct {
	bus *MachineBus
	cpu *IntrUnit
}

func NewIDTManager(bus *MachineBus, cpu *IntrUnit) *IDTManager {
	return &IDTManager{bus: bus, cpu: cpu}
}

// Install packs one gate descriptor into the table. Vectors outside
// the table are ignored.
func (m *IDTManager) Install(vector int, handler uint32, selector uint16, flags uint8) {
	if vector < 0 || vector >= IDT_ENTRIES {
		return
	}
	entry := uint32(IDT_BASE + vector*IDT_ENTRY_SIZE)
	m.bus.Write16(entry, uint16(handler))
	m.bus.Write16(entry+2, selector)
	m.bus.Write8(entry+4, 0)
	m.bus.Write8(entry+5, flags)
	m.bus.Write16(entry+6, uint16(handler>>16))
}

// InstallDefaults points every vector at the null handler. The gates
// are marked present with a null offset, so a stray delivery lands
// nowhere instead of somewhere random.
func (m *IDTManager) InstallDefaults() {
	for vector := 0; vector < IDT_ENTRIES; vector++ {
		m.Install(vector, 0, KERNEL_CS, GATE_PRESENT|GATE_INT32)
	}
}

// Entry reads a gate back out of the table.
func (m *IDTManager) Entry(vector int) (handler uint32, selector uint16, flags uint8) {
	if vector < 0 || vector >= IDT_ENTRIES {
		return 0, 0, 0
	}
	entry := uint32(IDT_BASE + vector*IDT_ENTRY_SIZE)
	handler = uint32(m.bus.Read16(entry)) | uint32(m.bus.Read16(entry+6))<<16
	selector = m.bus.Read16(entry + 2)
	flags = m.bus.Read8(entry + 5)
	return handler, selector, flags
}

// Activate loads the table into the CPU.
func (m *IDTManager) Activate() {
	m.cpu.LoadIDT(IDT_BASE, IDT_ENTRIES*IDT_ENTRY_SIZE-1)
}
