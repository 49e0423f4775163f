// machine_constants.go - PC/AT I/O port map and hardware protocol constants

package main

// I/O port assignments (ISA/AT standard)
const (
	PIC1_CMD  = 0x20 // Master 8259 command/status port
	PIC1_DATA = 0x21 // Master 8259 data port (IMR, ICW2-4)
	PIC2_CMD  = 0xA0 // Slave 8259 command/status port
	PIC2_DATA = 0xA1 // Slave 8259 data port

	PIT_CH0_DATA = 0x40 // 8254 channel 0 data (system timer)
	PIT_CH1_DATA = 0x41 // 8254 channel 1 data (DRAM refresh, unused here)
	PIT_CH2_DATA = 0x42 // 8254 channel 2 data (PC speaker, unused here)
	PIT_CMD      = 0x43 // 8254 mode/command register (write only)

	KEYB_DATA   = 0x60 // 8042 output buffer (scancode reads)
	KEYB_STATUS = 0x64 // 8042 status register (bit 0 = output buffer full)
)

// 8259 programmable interrupt controller protocol
const (
	ICW1_INIT = 0x10 // Begin initialisation sequence
	ICW1_ICW4 = 0x01 // ICW4 will follow
	ICW4_8086 = 0x01 // 8086/88 mode

	OCW2_EOI = 0x20 // Non-specific end of interrupt

	PIC_CASCADE_IRQ = 2 // Master line wired to the slave PIC
	IRQ_LINES       = 16
)

// 8254 programmable interval timer
const (
	PIT_BASE_HZ = 1193182 // Input clock, Hz

	// Mode/command register fields
	PIT_SEL_CH0     = 0x00 // Bits 6-7: channel select
	PIT_ACCESS_LOHI = 0x30 // Bits 4-5: low byte then high byte
	PIT_MODE_RATE   = 0x04 // Bits 1-3: mode 2, rate generator
)

// 8042 keyboard controller
const (
	KEYB_STATUS_OBF = 0x01 // Output buffer full
	SCANCODE_BREAK  = 0x80 // Set 1 break (key release) bit
)

// Interrupt gate descriptor layout. Eight bytes per vector:
//
//	offset 0: handler offset bits 0-15
//	offset 2: code segment selector
//	offset 4: always zero
//	offset 5: type and attributes
//	offset 6: handler offset bits 16-31
const (
	IDT_ENTRIES    = 256
	IDT_ENTRY_SIZE = 8

	GATE_PRESENT = 0x80 // Type/attribute bit 7
	GATE_INT32   = 0x0E // 32-bit interrupt gate type
)

// Memory map
const (
	RAM_SIZE = 1 << 20 // Conventional + upper memory, 1MB

	// Synthetic code segment where the interrupt unit hands out
	// routine addresses. Matches the classic kernel load address.
	CODE_BASE = 0x100000
)
