// kernel_pic.go - Kernel-side 8259 driver: remap and end-of-interrupt

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

// Where the kernel parks the hardware lines: master on 0x20-0x27,
// slave on 0x28-0x2F, clear of the CPU exception vectors.
const (
	IRQ_BASE_MASTER = 0x20
	IRQ_BASE_SLAVE  = 0x28
)

// PICDriver programs the interrupt controller pair through their
// ports. It keeps no state of its own; the chips do.
type PICDriver struct {
	bus *MachineBus
}

func NewPICDriver(bus *MachineBus) *PICDriver {
	return &PICDriver{bus: bus}
}

/*
Remap walks both controllers through the full ICW1-ICW4 init sequence,
moving their vector bases. The interrupt masks are saved off the data
ports first and restored after, since initialisation clears them.
Callers run this under cli; the sequence is not interruptible on real
hardware either.
*/
func (p *PICDriver) Remap(masterBase, slaveBase uint8) {
	savedMaster := p.bus.In8(PIC1_DATA)
	savedSlave := p.bus.In8(PIC2_DATA)

	p.bus.Out8(PIC1_CMD, ICW1_INIT|ICW1_ICW4)
	p.bus.Out8(PIC2_CMD, ICW1_INIT|ICW1_ICW4)

	p.bus.Out8(PIC1_DATA, masterBase)
	p.bus.Out8(PIC2_DATA, slaveBase)

	p.bus.Out8(PIC1_DATA, 1<<PIC_CASCADE_IRQ) // master: slave wired to line 2
	p.bus.Out8(PIC2_DATA, PIC_CASCADE_IRQ)    // slave: cascade identity

	p.bus.Out8(PIC1_DATA, ICW4_8086)
	p.bus.Out8(PIC2_DATA, ICW4_8086)

	p.bus.Out8(PIC1_DATA, savedMaster)
	p.bus.Out8(PIC2_DATA, savedSlave)
}

// Acknowledge sends end-of-interrupt for a line: slave first for the
// cascaded lines, master always. Lines outside 0-15 are ignored.
func (p *PICDriver) Acknowledge(line int) {
	if line < 0 || line >= IRQ_LINES {
		return
	}
	if line >= 8 {
		p.bus.Out8(PIC2_CMD, OCW2_EOI)
	}
	p.bus.Out8(PIC1_CMD, OCW2_EOI)
}
