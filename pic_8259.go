// pic_8259.go - Dual 8259A programmable interrupt controller

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import "sync"

/*
PIC8259 models one 8259A. The chip is programmed through a four byte
initialisation sequence (ICW1-ICW4) written to its command and data
ports; after that, data port writes load the interrupt mask and
command port writes are operation control words. The model keeps the
three working registers of the real part:

	IRR - interrupt request register, lines raised and not yet served
	ISR - in-service register, lines between delivery and EOI
	IMR - interrupt mask register, lines the kernel has masked off

Priority is fixed with line 0 highest. A line is deliverable when it
is requested, unmasked and no equal or higher priority line is in
service.
*/
type PIC8259 struct {
	mu sync.Mutex

	icw     [5]uint8
	icwStep int

	imr uint8
	irr uint8
	isr uint8

	readISR bool // OCW3 register select for command port reads
}

func NewPIC8259() *PIC8259 {
	return &PIC8259{}
}

// HandleOut decodes a port write. Both PICs decode the same way: an
// even port is the command register, an odd port the data register.
func (p *PIC8259) HandleOut(port uint16, value uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if port&1 == 0 {
		p.commandWrite(value)
		return
	}
	p.dataWrite(value)
}

func (p *PIC8259) HandleIn(port uint16) uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if port&1 == 1 {
		return p.imr
	}
	if p.readISR {
		return p.isr
	}
	return p.irr
}

func (p *PIC8259) commandWrite(value uint8) {
	if value&ICW1_INIT != 0 {
		// ICW1 restarts the init sequence and clears chip state.
		p.icw[1] = value
		p.icwStep = 2
		p.imr = 0
		p.irr = 0
		p.isr = 0
		p.readISR = false
		return
	}
	if value&0x08 != 0 {
		// OCW3: select which register command port reads return.
		switch value & 0x03 {
		case 0x02:
			p.readISR = false
		case 0x03:
			p.readISR = true
		}
		return
	}
	// OCW2. Only the non-specific EOI is modelled: retire the highest
	// priority line currently in service.
	if value&OCW2_EOI != 0 {
		for i := 0; i < 8; i++ {
			if p.isr&(1<<i) != 0 {
				p.isr &^= 1 << i
				break
			}
		}
	}
}

func (p *PIC8259) dataWrite(value uint8) {
	switch p.icwStep {
	case 2:
		p.icw[2] = value & 0xF8 // ICW2: vector base
		p.icwStep = 3
	case 3:
		p.icw[3] = value // ICW3: cascade wiring
		if p.icw[1]&ICW1_ICW4 != 0 {
			p.icwStep = 4
		} else {
			p.icwStep = 0
		}
	case 4:
		p.icw[4] = value // ICW4: mode byte
		p.icwStep = 0
	default:
		p.imr = value // OCW1: interrupt mask
	}
}

// Raise asserts a request line (0-7).
func (p *PIC8259) Raise(line int) {
	p.mu.Lock()
	p.irr |= 1 << line
	p.mu.Unlock()
}

// pendingLine walks lines in priority order and returns the first
// deliverable one, or -1. An in-service line blocks itself and
// everything below it.
func (p *PIC8259) pendingLine() int {
	ready := p.irr &^ p.imr
	if ready == 0 {
		return -1
	}
	for i := 0; i < 8; i++ {
		if p.isr&(1<<i) != 0 {
			return -1
		}
		if ready&(1<<i) != 0 {
			return i
		}
	}
	return -1
}

// acknowledge runs the INTA cycle for a line: the request moves from
// IRR to ISR and the line's vector is returned.
func (p *PIC8259) acknowledge(line int) uint8 {
	p.irr &^= 1 << line
	p.isr |= 1 << line
	return p.icw[2] + uint8(line)
}

// VectorBase reports the base programmed by ICW2.
func (p *PIC8259) VectorBase() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.icw[2]
}

// Registers snapshots IMR, IRR and ISR for the status display.
func (p *PIC8259) Registers() (imr, irr, isr uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.imr, p.irr, p.isr
}

func (p *PIC8259) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.icw = [5]uint8{}
	p.icwStep = 0
	p.imr = 0
	p.irr = 0
	p.isr = 0
	p.readISR = false
}

/*
PICPair is the AT wiring: a master 8259 with a slave cascaded into
line 2. Devices assert one of sixteen numbered lines; the pair maps
line 8-15 onto the slave and folds the slave's INT output into the
master's cascade line, so the CPU only ever negotiates with the
master.
*/
type PICPair struct {
	Master *PIC8259
	Slave  *PIC8259

	onRaise func() // wakes the CPU out of halt
}

func NewPICPair(onRaise func()) *PICPair {
	return &PICPair{
		Master:  NewPIC8259(),
		Slave:   NewPIC8259(),
		onRaise: onRaise,
	}
}

// Raise asserts IRQ line 0-15. Out of range lines are ignored.
func (pp *PICPair) Raise(line int) {
	if line < 0 || line >= IRQ_LINES {
		return
	}
	if line < 8 {
		pp.Master.Raise(line)
	} else {
		pp.Slave.Raise(line - 8)
		pp.Master.Raise(PIC_CASCADE_IRQ)
	}
	if pp.onRaise != nil {
		pp.onRaise()
	}
}

/*
Acknowledge runs one full INTA negotiation and returns the winning
vector number, or -1 when nothing is deliverable. When the master's
cascade line wins, the slave is consulted for the final vector, and
both chips latch the request in service, which is why the kernel's
handlers must EOI the slave as well as the master for lines 8-15.
*/
func (pp *PICPair) Acknowledge() int {
	pp.Master.mu.Lock()
	defer pp.Master.mu.Unlock()

	line := pp.Master.pendingLine()
	if line < 0 {
		return -1
	}
	if line == PIC_CASCADE_IRQ {
		pp.Slave.mu.Lock()
		defer pp.Slave.mu.Unlock()

		slaveLine := pp.Slave.pendingLine()
		if slaveLine < 0 {
			// Cascade raised but the slave has nothing deliverable;
			// drop the phantom request.
			pp.Master.irr &^= 1 << PIC_CASCADE_IRQ
			return -1
		}
		pp.Master.acknowledge(line)
		return int(pp.Slave.acknowledge(slaveLine))
	}
	return int(pp.Master.acknowledge(line))
}

// HasPending reports whether an unmasked request could be delivered.
func (pp *PICPair) HasPending() bool {
	pp.Master.mu.Lock()
	line := pp.Master.pendingLine()
	pp.Master.mu.Unlock()

	if line < 0 {
		return false
	}
	if line == PIC_CASCADE_IRQ {
		pp.Slave.mu.Lock()
		slaveLine := pp.Slave.pendingLine()
		pp.Slave.mu.Unlock()
		return slaveLine >= 0
	}
	return true
}

