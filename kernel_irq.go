// kernel_irq.go - IRQ dispatch table and vector stubs

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

/*
IRQDispatcher routes the sixteen hardware lines to their registered
kernel handlers. Each line gets a stub bound into the interrupt unit
and installed as a gate at the line's vector; the stub funnels into
Dispatch with its line number, the same shape as assembly wrappers
pushing an IRQ number and jumping to a common C routine. A line with
no registered handler dispatches to nothing, and since handlers own
their end-of-interrupt, nothing also means no EOI.
*/
type IRQDispatcher struct {
	handlers [IRQ_LINES]func()
}

func NewIRQDispatcher() *IRQDispatcher {
	return &IRQDispatcher{}
}

// Register hooks a handler to a line. Out of range lines are ignored.
func (d *IRQDispatcher) Register(line int, handler func()) {
	if line < 0 || line >= IRQ_LINES {
		return
	}
	d.handlers[line] = handler
}

// Deregister unhooks a line.
func (d *IRQDispatcher) Deregister(line int) {
	if line < 0 || line >= IRQ_LINES {
		return
	}
	d.handlers[line] = nil
}

// Dispatch runs the handler for one line, if any.
func (d *IRQDispatcher) Dispatch(line int) {
	if line < 0 || line >= IRQ_LINES {
		return
	}
	if handler := d.handlers[line]; handler != nil {
		handler()
	}
}

// InstallStubs binds a trampoline per line and gates it at the line's
// vector: master lines 0-7 from masterBase, slave lines 8-15 from
// slaveBase. Must run before Activate so the table the CPU loads is
// already populated.
func (d *IRQDispatcher) InstallStubs(idt *IDTManager, cpu *IntrUnit, masterBase, slaveBase uint8) {
	for i := 0; i < IRQ_LINES; i++ {
		line := i
		stub := cpu.BindRoutine(func() {
			d.Dispatch(line)
		})
		vector := int(masterBase) + line
		if line >= 8 {
			vector = int(slaveBase) + line - 8
		}
		idt.Install(vector, stub, KERNEL_CS, GATE_PRESENT|GATE_INT32)
	}
}
