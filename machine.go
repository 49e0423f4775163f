// machine.go - Board assembly: chips wired to the bus, lifecycle, hard reset

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import "sync"

/*
Machine is the emulated PC/AT board. The constructor builds the bus,
the interrupt unit, the chip set and the kernel, wires every chip
register into the port and memory maps, and seals the bus so nothing
can remap a live machine. Start spins up the chips and the display,
Run executes the kernel on the calling goroutine, Stop tears it all
down. Reset models the reset line: every chip back to power-on state,
the interrupt unit last so the kernel reboots against already-clean
hardware.
*/
type Machine struct {
	bus  *MachineBus
	intr *IntrUnit
	pics *PICPair
	pit  *PIT8254
	kbc  *Keyb8042
	vga  *VGAText

	kernel *Kernel

	stopOnce sync.Once
	stopped  chan struct{}
}

func NewMachine(tickHz uint32, turbo float64) *Machine {
	bus := NewMachineBus()
	intr := NewIntrUnit(bus)

	pics := NewPICPair(intr.WakeSignal)
	intr.AttachPICs(pics)

	pit := NewPIT8254(func() { pics.Raise(0) })
	pit.SetTurbo(turbo)

	kbc := NewKeyb8042(func() { pics.Raise(1) })

	vga := NewVGAText()

	bus.MapPorts(PIC1_CMD, PIC1_DATA, pics.Master.HandleIn, pics.Master.HandleOut)
	bus.MapPorts(PIC2_CMD, PIC2_DATA, pics.Slave.HandleIn, pics.Slave.HandleOut)
	bus.MapPorts(PIT_CH0_DATA, PIT_CMD, pit.HandleIn, pit.HandleOut)
	bus.MapPorts(KEYB_DATA, KEYB_DATA, kbc.HandleIn, kbc.HandleOut)
	bus.MapPorts(KEYB_STATUS, KEYB_STATUS, kbc.HandleIn, kbc.HandleOut)

	bus.MapIO(VGA_TEXT_WINDOW, VGA_TEXT_WINDOW_END, vga.HandleRead, vga.HandleWrite)

	bus.SealMappings()

	m := &Machine{
		bus:     bus,
		intr:    intr,
		pics:    pics,
		pit:     pit,
		kbc:     kbc,
		vga:     vga,
		stopped: make(chan struct{}),
	}
	m.kernel = NewKernel(bus, intr, tickHz)

	runtimeStatus.setMachine(intr, pit, pics, kbc, vga, m.kernel)

	return m
}

// Start brings up the chips and connects the display output, probing
// it for the optional input, reset and quit hooks.
func (m *Machine) Start(output VideoOutput) error {
	if input, ok := output.(InputCapable); ok {
		input.SetKeyEventHandler(m.KeyEvent)
	}
	if reset, ok := output.(ResetCapable); ok {
		reset.SetHardResetHandler(m.Reset)
	}
	if quit, ok := output.(QuitCapable); ok {
		quit.SetQuitHandler(m.Stop)
	}

	m.pit.Start()

	return m.vga.Start(output)
}

// Run executes the kernel on the calling goroutine until Stop.
func (m *Machine) Run() {
	m.kernel.Run()
}

// KeyEvent feeds one host key transition to the keyboard controller.
func (m *Machine) KeyEvent(scancode uint8, pressed bool) {
	if pressed {
		m.kbc.Press(scancode)
	} else {
		m.kbc.Release(scancode)
	}
}

// Stop halts the chips and unparks the kernel. Safe to call more
// than once.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() {
		m.intr.Stop()
		m.pit.Stop()
		m.vga.Stop()
		close(m.stopped)
	})
}

// Done is closed when the machine has been stopped.
func (m *Machine) Done() <-chan struct{} {
	return m.stopped
}

// Reset is the hard reset line: chips first, interrupt unit last, so
// by the time the kernel observes the reset and reboots, the
// hardware it reinitialises is already in power-on state.
func (m *Machine) Reset() {
	m.bus.Reset()
	m.pics.Reset()
	m.pit.Reset()
	m.kbc.Reset()
	m.vga.Reset()
	m.intr.Reset()
}

// Keyboard exposes the controller for the script driver.
func (m *Machine) Keyboard() *Keyb8042 {
	return m.kbc
}

// Video exposes the text device for the terminal frontend and the
// script driver.
func (m *Machine) Video() *VGAText {
	return m.vga
}

// Ticks reads the kernel tick counter.
func (m *Machine) Ticks() uint64 {
	return m.kernel.Ticks()
}
