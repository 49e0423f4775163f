// kernel_timer.go - System timer driver: PIT programming and the tick counter

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import "sync/atomic"

/*
TimerDriver programs PIT channel 0 as the system heartbeat and counts
its interrupts. The tick counter is the kernel's only clock; game
timing, the stand-in random number source and the status display all
read it. It is a single 64-bit word updated only by the IRQ0 handler
and read whole by everyone else, so a reader can never see a torn
count.
*/
type TimerDriver struct {
	bus *MachineBus
	cpu *IntrUnit
	pic *PICDriver
	irq *IRQDispatcher

	ticks atomic.Uint64
}

func NewTimerDriver(bus *MachineBus, cpu *IntrUnit, pic *PICDriver, irq *IRQDispatcher) *TimerDriver {
	return &TimerDriver{bus: bus, cpu: cpu, pic: pic, irq: irq}
}

// Init remaps the controllers, programs the tick rate and hooks IRQ0,
// all under cli. The counter restarts from zero, as a fresh boot
// would have it.
func (t *TimerDriver) Init(hz uint32) {
	t.ticks.Store(0)
	t.cpu.DisableInterrupts()
	t.pic.Remap(IRQ_BASE_MASTER, IRQ_BASE_SLAVE)
	t.Configure(hz)
	t.irq.Register(0, t.HandleIRQ)
	t.cpu.EnableInterrupts()
}

/*
Configure programs channel 0 for the requested rate: mode byte to the
command register, then the 16-bit divisor low byte first. A rate of
zero is a silent no-op, leaving whatever was programmed before; a rate
above the input clock clamps the divisor to 1.
*/
func (t *TimerDriver) Configure(hz uint32) {
	if hz == 0 {
		return
	}
	divisor := uint32(PIT_BASE_HZ) / hz
	if divisor == 0 {
		divisor = 1
	}
	t.bus.Out8(PIT_CMD, PIT_SEL_CH0|PIT_ACCESS_LOHI|PIT_MODE_RATE)
	t.bus.Out8(PIT_CH0_DATA, uint8(divisor))
	t.bus.Out8(PIT_CH0_DATA, uint8(divisor>>8))
}

// HandleIRQ is the IRQ0 handler: count the tick, retire the line.
func (t *TimerDriver) HandleIRQ() {
	t.ticks.Add(1)
	t.pic.Acknowledge(0)
}

// Ticks reads the counter whole.
func (t *TimerDriver) Ticks() uint64 {
	return t.ticks.Load()
}
