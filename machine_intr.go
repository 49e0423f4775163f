// machine_intr.go - CPU interrupt front end: IDT walking, halt, interrupt delivery

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

/*
machine_intr.go - Interrupt Front End

This module is the slice of CPU the kernel can see. There is no
instruction decoder; the kernel is native code. What the machine still
has to provide is everything around the instruction stream: the
interrupt flag, the halt instruction, the IDTR, and vectoring through
the interrupt descriptor table that the kernel builds in RAM.

Handler code addresses work through a routine registry. The kernel
binds a Go function and gets back a synthetic code address in the
kernel text segment; that address goes into a gate descriptor the same
way a linker-resolved stub address would on real hardware. Delivery
reads the 8-byte gate straight out of bus memory, checks the present
bit, resolves the offset through the registry and calls the routine. A
gate whose offset resolves to nothing is counted and dropped, the
polite version of jumping into the weeds.

Interrupts are delivered while the CPU sits in Halt, one INTA
negotiation with the PIC pair per delivered vector, priority order
enforced by the PICs themselves. Halt with the interrupt flag clear
only returns when the machine is stopping, which is exactly the
cli;hlt idiom the kernel uses to park the CPU for good.
*/

package main

import (
	"sync"
	"sync/atomic"
)

type IntrUnit struct {
	bus  *MachineBus
	pics *PICPair

	intrEnabled atomic.Bool
	idtBase     atomic.Uint32
	idtLimit    atomic.Uint32

	mu       sync.Mutex
	routines map[uint32]func()
	nextCode uint32

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	resetSeq  atomic.Uint64
	delivered atomic.Uint64
	unhandled atomic.Uint64
}

func NewIntrUnit(bus *MachineBus) *IntrUnit {
	return &IntrUnit{
		bus:      bus,
		routines: make(map[uint32]func()),
		nextCode: CODE_BASE,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// AttachPICs wires in the interrupt controller pair. Called once
// during machine assembly.
func (iu *IntrUnit) AttachPICs(pics *PICPair) {
	iu.pics = pics
}

// WakeSignal nudges a halted CPU to re-examine the interrupt lines.
// Safe from any goroutine; extra nudges coalesce.
func (iu *IntrUnit) WakeSignal() {
	select {
	case iu.wake <- struct{}{}:
	default:
	}
}

/*
BindRoutine registers a handler function and returns the synthetic
code address standing in for its entry point. The address is what the
kernel packs into a gate descriptor; delivery resolves it back to the
function. Addresses are handed out inside the kernel text segment and
never reused, so a stale gate keeps pointing at the routine it was
built for.
*/
func (iu *IntrUnit) BindRoutine(fn func()) uint32 {
	iu.mu.Lock()
	defer iu.mu.Unlock()

	addr := iu.nextCode
	iu.nextCode += 0x10
	iu.routines[addr] = fn
	return addr
}

// LoadIDT is lidt: latch the descriptor table base and limit.
func (iu *IntrUnit) LoadIDT(base, limit uint32) {
	iu.idtBase.Store(base)
	iu.idtLimit.Store(limit)
}

// EnableInterrupts is sti. A request that was already pending is
// serviced at the next halt point.
func (iu *IntrUnit) EnableInterrupts() {
	iu.intrEnabled.Store(true)
	iu.WakeSignal()
}

// DisableInterrupts is cli.
func (iu *IntrUnit) DisableInterrupts() {
	iu.intrEnabled.Store(false)
}

func (iu *IntrUnit) InterruptsEnabled() bool {
	return iu.intrEnabled.Load()
}

/*
Halt is hlt: service anything already deliverable, otherwise block
until the wake line pulses or the machine is stopping, then drain
whatever became deliverable. All requests serviced in one round run
back to back in PIC priority order. Wakeups may be spurious: a raise
on a masked line, a reset, or sti with nothing pending all pulse the
wake line too, and Halt returns with nothing delivered. Callers sit
in a loop that re-checks the stop latch and the reset generation
after every return, which is also what keeps a reset raised between
two halt points from being lost. With the interrupt flag clear
nothing is ever delivered, which makes cli followed by Halt the way
the kernel parks the CPU for good.
*/
func (iu *IntrUnit) Halt() {
	if iu.ServicePending() > 0 {
		return
	}
	select {
	case <-iu.wake:
		iu.ServicePending()
	case <-iu.done:
	}
}

// ServicePending delivers every deliverable pending interrupt and
// returns how many ran. With the interrupt flag clear it does
// nothing.
func (iu *IntrUnit) ServicePending() int {
	if !iu.intrEnabled.Load() || iu.pics == nil {
		return 0
	}
	count := 0
	for {
		vector := iu.pics.Acknowledge()
		if vector < 0 {
			return count
		}
		iu.dispatch(uint8(vector))
		count++
	}
}

// dispatch walks the IDT in bus memory for one vector and calls the
// routine its gate points at.
func (iu *IntrUnit) dispatch(vector uint8) {
	base := iu.idtBase.Load()
	limit := iu.idtLimit.Load()

	offset := uint32(vector) * IDT_ENTRY_SIZE
	if base == 0 || offset+IDT_ENTRY_SIZE-1 > limit {
		iu.unhandled.Add(1)
		return
	}

	entry := base + offset
	low := iu.bus.Read16(entry)
	flags := iu.bus.Read8(entry + 5)
	high := iu.bus.Read16(entry + 6)

	if flags&GATE_PRESENT == 0 {
		iu.unhandled.Add(1)
		return
	}

	handler := uint32(high)<<16 | uint32(low)
	iu.mu.Lock()
	fn := iu.routines[handler]
	iu.mu.Unlock()

	if fn == nil {
		iu.unhandled.Add(1)
		return
	}
	iu.delivered.Add(1)
	fn()
}

// Stop releases any halted context for good. Idempotent.
func (iu *IntrUnit) Stop() {
	iu.stopOnce.Do(func() {
		close(iu.done)
	})
}

// Stopping reports whether Stop has been called.
func (iu *IntrUnit) Stopping() bool {
	select {
	case <-iu.done:
		return true
	default:
		return false
	}
}

// Delivered reports interrupts dispatched since power-on.
func (iu *IntrUnit) Delivered() uint64 {
	return iu.delivered.Load()
}

// Unhandled reports deliveries dropped on absent or dangling gates.
func (iu *IntrUnit) Unhandled() uint64 {
	return iu.unhandled.Load()
}

// ResetGeneration counts hard resets. The kernel samples it at boot
// and re-enters its boot path when the value moves.
func (iu *IntrUnit) ResetGeneration() uint64 {
	return iu.resetSeq.Load()
}
