// pit_8254.go - 8254 programmable interval timer (channel 0, system tick)

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import (
	"sync"
	"sync/atomic"
	"time"
)

/*
PIT8254 models channel 0 of the interval timer, the one wired to IRQ0.
The kernel programs it by writing a mode byte to the command register
and then a 16-bit divisor, low byte first, to the channel data port.
The chip divides its 1.193182MHz input clock by the divisor; each time
the divided count expires it pulses the interrupt line. A divisor of
zero means 65536, the slowest rate the part can run.

Channels 1 and 2 (DRAM refresh and the speaker on a real AT) accept
writes but drive nothing.

The pulse train comes from a goroutine parked on a time.Ticker that is
re-armed whenever the kernel completes a divisor load. A turbo factor
scales the wall-clock period down without changing what the kernel
observes, which keeps demo scripts fast.
*/
type PIT8254 struct {
	mu sync.Mutex

	chanSel    int   // channel addressed by the last mode byte
	accessLoHi bool  // low-then-high access selected
	expectHigh bool  // flipflop state for the next data write
	reload     [3]uint16
	loadLow    uint8
	armed      bool // channel 0 has completed a divisor load

	turbo  float64
	onTick func()

	pulses atomic.Uint64 // pulses generated since power-on

	program  chan time.Duration
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

func NewPIT8254(onTick func()) *PIT8254 {
	return &PIT8254{
		turbo:   1.0,
		onTick:  onTick,
		program: make(chan time.Duration, 1),
		done:    make(chan struct{}),
	}
}

// SetTurbo scales the real-time tick period by 1/factor. Must be
// called before Start.
func (t *PIT8254) SetTurbo(factor float64) {
	if factor > 0 {
		t.turbo = factor
	}
}

func (t *PIT8254) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	go t.run()
}

func (t *PIT8254) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

func (t *PIT8254) run() {
	var ticker *time.Ticker
	var tickC <-chan time.Time

	for {
		select {
		case <-t.done:
			if ticker != nil {
				ticker.Stop()
			}
			return
		case period := <-t.program:
			if ticker != nil {
				ticker.Stop()
				ticker = nil
				tickC = nil
			}
			if period > 0 {
				ticker = time.NewTicker(period)
				tickC = ticker.C
			}
		case <-tickC:
			t.pulses.Add(1)
			if t.onTick != nil {
				t.onTick()
			}
		}
	}
}

func (t *PIT8254) HandleOut(port uint16, value uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch port {
	case PIT_CMD:
		t.chanSel = int(value >> 6)
		t.accessLoHi = value&PIT_ACCESS_LOHI == PIT_ACCESS_LOHI
		t.expectHigh = false
	case PIT_CH0_DATA, PIT_CH1_DATA, PIT_CH2_DATA:
		ch := int(port - PIT_CH0_DATA)
		if ch != t.chanSel {
			return
		}
		if t.accessLoHi && !t.expectHigh {
			t.loadLow = value
			t.expectHigh = true
			return
		}
		t.expectHigh = false
		t.reload[ch] = uint16(value)<<8 | uint16(t.loadLow)
		if ch == 0 {
			t.arm()
		}
	}
}

// HandleIn returns the reload value bytes in low/high order. Count
// latching is not modelled; nothing in the machine reads the count.
func (t *PIT8254) HandleIn(port uint16) uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch port {
	case PIT_CH0_DATA, PIT_CH1_DATA, PIT_CH2_DATA:
		ch := int(port - PIT_CH0_DATA)
		if t.expectHigh {
			t.expectHigh = false
			return uint8(t.reload[ch] >> 8)
		}
		t.expectHigh = true
		return uint8(t.reload[ch])
	}
	return 0xFF
}

// arm converts the channel 0 reload value into a ticker period and
// hands it to the pulse goroutine. Caller holds t.mu.
func (t *PIT8254) arm() {
	t.armed = true
	divisor := uint32(t.reload[0])
	if divisor == 0 {
		divisor = 0x10000
	}
	period := time.Duration(float64(time.Second) * float64(divisor) / PIT_BASE_HZ / t.turbo)
	if period < time.Microsecond {
		period = time.Microsecond
	}
	select {
	case <-t.program:
	default:
	}
	t.program <- period
}

// Rate reports the programmed channel 0 frequency in Hz, zero when
// the channel has never been armed.
func (t *PIT8254) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return 0
	}
	divisor := uint32(t.reload[0])
	if divisor == 0 {
		divisor = 0x10000
	}
	return PIT_BASE_HZ / float64(divisor)
}

// Pulses reports interrupts generated since power-on.
func (t *PIT8254) Pulses() uint64 {
	return t.pulses.Load()
}

