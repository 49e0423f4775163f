package main

import "testing"

func TestKeyb8042_PressQueuesScancode(t *testing.T) {
	raised := 0
	kbc := NewKeyb8042(func() { raised++ })

	kbc.Press(0x1E) // 'a' make
	if raised != 1 {
		t.Fatalf("expected 1 IRQ, got %d", raised)
	}
	if got := kbc.HandleIn(KEYB_DATA); got != 0x1E {
		t.Fatalf("expected scancode 0x1E, got 0x%02X", got)
	}
}

func TestKeyb8042_ReleaseSetsBreakBit(t *testing.T) {
	kbc := NewKeyb8042(nil)

	kbc.Release(0x1E)
	if got := kbc.HandleIn(KEYB_DATA); got != 0x9E {
		t.Fatalf("expected break code 0x9E, got 0x%02X", got)
	}

	// Press strips a stray break bit, Release adds one
	kbc.Press(0x9E)
	if got := kbc.HandleIn(KEYB_DATA); got != 0x1E {
		t.Fatalf("expected make code 0x1E, got 0x%02X", got)
	}
}

func TestKeyb8042_StatusReportsOutputBuffer(t *testing.T) {
	kbc := NewKeyb8042(nil)

	if got := kbc.HandleIn(KEYB_STATUS); got&KEYB_STATUS_OBF != 0 {
		t.Fatalf("expected empty output buffer, got status 0x%02X", got)
	}

	kbc.Press(0x1E)
	if got := kbc.HandleIn(KEYB_STATUS); got&KEYB_STATUS_OBF == 0 {
		t.Fatalf("expected output buffer full, got status 0x%02X", got)
	}

	kbc.HandleIn(KEYB_DATA) // consume
	if got := kbc.HandleIn(KEYB_STATUS); got&KEYB_STATUS_OBF != 0 {
		t.Fatalf("expected output buffer drained, got status 0x%02X", got)
	}
}

func TestKeyb8042_EmptyReadReturnsZero(t *testing.T) {
	kbc := NewKeyb8042(nil)

	if got := kbc.HandleIn(KEYB_DATA); got != 0 {
		t.Fatalf("expected 0 from empty buffer, got 0x%02X", got)
	}
}

func TestKeyb8042_ReadRefiresWhileBacklogged(t *testing.T) {
	raised := 0
	kbc := NewKeyb8042(func() { raised++ })

	kbc.Press(0x1E)
	kbc.Press(0x20)
	if raised != 2 {
		t.Fatalf("expected 2 IRQs for 2 events, got %d", raised)
	}

	// Draining one byte re-asserts the line for the backlog
	if got := kbc.HandleIn(KEYB_DATA); got != 0x1E {
		t.Fatalf("expected first scancode 0x1E, got 0x%02X", got)
	}
	if raised != 3 {
		t.Fatalf("expected refire for buffered scancode, got %d IRQs", raised)
	}

	if got := kbc.HandleIn(KEYB_DATA); got != 0x20 {
		t.Fatalf("expected second scancode 0x20, got 0x%02X", got)
	}
	if raised != 3 {
		t.Fatalf("expected no refire on empty buffer, got %d IRQs", raised)
	}
}

func TestKeyb8042_OverflowDropsNewest(t *testing.T) {
	kbc := NewKeyb8042(nil)

	for i := 0; i < KEYB_QUEUE_DEPTH+4; i++ {
		kbc.Press(uint8(i + 1))
	}
	if got := kbc.Buffered(); got != KEYB_QUEUE_DEPTH {
		t.Fatalf("expected queue capped at %d, got %d", KEYB_QUEUE_DEPTH, got)
	}

	// The survivors are the oldest events, in order
	if got := kbc.HandleIn(KEYB_DATA); got != 1 {
		t.Fatalf("expected oldest scancode 0x01, got 0x%02X", got)
	}
}

func TestKeyb8042_CommandLatch(t *testing.T) {
	kbc := NewKeyb8042(nil)

	kbc.HandleOut(KEYB_STATUS, 0xAE)
	kbc.Press(0x1E)
	if got := kbc.HandleIn(KEYB_DATA); got != 0x1E {
		t.Fatalf("expected command write to leave the queue alone, got 0x%02X", got)
	}
}

func TestKeyb8042_ResetDrainsQueue(t *testing.T) {
	kbc := NewKeyb8042(nil)

	kbc.Press(0x1E)
	kbc.Press(0x20)
	kbc.Reset()

	if got := kbc.Buffered(); got != 0 {
		t.Fatalf("expected empty queue after reset, got %d", got)
	}
	if got := kbc.HandleIn(KEYB_STATUS); got&KEYB_STATUS_OBF != 0 {
		t.Fatalf("expected OBF clear after reset, got status 0x%02X", got)
	}
}
