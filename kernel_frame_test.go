package main

import "testing"

type vramProbe struct {
	bytes  [0x1000]uint8
	writes int
}

func (p *vramProbe) cell(row, col int) uint16 {
	offset := (row*VGA_TEXT_COLS + col) * 2
	return uint16(p.bytes[offset]) | uint16(p.bytes[offset+1])<<8
}

func newFrameRigForTest() (*FrameStore, *vramProbe) {
	bus := NewMachineBus()
	probe := &vramProbe{}
	bus.MapIO(VGA_TEXT_WINDOW, VGA_TEXT_WINDOW_END,
		func(addr uint32) uint8 { return probe.bytes[addr-VGA_TEXT_WINDOW] },
		func(addr uint32, value uint8) {
			probe.bytes[addr-VGA_TEXT_WINDOW] = value
			probe.writes++
		})
	return NewFrameStore(bus), probe
}

func TestFrameStore_InitStagesWithoutTouchingBus(t *testing.T) {
	frame, probe := newFrameRigForTest()

	frame.Init()
	if probe.writes != 0 {
		t.Fatalf("expected no bus writes from Init, got %d", probe.writes)
	}
	if got := frame.Cell(12, 40); got != 0x0700 {
		t.Fatalf("expected blank staged cell 0x0700, got 0x%04X", got)
	}
}

func TestFrameStore_ClearScreenBlanksEveryCell(t *testing.T) {
	frame, probe := newFrameRigForTest()

	frame.ClearScreen()
	if probe.writes != VGA_TEXT_ROWS*VGA_TEXT_COLS*2 {
		t.Fatalf("expected %d byte writes, got %d", VGA_TEXT_ROWS*VGA_TEXT_COLS*2, probe.writes)
	}
	if got := probe.cell(0, 0); got != 0x0700|uint16(' ') {
		t.Fatalf("expected blank cell 0x0720, got 0x%04X", got)
	}
	if got := probe.cell(VGA_TEXT_ROWS-1, VGA_TEXT_COLS-1); got != 0x0700|uint16(' ') {
		t.Fatalf("expected blank last cell, got 0x%04X", got)
	}
}

func TestFrameStore_FlushWritesOnlyChanges(t *testing.T) {
	frame, probe := newFrameRigForTest()
	frame.Init()

	frame.Flush()
	if probe.writes != 0 {
		t.Fatalf("expected clean flush to write nothing, got %d writes", probe.writes)
	}

	frame.SetCell(3, 4, 0x0F00|uint16('X'))
	frame.SetCell(0, 0, 0x0700) // same as the mirror, no write due
	frame.Flush()
	if probe.writes != 2 {
		t.Fatalf("expected one changed cell (2 byte writes), got %d", probe.writes)
	}
	if got := probe.cell(3, 4); got != 0x0F00|uint16('X') {
		t.Fatalf("expected cell 0x0F58 on the bus, got 0x%04X", got)
	}

	frame.Flush()
	if probe.writes != 2 {
		t.Fatalf("expected second flush to write nothing, got %d total", probe.writes)
	}
}

func TestFrameStore_SetCellBoundsIgnored(t *testing.T) {
	frame, _ := newFrameRigForTest()
	frame.Init()

	frame.SetCell(-1, 0, 0xFFFF)
	frame.SetCell(VGA_TEXT_ROWS, 0, 0xFFFF)
	frame.SetCell(0, -1, 0xFFFF)
	frame.SetCell(0, VGA_TEXT_COLS, 0xFFFF)

	if got := frame.Cell(-1, 0); got != 0 {
		t.Fatalf("expected zero for out of range read, got 0x%04X", got)
	}
	if got := frame.Cell(0, 0); got != 0x0700 {
		t.Fatalf("expected corner cell untouched, got 0x%04X", got)
	}
}

func TestFrameStore_WriteStringBypassesStaging(t *testing.T) {
	frame, probe := newFrameRigForTest()
	frame.Init()

	frame.WriteString("HI", 0x0F00, 2, 5)
	if probe.writes != 4 {
		t.Fatalf("expected 2 cells written directly, got %d byte writes", probe.writes)
	}
	if got := probe.cell(2, 5); got != 0x0F00|uint16('H') {
		t.Fatalf("expected 'H' on the bus, got 0x%04X", got)
	}
	if got := probe.cell(2, 6); got != 0x0F00|uint16('I') {
		t.Fatalf("expected 'I' on the bus, got 0x%04X", got)
	}

	// The staged buffers know nothing about direct writes
	frame.Flush()
	if probe.writes != 4 {
		t.Fatalf("expected flush to leave direct text alone, got %d writes", probe.writes)
	}
	if got := probe.cell(2, 5); got != 0x0F00|uint16('H') {
		t.Fatalf("expected direct text to survive flush, got 0x%04X", got)
	}
}

func TestFrameStore_WriteStringClips(t *testing.T) {
	frame, probe := newFrameRigForTest()
	frame.Init()

	frame.WriteString("ABCD", 0x0700, 0, VGA_TEXT_COLS-2)
	if got := probe.cell(0, VGA_TEXT_COLS-2); got != 0x0700|uint16('A') {
		t.Fatalf("expected 'A' at right edge, got 0x%04X", got)
	}
	if got := probe.cell(0, VGA_TEXT_COLS-1); got != 0x0700|uint16('B') {
		t.Fatalf("expected 'B' in last column, got 0x%04X", got)
	}
	if got := probe.cell(1, 0); got != 0 {
		t.Fatalf("expected no wrap into next row, got 0x%04X", got)
	}
	if probe.writes != 4 {
		t.Fatalf("expected overflow clipped, got %d byte writes", probe.writes)
	}

	frame.WriteString("ABCD", 0x0700, 5, -2)
	if got := probe.cell(5, 0); got != 0x0700|uint16('C') {
		t.Fatalf("expected 'C' clipped to column 0, got 0x%04X", got)
	}
	if got := probe.cell(5, 1); got != 0x0700|uint16('D') {
		t.Fatalf("expected 'D' at column 1, got 0x%04X", got)
	}

	frame.WriteString("off the map", 0x0700, VGA_TEXT_ROWS, 0)
	if probe.writes != 8 {
		t.Fatalf("expected out of range row dropped, got %d byte writes", probe.writes)
	}
}

func TestFrameStore_WriteChar(t *testing.T) {
	frame, probe := newFrameRigForTest()
	frame.Init()

	frame.WriteChar('#', 0x0400, 10, 20)
	if got := probe.cell(10, 20); got != 0x0400|uint16('#') {
		t.Fatalf("expected red '#', got 0x%04X", got)
	}

	frame.WriteChar('#', 0x0400, 10, VGA_TEXT_COLS)
	if probe.writes != 2 {
		t.Fatalf("expected out of range char dropped, got %d byte writes", probe.writes)
	}
}
