package main

import "testing"

func TestVGAText_CellDecodesVRAM(t *testing.T) {
	vga := NewVGAText()

	vga.HandleWrite(VGA_TEXT_WINDOW, 'A')
	vga.HandleWrite(VGA_TEXT_WINDOW+1, 0x1F)
	if got := vga.Cell(0, 0); got != 0x1F41 {
		t.Fatalf("expected cell 0x1F41, got 0x%04X", got)
	}

	offset := uint32((3*VGA_TEXT_COLS + 10) * 2)
	vga.HandleWrite(VGA_TEXT_WINDOW+offset, '#')
	vga.HandleWrite(VGA_TEXT_WINDOW+offset+1, 0x04)
	if got := vga.Cell(3, 10); got != 0x0423 {
		t.Fatalf("expected cell 0x0423, got 0x%04X", got)
	}
}

func TestVGAText_ReadbackAndFloatingBytes(t *testing.T) {
	vga := NewVGAText()

	vga.HandleWrite(VGA_TEXT_WINDOW+2, 0x33)
	if got := vga.HandleRead(VGA_TEXT_WINDOW + 2); got != 0x33 {
		t.Fatalf("expected readback 0x33, got 0x%02X", got)
	}

	// The window is 4 KB but only 4000 bytes are populated
	if got := vga.HandleRead(VGA_TEXT_WINDOW + VGA_TEXT_PAGE_SIZE); got != 0xFF {
		t.Fatalf("expected floating byte past the page, got 0x%02X", got)
	}
	vga.HandleWrite(VGA_TEXT_WINDOW+VGA_TEXT_PAGE_SIZE, 0x55) // dropped
}

func TestVGAText_OutOfRangeCellReadsZero(t *testing.T) {
	vga := NewVGAText()

	if got := vga.Cell(-1, 0); got != 0 {
		t.Fatalf("expected 0 for negative row, got 0x%04X", got)
	}
	if got := vga.Cell(VGA_TEXT_ROWS, 0); got != 0 {
		t.Fatalf("expected 0 past last row, got 0x%04X", got)
	}
	if got := vga.Cell(0, VGA_TEXT_COLS); got != 0 {
		t.Fatalf("expected 0 past last column, got 0x%04X", got)
	}
}

func TestVGAText_CellsSnapshotIsACopy(t *testing.T) {
	vga := NewVGAText()

	vga.HandleWrite(VGA_TEXT_WINDOW, 'Z')
	vga.HandleWrite(VGA_TEXT_WINDOW+1, 0x0A)

	cells := vga.Cells()
	if len(cells) != VGA_TEXT_ROWS*VGA_TEXT_COLS {
		t.Fatalf("expected %d cells, got %d", VGA_TEXT_ROWS*VGA_TEXT_COLS, len(cells))
	}
	if cells[0] != 0x0A5A {
		t.Fatalf("expected cell 0x0A5A, got 0x%04X", cells[0])
	}

	cells[0] = 0
	if got := vga.Cell(0, 0); got != 0x0A5A {
		t.Fatalf("expected device unaffected by snapshot writes, got 0x%04X", got)
	}
}

func TestVGAText_RenderPaintsAttributeColours(t *testing.T) {
	vga := NewVGAText()

	// A space is all background in any font
	vga.HandleWrite(VGA_TEXT_WINDOW, ' ')
	vga.HandleWrite(VGA_TEXT_WINDOW+1, 0x70) // black on light grey
	vga.renderPage()

	if r, g, b := vga.frame[0], vga.frame[1], vga.frame[2]; r != 170 || g != 170 || b != 170 {
		t.Fatalf("expected light grey (170,170,170), got (%d,%d,%d)", r, g, b)
	}
	if a := vga.frame[3]; a != 0xFF {
		t.Fatalf("expected opaque pixel, got alpha 0x%02X", a)
	}

	// Second cell down-right lands at pixel (8,16)
	offset := uint32((1*VGA_TEXT_COLS + 1) * 2)
	vga.HandleWrite(VGA_TEXT_WINDOW+offset, ' ')
	vga.HandleWrite(VGA_TEXT_WINDOW+offset+1, 0x1F) // white on blue
	vga.renderPage()

	idx := (16*VGA_PIXELS_WIDE + 8) * 4
	if r, g, b := vga.frame[idx], vga.frame[idx+1], vga.frame[idx+2]; r != 0 || g != 0 || b != 170 {
		t.Fatalf("expected blue (0,0,170), got (%d,%d,%d)", r, g, b)
	}
}

func TestVGAText_ResetBlanksPage(t *testing.T) {
	vga := NewVGAText()

	vga.HandleWrite(VGA_TEXT_WINDOW, 'X')
	vga.HandleWrite(VGA_TEXT_WINDOW+1, 0x0F)
	vga.Reset()

	if got := vga.Cell(0, 0); got != 0 {
		t.Fatalf("expected blank cell after reset, got 0x%04X", got)
	}
}
