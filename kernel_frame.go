// kernel_frame.go - Text frame store: double buffered composition with diffed flush

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

/*
FrameStore composes the 80x25 text screen in RAM and pushes only the
difference to video memory. The kernel writes cells into the next
buffer, and Flush compares next against current cell by cell: where
they differ, the cell goes out over the bus and current is updated.
Between flushes, current is an exact mirror of everything the frame
store has ever written to VGA, which is what makes the diff sound.

WriteString and WriteChar bypass the buffers and hit video memory
directly. Cells painted that way survive until composition happens to
claim them, so they are used for the static panels the game never
recomposes.
*/
type FrameStore struct {
	bus *MachineBus

	current [VGA_TEXT_ROWS * VGA_TEXT_COLS]uint16
	next    [VGA_TEXT_ROWS * VGA_TEXT_COLS]uint16
}

func NewFrameStore(bus *MachineBus) *FrameStore {
	return &FrameStore{bus: bus}
}

// Init resets both buffers to the blank attribute. Video memory is
// left alone; ClearScreen handles the visible side.
func (f *FrameStore) Init() {
	for i := range f.current {
		f.current[i] = 0x0700
		f.next[i] = 0x0700
	}
}

// ClearScreen blanks video memory directly, every cell a space on
// light grey.
func (f *FrameStore) ClearScreen() {
	for i := 0; i < VGA_TEXT_ROWS*VGA_TEXT_COLS; i++ {
		f.bus.Write16(VGA_TEXT_WINDOW+uint32(i)*2, 0x0700|uint16(' '))
	}
}

// SetCell stages one cell in the next buffer. Out of range positions
// are ignored.
func (f *FrameStore) SetCell(row, col int, cell uint16) {
	if row < 0 || row >= VGA_TEXT_ROWS || col < 0 || col >= VGA_TEXT_COLS {
		return
	}
	f.next[row*VGA_TEXT_COLS+col] = cell
}

// Cell reads a staged cell back from the next buffer.
func (f *FrameStore) Cell(row, col int) uint16 {
	if row < 0 || row >= VGA_TEXT_ROWS || col < 0 || col >= VGA_TEXT_COLS {
		return 0
	}
	return f.next[row*VGA_TEXT_COLS+col]
}

// Flush writes every staged cell that differs from the mirror, and
// only those.
func (f *FrameStore) Flush() {
	for i := range f.next {
		if f.current[i] != f.next[i] {
			f.current[i] = f.next[i]
			f.bus.Write16(VGA_TEXT_WINDOW+uint32(i)*2, f.current[i])
		}
	}
}

// WriteString paints text straight into video memory. Colour is the
// attribute already shifted into the high byte. Text runs off the
// right edge are clipped.
func (f *FrameStore) WriteString(text string, colour uint16, row, col int) {
	if row < 0 || row >= VGA_TEXT_ROWS {
		return
	}
	for i := 0; i < len(text); i++ {
		c := col + i
		if c < 0 {
			continue
		}
		if c >= VGA_TEXT_COLS {
			break
		}
		offset := uint32(row*VGA_TEXT_COLS+c) * 2
		f.bus.Write16(VGA_TEXT_WINDOW+offset, colour|uint16(text[i]))
	}
}

// WriteChar paints one character straight into video memory.
func (f *FrameStore) WriteChar(ch byte, colour uint16, row, col int) {
	if row < 0 || row >= VGA_TEXT_ROWS || col < 0 || col >= VGA_TEXT_COLS {
		return
	}
	offset := uint32(row*VGA_TEXT_COLS+col) * 2
	f.bus.Write16(VGA_TEXT_WINDOW+offset, colour|uint16(ch))
}
