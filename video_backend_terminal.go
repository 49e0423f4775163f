//go:build !windows

// video_backend_terminal.go - ANSI renderer and raw key input on the controlling tty

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/term"
)

/*
TerminalOutput plays the game on the controlling terminal. It ignores
the rasterised frames from the refresh loop and reads the text cells
straight from the video device instead, diffing against the previous
snapshot and emitting ANSI moves, colours and glyphs only for cells
that changed. Stdin goes raw so keys arrive without line buffering or
OS echo; every byte is folded through the same reverse scancode table
the other frontends use and injected as a make/break pair, so from
the 8042 onwards a tty session is indistinguishable from the GUI.

Control bytes stay host-side: Ctrl+C stops the machine, Ctrl+R pulls
the reset line, Ctrl+L forces a full repaint. Arrow and function keys
arrive as escape sequences; a small state machine swallows them so
their bytes never leak into the game as moves.
*/

const terminalRefreshHz = 30

type TerminalOutput struct {
	vga *VGAText

	mu      sync.Mutex
	started bool
	config  DisplayConfig

	out  *bufio.Writer
	prev [VGA_TEXT_ROWS * VGA_TEXT_COLS]uint16

	curRow   int
	curCol   int
	lastAttr int

	fd           int
	oldTermState *term.State
	nonblockSet  bool

	keyHandler       func(scancode uint8, pressed bool)
	hardResetHandler func()
	quitHandler      func()

	escState int

	frameCount atomic.Uint64

	stopCh     chan struct{}
	renderDone chan struct{}
	readerDone chan struct{}
	stopOnce   sync.Once
}

// NewTerminalOutput creates a terminal renderer reading cells from
// the given text device.
func NewTerminalOutput(vga *VGAText) (*TerminalOutput, error) {
	if vga == nil {
		return nil, &VideoError{Operation: "backend creation", Details: "terminal output needs a text device"}
	}
	t := &TerminalOutput{
		vga: vga,
		out: bufio.NewWriterSize(os.Stdout, 64*1024),
		config: DisplayConfig{
			Width:       VGA_PIXELS_WIDE,
			Height:      VGA_PIXELS_HIGH,
			Scale:       1,
			RefreshRate: terminalRefreshHz,
			PixelFormat: PixelFormatRGBA,
		},
		stopCh:     make(chan struct{}),
		renderDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	t.invalidateLocked()
	return t, nil
}

// Start puts stdin in raw non-blocking mode, switches to the
// alternate screen and spawns the render and reader loops. Call Stop
// to put the terminal back.
func (t *TerminalOutput) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.mu.Unlock()

	t.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(t.fd)
	if err != nil {
		t.mu.Lock()
		t.started = false
		t.mu.Unlock()
		close(t.renderDone)
		close(t.readerDone)
		return &VideoError{Operation: "start", Details: "cannot set raw mode on stdin", Err: err}
	}
	t.oldTermState = oldState

	if err := syscall.SetNonblock(t.fd, true); err != nil {
		_ = term.Restore(t.fd, t.oldTermState)
		t.oldTermState = nil
		t.mu.Lock()
		t.started = false
		t.mu.Unlock()
		close(t.renderDone)
		close(t.readerDone)
		return &VideoError{Operation: "start", Details: "cannot set nonblocking stdin", Err: err}
	}
	t.nonblockSet = true

	// Alternate screen, hidden cursor, defined colours, clean slate.
	t.out.WriteString("\x1b[?1049h\x1b[?25l\x1b[0m\x1b[2J")
	t.out.Flush()

	go t.renderLoop()
	go t.readLoop()
	return nil
}

// Stop shuts the loops down and restores the terminal: primary
// screen, visible cursor, blocking cooked stdin. Safe to call more
// than once.
func (t *TerminalOutput) Stop() error {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})

	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = false
	t.mu.Unlock()

	<-t.renderDone
	<-t.readerDone

	if t.nonblockSet {
		_ = syscall.SetNonblock(t.fd, false)
		t.nonblockSet = false
	}
	t.out.WriteString("\x1b[0m\x1b[?25h\x1b[?1049l")
	t.out.Flush()
	if t.oldTermState != nil {
		_ = term.Restore(t.fd, t.oldTermState)
		t.oldTermState = nil
	}
	return nil
}

func (t *TerminalOutput) Close() error {
	return t.Stop()
}

func (t *TerminalOutput) IsStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *TerminalOutput) SetDisplayConfig(config DisplayConfig) error {
	t.mu.Lock()
	t.config = config
	t.mu.Unlock()
	return nil
}

func (t *TerminalOutput) GetDisplayConfig() DisplayConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config
}

// UpdateFrame discards the pixel payload; the renderer works from
// text cells, not the rasterised frame.
func (t *TerminalOutput) UpdateFrame(buffer []byte) error {
	return nil
}

func (t *TerminalOutput) WaitForVSync() error {
	return nil
}

func (t *TerminalOutput) GetFrameCount() uint64 {
	return t.frameCount.Load()
}

func (t *TerminalOutput) GetRefreshRate() int {
	return terminalRefreshHz
}

func (t *TerminalOutput) SetKeyEventHandler(handler func(scancode uint8, pressed bool)) {
	t.mu.Lock()
	t.keyHandler = handler
	t.mu.Unlock()
}

func (t *TerminalOutput) SetHardResetHandler(handler func()) {
	t.mu.Lock()
	t.hardResetHandler = handler
	t.mu.Unlock()
}

func (t *TerminalOutput) SetQuitHandler(handler func()) {
	t.mu.Lock()
	t.quitHandler = handler
	t.mu.Unlock()
}

func (t *TerminalOutput) renderLoop() {
	defer close(t.renderDone)
	ticker := time.NewTicker(time.Second / terminalRefreshHz)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.renderCells()
			t.frameCount.Add(1)
		}
	}
}

// renderCells diffs the current text page against the last one sent
// and emits only the changed cells. Cursor moves are skipped while
// consecutive changed cells sit on the same row, and colour codes are
// only emitted when the attribute actually changes.
func (t *TerminalOutput) renderCells() {
	cells := t.vga.Cells()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}

	for row := 0; row < VGA_TEXT_ROWS; row++ {
		for col := 0; col < VGA_TEXT_COLS; col++ {
			i := row*VGA_TEXT_COLS + col
			cell := cells[i]
			if cell == t.prev[i] {
				continue
			}
			t.prev[i] = cell

			if row != t.curRow || col != t.curCol {
				fmt.Fprintf(t.out, "\x1b[%d;%dH", row+1, col+1)
				t.curRow, t.curCol = row, col
			}
			if attr := int(cell >> 8); attr != t.lastAttr {
				writeTextAttr(t.out, attr)
				t.lastAttr = attr
			}
			t.out.WriteByte(terminalGlyph(cell))
			t.curCol++
		}
	}
	t.out.Flush()
}

// invalidateLocked marks every cell stale so the next pass repaints
// the whole screen. Caller holds t.mu, or owns t exclusively.
func (t *TerminalOutput) invalidateLocked() {
	for i := range t.prev {
		t.prev[i] = 0xFFFF
	}
	t.curRow, t.curCol = -1, -1
	t.lastAttr = -1
}

func (t *TerminalOutput) forceRepaint() {
	t.mu.Lock()
	t.invalidateLocked()
	t.out.WriteString("\x1b[2J")
	t.out.Flush()
	t.mu.Unlock()
}

// readLoop pulls single bytes from nonblocking stdin and routes them.
func (t *TerminalOutput) readLoop() {
	defer close(t.readerDone)
	buf := make([]byte, 1)

	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		n, err := syscall.Read(t.fd, buf)
		if n > 0 {
			t.routeHostByte(buf[0])
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// routeHostByte handles one raw stdin byte: swallow escape
// sequences, act on the control gestures, translate the rest into a
// make/break scancode pair.
func (t *TerminalOutput) routeHostByte(b byte) {
	t.mu.Lock()
	switch t.escState {
	case 1:
		if b == '[' || b == 'O' {
			t.escState = 2
		} else {
			t.escState = 0
		}
		t.mu.Unlock()
		return
	case 2:
		// CSI parameter bytes keep the sequence open; a final byte
		// in 0x40-0x7E closes it.
		if b >= 0x40 && b <= 0x7E {
			t.escState = 0
		}
		t.mu.Unlock()
		return
	}
	if b == 0x1B {
		t.escState = 1
		t.mu.Unlock()
		return
	}
	keyHandler := t.keyHandler
	quitHandler := t.quitHandler
	resetHandler := t.hardResetHandler
	t.mu.Unlock()

	switch b {
	case 0x03: // Ctrl+C
		if quitHandler != nil {
			// Stopping the machine tears this backend down too;
			// doing that from the reader goroutine would deadlock.
			go quitHandler()
		}
		return
	case 0x12: // Ctrl+R
		if resetHandler != nil {
			go resetHandler()
		}
		return
	case 0x0C: // Ctrl+L
		t.forceRepaint()
		return
	}

	if keyHandler == nil {
		return
	}

	// Raw mode sends CR for Enter and DEL for Backspace.
	if b == '\r' {
		b = '\n'
	}
	if b == 0x7F {
		b = 0x08
	}
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	if b >= 128 {
		return
	}
	code := makeCodeForChar[b]
	if code == 0 {
		return
	}

	// A tty reports no releases, so each byte becomes a full press.
	// Host autorepeat shows up as fresh presses, which is exactly
	// how held keys behave on the GUI path.
	keyHandler(code, true)
	keyHandler(code, false)
}

// vgaToANSI maps the VGA colour order (blue lowest bit) to the ANSI
// order (red lowest bit).
var vgaToANSI = [8]int{0, 4, 2, 6, 1, 5, 3, 7}

func writeTextAttr(w *bufio.Writer, attr int) {
	fg := attr & 0x0F
	bg := (attr >> 4) & 0x0F
	fgCode := 30 + vgaToANSI[fg&7]
	if fg >= 8 {
		fgCode += 60
	}
	bgCode := 40 + vgaToANSI[bg&7]
	if bg >= 8 {
		bgCode += 60
	}
	fmt.Fprintf(w, "\x1b[%d;%dm", fgCode, bgCode)
}

// terminalGlyph renders the printable ASCII range and blanks the
// rest; the game never draws outside it.
func terminalGlyph(cell uint16) byte {
	b := byte(cell)
	if b < 0x20 || b > 0x7E {
		return ' '
	}
	return b
}
