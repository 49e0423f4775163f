//go:build !headless

// video_backend_ebiten.go - Ebiten display backend: host window, key capture, status overlay

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image/color"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

/*
The Ebiten backend owns the host window. The refresh loop hands it
complete RGBA frames through UpdateFrame; Draw uploads the latest one
to the GPU on each display frame, so a slow host never stalls the
machine. Host keys are translated to set 1 make/break codes and fed
through the registered handler, which keeps every input path (window,
terminal, script) identical from the 8042 onwards.

Hotkeys live outside the scancode map so the guest never sees them:
F10 hard-resets the machine, F11 toggles fullscreen, F12 toggles the
runtime status overlay, and Ctrl+Shift+V types the host clipboard
into the game one key at a time.
*/

const maxPasteLength = 4096

type EbitenOutput struct {
	mutex   sync.RWMutex
	running bool

	window *ebiten.Image
	width  int
	height int
	format PixelFormat

	scale      int
	fullscreen bool
	vsync      bool

	frameBuffer []byte
	bufferMutex sync.RWMutex

	frameCount  atomic.Uint64
	refreshRate int

	vsyncChan chan struct{}
	done      chan struct{}

	keyHandler       func(scancode uint8, pressed bool)
	hardResetHandler func()
	resetInProgress  atomic.Bool

	showStatusBar bool
}

var (
	clipboardInitOnce sync.Once
	clipboardInitErr  error
)

func NewEbitenOutput() (*EbitenOutput, error) {
	eo := &EbitenOutput{
		width:       VGA_PIXELS_WIDE,
		height:      VGA_PIXELS_HIGH,
		format:      PixelFormatRGBA,
		scale:       1,
		vsync:       true,
		refreshRate: 60,
		vsyncChan:   make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	eo.window = ebiten.NewImage(eo.width, eo.height)
	return eo, nil
}

// Start opens the window and blocks until the first frame has been
// drawn, so callers can rely on the display existing afterwards.
func (eo *EbitenOutput) Start() error {
	eo.mutex.Lock()
	if eo.running {
		eo.mutex.Unlock()
		return nil
	}
	eo.running = true
	scale := eo.scale
	fullscreen := eo.fullscreen
	vsync := eo.vsync
	eo.mutex.Unlock()

	ebiten.SetWindowSize(eo.width*scale, eo.height*scale)
	ebiten.SetWindowTitle("Bare Metal Tetris")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(vsync)
	if fullscreen {
		ebiten.SetFullscreen(true)
	}

	go func() {
		defer close(eo.done)
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Printf("Error running display: %v\n", err)
		}
	}()

	// First Draw signals here. If the window cannot be created the
	// game loop exits instead and we report the failure.
	select {
	case <-eo.vsyncChan:
		return nil
	case <-eo.done:
		eo.mutex.Lock()
		eo.running = false
		eo.mutex.Unlock()
		return &VideoError{Operation: "start", Details: "display loop exited before first frame"}
	}
}

func (eo *EbitenOutput) Stop() error {
	eo.mutex.Lock()
	defer eo.mutex.Unlock()
	eo.running = false
	return nil
}

func (eo *EbitenOutput) Close() error {
	eo.Stop()

	eo.bufferMutex.Lock()
	eo.frameBuffer = nil
	eo.bufferMutex.Unlock()

	eo.mutex.Lock()
	if eo.window != nil {
		eo.window.Dispose()
		eo.window = nil
	}
	eo.mutex.Unlock()
	return nil
}

func (eo *EbitenOutput) IsStarted() bool {
	eo.mutex.RLock()
	defer eo.mutex.RUnlock()
	return eo.running
}

// Done is closed once the window loop has exited, whether from the
// close button or from Stop.
func (eo *EbitenOutput) Done() <-chan struct{} {
	return eo.done
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	if config.PixelFormat != PixelFormatRGBA {
		return &VideoError{
			Operation: "config update",
			Details:   fmt.Sprintf("unsupported pixel format: %d", config.PixelFormat),
		}
	}

	eo.mutex.Lock()
	if config.Width > 0 && config.Height > 0 &&
		(config.Width != eo.width || config.Height != eo.height) {
		eo.width = config.Width
		eo.height = config.Height
		old := eo.window
		eo.window = ebiten.NewImage(eo.width, eo.height)
		if old != nil {
			old.Dispose()
		}
	}
	if config.Scale != 0 {
		eo.scale = clampWindowScale(config.Scale)
	}
	if config.RefreshRate != 0 {
		eo.refreshRate = config.RefreshRate
	}
	eo.fullscreen = config.Fullscreen
	eo.vsync = config.VSync
	running := eo.running
	scale := eo.scale
	eo.mutex.Unlock()

	if running {
		ebiten.SetWindowSize(eo.width*scale, eo.height*scale)
		ebiten.SetFullscreen(config.Fullscreen)
		ebiten.SetVsyncEnabled(config.VSync)
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.mutex.RLock()
	defer eo.mutex.RUnlock()
	return DisplayConfig{
		Width:       eo.width,
		Height:      eo.height,
		Scale:       eo.scale,
		RefreshRate: eo.refreshRate,
		PixelFormat: eo.format,
		VSync:       eo.vsync,
		Fullscreen:  eo.fullscreen,
	}
}

func (eo *EbitenOutput) UpdateFrame(buffer []byte) error {
	eo.mutex.RLock()
	expected := eo.width * eo.height * 4
	eo.mutex.RUnlock()
	if len(buffer) != expected {
		return &VideoError{
			Operation: "frame update",
			Details:   fmt.Sprintf("buffer size %d does not match %d-byte RGBA frame", len(buffer), expected),
		}
	}

	eo.bufferMutex.Lock()
	if len(eo.frameBuffer) != len(buffer) {
		eo.frameBuffer = make([]byte, len(buffer))
	}
	copy(eo.frameBuffer, buffer)
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) WaitForVSync() error {
	select {
	case <-eo.vsyncChan:
		return nil
	case <-eo.done:
		return &VideoError{Operation: "vsync wait", Details: "display loop has exited"}
	}
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount.Load()
}

func (eo *EbitenOutput) GetRefreshRate() int {
	eo.mutex.RLock()
	defer eo.mutex.RUnlock()
	return eo.refreshRate
}

func (eo *EbitenOutput) SetKeyEventHandler(handler func(scancode uint8, pressed bool)) {
	eo.mutex.Lock()
	eo.keyHandler = handler
	eo.mutex.Unlock()
}

func (eo *EbitenOutput) SetHardResetHandler(handler func()) {
	eo.mutex.Lock()
	eo.hardResetHandler = handler
	eo.mutex.Unlock()
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() {
		eo.mutex.Lock()
		eo.running = false
		eo.mutex.Unlock()
	}

	eo.mutex.RLock()
	running := eo.running
	resetHandler := eo.hardResetHandler
	eo.mutex.RUnlock()
	if !running {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF10) && resetHandler != nil {
		// The reset walks every device and must not stall the game
		// loop; one at a time is plenty.
		if eo.resetInProgress.CompareAndSwap(false, true) {
			go func() {
				defer eo.resetInProgress.Store(false)
				resetHandler()
			}()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.showStatusBar = !eo.showStatusBar
	}

	eo.handleKeyboardInput()
	return nil
}

// ebitenScancodes maps host keys to set 1 make codes, the same codes
// a real XT keyboard puts on the wire. Break codes are the make code
// with bit 7 set, produced by the pressed=false path.
var ebitenScancodes = []struct {
	key  ebiten.Key
	code uint8
}{
	{ebiten.KeyEscape, 0x01},
	{ebiten.KeyDigit1, 0x02}, {ebiten.KeyDigit2, 0x03}, {ebiten.KeyDigit3, 0x04},
	{ebiten.KeyDigit4, 0x05}, {ebiten.KeyDigit5, 0x06}, {ebiten.KeyDigit6, 0x07},
	{ebiten.KeyDigit7, 0x08}, {ebiten.KeyDigit8, 0x09}, {ebiten.KeyDigit9, 0x0A},
	{ebiten.KeyDigit0, 0x0B},
	{ebiten.KeyMinus, 0x0C}, {ebiten.KeyEqual, 0x0D},
	{ebiten.KeyBackspace, 0x0E}, {ebiten.KeyTab, 0x0F},
	{ebiten.KeyQ, 0x10}, {ebiten.KeyW, 0x11}, {ebiten.KeyE, 0x12}, {ebiten.KeyR, 0x13},
	{ebiten.KeyT, 0x14}, {ebiten.KeyY, 0x15}, {ebiten.KeyU, 0x16}, {ebiten.KeyI, 0x17},
	{ebiten.KeyO, 0x18}, {ebiten.KeyP, 0x19},
	{ebiten.KeyBracketLeft, 0x1A}, {ebiten.KeyBracketRight, 0x1B},
	{ebiten.KeyEnter, 0x1C}, {ebiten.KeyControlLeft, 0x1D},
	{ebiten.KeyA, 0x1E}, {ebiten.KeyS, 0x1F}, {ebiten.KeyD, 0x20}, {ebiten.KeyF, 0x21},
	{ebiten.KeyG, 0x22}, {ebiten.KeyH, 0x23}, {ebiten.KeyJ, 0x24}, {ebiten.KeyK, 0x25},
	{ebiten.KeyL, 0x26},
	{ebiten.KeySemicolon, 0x27}, {ebiten.KeyQuote, 0x28}, {ebiten.KeyBackquote, 0x29},
	{ebiten.KeyShiftLeft, 0x2A}, {ebiten.KeyBackslash, 0x2B},
	{ebiten.KeyZ, 0x2C}, {ebiten.KeyX, 0x2D}, {ebiten.KeyC, 0x2E}, {ebiten.KeyV, 0x2F},
	{ebiten.KeyB, 0x30}, {ebiten.KeyN, 0x31}, {ebiten.KeyM, 0x32},
	{ebiten.KeyComma, 0x33}, {ebiten.KeyPeriod, 0x34}, {ebiten.KeySlash, 0x35},
	{ebiten.KeyShiftRight, 0x36}, {ebiten.KeyNumpadMultiply, 0x37},
	{ebiten.KeyAltLeft, 0x38}, {ebiten.KeySpace, 0x39},
}

func (eo *EbitenOutput) handleKeyboardInput() {
	eo.mutex.RLock()
	handler := eo.keyHandler
	eo.mutex.RUnlock()
	if handler == nil {
		return
	}

	if ebiten.IsKeyPressed(ebiten.KeyControl) && ebiten.IsKeyPressed(ebiten.KeyShift) &&
		inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eo.handleClipboardPaste(handler)
		return
	}

	for _, m := range ebitenScancodes {
		if inpututil.IsKeyJustPressed(m.key) {
			handler(m.code, true)
		}
		if inpututil.IsKeyJustReleased(m.key) {
			handler(m.code, false)
		}
	}
}

// handleClipboardPaste types the host clipboard into the guest as a
// make/break pair per character. Uppercase folds to lowercase since
// the decode table carries no shift state; characters without a
// scancode are skipped. Controller overflow drops keys, same as
// typing faster than the guest polls.
func (eo *EbitenOutput) handleClipboardPaste(handler func(scancode uint8, pressed bool)) {
	clipboardInitOnce.Do(func() {
		clipboardInitErr = clipboard.Init()
	})
	if clipboardInitErr != nil {
		fmt.Printf("Clipboard unavailable: %v\n", clipboardInitErr)
		return
	}

	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}

	pasted := capPasteText(normalizePasteText(string(data)))
	for _, r := range pasted {
		ch := r
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		if ch < 0 || ch >= 128 {
			continue
		}
		code := makeCodeForChar[ch]
		if code == 0 {
			continue
		}
		handler(code, true)
		handler(code, false)
	}
}

func normalizePasteText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

func capPasteText(s string) string {
	if len(s) <= maxPasteLength {
		return s
	}
	return s[:maxPasteLength]
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	eo.bufferMutex.RLock()
	if eo.frameBuffer != nil && eo.window != nil {
		eo.window.WritePixels(eo.frameBuffer)
	}
	eo.bufferMutex.RUnlock()

	if eo.window != nil {
		screen.DrawImage(eo.window, nil)
	}

	if eo.showStatusBar {
		eo.drawRuntimeStatusBar(screen)
	}

	eo.frameCount.Add(1)

	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) Layout(outsideWidth, outsideHeight int) (int, int) {
	return eo.width, eo.height
}

type statusToken struct {
	name    string
	enabled bool
}

func drawStatusLine(screen *ebiten.Image, tokens []statusToken, x, y int) {
	for _, tok := range tokens {
		col := color.RGBA{R: 0x58, G: 0x58, B: 0x58, A: 0xFF}
		if tok.enabled {
			col = color.RGBA{R: 0x30, G: 0xD0, B: 0x30, A: 0xFF}
		}
		text.Draw(screen, tok.name, basicfont.Face7x13, x, y, col)
		x += (len(tok.name) + 2) * 7
	}
}

// drawRuntimeStatusBar overlays live machine counters on the bottom
// of the frame. Dim tokens flag conditions worth a look: interrupts
// masked, timer unprogrammed, keys backing up in the controller.
func (eo *EbitenOutput) drawRuntimeStatusBar(screen *ebiten.Image) {
	rs := runtimeStatus.snapshot()

	barHeight := 60
	barTop := eo.height - barHeight
	ebitenutil.DrawRect(screen, 0, float64(barTop), float64(eo.width), float64(barHeight), color.RGBA{A: 0xC0})

	intrLine := []statusToken{{name: "INTR ", enabled: true}}
	if rs.intr != nil {
		dropped := rs.intr.Unhandled()
		intrLine = append(intrLine,
			statusToken{name: "IF", enabled: rs.intr.InterruptsEnabled()},
			statusToken{name: fmt.Sprintf("SERVICED %d", rs.intr.Delivered()), enabled: true},
			statusToken{name: fmt.Sprintf("DROPPED %d", dropped), enabled: dropped == 0},
		)
	}
	if rs.pics != nil {
		masterIMR, _, _ := rs.pics.Master.Registers()
		slaveIMR, _, _ := rs.pics.Slave.Registers()
		intrLine = append(intrLine,
			statusToken{name: fmt.Sprintf("IMR %02X/%02X", masterIMR, slaveIMR), enabled: true})
	}

	timerLine := []statusToken{{name: "TIMER", enabled: true}}
	if rs.pit != nil {
		rate := rs.pit.Rate()
		timerLine = append(timerLine,
			statusToken{name: fmt.Sprintf("%.1f HZ", rate), enabled: rate > 0},
			statusToken{name: fmt.Sprintf("PULSES %d", rs.pit.Pulses()), enabled: true})
	}
	if rs.kernel != nil {
		timerLine = append(timerLine,
			statusToken{name: fmt.Sprintf("TICKS %d", rs.kernel.Ticks()), enabled: true})
	}

	videoLine := []statusToken{
		{name: "VIDEO", enabled: true},
		{name: fmt.Sprintf("FRAMES %d", eo.frameCount.Load()), enabled: true},
		{name: fmt.Sprintf("FPS %.0f", ebiten.ActualFPS()), enabled: true},
	}
	if rs.vga != nil {
		videoLine = append(videoLine,
			statusToken{name: fmt.Sprintf("PAGES %d", rs.vga.Frames()), enabled: true})
	}
	if rs.kbc != nil {
		backlog := rs.kbc.Buffered()
		videoLine = append(videoLine,
			statusToken{name: fmt.Sprintf("KBD %d", backlog), enabled: backlog == 0})
	}

	drawStatusLine(screen, intrLine, 8, barTop+13)
	drawStatusLine(screen, timerLine, 8, barTop+27)
	drawStatusLine(screen, videoLine, 8, barTop+41)
	text.Draw(screen, "F10 RESET  F11 FULLSCREEN  F12 STATUS  CTRL+SHIFT+V PASTE",
		basicfont.Face7x13, 8, barTop+55, color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF})
}

func clampWindowScale(scale int) int {
	if scale < 1 {
		return 1
	}
	if scale > 4 {
		return 4
	}
	return scale
}
