// video_backend_headless.go - Frame sink with no host I/O

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import (
	"sync"
	"sync/atomic"
)

// HeadlessVideoOutput accepts frames and counts them. It backs the
// -display headless mode for scripted runs and stands in for a real
// display in tests.
type HeadlessVideoOutput struct {
	mu      sync.Mutex
	started bool
	config  DisplayConfig

	frameCount atomic.Uint64
}

func NewHeadlessOutput() (*HeadlessVideoOutput, error) {
	return &HeadlessVideoOutput{
		config: DisplayConfig{
			Width:       VGA_PIXELS_WIDE,
			Height:      VGA_PIXELS_HIGH,
			Scale:       1,
			RefreshRate: 60,
			PixelFormat: PixelFormatRGBA,
		},
	}, nil
}

func (h *HeadlessVideoOutput) Start() error {
	h.mu.Lock()
	h.started = true
	h.mu.Unlock()
	return nil
}

func (h *HeadlessVideoOutput) Stop() error {
	h.mu.Lock()
	h.started = false
	h.mu.Unlock()
	return nil
}

func (h *HeadlessVideoOutput) Close() error {
	return h.Stop()
}

func (h *HeadlessVideoOutput) IsStarted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

func (h *HeadlessVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	h.mu.Lock()
	h.config = config
	h.mu.Unlock()
	return nil
}

func (h *HeadlessVideoOutput) GetDisplayConfig() DisplayConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

func (h *HeadlessVideoOutput) UpdateFrame(buffer []byte) error {
	h.frameCount.Add(1)
	return nil
}

func (h *HeadlessVideoOutput) WaitForVSync() error {
	return nil
}

func (h *HeadlessVideoOutput) GetFrameCount() uint64 {
	return h.frameCount.Load()
}

func (h *HeadlessVideoOutput) GetRefreshRate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.config.RefreshRate == 0 {
		return 60
	}
	return h.config.RefreshRate
}
