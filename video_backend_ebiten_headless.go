//go:build headless

// video_backend_ebiten_headless.go - Ebiten stand-in for builds without a GUI toolchain

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

// NewEbitenOutput under the headless tag swaps the window for a frame
// sink, so CI and servers can build without X11 or GL headers.
func NewEbitenOutput() (VideoOutput, error) {
	return NewHeadlessOutput()
}
