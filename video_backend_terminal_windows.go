//go:build windows

// video_backend_terminal_windows.go - Terminal display placeholder for Windows builds

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

// NewTerminalOutput relies on nonblocking POSIX stdin; the Windows
// console has no equivalent, so the build gets an explicit error
// instead of a half-working renderer. The GUI backend works fine.
func NewTerminalOutput(vga *VGAText) (VideoOutput, error) {
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   "terminal display is not supported on Windows, use the GUI",
	}
}
