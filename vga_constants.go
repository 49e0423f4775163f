// vga_constants.go - VGA colour text mode constants

package main

// Text mode buffer (PC convention: colour alphanumeric page at 0xB8000)
const (
	VGA_TEXT_WINDOW     = 0xB8000 // Text buffer start
	VGA_TEXT_WINDOW_END = 0xB8FFF // Mapped window, one bus page
	VGA_TEXT_PAGE_SIZE  = VGA_TEXT_COLS * VGA_TEXT_ROWS * 2
)

// VGA dimensions
const (
	VGA_TEXT_COLS = 80
	VGA_TEXT_ROWS = 25

	VGA_FONT_WIDTH  = 8
	VGA_FONT_HEIGHT = 16

	VGA_PIXELS_WIDE = VGA_TEXT_COLS * VGA_FONT_WIDTH  // 640
	VGA_PIXELS_HIGH = VGA_TEXT_ROWS * VGA_FONT_HEIGHT // 400
)

// Attribute byte colour indices. Foreground in the low nibble,
// background in bits 4-6, blink/bright background in bit 7.
const (
	VGA_BLACK = iota
	VGA_BLUE
	VGA_GREEN
	VGA_CYAN
	VGA_RED
	VGA_MAGENTA
	VGA_BROWN
	VGA_LIGHT_GREY
	VGA_DARK_GREY
	VGA_LIGHT_BLUE
	VGA_LIGHT_GREEN
	VGA_LIGHT_CYAN
	VGA_LIGHT_RED
	VGA_LIGHT_MAGENTA
	VGA_YELLOW
	VGA_WHITE
)
