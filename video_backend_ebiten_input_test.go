//go:build !headless

package main

import (
	"strings"
	"testing"
)

func TestClipboardPaste_NormalizeLineEndings(t *testing.T) {
	got := normalizePasteText("a\r\nb\rc\n")
	if got != "a\nb\nc\n" {
		t.Fatalf("expected CR and CRLF folded to LF, got %q", got)
	}
}

func TestClipboardPaste_CapLength(t *testing.T) {
	long := strings.Repeat("x", maxPasteLength+100)
	got := capPasteText(long)
	if len(got) != maxPasteLength {
		t.Fatalf("expected paste capped at %d, got %d", maxPasteLength, len(got))
	}

	short := "hello"
	if capPasteText(short) != short {
		t.Fatal("expected short paste untouched")
	}
}

func TestEbitenScancodes_GameKeys(t *testing.T) {
	// The keys the game polls for must carry the standard set 1 codes,
	// matching what the decode table expects back on the kernel side
	want := map[string]uint8{
		"a": 0x1E, "s": 0x1F, "d": 0x20, "w": 0x11,
		"q": 0x10, "p": 0x19, "r": 0x13,
	}
	found := map[uint8]bool{}
	for _, m := range ebitenScancodes {
		found[m.code] = true
	}
	for name, code := range want {
		if !found[code] {
			t.Errorf("key %q: no mapping emits scancode 0x%02X", name, code)
		}
	}
}

func TestEbitenScancodes_NoDuplicates(t *testing.T) {
	keys := map[int]bool{}
	codes := map[uint8]bool{}
	for _, m := range ebitenScancodes {
		if keys[int(m.key)] {
			t.Errorf("host key %v mapped twice", m.key)
		}
		keys[int(m.key)] = true
		if codes[m.code] {
			t.Errorf("scancode 0x%02X produced by two keys", m.code)
		}
		codes[m.code] = true
	}
}

func TestClampWindowScale_Bounds(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {-2, 1}, {1, 1}, {3, 3}, {4, 4}, {9, 4},
	}
	for _, c := range cases {
		if got := clampWindowScale(c.in); got != c.want {
			t.Errorf("clampWindowScale(%d): got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEbitenOutput_ImplementsOptionalInterfaces(t *testing.T) {
	var eo any = &EbitenOutput{}
	if _, ok := eo.(VideoOutput); !ok {
		t.Error("expected EbitenOutput to implement VideoOutput")
	}
	if _, ok := eo.(InputCapable); !ok {
		t.Error("expected EbitenOutput to implement InputCapable")
	}
	if _, ok := eo.(ResetCapable); !ok {
		t.Error("expected EbitenOutput to implement ResetCapable")
	}
}
