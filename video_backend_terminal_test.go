//go:build !windows

package main

import (
	"bufio"
	"bytes"
	"testing"
	"time"
)

type hostKeyRecord struct {
	code    uint8
	pressed bool
}

// terminalForInputTest builds a TerminalOutput wired to a recording key
// handler, without touching the real tty.
func terminalForInputTest() (*TerminalOutput, *[]hostKeyRecord) {
	recs := &[]hostKeyRecord{}
	to := &TerminalOutput{out: bufio.NewWriter(&bytes.Buffer{})}
	to.keyHandler = func(code uint8, pressed bool) {
		*recs = append(*recs, hostKeyRecord{code, pressed})
	}
	return to, recs
}

func TestTerminalInput_ByteBecomesMakeBreakPair(t *testing.T) {
	to, recs := terminalForInputTest()

	to.routeHostByte('a')

	if len(*recs) != 2 {
		t.Fatalf("expected make/break pair, got %d events", len(*recs))
	}
	if (*recs)[0] != (hostKeyRecord{0x1E, true}) {
		t.Fatalf("expected make 0x1E, got %+v", (*recs)[0])
	}
	if (*recs)[1] != (hostKeyRecord{0x1E, false}) {
		t.Fatalf("expected break 0x1E, got %+v", (*recs)[1])
	}
}

func TestTerminalInput_UppercaseFolds(t *testing.T) {
	to, recs := terminalForInputTest()

	to.routeHostByte('A')

	if len(*recs) != 2 || (*recs)[0].code != 0x1E {
		t.Fatalf("expected folded 'a' events, got %+v", *recs)
	}
}

func TestTerminalInput_RawModeAliases(t *testing.T) {
	to, recs := terminalForInputTest()

	// Raw mode delivers CR for Enter and DEL for Backspace
	to.routeHostByte('\r')
	to.routeHostByte(0x7F)

	if len(*recs) != 4 {
		t.Fatalf("expected 4 events, got %d", len(*recs))
	}
	if (*recs)[0].code != 0x1C {
		t.Fatalf("expected Enter make code 0x1C, got 0x%02X", (*recs)[0].code)
	}
	if (*recs)[2].code != 0x0E {
		t.Fatalf("expected Backspace make code 0x0E, got 0x%02X", (*recs)[2].code)
	}
}

func TestTerminalInput_EscapeSequenceSwallowed(t *testing.T) {
	to, recs := terminalForInputTest()

	// Up arrow: none of its bytes may leak into the game as keys
	to.routeHostByte(0x1B)
	to.routeHostByte('[')
	to.routeHostByte('A')
	if len(*recs) != 0 {
		t.Fatalf("expected escape sequence swallowed, got %+v", *recs)
	}

	// The state machine must be closed again afterwards
	to.routeHostByte('a')
	if len(*recs) != 2 {
		t.Fatalf("expected input to flow after the sequence, got %d events", len(*recs))
	}
}

func TestTerminalInput_ControlGesturesStayHostSide(t *testing.T) {
	to, recs := terminalForInputTest()

	quit := make(chan struct{}, 1)
	reset := make(chan struct{}, 1)
	to.quitHandler = func() { quit <- struct{}{} }
	to.hardResetHandler = func() { reset <- struct{}{} }

	to.routeHostByte(0x03) // Ctrl+C
	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Ctrl+C to reach the quit handler")
	}

	to.routeHostByte(0x12) // Ctrl+R
	select {
	case <-reset:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Ctrl+R to reach the reset handler")
	}

	if len(*recs) != 0 {
		t.Fatalf("expected control gestures to produce no key events, got %+v", *recs)
	}
}

func TestTerminalInput_UnmappedBytesDropped(t *testing.T) {
	to, recs := terminalForInputTest()

	to.routeHostByte(0x01) // Ctrl+A, no gesture, no key
	to.routeHostByte(0xC3) // UTF-8 lead byte

	if len(*recs) != 0 {
		t.Fatalf("expected unmapped bytes dropped, got %+v", *recs)
	}
}

func TestTerminalGlyph_PrintableOnly(t *testing.T) {
	if got := terminalGlyph(0x0741); got != 'A' {
		t.Fatalf("expected 'A', got %q", got)
	}
	if got := terminalGlyph(0x0707); got != ' ' {
		t.Fatalf("expected control glyph blanked, got %q", got)
	}
	if got := terminalGlyph(0x077F); got != ' ' {
		t.Fatalf("expected DEL blanked, got %q", got)
	}
}

func TestWriteTextAttr_ColourOrderSwap(t *testing.T) {
	cases := []struct {
		attr int
		want string
	}{
		{0x07, "\x1b[37;40m"}, // light grey on black
		{0x0F, "\x1b[97;40m"}, // white is bright
		{0x1E, "\x1b[93;44m"}, // yellow on blue: VGA blue bit maps to ANSI 4
		{0x40, "\x1b[30;41m"}, // black on red
	}
	for _, c := range cases {
		var buf bytes.Buffer
		w := bufio.NewWriter(&buf)
		writeTextAttr(w, c.attr)
		w.Flush()
		if got := buf.String(); got != c.want {
			t.Errorf("attr 0x%02X: got %q, want %q", c.attr, got, c.want)
		}
	}
}
