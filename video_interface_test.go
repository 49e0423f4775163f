package main

import (
	"errors"
	"strings"
	"testing"
)

func TestVideoError_Format(t *testing.T) {
	e := &VideoError{Operation: "frame update", Details: "bad size"}
	if got := e.Error(); got != "video frame update failed: bad size" {
		t.Fatalf("unexpected message: %q", got)
	}

	wrapped := &VideoError{Operation: "start", Details: "no display", Err: errors.New("boom")}
	if got := wrapped.Error(); !strings.Contains(got, "boom") {
		t.Fatalf("expected underlying error in message, got %q", got)
	}
}

func TestNewVideoOutput_Headless(t *testing.T) {
	out, err := NewVideoOutput(VIDEO_BACKEND_HEADLESS)
	if err != nil {
		t.Fatalf("headless backend failed: %v", err)
	}
	if _, ok := out.(*HeadlessVideoOutput); !ok {
		t.Fatalf("expected *HeadlessVideoOutput, got %T", out)
	}
}

func TestNewVideoOutput_TerminalNeedsSource(t *testing.T) {
	// The terminal renderer reads cells from the video device rather
	// than consuming raster frames, so the generic factory refuses it
	if _, err := NewVideoOutput(VIDEO_BACKEND_TERMINAL); err == nil {
		t.Fatal("expected error for terminal backend without a source")
	}
}

func TestNewVideoOutput_UnknownBackend(t *testing.T) {
	if _, err := NewVideoOutput(99); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
