package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScriptForTest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestScriptDriver_TapDrivesTheGame(t *testing.T) {
	m, _ := startMachineForTest(t)
	driver := NewScriptDriver(m)

	path := writeScriptForTest(t, `tap("a")`)
	if err := driver.Run(path); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The tap went through the 8042 and the ISR, so the piece steps
	// one column left of its spawn
	waitForCell(t, m, 1, 4, 0x0700|uint16('#'))
}

func TestScriptDriver_ScreenReadsLabels(t *testing.T) {
	m, _ := startMachineForTest(t)
	driver := NewScriptDriver(m)

	path := writeScriptForTest(t, `
		if screen(2, 16, 5) ~= "NEXT:" then
			error("unexpected label: " .. screen(2, 16, 5))
		end
	`)
	if err := driver.Run(path); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestScriptDriver_WaitTicksFollowsCounter(t *testing.T) {
	m, _ := startMachineForTest(t)
	driver := NewScriptDriver(m)

	path := writeScriptForTest(t, `
		local before = ticks()
		wait_ticks(3)
		if ticks() - before < 3 then
			error("wait returned early")
		end
	`)

	errCh := make(chan error, 1)
	go func() { errCh <- driver.Run(path) }()

	// Feed heartbeats until the script finishes waiting on them
	deadline := time.Now().Add(10 * time.Second)
	for {
		select {
		case err := <-errCh:
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("script never finished")
		}
		pumpTicks(t, m, 1)
	}
}

func TestScriptDriver_StopStopsMachine(t *testing.T) {
	m, kernelDone := startMachineForTest(t)
	driver := NewScriptDriver(m)

	path := writeScriptForTest(t, `stop()`)
	if err := driver.Run(path); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	select {
	case <-m.Done():
	default:
		t.Fatalf("expected machine stopped by script")
	}
	select {
	case <-kernelDone:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected kernel to return after script stop")
	}
}

func TestScriptDriver_UnknownKeyErrors(t *testing.T) {
	m, _ := startMachineForTest(t)
	driver := NewScriptDriver(m)

	path := writeScriptForTest(t, `tap("z")`)
	err := driver.Run(path)
	if err == nil {
		t.Fatalf("expected error for a key with no make code")
	}
	if !strings.Contains(err.Error(), "no key produces") {
		t.Fatalf("expected key lookup error, got: %v", err)
	}
}

func TestScriptDriver_ScreenReadOutOfRangeErrors(t *testing.T) {
	m, _ := startMachineForTest(t)
	driver := NewScriptDriver(m)

	path := writeScriptForTest(t, `screen(25, 0, 1)`)
	err := driver.Run(path)
	if err == nil {
		t.Fatalf("expected error for an off-page read")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected range error, got: %v", err)
	}
}

func TestScriptDriver_MissingFileErrors(t *testing.T) {
	m, _ := startMachineForTest(t)
	driver := NewScriptDriver(m)

	if err := driver.Run(filepath.Join(t.TempDir(), "absent.lua")); err == nil {
		t.Fatalf("expected error for a missing script file")
	}
}
