package main

import "testing"

func TestMachineBus_ReadWriteRAM(t *testing.T) {
	bus := NewMachineBus()

	bus.Write8(0x1234, 0xAB)
	if got := bus.Read8(0x1234); got != 0xAB {
		t.Fatalf("expected 0xAB, got 0x%02X", got)
	}

	bus.Write16(0x2000, 0xBEEF)
	if got := bus.Read16(0x2000); got != 0xBEEF {
		t.Fatalf("expected 0xBEEF, got 0x%04X", got)
	}
	if lo := bus.Read8(0x2000); lo != 0xEF {
		t.Fatalf("expected low byte 0xEF, got 0x%02X", lo)
	}
	if hi := bus.Read8(0x2001); hi != 0xBE {
		t.Fatalf("expected high byte 0xBE, got 0x%02X", hi)
	}
}

func TestMachineBus_PastEndOfRAMFloats(t *testing.T) {
	bus := NewMachineBus()

	if got := bus.Read8(RAM_SIZE); got != 0xFF {
		t.Fatalf("expected 0xFF past end of RAM, got 0x%02X", got)
	}
	if got := bus.Read16(RAM_SIZE - 1); got != 0xFFFF {
		t.Fatalf("expected 0xFFFF for straddling word, got 0x%04X", got)
	}

	// Writes off the end are dropped, not wrapped
	bus.Write8(RAM_SIZE+4, 0x12)
	bus.Write16(RAM_SIZE-1, 0x3456)
	if got := bus.Read8(RAM_SIZE - 1); got != 0 {
		t.Fatalf("expected straddling write to be dropped, got 0x%02X", got)
	}
}

func TestMachineBus_MMIODispatch(t *testing.T) {
	bus := NewMachineBus()

	var lastAddr uint32
	var lastValue uint8
	reads := 0

	bus.MapIO(0xB8000, 0xB8FFF,
		func(addr uint32) uint8 {
			reads++
			return uint8(addr)
		},
		func(addr uint32, value uint8) {
			lastAddr = addr
			lastValue = value
		})

	bus.Write8(0xB8010, 0x42)
	if lastAddr != 0xB8010 || lastValue != 0x42 {
		t.Fatalf("expected write to reach device at 0xB8010, got addr=0x%X value=0x%02X", lastAddr, lastValue)
	}
	if got := bus.Read8(0xB8034); got != 0x34 {
		t.Fatalf("expected device read 0x34, got 0x%02X", got)
	}
	if reads != 1 {
		t.Fatalf("expected 1 device read, got %d", reads)
	}

	// Outside the window the access lands in plain RAM
	bus.Write8(0xB7FFF, 0x55)
	if lastValue == 0x55 {
		t.Fatalf("expected access below window to stay off the device")
	}
	if got := bus.Read8(0xB7FFF); got != 0x55 {
		t.Fatalf("expected RAM readback 0x55, got 0x%02X", got)
	}
}

func TestMachineBus_Wide16SplitsOnMMIO(t *testing.T) {
	bus := NewMachineBus()

	type byteWrite struct {
		addr  uint32
		value uint8
	}
	var writes []byteWrite
	shadow := map[uint32]uint8{}

	bus.MapIO(0xB8000, 0xB8FFF,
		func(addr uint32) uint8 { return shadow[addr] },
		func(addr uint32, value uint8) {
			writes = append(writes, byteWrite{addr, value})
			shadow[addr] = value
		})

	bus.Write16(0xB8000, 0x0741)
	if len(writes) != 2 {
		t.Fatalf("expected word write to split into 2 byte writes, got %d", len(writes))
	}
	if writes[0].addr != 0xB8000 || writes[0].value != 0x41 {
		t.Fatalf("expected low byte 0x41 first, got addr=0x%X value=0x%02X", writes[0].addr, writes[0].value)
	}
	if writes[1].addr != 0xB8001 || writes[1].value != 0x07 {
		t.Fatalf("expected high byte 0x07 second, got addr=0x%X value=0x%02X", writes[1].addr, writes[1].value)
	}

	if got := bus.Read16(0xB8000); got != 0x0741 {
		t.Fatalf("expected word readback 0x0741, got 0x%04X", got)
	}
}

func TestMachineBus_PortDispatch(t *testing.T) {
	bus := NewMachineBus()

	latch := uint8(0)
	bus.MapPorts(0x60, 0x64,
		func(port uint16) uint8 { return latch + uint8(port&0x0F) },
		func(port uint16, value uint8) { latch = value })

	bus.Out8(0x60, 0x30)
	if got := bus.In8(0x60); got != 0x30 {
		t.Fatalf("expected 0x30 from device, got 0x%02X", got)
	}
	if got := bus.In8(0x64); got != 0x34 {
		t.Fatalf("expected 0x34 from device, got 0x%02X", got)
	}
}

func TestMachineBus_UnclaimedPortFloats(t *testing.T) {
	bus := NewMachineBus()

	if got := bus.In8(0x3F8); got != 0xFF {
		t.Fatalf("expected unclaimed port to float 0xFF, got 0x%02X", got)
	}
	bus.Out8(0x3F8, 0x99) // dropped

	// A claimed neighbour does not widen the claim
	bus.MapPorts(0x20, 0x21, func(uint16) uint8 { return 0x11 }, nil)
	if got := bus.In8(0x22); got != 0xFF {
		t.Fatalf("expected port next to claim to float, got 0x%02X", got)
	}
}

func TestMachineBus_MapAfterSealPanics(t *testing.T) {
	bus := NewMachineBus()
	bus.SealMappings()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected MapIO after seal to panic")
		}
	}()
	bus.MapIO(0x1000, 0x1FFF, nil, nil)
}

func TestMachineBus_MapPortsAfterSealPanics(t *testing.T) {
	bus := NewMachineBus()
	bus.SealMappings()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected MapPorts after seal to panic")
		}
	}()
	bus.MapPorts(0x40, 0x43, nil, nil)
}

func TestMachineBus_ResetClearsMemoryKeepsMappings(t *testing.T) {
	bus := NewMachineBus()

	value := uint8(0)
	bus.MapPorts(0x40, 0x40,
		func(uint16) uint8 { return value },
		func(_ uint16, v uint8) { value = v })
	bus.SealMappings()

	bus.Write8(0x500, 0xAA)
	bus.Out8(0x40, 0x77)

	bus.Reset()

	if got := bus.Read8(0x500); got != 0 {
		t.Fatalf("expected RAM cleared on reset, got 0x%02X", got)
	}
	if got := bus.In8(0x40); got != 0x77 {
		t.Fatalf("expected port mapping to survive reset, got 0x%02X", got)
	}
}
