package main

import "testing"

func TestIDTManager_GatePacking(t *testing.T) {
	bus := NewMachineBus()
	idt := NewIDTManager(bus, NewIntrUnit(bus))

	idt.Install(0x21, 0x12345678, KERNEL_CS, GATE_PRESENT|GATE_INT32)

	entry := uint32(IDT_BASE + 0x21*IDT_ENTRY_SIZE)
	if got := bus.Read16(entry); got != 0x5678 {
		t.Fatalf("expected offset low 0x5678, got 0x%04X", got)
	}
	if got := bus.Read16(entry + 2); got != KERNEL_CS {
		t.Fatalf("expected selector 0x08, got 0x%04X", got)
	}
	if got := bus.Read8(entry + 4); got != 0 {
		t.Fatalf("expected reserved byte zero, got 0x%02X", got)
	}
	if got := bus.Read8(entry + 5); got != GATE_PRESENT|GATE_INT32 {
		t.Fatalf("expected flags 0x8E, got 0x%02X", got)
	}
	if got := bus.Read16(entry + 6); got != 0x1234 {
		t.Fatalf("expected offset high 0x1234, got 0x%04X", got)
	}
}

func TestIDTManager_EntryReadsBack(t *testing.T) {
	bus := NewMachineBus()
	idt := NewIDTManager(bus, NewIntrUnit(bus))

	idt.Install(0x40, 0x00105550, KERNEL_CS, GATE_PRESENT|GATE_INT32)

	handler, selector, flags := idt.Entry(0x40)
	if handler != 0x00105550 {
		t.Fatalf("expected handler 0x00105550, got 0x%08X", handler)
	}
	if selector != KERNEL_CS {
		t.Fatalf("expected selector 0x08, got 0x%04X", selector)
	}
	if flags != GATE_PRESENT|GATE_INT32 {
		t.Fatalf("expected flags 0x8E, got 0x%02X", flags)
	}
}

func TestIDTManager_InstallDefaultsCoversTable(t *testing.T) {
	bus := NewMachineBus()
	idt := NewIDTManager(bus, NewIntrUnit(bus))

	idt.InstallDefaults()

	for _, vector := range []int{0, 0x20, 0x28, 0xFF} {
		handler, selector, flags := idt.Entry(vector)
		if handler != 0 {
			t.Fatalf("expected null handler at vector %d, got 0x%08X", vector, handler)
		}
		if selector != KERNEL_CS {
			t.Fatalf("expected kernel selector at vector %d, got 0x%04X", vector, selector)
		}
		if flags != GATE_PRESENT|GATE_INT32 {
			t.Fatalf("expected present gate at vector %d, got flags 0x%02X", vector, flags)
		}
	}
}

func TestIDTManager_OutOfRangeVectorsIgnored(t *testing.T) {
	bus := NewMachineBus()
	idt := NewIDTManager(bus, NewIntrUnit(bus))

	idt.Install(-1, 0xDEAD, KERNEL_CS, GATE_PRESENT)
	idt.Install(IDT_ENTRIES, 0xDEAD, KERNEL_CS, GATE_PRESENT)

	handler, selector, flags := idt.Entry(-1)
	if handler != 0 || selector != 0 || flags != 0 {
		t.Fatalf("expected zero entry out of range, got 0x%08X/0x%04X/0x%02X", handler, selector, flags)
	}
}

func TestIDTManager_ActivateArmsDispatch(t *testing.T) {
	bus := NewMachineBus()
	intr := NewIntrUnit(bus)
	pair := NewPICPair(intr.WakeSignal)
	intr.AttachPICs(pair)
	programPair(pair, IRQ_BASE_MASTER, IRQ_BASE_SLAVE)
	idt := NewIDTManager(bus, intr)

	fired := 0
	stub := intr.BindRoutine(func() { fired++ })
	idt.InstallDefaults()
	idt.Install(0x20, stub, KERNEL_CS, GATE_PRESENT|GATE_INT32)
	intr.EnableInterrupts()

	// Table written but never loaded: delivery lands nowhere
	pair.Raise(0)
	intr.ServicePending()
	if fired != 0 {
		t.Fatalf("expected no delivery before lidt, routine ran %d times", fired)
	}
	pair.Master.HandleOut(PIC1_CMD, OCW2_EOI)

	idt.Activate()
	pair.Raise(0)
	intr.ServicePending()
	if fired != 1 {
		t.Fatalf("expected delivery after lidt, routine ran %d times", fired)
	}
}
