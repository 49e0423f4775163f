// kernel_main.go - Kernel bring-up and the outer session loop

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

// Kernel is the guest program: the driver stack plus the game,
// assembled against one machine's bus and CPU front end. Run is its
// entry point and plays the role of the boot jump target.
type Kernel struct {
	cpu   *IntrUnit
	idt   *IDTManager
	irq   *IRQDispatcher
	pic   *PICDriver
	timer *TimerDriver
	keyb  *KeybDriver
	frame *FrameStore
	game  *TetrisGame

	tickHz uint32
}

func NewKernel(bus *MachineBus, cpu *IntrUnit, tickHz uint32) *Kernel {
	k := &Kernel{
		cpu:    cpu,
		idt:    NewIDTManager(bus, cpu),
		irq:    NewIRQDispatcher(),
		pic:    NewPICDriver(bus),
		frame:  NewFrameStore(bus),
		tickHz: tickHz,
	}
	k.timer = NewTimerDriver(bus, cpu, k.pic, k.irq)
	k.keyb = NewKeybDriver(bus, cpu, k.pic, k.irq)
	k.game = NewTetrisGame(cpu, k.timer, k.keyb, k.frame)

	return k
}

// boot builds the vector table, hangs the IRQ stubs off it, remaps
// the controllers and starts the heartbeat. Runs on cold start and
// again after every hard reset.
func (k *Kernel) boot() {
	k.idt.InstallDefaults()
	k.irq.InstallStubs(k.idt, k.cpu, IRQ_BASE_MASTER, IRQ_BASE_SLAVE)
	k.idt.Activate()

	k.timer.Init(k.tickHz)
	k.keyb.Init()
}

// Run boots the kernel and plays game sessions until the machine
// stops. Restart begins a fresh session directly, a hard reset goes
// back through boot first.
func (k *Kernel) Run() {
	for {
		if k.cpu.Stopping() {
			return
		}

		k.boot()

	sessions:
		for {
			k.frame.Init()

			switch k.game.Run() {
			case GAME_EXIT_RESTART:
				// next session
			case GAME_EXIT_RESET:
				break sessions
			case GAME_EXIT_STOPPED:
				return
			}
		}
	}
}

// Ticks exposes the timer counter for the status display.
func (k *Kernel) Ticks() uint64 {
	return k.timer.Ticks()
}
