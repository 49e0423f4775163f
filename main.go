// main.go - Entry point: flags, machine assembly, frontend selection

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;80;200;120mbare-metal-tetris\033[0m - the classic falling-block kernel on an emulated PC/AT")
	fmt.Println("https://github.com/nathan242/bare-metal-tetris")
	fmt.Println("License: GPLv3 or later")
	fmt.Println()
}

func main() {
	boilerPlate()

	var (
		display    string
		scale      int
		fullscreen bool
		hz         uint
		turbo      float64
		script     string
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&display, "display", "gui", "Display backend: gui, terminal or headless")
	flagSet.IntVar(&scale, "scale", 2, "Window scale factor (1-4)")
	flagSet.BoolVar(&fullscreen, "fullscreen", false, "Start the window fullscreen")
	flagSet.UintVar(&hz, "hz", 100, "Timer rate the kernel programs into the PIT (0 leaves the timer silent)")
	flagSet.Float64Var(&turbo, "turbo", 1.0, "Timer speed multiplier")
	flagSet.StringVar(&script, "script", "", "Lua script to run against the machine")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./bare-metal-tetris [-display gui|terminal|headless] [-scale N] [-fullscreen] [-hz N] [-turbo X] [-script demo.lua]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	machine := NewMachine(uint32(hz), turbo)

	var output VideoOutput
	var err error
	switch display {
	case "gui":
		output, err = NewVideoOutput(VIDEO_BACKEND_EBITEN)
	case "terminal":
		output, err = NewTerminalOutput(machine.Video())
	case "headless":
		output, err = NewVideoOutput(VIDEO_BACKEND_HEADLESS)
	default:
		fmt.Printf("Error: unknown display backend %q\n", display)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Failed to initialize video: %v\n", err)
		os.Exit(1)
	}

	config := output.GetDisplayConfig()
	config.Scale = scale
	config.Fullscreen = fullscreen
	if err := output.SetDisplayConfig(config); err != nil {
		fmt.Printf("Failed to configure video: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Booting kernel: %d Hz timer, %s display\n", hz, display)

	if err := machine.Start(output); err != nil {
		fmt.Printf("Failed to start machine: %v\n", err)
		os.Exit(1)
	}

	go machine.Run()

	if script != "" {
		driver := NewScriptDriver(machine)
		go func() {
			if err := driver.Run(script); err != nil {
				fmt.Printf("Script error: %v\n", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Backends with a window report its closing; for the rest the
	// nil channel just never fires.
	var windowClosed <-chan struct{}
	if waiter, ok := output.(interface{ Done() <-chan struct{} }); ok {
		windowClosed = waiter.Done()
	}

	select {
	case <-windowClosed:
	case <-machine.Done():
	case <-sigChan:
	}

	machine.Stop()
	output.Close()
}
