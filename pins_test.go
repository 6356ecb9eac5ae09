// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23s17

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

func TestPinFixedValues(t *testing.T) {
	d := playbackDev(t, 1)
	defer d.Close()

	p := d.Pins[2]
	if p.Name() != "MCP23S17_1_GPIO2" {
		t.Errorf("Name() = %s, want MCP23S17_1_GPIO2", p.Name())
	}
	if p.String() != p.Name() {
		t.Errorf("String() = %s, want %s", p.String(), p.Name())
	}
	if p.Number() != 2 {
		t.Errorf("Number() = %d, want 2", p.Number())
	}
	if p.Function() != string(gpio.IN) {
		t.Errorf("Function() = %s, want In after Open", p.Function())
	}
	if p.Pull() != gpio.PullUp {
		t.Errorf("Pull() = %s, want PullUp after Open", p.Pull())
	}
	if p.DefaultPull() != gpio.Float {
		t.Errorf("DefaultPull() = %s, want Float", p.DefaultPull())
	}
	if p.WaitForEdge(10 * time.Millisecond) {
		t.Error("WaitForEdge() should return false")
	}
	if err := p.Halt(); err != nil {
		t.Errorf("Halt() = %v, want nil", err)
	}
	if err := p.PWM(gpio.DutyHalf, physic.Hertz); err == nil {
		t.Error("PWM() should return an error")
	}
	tp, ok := p.(Pin)
	if !ok {
		t.Fatal("device pins should implement the extended Pin interface")
	}
	if diff := cmp.Diff(tp.(pin.PinFunc).SupportedFuncs(), []pin.Func{gpio.IN, gpio.OUT}); diff != "" {
		t.Errorf("SupportedFuncs() difference (-got +want):\n%s", diff)
	}

	// Pin 15 was never initialized, it keeps its power-on defaults.
	p15 := d.Pins[15]
	if p15.Function() != string(gpio.OUT) {
		t.Errorf("pin 15 Function() = %s, want Out (power-on cache)", p15.Function())
	}
	if p15.Pull() != gpio.Float {
		t.Errorf("pin 15 Pull() = %s, want Float", p15.Pull())
	}
}

func TestPinInOutRead(t *testing.T) {
	d := playbackDev(t, 0,
		writeOp(0, regIODIRA, 0xEF), // pin 4 to output
		writeOp(0, regGPIOA, 0x10),  // pin 4 high
		writeOp(0, regGPIOA, 0x00),  // pin 4 low, direction already output
		writeOp(0, regIODIRA, 0xFF), // pin 4 back to input
		writeOp(0, regGPPUA, 0xFF),  // pull-up rewritten
		readOp(0, regGPIOA, 0x10),   // read
	)
	defer d.Close()

	p := d.Pins[4]
	if err := p.Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if err := p.Out(gpio.Low); err != nil {
		t.Fatal(err)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		t.Fatal(err)
	}
	if l := p.Read(); l != gpio.High {
		t.Errorf("Read() = %s, want High", l)
	}
	if err := p.In(gpio.PullUp, gpio.FallingEdge); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("In() with an edge = %v, want ErrNotImplemented", err)
	}
}

func TestPinPolarity(t *testing.T) {
	d := playbackDev(t, 0,
		readOp(0, regIPOLA, 0x00),
		writeOp(0, regIPOLA, 0x02),
		readOp(0, regIPOLA, 0x02),
	)
	defer d.Close()

	p := d.Pins[1].(Pin)
	if err := p.SetPolarityInverted(true); err != nil {
		t.Fatal(err)
	}
	inverted, err := p.IsPolarityInverted()
	if err != nil {
		t.Fatal(err)
	}
	if !inverted {
		t.Error("pin 1 should read as inverted")
	}
}

func TestGpioRegLookup(t *testing.T) {
	d := playbackDev(t, 2)
	p := gpioreg.ByName("MCP23S17_2_GPIO0")
	if p == nil {
		t.Fatal("pins should be registered with gpioreg")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if gpioreg.ByName("MCP23S17_2_GPIO0") != nil {
		t.Error("Close should unregister the pins")
	}
}
