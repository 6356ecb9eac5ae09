// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23s17

import (
	"errors"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Pin extends gpio.PinIO with the input polarity inversion the chip
// offers.
type Pin interface {
	gpio.PinIO
	// SetPolarityInverted if set to true, the GPIO register reports the
	// inverted logic state of the input pin.
	SetPolarityInverted(inverted bool) error
	// IsPolarityInverted returns true if the pin reads inverted.
	IsPolarityInverted() (bool, error)
}

// devPin is a view of one expander pin. It holds no state of its own;
// everything goes through the device handle.
type devPin struct {
	dev    *Dev
	number int
	name   string
}

func (p *devPin) String() string {
	return p.name
}

func (p *devPin) Name() string {
	return p.name
}

func (p *devPin) Number() int {
	return p.number
}

func (p *devPin) Halt() error {
	return nil
}

func (p *devPin) Function() string {
	return string(p.Func())
}

func (p *devPin) Func() pin.Func {
	if p.dev.cachedBit(&p.dev.iodir, p.number) {
		return gpio.IN
	}
	return gpio.OUT
}

func (p *devPin) SupportedFuncs() []pin.Func {
	return supportedFuncs[:]
}

func (p *devPin) SetFunc(f pin.Func) error {
	return p.dev.SetDirection(p.number, f)
}

// In configures the pin for input. Edge detection needs the expander's
// interrupt machinery, which is not implemented; anything but
// gpio.NoEdge is rejected.
func (p *devPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return ErrNotImplemented
	}
	if err := p.dev.SetDirection(p.number, gpio.IN); err != nil {
		return err
	}
	if pull == gpio.PullNoChange {
		return nil
	}
	return p.dev.SetPullUp(p.number, pull)
}

func (p *devPin) Read() gpio.Level {
	l, err := p.dev.DigitalRead(p.number)
	if err != nil {
		log.Println(err)
		return gpio.Low
	}
	return l
}

func (p *devPin) WaitForEdge(timeout time.Duration) bool {
	return false
}

func (p *devPin) Pull() gpio.Pull {
	if p.dev.cachedBit(&p.dev.gppu, p.number) {
		return gpio.PullUp
	}
	return gpio.Float
}

func (p *devPin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out drives the pin. If the cache says the pin is an input, the
// direction is switched to output first.
func (p *devPin) Out(l gpio.Level) error {
	if p.dev.cachedBit(&p.dev.iodir, p.number) {
		if err := p.dev.SetDirection(p.number, gpio.OUT); err != nil {
			return err
		}
	}
	return p.dev.DigitalWrite(p.number, l)
}

func (p *devPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("mcp23s17: PWM is not supported")
}

func (p *devPin) SetPolarityInverted(inverted bool) error {
	return p.dev.SetPolarityInverted(p.number, inverted)
}

func (p *devPin) IsPolarityInverted() (bool, error) {
	return p.dev.IsPolarityInverted(p.number)
}

var supportedFuncs = [...]pin.Func{gpio.IN, gpio.OUT}

var _ gpio.PinIO = &devPin{}
var _ Pin = &devPin{}
