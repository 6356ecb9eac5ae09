// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23s17

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/spi"
)

// NPins is the number of I/O pins on the expander.
const NPins = 16

// Bank identifies one of the two 8-bit ports of the expander.
type Bank int

const (
	BankA Bank = iota
	BankB
)

func (b Bank) String() string {
	if b == BankA {
		return "A"
	}
	return "B"
}

var (
	// ErrNotInitialized is returned by any pin or port operation
	// invoked before Open or after Close.
	ErrNotInitialized = errors.New("mcp23s17: not initialized, call Open first")
	// ErrNotImplemented is returned for the chip capabilities this
	// driver declares but does not support, such as interrupt-on-change
	// configuration.
	ErrNotImplemented = errors.New("mcp23s17: not implemented")
	// ErrNoInterruptHandler is returned by New when an interrupt line
	// is supplied without a handler to dispatch to.
	ErrNoInterruptHandler = errors.New("mcp23s17: interrupt lines require an OnInterrupt handler")
)

// Opts holds the device configuration.
type Opts struct {
	// Addr is the hardware address wired on the A1:A0 pins (0-3).
	Addr uint8
	// Mode is the SPI clock mode the chip is wired for. The MCP23S17
	// works in Mode0 and Mode3.
	Mode spi.Mode
	// Reset is the chip's active-low reset line, if the host drives it.
	Reset gpio.PinOut
	// IntA and IntB are host pins connected to the chip's interrupt
	// output lines, if wired.
	IntA gpio.PinIn
	IntB gpio.PinIn
	// Edge is the edge the interrupt lines signal on. Defaults to
	// gpio.FallingEdge, matching the chip's active-low INT polarity
	// at power-on.
	Edge gpio.Edge
	// OnInterrupt is invoked with the originating port whenever one of
	// the interrupt lines fires. Required when IntA or IntB is set.
	OnInterrupt func(Bank)
}

// DefaultOpts is the recommended default configuration: device 0,
// Mode0, no auxiliary lines.
var DefaultOpts = Opts{}

// Dev is a handle to one MCP23S17.
//
// The handle is constructed uninitialized; Open performs the bring-up
// sequence and unlocks the pin and port operations, Close releases the
// bus and locks them again.
type Dev struct {
	// Pins is one gpio.PinIO facade per logical pin, GPA0-GPA7 followed
	// by GPB0-GPB7. The pins are also registered with gpioreg under
	// the names MCP23S17_<addr>_GPIO<n>.
	Pins []gpio.PinIO

	bus  transport
	addr uint8
	mode spi.Mode

	reset   gpio.PinOut
	intPins [2]gpio.PinIn
	edge    gpio.Edge
	onInt   func(Bank)

	// mu serializes bus transactions and guards all fields below.
	mu          sync.Mutex
	initialized bool
	iodir       [2]byte
	gppu        [2]byte
	gpio        [2]byte
	done        chan struct{}
}

// New returns a handle to the expander at opts.Addr on the given bus.
// The handle is not initialized yet; call Open, or use WithOpen.
func New(bus *Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Addr > 3 {
		return nil, fmt.Errorf("mcp23s17: address %d out of range, A1:A0 allow 0-3", opts.Addr)
	}
	if (opts.IntA != nil || opts.IntB != nil) && opts.OnInterrupt == nil {
		return nil, ErrNoInterruptHandler
	}
	edge := opts.Edge
	if edge == gpio.NoEdge {
		edge = gpio.FallingEdge
	}
	d := &Dev{
		bus:     bus,
		addr:    opts.Addr,
		mode:    opts.Mode,
		reset:   opts.Reset,
		intPins: [2]gpio.PinIn{opts.IntA, opts.IntB},
		edge:    edge,
		onInt:   opts.OnInterrupt,
	}
	d.Pins = make([]gpio.PinIO, NPins)
	for i := range d.Pins {
		p := &devPin{dev: d, number: i, name: fmt.Sprintf("%s_GPIO%d", d, i)}
		d.Pins[i] = p
		// Registration can fail on name collisions; the pin stays
		// usable through d.Pins either way.
		_ = gpioreg.Register(p)
	}
	return d, nil
}

// NewSPI is a convenience wrapper for a device that has the SPI port to
// itself.
func NewSPI(port spi.PortCloser, opts *Opts) (*Dev, error) {
	return New(NewBus(port, 0), opts)
}

func (d *Dev) String() string {
	return fmt.Sprintf("MCP23S17_%d", d.addr)
}

// Open brings the device up: it deasserts the reset line, arms the
// interrupt watchers, programs IOCON for sequential operation with
// hardware addressing, and configures pins 0 through 14 as inputs with
// the pull-up enabled. Pin 15 is left at its power-on state; existing
// integrations depend on that.
//
// Open on an already initialized handle is a no-op.
func (d *Dev) Open() error {
	d.mu.Lock()
	if d.initialized {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if d.reset != nil {
		// Reset is active-low; hold it deasserted.
		if err := d.reset.Out(gpio.High); err != nil {
			return err
		}
	}
	done := make(chan struct{})
	for i, p := range d.intPins {
		if p == nil {
			continue
		}
		if err := p.In(gpio.PullNoChange, d.edge); err != nil {
			close(done)
			return err
		}
		go d.watchInterrupt(p, Bank(i), done)
	}

	if err := d.writeRegister(regIOCON, ioconInit); err != nil {
		close(done)
		return err
	}

	d.mu.Lock()
	d.initialized = true
	d.done = done
	d.mu.Unlock()

	for number := 0; number <= 14; number++ {
		if err := d.SetDirection(number, gpio.IN); err != nil {
			return err
		}
		if err := d.SetPullUp(number, gpio.PullUp); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the interrupt watchers, releases the bus and marks the
// handle uninitialized. Any operation after Close fails with
// ErrNotInitialized.
func (d *Dev) Close() error {
	d.mu.Lock()
	if d.done != nil {
		close(d.done)
		d.done = nil
	}
	d.initialized = false
	d.mu.Unlock()
	for _, p := range d.Pins {
		_ = gpioreg.Unregister(p.Name())
	}
	return d.bus.Close()
}

// WithOpen opens the device, runs fn and closes the device again on
// every return path. The close error is reported when fn itself
// succeeded.
func (d *Dev) WithOpen(fn func(*Dev) error) (err error) {
	if err = d.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(d)
}

// SetDirection configures a pin as gpio.IN or gpio.OUT.
func (d *Dev) SetDirection(number int, f pin.Func) error {
	if err := d.checkPin(number); err != nil {
		return err
	}
	var set bool
	switch f {
	case gpio.IN:
		set = true
	case gpio.OUT:
		set = false
	default:
		return fmt.Errorf("mcp23s17: unsupported function %s", f)
	}
	return d.setRegisterBit(regIODIRA, &d.iodir, number, set)
}

// SetPullUp enables (gpio.PullUp) or disables (gpio.Float) the internal
// 100k pull-up of a pin. The chip has no pull-downs.
func (d *Dev) SetPullUp(number int, pull gpio.Pull) error {
	if err := d.checkPin(number); err != nil {
		return err
	}
	var set bool
	switch pull {
	case gpio.PullUp:
		set = true
	case gpio.Float:
		set = false
	default:
		return fmt.Errorf("mcp23s17: unsupported pull %s", pull)
	}
	return d.setRegisterBit(regGPPUA, &d.gppu, number, set)
}

// DigitalWrite drives an output pin high or low.
func (d *Dev) DigitalWrite(number int, l gpio.Level) error {
	if err := d.checkPin(number); err != nil {
		return err
	}
	return d.setRegisterBit(regGPIOA, &d.gpio, number, l == gpio.High)
}

// DigitalRead returns the level of a pin. The whole bank byte comes
// back on the wire, so the bank's cached data byte is refreshed as a
// side effect, replacing any stale bits.
func (d *Dev) DigitalRead(number int) (gpio.Level, error) {
	if err := d.checkPin(number); err != nil {
		return gpio.Low, err
	}
	reg, bit := registerFor(regGPIOA, number)
	v, err := d.readBank(reg, bankOf(number))
	if err != nil {
		return gpio.Low, err
	}
	return gpio.Level(v&(1<<bit) != 0), nil
}

// WriteGPIO sets all 16 pins at once, port B from the high byte. The
// two banks are written as two independently locked byte transactions,
// port A first; a concurrent caller's transaction may land between the
// halves. Callers mixing port-wide and per-pin operations need their
// own coordination.
func (d *Dev) WriteGPIO(value uint16) error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.writeBank(regGPIOA, 0, byte(value)); err != nil {
		return err
	}
	return d.writeBank(regGPIOB, 1, byte(value>>8))
}

// ReadGPIO returns the level of all 16 pins, port B in the high byte.
// Both cached data bytes are refreshed from hardware. The same
// interleaving caveat as for WriteGPIO applies.
func (d *Dev) ReadGPIO() (uint16, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	lo, err := d.readBank(regGPIOA, 0)
	if err != nil {
		return 0, err
	}
	hi, err := d.readBank(regGPIOB, 1)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// SetPolarityInverted makes the GPIO register report the inverted level
// of an input pin. IPOL is not cached; this is a read-modify-write of
// the hardware register.
func (d *Dev) SetPolarityInverted(number int, inverted bool) error {
	if err := d.checkPin(number); err != nil {
		return err
	}
	reg, bit := registerFor(regIPOLA, number)
	v, err := d.readRegister(reg)
	if err != nil {
		return err
	}
	if inverted {
		v |= 1 << bit
	} else {
		v &^= 1 << bit
	}
	return d.writeRegister(reg, v)
}

// IsPolarityInverted reports whether an input pin reads inverted.
func (d *Dev) IsPolarityInverted(number int) (bool, error) {
	if err := d.checkPin(number); err != nil {
		return false, err
	}
	reg, bit := registerFor(regIPOLA, number)
	v, err := d.readRegister(reg)
	if err != nil {
		return false, err
	}
	return v&(1<<bit) != 0, nil
}

// SetInterrupt would program interrupt-on-change for a pin (GPINTEN,
// DEFVAL, INTCON). The hardware supports it, this driver does not yet;
// the error is returned unconditionally so callers can probe the
// capability gap.
func (d *Dev) SetInterrupt(number int, edge gpio.Edge) error {
	return ErrNotImplemented
}

func (d *Dev) watchInterrupt(p gpio.PinIn, bank Bank, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		if p.WaitForEdge(time.Second) {
			d.onInt(bank)
		}
	}
}

func (d *Dev) ready() error {
	d.mu.Lock()
	ok := d.initialized
	d.mu.Unlock()
	if !ok {
		return ErrNotInitialized
	}
	return nil
}

func (d *Dev) checkPin(number int) error {
	if err := d.ready(); err != nil {
		return err
	}
	if number < 0 || number >= NPins {
		return fmt.Errorf("mcp23s17: pin %d out of range 0-15", number)
	}
	return nil
}

// setRegisterBit flips one bit of the cached byte backing the pin's
// bank and writes the full byte out. The chip has no partial-bit write;
// the other seven bits are carried over from the cache. The cache is
// committed only after the transaction succeeded.
func (d *Dev) setRegisterBit(bankA byte, cache *[2]byte, number int, set bool) error {
	reg, bit := registerFor(bankA, number)
	bank := bankOf(number)
	d.mu.Lock()
	defer d.mu.Unlock()
	v := cache[bank]
	if set {
		v |= 1 << bit
	} else {
		v &^= 1 << bit
	}
	if err := d.writeRegisterLocked(reg, v); err != nil {
		return err
	}
	cache[bank] = v
	return nil
}

// cachedBit returns one bit of a cached register byte.
func (d *Dev) cachedBit(cache *[2]byte, number int) bool {
	_, bit := registerFor(0, number)
	d.mu.Lock()
	defer d.mu.Unlock()
	return cache[bankOf(number)]&(1<<bit) != 0
}

// writeBank writes one data byte and commits it to the cache, as one
// locked transaction.
func (d *Dev) writeBank(reg byte, bank int, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeRegisterLocked(reg, value); err != nil {
		return err
	}
	d.gpio[bank] = value
	return nil
}

// readBank reads one data byte and overwrites the bank's cache with it,
// as one locked transaction.
func (d *Dev) readBank(reg byte, bank int) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readRegisterLocked(reg)
	if err != nil {
		return 0, err
	}
	d.gpio[bank] = v
	return v, nil
}

// writeRegister is one locked byte transaction.
func (d *Dev) writeRegister(reg, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeRegisterLocked(reg, value)
}

// readRegister is one locked byte transaction.
func (d *Dev) readRegister(reg byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRegisterLocked(reg)
}

// writeRegisterLocked transmits {command, register, value} and discards
// the response. Caller must hold d.mu.
func (d *Dev) writeRegisterLocked(reg, value byte) error {
	w := []byte{cmdWrite | d.addr<<1, reg, value}
	return d.bus.exchange(d.mode, w, make([]byte, len(w)))
}

// readRegisterLocked transmits {command, register, 0}; the third
// response byte carries the register value. Caller must hold d.mu.
func (d *Dev) readRegisterLocked(reg byte) (byte, error) {
	w := []byte{cmdRead | d.addr<<1, reg, 0}
	r := make([]byte, len(w))
	if err := d.bus.exchange(d.mode, w, r); err != nil {
		return 0, err
	}
	return r[2], nil
}
