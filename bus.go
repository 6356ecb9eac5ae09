// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23s17

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// transport is what Dev drives. Implemented by Bus; tests substitute
// their own.
type transport interface {
	exchange(mode spi.Mode, w, r []byte) error
	Close() error
}

// Bus is the SPI transport shared by up to four expanders wired to the
// same chip-select. It tracks the clock mode currently programmed on
// the line so that devices requiring different modes can share it.
type Bus struct {
	port spi.PortCloser
	freq physic.Frequency

	// mu serializes transactions from the devices sharing the line and
	// guards the mode state.
	mu   sync.Mutex
	conn spi.Conn
	mode spi.Mode
}

// NewBus wraps an SPI port. freq is the bus clock; 0 selects 10MHz,
// the maximum the MCP23S17 supports.
func NewBus(port spi.PortCloser, freq physic.Frequency) *Bus {
	if freq == 0 {
		freq = 10 * physic.MegaHertz
	}
	return &Bus{port: port, freq: freq, mode: -1}
}

// exchange performs one full-duplex transaction in the given clock
// mode. If the line is currently in another mode it is reprogrammed
// first and a single throwaway byte is clocked out so that CLK settles
// at the new idle level before the real transaction.
func (b *Bus) exchange(mode spi.Mode, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.mode != mode {
		c, err := b.port.Connect(b.freq, mode, 8)
		if err != nil {
			return fmt.Errorf("mcp23s17: %w", err)
		}
		b.conn = c
		b.mode = mode
		if err := b.conn.Tx([]byte{0x00}, make([]byte, 1)); err != nil {
			return fmt.Errorf("mcp23s17: %w", err)
		}
	}
	return b.conn.Tx(w, r)
}

// Close releases the underlying port.
func (b *Bus) Close() error {
	return b.port.Close()
}
