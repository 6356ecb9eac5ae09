// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mcp23s17 provides a driver for the Microchip MCP23S17 16-bit
// GPIO expander on an SPI bus.
//
// The chip exposes its 16 pins as two 8-bit ports, GPA and GPB. Up to
// four chips can share one chip-select; they are told apart by a 2-bit
// hardware address wired on the A1:A0 pins. Per pin the driver controls
// direction, the internal 100k pull-up, input polarity inversion and
// the logic level, and the whole 16-bit port can be read or written in
// one call.
//
// The chip's interrupt-on-change machinery (GPINTEN/DEFVAL/INTCON) is
// not implemented. The INTA/INTB output lines can still be watched
// through host GPIO pins, see Opts.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/20001952C.pdf
package mcp23s17
