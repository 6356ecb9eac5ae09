// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23s17

// Register addresses with IOCON.BANK=0 (sequential addressing), as
// documented in the datasheet. For each per-port register family the
// port B address is the port A address plus one.
const (
	regIODIRA byte = 0x00
	regIODIRB byte = 0x01
	regIPOLA  byte = 0x02
	regIPOLB  byte = 0x03
	regIOCON  byte = 0x0A
	regGPPUA  byte = 0x0C
	regGPPUB  byte = 0x0D
	regGPIOA  byte = 0x12
	regGPIOB  byte = 0x13
	regOLATA  byte = 0x14
	regOLATB  byte = 0x15
)

// IOCON bit fields.
const (
	ioconIntPol byte = 0x02
	ioconODR    byte = 0x04
	ioconHAEN   byte = 0x08
	ioconDisSlw byte = 0x10
	ioconSeqOp  byte = 0x20
	ioconMirror byte = 0x40
	ioconBank   byte = 0x80

	// Sequential operation plus hardware addressing. Written by Open.
	ioconInit = ioconSeqOp | ioconHAEN
)

// Command opcodes. The 2-bit hardware address A1:A0 is packed into
// bits 1-2 of the command byte.
const (
	cmdWrite byte = 0x40
	cmdRead  byte = 0x41
)

// registerFor maps a logical pin (0-15) onto the 8-bit register bank
// holding it. bankA is the port A address of the register family
// (IODIR, GPPU, GPIO or IPOL); pins 8-15 live in port B at bankA+1.
// All register families use this one mapping.
func registerFor(bankA byte, number int) (reg byte, bit uint) {
	if number < 8 {
		return bankA, uint(number)
	}
	return bankA + 1, uint(number & 0x07)
}

// bankOf returns the cache index of a pin, 0 for port A and 1 for
// port B.
func bankOf(number int) int {
	return number >> 3
}
