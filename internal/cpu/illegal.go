package cpu

// registerIllegal fills in the undocumented opcodes that real 6502s (and
// every NES game that relies on them) execute predictably. Each is built
// from the same documented micro-op primitives as its legal cousins; only
// the combination of reads/writes and register effects is unusual.
func registerIllegal() {
	slo := func(c *CPU, v uint8) uint8 {
		c.C = v&0x80 != 0
		r := v << 1
		c.A |= r
		c.setZN(c.A)
		return r
	}
	rla := func(c *CPU, v uint8) uint8 {
		carryIn := boolToU8(c.C)
		c.C = v&0x80 != 0
		r := v<<1 | carryIn
		c.A &= r
		c.setZN(c.A)
		return r
	}
	sre := func(c *CPU, v uint8) uint8 {
		c.C = v&0x01 != 0
		r := v >> 1
		c.A ^= r
		c.setZN(c.A)
		return r
	}
	rra := func(c *CPU, v uint8) uint8 {
		carryIn := boolToU8(c.C) << 7
		c.C = v&0x01 != 0
		r := v>>1 | carryIn
		c.adc(r)
		return r
	}
	dcp := func(c *CPU, v uint8) uint8 {
		r := v - 1
		c.C = c.A >= r
		c.setZN(c.A - r)
		return r
	}
	isc := func(c *CPU, v uint8) uint8 {
		r := v + 1
		c.sbc(r)
		return r
	}
	lax := func(c *CPU, v uint8) { c.A = v; c.X = v; c.setZN(v) }
	sax := func(c *CPU) uint8 { return c.A & c.X }
	anc := func(c *CPU, v uint8) { c.A &= v; c.setZN(c.A); c.C = c.N }
	alr := func(c *CPU, v uint8) {
		c.A &= v
		c.C = c.A&0x01 != 0
		c.A >>= 1
		c.setZN(c.A)
	}
	arr := func(c *CPU, v uint8) {
		c.A &= v
		carryIn := boolToU8(c.C) << 7
		c.A = c.A>>1 | carryIn
		c.setZN(c.A)
		c.C = c.A&0x40 != 0
		c.V = (c.A>>6)&1^(c.A>>5)&1 != 0
	}
	sbx := func(c *CPU, v uint8) {
		r := (c.A & c.X) - v
		c.C = (c.A & c.X) >= v
		c.X = r
		c.setZN(r)
	}

	reg(0x07, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: slo})
	reg(0x17, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: slo})
	reg(0x0F, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: slo})
	reg(0x1F, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: slo})
	reg(0x1B, opInfo{mode: modeAbsoluteY, kind: kindRMW, rmw: slo})
	reg(0x03, opInfo{mode: modeIndirectX, kind: kindRMW, rmw: slo})
	reg(0x13, opInfo{mode: modeIndirectY, kind: kindRMW, rmw: slo})

	reg(0x27, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: rla})
	reg(0x37, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: rla})
	reg(0x2F, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: rla})
	reg(0x3F, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: rla})
	reg(0x3B, opInfo{mode: modeAbsoluteY, kind: kindRMW, rmw: rla})
	reg(0x23, opInfo{mode: modeIndirectX, kind: kindRMW, rmw: rla})
	reg(0x33, opInfo{mode: modeIndirectY, kind: kindRMW, rmw: rla})

	reg(0x47, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: sre})
	reg(0x57, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: sre})
	reg(0x4F, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: sre})
	reg(0x5F, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: sre})
	reg(0x5B, opInfo{mode: modeAbsoluteY, kind: kindRMW, rmw: sre})
	reg(0x43, opInfo{mode: modeIndirectX, kind: kindRMW, rmw: sre})
	reg(0x53, opInfo{mode: modeIndirectY, kind: kindRMW, rmw: sre})

	reg(0x67, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: rra})
	reg(0x77, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: rra})
	reg(0x6F, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: rra})
	reg(0x7F, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: rra})
	reg(0x7B, opInfo{mode: modeAbsoluteY, kind: kindRMW, rmw: rra})
	reg(0x63, opInfo{mode: modeIndirectX, kind: kindRMW, rmw: rra})
	reg(0x73, opInfo{mode: modeIndirectY, kind: kindRMW, rmw: rra})

	reg(0xC7, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: dcp})
	reg(0xD7, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: dcp})
	reg(0xCF, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: dcp})
	reg(0xDF, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: dcp})
	reg(0xDB, opInfo{mode: modeAbsoluteY, kind: kindRMW, rmw: dcp})
	reg(0xC3, opInfo{mode: modeIndirectX, kind: kindRMW, rmw: dcp})
	reg(0xD3, opInfo{mode: modeIndirectY, kind: kindRMW, rmw: dcp})

	reg(0xE7, opInfo{mode: modeZeroPage, kind: kindRMW, rmw: isc})
	reg(0xF7, opInfo{mode: modeZeroPageX, kind: kindRMW, rmw: isc})
	reg(0xEF, opInfo{mode: modeAbsolute, kind: kindRMW, rmw: isc})
	reg(0xFF, opInfo{mode: modeAbsoluteX, kind: kindRMW, rmw: isc})
	reg(0xFB, opInfo{mode: modeAbsoluteY, kind: kindRMW, rmw: isc})
	reg(0xE3, opInfo{mode: modeIndirectX, kind: kindRMW, rmw: isc})
	reg(0xF3, opInfo{mode: modeIndirectY, kind: kindRMW, rmw: isc})

	reg(0xA7, opInfo{mode: modeZeroPage, kind: kindRead, exec: lax})
	reg(0xB7, opInfo{mode: modeZeroPageY, kind: kindRead, exec: lax})
	reg(0xAF, opInfo{mode: modeAbsolute, kind: kindRead, exec: lax})
	reg(0xBF, opInfo{mode: modeAbsoluteY, kind: kindRead, exec: lax})
	reg(0xA3, opInfo{mode: modeIndirectX, kind: kindRead, exec: lax})
	reg(0xB3, opInfo{mode: modeIndirectY, kind: kindRead, exec: lax})

	reg(0x87, opInfo{mode: modeZeroPage, kind: kindWrite, store: sax})
	reg(0x97, opInfo{mode: modeZeroPageY, kind: kindWrite, store: sax})
	reg(0x8F, opInfo{mode: modeAbsolute, kind: kindWrite, store: sax})
	reg(0x83, opInfo{mode: modeIndirectX, kind: kindWrite, store: sax})

	reg(0xEB, opInfo{mode: modeImmediate, kind: kindRead, exec: func(c *CPU, v uint8) { c.sbc(v) }})
	reg(0x0B, opInfo{mode: modeImmediate, kind: kindRead, exec: anc})
	reg(0x2B, opInfo{mode: modeImmediate, kind: kindRead, exec: anc})
	reg(0x4B, opInfo{mode: modeImmediate, kind: kindRead, exec: alr})
	reg(0x6B, opInfo{mode: modeImmediate, kind: kindRead, exec: arr})
	reg(0xCB, opInfo{mode: modeImmediate, kind: kindRead, exec: sbx})

	nop1 := func(c *CPU) {}
	for _, op := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		reg(op, opInfo{mode: modeImplied, kind: kindImplied, run: nop1})
	}
	nopRead := func(c *CPU, v uint8) {}
	for _, op := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		reg(op, opInfo{mode: modeImmediate, kind: kindRead, exec: nopRead})
	}
	for _, op := range []uint8{0x04, 0x44, 0x64} {
		reg(op, opInfo{mode: modeZeroPage, kind: kindRead, exec: nopRead})
	}
	for _, op := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		reg(op, opInfo{mode: modeZeroPageX, kind: kindRead, exec: nopRead})
	}
	reg(0x0C, opInfo{mode: modeAbsolute, kind: kindRead, exec: nopRead})
	for _, op := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		reg(op, opInfo{mode: modeAbsoluteX, kind: kindRead, exec: nopRead})
	}
}
