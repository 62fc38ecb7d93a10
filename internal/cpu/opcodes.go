package cpu

// initInstructions populates the 256-entry dispatch table with every
// official opcode plus the unofficial opcodes that real cartridges (and
// nestest.nes) rely on. Entries left nil fall back to the 2-cycle NOP in
// Step.
func (cpu *CPU) initInstructions() {
	add := func(opcode uint8, name string, bytes, cycles uint8, mode AddressingMode) {
		cpu.instructions[opcode] = &Instruction{Name: name, Bytes: bytes, Cycles: cycles, Mode: mode}
	}

	// Load/store.
	add(0xA9, "LDA", 2, 2, Immediate)
	add(0xA5, "LDA", 2, 3, ZeroPage)
	add(0xB5, "LDA", 2, 4, ZeroPageX)
	add(0xAD, "LDA", 3, 4, Absolute)
	add(0xBD, "LDA", 3, 4, AbsoluteX)
	add(0xB9, "LDA", 3, 4, AbsoluteY)
	add(0xA1, "LDA", 2, 6, IndexedIndirect)
	add(0xB1, "LDA", 2, 5, IndirectIndexed)

	add(0xA2, "LDX", 2, 2, Immediate)
	add(0xA6, "LDX", 2, 3, ZeroPage)
	add(0xB6, "LDX", 2, 4, ZeroPageY)
	add(0xAE, "LDX", 3, 4, Absolute)
	add(0xBE, "LDX", 3, 4, AbsoluteY)

	add(0xA0, "LDY", 2, 2, Immediate)
	add(0xA4, "LDY", 2, 3, ZeroPage)
	add(0xB4, "LDY", 2, 4, ZeroPageX)
	add(0xAC, "LDY", 3, 4, Absolute)
	add(0xBC, "LDY", 3, 4, AbsoluteX)

	add(0x85, "STA", 2, 3, ZeroPage)
	add(0x95, "STA", 2, 4, ZeroPageX)
	add(0x8D, "STA", 3, 4, Absolute)
	add(0x9D, "STA", 3, 5, AbsoluteX)
	add(0x99, "STA", 3, 5, AbsoluteY)
	add(0x81, "STA", 2, 6, IndexedIndirect)
	add(0x91, "STA", 2, 6, IndirectIndexed)

	add(0x86, "STX", 2, 3, ZeroPage)
	add(0x96, "STX", 2, 4, ZeroPageY)
	add(0x8E, "STX", 3, 4, Absolute)

	add(0x84, "STY", 2, 3, ZeroPage)
	add(0x94, "STY", 2, 4, ZeroPageX)
	add(0x8C, "STY", 3, 4, Absolute)

	// Transfers.
	add(0xAA, "TAX", 1, 2, Implied)
	add(0xA8, "TAY", 1, 2, Implied)
	add(0xBA, "TSX", 1, 2, Implied)
	add(0x8A, "TXA", 1, 2, Implied)
	add(0x9A, "TXS", 1, 2, Implied)
	add(0x98, "TYA", 1, 2, Implied)

	// Stack.
	add(0x48, "PHA", 1, 3, Implied)
	add(0x08, "PHP", 1, 3, Implied)
	add(0x68, "PLA", 1, 4, Implied)
	add(0x28, "PLP", 1, 4, Implied)

	// Arithmetic/logic.
	add(0x69, "ADC", 2, 2, Immediate)
	add(0x65, "ADC", 2, 3, ZeroPage)
	add(0x75, "ADC", 2, 4, ZeroPageX)
	add(0x6D, "ADC", 3, 4, Absolute)
	add(0x7D, "ADC", 3, 4, AbsoluteX)
	add(0x79, "ADC", 3, 4, AbsoluteY)
	add(0x61, "ADC", 2, 6, IndexedIndirect)
	add(0x71, "ADC", 2, 5, IndirectIndexed)

	add(0xE9, "SBC", 2, 2, Immediate)
	add(0xE5, "SBC", 2, 3, ZeroPage)
	add(0xF5, "SBC", 2, 4, ZeroPageX)
	add(0xED, "SBC", 3, 4, Absolute)
	add(0xFD, "SBC", 3, 4, AbsoluteX)
	add(0xF9, "SBC", 3, 4, AbsoluteY)
	add(0xE1, "SBC", 2, 6, IndexedIndirect)
	add(0xF1, "SBC", 2, 5, IndirectIndexed)
	add(0xEB, "SBC", 2, 2, Immediate) // unofficial alias

	add(0x29, "AND", 2, 2, Immediate)
	add(0x25, "AND", 2, 3, ZeroPage)
	add(0x35, "AND", 2, 4, ZeroPageX)
	add(0x2D, "AND", 3, 4, Absolute)
	add(0x3D, "AND", 3, 4, AbsoluteX)
	add(0x39, "AND", 3, 4, AbsoluteY)
	add(0x21, "AND", 2, 6, IndexedIndirect)
	add(0x31, "AND", 2, 5, IndirectIndexed)

	add(0x09, "ORA", 2, 2, Immediate)
	add(0x05, "ORA", 2, 3, ZeroPage)
	add(0x15, "ORA", 2, 4, ZeroPageX)
	add(0x0D, "ORA", 3, 4, Absolute)
	add(0x1D, "ORA", 3, 4, AbsoluteX)
	add(0x19, "ORA", 3, 4, AbsoluteY)
	add(0x01, "ORA", 2, 6, IndexedIndirect)
	add(0x11, "ORA", 2, 5, IndirectIndexed)

	add(0x49, "EOR", 2, 2, Immediate)
	add(0x45, "EOR", 2, 3, ZeroPage)
	add(0x55, "EOR", 2, 4, ZeroPageX)
	add(0x4D, "EOR", 3, 4, Absolute)
	add(0x5D, "EOR", 3, 4, AbsoluteX)
	add(0x59, "EOR", 3, 4, AbsoluteY)
	add(0x41, "EOR", 2, 6, IndexedIndirect)
	add(0x51, "EOR", 2, 5, IndirectIndexed)

	add(0xC9, "CMP", 2, 2, Immediate)
	add(0xC5, "CMP", 2, 3, ZeroPage)
	add(0xD5, "CMP", 2, 4, ZeroPageX)
	add(0xCD, "CMP", 3, 4, Absolute)
	add(0xDD, "CMP", 3, 4, AbsoluteX)
	add(0xD9, "CMP", 3, 4, AbsoluteY)
	add(0xC1, "CMP", 2, 6, IndexedIndirect)
	add(0xD1, "CMP", 2, 5, IndirectIndexed)

	add(0xE0, "CPX", 2, 2, Immediate)
	add(0xE4, "CPX", 2, 3, ZeroPage)
	add(0xEC, "CPX", 3, 4, Absolute)

	add(0xC0, "CPY", 2, 2, Immediate)
	add(0xC4, "CPY", 2, 3, ZeroPage)
	add(0xCC, "CPY", 3, 4, Absolute)

	add(0x24, "BIT", 2, 3, ZeroPage)
	add(0x2C, "BIT", 3, 4, Absolute)

	// Increment/decrement.
	add(0xE6, "INC", 2, 5, ZeroPage)
	add(0xF6, "INC", 2, 6, ZeroPageX)
	add(0xEE, "INC", 3, 6, Absolute)
	add(0xFE, "INC", 3, 7, AbsoluteX)
	add(0xE8, "INX", 1, 2, Implied)
	add(0xC8, "INY", 1, 2, Implied)

	add(0xC6, "DEC", 2, 5, ZeroPage)
	add(0xD6, "DEC", 2, 6, ZeroPageX)
	add(0xCE, "DEC", 3, 6, Absolute)
	add(0xDE, "DEC", 3, 7, AbsoluteX)
	add(0xCA, "DEX", 1, 2, Implied)
	add(0x88, "DEY", 1, 2, Implied)

	// Shifts/rotates.
	add(0x0A, "ASL", 1, 2, Accumulator)
	add(0x06, "ASL", 2, 5, ZeroPage)
	add(0x16, "ASL", 2, 6, ZeroPageX)
	add(0x0E, "ASL", 3, 6, Absolute)
	add(0x1E, "ASL", 3, 7, AbsoluteX)

	add(0x4A, "LSR", 1, 2, Accumulator)
	add(0x46, "LSR", 2, 5, ZeroPage)
	add(0x56, "LSR", 2, 6, ZeroPageX)
	add(0x4E, "LSR", 3, 6, Absolute)
	add(0x5E, "LSR", 3, 7, AbsoluteX)

	add(0x2A, "ROL", 1, 2, Accumulator)
	add(0x26, "ROL", 2, 5, ZeroPage)
	add(0x36, "ROL", 2, 6, ZeroPageX)
	add(0x2E, "ROL", 3, 6, Absolute)
	add(0x3E, "ROL", 3, 7, AbsoluteX)

	add(0x6A, "ROR", 1, 2, Accumulator)
	add(0x66, "ROR", 2, 5, ZeroPage)
	add(0x76, "ROR", 2, 6, ZeroPageX)
	add(0x6E, "ROR", 3, 6, Absolute)
	add(0x7E, "ROR", 3, 7, AbsoluteX)

	// Control flow.
	add(0x4C, "JMP", 3, 3, Absolute)
	add(0x6C, "JMP", 3, 5, Indirect)
	add(0x20, "JSR", 3, 6, Absolute)
	add(0x60, "RTS", 1, 6, Implied)
	add(0x40, "RTI", 1, 6, Implied)
	add(0x00, "BRK", 1, 7, Implied)

	add(0x90, "BCC", 2, 2, Relative)
	add(0xB0, "BCS", 2, 2, Relative)
	add(0xF0, "BEQ", 2, 2, Relative)
	add(0xD0, "BNE", 2, 2, Relative)
	add(0x10, "BPL", 2, 2, Relative)
	add(0x30, "BMI", 2, 2, Relative)
	add(0x50, "BVC", 2, 2, Relative)
	add(0x70, "BVS", 2, 2, Relative)

	// Flags.
	add(0x18, "CLC", 1, 2, Implied)
	add(0x38, "SEC", 1, 2, Implied)
	add(0x58, "CLI", 1, 2, Implied)
	add(0x78, "SEI", 1, 2, Implied)
	add(0xB8, "CLV", 1, 2, Implied)
	add(0xD8, "CLD", 1, 2, Implied)
	add(0xF8, "SED", 1, 2, Implied)

	// No-op and the unofficial NOP variants exercised by nestest.
	add(0xEA, "NOP", 1, 2, Implied)
	for _, op := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		add(op, "NOP", 1, 2, Implied)
	}
	for _, op := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		add(op, "NOP", 2, 2, Immediate)
	}
	add(0x04, "NOP", 2, 3, ZeroPage)
	add(0x44, "NOP", 2, 3, ZeroPage)
	add(0x64, "NOP", 2, 3, ZeroPage)
	add(0x14, "NOP", 2, 4, ZeroPageX)
	add(0x34, "NOP", 2, 4, ZeroPageX)
	add(0x54, "NOP", 2, 4, ZeroPageX)
	add(0x74, "NOP", 2, 4, ZeroPageX)
	add(0xD4, "NOP", 2, 4, ZeroPageX)
	add(0xF4, "NOP", 2, 4, ZeroPageX)
	add(0x0C, "NOP", 3, 4, Absolute)
	for _, op := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		add(op, "NOP", 3, 4, AbsoluteX)
	}

	// Unofficial combined opcodes.
	add(0xA7, "LAX", 2, 3, ZeroPage)
	add(0xB7, "LAX", 2, 4, ZeroPageY)
	add(0xAF, "LAX", 3, 4, Absolute)
	add(0xBF, "LAX", 3, 4, AbsoluteY)
	add(0xA3, "LAX", 2, 6, IndexedIndirect)
	add(0xB3, "LAX", 2, 5, IndirectIndexed)

	add(0x87, "SAX", 2, 3, ZeroPage)
	add(0x97, "SAX", 2, 4, ZeroPageY)
	add(0x8F, "SAX", 3, 4, Absolute)
	add(0x83, "SAX", 2, 6, IndexedIndirect)

	add(0xC7, "DCP", 2, 5, ZeroPage)
	add(0xD7, "DCP", 2, 6, ZeroPageX)
	add(0xCF, "DCP", 3, 6, Absolute)
	add(0xDF, "DCP", 3, 7, AbsoluteX)
	add(0xDB, "DCP", 3, 7, AbsoluteY)
	add(0xC3, "DCP", 2, 8, IndexedIndirect)
	add(0xD3, "DCP", 2, 8, IndirectIndexed)

	add(0xE7, "ISB", 2, 5, ZeroPage)
	add(0xF7, "ISB", 2, 6, ZeroPageX)
	add(0xEF, "ISB", 3, 6, Absolute)
	add(0xFF, "ISB", 3, 7, AbsoluteX)
	add(0xFB, "ISB", 3, 7, AbsoluteY)
	add(0xE3, "ISB", 2, 8, IndexedIndirect)
	add(0xF3, "ISB", 2, 8, IndirectIndexed)

	add(0x07, "SLO", 2, 5, ZeroPage)
	add(0x17, "SLO", 2, 6, ZeroPageX)
	add(0x0F, "SLO", 3, 6, Absolute)
	add(0x1F, "SLO", 3, 7, AbsoluteX)
	add(0x1B, "SLO", 3, 7, AbsoluteY)
	add(0x03, "SLO", 2, 8, IndexedIndirect)
	add(0x13, "SLO", 2, 8, IndirectIndexed)

	add(0x27, "RLA", 2, 5, ZeroPage)
	add(0x37, "RLA", 2, 6, ZeroPageX)
	add(0x2F, "RLA", 3, 6, Absolute)
	add(0x3F, "RLA", 3, 7, AbsoluteX)
	add(0x3B, "RLA", 3, 7, AbsoluteY)
	add(0x23, "RLA", 2, 8, IndexedIndirect)
	add(0x33, "RLA", 2, 8, IndirectIndexed)

	add(0x47, "SRE", 2, 5, ZeroPage)
	add(0x57, "SRE", 2, 6, ZeroPageX)
	add(0x4F, "SRE", 3, 6, Absolute)
	add(0x5F, "SRE", 3, 7, AbsoluteX)
	add(0x5B, "SRE", 3, 7, AbsoluteY)
	add(0x43, "SRE", 2, 8, IndexedIndirect)
	add(0x53, "SRE", 2, 8, IndirectIndexed)

	add(0x67, "RRA", 2, 5, ZeroPage)
	add(0x77, "RRA", 2, 6, ZeroPageX)
	add(0x6F, "RRA", 3, 6, Absolute)
	add(0x7F, "RRA", 3, 7, AbsoluteX)
	add(0x7B, "RRA", 3, 7, AbsoluteY)
	add(0x63, "RRA", 2, 8, IndexedIndirect)
	add(0x73, "RRA", 2, 8, IndirectIndexed)
}

// execute runs the decoded opcode and returns any extra cycles beyond the
// instruction's base cost (branch-taken/page-cross penalties not already
// covered by the caller).
func (cpu *CPU) execute(opcode uint8, address uint16, pageCrossed bool) uint64 {
	switch opcode {
	case 0xA9, 0xA5, 0xB5, 0xAD, 0xBD, 0xB9, 0xA1, 0xB1:
		cpu.A = cpu.bus.Read(address)
		cpu.setZN(cpu.A)

	case 0xA2, 0xA6, 0xB6, 0xAE, 0xBE:
		cpu.X = cpu.bus.Read(address)
		cpu.setZN(cpu.X)

	case 0xA0, 0xA4, 0xB4, 0xAC, 0xBC:
		cpu.Y = cpu.bus.Read(address)
		cpu.setZN(cpu.Y)

	case 0x85, 0x95, 0x8D, 0x9D, 0x99, 0x81, 0x91:
		cpu.bus.Write(address, cpu.A)

	case 0x86, 0x96, 0x8E:
		cpu.bus.Write(address, cpu.X)

	case 0x84, 0x94, 0x8C:
		cpu.bus.Write(address, cpu.Y)

	case 0xAA:
		cpu.X = cpu.A
		cpu.setZN(cpu.X)
	case 0xA8:
		cpu.Y = cpu.A
		cpu.setZN(cpu.Y)
	case 0xBA:
		cpu.X = cpu.SP
		cpu.setZN(cpu.X)
	case 0x8A:
		cpu.A = cpu.X
		cpu.setZN(cpu.A)
	case 0x9A:
		cpu.SP = cpu.X
	case 0x98:
		cpu.A = cpu.Y
		cpu.setZN(cpu.A)

	case 0x48:
		cpu.push(cpu.A)
	case 0x08:
		cpu.push(cpu.StatusByte(true))
	case 0x68:
		cpu.A = cpu.pop()
		cpu.setZN(cpu.A)
	case 0x28:
		cpu.SetStatusByte(cpu.pop())

	case 0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71:
		cpu.adc(cpu.bus.Read(address))
	case 0xE9, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1, 0xEB:
		cpu.adc(^cpu.bus.Read(address))

	case 0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31:
		cpu.A &= cpu.bus.Read(address)
		cpu.setZN(cpu.A)
	case 0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11:
		cpu.A |= cpu.bus.Read(address)
		cpu.setZN(cpu.A)
	case 0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51:
		cpu.A ^= cpu.bus.Read(address)
		cpu.setZN(cpu.A)

	case 0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1:
		cpu.compare(cpu.A, cpu.bus.Read(address))
	case 0xE0, 0xE4, 0xEC:
		cpu.compare(cpu.X, cpu.bus.Read(address))
	case 0xC0, 0xC4, 0xCC:
		cpu.compare(cpu.Y, cpu.bus.Read(address))

	case 0x24, 0x2C:
		value := cpu.bus.Read(address)
		cpu.Z = (cpu.A & value) == 0
		cpu.N = value&nFlagMask != 0
		cpu.V = value&vFlagMask != 0

	case 0xE6, 0xF6, 0xEE, 0xFE:
		value := cpu.bus.Read(address) + 1
		cpu.bus.Write(address, value)
		cpu.setZN(value)
	case 0xE8:
		cpu.X++
		cpu.setZN(cpu.X)
	case 0xC8:
		cpu.Y++
		cpu.setZN(cpu.Y)

	case 0xC6, 0xD6, 0xCE, 0xDE:
		value := cpu.bus.Read(address) - 1
		cpu.bus.Write(address, value)
		cpu.setZN(value)
	case 0xCA:
		cpu.X--
		cpu.setZN(cpu.X)
	case 0x88:
		cpu.Y--
		cpu.setZN(cpu.Y)

	case 0x0A:
		cpu.C = cpu.A&nFlagMask != 0
		cpu.A <<= 1
		cpu.setZN(cpu.A)
	case 0x06, 0x16, 0x0E, 0x1E:
		value := cpu.bus.Read(address)
		cpu.C = value&nFlagMask != 0
		value <<= 1
		cpu.bus.Write(address, value)
		cpu.setZN(value)

	case 0x4A:
		cpu.C = cpu.A&cFlagMask != 0
		cpu.A >>= 1
		cpu.setZN(cpu.A)
	case 0x46, 0x56, 0x4E, 0x5E:
		value := cpu.bus.Read(address)
		cpu.C = value&cFlagMask != 0
		value >>= 1
		cpu.bus.Write(address, value)
		cpu.setZN(value)

	case 0x2A:
		carry := cpu.C
		cpu.C = cpu.A&nFlagMask != 0
		cpu.A <<= 1
		if carry {
			cpu.A |= 0x01
		}
		cpu.setZN(cpu.A)
	case 0x26, 0x36, 0x2E, 0x3E:
		value := cpu.bus.Read(address)
		carry := cpu.C
		cpu.C = value&nFlagMask != 0
		value <<= 1
		if carry {
			value |= 0x01
		}
		cpu.bus.Write(address, value)
		cpu.setZN(value)

	case 0x6A:
		carry := cpu.C
		cpu.C = cpu.A&cFlagMask != 0
		cpu.A >>= 1
		if carry {
			cpu.A |= nFlagMask
		}
		cpu.setZN(cpu.A)
	case 0x66, 0x76, 0x6E, 0x7E:
		value := cpu.bus.Read(address)
		carry := cpu.C
		cpu.C = value&cFlagMask != 0
		value >>= 1
		if carry {
			value |= nFlagMask
		}
		cpu.bus.Write(address, value)
		cpu.setZN(value)

	case 0x4C, 0x6C:
		cpu.PC = address

	case 0x20:
		cpu.pushWord(cpu.PC - 1)
		cpu.PC = address

	case 0x60:
		cpu.PC = cpu.popWord() + 1

	case 0x40:
		cpu.SetStatusByte(cpu.pop())
		cpu.PC = cpu.popWord()

	case 0x00:
		cpu.PC++
		cpu.pushWord(cpu.PC)
		cpu.push(cpu.StatusByte(true))
		cpu.I = true
		low := uint16(cpu.bus.Read(irqVector))
		high := uint16(cpu.bus.Read(irqVector + 1))
		cpu.PC = (high << 8) | low

	case 0x90:
		return cpu.branch(!cpu.C, address)
	case 0xB0:
		return cpu.branch(cpu.C, address)
	case 0xF0:
		return cpu.branch(cpu.Z, address)
	case 0xD0:
		return cpu.branch(!cpu.Z, address)
	case 0x10:
		return cpu.branch(!cpu.N, address)
	case 0x30:
		return cpu.branch(cpu.N, address)
	case 0x50:
		return cpu.branch(!cpu.V, address)
	case 0x70:
		return cpu.branch(cpu.V, address)

	case 0x18:
		cpu.C = false
	case 0x38:
		cpu.C = true
	case 0x58:
		cpu.I = false
	case 0x78:
		cpu.I = true
	case 0xB8:
		cpu.V = false
	case 0xD8:
		cpu.D = false
	case 0xF8:
		cpu.D = true

	case 0xEA:
		// NOP.
	case 0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA:
		// NOP.
	case 0x80, 0x82, 0x89, 0xC2, 0xE2, 0x04, 0x44, 0x64, 0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4, 0x0C, 0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC:
		cpu.bus.Read(address) // read side effects only, discard result

	case 0xA7, 0xB7, 0xAF, 0xBF, 0xA3, 0xB3:
		cpu.A = cpu.bus.Read(address)
		cpu.X = cpu.A
		cpu.setZN(cpu.A)

	case 0x87, 0x97, 0x8F, 0x83:
		cpu.bus.Write(address, cpu.A&cpu.X)

	case 0xC7, 0xD7, 0xCF, 0xDF, 0xDB, 0xC3, 0xD3:
		value := cpu.bus.Read(address) - 1
		cpu.bus.Write(address, value)
		cpu.compare(cpu.A, value)

	case 0xE7, 0xF7, 0xEF, 0xFF, 0xFB, 0xE3, 0xF3:
		value := cpu.bus.Read(address) + 1
		cpu.bus.Write(address, value)
		cpu.adc(^value)

	case 0x07, 0x17, 0x0F, 0x1F, 0x1B, 0x03, 0x13:
		value := cpu.bus.Read(address)
		cpu.C = value&nFlagMask != 0
		value <<= 1
		cpu.bus.Write(address, value)
		cpu.A |= value
		cpu.setZN(cpu.A)

	case 0x27, 0x37, 0x2F, 0x3F, 0x3B, 0x23, 0x33:
		value := cpu.bus.Read(address)
		carry := cpu.C
		cpu.C = value&nFlagMask != 0
		value <<= 1
		if carry {
			value |= 0x01
		}
		cpu.bus.Write(address, value)
		cpu.A &= value
		cpu.setZN(cpu.A)

	case 0x47, 0x57, 0x4F, 0x5F, 0x5B, 0x43, 0x53:
		value := cpu.bus.Read(address)
		cpu.C = value&cFlagMask != 0
		value >>= 1
		cpu.bus.Write(address, value)
		cpu.A ^= value
		cpu.setZN(cpu.A)

	case 0x67, 0x77, 0x6F, 0x7F, 0x7B, 0x63, 0x73:
		value := cpu.bus.Read(address)
		carry := cpu.C
		cpu.C = value&cFlagMask != 0
		value >>= 1
		if carry {
			value |= nFlagMask
		}
		cpu.bus.Write(address, value)
		cpu.adc(value)
	}

	return 0
}

// adc adds operand plus carry into A, setting C/V/Z/N per the standard
// unsigned/signed overflow formulas. SBC is implemented as adc(^operand).
func (cpu *CPU) adc(operand uint8) {
	carryIn := uint16(0)
	if cpu.C {
		carryIn = 1
	}
	sum := uint16(cpu.A) + uint16(operand) + carryIn
	result := uint8(sum)

	cpu.C = sum > 0xFF
	cpu.V = (cpu.A^operand)&0x80 == 0 && (cpu.A^result)&0x80 != 0
	cpu.A = result
	cpu.setZN(cpu.A)
}

func (cpu *CPU) compare(register, operand uint8) {
	result := register - operand
	cpu.C = register >= operand
	cpu.setZN(result)
}

// branch performs the PC update for a taken branch and returns the extra
// cycle count: 1 if taken, plus 1 more if the branch crosses a page.
func (cpu *CPU) branch(condition bool, target uint16) uint64 {
	if !condition {
		return 0
	}
	oldPC := cpu.PC
	cpu.PC = target
	if (oldPC & pageMask) != (target & pageMask) {
		return 2
	}
	return 1
}
