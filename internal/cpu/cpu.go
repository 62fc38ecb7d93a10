// Package cpu implements the MOS 6502 interpreter used by the NES.
package cpu

// AddressingMode identifies how an instruction's operand address is formed.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

const (
	stackBase = 0x0100

	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01

	zeroPageMask = 0xFF
	pageMask     = 0xFF00

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// Bus is the memory interface the CPU executes instructions against. The CPU
// never holds state beyond this interface between Step calls.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// Instruction describes one entry of the opcode table.
type Instruction struct {
	Name   string
	Bytes  uint8
	Cycles uint8
	Mode   AddressingMode
}

// CPU is a MOS 6502 core with the NES's decimal-mode-disabled semantics.
type CPU struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16

	C, Z, I, D, B, V, N bool

	bus    Bus
	cycles uint64

	instructions [256]*Instruction
}

// New creates a CPU bound to the given bus. Call Reset before stepping.
func New(bus Bus) *CPU {
	cpu := &CPU{bus: bus}
	cpu.initInstructions()
	return cpu
}

// Cycles returns the cumulative number of CPU cycles executed.
func (cpu *CPU) Cycles() uint64 { return cpu.cycles }

// Reset performs the 6502 RESET sequence: A/X/Y cleared, SP set to $FD, flags
// set to I=1,U=1 with the rest clear, PC loaded from $FFFC/$FFFD.
func (cpu *CPU) Reset() {
	cpu.A, cpu.X, cpu.Y = 0, 0, 0
	cpu.SP = 0xFD
	cpu.C, cpu.Z, cpu.D, cpu.V, cpu.N = false, false, false, false, false
	cpu.I = true
	cpu.B = false

	low := uint16(cpu.bus.Read(resetVector))
	high := uint16(cpu.bus.Read(resetVector + 1))
	cpu.PC = (high << 8) | low
}

// Step fetches and executes one instruction, returning its cycle cost.
func (cpu *CPU) Step() uint64 {
	opcode := cpu.bus.Read(cpu.PC)
	instruction := cpu.instructions[opcode]

	if instruction == nil {
		// Unimplemented opcode: tolerated as a 2-cycle NOP.
		cpu.PC++
		cpu.cycles += 2
		return 2
	}

	address, pageCrossed := cpu.operandAddress(instruction.Mode)
	extra := cpu.execute(opcode, address, pageCrossed)

	if pageCrossed && pageCrossPenalty(opcode) {
		extra++
	}

	total := uint64(instruction.Cycles) + uint64(extra)
	cpu.cycles += total
	return total
}

// pageCrossPenalty reports whether opcode pays an extra cycle when its
// indexed/indirect-indexed operand crosses a page boundary. Store and
// read-modify-write instructions and branches are excluded: writes always pay
// the indexed penalty already folded into their base cycle count, and branches
// compute their own page-cross cycle inside the branch handler.
func pageCrossPenalty(opcode uint8) bool {
	switch opcode {
	case 0xBD, 0xB9, 0xB1, 0xBE, 0xBC, 0x7D, 0x79, 0x71, 0x3D, 0x39, 0x31, 0x1D, 0x19, 0x11, 0x5D, 0x59, 0x51, 0xDD, 0xD9, 0xD1:
		return true
	case 0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC:
		return true
	case 0xBF, 0xB3:
		return true
	default:
		return false
	}
}

// operandAddress resolves the effective address for mode, advancing PC past
// the instruction's bytes. Returns whether an indexed/indirect add crossed a
// page boundary.
func (cpu *CPU) operandAddress(mode AddressingMode) (uint16, bool) {
	switch mode {
	case Implied, Accumulator:
		cpu.PC++
		return 0, false

	case Immediate:
		address := cpu.PC + 1
		cpu.PC += 2
		return address, false

	case ZeroPage:
		address := uint16(cpu.bus.Read(cpu.PC + 1))
		cpu.PC += 2
		return address, false

	case ZeroPageX:
		base := cpu.bus.Read(cpu.PC + 1)
		cpu.PC += 2
		return uint16((base + cpu.X) & zeroPageMask), false

	case ZeroPageY:
		base := cpu.bus.Read(cpu.PC + 1)
		cpu.PC += 2
		return uint16((base + cpu.Y) & zeroPageMask), false

	case Relative:
		offset := int8(cpu.bus.Read(cpu.PC + 1))
		oldPC := cpu.PC + 2
		newPC := uint16(int32(oldPC) + int32(offset))
		cpu.PC = oldPC
		return newPC, (oldPC & pageMask) != (newPC & pageMask)

	case Absolute:
		low := uint16(cpu.bus.Read(cpu.PC + 1))
		high := uint16(cpu.bus.Read(cpu.PC + 2))
		cpu.PC += 3
		return (high << 8) | low, false

	case AbsoluteX:
		low := uint16(cpu.bus.Read(cpu.PC + 1))
		high := uint16(cpu.bus.Read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.X)
		cpu.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case AbsoluteY:
		low := uint16(cpu.bus.Read(cpu.PC + 1))
		high := uint16(cpu.bus.Read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case Indirect: // JMP only; reproduces the page-wrap bug.
		lowPtr := uint16(cpu.bus.Read(cpu.PC + 1))
		highPtr := uint16(cpu.bus.Read(cpu.PC + 2))
		ptr := (highPtr << 8) | lowPtr

		var address uint16
		if (ptr & zeroPageMask) == zeroPageMask {
			low := uint16(cpu.bus.Read(ptr))
			high := uint16(cpu.bus.Read(ptr & pageMask))
			address = (high << 8) | low
		} else {
			low := uint16(cpu.bus.Read(ptr))
			high := uint16(cpu.bus.Read(ptr + 1))
			address = (high << 8) | low
		}
		cpu.PC += 3
		return address, false

	case IndexedIndirect:
		base := cpu.bus.Read(cpu.PC + 1)
		ptr := (base + cpu.X) & zeroPageMask
		low := uint16(cpu.bus.Read(uint16(ptr)))
		high := uint16(cpu.bus.Read(uint16((ptr + 1) & zeroPageMask)))
		cpu.PC += 2
		return (high << 8) | low, false

	case IndirectIndexed:
		ptr := uint16(cpu.bus.Read(cpu.PC + 1))
		low := uint16(cpu.bus.Read(ptr))
		high := uint16(cpu.bus.Read((ptr + 1) & zeroPageMask))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 2
		return address, (base & pageMask) != (address & pageMask)

	default:
		return 0, false
	}
}

func (cpu *CPU) push(value uint8) {
	cpu.bus.Write(stackBase+uint16(cpu.SP), value)
	cpu.SP--
}

func (cpu *CPU) pop() uint8 {
	cpu.SP++
	return cpu.bus.Read(stackBase + uint16(cpu.SP))
}

func (cpu *CPU) pushWord(value uint16) {
	cpu.push(uint8(value >> 8))
	cpu.push(uint8(value & 0xFF))
}

func (cpu *CPU) popWord() uint16 {
	low := uint16(cpu.pop())
	high := uint16(cpu.pop())
	return (high << 8) | low
}

func (cpu *CPU) setZN(value uint8) {
	cpu.Z = value == 0
	cpu.N = (value & nFlagMask) != 0
}

// StatusByte packs the flags into P, with U always 1. b selects the B bit
// for this particular snapshot (set for PHP/BRK, clear for hardware
// interrupts); it does not alter cpu.B.
func (cpu *CPU) StatusByte(b bool) uint8 {
	var status uint8 = unusedMask
	if cpu.N {
		status |= nFlagMask
	}
	if cpu.V {
		status |= vFlagMask
	}
	if b {
		status |= bFlagMask
	}
	if cpu.D {
		status |= dFlagMask
	}
	if cpu.I {
		status |= iFlagMask
	}
	if cpu.Z {
		status |= zFlagMask
	}
	if cpu.C {
		status |= cFlagMask
	}
	return status
}

// SetStatusByte restores flags from a pulled P byte. B (bit 4) is never
// stored back into the CPU's B field; U is implicitly 1 and has no backing
// field to restore.
func (cpu *CPU) SetStatusByte(status uint8) {
	cpu.N = status&nFlagMask != 0
	cpu.V = status&vFlagMask != 0
	cpu.D = status&dFlagMask != 0
	cpu.I = status&iFlagMask != 0
	cpu.Z = status&zFlagMask != 0
	cpu.C = status&cFlagMask != 0
}

// ServiceNMI runs the 7-cycle NMI sequence and returns its cycle cost. NMIs
// are non-maskable: the I flag has no bearing on whether this runs, only on
// whether a subsequent IRQ/BRK can.
func (cpu *CPU) ServiceNMI() uint64 {
	cpu.pushWord(cpu.PC)
	cpu.push(cpu.StatusByte(false))
	cpu.I = true
	low := uint16(cpu.bus.Read(nmiVector))
	high := uint16(cpu.bus.Read(nmiVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 7
	return 7
}
