// Package bus implements the CPU-side address decode: 2KB internal RAM
// mirrored through $1FFF, PPU registers mirrored through $3FFF, APU/IO at
// $4000-$4017, and cartridge space from $4020 up.
package bus

import (
	"nesgo/internal/cartridge"
	"nesgo/internal/input"
	"nesgo/internal/ppu"
)

// Bus wires CPU address space together: RAM, PPU registers, the single
// supported controller port, and cartridge PRG space.
type Bus struct {
	ram [0x0800]uint8

	PPU         *ppu.PPU
	ppuMem      *ppuMemory
	Cartridge   *cartridge.Cartridge
	Controller1 *input.Controller

	dma dmaCoordinator

	// apuOpenBus models the APU/IO registers the console does not
	// implement; reads return the last value written to preserve
	// open-bus-like behavior for polling loops that touch $4000-$4013.
	apuOpenBus uint8

	cycleCount uint64
}

// New builds a Bus for cart, creating and wiring its own PPU instance.
func New(cart *cartridge.Cartridge) *Bus {
	mem := newPPUMemory(cart)
	b := &Bus{
		PPU:         ppu.New(mem),
		ppuMem:      mem,
		Cartridge:   cart,
		Controller1: &input.Controller{},
	}
	return b
}

// Read implements cpu.Bus.
func (b *Bus) Read(address uint16) uint8 {
	switch {
	case address < 0x2000:
		return b.ram[address&0x07FF]
	case address < 0x4000:
		return b.PPU.ReadRegister(address)
	case address == 0x4016:
		return b.Controller1.Read()
	case address == 0x4017:
		return 0 // second controller not implemented
	case address < 0x4018:
		return b.apuOpenBus
	case address < 0x4020:
		return 0
	default:
		return b.Cartridge.ReadPRG(address)
	}
}

// Write implements cpu.Bus.
func (b *Bus) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		b.ram[address&0x07FF] = value
	case address < 0x4000:
		b.PPU.WriteRegister(address, value)
	case address == 0x4014:
		b.dma.Start(value, b.cycleCount%2 != 0)
	case address == 0x4016:
		b.Controller1.Write(value)
	case address < 0x4018:
		b.apuOpenBus = value
	case address < 0x4020:
		// Unused APU/IO test-mode registers.
	default:
		b.Cartridge.WritePRG(address, value)
	}
}

// DMAActive reports whether an OAM DMA transfer is stealing CPU cycles.
func (b *Bus) DMAActive() bool { return b.dma.Active() }

// StepDMACycle advances an in-progress OAM DMA transfer by one CPU cycle.
func (b *Bus) StepDMACycle() {
	b.dma.Step(b.Read, b.PPU.WriteOAMByte)
}

// AdvanceCycle records that one CPU cycle has elapsed, for DMA alignment
// parity tracking.
func (b *Bus) AdvanceCycle() { b.cycleCount++ }
