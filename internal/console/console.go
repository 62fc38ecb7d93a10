// Package console wires the CPU, PPU, bus, and cartridge together into the
// single-threaded NES execution loop: the PPU advances three dots for every
// CPU cycle consumed, whether that cycle belongs to an instruction or to an
// OAM DMA transfer.
package console

import (
	"io"

	"nesgo/internal/bus"
	"nesgo/internal/cartridge"
	"nesgo/internal/cpu"
)

const dotsPerCPUCycle = 3

// Console owns one emulated machine: one cartridge, one CPU, one PPU, one
// controller port.
type Console struct {
	CPU *cpu.CPU
	Bus *bus.Bus

	totalCPUCycles uint64
}

// New constructs a Console with no cartridge loaded. Call Load before Reset.
func New() *Console {
	return &Console{}
}

// Load parses an iNES image from r and wires a fresh Bus/CPU/PPU around it.
func (c *Console) Load(r io.Reader) error {
	cart, err := cartridge.LoadFromReader(r)
	if err != nil {
		return err
	}
	c.Bus = bus.New(cart)
	c.CPU = cpu.New(c.Bus)
	c.Reset()
	return nil
}

// Reset performs the power-on/reset sequence on both CPU and PPU.
func (c *Console) Reset() {
	c.CPU.Reset()
	c.Bus.PPU.Reset()
	c.totalCPUCycles = 0
}

// SetButtons updates controller 1's live button mask (see input.Button).
func (c *Console) SetButtons(mask uint8) {
	c.Bus.Controller1.SetButtons(mask)
}

// FrameBuffer returns the most recently completed frame's pixels.
func (c *Console) FrameBuffer() *[256 * 240]uint32 {
	return c.Bus.PPU.FrameBuffer()
}

// CPUCycles returns the total CPU cycles executed since the last Reset.
func (c *Console) CPUCycles() uint64 { return c.totalCPUCycles }

// tickPPU advances the PPU by dotsPerCPUCycle dots and returns whether a
// vertical-blank NMI was asserted during that span.
func (c *Console) tickPPU() bool {
	nmi := false
	for i := 0; i < dotsPerCPUCycle; i++ {
		c.Bus.PPU.Tick()
	}
	if c.Bus.PPU.PollNMI() {
		nmi = true
	}
	return nmi
}

// dmaCycle advances one stolen OAM DMA cycle and its accompanying PPU dots.
func (c *Console) dmaCycle() bool {
	c.Bus.StepDMACycle()
	c.Bus.AdvanceCycle()
	c.totalCPUCycles++
	return c.tickPPU()
}

// cpuCycle charges one cycle belonging to the CPU's own in-flight
// instruction (already accounted for in cpu.CPU's cycle total by Step/
// ServiceNMI) and its accompanying PPU dots.
func (c *Console) cpuCycle() bool {
	c.Bus.AdvanceCycle()
	c.totalCPUCycles++
	return c.tickPPU()
}

// StepInstruction executes exactly one CPU instruction, interleaving PPU
// dots cycle-for-cycle, and services a pending NMI if one was asserted.
// A DMA requested by a register write (e.g. STA $4014) is never drained
// against the triggering instruction's own remaining cycles - hardware
// finishes that instruction uninterrupted and only then starts stealing
// cycles, so any pending transfer is drained at the top of the next call.
func (c *Console) StepInstruction() {
	nmiPending := false
	for c.Bus.DMAActive() {
		if c.dmaCycle() {
			nmiPending = true
		}
	}

	cycles := c.CPU.Step()
	for i := uint64(0); i < cycles; i++ {
		if c.cpuCycle() {
			nmiPending = true
		}
	}

	if nmiPending {
		nmiCycles := c.CPU.ServiceNMI()
		for i := uint64(0); i < nmiCycles; i++ {
			c.cpuCycle()
		}
	}
}

// StepFrame runs instructions until the PPU completes exactly one frame.
func (c *Console) StepFrame() {
	startFrame := c.Bus.PPU.FrameCount()
	for c.Bus.PPU.FrameCount() == startFrame {
		c.StepInstruction()
	}
}
