package cpu

import "testing"

type testBus struct {
	mem [0x10000]uint8
}

func (b *testBus) Read(address uint16) uint8          { return b.mem[address] }
func (b *testBus) Write(address uint16, value uint8)  { b.mem[address] = value }

func newTestCPU(program []uint8, start uint16) (*CPU, *testBus) {
	bus := &testBus{}
	copy(bus.mem[start:], program)
	bus.mem[resetVector] = uint8(start & 0xFF)
	bus.mem[resetVector+1] = uint8(start >> 8)
	c := New(bus)
	c.Reset()
	return c, bus
}

func TestResetLoadsPCFromVector(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xEA}, 0xC000)
	if c.PC != 0xC000 {
		t.Fatalf("PC = %#04x, want 0xC000", c.PC)
	}
	if c.SP != 0xFD || !c.I {
		t.Fatalf("unexpected post-reset state: SP=%#02x I=%v", c.SP, c.I)
	}
}

func TestLDAImmediateSetsFlags(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xA9, 0x00, 0xA9, 0x80}, 0x8000)
	c.Step()
	if !c.Z || c.N {
		t.Fatalf("LDA #0: Z=%v N=%v, want Z=true N=false", c.Z, c.N)
	}
	c.Step()
	if c.Z || !c.N {
		t.Fatalf("LDA #$80: Z=%v N=%v, want Z=false N=true", c.Z, c.N)
	}
	if c.A != 0x80 {
		t.Fatalf("A = %#02x, want 0x80", c.A)
	}
}

func TestADCSetsCarryAndOverflow(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xA9, 0x7F, 0x69, 0x01}, 0x8000)
	c.Step() // LDA #$7F
	c.Step() // ADC #$01 -> overflow into negative
	if c.A != 0x80 {
		t.Fatalf("A = %#02x, want 0x80", c.A)
	}
	if !c.V || !c.N || c.C {
		t.Fatalf("flags: V=%v N=%v C=%v, want V=true N=true C=false", c.V, c.N, c.C)
	}
}

func TestSBCBorrow(t *testing.T) {
	c, _ := newTestCPU([]uint8{0x38, 0xA9, 0x00, 0xE9, 0x01}, 0x8000)
	c.Step() // SEC
	c.Step() // LDA #$00
	c.Step() // SBC #$01 -> 0xFF, borrow => C clear
	if c.A != 0xFF {
		t.Fatalf("A = %#02x, want 0xFF", c.A)
	}
	if c.C {
		t.Fatalf("C = true, want false (borrow occurred)")
	}
}

func TestStackPushPullRoundTrip(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xA9, 0x42, 0x48, 0xA9, 0x00, 0x68}, 0x8000)
	c.Step() // LDA #$42
	c.Step() // PHA
	c.Step() // LDA #$00
	c.Step() // PLA
	if c.A != 0x42 {
		t.Fatalf("A = %#02x, want 0x42 after PHA/PLA round trip", c.A)
	}
}

func TestPHPSetsBreakBitPLPDoesNotRestoreIt(t *testing.T) {
	c, bus := newTestCPU([]uint8{0x08, 0x28}, 0x8000)
	c.Step() // PHP
	pushed := bus.mem[stackBase+uint16(c.SP)+1]
	if pushed&bFlagMask == 0 {
		t.Fatalf("PHP should push B=1, got status %#02x", pushed)
	}
	if pushed&unusedMask == 0 {
		t.Fatalf("PHP should push U=1, got status %#02x", pushed)
	}
	c.Step() // PLP
	if c.B {
		t.Fatalf("PLP should not restore B from the pulled status %#02x", pushed)
	}
}

func TestJSRRTSRoundTrip(t *testing.T) {
	c, _ := newTestCPU([]uint8{0x20, 0x05, 0x80, 0xEA, 0xEA, 0x60}, 0x8000)
	c.Step() // JSR $8005
	if c.PC != 0x8005 {
		t.Fatalf("PC = %#04x after JSR, want 0x8005", c.PC)
	}
	c.Step() // RTS
	if c.PC != 0x8003 {
		t.Fatalf("PC = %#04x after RTS, want 0x8003 (after the 3-byte JSR)", c.PC)
	}
}

func TestBranchTakenAddsCycleAndCrossingAddsAnother(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xA9, 0x00, 0xF0, 0x01, 0xEA, 0xEA}, 0x80FB)
	c.Step() // LDA #$00 at 0x80FB/0x80FC, sets Z
	cycles := c.Step() // BEQ +1, taken, from 0x80FD -> target 0x8100 crosses page
	if cycles != 4 {
		t.Fatalf("BEQ cycles = %d, want 4 (2 base + 1 taken + 1 page cross)", cycles)
	}
}

func TestIndirectJMPPageWrapBug(t *testing.T) {
	c, bus := newTestCPU([]uint8{0x6C, 0xFF, 0x02}, 0x8000)
	bus.mem[0x02FF] = 0x00
	bus.mem[0x0200] = 0x80 // high byte fetched from 0x0200, not 0x0300
	bus.mem[0x0300] = 0xFF
	c.Step()
	if c.PC != 0x8000 {
		t.Fatalf("PC = %#04x, want 0x8000 (page-wrap bug)", c.PC)
	}
}

func TestNMISequencePushesPCAndStatus(t *testing.T) {
	c, bus := newTestCPU([]uint8{0xEA}, 0x8000)
	bus.mem[nmiVector] = 0x00
	bus.mem[nmiVector+1] = 0x90
	c.I = false
	cycles := c.ServiceNMI()
	if cycles != 7 {
		t.Fatalf("ServiceNMI cycles = %d, want 7", cycles)
	}
	if c.PC != 0x9000 {
		t.Fatalf("PC = %#04x after NMI, want 0x9000", c.PC)
	}
	if !c.I {
		t.Fatalf("I flag should be set after servicing NMI")
	}
}
