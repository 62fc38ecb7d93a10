package cartridge

import (
	"bytes"
	"testing"
)

func buildINES(prgBanks, chrBanks uint8, flags6 uint8) []byte {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(prgBanks)
	buf.WriteByte(chrBanks)
	buf.WriteByte(flags6)
	buf.WriteByte(0) // flags7 -> mapper 0
	buf.Write(make([]byte, 8))
	buf.Write(make([]byte, int(prgBanks)*prgBankSize))
	buf.Write(make([]byte, int(chrBanks)*chrBankSize))
	return buf.Bytes()
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := buildINES(1, 1, 0)
	data[0] = 'X'
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestLoadRejectsZeroPRG(t *testing.T) {
	data := buildINES(0, 1, 0)
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected error for zero PRG size")
	}
}

func TestMirrorModeFromFlags6(t *testing.T) {
	data := buildINES(1, 1, 0x01)
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cart.MirrorMode() != MirrorVertical {
		t.Fatalf("mirror = %v, want MirrorVertical", cart.MirrorMode())
	}
}

func TestSingleBankPRGMirrorsAcross16KWindows(t *testing.T) {
	data := buildINES(1, 1, 0)
	offset := headerSize
	data[offset] = 0x42
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := cart.ReadPRG(0x8000); got != 0x42 {
		t.Fatalf("ReadPRG(0x8000) = %#02x, want 0x42", got)
	}
	if got := cart.ReadPRG(0xC000); got != 0x42 {
		t.Fatalf("ReadPRG(0xC000) = %#02x, want 0x42 (mirrored bank)", got)
	}
}

func TestCHRRAMIsWritableWhenNoCHRROMPresent(t *testing.T) {
	data := buildINES(1, 0, 0)
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cart.WriteCHR(0x0010, 0x77)
	if got := cart.ReadCHR(0x0010); got != 0x77 {
		t.Fatalf("ReadCHR(0x0010) = %#02x, want 0x77", got)
	}
}

func TestUnsupportedMapperRejected(t *testing.T) {
	data := buildINES(1, 1, 0x10) // mapper 1 in high nibble
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected error for unsupported mapper")
	}
}
