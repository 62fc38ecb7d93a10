package bus

import "nesgo/internal/cartridge"

// ppuMemory implements ppu.Memory: pattern tables are forwarded to the
// cartridge, nametables live in two physical 1KB banks mirrored per the
// cartridge's MirrorMode, and palette RAM has its own 32-byte space with the
// documented background-color mirroring.
type ppuMemory struct {
	cart       *cartridge.Cartridge
	nametables [2][1024]uint8
	palette    [32]uint8
}

func newPPUMemory(cart *cartridge.Cartridge) *ppuMemory {
	return &ppuMemory{cart: cart}
}

func (m *ppuMemory) Read(address uint16) uint8 {
	address &= 0x3FFF
	switch {
	case address < 0x2000:
		return m.cart.ReadCHR(address)
	case address < 0x3F00:
		return m.nametables[m.nametableBank(address)][address&0x03FF]
	default:
		return m.palette[paletteIndex(address)]
	}
}

func (m *ppuMemory) Write(address uint16, value uint8) {
	address &= 0x3FFF
	switch {
	case address < 0x2000:
		m.cart.WriteCHR(address, value)
	case address < 0x3F00:
		m.nametables[m.nametableBank(address)][address&0x03FF] = value
	default:
		m.palette[paletteIndex(address)] = value
	}
}

// nametableBank resolves a $2000-$3EFF address to one of the two physical
// 1KB nametable banks according to the cartridge's mirroring mode. $3000-
// $3EFF is the documented mirror of $2000-$2EFF and is folded down first.
func (m *ppuMemory) nametableBank(address uint16) int {
	if address >= 0x3000 {
		address -= 0x1000
	}
	table := (address - 0x2000) / 0x0400 // 0..3 logical nametable slot

	switch m.cart.MirrorMode() {
	case cartridge.MirrorVertical:
		return int(table) % 2
	case cartridge.MirrorSingleScreen0:
		return 0
	case cartridge.MirrorSingleScreen1:
		return 1
	case cartridge.MirrorFourScreen:
		return int(table) % 2 // only 2 physical banks are modeled
	default: // MirrorHorizontal
		return int(table / 2)
	}
}

// paletteIndex applies the $3F10/$3F14/$3F18/$3F1C-mirror-$3F00 sprite
// backdrop quirk and the general 32-byte wraparound.
func paletteIndex(address uint16) uint16 {
	index := (address - 0x3F00) % 32
	if index >= 0x10 && index%4 == 0 {
		index &^= 0x10
	}
	return index
}
