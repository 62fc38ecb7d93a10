// Package ppu implements the NES Picture Processing Unit as a per-dot
// interpreter: a background shift-register pipeline and sprite evaluation
// driven one PPU dot at a time, matching the 341-dot/scanline, 262-scanline
// NTSC timing grid.
package ppu

const (
	dotsPerScanline     = 341
	scanlinesPerFrame   = 262
	visibleScanlines    = 240
	postRenderScanline  = 240
	preRenderScanline   = -1
	vblankStartScanline = 241

	screenWidth  = 256
	screenHeight = 240
)

// Memory is the PPU-side address space: nametables/palette RAM live behind
// this interface so mirroring can be owned by the bus/memory layer while the
// PPU stays agnostic of cartridge wiring. CHR is reached through the same
// interface at addresses below $2000.
type Memory interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// spriteSlot holds one of the up to 8 sprites evaluated for the scanline
// about to be rendered.
type spriteSlot struct {
	x          uint8
	patternLo  uint8
	patternHi  uint8
	attributes uint8
	isSprite0  bool
}

// PPU is a cycle-stepped NES picture processing unit.
type PPU struct {
	mem Memory

	// Registers exposed at $2000-$2007.
	ctrl   uint8
	mask   uint8
	status uint8

	oamAddr uint8
	oam     [256]uint8
	// secondaryOAM holds the up to 8 sprites selected for the next
	// scanline during evaluation.
	secondaryOAM [32]uint8
	spriteCount  int
	sprites      [8]spriteSlot

	// Loopy scroll registers.
	v uint16
	t uint16
	x uint8
	w bool

	readBuffer uint8
	openBus    uint8

	scanline int
	dot      int
	frame    uint64
	oddFrame bool

	// Background shift pipeline.
	nametableByte  uint8
	attributeByte  uint8
	patternLowByte uint8
	patternHiByte  uint8

	bgShiftLo uint16
	bgShiftHi uint16
	atShiftLo uint16
	atShiftHi uint16

	frameBuffer [screenWidth * screenHeight]uint32

	// NMI is edge-raised when VBlank starts and $2000 bit 7 is set; the
	// Console polls it once per master tick and clears it when serviced.
	nmiLine bool
}

// New creates a PPU bound to its memory interface.
func New(mem Memory) *PPU {
	return &PPU{mem: mem, scanline: preRenderScanline, dot: 0}
}

// Reset returns the PPU to its post-power state.
func (p *PPU) Reset() {
	p.ctrl = 0
	p.mask = 0
	p.status = 0
	p.oamAddr = 0
	p.v, p.t, p.x = 0, 0, 0
	p.w = false
	p.readBuffer = 0
	p.scanline = preRenderScanline
	p.dot = 0
	p.oddFrame = false
	p.nmiLine = false
}

// FrameBuffer returns the completed frame's packed 0xRRGGBB pixels, row-major.
func (p *PPU) FrameBuffer() *[screenWidth * screenHeight]uint32 { return &p.frameBuffer }

// FrameBufferRGB renders the completed frame as the external 256*240*3
// row-major RGB8 byte layout the host interface exposes.
func (p *PPU) FrameBufferRGB() []byte {
	out := make([]byte, screenWidth*screenHeight*3)
	for i, color := range p.frameBuffer {
		r, g, b := nesColorToRGB(color)
		out[i*3+0] = r
		out[i*3+1] = g
		out[i*3+2] = b
	}
	return out
}

// FrameCount returns the number of frames rendered so far.
func (p *PPU) FrameCount() uint64 { return p.frame }

// PollNMI reports whether an NMI is currently asserted and clears the line,
// mirroring edge-triggered delivery: the Console observes this at most once
// per assertion.
func (p *PPU) PollNMI() bool {
	fired := p.nmiLine
	p.nmiLine = false
	return fired
}

func (p *PPU) renderingEnabled() bool {
	return p.mask&(maskShowBg|maskShowSprites) != 0
}

// Tick advances the PPU by exactly one dot, the finest granularity the
// hardware itself operates at.
func (p *PPU) Tick() {
	p.runCycle()

	p.dot++
	if p.dot > 340 {
		p.dot = 0
		p.scanline++
		if p.scanline > 260 {
			p.scanline = preRenderScanline
			p.frame++
			p.oddFrame = !p.oddFrame
		}
	}
}

func (p *PPU) runCycle() {
	switch {
	case p.scanline == preRenderScanline:
		p.preRenderCycle()
	case p.scanline >= 0 && p.scanline < visibleScanlines:
		p.visibleCycle()
	case p.scanline == vblankStartScanline && p.dot == 1:
		p.status |= statusVBlank
		if p.ctrl&ctrlNMIEnable != 0 {
			p.nmiLine = true
		}
	}

	// The pre-render scanline's dot 339/340 skip on odd frames when
	// rendering is enabled, shortening the frame by one dot.
	if p.scanline == preRenderScanline && p.dot == 339 && p.oddFrame && p.renderingEnabled() {
		p.dot = 340
	}
}

func (p *PPU) preRenderCycle() {
	if p.dot == 1 {
		p.status &^= statusVBlank | statusSprite0Hit | statusSpriteOverflow
	}
	if !p.renderingEnabled() {
		return
	}
	p.backgroundPipeline()
	if p.dot == 257 {
		p.copyHorizontal()
	}
	if p.dot >= 280 && p.dot <= 304 {
		p.copyVertical()
	}
	if p.dot == 257 {
		p.evaluateSprites()
	}
}

func (p *PPU) visibleCycle() {
	if p.renderingEnabled() {
		p.backgroundPipeline()
		if p.dot >= 1 && p.dot <= 256 {
			p.renderPixel()
		}
		if p.dot == 257 {
			p.copyHorizontal()
			p.evaluateSprites()
		}
	} else if p.dot >= 1 && p.dot <= 256 {
		p.renderBackdropPixel()
	}
}

// backgroundPipeline runs the fetch/shift machinery shared by visible and
// pre-render scanlines: nametable/attribute/pattern fetches on an 8-dot
// cadence, shifter reloads, and the coarse-X/fine-Y increments.
func (p *PPU) backgroundPipeline() {
	if (p.dot >= 1 && p.dot <= 256) || (p.dot >= 321 && p.dot <= 336) {
		p.shiftBackgroundRegisters()

		switch p.dot % 8 {
		case 1:
			p.reloadShifters()
			p.nametableByte = p.mem.Read(0x2000 | (p.v & 0x0FFF))
		case 3:
			address := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
			p.attributeByte = p.mem.Read(address)
		case 5:
			fineY := (p.v >> 12) & 0x7
			base := p.backgroundPatternBase()
			address := base + uint16(p.nametableByte)*16 + fineY
			p.patternLowByte = p.mem.Read(address)
		case 7:
			fineY := (p.v >> 12) & 0x7
			base := p.backgroundPatternBase()
			address := base + uint16(p.nametableByte)*16 + fineY + 8
			p.patternHiByte = p.mem.Read(address)
		case 0:
			p.incrementCoarseX()
		}
	}

	if p.dot == 256 {
		p.incrementFineY()
	}
	if p.dot == 337 || p.dot == 339 {
		p.mem.Read(0x2000 | (p.v & 0x0FFF))
	}
}

func (p *PPU) backgroundPatternBase() uint16 {
	if p.ctrl&ctrlBgPatternTable != 0 {
		return 0x1000
	}
	return 0x0000
}

func (p *PPU) spritePatternBase() uint16 {
	if p.ctrl&ctrlSpritePatternTable != 0 {
		return 0x1000
	}
	return 0x0000
}

func (p *PPU) reloadShifters() {
	p.bgShiftLo = (p.bgShiftLo & 0xFF00) | uint16(p.patternLowByte)
	p.bgShiftHi = (p.bgShiftHi & 0xFF00) | uint16(p.patternHiByte)

	quadrant := ((p.v >> 4) & 0x04) | (p.v & 0x02)
	bits := (p.attributeByte >> quadrant) & 0x03
	if bits&0x01 != 0 {
		p.atShiftLo = (p.atShiftLo & 0xFF00) | 0x00FF
	} else {
		p.atShiftLo = p.atShiftLo & 0xFF00
	}
	if bits&0x02 != 0 {
		p.atShiftHi = (p.atShiftHi & 0xFF00) | 0x00FF
	} else {
		p.atShiftHi = p.atShiftHi & 0xFF00
	}
}

func (p *PPU) shiftBackgroundRegisters() {
	p.bgShiftLo <<= 1
	p.bgShiftHi <<= 1
	p.atShiftLo <<= 1
	p.atShiftHi <<= 1
}

func (p *PPU) incrementCoarseX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementFineY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	coarseY := (p.v & 0x03E0) >> 5
	switch coarseY {
	case 29:
		coarseY = 0
		p.v ^= 0x0800
	case 31:
		coarseY = 0
	default:
		coarseY++
	}
	p.v = (p.v &^ 0x03E0) | (coarseY << 5)
}

func (p *PPU) copyHorizontal() {
	p.v = (p.v &^ 0x041F) | (p.t & 0x041F)
}

func (p *PPU) copyVertical() {
	p.v = (p.v &^ 0x7BE0) | (p.t & 0x7BE0)
}

// renderPixel produces the composited output pixel for the current dot on
// the active visible scanline, applying background/sprite priority and
// sprite-0-hit per the standard muxing rules.
func (p *PPU) renderPixel() {
	x := p.dot - 1
	y := p.scanline

	bgPixel, bgPalette := p.backgroundPixel()
	if p.mask&maskShowBg == 0 || (x < 8 && p.mask&maskShowBgLeft == 0) {
		bgPixel = 0
	}

	spritePixel, spritePalette, spritePriority, isSprite0 := p.spritePixelAt(x)
	if p.mask&maskShowSprites == 0 || (x < 8 && p.mask&maskShowSpritesLeft == 0) {
		spritePixel = 0
	}

	if isSprite0 && bgPixel != 0 && spritePixel != 0 && x != 255 {
		p.status |= statusSprite0Hit
	}

	var colorIndex uint16
	switch {
	case bgPixel == 0 && spritePixel == 0:
		colorIndex = 0
	case bgPixel == 0:
		colorIndex = 0x10 + uint16(spritePalette)*4 + uint16(spritePixel)
	case spritePixel == 0:
		colorIndex = uint16(bgPalette)*4 + uint16(bgPixel)
	case spritePriority == 0:
		colorIndex = 0x10 + uint16(spritePalette)*4 + uint16(spritePixel)
	default:
		colorIndex = uint16(bgPalette)*4 + uint16(bgPixel)
	}

	p.frameBuffer[y*screenWidth+x] = p.paletteColor(colorIndex)
}

func (p *PPU) renderBackdropPixel() {
	x := p.dot - 1
	y := p.scanline
	p.frameBuffer[y*screenWidth+x] = p.paletteColor(0)
}

func (p *PPU) backgroundPixel() (pixel, palette uint8) {
	mux := uint16(0x8000) >> p.x
	lo := uint8(0)
	hi := uint8(0)
	if p.bgShiftLo&mux != 0 {
		lo = 1
	}
	if p.bgShiftHi&mux != 0 {
		hi = 1
	}
	pixel = lo | (hi << 1)

	aloBit := uint8(0)
	ahiBit := uint8(0)
	if p.atShiftLo&mux != 0 {
		aloBit = 1
	}
	if p.atShiftHi&mux != 0 {
		ahiBit = 1
	}
	palette = aloBit | (ahiBit << 1)
	return pixel, palette
}

func (p *PPU) spritePixelAt(x int) (pixel, palette, priority uint8, isSprite0 bool) {
	for i := 0; i < p.spriteCount; i++ {
		s := &p.sprites[i]
		offset := x - int(s.x)
		if offset < 0 || offset > 7 {
			continue
		}
		flipH := s.attributes&0x40 != 0
		bit := offset
		if !flipH {
			bit = 7 - offset
		}
		lo := (s.patternLo >> uint(bit)) & 1
		hi := (s.patternHi >> uint(bit)) & 1
		value := lo | (hi << 1)
		if value == 0 {
			continue
		}
		return value, s.attributes & 0x03, (s.attributes >> 5) & 1, s.isSprite0
	}
	return 0, 0, 0, false
}

// evaluateSprites selects up to 8 sprites intersecting the NEXT scanline
// (the one that follows the current, per real hardware's one-line-ahead
// evaluation) and prefetches their pattern bytes.
func (p *PPU) evaluateSprites() {
	targetLine := p.scanline + 1
	height := 8
	if p.ctrl&ctrlSpriteSize != 0 {
		height = 16
	}

	count := 0
	p.spriteCount = 0
	for i := 0; i < 64 && count < 8; i++ {
		spriteY := int(p.oam[i*4+0])
		row := targetLine - spriteY - 1
		if row < 0 || row >= height {
			continue
		}

		tileIndex := p.oam[i*4+1]
		attributes := p.oam[i*4+2]
		spriteX := p.oam[i*4+3]

		flipV := attributes&0x80 != 0
		if flipV {
			row = height - 1 - row
		}

		var patternAddr uint16
		if height == 16 {
			table := uint16(tileIndex&0x01) * 0x1000
			tile := uint16(tileIndex &^ 0x01)
			if row >= 8 {
				tile++
				row -= 8
			}
			patternAddr = table + tile*16 + uint16(row)
		} else {
			patternAddr = p.spritePatternBase() + uint16(tileIndex)*16 + uint16(row)
		}

		p.sprites[count] = spriteSlot{
			x:          spriteX,
			patternLo:  p.mem.Read(patternAddr),
			patternHi:  p.mem.Read(patternAddr + 8),
			attributes: attributes,
			isSprite0:  i == 0,
		}
		count++
	}

	if count == 8 {
		for i := 8; i < 64; i++ {
			spriteY := int(p.oam[i*4+0])
			row := targetLine - spriteY - 1
			if row >= 0 && row < height {
				p.status |= statusSpriteOverflow
				break
			}
		}
	}

	p.spriteCount = count
}

func (p *PPU) paletteColor(index uint16) uint32 {
	address := uint16(0x3F00) + index
	entry := p.mem.Read(address) & 0x3F
	if p.mask&maskGrayscale != 0 {
		entry &= 0x30
	}
	return nesColorPalette[entry]
}
