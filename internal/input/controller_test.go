package input

import "testing"

func TestStrobeHighAlwaysReturnsAButton(t *testing.T) {
	var c Controller
	c.SetButtons(uint8(ButtonA | ButtonStart))
	c.Write(0x01) // strobe high
	for i := 0; i < 3; i++ {
		if got := c.Read(); got != 1 {
			t.Fatalf("read %d while strobed = %d, want 1 (A is set)", i, got)
		}
	}
}

func TestShiftOrderIsAFirstLSBFirst(t *testing.T) {
	var c Controller
	mask := uint8(ButtonA | ButtonSelect | ButtonRight)
	c.SetButtons(mask)
	c.Write(0x01)
	c.Write(0x00) // latch snapshot, strobe low

	want := []uint8{1, 0, 1, 0, 0, 0, 0, 1}
	for i, w := range want {
		got := c.Read()
		if got != w {
			t.Fatalf("bit %d = %d, want %d", i, got, w)
		}
	}
}

func TestReadsPastEighthReturnOpenBusHigh(t *testing.T) {
	var c Controller
	c.Write(0x01)
	c.Write(0x00)
	for i := 0; i < 8; i++ {
		c.Read()
	}
	if got := c.Read(); got != 1 {
		t.Fatalf("9th read = %d, want 1 (open-bus pull-up)", got)
	}
}
