package memory

import "github.com/valerio/go-dmg/dmg/bit"

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

func (k JoypadKey) String() string {
	switch k {
	case JoypadRight:
		return "right"
	case JoypadLeft:
		return "left"
	case JoypadUp:
		return "up"
	case JoypadDown:
		return "down"
	case JoypadA:
		return "a"
	case JoypadB:
		return "b"
	case JoypadSelect:
		return "select"
	case JoypadStart:
		return "start"
	}
	return "?"
}

// maskBit is the key's bit in the joypad mask: buttons in the low nibble, directions
// in the high nibble.
func (k JoypadKey) maskBit() uint8 {
	if k >= JoypadA {
		return uint8(k - JoypadA)
	}
	return uint8(k) + 4
}

// Joypad holds the active-low key mask (bit=0 means pressed):
//
//	bit 0-3: A, B, Select, Start
//	bit 4-7: Right, Left, Up, Down
type Joypad struct {
	mask uint8
}

// NewJoypad returns a joypad with every key released.
func NewJoypad() *Joypad {
	return &Joypad{mask: 0xFF}
}

// Mask returns the raw active-low key mask.
func (j *Joypad) Mask() uint8 {
	return j.mask
}

// SetMask replaces the key mask and reports whether any key went from released to
// pressed.
func (j *Joypad) SetMask(mask uint8) bool {
	pressed := j.mask &^ mask
	j.mask = mask
	return pressed != 0
}

// Press marks key as pressed and reports whether it was previously released.
func (j *Joypad) Press(key JoypadKey) bool {
	return j.SetMask(bit.Reset(key.maskBit(), j.mask))
}

// Release marks key as released.
func (j *Joypad) Release(key JoypadKey) {
	j.SetMask(bit.Set(key.maskBit(), j.mask))
}

// Read computes P1 from its selection bits.
//
// In real hw, P1 is just a selector (bits 4-5) that controls which set of keys the
// low bits (0-3) are mapped to:
//   - if bit 4 is clear, bits 0-3 are the 4 d-pad directions
//   - if bit 5 is clear, bits 0-3 are A, B, Select, Start
//   - if both are clear, hw does an AND of both sets
//   - if neither is clear, bits 0-3 read as 0x0F
//
// Bits 6-7 are unused and always read as 1.
func (j *Joypad) Read(p1 uint8) uint8 {
	result := uint8(0xC0) | p1&0x30

	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && selectDpad:
		result |= j.mask & (j.mask >> 4) & 0x0F
	case selectButtons:
		result |= j.mask & 0x0F
	case selectDpad:
		result |= j.mask >> 4
	default:
		result |= 0x0F
	}
	return result
}
