package audio

const (
	// SampleRate is the output rate of Fill, in Hz.
	SampleRate = 48000
	// ClockRate is the DMG master clock.
	ClockRate = 4194304
	// FrameCycles is the length of one video frame in clock cycles.
	FrameCycles = 70224
	// SamplesPerFrame is the number of stereo samples covering one video frame.
	SamplesPerFrame = SampleRate * FrameCycles / ClockRate

	// sequencerRate is the frame sequencer clock (length, sweep, envelope).
	sequencerRate = 512

	// waveRAMSize is the size of wave pattern RAM in bytes (32 nibbles)
	waveRAMSize = 16
	waveSamples = 32

	lfsrInitialValue = 0x7FFF

	// hipassFactor is the charge kept by the output capacitor each sample.
	hipassFactor = 0.996
)

// register offsets from addr.AudioStart
const (
	regNR10 = 0x00
	regNR11 = 0x01
	regNR12 = 0x02
	regNR13 = 0x03
	regNR14 = 0x04
	regNR21 = 0x06
	regNR22 = 0x07
	regNR23 = 0x08
	regNR24 = 0x09
	regNR30 = 0x0A
	regNR31 = 0x0B
	regNR32 = 0x0C
	regNR33 = 0x0D
	regNR34 = 0x0E
	regNR41 = 0x10
	regNR42 = 0x11
	regNR43 = 0x12
	regNR44 = 0x13
	regNR50 = 0x14
	regNR51 = 0x15
	regNR52 = 0x16
	regWave = 0x20

	registerCount = 0x30
)

// readMasks are ORed into register reads: write-only and unused bits read as 1.
var readMasks = [registerCount]uint8{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // unused, NR21-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // unused, NR41-NR44
	0x00, 0x00, 0x70, // NR50-NR52
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // unused
	// wave RAM reads back as written
}

// dutyPatterns are the 8 step waveforms of the pulse channels, bit 7 first.
var dutyPatterns = [4]uint8{
	0x01, // 12.5%
	0x81, // 25%
	0x87, // 50%
	0x7E, // 75%
}

// waveShifts maps the NR32 output level to a right shift; 4 mutes the channel.
var waveShifts = [4]uint8{4, 0, 1, 2}
