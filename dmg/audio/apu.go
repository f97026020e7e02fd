// Package audio implements the four channel synthesizer. It is fed register
// writes by the memory bus and pulled for samples by the host, possibly from
// another goroutine.
package audio

import (
	"sync"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// Provider is the host side of the synthesizer.
type Provider interface {
	// GetSamples returns count interleaved stereo values (count/2 frames).
	GetSamples(count int) []int16

	ToggleChannel(channel int)
	SoloChannel(channel int)
	ChannelStatus() (ch1, ch2, ch3, ch4 bool)
}

var _ Provider = (*APU)(nil)

// APU owns the audio registers and channel state. Register access and sample
// generation are serialized by mu, so the bus and an audio callback can run on
// different goroutines.
type APU struct {
	mu sync.Mutex

	enabled   bool // NR52 bit 7
	registers [registerCount]uint8
	channels  [4]channel

	seqStep int
	seqAcc  float64

	capLeft, capRight float64
}

// New creates an APU with the post-boot register values.
func New() *APU {
	a := &APU{}
	a.Reset()
	return a
}

// Reset powers the APU on with the post-boot register values.
func (a *APU) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.channels {
		a.channels[i] = channel{muted: a.channels[i].muted}
	}
	a.channels[3].lfsr = lfsrInitialValue

	a.enabled = true
	a.seqStep = 0
	a.seqAcc = 0
	a.capLeft, a.capRight = 0, 0
	a.registers = [registerCount]uint8{}
	a.initRegisters()
}

// initRegisters sets the values left behind by the boot ROM.
// Reference: https://gbdev.io/pandocs/Power_Up_Sequence.html#hardware-registers
func (a *APU) initRegisters() {
	r := &a.registers
	r[regNR10] = 0x80
	r[regNR11] = 0xBF
	r[regNR12] = 0xF3
	r[regNR14] = 0xBF
	r[regNR21] = 0x3F
	r[regNR22] = 0x00
	r[regNR24] = 0xBF
	r[regNR30] = 0x7F
	r[regNR31] = 0xFF
	r[regNR32] = 0x9F
	r[regNR33] = 0xBF
	r[regNR34] = 0xBF
	r[regNR41] = 0xFF
	r[regNR42] = 0x00
	r[regNR43] = 0x00
	r[regNR44] = 0xBF
	r[regNR50] = 0x77
	r[regNR51] = 0xF3
	r[regNR52] = 0xF1

	// channel 1 is still sounding the boot chime
	ch := &a.channels[0]
	ch.enabled = true
	ch.dac = true
	ch.loadEnvelope(r[regNR12])
	ch.volume = 0
}

// ReadRegister reads an audio register, with unused bits set.
func (a *APU) ReadRegister(address uint16) uint8 {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return 0xFF
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	index := address - addr.AudioStart
	if index == regNR52 {
		status := a.registers[regNR52] & 0x80
		for i := range a.channels {
			if a.channels[i].enabled {
				status |= 1 << i
			}
		}
		return status | readMasks[regNR52]
	}
	return a.registers[index] | readMasks[index]
}

// WriteRegister writes an audio register. While powered off only NR52 and wave
// RAM accept writes.
func (a *APU) WriteRegister(address uint16, value uint8) {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	index := int(address - addr.AudioStart)

	switch {
	case index >= regWave:
		a.registers[index] = value
		return
	case index == regNR52:
		a.setPower(bit.IsSet(7, value))
		return
	case !a.enabled:
		return
	}

	a.registers[index] = value
	a.applyRegister(index, value)
}

func (a *APU) setPower(on bool) {
	if on == a.enabled {
		return
	}
	a.enabled = on
	if on {
		a.registers[regNR52] = 0x80
		a.seqStep = 0
		a.seqAcc = 0
		return
	}

	for i := 0; i < regNR52; i++ {
		a.registers[i] = 0
	}
	a.registers[regNR52] = 0
	for i := range a.channels {
		muted := a.channels[i].muted
		a.channels[i] = channel{muted: muted, lfsr: lfsrInitialValue}
	}
}

// applyRegister maps a register write onto channel state.
func (a *APU) applyRegister(index int, value uint8) {
	ch1, ch2, ch3, ch4 := &a.channels[0], &a.channels[1], &a.channels[2], &a.channels[3]

	switch index {
	case regNR11:
		ch1.length = 64 - int(value&0x3F)
	case regNR12:
		a.setDAC(ch1, value&0xF8 != 0)
	case regNR13:
		ch1.freq = frequencyLow(ch1.freq, value)
	case regNR14:
		ch1.freq = frequencyHigh(ch1.freq, value)
		ch1.lengthEnabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(0, 64)
			a.triggerSweep()
		}

	case regNR21:
		ch2.length = 64 - int(value&0x3F)
	case regNR22:
		a.setDAC(ch2, value&0xF8 != 0)
	case regNR23:
		ch2.freq = frequencyLow(ch2.freq, value)
	case regNR24:
		ch2.freq = frequencyHigh(ch2.freq, value)
		ch2.lengthEnabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(1, 64)
		}

	case regNR30:
		a.setDAC(ch3, bit.IsSet(7, value))
	case regNR31:
		ch3.length = 256 - int(value)
	case regNR33:
		ch3.freq = frequencyLow(ch3.freq, value)
	case regNR34:
		ch3.freq = frequencyHigh(ch3.freq, value)
		ch3.lengthEnabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(2, 256)
		}

	case regNR41:
		ch4.length = 64 - int(value&0x3F)
	case regNR42:
		a.setDAC(ch4, value&0xF8 != 0)
	case regNR44:
		ch4.lengthEnabled = bit.IsSet(6, value)
		if bit.IsSet(7, value) {
			a.trigger(3, 64)
			ch4.lfsr = lfsrInitialValue
			ch4.lfsrAcc = 0
		}
	}
}

// setDAC powers a channel's DAC; turning it off silences the channel.
func (a *APU) setDAC(c *channel, on bool) {
	c.dac = on
	if !on {
		c.enabled = false
	}
}

var envelopeRegs = [4]int{regNR12, regNR22, -1, regNR42}

func (a *APU) trigger(i int, maxLength int) {
	c := &a.channels[i]
	if c.length == 0 {
		c.length = maxLength
	}
	c.phase = 0
	if reg := envelopeRegs[i]; reg >= 0 {
		c.loadEnvelope(a.registers[reg])
	}
	c.enabled = c.dac
}

func (a *APU) sweepParams() (period uint8, negate bool, shift uint8) {
	nr10 := a.registers[regNR10]
	return (nr10 >> 4) & 0x07, nr10&0x08 != 0, nr10 & 0x07
}

func (a *APU) triggerSweep() {
	c := &a.channels[0]
	period, _, shift := a.sweepParams()

	c.sweepFreq = c.freq
	c.sweepTimer = period
	if c.sweepTimer == 0 {
		c.sweepTimer = 8
	}
	c.sweepEnabled = period != 0 || shift != 0
	if shift != 0 && a.nextSweep() > 2047 {
		c.enabled = false
	}
}

func (a *APU) nextSweep() uint16 {
	c := &a.channels[0]
	_, negate, shift := a.sweepParams()
	delta := c.sweepFreq >> shift
	if negate {
		return c.sweepFreq - delta
	}
	return c.sweepFreq + delta
}

func (a *APU) clockSweep() {
	c := &a.channels[0]
	if c.sweepTimer > 0 {
		c.sweepTimer--
	}
	if c.sweepTimer != 0 {
		return
	}

	period, _, shift := a.sweepParams()
	c.sweepTimer = period
	if c.sweepTimer == 0 {
		c.sweepTimer = 8
	}
	if !c.sweepEnabled || period == 0 {
		return
	}

	next := a.nextSweep()
	if next > 2047 {
		c.enabled = false
		return
	}
	if shift != 0 {
		c.sweepFreq = next
		c.freq = next
		a.registers[regNR13] = bit.Low(next)
		a.registers[regNR14] = a.registers[regNR14]&^0x07 | bit.High(next)&0x07
	}
}

// clockSequencer runs one 512 Hz frame sequencer step.
//
//	Step   Length  Sweep  Envelope
//	0      Clock   -      -
//	2      Clock   Clock  -
//	4      Clock   -      -
//	6      Clock   Clock  -
//	7      -       -      Clock
func (a *APU) clockSequencer() {
	switch a.seqStep {
	case 0, 4:
		a.clockLengths()
	case 2, 6:
		a.clockLengths()
		a.clockSweep()
	case 7:
		a.channels[0].clockEnvelope()
		a.channels[1].clockEnvelope()
		a.channels[3].clockEnvelope()
	}
	a.seqStep = (a.seqStep + 1) & 7
}

func (a *APU) clockLengths() {
	for i := range a.channels {
		a.channels[i].clockLength()
	}
}

func frequencyLow(current uint16, low uint8) uint16 {
	return current&0x700 | uint16(low)
}

func frequencyHigh(current uint16, high uint8) uint16 {
	return current&0xFF | uint16(high&0x07)<<8
}

// Fill generates len(buf)/2 interleaved stereo samples at SampleRate.
func (a *APU) Fill(buf []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = a.sample()
	}
}

// GetSamples returns a freshly generated buffer of count values.
func (a *APU) GetSamples(count int) []int16 {
	buf := make([]int16, count)
	a.Fill(buf)
	return buf
}

func (a *APU) sample() (int16, int16) {
	if !a.enabled {
		return 0, 0
	}

	a.seqAcc += float64(sequencerRate) / SampleRate
	for a.seqAcc >= 1 {
		a.seqAcc--
		a.clockSequencer()
	}

	r := &a.registers
	out := [4]float64{
		a.channels[0].pulse(r[regNR11] >> 6),
		a.channels[1].pulse(r[regNR21] >> 6),
		a.channels[2].wave(r[regWave:regWave+waveRAMSize], r[regNR32]>>5),
		a.channels[3].noise(r[regNR43]),
	}

	var left, right float64
	panning := r[regNR51]
	for i, v := range out {
		if bit.IsSet(uint8(i+4), panning) {
			left += v
		}
		if bit.IsSet(uint8(i), panning) {
			right += v
		}
	}

	left *= float64((r[regNR50]>>4)&0x07+1) / 8 / 4
	right *= float64(r[regNR50]&0x07+1) / 8 / 4

	left = hipass(&a.capLeft, left)
	right = hipass(&a.capRight, right)

	return toPCM(left), toPCM(right)
}

// hipass removes the DC offset the way the hardware's output capacitor does.
func hipass(capacitor *float64, in float64) float64 {
	out := in - *capacitor
	*capacitor = in - out*hipassFactor
	return out
}

func toPCM(v float64) int16 {
	switch {
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int16(v * 32767)
}

// MuteChannel mutes or unmutes channel 1-4.
func (a *APU) MuteChannel(channel int, muted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if channel >= 1 && channel <= 4 {
		a.channels[channel-1].muted = muted
	}
}

// ToggleChannel flips the mute state of channel 1-4.
func (a *APU) ToggleChannel(channel int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if channel >= 1 && channel <= 4 {
		a.channels[channel-1].muted = !a.channels[channel-1].muted
	}
}

// SoloChannel mutes all channels except the specified one
func (a *APU) SoloChannel(channel int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.channels {
		a.channels[i].muted = i != channel-1
	}
}

// ChannelStatus reports which channels are both playing and audible.
func (a *APU) ChannelStatus() (ch1, ch2, ch3, ch4 bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	audible := func(i int) bool { return a.channels[i].enabled && !a.channels[i].muted }
	return audible(0), audible(1), audible(2), audible(3)
}

// Volumes returns the current envelope volume of each channel.
func (a *APU) Volumes() (ch1, ch2, ch3, ch4 uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.channels[0].volume, a.channels[1].volume, a.channels[2].volume, a.channels[3].volume
}
