package audio

import "math"

// channel holds the state of one of the four generators.
type channel struct {
	enabled bool
	dac     bool
	muted   bool

	volume uint8
	freq   uint16
	phase  float64

	length        int
	lengthEnabled bool

	envPeriod uint8
	envTimer  uint8
	envUp     bool

	// channel 1 only
	sweepTimer   uint8
	sweepFreq    uint16
	sweepEnabled bool

	// channel 4 only
	lfsr    uint16
	lfsrAcc float64
}

func (c *channel) clockLength() {
	if c.lengthEnabled && c.length > 0 {
		c.length--
		if c.length == 0 {
			c.enabled = false
		}
	}
}

func (c *channel) clockEnvelope() {
	if c.envPeriod == 0 {
		return
	}
	if c.envTimer > 0 {
		c.envTimer--
	}
	if c.envTimer != 0 {
		return
	}
	c.envTimer = c.envPeriod

	if c.envUp && c.volume < 15 {
		c.volume++
	} else if !c.envUp && c.volume > 0 {
		c.volume--
	}
}

// loadEnvelope applies an NRx2 value on trigger.
func (c *channel) loadEnvelope(nrx2 uint8) {
	c.volume = nrx2 >> 4
	c.envUp = nrx2&0x08 != 0
	c.envPeriod = nrx2 & 0x07
	c.envTimer = c.envPeriod
}

// advance moves the waveform phase by one output sample at hz.
func (c *channel) advance(hz float64) {
	c.phase += hz / SampleRate
	c.phase -= math.Floor(c.phase)
}

func (c *channel) silent() bool {
	return !c.enabled || !c.dac || c.muted
}

// pulse returns the channel 1/2 output in [-1, 1].
func (c *channel) pulse(duty uint8) float64 {
	c.advance(131072 / float64(2048-int(c.freq)))
	if c.silent() {
		return 0
	}

	step := uint(c.phase * 8)
	level := float64(c.volume) / 15
	if dutyPatterns[duty&3]>>(7-step)&1 == 1 {
		return level
	}
	return -level
}

// wave returns the channel 3 output in [-1, 1].
func (c *channel) wave(ram []uint8, level uint8) float64 {
	c.advance(65536 / float64(2048-int(c.freq)))
	shift := waveShifts[level&3]
	if c.silent() || shift == 4 {
		return 0
	}

	pos := int(c.phase * waveSamples)
	sample := ram[pos/2]
	if pos&1 == 0 {
		sample >>= 4
	}
	sample = (sample & 0x0F) >> shift

	return float64(sample)/7.5 - 1
}

// noise returns the channel 4 output in [-1, 1]. nr43 selects the LFSR clock
// and width.
func (c *channel) noise(nr43 uint8) float64 {
	divisor := float64(nr43 & 0x07)
	if divisor == 0 {
		divisor = 0.5
	}
	hz := 262144 / (divisor * float64(uint32(1)<<(nr43>>4)))

	c.lfsrAcc += hz / SampleRate
	for c.lfsrAcc >= 1 {
		c.lfsrAcc--
		feedback := (c.lfsr ^ c.lfsr>>1) & 1
		c.lfsr = c.lfsr>>1 | feedback<<14
		if nr43&0x08 != 0 {
			c.lfsr = c.lfsr&^0x40 | feedback<<6
		}
	}

	if c.silent() {
		return 0
	}
	level := float64(c.volume) / 15
	if c.lfsr&1 == 0 {
		return level
	}
	return -level
}
