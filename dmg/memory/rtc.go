package memory

import "time"

// Clock supplies wall-clock time to the RTC.
type Clock interface {
	Now() time.Time
}

type systemClockFunc func() time.Time

func (s systemClockFunc) Now() time.Time {
	return s()
}

// SystemClock reads time.Now.
var SystemClock Clock = systemClockFunc(time.Now)

// RTC register indices as selected through RAM banks 0x08-0x0C.
const (
	RTCSeconds = iota
	RTCMinutes
	RTCHours
	RTCDayLow
	RTCDayHigh
)

// Day-high flag bits.
const (
	rtcDayBit8  uint8 = 0x01
	rtcHalt     uint8 = 0x40
	rtcDayCarry uint8 = 0x80
)

// RTC is the MBC3 real time clock: seconds, minutes, hours and a 9 bit day counter
// with halt and carry flags.
type RTC struct {
	Regs [5]uint8

	last time.Time
}

// Register returns a clock register, or 0xFF for an index outside the clock.
func (r *RTC) Register(index uint8) uint8 {
	if int(index) >= len(r.Regs) {
		return 0xFF
	}
	return r.Regs[index]
}

// SetRegister writes a clock register. Out of range indices are ignored.
func (r *RTC) SetRegister(index uint8, value uint8) {
	if int(index) >= len(r.Regs) {
		return
	}
	r.Regs[index] = value
}

// Halted reports whether the halt flag stops the clock.
func (r *RTC) Halted() bool {
	return r.Regs[RTCDayHigh]&rtcHalt != 0
}

// Tick advances the clock by one second unless it is halted.
// On day counter overflow the carry flag is set and stays set.
func (r *RTC) Tick() {
	if r.Halted() {
		return
	}

	r.Regs[RTCSeconds]++
	if r.Regs[RTCSeconds] != 60 {
		return
	}
	r.Regs[RTCSeconds] = 0

	r.Regs[RTCMinutes]++
	if r.Regs[RTCMinutes] != 60 {
		return
	}
	r.Regs[RTCMinutes] = 0

	r.Regs[RTCHours]++
	if r.Regs[RTCHours] != 24 {
		return
	}
	r.Regs[RTCHours] = 0

	r.Regs[RTCDayLow]++
	if r.Regs[RTCDayLow] != 0 {
		return
	}
	if r.Regs[RTCDayHigh]&rtcDayBit8 != 0 {
		r.Regs[RTCDayHigh] |= rtcDayCarry
	}
	r.Regs[RTCDayHigh] ^= rtcDayBit8
}

// SetTime loads the registers from t, using the day of the year as day counter.
func (r *RTC) SetTime(t time.Time) {
	yday := t.YearDay() - 1
	r.Regs[RTCSeconds] = uint8(t.Second())
	r.Regs[RTCMinutes] = uint8(t.Minute())
	r.Regs[RTCHours] = uint8(t.Hour())
	r.Regs[RTCDayLow] = uint8(yday & 0xFF)
	r.Regs[RTCDayHigh] = uint8(yday >> 8)
	r.last = t
}

// Restore loads stored registers that were current at time at. The next Sync
// catches up on everything since then. A zero at restarts the count from now.
func (r *RTC) Restore(regs [5]uint8, at, now time.Time) {
	r.Regs = regs
	if at.IsZero() || at.After(now) {
		at = now
	}
	r.last = at
}

// Synced is the wall-clock time the registers correspond to, up to the last
// whole second applied.
func (r *RTC) Synced() time.Time {
	return r.last
}

// Sync ticks once for every whole second elapsed since the previous Sync or SetTime
// and returns the number of ticks applied.
func (r *RTC) Sync(now time.Time) int {
	if r.last.IsZero() {
		r.last = now
		return 0
	}

	elapsed := int(now.Sub(r.last) / time.Second)
	if elapsed <= 0 {
		return 0
	}
	for range elapsed {
		r.Tick()
	}
	r.last = r.last.Add(time.Duration(elapsed) * time.Second)
	return elapsed
}
