package render

import (
	"time"

	"github.com/valerio/go-dmg/dmg/memory"
)

// keyTimeout is how long a key counts as held after its last event. Terminals
// report no key releases, only repeats, so it is a bit longer than the usual
// auto-repeat interval.
const keyTimeout = 100 * time.Millisecond

// Joypad receives button transitions.
type Joypad interface {
	Press(key memory.JoypadKey)
	Release(key memory.JoypadKey)
}

// keyTracker turns key events into press/release pairs by expiring keys that
// have not repeated within keyTimeout.
type keyTracker struct {
	seen map[memory.JoypadKey]time.Time
	held map[memory.JoypadKey]bool
}

func newKeyTracker() *keyTracker {
	return &keyTracker{
		seen: make(map[memory.JoypadKey]time.Time),
		held: make(map[memory.JoypadKey]bool),
	}
}

// hit records a key event. A new direction cancels the other directions, since a
// terminal only repeats the last key.
func (k *keyTracker) hit(key memory.JoypadKey, now time.Time) {
	if isDirection(key) {
		for d := memory.JoypadRight; d <= memory.JoypadDown; d++ {
			delete(k.seen, d)
		}
	}
	k.seen[key] = now
}

// update sends presses for newly seen keys and releases for expired ones.
func (k *keyTracker) update(now time.Time, pad Joypad) {
	for key, last := range k.seen {
		if now.Sub(last) >= keyTimeout {
			delete(k.seen, key)
			continue
		}
		if !k.held[key] {
			k.held[key] = true
			pad.Press(key)
		}
	}
	for key := range k.held {
		if _, ok := k.seen[key]; !ok {
			delete(k.held, key)
			pad.Release(key)
		}
	}
}
