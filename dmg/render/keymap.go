package render

import (
	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-dmg/dmg/memory"
)

// Action is something a key does in the terminal front-end.
type Action uint8

const (
	ActionNone Action = iota
	ActionButton
	ActionQuit
	ActionPause
	ActionStepFrame
	ActionSnapshot
	ActionToggleChannel
	ActionSoloChannel
	ActionLogLevelUp
	ActionLogLevelDown
)

// Binding is the meaning of one key. Button is used with ActionButton and
// Channel (1-4) with the channel actions.
type Binding struct {
	Action  Action
	Button  memory.JoypadKey
	Channel int
}

func button(k memory.JoypadKey) Binding { return Binding{Action: ActionButton, Button: k} }

// DefaultKeyMap binds key names, as returned by KeyName, to actions.
var DefaultKeyMap = map[string]Binding{
	"z":      button(memory.JoypadA),
	"x":      button(memory.JoypadB),
	"Enter":  button(memory.JoypadStart),
	"Tab":    button(memory.JoypadSelect),
	"Up":     button(memory.JoypadUp),
	"Down":   button(memory.JoypadDown),
	"Left":   button(memory.JoypadLeft),
	"Right":  button(memory.JoypadRight),
	"w":      button(memory.JoypadUp),
	"s":      button(memory.JoypadDown),
	"a":      button(memory.JoypadLeft),
	"d":      button(memory.JoypadRight),
	"Space":  {Action: ActionPause},
	"p":      {Action: ActionPause},
	"f":      {Action: ActionStepFrame},
	"F9":     {Action: ActionSnapshot},
	"Escape": {Action: ActionQuit},
	"q":      {Action: ActionQuit},
	"Ctrl-C": {Action: ActionQuit},
	"F1":     {Action: ActionToggleChannel, Channel: 1},
	"F2":     {Action: ActionToggleChannel, Channel: 2},
	"F3":     {Action: ActionToggleChannel, Channel: 3},
	"F4":     {Action: ActionToggleChannel, Channel: 4},
	"1":      {Action: ActionSoloChannel, Channel: 1},
	"2":      {Action: ActionSoloChannel, Channel: 2},
	"3":      {Action: ActionSoloChannel, Channel: 3},
	"4":      {Action: ActionSoloChannel, Channel: 4},
	"+":      {Action: ActionLogLevelUp},
	"=":      {Action: ActionLogLevelUp},
	"-":      {Action: ActionLogLevelDown},
}

var keyNames = map[tcell.Key]string{
	tcell.KeyEnter:  "Enter",
	tcell.KeyTab:    "Tab",
	tcell.KeyUp:     "Up",
	tcell.KeyDown:   "Down",
	tcell.KeyLeft:   "Left",
	tcell.KeyRight:  "Right",
	tcell.KeyEscape: "Escape",
	tcell.KeyCtrlC:  "Ctrl-C",
	tcell.KeyF1:     "F1",
	tcell.KeyF2:     "F2",
	tcell.KeyF3:     "F3",
	tcell.KeyF4:     "F4",
	tcell.KeyF9:     "F9",
}

// KeyName returns the key map name of a key event: the rune for printable keys,
// "Space" for the space bar and a fixed name for special keys.
func KeyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		if ev.Rune() == ' ' {
			return "Space"
		}
		return string(ev.Rune())
	}
	return keyNames[ev.Key()]
}

func isDirection(k memory.JoypadKey) bool {
	return k <= memory.JoypadDown
}
