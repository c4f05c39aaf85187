package window

import (
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	emucore "github.com/user-none/eblitui/api"
)

// InputSink receives controller state from the window.
type InputSink interface {
	SetButtons(player int, buttons uint32)
}

// keyNames maps the key names used in emucore.Button.DefaultKey.
var keyNames = map[string]ebiten.Key{
	"a": ebiten.KeyA, "b": ebiten.KeyB, "c": ebiten.KeyC, "d": ebiten.KeyD,
	"e": ebiten.KeyE, "f": ebiten.KeyF, "g": ebiten.KeyG, "h": ebiten.KeyH,
	"i": ebiten.KeyI, "j": ebiten.KeyJ, "k": ebiten.KeyK, "l": ebiten.KeyL,
	"m": ebiten.KeyM, "n": ebiten.KeyN, "o": ebiten.KeyO, "p": ebiten.KeyP,
	"q": ebiten.KeyQ, "r": ebiten.KeyR, "s": ebiten.KeyS, "t": ebiten.KeyT,
	"u": ebiten.KeyU, "v": ebiten.KeyV, "w": ebiten.KeyW, "x": ebiten.KeyX,
	"y": ebiten.KeyY, "z": ebiten.KeyZ,

	"enter":     ebiten.KeyEnter,
	"space":     ebiten.KeySpace,
	"shift":     ebiten.KeyShift,
	"tab":       ebiten.KeyTab,
	"backspace": ebiten.KeyBackspace,
}

// padNames maps the gamepad names used in emucore.Button.DefaultPad.
var padNames = map[string]ebiten.StandardGamepadButton{
	"a":      ebiten.StandardGamepadButtonRightBottom,
	"b":      ebiten.StandardGamepadButtonRightRight,
	"x":      ebiten.StandardGamepadButtonRightLeft,
	"y":      ebiten.StandardGamepadButtonRightTop,
	"l":      ebiten.StandardGamepadButtonFrontTopLeft,
	"r":      ebiten.StandardGamepadButtonFrontTopRight,
	"start":  ebiten.StandardGamepadButtonCenterRight,
	"select": ebiten.StandardGamepadButtonCenterLeft,
}

type binding struct {
	bit  uint32
	key  ebiten.Key
	pad  ebiten.StandardGamepadButton
	hasK bool
	hasP bool
}

// Keymap turns keyboard and gamepad state into a button bitmask.
type Keymap struct {
	buttons []binding
}

// NewKeymap builds a keymap for the system's buttons. The d-pad is always
// WASD and the arrow keys.
func NewKeymap(buttons []emucore.Button) *Keymap {
	km := &Keymap{}
	for _, b := range buttons {
		if b.ID < 0 || b.ID > 31 {
			continue
		}
		bind := binding{bit: 1 << uint(b.ID)}
		bind.key, bind.hasK = keyNames[strings.ToLower(b.DefaultKey)]
		bind.pad, bind.hasP = padNames[strings.ToLower(b.DefaultPad)]
		if bind.hasK || bind.hasP {
			km.buttons = append(km.buttons, bind)
		}
	}
	return km
}

// Poll reads keyboard and gamepad input. Must be called from Update.
func (km *Keymap) Poll() uint32 {
	up := ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp)
	down := ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown)
	left := ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft)
	right := ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight)

	var mask uint32
	for _, b := range km.buttons {
		if b.hasK && ebiten.IsKeyPressed(b.key) {
			mask |= b.bit
		}
	}

	for _, id := range ebiten.AppendGamepadIDs(nil) {
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}

		up = up || ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftTop)
		down = down || ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftBottom)
		left = left || ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftLeft)
		right = right || ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftRight)

		for _, b := range km.buttons {
			if b.hasP && ebiten.IsStandardGamepadButtonPressed(id, b.pad) {
				mask |= b.bit
			}
		}

		// Left analog stick
		const deadzone = 0.5
		axisX := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
		axisY := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
		left = left || axisX < -deadzone
		right = right || axisX > deadzone
		up = up || axisY < -deadzone
		down = down || axisY > deadzone
	}

	return mask | dpad(up, down, left, right)
}

func dpad(up, down, left, right bool) uint32 {
	var mask uint32
	if up {
		mask |= 1 << emucore.ButtonUp
	}
	if down {
		mask |= 1 << emucore.ButtonDown
	}
	if left {
		mask |= 1 << emucore.ButtonLeft
	}
	if right {
		mask |= 1 << emucore.ButtonRight
	}
	return mask
}
