package orchestrator

import "sync"

// MaxPlayers is the number of controller ports forwarded to the engine.
const MaxPlayers = 2

// SharedInput holds controller state as button bitmasks written by the
// input goroutine and read by the emulation goroutine.
type SharedInput struct {
	mu      sync.Mutex
	buttons [MaxPlayers]uint32
}

// SetButtons updates the bitmask for a player. Out of range players are
// ignored.
func (si *SharedInput) SetButtons(player int, buttons uint32) {
	if player < 0 || player >= MaxPlayers {
		return
	}
	si.mu.Lock()
	si.buttons[player] = buttons
	si.mu.Unlock()
}

// Read returns the current bitmasks for all players.
func (si *SharedInput) Read() [MaxPlayers]uint32 {
	si.mu.Lock()
	result := si.buttons
	si.mu.Unlock()
	return result
}
