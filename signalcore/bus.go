package signalcore

import "github.com/user-none/go-chip-sn76489"

// I/O ports.
const (
	PortScroll = 0x02 // write: horizontal scroll of the colour bars
	PortBank   = 0x03 // write: bar palette (0 colour, 1 grey)
	PortPSG    = 0x7F // write: SN76489 data
	PortInput  = 0xDC // read: player 1 buttons, active low
)

// Bus adapts the RAM and I/O ports into the go-chip-z80 Bus interface.
type Bus struct {
	ram [0x10000]uint8
	psg *sn76489.SN76489

	scroll  uint8
	palette uint8
	buttons uint32
}

// NewBus creates a bus with program loaded at address 0.
func NewBus(program []byte, psg *sn76489.SN76489) *Bus {
	b := &Bus{psg: psg}
	copy(b.ram[:], program)
	return b
}

func (b *Bus) Fetch(addr uint16) uint8      { return b.ram[addr] }
func (b *Bus) Read(addr uint16) uint8       { return b.ram[addr] }
func (b *Bus) Write(addr uint16, val uint8) { b.ram[addr] = val }

func (b *Bus) In(port uint16) uint8 {
	switch uint8(port) {
	case PortInput:
		return ^uint8(b.buttons)
	}
	return 0xFF
}

func (b *Bus) Out(port uint16, val uint8) {
	switch uint8(port) {
	case PortScroll:
		b.scroll = val
	case PortBank:
		b.palette = val & 1
	case PortPSG:
		if b.psg != nil {
			b.psg.Write(val)
		}
	}
}
