package signalcore

// builtinProgram is the Z80 program run when no program file is given. It
// programs the PSG for a 440Hz tone on channel 0, silences the rest, then
// loops forever writing an incrementing scroll value to the video port.
//
//	0000  F3        DI
//	0001  31 F0 FF  LD   SP,$FFF0
//	0004  21 1D 00  LD   HL,psgInit
//	0007  06 06     LD   B,6
//	0009  0E 7F     LD   C,PortPSG
//	000B  ED B3     OTIR
//	000D  16 00     LD   D,0
//	loop:
//	000F  7A        LD   A,D
//	0010  D3 02     OUT  (PortScroll),A
//	0012  14        INC  D
//	0013  01 00 04  LD   BC,$0400
//	delay:
//	0016  0B        DEC  BC
//	0017  78        LD   A,B
//	0018  B1        OR   C
//	0019  20 FB     JR   NZ,delay
//	001B  18 F2     JR   loop
//	psgInit:
//	001D  8E 0F     tone 0 period $0FE
//	001F  94        tone 0 attenuation 4
//	0020  BF DF FF  silence tone 1, tone 2 and noise
var builtinProgram = []byte{
	0xF3,
	0x31, 0xF0, 0xFF,
	0x21, 0x1D, 0x00,
	0x06, 0x06,
	0x0E, PortPSG,
	0xED, 0xB3,
	0x16, 0x00,
	0x7A,
	0xD3, PortScroll,
	0x14,
	0x01, 0x00, 0x04,
	0x0B,
	0x78,
	0xB1,
	0x20, 0xFB,
	0x18, 0xF2,
	0x8E, 0x0F,
	0x94,
	0xBF, 0xDF, 0xFF,
}
