package display

// PackRGB565 converts an 8-bit colour to 5-6-5.
func PackRGB565(r, g, b byte) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// UnpackRGB565 expands a 5-6-5 colour to 8 bits per channel, replicating
// the high bits into the low ones so white stays white.
func UnpackRGB565(v uint16) (r, g, b byte) {
	r5 := byte(v>>11) & 0x1F
	g6 := byte(v>>5) & 0x3F
	b5 := byte(v) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// RGBAToRGB565 converts RGBA pixels in src to little-endian RGB565 in dst
// and returns the number of pixels converted, limited by whichever slice
// runs out first.
func RGBAToRGB565(dst, src []byte) int {
	n := len(src) / 4
	if m := len(dst) / 2; m < n {
		n = m
	}
	for i := 0; i < n; i++ {
		p := src[i*4:]
		v := PackRGB565(p[0], p[1], p[2])
		dst[i*2] = byte(v)
		dst[i*2+1] = byte(v >> 8)
	}
	return n
}

// RGB565ToRGBA converts little-endian RGB565 pixels in src to opaque RGBA
// in dst and returns the number of pixels converted.
func RGB565ToRGBA(dst, src []byte) int {
	n := len(src) / 2
	if m := len(dst) / 4; m < n {
		n = m
	}
	for i := 0; i < n; i++ {
		r, g, b := UnpackRGB565(uint16(src[i*2]) | uint16(src[i*2+1])<<8)
		p := dst[i*4:]
		p[0], p[1], p[2], p[3] = r, g, b, 0xFF
	}
	return n
}
