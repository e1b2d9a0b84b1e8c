package oto

import "math"

// FloatBufferTo16BitLE converts a []float32 audio buffer to 16-bit
// little-endian bytes, appending to dst and reusing its capacity.
func FloatBufferTo16BitLE(buffer []float32, dst []byte) []byte {
	for _, v := range buffer {
		var uv int16
		if v < -1.0 {
			uv = -math.MaxInt16
		} else if v > 1.0 {
			uv = math.MaxInt16
		} else {
			uv = int16(v * math.MaxInt16)
		}
		dst = append(dst, byte(uv), byte(uint16(uv)>>8))
	}
	return dst
}
