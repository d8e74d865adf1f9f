package transcriber

import (
	"encoding/binary"
	"math"
)

// resample16to24 upsamples 16 kHz mono PCM16 to 24 kHz by linear interpolation.
func resample16to24(input []byte) []byte {
	n := len(input) / 2
	if n == 0 {
		return input
	}

	sample := func(i int) float64 {
		if i >= n {
			i = n - 1
		}
		return float64(int16(binary.LittleEndian.Uint16(input[i*2:])))
	}

	outN := n * 3 / 2
	output := make([]byte, outN*2)
	for i := 0; i < outN; i++ {
		pos := float64(i) * 2 / 3
		idx := int(pos)
		frac := pos - float64(idx)
		v := math.Round(sample(idx)*(1-frac) + sample(idx+1)*frac)
		binary.LittleEndian.PutUint16(output[i*2:], uint16(int16(v)))
	}
	return output
}
