package cpu

import "encoding/binary"

// WordsToBytes encodes instruction words big-endian, the way they sit in
// guest memory.
func WordsToBytes(words ...uint16) []byte {
	out := make([]byte, 0, len(words)*2)
	for _, w := range words {
		out = binary.BigEndian.AppendUint16(out, w)
	}
	return out
}

// BytesToWords splits guest bytes into instruction words. A trailing odd
// byte becomes the high byte of a final word.
func BytesToWords(b []byte) []uint16 {
	out := make([]uint16, (len(b)+1)/2)
	for i := range out {
		hi := uint16(b[2*i]) << 8
		if 2*i+1 < len(b) {
			hi |= uint16(b[2*i+1])
		}
		out[i] = hi
	}
	return out
}
