package fr32

import (
	"github.com/filecoin-project/go-state-types/abi"
)

// Every 32-byte word of a padded buffer carries 254 data bits, so each
// 127-byte unpadded chunk expands to exactly four words.
const (
	UnpaddedChunk = 127
	PaddedChunk   = 128

	wordBits = 254
)

// Pad expands in (a multiple of 127 bytes) into out (len(in)/127*128 bytes).
func Pad(in, out []byte) {
	chunks := len(out) / PaddedChunk
	for c := 0; c < chunks; c++ {
		padChunk(in[c*UnpaddedChunk:(c+1)*UnpaddedChunk], out[c*PaddedChunk:(c+1)*PaddedChunk])
	}
}

// Unpad is the inverse of Pad. len(out) must be a multiple of 127.
func Unpad(in, out []byte) {
	chunks := len(in) / PaddedChunk
	for c := 0; c < chunks; c++ {
		unpadChunk(in[c*PaddedChunk:(c+1)*PaddedChunk], out[c*UnpaddedChunk:(c+1)*UnpaddedChunk])
	}
}

func padChunk(in, out []byte) {
	_ = in[126]
	_ = out[127]

	copy(out[:31], in[:31])

	t := in[31] >> 6
	out[31] = in[31] & 0x3f
	var v byte

	for i := 32; i < 64; i++ {
		v = in[i]
		out[i] = (v << 2) | t
		t = v >> 6
	}

	t = v >> 4
	out[63] &= 0x3f

	for i := 64; i < 96; i++ {
		v = in[i]
		out[i] = (v << 4) | t
		t = v >> 4
	}

	t = v >> 2
	out[95] &= 0x3f

	for i := 96; i < 127; i++ {
		v = in[i]
		out[i] = (v << 6) | t
		t = v >> 2
	}

	out[127] = t & 0x3f
}

func unpadChunk(in, out []byte) {
	_ = in[127]
	_ = out[126]

	copy(out[:31], in[:31])
	out[31] = in[31] | (in[32] << 6)

	for i := 32; i < 63; i++ {
		out[i] = (in[i] >> 2) | (in[i+1] << 6)
	}
	out[63] = ((in[63] >> 2) & 0x0f) | (in[64] << 4)

	for i := 64; i < 95; i++ {
		out[i] = (in[i] >> 4) | (in[i+1] << 4)
	}
	out[95] = ((in[95] >> 4) & 0x03) | (in[96] << 2)

	for i := 96; i < 127; i++ {
		out[i] = (in[i] >> 6) | (in[i+1] << 2)
	}
}

// PaddedLen is the number of padded bytes needed to hold n unpadded bytes.
func PaddedLen(n uint64) uint64 {
	full := (n / UnpaddedChunk) * PaddedChunk

	rem := (n % UnpaddedChunk) * 8
	words := rem / wordBits
	tail := rem % wordBits

	return full + words*32 + (tail+7)/8
}

// UnpaddedLen is the number of whole unpadded bytes stored in p padded bytes.
func UnpaddedLen(p uint64) uint64 {
	full := (p / PaddedChunk) * UnpaddedChunk

	rem := p % PaddedChunk
	bits := (rem/32)*wordBits + (rem%32)*8

	return full + bits/8
}

// PadBytes pads an input of any length; the result is PaddedLen(len(in)) long.
func PadBytes(in []byte) []byte {
	n := uint64(len(in))
	out := make([]byte, PaddedLen(n))

	aligned := (n / UnpaddedChunk) * UnpaddedChunk
	Pad(in[:aligned], out[:aligned/UnpaddedChunk*PaddedChunk])

	if aligned < n {
		var src [UnpaddedChunk]byte
		var dst [PaddedChunk]byte
		copy(src[:], in[aligned:])
		padChunk(src[:], dst[:])
		copy(out[aligned/UnpaddedChunk*PaddedChunk:], dst[:])
	}

	return out
}

// UnpadBytes recovers the UnpaddedLen(len(in)) data bytes stored in in.
func UnpadBytes(in []byte) []byte {
	p := uint64(len(in))
	out := make([]byte, UnpaddedLen(p))

	aligned := (p / PaddedChunk) * PaddedChunk
	Unpad(in[:aligned], out[:aligned/PaddedChunk*UnpaddedChunk])

	if aligned < p {
		var src [PaddedChunk]byte
		var dst [UnpaddedChunk]byte
		copy(src[:], in[aligned:])
		unpadChunk(src[:], dst[:])
		copy(out[aligned/PaddedChunk*UnpaddedChunk:], dst[:])
	}

	return out
}

// MaxUnpaddedSize is the data capacity of a sector of the given size.
func MaxUnpaddedSize(ss abi.SectorSize) abi.UnpaddedPieceSize {
	return abi.UnpaddedPieceSize(UnpaddedLen(uint64(ss)))
}
