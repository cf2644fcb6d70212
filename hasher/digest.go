package hasher

import (
	"encoding/binary"

	"github.com/minio/sha256-simd"
)

// Digest is a domain-separated SHA-256 over byte strings. The tag and every
// part are length-prefixed so distinct inputs never share an encoding.
func Digest(tag string, parts ...[]byte) Domain {
	return TruncateDigest(RawDigest(tag, parts...))
}

// RawDigest is Digest without the field truncation.
func RawDigest(tag string, parts ...[]byte) [32]byte {
	h := sha256.New()
	var lb [8]byte

	binary.LittleEndian.PutUint64(lb[:], uint64(len(tag)))
	_, _ = h.Write(lb[:])
	_, _ = h.Write([]byte(tag))

	for _, p := range parts {
		binary.LittleEndian.PutUint64(lb[:], uint64(len(p)))
		_, _ = h.Write(lb[:])
		_, _ = h.Write(p)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// U64 encodes v for use as a Digest part.
func U64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
