// Package feistel implements a keyed pseudorandom permutation over [0, n)
// built from a balanced Feistel network with a blake2b round function.
package feistel

import (
	"encoding/binary"

	"github.com/minio/blake2b-simd"
)

// Rounds is the number of Feistel rounds applied per encoding.
const Rounds = 4

type Keys [Rounds]uint64

// DeriveKeys expands seed into round keys.
func DeriveKeys(seed []byte) Keys {
	h := blake2b.New256()
	_, _ = h.Write([]byte("feistel-keys"))
	_, _ = h.Write(seed)
	sum := h.Sum(nil)

	var k Keys
	for i := range k {
		k[i] = binary.LittleEndian.Uint64(sum[i*8:])
	}
	return k
}

// Permute maps index, which must be below numElements, to a distinct value
// in the same range.
func Permute(numElements, index uint64, keys Keys) uint64 {
	leftMask, rightMask, halfBits := setup(numElements)

	u := encode(index, keys, leftMask, rightMask, halfBits)
	for u >= numElements {
		u = encode(u, keys, leftMask, rightMask, halfBits)
	}
	return u
}

// Invert is the inverse of Permute.
func Invert(numElements, index uint64, keys Keys) uint64 {
	leftMask, rightMask, halfBits := setup(numElements)

	u := decode(index, keys, leftMask, rightMask, halfBits)
	for u >= numElements {
		u = decode(u, keys, leftMask, rightMask, halfBits)
	}
	return u
}

// setup sizes the network to the smallest power of four holding numElements
// so both halves have the same width and cycle walking stays short.
func setup(numElements uint64) (leftMask, rightMask uint64, halfBits uint) {
	nextPow4 := uint64(4)
	halfBits = 1
	for nextPow4 < numElements {
		nextPow4 *= 4
		halfBits++
	}

	rightMask = (uint64(1) << halfBits) - 1
	leftMask = rightMask << halfBits
	return leftMask, rightMask, halfBits
}

func encode(index uint64, keys Keys, leftMask, rightMask uint64, halfBits uint) uint64 {
	left := (index & leftMask) >> halfBits
	right := index & rightMask

	for _, key := range keys {
		left, right = right, left^round(right, key, rightMask)
	}

	return (left << halfBits) | right
}

func decode(index uint64, keys Keys, leftMask, rightMask uint64, halfBits uint) uint64 {
	left := (index & leftMask) >> halfBits
	right := index & rightMask

	for i := len(keys) - 1; i >= 0; i-- {
		left, right = right^round(left, keys[i], rightMask), left
	}

	return (left << halfBits) | right
}

func round(right, key, rightMask uint64) uint64 {
	var data [16]byte
	binary.BigEndian.PutUint64(data[:8], right)
	binary.BigEndian.PutUint64(data[8:], key)

	sum := blake2b.Sum256(data[:])
	return binary.BigEndian.Uint64(sum[:8]) & rightMask
}
