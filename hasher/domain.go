package hasher

import (
	"encoding/hex"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/xerrors"
)

// DomainBytes is the serialized width of a Domain element.
const DomainBytes = fr.Bytes

var (
	// ErrNonCanonical is returned when bytes do not encode a reduced field element.
	ErrNonCanonical = xerrors.New("bytes are not a canonical field element")
	// ErrDomainLength is returned when a domain element is not exactly 32 bytes.
	ErrDomainLength = xerrors.New("domain element must be 32 bytes")
)

// Domain is the little-endian encoding of a BLS12-381 scalar. Values built
// through this package are always canonical; values read from the outside
// must go through DomainFromBytes.
type Domain [DomainBytes]byte

// DomainFromBytes parses an untrusted 32-byte little-endian field element.
func DomainFromBytes(b []byte) (Domain, error) {
	var d Domain
	if len(b) != DomainBytes {
		return d, xerrors.Errorf("got %d bytes: %w", len(b), ErrDomainLength)
	}
	copy(d[:], b)
	if !d.IsCanonical() {
		return Domain{}, ErrNonCanonical
	}
	return d, nil
}

// DomainFromFr encodes a field element.
func DomainFromFr(e fr.Element) Domain {
	var d Domain
	buf := (*[fr.Bytes]byte)(&d)
	fr.LittleEndian.PutElement(buf, e)
	return d
}

// DomainFromBig reduces v into the field and encodes it.
func DomainFromBig(v *big.Int) Domain {
	var e fr.Element
	e.SetBigInt(v)
	return DomainFromFr(e)
}

// TruncateDigest turns an arbitrary 32-byte digest into a canonical element by
// clearing the two most significant bits, which leaves a value below 2^254.
func TruncateDigest(digest [32]byte) Domain {
	digest[31] &= 0b0011_1111
	return Domain(digest)
}

// IsCanonical reports whether d encodes a value smaller than the modulus.
func (d Domain) IsCanonical() bool {
	_, err := d.Fr()
	return err == nil
}

// Fr decodes d into a field element.
func (d Domain) Fr() (fr.Element, error) {
	buf := [fr.Bytes]byte(d)
	e, err := fr.LittleEndian.Element(&buf)
	if err != nil {
		return fr.Element{}, ErrNonCanonical
	}
	return e, nil
}

// Big returns d as an integer.
func (d Domain) Big() *big.Int {
	var be [DomainBytes]byte
	for i := range d {
		be[DomainBytes-1-i] = d[i]
	}
	return new(big.Int).SetBytes(be[:])
}

func (d Domain) Bytes() []byte {
	return d[:]
}

func (d Domain) String() string {
	return hex.EncodeToString(d[:])
}
