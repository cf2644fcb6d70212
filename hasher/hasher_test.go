package hasher

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/require"
)

func TestDomainFromBytesRejectsNonCanonical(t *testing.T) {
	var ones [32]byte
	for i := range ones {
		ones[i] = 0xff
	}
	_, err := DomainFromBytes(ones[:])
	require.ErrorIs(t, err, ErrNonCanonical)

	_, err = DomainFromBytes(ones[:31])
	require.ErrorIs(t, err, ErrDomainLength)

	// the modulus itself is not canonical, modulus-1 is
	m := fr.Modulus()
	_, err = DomainFromBytes(leBytes(m))
	require.ErrorIs(t, err, ErrNonCanonical)

	d, err := DomainFromBytes(leBytes(new(big.Int).Sub(m, big.NewInt(1))))
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Sub(m, big.NewInt(1)), d.Big())
}

func TestTruncateDigestIsCanonical(t *testing.T) {
	var d [32]byte
	for i := range d {
		d[i] = 0xff
	}
	require.True(t, TruncateDigest(d).IsCanonical())
}

func TestDomainFrRoundTrip(t *testing.T) {
	var e fr.Element
	e.SetUint64(123456789)

	d := DomainFromFr(e)
	require.Equal(t, byte(0x15), d[0])

	back, err := d.Fr()
	require.NoError(t, err)
	require.True(t, back.Equal(&e))
}

func TestHashersAreDeterministicAndOrdered(t *testing.T) {
	a := Digest("a")
	b := Digest("b")

	for _, name := range []string{PoseidonName, Sha256Name, Blake2sName} {
		h, err := ByName(name)
		require.NoError(t, err)
		require.Equal(t, name, h.Name())

		require.Equal(t, h.Node(a, b), h.Node(a, b))
		require.NotEqual(t, h.Node(a, b), h.Node(b, a))
		require.True(t, h.Node(a, b).IsCanonical())
		require.True(t, h.Many(a, b, a).IsCanonical())
		require.NotEqual(t, h.Many(a, b), h.Many(b, a))
	}

	_, err := ByName("md5")
	require.Error(t, err)
}

func TestManyHashesSingleElement(t *testing.T) {
	a := Digest("a")

	for _, name := range []string{PoseidonName, Sha256Name, Blake2sName} {
		h, err := ByName(name)
		require.NoError(t, err)

		require.NotEqual(t, a, h.Many(a), name)
		require.True(t, h.Many().IsCanonical(), name)
		require.NotEqual(t, h.Many(a), h.Many(a, a), name)
	}
}

func TestDigestSeparatesParts(t *testing.T) {
	require.NotEqual(t, Digest("t", []byte("ab"), []byte("c")), Digest("t", []byte("a"), []byte("bc")))
	require.NotEqual(t, Digest("t1", []byte("x")), Digest("t2", []byte("x")))
}

func leBytes(v *big.Int) []byte {
	be := v.FillBytes(make([]byte, 32))
	out := make([]byte, 32)
	for i := range be {
		out[31-i] = be[i]
	}
	return out
}
