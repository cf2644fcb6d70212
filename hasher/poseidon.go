package hasher

import (
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/triplewz/poseidon"
)

// Poseidon hashes pairs of field elements with the arity-2 Poseidon
// permutation over the BLS12-381 scalar field.
type Poseidon struct{}

var _ Hasher = Poseidon{}

var poseidonArity2 = sync.OnceValues(func() (func([]*big.Int) (*big.Int, error), error) {
	cons, err := poseidon.GenPoseidonConstants[*fr.Element](3)
	if err != nil {
		return nil, err
	}
	return func(in []*big.Int) (*big.Int, error) {
		return poseidon.Hash(in, cons, poseidon.OptimizedStatic)
	}, nil
})

func (Poseidon) Name() string {
	return PoseidonName
}

func (Poseidon) Node(left, right Domain) Domain {
	hash, err := poseidonArity2()
	if err != nil {
		// constant generation only fails for unsupported widths
		panic(err)
	}

	out, err := hash([]*big.Int{left.Big(), right.Big()})
	if err != nil {
		// inputs are canonical Domain values, which the permutation always accepts
		panic(err)
	}
	return DomainFromBig(out)
}

// Many folds the elements left to right through Node, starting from the
// zero element, so a single element is still hashed.
func (p Poseidon) Many(elems ...Domain) Domain {
	var acc Domain
	if len(elems) == 0 {
		return p.Node(acc, acc)
	}
	for _, e := range elems {
		acc = p.Node(acc, e)
	}
	return acc
}
