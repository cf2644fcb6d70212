package feistel

// prfDomain is the permutation width used when the network serves as a PRF.
const prfDomain = uint64(1) << 62

// PRF is a keyed pseudorandom function on 62-bit inputs.
type PRF struct {
	keys Keys
}

func NewPRF(seed []byte) PRF {
	return PRF{keys: DeriveKeys(seed)}
}

// Eval maps x (reduced to 62 bits) to a pseudorandom 62-bit value. Distinct
// inputs give distinct outputs.
func (p PRF) Eval(x uint64) uint64 {
	return Permute(prfDomain, x&(prfDomain-1), p.keys)
}
