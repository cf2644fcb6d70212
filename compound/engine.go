package compound

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/hasher"
)

// ParamsID names a parameter set in the cache.
type ParamsID struct {
	Protocol   string
	SectorSize uint64
	Partitions int
}

func (id ParamsID) String() string {
	return fmt.Sprintf("%s-%d-%d", id.Protocol, id.SectorSize, id.Partitions)
}

// Params is the key material for one ParamsID. Entries are immutable once
// built.
type Params struct {
	ID           ParamsID
	SchemeDigest hasher.Domain
	ProvingKey   []byte
	VerifyingKey []byte
}

// Engine is the succinct-argument backend wrapping vanilla partition proofs.
type Engine interface {
	GenerateParams(id ParamsID, schemeDigest hasher.Domain) (*Params, error)
	// ProofLen is the size of a partition proof over vanillaLen bytes.
	ProofLen(vanillaLen int) int
	Prove(params *Params, partition int, vanilla []byte) ([]byte, error)
	// Verify checks proof and calls check on the vanilla statement it carries.
	Verify(params *Params, partition int, proof []byte, check func(vanilla []byte) (bool, error)) (bool, error)
}

// TransparentEngine carries the vanilla proof itself, bound to the
// verifying key and the partition index.
type TransparentEngine struct{}

var _ Engine = TransparentEngine{}

const transparentHeader = hasher.DomainBytes + 8

func (TransparentEngine) GenerateParams(id ParamsID, schemeDigest hasher.Domain) (*Params, error) {
	if id.Partitions < 1 {
		return nil, xerrors.Errorf("generating params for %s: no partitions", id)
	}

	vk := hasher.Digest("transparent-vk",
		[]byte(id.Protocol),
		hasher.U64(id.SectorSize),
		hasher.U64(uint64(id.Partitions)),
		schemeDigest[:],
	)

	return &Params{
		ID:           id,
		SchemeDigest: schemeDigest,
		ProvingKey:   vk[:],
		VerifyingKey: vk[:],
	}, nil
}

func (TransparentEngine) ProofLen(vanillaLen int) int {
	return transparentHeader + vanillaLen
}

func (TransparentEngine) Prove(params *Params, partition int, vanilla []byte) ([]byte, error) {
	out := make([]byte, transparentHeader, transparentHeader+len(vanilla))
	copy(out, params.ProvingKey)
	binary.LittleEndian.PutUint64(out[hasher.DomainBytes:], uint64(partition))
	return append(out, vanilla...), nil
}

func (TransparentEngine) Verify(params *Params, partition int, proof []byte, check func([]byte) (bool, error)) (bool, error) {
	if len(proof) < transparentHeader {
		return false, nil
	}
	if !bytes.Equal(proof[:hasher.DomainBytes], params.VerifyingKey) {
		return false, nil
	}
	if binary.LittleEndian.Uint64(proof[hasher.DomainBytes:transparentHeader]) != uint64(partition) {
		return false, nil
	}
	return check(proof[transparentHeader:])
}
