package compound

import (
	"bytes"
	"io"

	"golang.org/x/xerrors"
)

// MultiProof is a list of fixed-length partition proofs. Its serialized
// form is the plain concatenation of the partitions with no length prefix.
type MultiProof struct {
	Partitions [][]byte
}

// NewMultiProofFromBytes splits b into partitions of partitionLen bytes.
func NewMultiProofFromBytes(b []byte, partitions, partitionLen int) (*MultiProof, error) {
	if partitions < 1 || partitionLen < 1 {
		return nil, xerrors.Errorf("%d partitions of %d bytes: %w", partitions, partitionLen, ErrMalformedProof)
	}
	if len(b) != partitions*partitionLen {
		return nil, xerrors.Errorf("expected %d bytes, got %d: %w", partitions*partitionLen, len(b), ErrMalformedProof)
	}

	mp := &MultiProof{Partitions: make([][]byte, partitions)}
	for i := range mp.Partitions {
		mp.Partitions[i] = append([]byte(nil), b[i*partitionLen:(i+1)*partitionLen]...)
	}
	return mp, nil
}

func (mp *MultiProof) Len() int {
	return len(mp.Partitions)
}

func (mp *MultiProof) Write(w io.Writer) error {
	for i, p := range mp.Partitions {
		if _, err := w.Write(p); err != nil {
			return xerrors.Errorf("writing partition %d: %w", i, err)
		}
	}
	return nil
}

func (mp *MultiProof) Bytes() []byte {
	var buf bytes.Buffer
	_ = mp.Write(&buf)
	return buf.Bytes()
}
