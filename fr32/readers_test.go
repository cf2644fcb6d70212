package fr32_test

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-proofs/fr32"
)

func TestPadReader(t *testing.T) {
	ps := abi.PaddedPieceSize(64 << 10).Unpadded()

	raw := bytes.Repeat([]byte{0x55}, int(ps))

	r, err := fr32.NewPadReader(bytes.NewReader(raw), ps)
	require.NoError(t, err)

	readerPadded, err := io.ReadAll(r)
	require.NoError(t, err)

	padOut := make([]byte, ps.Padded())
	fr32.Pad(raw, padOut)

	require.Equal(t, padOut, readerPadded)
}

func TestUnpadReader(t *testing.T) {
	ps := abi.PaddedPieceSize(64 << 10).Unpadded()

	raw := bytes.Repeat([]byte{0x77}, int(ps))

	padOut := make([]byte, ps.Padded())
	fr32.Pad(raw, padOut)

	r, err := fr32.NewUnpadReader(bytes.NewReader(padOut), ps.Padded())
	require.NoError(t, err)

	readered, err := io.ReadAll(bufio.NewReaderSize(r, 512))
	require.NoError(t, err)

	require.Equal(t, raw, readered)
}

func TestReadersSmallBuffer(t *testing.T) {
	old := fr32.MTTresh
	fr32.MTTresh = 2 * fr32.UnpaddedChunk
	defer func() { fr32.MTTresh = old }()

	raw := make([]byte, 8*fr32.UnpaddedChunk)
	for i := range raw {
		raw[i] = byte(i * 7)
	}

	pr, err := fr32.NewPadReader(bytes.NewReader(raw), abi.UnpaddedPieceSize(len(raw)))
	require.NoError(t, err)

	ur, err := fr32.NewUnpadReader(pr, abi.PaddedPieceSize(8*fr32.PaddedChunk))
	require.NoError(t, err)

	out, err := io.ReadAll(ur)
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestReaderRejectsBadSize(t *testing.T) {
	_, err := fr32.NewPadReader(bytes.NewReader(nil), 100)
	require.Error(t, err)

	_, err = fr32.NewUnpadReader(bytes.NewReader(nil), 100)
	require.Error(t, err)
}
