package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-proofs/storage/sealer/basicfs"
)

func TestListSectors(t *testing.T) {
	ctx := context.Background()
	sp := &basicfs.Provider{Root: t.TempDir(), SectorSize: 1024}

	for _, n := range []abi.SectorNumber{3, 1} {
		_, err := sp.NewStagingSectorAccess(ctx, abi.SectorID{Miner: 1000, Number: n})
		require.NoError(t, err)
	}
	_, err := sp.NewSealedSectorAccess(ctx, abi.SectorID{Miner: 1000, Number: 3})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, listSectors(&buf, sp.Root, []string{"unsealed", "sealed"}))
	require.Equal(t, "unsealed (2): s-t01000-1 s-t01000-3\nsealed (1): s-t01000-3\n", buf.String())

	buf.Reset()
	require.NoError(t, listSectors(&buf, sp.Root, []string{"sealed"}))
	require.Equal(t, "sealed (1): s-t01000-3\n", buf.String())

	require.Error(t, listSectors(&buf, sp.Root, []string{"sideways"}))
}
