// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"testing"

	"github.com/dogebridge/core/bridgeerrors"
	"github.com/stretchr/testify/require"
)

func TestAppendMatchesRootAfterAppendFormula(t *testing.T) {
	require := require.New(t)

	tr, err := New(4)
	require.NoError(err)

	leaves := [][32]byte{
		LeafHash([]byte("a")),
		LeafHash([]byte("b")),
		LeafHash([]byte("c")),
	}

	expected := emptyRoots[4]
	for i, leaf := range leaves {
		expected = RootAfterAppend(expected, uint64(i), leaf)
		idx, err := tr.Append(leaf)
		require.NoError(err)
		require.EqualValues(i, idx)
		require.Equal(expected, tr.Root())
	}
}

func TestRootIsPureFunctionOfDepthNextIndexLeaves(t *testing.T) {
	require := require.New(t)

	leaves := [][32]byte{LeafHash([]byte("x")), LeafHash([]byte("y"))}

	t1, err := New(8)
	require.NoError(err)
	_, err = t1.AppendN(leaves)
	require.NoError(err)

	t2, err := New(8)
	require.NoError(err)
	for _, l := range leaves {
		_, err := t2.Append(l)
		require.NoError(err)
	}

	require.Equal(t1.Root(), t2.Root())
	require.Equal(t1.NextIndex(), t2.NextIndex())
}

func TestTreeFullAtCapacity(t *testing.T) {
	require := require.New(t)

	tr, err := New(2) // capacity 4
	require.NoError(err)
	for i := 0; i < 4; i++ {
		_, err := tr.Append(LeafHash([]byte{byte(i)}))
		require.NoError(err)
	}
	_, err = tr.Append(LeafHash([]byte("overflow")))
	require.ErrorIs(err, bridgeerrors.ErrTreeFull)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	require := require.New(t)

	tr, err := New(6)
	require.NoError(err)
	for i := 0; i < 5; i++ {
		_, err := tr.Append(LeafHash([]byte{byte(i)}))
		require.NoError(err)
	}

	snap := tr.Snapshot()
	restored := Restore(snap)
	require.Equal(tr.Root(), restored.Root())
	require.Equal(tr.NextIndex(), restored.NextIndex())

	idx, err := restored.Append(LeafHash([]byte("more")))
	require.NoError(err)
	require.EqualValues(5, idx)
}

func TestInvalidDepthRejected(t *testing.T) {
	require := require.New(t)

	_, err := New(0)
	require.Error(err)

	_, err = New(MaxDepth + 1)
	require.Error(err)
}
