package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertFileIndexMapping_IdempotentForSamePathAndPbo(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.DB().Begin()
	require.NoError(t, err)

	idx1, err := UpsertFileIndexMapping(tx, "config.hpp", ptr("pboA"))
	require.NoError(t, err)
	idx2, err := UpsertFileIndexMapping(tx, "Config.hpp", ptr("pboA"))
	require.NoError(t, err)

	require.Equal(t, idx1, idx2, "normalized path should dedupe regardless of case")
	require.NoError(t, tx.Commit())
}

func TestUpsertFileIndexMapping_DistinguishesNullPbo(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.DB().Begin()
	require.NoError(t, err)

	idxNil, err := UpsertFileIndexMapping(tx, "shared.hpp", nil)
	require.NoError(t, err)
	idxPbo, err := UpsertFileIndexMapping(tx, "shared.hpp", ptr("pboA"))
	require.NoError(t, err)

	require.NotEqual(t, idxNil, idxPbo)
	require.NoError(t, tx.Commit())
}

func TestNormalizePath_LowercasesAndConvertsSeparators(t *testing.T) {
	require.Equal(t, "a/b/c.hpp", NormalizePath(`A\B\C.hpp`))
}
