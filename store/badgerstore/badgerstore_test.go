package badgerstore

import (
	"context"
	"testing"

	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/escrowchannel/store/storetest"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(t.TempDir(), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStore_reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	address := keypair.MustRandom().FromAddress()
	c := state.Channel{
		Owner:     keypair.MustRandom().FromAddress(),
		PartyA:    keypair.MustRandom().FromAddress(),
		PartyB:    keypair.MustRandom().FromAddress(),
		BalanceA:  120,
		BalanceB:  30,
		Iteration: 1,
	}

	s, err := Open(dir, nil)
	require.NoError(t, err)
	err = s.Update(ctx, func(tx store.Tx) error {
		if err := tx.InsertChannel(address, c); err != nil {
			return err
		}
		return tx.MarkProcessed("9b2f7d0e-6a51-4c1e-9a8b-3f0c2d1e4b5a")
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	err = s.Update(ctx, func(tx store.Tx) error {
		got, err := tx.Channel(address)
		require.NoError(t, err)
		assert.True(t, c.Equal(got))
		return tx.MarkProcessed("9b2f7d0e-6a51-4c1e-9a8b-3f0c2d1e4b5a")
	})
	require.ErrorIs(t, err, store.ErrRecordExists)
}
