// Package storetest contains tests that every store implementation must
// pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run runs the store tests against stores created by newStore. Every call to
// newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("channel lifecycle", func(t *testing.T) { testChannelLifecycle(t, newStore(t)) })
	t.Run("identity", func(t *testing.T) { testIdentity(t, newStore(t)) })
	t.Run("processed", func(t *testing.T) { testProcessed(t, newStore(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("read only", func(t *testing.T) { testReadOnly(t, newStore(t)) })
	t.Run("for each", func(t *testing.T) { testForEach(t, newStore(t)) })
}

func newChannel() state.Channel {
	return state.Channel{
		Owner:    keypair.MustRandom().FromAddress(),
		PartyA:   keypair.MustRandom().FromAddress(),
		PartyB:   keypair.MustRandom().FromAddress(),
		BalanceA: 100,
		BalanceB: 50,
	}
}

func testChannelLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	address := keypair.MustRandom().FromAddress()
	c := newChannel()

	err := s.View(ctx, func(tx store.Tx) error {
		_, err := tx.Channel(address)
		return err
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.UpdateChannel(address, c)
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.InsertChannel(address, c)
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.InsertChannel(address, newChannel())
	})
	require.ErrorIs(t, err, store.ErrRecordExists)

	updated := c
	updated.BalanceA, updated.BalanceB, updated.Iteration = 120, 30, 1
	err = s.Update(ctx, func(tx store.Tx) error {
		got, err := tx.Channel(address)
		require.NoError(t, err)
		assert.True(t, c.Equal(got))
		return tx.UpdateChannel(address, updated)
	})
	require.NoError(t, err)

	closed := updated
	closed.BalanceA, closed.BalanceB, closed.Closed = 0, 0, true
	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.UpdateChannel(address, closed)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx store.Tx) error {
		got, err := tx.Channel(address)
		require.NoError(t, err)
		assert.True(t, closed.Equal(got), "got %+v", got)
		return nil
	})
	require.NoError(t, err)
}

func testIdentity(t *testing.T, s store.Store) {
	ctx := context.Background()
	address := keypair.MustRandom().FromAddress()
	i := state.Identity{DisplayName: "alice", OwningKey: keypair.MustRandom().FromAddress()}

	err := s.Update(ctx, func(tx store.Tx) error {
		return tx.InsertIdentity(address, i)
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.InsertIdentity(address, state.Identity{DisplayName: "mallory", OwningKey: keypair.MustRandom().FromAddress()})
	})
	require.ErrorIs(t, err, store.ErrRecordExists)

	err = s.View(ctx, func(tx store.Tx) error {
		got, err := tx.Identity(address)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.DisplayName)
		assert.Equal(t, i.OwningKey.Address(), got.OwningKey.Address())

		_, err = tx.Identity(keypair.MustRandom().FromAddress())
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func testProcessed(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.Update(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.MarkProcessed("a"))
		return tx.MarkProcessed("a")
	})
	require.ErrorIs(t, err, store.ErrRecordExists)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.MarkProcessed("a")
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.MarkProcessed("a")
	})
	require.ErrorIs(t, err, store.ErrRecordExists)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	address := keypair.MustRandom().FromAddress()
	errAbort := errors.New("abort")

	err := s.Update(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.InsertChannel(address, newChannel()))
		require.NoError(t, tx.MarkProcessed("b"))
		_, err := tx.Channel(address)
		require.NoError(t, err, "writes are visible within the transaction")
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	err = s.Update(ctx, func(tx store.Tx) error {
		_, err := tx.Channel(address)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return tx.MarkProcessed("b")
	})
	require.NoError(t, err)
}

func testReadOnly(t *testing.T, s store.Store) {
	ctx := context.Background()
	address := keypair.MustRandom().FromAddress()

	err := s.View(ctx, func(tx store.Tx) error {
		return tx.InsertChannel(address, newChannel())
	})
	require.ErrorIs(t, err, store.ErrReadOnly)

	err = s.View(ctx, func(tx store.Tx) error {
		return tx.MarkProcessed("c")
	})
	require.ErrorIs(t, err, store.ErrReadOnly)
}

func testForEach(t *testing.T, s store.Store) {
	ctx := context.Background()
	channels := map[string]state.Channel{}
	identities := map[string]state.Identity{}

	err := s.Update(ctx, func(tx store.Tx) error {
		for i := 0; i < 3; i++ {
			address := keypair.MustRandom().FromAddress()
			c := newChannel()
			channels[address.Address()] = c
			if err := tx.InsertChannel(address, c); err != nil {
				return err
			}
		}
		for i := 0; i < 2; i++ {
			address := keypair.MustRandom().FromAddress()
			id := state.Identity{DisplayName: "party", OwningKey: keypair.MustRandom().FromAddress()}
			identities[address.Address()] = id
			if err := tx.InsertIdentity(address, id); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx store.Tx) error {
		seen := []string{}
		err := tx.ForEachChannel(func(address *keypair.FromAddress, c state.Channel) error {
			want, ok := channels[address.Address()]
			require.True(t, ok)
			assert.True(t, want.Equal(c))
			seen = append(seen, address.Address())
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, seen, 3)
		assert.IsIncreasing(t, seen)

		count := 0
		err = tx.ForEachIdentity(func(address *keypair.FromAddress, i state.Identity) error {
			want, ok := identities[address.Address()]
			require.True(t, ok)
			assert.Equal(t, want.OwningKey.Address(), i.OwningKey.Address())
			count++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		return nil
	})
	require.NoError(t, err)
}
