package state

import (
	"math"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_Reallocate(t *testing.T) {
	a := keypair.MustRandom().FromAddress()
	b := keypair.MustRandom().FromAddress()
	stranger := keypair.MustRandom().FromAddress()
	c := Channel{
		Owner:    keypair.MustRandom().FromAddress(),
		PartyA:   a,
		PartyB:   b,
		BalanceA: 120,
		BalanceB: 30,
	}

	testCases := []struct {
		name    string
		params  ReallocateParams
		wantErr error
	}{
		{"both parties", ReallocateParams{Signer1: a, Signer2: b, NewBalanceA: 0, NewBalanceB: 150}, nil},
		{"signers in any order", ReallocateParams{Signer1: b, Signer2: a, NewBalanceA: 150, NewBalanceB: 0}, nil},
		{"total decreased", ReallocateParams{Signer1: a, Signer2: b, NewBalanceA: 100, NewBalanceB: 40}, ErrConservationViolated},
		{"total increased", ReallocateParams{Signer1: a, Signer2: b, NewBalanceA: 121, NewBalanceB: 30}, ErrConservationViolated},
		{"total wraps around", ReallocateParams{Signer1: a, Signer2: b, NewBalanceA: math.MaxUint64, NewBalanceB: 151}, ErrConservationViolated},
		{"signer 1 stranger", ReallocateParams{Signer1: stranger, Signer2: b, NewBalanceA: 75, NewBalanceB: 75}, ErrUnauthorizedSigner},
		{"signer 2 stranger", ReallocateParams{Signer1: a, Signer2: stranger, NewBalanceA: 75, NewBalanceB: 75}, ErrUnauthorizedSigner},
		{"signer missing", ReallocateParams{Signer1: a, NewBalanceA: 75, NewBalanceB: 75}, ErrUnauthorizedSigner},
		// Conservation is checked before authorization.
		{"stranger and total changed", ReallocateParams{Signer1: stranger, Signer2: stranger, NewBalanceA: 1}, ErrConservationViolated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Reallocate(tc.params, Policy{})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.True(t, c.Equal(got), "channel must be unchanged after a failed reallocation")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.params.NewBalanceA, got.BalanceA)
			assert.Equal(t, tc.params.NewBalanceB, got.BalanceB)
			assert.Equal(t, c.Iteration+1, got.Iteration)
			assert.Equal(t, c.PartyA, got.PartyA)
			assert.Equal(t, c.PartyB, got.PartyB)
			assert.Equal(t, c.Owner, got.Owner)
		})
	}

	// The receiver is never modified.
	assert.Equal(t, uint64(120), c.BalanceA)
	assert.Equal(t, uint64(30), c.BalanceB)
}

// A single party signing as both signers is a policy decision to confirm with
// the system owner. By default the weak check is kept and a party can
// reallocate alone, optionally true co-signature is enforced.
func TestChannel_Reallocate_singlePartyCosignPolicy(t *testing.T) {
	a := keypair.MustRandom().FromAddress()
	b := keypair.MustRandom().FromAddress()
	c := Channel{PartyA: a, PartyB: b, BalanceA: 10, BalanceB: 10}
	p := ReallocateParams{Signer1: a, Signer2: a, NewBalanceA: 20, NewBalanceB: 0}

	t.Run("weak check accepts same party twice", func(t *testing.T) {
		got, err := c.Reallocate(p, Policy{})
		require.NoError(t, err)
		assert.Equal(t, uint64(20), got.BalanceA)
	})

	t.Run("distinct cosigners rejects same party twice", func(t *testing.T) {
		got, err := c.Reallocate(p, Policy{RequireDistinctCosigners: true})
		require.ErrorIs(t, err, ErrUnauthorizedSigner)
		assert.True(t, c.Equal(got))
	})

	t.Run("distinct cosigners accepts both parties", func(t *testing.T) {
		p := p
		p.Signer2 = b
		_, err := c.Reallocate(p, Policy{RequireDistinctCosigners: true})
		require.NoError(t, err)
	})
}

func TestChannel_Reallocate_closed(t *testing.T) {
	a := keypair.MustRandom().FromAddress()
	b := keypair.MustRandom().FromAddress()
	c := Channel{PartyA: a, PartyB: b, Closed: true}
	p := ReallocateParams{Signer1: a, Signer2: b}

	// A closed channel has nothing to reallocate, a zero reallocation conserves
	// the zero total.
	_, err := c.Reallocate(p, Policy{})
	require.NoError(t, err)

	_, err = c.Reallocate(ReallocateParams{Signer1: a, Signer2: b, NewBalanceA: 1}, Policy{})
	require.ErrorIs(t, err, ErrConservationViolated)

	_, err = c.Reallocate(p, Policy{RejectClosedChannel: true})
	require.ErrorIs(t, err, ErrChannelClosed)

	// Conservation and authorization are checked before the closed guard.
	stranger := keypair.MustRandom().FromAddress()
	_, err = c.Reallocate(ReallocateParams{Signer1: stranger, Signer2: b}, Policy{RejectClosedChannel: true})
	require.ErrorIs(t, err, ErrUnauthorizedSigner)
	assert.NotErrorIs(t, err, ErrChannelClosed)

	_, err = c.Reallocate(ReallocateParams{Signer1: a, Signer2: b, NewBalanceB: 1}, Policy{RejectClosedChannel: true})
	require.ErrorIs(t, err, ErrConservationViolated)

	_, err = c.Reallocate(ReallocateParams{Signer1: a, Signer2: a}, Policy{RejectClosedChannel: true, RequireDistinctCosigners: true})
	require.ErrorIs(t, err, ErrUnauthorizedSigner)
}
