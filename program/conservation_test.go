package program

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stellar/escrowchannel/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProgram_conservation processes a random sequence of reallocations and
// checks the total held by the channel, and the total held by the ledger,
// never change.
func TestProgram_conservation(t *testing.T) {
	f := newFixture(t, state.Policy{})
	require.NoError(t, f.ledger.Fund(f.a.FromAddress(), 1000))
	require.NoError(t, f.ledger.Fund(f.b.FromAddress(), 1000))
	_, err := f.process(t, f.open(600, 400), f.owner, f.a, f.b, f.channelKey)
	require.NoError(t, err)

	fz := fuzz.New().NilChance(0)
	for i := 0; i < 200; i++ {
		var split uint16
		var drift int8
		fz.Fuzz(&split)
		fz.Fuzz(&drift)

		newA := uint64(split) % 1001
		newB := 1000 - newA
		if drift != 0 && int64(newB)+int64(drift) >= 0 {
			newB = uint64(int64(newB) + int64(drift))
		}

		_, err := f.process(t, f.reallocate(newA, newB), f.a, f.b)
		if newA+newB == 1000 {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, state.ErrConservationViolated)
		}

		info := f.channelInfo(t)
		assert.Equal(t, uint64(1000), info.BalanceA+info.BalanceB)
		assert.Equal(t, uint64(1000), f.balance(t, f.owner))
	}

	_, err = f.process(t, f.close(f.b), f.owner, f.b)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), f.balance(t, f.a)+f.balance(t, f.b))
	assert.Equal(t, uint64(0), f.balance(t, f.owner))
}
