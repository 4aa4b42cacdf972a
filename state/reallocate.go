package state

import (
	"fmt"

	"github.com/stellar/go/keypair"
)

// ReallocateParams are the parameters of a reallocation of the funds recorded
// in a channel.
type ReallocateParams struct {
	Signer1     *keypair.FromAddress
	Signer2     *keypair.FromAddress
	NewBalanceA uint64
	NewBalanceB uint64
}

// Reallocate validates the reallocation and returns the channel with its
// balances replaced. No funds move, the new balances are paid out at close.
//
// The checks are applied in order: the total recorded value must be
// conserved, then each signer must be a party of the channel. If the policy
// requires distinct cosigners, the two signers must also be different
// accounts. A closed channel is rejected last, if the policy rejects
// operations on closed channels.
func (c Channel) Reallocate(p ReallocateParams, policy Policy) (Channel, error) {
	oldTotal, ok := c.Total()
	if !ok {
		return c, fmt.Errorf("reallocating: recorded total overflows: %w", ErrConservationViolated)
	}
	newTotal, ok := sum(p.NewBalanceA, p.NewBalanceB)
	if !ok {
		return c, fmt.Errorf("reallocating: new total overflows: %w", ErrConservationViolated)
	}
	if newTotal != oldTotal {
		return c, fmt.Errorf("reallocating: new total %d does not equal recorded total %d: %w",
			newTotal, oldTotal, ErrConservationViolated)
	}

	if !c.IsParty(p.Signer1) {
		return c, fmt.Errorf("reallocating: signer 1 %s is not a channel party: %w", address(p.Signer1), ErrUnauthorizedSigner)
	}
	if !c.IsParty(p.Signer2) {
		return c, fmt.Errorf("reallocating: signer 2 %s is not a channel party: %w", address(p.Signer2), ErrUnauthorizedSigner)
	}
	if policy.RequireDistinctCosigners && sameAccount(p.Signer1, p.Signer2) {
		return c, fmt.Errorf("reallocating: signers must be different parties: %w", ErrUnauthorizedSigner)
	}
	if policy.RejectClosedChannel && c.Closed {
		return c, fmt.Errorf("reallocating: %w", ErrChannelClosed)
	}

	c.BalanceA = p.NewBalanceA
	c.BalanceB = p.NewBalanceB
	c.Iteration++
	return c, nil
}

func address(k *keypair.FromAddress) string {
	if k == nil {
		return "<none>"
	}
	return k.Address()
}
