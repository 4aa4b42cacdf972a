package state

import (
	"fmt"

	"github.com/stellar/go/keypair"
)

// CloseParams are the parameters of a channel close.
//
// RecipientA and RecipientB are the accounts the payouts are sent to, and
// must be the channel's party A and party B.
type CloseParams struct {
	Owner      *keypair.FromAddress
	Signer     *keypair.FromAddress
	RecipientA *keypair.FromAddress
	RecipientB *keypair.FromAddress
}

// Close validates the close and returns the closed channel with zeroed
// balances, and the transfers that pay the recorded balances out of escrow.
//
// Either party alone may close the channel. The returned channel must only be
// persisted if the transfers are executed, otherwise the channel keeps its
// balances and the close can be retried.
//
// Closing a closed channel returns no transfers, unless the policy rejects
// operations on closed channels. The policy applies only to authorized
// closes.
func (c Channel) Close(p CloseParams, policy Policy) (Channel, []Transfer, error) {
	if !sameAccount(p.Owner, c.Owner) {
		return c, nil, fmt.Errorf("closing: owner %s is not the channel owner: %w", address(p.Owner), ErrUnauthorizedSigner)
	}
	if !c.IsParty(p.Signer) {
		return c, nil, fmt.Errorf("closing: signer %s is not a channel party: %w", address(p.Signer), ErrUnauthorizedSigner)
	}
	if !sameAccount(p.RecipientA, c.PartyA) {
		return c, nil, fmt.Errorf("closing: recipient %s is not party a: %w", address(p.RecipientA), ErrRecipientMismatch)
	}
	if !sameAccount(p.RecipientB, c.PartyB) {
		return c, nil, fmt.Errorf("closing: recipient %s is not party b: %w", address(p.RecipientB), ErrRecipientMismatch)
	}
	if policy.RejectClosedChannel && c.Closed {
		return c, nil, fmt.Errorf("closing: %w", ErrChannelClosed)
	}

	ts := transfers(
		Transfer{From: c.Owner, To: c.PartyA, Amount: c.BalanceA},
		Transfer{From: c.Owner, To: c.PartyB, Amount: c.BalanceB},
	)
	c.BalanceA = 0
	c.BalanceB = 0
	c.Closed = true
	return c, ts, nil
}
