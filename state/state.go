package state

import (
	"errors"
	"math/bits"

	"github.com/stellar/go/keypair"
)

var (
	// ErrInsufficientFunds indicates a party, or the owner, does not hold
	// enough funds to cover an amount it is required to transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConservationViolated indicates a reallocation that would change the
	// total value recorded in a channel.
	ErrConservationViolated = errors.New("conservation violated")

	// ErrUnauthorizedSigner indicates a required signer is not one of the
	// channel's parties, or not the channel's owner.
	ErrUnauthorizedSigner = errors.New("unauthorized signer")

	// ErrChannelClosed indicates an operation on a closed channel when the
	// policy rejects operations on closed channels.
	ErrChannelClosed = errors.New("channel closed")

	// ErrRecipientMismatch indicates a payout recipient that is not the
	// channel party it is paying out to.
	ErrRecipientMismatch = errors.New("recipient does not match channel party")

	// ErrInvalidParty indicates a missing account.
	ErrInvalidParty = errors.New("invalid party")
)

// Channel is the record of two parties' current allocation of funds held in
// escrow by the owner.
type Channel struct {
	Owner  *keypair.FromAddress
	PartyA *keypair.FromAddress
	PartyB *keypair.FromAddress

	BalanceA uint64
	BalanceB uint64

	// Iteration is the number of reallocations applied to the channel.
	Iteration int64

	// Closed is set once the channel has been settled. A closed channel is a
	// tombstone and is never reopened.
	Closed bool
}

// Total returns the total value recorded in the channel. The second return
// value is false if the total overflows.
func (c Channel) Total() (uint64, bool) {
	return sum(c.BalanceA, c.BalanceB)
}

// IsParty returns true if the account is party A or party B of the channel.
func (c Channel) IsParty(account *keypair.FromAddress) bool {
	return account != nil && (sameAccount(account, c.PartyA) || sameAccount(account, c.PartyB))
}

// Equal returns true if both channels record the same owner, parties,
// balances, iteration and status.
func (c Channel) Equal(o Channel) bool {
	return sameAccount(c.Owner, o.Owner) &&
		sameAccount(c.PartyA, o.PartyA) &&
		sameAccount(c.PartyB, o.PartyB) &&
		c.BalanceA == o.BalanceA &&
		c.BalanceB == o.BalanceB &&
		c.Iteration == o.Iteration &&
		c.Closed == o.Closed
}

// Transfer is an amount the ledger must move from one account to another.
type Transfer struct {
	From   *keypair.FromAddress
	To     *keypair.FromAddress
	Amount uint64
}

// Policy contains the authorization policies that are decided by the system
// owner rather than fixed by the channel protocol.
type Policy struct {
	// RequireDistinctCosigners requires the two signers of a reallocation to
	// be different accounts, so that both parties must co-sign. When false a
	// single party signing as both signers is accepted.
	RequireDistinctCosigners bool

	// RejectClosedChannel rejects reallocations and closes of a channel that
	// has already been closed. When false a repeated close succeeds and moves
	// no funds.
	RejectClosedChannel bool
}

func sum(a, b uint64) (uint64, bool) {
	s, carry := bits.Add64(a, b, 0)
	return s, carry == 0
}

func sameAccount(a, b *keypair.FromAddress) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Address() == b.Address()
}

// transfers returns the transfers with non-zero amounts.
func transfers(ts ...Transfer) []Transfer {
	out := make([]Transfer, 0, len(ts))
	for _, t := range ts {
		if t.Amount == 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}
