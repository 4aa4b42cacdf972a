package state

import (
	"fmt"

	"github.com/stellar/go/keypair"
)

// OpenParams are the parameters of a channel open, agreed to by the owner and
// both parties.
type OpenParams struct {
	Owner         *keypair.FromAddress
	PartyA        *keypair.FromAddress
	ContributionA uint64
	PartyB        *keypair.FromAddress
	ContributionB uint64
}

// Funds are the funds available to each party at the time of the open, as
// reported by the ledger.
type Funds struct {
	A uint64
	B uint64
}

// Open validates the contributions of the open against the funds available to
// each party and returns the new channel and the transfers that move the
// contributions into escrow held by the owner.
//
// If either contribution exceeds the funds available to its party no channel
// or transfers are returned. The channel must only be persisted if the
// transfers are executed.
func Open(p OpenParams, available Funds) (Channel, []Transfer, error) {
	if p.Owner == nil || p.PartyA == nil || p.PartyB == nil {
		return Channel{}, nil, fmt.Errorf("opening channel: owner, party a and party b required: %w", ErrInvalidParty)
	}
	if p.ContributionA > available.A {
		return Channel{}, nil, fmt.Errorf("party a contribution %d exceeds available funds %d: %w",
			p.ContributionA, available.A, ErrInsufficientFunds)
	}
	if p.ContributionB > available.B {
		return Channel{}, nil, fmt.Errorf("party b contribution %d exceeds available funds %d: %w",
			p.ContributionB, available.B, ErrInsufficientFunds)
	}
	if _, ok := sum(p.ContributionA, p.ContributionB); !ok {
		return Channel{}, nil, fmt.Errorf("contributions overflow channel total: %w", ErrConservationViolated)
	}

	c := Channel{
		Owner:    p.Owner,
		PartyA:   p.PartyA,
		PartyB:   p.PartyB,
		BalanceA: p.ContributionA,
		BalanceB: p.ContributionB,
	}
	ts := transfers(
		Transfer{From: p.PartyA, To: p.Owner, Amount: p.ContributionA},
		Transfer{From: p.PartyB, To: p.Owner, Amount: p.ContributionB},
	)
	return c, ts, nil
}
