package store

import (
	"fmt"

	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/go/keypair"
)

// ChannelRecord is the persisted form of a channel, with accounts stored as
// their strkey addresses.
type ChannelRecord struct {
	Owner     string `cbor:"1,keyasint"`
	PartyA    string `cbor:"2,keyasint"`
	PartyB    string `cbor:"3,keyasint"`
	BalanceA  uint64 `cbor:"4,keyasint"`
	BalanceB  uint64 `cbor:"5,keyasint"`
	Iteration int64  `cbor:"6,keyasint"`
	Closed    bool   `cbor:"7,keyasint"`
}

func NewChannelRecord(c state.Channel) ChannelRecord {
	return ChannelRecord{
		Owner:     address(c.Owner),
		PartyA:    address(c.PartyA),
		PartyB:    address(c.PartyB),
		BalanceA:  c.BalanceA,
		BalanceB:  c.BalanceB,
		Iteration: c.Iteration,
		Closed:    c.Closed,
	}
}

func (r ChannelRecord) Channel() (state.Channel, error) {
	owner, err := parseAddress(r.Owner)
	if err != nil {
		return state.Channel{}, fmt.Errorf("parsing owner: %w", err)
	}
	partyA, err := parseAddress(r.PartyA)
	if err != nil {
		return state.Channel{}, fmt.Errorf("parsing party a: %w", err)
	}
	partyB, err := parseAddress(r.PartyB)
	if err != nil {
		return state.Channel{}, fmt.Errorf("parsing party b: %w", err)
	}
	return state.Channel{
		Owner:     owner,
		PartyA:    partyA,
		PartyB:    partyB,
		BalanceA:  r.BalanceA,
		BalanceB:  r.BalanceB,
		Iteration: r.Iteration,
		Closed:    r.Closed,
	}, nil
}

// IdentityRecord is the persisted form of an identity.
type IdentityRecord struct {
	DisplayName string `cbor:"1,keyasint"`
	OwningKey   string `cbor:"2,keyasint"`
}

func NewIdentityRecord(i state.Identity) IdentityRecord {
	return IdentityRecord{DisplayName: i.DisplayName, OwningKey: address(i.OwningKey)}
}

func (r IdentityRecord) Identity() (state.Identity, error) {
	owningKey, err := parseAddress(r.OwningKey)
	if err != nil {
		return state.Identity{}, fmt.Errorf("parsing owning key: %w", err)
	}
	return state.Identity{DisplayName: r.DisplayName, OwningKey: owningKey}, nil
}

func address(a *keypair.FromAddress) string {
	if a == nil {
		return ""
	}
	return a.Address()
}

func parseAddress(s string) (*keypair.FromAddress, error) {
	if s == "" {
		return nil, nil
	}
	return keypair.ParseAddress(s)
}
