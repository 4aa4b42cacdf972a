package program

import (
	"context"

	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/go/keypair"
)

// ChannelInfo is a channel record and the address it is stored at.
type ChannelInfo struct {
	Address   *keypair.FromAddress `json:"address"`
	Owner     *keypair.FromAddress `json:"owner"`
	PartyA    *keypair.FromAddress `json:"party_a"`
	PartyB    *keypair.FromAddress `json:"party_b"`
	BalanceA  uint64               `json:"balance_a"`
	BalanceB  uint64               `json:"balance_b"`
	Iteration int64                `json:"iteration"`
	Closed    bool                 `json:"closed"`
}

func newChannelInfo(address *keypair.FromAddress, c state.Channel) ChannelInfo {
	return ChannelInfo{
		Address:   address,
		Owner:     c.Owner,
		PartyA:    c.PartyA,
		PartyB:    c.PartyB,
		BalanceA:  c.BalanceA,
		BalanceB:  c.BalanceB,
		Iteration: c.Iteration,
		Closed:    c.Closed,
	}
}

// IdentityInfo is an identity record and the address it is stored at.
type IdentityInfo struct {
	Address     *keypair.FromAddress `json:"address"`
	DisplayName string               `json:"display_name"`
	OwningKey   *keypair.FromAddress `json:"owning_key"`
}

func newIdentityInfo(address *keypair.FromAddress, i state.Identity) IdentityInfo {
	return IdentityInfo{Address: address, DisplayName: i.DisplayName, OwningKey: i.OwningKey}
}

// Snapshot is every record held by the program, ordered by address.
type Snapshot struct {
	ProgramID  string         `json:"program_id"`
	Channels   []ChannelInfo  `json:"channels"`
	Identities []IdentityInfo `json:"identities"`
}

// Channel returns the channel at the address. The error wraps
// store.ErrNotFound if there is no channel at the address.
func (p *Program) Channel(ctx context.Context, address *keypair.FromAddress) (ChannelInfo, error) {
	info := ChannelInfo{}
	err := p.store.View(ctx, func(tx store.Tx) error {
		c, err := tx.Channel(address)
		if err != nil {
			return err
		}
		info = newChannelInfo(address, c)
		return nil
	})
	return info, err
}

// Identity returns the identity at the address. The error wraps
// store.ErrNotFound if there is no identity at the address.
func (p *Program) Identity(ctx context.Context, address *keypair.FromAddress) (IdentityInfo, error) {
	info := IdentityInfo{}
	err := p.store.View(ctx, func(tx store.Tx) error {
		i, err := tx.Identity(address)
		if err != nil {
			return err
		}
		info = newIdentityInfo(address, i)
		return nil
	})
	return info, err
}

func (p *Program) Snapshot(ctx context.Context) (Snapshot, error) {
	s := Snapshot{
		ProgramID:  p.programID,
		Channels:   []ChannelInfo{},
		Identities: []IdentityInfo{},
	}
	err := p.store.View(ctx, func(tx store.Tx) error {
		err := tx.ForEachChannel(func(address *keypair.FromAddress, c state.Channel) error {
			s.Channels = append(s.Channels, newChannelInfo(address, c))
			return nil
		})
		if err != nil {
			return err
		}
		return tx.ForEachIdentity(func(address *keypair.FromAddress, i state.Identity) error {
			s.Identities = append(s.Identities, newIdentityInfo(address, i))
			return nil
		})
	})
	if err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
