package state

import (
	"fmt"

	"github.com/stellar/go/keypair"
)

// Identity binds a display name to the key of the party that registered it.
// The display name is cosmetic and is not required to be unique.
type Identity struct {
	DisplayName string
	OwningKey   *keypair.FromAddress
}

// Register returns an identity owned by the requesting party.
func Register(party *keypair.FromAddress, displayName string) (Identity, error) {
	if party == nil {
		return Identity{}, fmt.Errorf("registering identity: %w", ErrInvalidParty)
	}
	return Identity{DisplayName: displayName, OwningKey: party}, nil
}
