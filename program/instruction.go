package program

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stellar/go/keypair"
)

type InstructionType string

const (
	TypeRegisterIdentity  = InstructionType("register_identity")
	TypeOpenChannel       = InstructionType("open_channel")
	TypeReallocateBalance = InstructionType("reallocate_balance")
	TypeCloseChannel      = InstructionType("close_channel")
)

// Instruction is a request to the program. Exactly one of the operation
// fields is set, matching the Type.
type Instruction struct {
	// ID identifies the instruction. An instruction with an ID that has
	// already been processed is rejected.
	ID        uuid.UUID       `json:"id"`
	ProgramID string          `json:"program_id"`
	Type      InstructionType `json:"type"`

	RegisterIdentity  *RegisterIdentity  `json:"register_identity,omitempty"`
	OpenChannel       *OpenChannel       `json:"open_channel,omitempty"`
	ReallocateBalance *ReallocateBalance `json:"reallocate_balance,omitempty"`
	CloseChannel      *CloseChannel      `json:"close_channel,omitempty"`
}

// RegisterIdentity registers a display name for the party at the identity
// record address.
type RegisterIdentity struct {
	Identity    *keypair.FromAddress `json:"identity"`
	Party       *keypair.FromAddress `json:"party"`
	DisplayName string               `json:"display_name"`
}

// OpenChannel opens a channel at the channel record address, moving each
// party's contribution into escrow held by the owner.
type OpenChannel struct {
	Channel       *keypair.FromAddress `json:"channel"`
	Owner         *keypair.FromAddress `json:"owner"`
	PartyA        *keypair.FromAddress `json:"party_a"`
	ContributionA uint64               `json:"contribution_a"`
	PartyB        *keypair.FromAddress `json:"party_b"`
	ContributionB uint64               `json:"contribution_b"`
}

// ReallocateBalance replaces the balances of the channel.
type ReallocateBalance struct {
	Channel     *keypair.FromAddress `json:"channel"`
	Signer1     *keypair.FromAddress `json:"signer_1"`
	Signer2     *keypair.FromAddress `json:"signer_2"`
	NewBalanceA uint64               `json:"new_balance_a"`
	NewBalanceB uint64               `json:"new_balance_b"`
}

// CloseChannel pays out the balances of the channel to the recipients and
// closes it.
type CloseChannel struct {
	Channel    *keypair.FromAddress `json:"channel"`
	Owner      *keypair.FromAddress `json:"owner"`
	Signer     *keypair.FromAddress `json:"signer"`
	RecipientA *keypair.FromAddress `json:"recipient_a"`
	RecipientB *keypair.FromAddress `json:"recipient_b"`
}

// NewInstruction returns an instruction of the type for the program with a
// new random ID. The operation must be one of *RegisterIdentity,
// *OpenChannel, *ReallocateBalance or *CloseChannel.
func NewInstruction(programID string, operation interface{}) (Instruction, error) {
	i := Instruction{ID: uuid.New(), ProgramID: programID}
	switch op := operation.(type) {
	case *RegisterIdentity:
		i.Type = TypeRegisterIdentity
		i.RegisterIdentity = op
	case *OpenChannel:
		i.Type = TypeOpenChannel
		i.OpenChannel = op
	case *ReallocateBalance:
		i.Type = TypeReallocateBalance
		i.ReallocateBalance = op
	case *CloseChannel:
		i.Type = TypeCloseChannel
		i.CloseChannel = op
	default:
		return Instruction{}, fmt.Errorf("operation %T: %w", operation, ErrUnknownInstruction)
	}
	return i, nil
}

// Validate checks the instruction is well formed: it has an ID, its
// operation matches its type, and every account of the operation is set.
func (i Instruction) Validate() error {
	if i.ID == uuid.Nil {
		return fmt.Errorf("missing id: %w", ErrMalformedInstruction)
	}
	var accounts []*keypair.FromAddress
	switch i.Type {
	case TypeRegisterIdentity:
		if i.RegisterIdentity == nil {
			return fmt.Errorf("missing %s: %w", i.Type, ErrMalformedInstruction)
		}
		op := i.RegisterIdentity
		accounts = []*keypair.FromAddress{op.Identity, op.Party}
	case TypeOpenChannel:
		if i.OpenChannel == nil {
			return fmt.Errorf("missing %s: %w", i.Type, ErrMalformedInstruction)
		}
		op := i.OpenChannel
		accounts = []*keypair.FromAddress{op.Channel, op.Owner, op.PartyA, op.PartyB}
	case TypeReallocateBalance:
		if i.ReallocateBalance == nil {
			return fmt.Errorf("missing %s: %w", i.Type, ErrMalformedInstruction)
		}
		op := i.ReallocateBalance
		accounts = []*keypair.FromAddress{op.Channel, op.Signer1, op.Signer2}
	case TypeCloseChannel:
		if i.CloseChannel == nil {
			return fmt.Errorf("missing %s: %w", i.Type, ErrMalformedInstruction)
		}
		op := i.CloseChannel
		accounts = []*keypair.FromAddress{op.Channel, op.Owner, op.Signer, op.RecipientA, op.RecipientB}
	default:
		return fmt.Errorf("type %q: %w", i.Type, ErrUnknownInstruction)
	}
	for n, a := range accounts {
		if a == nil {
			return fmt.Errorf("%s account %d missing: %w", i.Type, n, ErrMalformedInstruction)
		}
	}
	return nil
}

// RequiredSigners returns the accounts that must sign the instruction.
//
// Instructions that create a record must also be signed by the record's
// key, so a record address can only be claimed by whoever holds its key.
func (i Instruction) RequiredSigners() []*keypair.FromAddress {
	switch i.Type {
	case TypeRegisterIdentity:
		op := i.RegisterIdentity
		return []*keypair.FromAddress{op.Identity, op.Party}
	case TypeOpenChannel:
		op := i.OpenChannel
		return []*keypair.FromAddress{op.Channel, op.Owner, op.PartyA, op.PartyB}
	case TypeReallocateBalance:
		op := i.ReallocateBalance
		return []*keypair.FromAddress{op.Signer1, op.Signer2}
	case TypeCloseChannel:
		op := i.CloseChannel
		return []*keypair.FromAddress{op.Owner, op.Signer}
	}
	return nil
}

// Hash returns the hash that signers of the instruction sign for the
// program.
func (i Instruction) Hash(programID string) (InstructionHash, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return InstructionHash{}, fmt.Errorf("encoding instruction: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(programID))
	h.Write([]byte{0})
	h.Write(b)
	hash := InstructionHash{}
	copy(hash[:], h.Sum(nil))
	return hash, nil
}
