package program

import (
	"fmt"

	"github.com/stellar/go/keypair"
)

// Signature is a signature of an instruction hash by a signer.
type Signature struct {
	Signer    *keypair.FromAddress `json:"signer"`
	Signature []byte               `json:"signature"`
}

// Envelope is an instruction and the signatures authorizing it. Signatures
// can be added incrementally by each party in turn.
type Envelope struct {
	Instruction Instruction `json:"instruction"`
	Signatures  []Signature `json:"signatures"`
}

// Sign returns a copy of the envelope with signatures of the instruction for
// the program added for each key that has not already signed it.
func (e Envelope) Sign(programID string, keys ...*keypair.Full) (Envelope, error) {
	hash, err := e.Instruction.Hash(programID)
	if err != nil {
		return Envelope{}, err
	}
	signed := map[string]bool{}
	sigs := make([]Signature, 0, len(e.Signatures)+len(keys))
	for _, s := range e.Signatures {
		if s.Signer != nil {
			signed[s.Signer.Address()] = true
		}
		sigs = append(sigs, s)
	}
	for _, k := range keys {
		if signed[k.Address()] {
			continue
		}
		sig, err := k.Sign(hash[:])
		if err != nil {
			return Envelope{}, fmt.Errorf("signing instruction with %s: %w", k.Address(), err)
		}
		sigs = append(sigs, Signature{Signer: k.FromAddress(), Signature: sig})
		signed[k.Address()] = true
	}
	e.Signatures = sigs
	return e, nil
}
