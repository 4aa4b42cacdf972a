package program

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// verifySignatures verifies every signature of the envelope against the
// instruction hash and returns the set of addresses that signed it.
func verifySignatures(hash InstructionHash, sigs []Signature) (map[string]bool, error) {
	for _, s := range sigs {
		if s.Signer == nil {
			return nil, fmt.Errorf("signature without signer: %w", ErrInvalidSignature)
		}
	}
	g := errgroup.Group{}
	for _, s := range sigs {
		s := s
		g.Go(func() error {
			if err := s.Signer.Verify(hash[:], s.Signature); err != nil {
				return fmt.Errorf("signature by %s: %w", s.Signer.Address(), ErrInvalidSignature)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	signers := make(map[string]bool, len(sigs))
	for _, s := range sigs {
		signers[s.Signer.Address()] = true
	}
	return signers, nil
}
