package program

import (
	"encoding/hex"
	"fmt"
)

// InstructionHash is the hash of an instruction bound to a program, and is
// what signers of the instruction sign. It is encoded as hex in JSON.
type InstructionHash [32]byte

func (h InstructionHash) String() string {
	return hex.EncodeToString(h[:])
}

func (h InstructionHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *InstructionHash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decoding instruction hash: %w", err)
	}
	if len(b) != len(h) {
		return fmt.Errorf("decoding instruction hash: %d bytes expected %d", len(b), len(h))
	}
	copy(h[:], b)
	return nil
}
