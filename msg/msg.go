// Package msg contains the JSON encoding of the messages exchanged between
// the program's HTTP surface and its clients.
package msg

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/stellar/escrowchannel/program"
)

type Encoder = json.Encoder

func NewEncoder(w io.Writer) *Encoder {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e
}

type Decoder = json.Decoder

// NewDecoder returns a decoder that rejects unknown fields.
func NewDecoder(r io.Reader) *Decoder {
	d := json.NewDecoder(r)
	d.DisallowUnknownFields()
	return d
}

// Error is the body of an unsuccessful response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ReadEnvelope decodes a single envelope.
func ReadEnvelope(r io.Reader) (program.Envelope, error) {
	e := program.Envelope{}
	err := NewDecoder(r).Decode(&e)
	if err != nil {
		return program.Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return e, nil
}

// WriteEnvelope encodes the envelope.
func WriteEnvelope(w io.Writer, e program.Envelope) error {
	err := NewEncoder(w).Encode(e)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	return nil
}
