package msg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stellar/escrowchannel/program"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_readWrite(t *testing.T) {
	owner := keypair.MustRandom()
	signer := keypair.MustRandom()
	i, err := program.NewInstruction("escrow", &program.CloseChannel{
		Channel:    keypair.MustRandom().FromAddress(),
		Owner:      owner.FromAddress(),
		Signer:     signer.FromAddress(),
		RecipientA: signer.FromAddress(),
		RecipientB: keypair.MustRandom().FromAddress(),
	})
	require.NoError(t, err)
	e, err := program.Envelope{Instruction: i}.Sign("escrow", owner, signer)
	require.NoError(t, err)

	buf := bytes.Buffer{}
	require.NoError(t, WriteEnvelope(&buf, e))
	assert.Contains(t, buf.String(), `"type": "close_channel"`)

	got, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, e.Instruction.ID, got.Instruction.ID)
	assert.Equal(t, owner.Address(), got.Instruction.CloseChannel.Owner.Address())
	require.Len(t, got.Signatures, 2)
	assert.Equal(t, e.Signatures[1].Signature, got.Signatures[1].Signature)
}

func TestReadEnvelope_unknownField(t *testing.T) {
	_, err := ReadEnvelope(strings.NewReader(`{"instruction":{},"signatures":[],"extra":1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}
