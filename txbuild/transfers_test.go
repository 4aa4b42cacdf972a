package txbuild

import (
	"testing"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfers(t *testing.T) {
	owner := keypair.MustRandom()
	a := keypair.MustRandom()
	b := keypair.MustRandom()

	tx, err := Transfers(TransfersParams{
		Source:         owner.FromAddress(),
		SequenceNumber: 101,
		BaseFee:        txnbuild.MinBaseFee,
		Payments: []Payment{
			{From: owner.FromAddress(), To: a.FromAddress(), Amount: 120},
			{From: owner.FromAddress(), To: b.FromAddress(), Amount: 30},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(101), tx.SequenceNumber())
	assert.Equal(t, owner.Address(), tx.SourceAccount().AccountID)

	ops := tx.Operations()
	require.Len(t, ops, 2)
	p0, ok := ops[0].(*txnbuild.Payment)
	require.True(t, ok)
	assert.Equal(t, owner.Address(), p0.SourceAccount)
	assert.Equal(t, a.Address(), p0.Destination)
	assert.Equal(t, amount.StringFromInt64(120), p0.Amount)
	assert.Equal(t, txnbuild.NativeAsset{}, p0.Asset)
	p1, ok := ops[1].(*txnbuild.Payment)
	require.True(t, ok)
	assert.Equal(t, b.Address(), p1.Destination)
	assert.Equal(t, amount.StringFromInt64(30), p1.Amount)

	// Every paying account and the source sign a single transaction.
	_, err = tx.Sign("test", owner)
	require.NoError(t, err)
}

func TestTransfers_paymentSources(t *testing.T) {
	owner := keypair.MustRandom()
	a := keypair.MustRandom()
	b := keypair.MustRandom()

	tx, err := Transfers(TransfersParams{
		Source:         owner.FromAddress(),
		SequenceNumber: 7,
		Asset:          txnbuild.CreditAsset{Code: "ETH", Issuer: "GBTYEE5BTST64JCBUXVAEEPQJAY3TNV47A5JFUMQKNDWUJRRT6LUVEQH"},
		Payments: []Payment{
			{From: a.FromAddress(), To: owner.FromAddress(), Amount: 100},
			{From: b.FromAddress(), To: owner.FromAddress(), Amount: 50},
		},
	})
	require.NoError(t, err)

	ops := tx.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, a.Address(), ops[0].GetSourceAccount())
	assert.Equal(t, b.Address(), ops[1].GetSourceAccount())
	assert.Equal(t, "ETH", ops[0].(*txnbuild.Payment).Asset.GetCode())
}

func TestTransfers_invalid(t *testing.T) {
	owner := keypair.MustRandom().FromAddress()
	a := keypair.MustRandom().FromAddress()

	_, err := Transfers(TransfersParams{Source: owner, SequenceNumber: 1})
	assert.EqualError(t, err, "invalid transfers: no payments")

	_, err = Transfers(TransfersParams{
		Source:         owner,
		SequenceNumber: 1,
		Payments:       []Payment{{From: owner, To: a, Amount: 0}},
	})
	assert.EqualError(t, err, "invalid payment 0: amount must be greater than 0")

	_, err = Transfers(TransfersParams{
		Source:         owner,
		SequenceNumber: -1,
		Payments:       []Payment{{From: owner, To: a, Amount: 1}},
	})
	assert.EqualError(t, err, "invalid sequence number: cannot be negative")
}

func TestCreateEscrow(t *testing.T) {
	creator := keypair.MustRandom()
	escrow := keypair.MustRandom()

	tx, err := CreateEscrow(CreateEscrowParams{
		Creator:         creator.FromAddress(),
		Escrow:          escrow.FromAddress(),
		SequenceNumber:  12,
		StartingBalance: 10_0000000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), tx.SequenceNumber())

	ops := tx.Operations()
	require.Len(t, ops, 1)
	op, ok := ops[0].(*txnbuild.CreateAccount)
	require.True(t, ok)
	assert.Equal(t, escrow.Address(), op.Destination)
	assert.Equal(t, "10.0000000", op.Amount)

	_, err = CreateEscrow(CreateEscrowParams{Creator: creator.FromAddress(), Escrow: escrow.FromAddress()})
	assert.EqualError(t, err, "invalid starting balance: must be greater than 0")
}
