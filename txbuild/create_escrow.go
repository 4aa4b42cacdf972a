package txbuild

import (
	"errors"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

type CreateEscrowParams struct {
	Creator         *keypair.FromAddress
	Escrow          *keypair.FromAddress
	SequenceNumber  int64
	StartingBalance int64
}

// CreateEscrow builds a transaction that creates the owner's escrow account,
// funded by the creator with the starting balance. The escrow account holds
// the contributions of every channel the owner opens.
func CreateEscrow(p CreateEscrowParams) (*txnbuild.Transaction, error) {
	if p.StartingBalance <= 0 {
		return nil, errors.New("invalid starting balance: must be greater than 0")
	}
	tx, err := txnbuild.NewTransaction(
		txnbuild.TransactionParams{
			SourceAccount: &txnbuild.SimpleAccount{
				AccountID: p.Creator.Address(),
				Sequence:  p.SequenceNumber,
			},
			BaseFee: txnbuild.MinBaseFee,
			Preconditions: txnbuild.Preconditions{
				TimeBounds: txnbuild.NewTimeout(300),
			},
			Operations: []txnbuild.Operation{
				&txnbuild.CreateAccount{
					Destination: p.Escrow.Address(),
					Amount:      amount.StringFromInt64(p.StartingBalance),
				},
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
