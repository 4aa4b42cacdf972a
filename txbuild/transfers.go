package txbuild

import (
	"errors"
	"fmt"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

// Payment is a payment of an amount, in stroops, from one account to another.
type Payment struct {
	From   *keypair.FromAddress
	To     *keypair.FromAddress
	Amount int64
}

type TransfersParams struct {
	Source         *keypair.FromAddress
	SequenceNumber int64
	BaseFee        int64
	Asset          txnbuild.Asset
	Payments       []Payment
}

// Transfers builds a transaction containing one payment operation per
// payment. Each operation's source account is the paying account, so the
// transaction must be signed by every paying account as well as the source.
// Stellar transactions are atomic, either every payment is applied or none
// are.
func Transfers(p TransfersParams) (*txnbuild.Transaction, error) {
	if len(p.Payments) == 0 {
		return nil, errors.New("invalid transfers: no payments")
	}
	if p.SequenceNumber < 0 {
		return nil, errors.New("invalid sequence number: cannot be negative")
	}
	asset := p.Asset
	if asset == nil {
		asset = txnbuild.NativeAsset{}
	}

	ops := make([]txnbuild.Operation, 0, len(p.Payments))
	for i, payment := range p.Payments {
		if payment.Amount <= 0 {
			return nil, fmt.Errorf("invalid payment %d: amount must be greater than 0", i)
		}
		ops = append(ops, &txnbuild.Payment{
			SourceAccount: payment.From.Address(),
			Destination:   payment.To.Address(),
			Asset:         asset,
			Amount:        amount.StringFromInt64(payment.Amount),
		})
	}

	tx, err := txnbuild.NewTransaction(
		txnbuild.TransactionParams{
			SourceAccount: &txnbuild.SimpleAccount{
				AccountID: p.Source.Address(),
				Sequence:  p.SequenceNumber,
			},
			BaseFee: p.BaseFee,
			Preconditions: txnbuild.Preconditions{
				TimeBounds: txnbuild.NewTimeout(300),
			},
			Operations: ops,
		},
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
