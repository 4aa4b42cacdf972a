// Package submit contains a submitter that sends transactions to the Stellar
// network, paying fees on behalf of transactions that do not pay enough.
package submit

import (
	"fmt"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"go.uber.org/zap"
)

// SubmitTxer is an implementation of submitting transaction XDR to the network.
type SubmitTxer interface {
	SubmitTx(xdr string) error
}

// Submitter submits transactions to the network. If a transaction has a base
// fee below the submitter's base fee, the transaction is wrapped in a fee bump
// transaction paid for by the FeeAccount.
type Submitter struct {
	SubmitTxer        SubmitTxer
	NetworkPassphrase string
	BaseFee           int64
	FeeAccount        *keypair.FromAddress
	FeeAccountSigners []*keypair.Full
	Logger            *zap.SugaredLogger
}

// SubmitTx submits the transaction, and returns the hash of the transaction
// that was submitted, which is the fee bump transaction's hash if the
// transaction was wrapped.
func (s *Submitter) SubmitTx(tx *txnbuild.Transaction) (string, error) {
	if tx.BaseFee() < s.BaseFee {
		return s.submitTxWithFeeBump(tx)
	}
	return s.submitTx(tx)
}

func (s *Submitter) submitTx(tx *txnbuild.Transaction) (string, error) {
	hash, err := tx.HashHex(s.NetworkPassphrase)
	if err != nil {
		return "", fmt.Errorf("hashing tx: %w", err)
	}
	txeBase64, err := tx.Base64()
	if err != nil {
		return "", fmt.Errorf("encoding tx as base64: %w", err)
	}
	s.logger().Debugw("submitting tx", "hash", hash)
	err = s.SubmitTxer.SubmitTx(txeBase64)
	if err != nil {
		return "", fmt.Errorf("submitting tx %s: %w", hash, BuildErr(err))
	}
	return hash, nil
}

func (s *Submitter) submitTxWithFeeBump(tx *txnbuild.Transaction) (string, error) {
	if s.FeeAccount == nil {
		return "", fmt.Errorf("tx base fee %d below %d and no fee account configured", tx.BaseFee(), s.BaseFee)
	}
	feeBumpTx, err := txnbuild.NewFeeBumpTransaction(txnbuild.FeeBumpTransactionParams{
		Inner:      tx,
		BaseFee:    s.BaseFee,
		FeeAccount: s.FeeAccount.Address(),
	})
	if err != nil {
		return "", fmt.Errorf("building fee bump tx: %w", err)
	}
	feeBumpTx, err = feeBumpTx.Sign(s.NetworkPassphrase, s.FeeAccountSigners...)
	if err != nil {
		return "", fmt.Errorf("signing fee bump tx: %w", err)
	}
	hash, err := feeBumpTx.HashHex(s.NetworkPassphrase)
	if err != nil {
		return "", fmt.Errorf("hashing fee bump tx: %w", err)
	}
	txeBase64, err := feeBumpTx.Base64()
	if err != nil {
		return "", fmt.Errorf("encoding fee bump tx as base64: %w", err)
	}
	s.logger().Debugw("submitting fee bump tx", "hash", hash, "fee_account", s.FeeAccount.Address())
	err = s.SubmitTxer.SubmitTx(txeBase64)
	if err != nil {
		return "", fmt.Errorf("submitting fee bump tx %s: %w", hash, BuildErr(err))
	}
	return hash, nil
}

func (s *Submitter) logger() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger
}

// BuildErr appends the transaction result string of a Horizon problem to the
// error, if the error is a Horizon error.
func BuildErr(err error) error {
	if hErr := horizonclient.GetError(err); hErr != nil {
		resultString, rErr := hErr.ResultString()
		if rErr != nil {
			resultString = "<error getting result string: " + rErr.Error() + ">"
		}
		return fmt.Errorf("%w (%v)", err, resultString)
	}
	return err
}
