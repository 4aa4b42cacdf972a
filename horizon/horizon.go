// Package horizon contains a ledger that holds balances on the Stellar
// network, read and written through a Horizon instance.
package horizon

import (
	"fmt"

	"github.com/stellar/escrowchannel/submit"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/protocols/horizon"
)

// Horizon is a thin wrapper around a Horizon client that provides the
// account lookups and transaction submission used by the ledger.
type Horizon struct {
	HorizonClient horizonclient.ClientInterface
}

func (h *Horizon) account(accountID *keypair.FromAddress) (horizon.Account, error) {
	account, err := h.HorizonClient.AccountDetail(horizonclient.AccountRequest{AccountID: accountID.Address()})
	if err != nil {
		return horizon.Account{}, fmt.Errorf("getting account details of %s: %w", accountID.Address(), err)
	}
	return account, nil
}

// GetBalance returns the native balance of the account in stroops.
func (h *Horizon) GetBalance(accountID *keypair.FromAddress) (int64, error) {
	account, err := h.account(accountID)
	if err != nil {
		return 0, err
	}
	for _, b := range account.Balances {
		if b.Asset.Type != "native" {
			continue
		}
		balance, err := amount.ParseInt64(b.Balance)
		if err != nil {
			return 0, fmt.Errorf("parsing native balance of %s: %w", accountID.Address(), err)
		}
		return balance, nil
	}
	return 0, nil
}

func (h *Horizon) GetSequenceNumber(accountID *keypair.FromAddress) (int64, error) {
	account, err := h.account(accountID)
	if err != nil {
		return 0, err
	}
	seqNum, err := account.GetSequenceNumber()
	if err != nil {
		return 0, fmt.Errorf("getting sequence number of account %s: %w", accountID.Address(), err)
	}
	return seqNum, nil
}

func (h *Horizon) SubmitTx(xdr string) error {
	_, err := h.HorizonClient.SubmitTransactionXDR(xdr)
	if err != nil {
		return fmt.Errorf("submitting tx: %w", submit.BuildErr(err))
	}
	return nil
}
