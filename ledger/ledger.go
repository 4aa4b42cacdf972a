// Package ledger defines the system of record that holds the funds escrowed in
// channels. The ledger is an external collaborator: the channel program only
// reads balances, checks that payout recipients can be paid, and asks the
// ledger to execute batches of transfers.
package ledger

import (
	"context"
	"errors"

	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/go/keypair"
)

// ErrNotPayable indicates an account that cannot receive funds, such as an
// account that does not exist or an account that is not a plain payment
// account.
var ErrNotPayable = errors.New("account is not payable")

// Ledger moves funds between accounts.
type Ledger interface {
	// Balance returns the funds available to the account.
	Balance(ctx context.Context, account *keypair.FromAddress) (uint64, error)

	// Payable returns nil if the account can receive funds, otherwise an
	// error wrapping ErrNotPayable.
	Payable(ctx context.Context, account *keypair.FromAddress) error

	// Execute executes the transfers as a single atomic unit. Either every
	// transfer is applied or none are. A transfer from an account that does
	// not hold enough funds fails the batch with an error wrapping
	// state.ErrInsufficientFunds.
	Execute(ctx context.Context, transfers []state.Transfer) error
}
