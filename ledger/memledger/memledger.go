// Package memledger contains an in-memory ledger. Accounts are created
// implicitly when first funded and are payable unless marked otherwise.
package memledger

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/stellar/escrowchannel/ledger"
	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/go/keypair"
)

var _ ledger.Ledger = (*Ledger)(nil)

type account struct {
	balance    uint64
	notPayable bool
}

// Ledger is an in-memory ledger. It is safe for concurrent use, and every
// call is serialized.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]account
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{accounts: map[string]account{}}
}

// Fund credits the account with the amount, creating the account if it does
// not exist.
func (l *Ledger) Fund(a *keypair.FromAddress, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.accounts[a.Address()]
	balance, carry := bits.Add64(acc.balance, amount, 0)
	if carry != 0 {
		return fmt.Errorf("funding %s: balance overflows", a.Address())
	}
	acc.balance = balance
	l.accounts[a.Address()] = acc
	return nil
}

// Drain debits the account by the amount outside of any channel operation,
// simulating funds leaving the account by other means.
func (l *Ledger) Drain(a *keypair.FromAddress, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.accounts[a.Address()]
	if acc.balance < amount {
		return fmt.Errorf("draining %s: balance %d below amount %d: %w", a.Address(), acc.balance, amount, state.ErrInsufficientFunds)
	}
	acc.balance -= amount
	l.accounts[a.Address()] = acc
	return nil
}

// SetPayable marks whether the account can receive funds.
func (l *Ledger) SetPayable(a *keypair.FromAddress, payable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.accounts[a.Address()]
	acc.notPayable = !payable
	l.accounts[a.Address()] = acc
}

// Balance returns the balance of the account, zero if it does not exist.
func (l *Ledger) Balance(ctx context.Context, a *keypair.FromAddress) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[a.Address()].balance, nil
}

// Payable returns an error wrapping ledger.ErrNotPayable if the account has
// been marked not payable.
func (l *Ledger) Payable(ctx context.Context, a *keypair.FromAddress) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.accounts[a.Address()].notPayable {
		return fmt.Errorf("account %s: %w", a.Address(), ledger.ErrNotPayable)
	}
	return nil
}

// Execute applies the transfers in order to a copy of the affected accounts,
// and only replaces the accounts if every transfer succeeds.
func (l *Ledger) Execute(ctx context.Context, transfers []state.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	staged := map[string]account{}
	get := func(address string) account {
		if acc, ok := staged[address]; ok {
			return acc
		}
		return l.accounts[address]
	}

	for i, t := range transfers {
		from := get(t.From.Address())
		to := get(t.To.Address())
		if to.notPayable {
			return fmt.Errorf("transfer %d to %s: %w", i, t.To.Address(), ledger.ErrNotPayable)
		}
		if from.balance < t.Amount {
			return fmt.Errorf("transfer %d from %s: balance %d below amount %d: %w",
				i, t.From.Address(), from.balance, t.Amount, state.ErrInsufficientFunds)
		}
		from.balance -= t.Amount
		staged[t.From.Address()] = from

		// Re-read in case the transfer is to the same account.
		to = get(t.To.Address())
		balance, carry := bits.Add64(to.balance, t.Amount, 0)
		if carry != 0 {
			return fmt.Errorf("transfer %d to %s: balance overflows", i, t.To.Address())
		}
		to.balance = balance
		staged[t.To.Address()] = to
	}

	for address, acc := range staged {
		l.accounts[address] = acc
	}
	return nil
}
