package horizon

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stellar/escrowchannel/ledger"
	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/submit"
	"github.com/stellar/escrowchannel/txbuild"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"go.uber.org/zap"
)

var _ ledger.Ledger = (*Ledger)(nil)

// Config contains the information needed to read and write balances through
// Horizon.
type Config struct {
	HorizonClient     horizonclient.ClientInterface
	NetworkPassphrase string

	// BaseFee is the base fee of transfer transactions. Transactions with a
	// base fee below the Submitter's base fee are wrapped in a fee bump.
	BaseFee int64

	// Signers are the keys the ledger signs transfers with. Every account
	// that funds are transferred from must have a signer.
	Signers []*keypair.Full

	// Submitter submits transfer transactions. If nil, transactions are
	// submitted to the HorizonClient without fee bumps.
	Submitter TxSubmitter

	Logger *zap.SugaredLogger
}

// TxSubmitter submits a transaction to the network and returns its hash.
type TxSubmitter interface {
	SubmitTx(tx *txnbuild.Transaction) (string, error)
}

// Ledger is a ledger backed by native balances of Stellar accounts. A batch
// of transfers is submitted as a single transaction with one payment
// operation per transfer, and is applied atomically by the network.
type Ledger struct {
	horizon           *Horizon
	networkPassphrase string
	baseFee           int64
	signers           map[string]*keypair.Full
	submitter         TxSubmitter
	logger            *zap.SugaredLogger
}

func NewLedger(c Config) *Ledger {
	h := &Horizon{HorizonClient: c.HorizonClient}
	l := &Ledger{
		horizon:           h,
		networkPassphrase: c.NetworkPassphrase,
		baseFee:           c.BaseFee,
		signers:           map[string]*keypair.Full{},
		submitter:         c.Submitter,
		logger:            c.Logger,
	}
	for _, s := range c.Signers {
		l.signers[s.Address()] = s
	}
	if l.submitter == nil {
		l.submitter = &submit.Submitter{
			SubmitTxer:        h,
			NetworkPassphrase: c.NetworkPassphrase,
			Logger:            c.Logger,
		}
	}
	if l.logger == nil {
		l.logger = zap.NewNop().Sugar()
	}
	l.logger = l.logger.Named("horizon")
	return l
}

// Balance returns the native balance of the account in stroops.
func (l *Ledger) Balance(ctx context.Context, a *keypair.FromAddress) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	balance, err := l.horizon.GetBalance(a)
	if notFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if balance < 0 {
		return 0, fmt.Errorf("negative balance %d of %s", balance, a.Address())
	}
	return uint64(balance), nil
}

// Payable returns an error wrapping ledger.ErrNotPayable if the account does
// not exist on the network. Payments to missing accounts fail.
func (l *Ledger) Payable(ctx context.Context, a *keypair.FromAddress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := l.horizon.account(a)
	if notFound(err) {
		return fmt.Errorf("account %s does not exist: %w", a.Address(), ledger.ErrNotPayable)
	}
	return err
}

// Execute submits the transfers as a single transaction. The transaction's
// source account is the account of the first transfer.
func (l *Ledger) Execute(ctx context.Context, transfers []state.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(transfers) == 0 {
		return nil
	}

	payments := make([]txbuild.Payment, 0, len(transfers))
	outgoing := map[string]int64{}
	senders := []*keypair.FromAddress{}
	signers := []*keypair.Full{}
	for i, t := range transfers {
		v, err := stroops(t.Amount)
		if err != nil {
			return fmt.Errorf("transfer %d: %w", i, err)
		}
		payments = append(payments, txbuild.Payment{From: t.From, To: t.To, Amount: v})

		from := t.From.Address()
		if _, seen := outgoing[from]; !seen {
			s, ok := l.signers[from]
			if !ok {
				return fmt.Errorf("transfer %d: no signer for account %s", i, from)
			}
			signers = append(signers, s)
			senders = append(senders, t.From)
		}
		if outgoing[from] > math.MaxInt64-v {
			return fmt.Errorf("transfer %d: outgoing total of %s overflows", i, from)
		}
		outgoing[from] += v
	}

	for _, from := range senders {
		balance, err := l.horizon.GetBalance(from)
		if err != nil {
			return err
		}
		total := outgoing[from.Address()]
		if balance < total {
			return fmt.Errorf("account %s balance %d below outgoing %d: %w",
				from.Address(), balance, total, state.ErrInsufficientFunds)
		}
	}

	source := transfers[0].From
	seqNum, err := l.horizon.GetSequenceNumber(source)
	if err != nil {
		return err
	}
	tx, err := txbuild.Transfers(txbuild.TransfersParams{
		Source:         source,
		SequenceNumber: seqNum + 1,
		BaseFee:        l.baseFee,
		Payments:       payments,
	})
	if err != nil {
		return fmt.Errorf("building transfers tx: %w", err)
	}
	tx, err = tx.Sign(l.networkPassphrase, signers...)
	if err != nil {
		return fmt.Errorf("signing transfers tx: %w", err)
	}
	hash, err := l.submitter.SubmitTx(tx)
	if err != nil {
		if underfunded(err) {
			return fmt.Errorf("%v: %w", err, state.ErrInsufficientFunds)
		}
		return err
	}
	l.logger.Infow("transfers submitted", "hash", hash, "source", source.Address(), "payments", len(payments))
	return nil
}

func notFound(err error) bool {
	var hErr *horizonclient.Error
	return errors.As(err, &hErr) && horizonclient.IsNotFoundError(hErr)
}

func stroops(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("amount %d exceeds max amount %d", v, int64(math.MaxInt64))
	}
	return int64(v), nil
}

// underfunded returns true if the error is a Horizon transaction failure
// with an operation failing because its source account is underfunded.
func underfunded(err error) bool {
	var hErr *horizonclient.Error
	if !errors.As(err, &hErr) {
		return false
	}
	codes, err := hErr.ResultCodes()
	if err != nil {
		return false
	}
	for _, c := range codes.OperationCodes {
		if c == "op_underfunded" {
			return true
		}
	}
	return false
}
