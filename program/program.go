// Package program processes signed instructions that register identities,
// and open, reallocate and close escrowed payment channels.
//
// Each instruction is processed in a single store transaction. Signatures are
// verified before the transaction begins. The instruction's ID is recorded in
// the same transaction as the records it changes, so that an instruction
// that is processed cannot be processed again, and an instruction that fails
// can be corrected and resubmitted with the same ID.
//
// Transfers of funds are executed on the ledger as a single batch before the
// store transaction commits. If the batch fails the store transaction is
// discarded.
package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stellar/escrowchannel/ledger"
	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"go.uber.org/zap"
)

var (
	// ErrWrongProgram indicates an instruction addressed to another program.
	ErrWrongProgram = errors.New("instruction for another program")

	// ErrInvalidSignature indicates a signature that does not verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMissingSignature indicates a required signer has not signed.
	ErrMissingSignature = errors.New("missing signature")

	// ErrReplayed indicates an instruction that has already been processed.
	ErrReplayed = errors.New("instruction already processed")

	// ErrUnknownInstruction indicates an instruction type the program does
	// not process.
	ErrUnknownInstruction = errors.New("unknown instruction")

	// ErrMalformedInstruction indicates an instruction missing an ID, an
	// operation or an account.
	ErrMalformedInstruction = errors.New("malformed instruction")
)

// Config contains the collaborators and policy of a program.
type Config struct {
	// ProgramID namespaces the instructions the program accepts. Signatures
	// are bound to it.
	ProgramID string

	Ledger ledger.Ledger
	Store  store.Store
	Policy state.Policy
	Logger *zap.SugaredLogger
}

// Program processes instructions. It is safe for concurrent use.
type Program struct {
	programID string
	ledger    ledger.Ledger
	store     store.Store
	policy    state.Policy
	logger    *zap.SugaredLogger
}

func NewProgram(c Config) *Program {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Program{
		programID: c.ProgramID,
		ledger:    c.Ledger,
		store:     c.Store,
		policy:    c.Policy,
		logger:    logger.Named("program"),
	}
}

func (p *Program) ProgramID() string {
	return p.programID
}

// Result is the outcome of a processed instruction, and contains the record
// the instruction created or changed.
type Result struct {
	InstructionID uuid.UUID       `json:"instruction_id"`
	Hash          InstructionHash `json:"hash"`
	Type          InstructionType `json:"type"`
	Channel       *ChannelInfo    `json:"channel,omitempty"`
	Identity      *IdentityInfo   `json:"identity,omitempty"`
}

// Process verifies and processes the instruction in the envelope.
func (p *Program) Process(ctx context.Context, e Envelope) (Result, error) {
	i := e.Instruction
	if i.ProgramID != p.programID {
		return Result{}, fmt.Errorf("program id %q expected %q: %w", i.ProgramID, p.programID, ErrWrongProgram)
	}
	if err := i.Validate(); err != nil {
		return Result{}, err
	}

	hash, err := i.Hash(p.programID)
	if err != nil {
		return Result{}, err
	}
	signers, err := verifySignatures(hash, e.Signatures)
	if err != nil {
		return Result{}, err
	}
	for _, s := range i.RequiredSigners() {
		if !signers[s.Address()] {
			return Result{}, fmt.Errorf("%s not signed by %s: %w", i.Type, s.Address(), ErrMissingSignature)
		}
	}

	log := p.logger.With("instruction", i.ID.String(), "type", string(i.Type), "hash", hash.String())
	result := Result{InstructionID: i.ID, Hash: hash, Type: i.Type}
	err = p.store.Update(ctx, func(tx store.Tx) error {
		err := tx.MarkProcessed(i.ID.String())
		if errors.Is(err, store.ErrRecordExists) {
			return fmt.Errorf("instruction %s: %w", i.ID, ErrReplayed)
		}
		if err != nil {
			return err
		}
		switch i.Type {
		case TypeRegisterIdentity:
			result.Identity, err = p.registerIdentity(tx, i.RegisterIdentity)
		case TypeOpenChannel:
			result.Channel, err = p.openChannel(ctx, tx, i.OpenChannel)
		case TypeReallocateBalance:
			result.Channel, err = p.reallocateBalance(tx, i.ReallocateBalance)
		case TypeCloseChannel:
			result.Channel, err = p.closeChannel(ctx, tx, i.CloseChannel)
		default:
			err = fmt.Errorf("type %q: %w", i.Type, ErrUnknownInstruction)
		}
		return err
	})
	if err != nil {
		log.Infow("instruction rejected", "error", err)
		return Result{}, err
	}
	log.Infow("instruction processed")
	return result, nil
}

func (p *Program) registerIdentity(tx store.Tx, op *RegisterIdentity) (*IdentityInfo, error) {
	identity, err := state.Register(op.Party, op.DisplayName)
	if err != nil {
		return nil, err
	}
	if err := tx.InsertIdentity(op.Identity, identity); err != nil {
		return nil, fmt.Errorf("registering identity: %w", err)
	}
	info := newIdentityInfo(op.Identity, identity)
	return &info, nil
}

func (p *Program) openChannel(ctx context.Context, tx store.Tx, op *OpenChannel) (*ChannelInfo, error) {
	fundsA, err := p.ledger.Balance(ctx, op.PartyA)
	if err != nil {
		return nil, fmt.Errorf("getting balance of party a: %w", err)
	}
	fundsB, err := p.ledger.Balance(ctx, op.PartyB)
	if err != nil {
		return nil, fmt.Errorf("getting balance of party b: %w", err)
	}

	c, transfers, err := state.Open(state.OpenParams{
		Owner:         op.Owner,
		PartyA:        op.PartyA,
		ContributionA: op.ContributionA,
		PartyB:        op.PartyB,
		ContributionB: op.ContributionB,
	}, state.Funds{A: fundsA, B: fundsB})
	if err != nil {
		return nil, err
	}
	if err := tx.InsertChannel(op.Channel, c); err != nil {
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := p.ledger.Execute(ctx, transfers); err != nil {
		return nil, fmt.Errorf("moving contributions into escrow: %w", err)
	}
	p.logger.Infow("channel opened",
		"channel", op.Channel.Address(),
		"owner", op.Owner.Address(),
		"balance_a", c.BalanceA,
		"balance_b", c.BalanceB,
	)
	info := newChannelInfo(op.Channel, c)
	return &info, nil
}

func (p *Program) reallocateBalance(tx store.Tx, op *ReallocateBalance) (*ChannelInfo, error) {
	c, err := tx.Channel(op.Channel)
	if err != nil {
		return nil, err
	}
	c, err = c.Reallocate(state.ReallocateParams{
		Signer1:     op.Signer1,
		Signer2:     op.Signer2,
		NewBalanceA: op.NewBalanceA,
		NewBalanceB: op.NewBalanceB,
	}, p.policy)
	if err != nil {
		return nil, err
	}
	if err := tx.UpdateChannel(op.Channel, c); err != nil {
		return nil, err
	}
	p.logger.Infow("channel balances reallocated",
		"channel", op.Channel.Address(),
		"iteration", c.Iteration,
		"balance_a", c.BalanceA,
		"balance_b", c.BalanceB,
	)
	info := newChannelInfo(op.Channel, c)
	return &info, nil
}

func (p *Program) closeChannel(ctx context.Context, tx store.Tx, op *CloseChannel) (*ChannelInfo, error) {
	c, err := tx.Channel(op.Channel)
	if err != nil {
		return nil, err
	}
	closed, transfers, err := c.Close(state.CloseParams{
		Owner:      op.Owner,
		Signer:     op.Signer,
		RecipientA: op.RecipientA,
		RecipientB: op.RecipientB,
	}, p.policy)
	if err != nil {
		return nil, err
	}
	for _, t := range transfers {
		if err := p.ledger.Payable(ctx, t.To); err != nil {
			return nil, fmt.Errorf("checking recipient: %w", err)
		}
	}
	if len(transfers) > 0 {
		if err := p.ledger.Execute(ctx, transfers); err != nil {
			return nil, fmt.Errorf("paying out balances: %w", err)
		}
	}
	if err := tx.UpdateChannel(op.Channel, closed); err != nil {
		return nil, err
	}
	p.logger.Infow("channel closed",
		"channel", op.Channel.Address(),
		"signer", op.Signer.Address(),
		"paid_a", c.BalanceA,
		"paid_b", c.BalanceB,
	)
	info := newChannelInfo(op.Channel, closed)
	return &info, nil
}
