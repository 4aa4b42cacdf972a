// Package store defines the record store that channels, identities and
// processed instructions are persisted in.
//
// Every read-write transaction is serialized with every other read-write
// transaction, so the records read at the start of a transaction cannot
// change before it commits. A transaction commits only if its function
// returns nil.
package store

import (
	"context"
	"errors"

	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/go/keypair"
)

var (
	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrRecordExists indicates a record already exists at an address that
	// can only be written once.
	ErrRecordExists = errors.New("record exists")
)

// Store is a transactional record store.
type Store interface {
	// Update runs fn in a read-write transaction, committing if fn returns
	// nil and discarding every write otherwise.
	Update(ctx context.Context, fn func(Tx) error) error

	// View runs fn in a read-only transaction. Writes return an error.
	View(ctx context.Context, fn func(Tx) error) error

	Close() error
}

// Tx is a store transaction.
type Tx interface {
	Channel(address *keypair.FromAddress) (state.Channel, error)
	InsertChannel(address *keypair.FromAddress, c state.Channel) error
	UpdateChannel(address *keypair.FromAddress, c state.Channel) error

	Identity(address *keypair.FromAddress) (state.Identity, error)
	InsertIdentity(address *keypair.FromAddress, i state.Identity) error

	// MarkProcessed records an instruction ID as processed, and returns
	// ErrRecordExists if it has already been processed.
	MarkProcessed(id string) error

	ForEachChannel(fn func(address *keypair.FromAddress, c state.Channel) error) error
	ForEachIdentity(fn func(address *keypair.FromAddress, i state.Identity) error) error
}

// ErrReadOnly is returned by writes in a read-only transaction.
var ErrReadOnly = errors.New("read-only transaction")
