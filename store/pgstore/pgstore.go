// Package pgstore contains a record store persisted in Postgres.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/go/keypair"
)

var _ store.Store = (*Store)(nil)

// updateLockKey is the advisory lock every read-write transaction holds
// until it commits or rolls back.
const updateLockKey = 0x65736372

const schema = `
CREATE TABLE IF NOT EXISTS escrow_channels (
	address   TEXT PRIMARY KEY,
	owner     TEXT NOT NULL,
	party_a   TEXT NOT NULL,
	party_b   TEXT NOT NULL,
	balance_a NUMERIC(20, 0) NOT NULL,
	balance_b NUMERIC(20, 0) NOT NULL,
	iteration BIGINT NOT NULL,
	closed    BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS escrow_identities (
	address      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	owning_key   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS escrow_processed_instructions (
	id           TEXT PRIMARY KEY,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// uniqueViolation is the Postgres error code for a unique constraint
// violation.
const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

// Open connects to the Postgres database at the URL.
func Open(dbURL string) (*Store, error) {
	parts := strings.Split(dbURL, "://")
	if len(parts) != 2 {
		return nil, errors.New("mal-formed database URL")
	}
	if parts[0] != "postgres" && parts[0] != "postgresql" {
		return nil, errors.New("only postgres databases are supported")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Store{db: db}, nil
}

// Connect checks the database is reachable.
func (s *Store) Connect(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the store's tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	return transact(ctx, s.db, nil, func(sqlTx *sql.Tx) error {
		_, err := sqlTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", updateLockKey)
		if err != nil {
			return fmt.Errorf("acquiring update lock: %w", err)
		}
		return fn(&tx{ctx: ctx, tx: sqlTx})
	})
}

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	return transact(ctx, s.db, &sql.TxOptions{ReadOnly: true}, func(sqlTx *sql.Tx) error {
		return fn(&tx{ctx: ctx, tx: sqlTx, readOnly: true})
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type rawChannel struct {
	Owner     string
	PartyA    string
	PartyB    string
	BalanceA  string
	BalanceB  string
	Iteration int64
	Closed    bool
}

func (t *tx) Channel(address *keypair.FromAddress) (state.Channel, error) {
	query := `
		SELECT owner, party_a, party_b, balance_a, balance_b, iteration, closed
		FROM escrow_channels WHERE address = $1`
	if !t.readOnly {
		query += " FOR UPDATE"
	}
	raw := rawChannel{}
	err := t.tx.QueryRowContext(t.ctx, query, address.Address()).Scan(
		&raw.Owner, &raw.PartyA, &raw.PartyB, &raw.BalanceA, &raw.BalanceB, &raw.Iteration, &raw.Closed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Channel{}, fmt.Errorf("channel %s: %w", address.Address(), store.ErrNotFound)
	}
	if err != nil {
		return state.Channel{}, fmt.Errorf("selecting channel %s: %w", address.Address(), err)
	}
	return deserChannel(raw)
}

func deserChannel(raw rawChannel) (state.Channel, error) {
	balanceA, err := strconv.ParseUint(raw.BalanceA, 10, 64)
	if err != nil {
		return state.Channel{}, fmt.Errorf("parsing balance a: %w", err)
	}
	balanceB, err := strconv.ParseUint(raw.BalanceB, 10, 64)
	if err != nil {
		return state.Channel{}, fmt.Errorf("parsing balance b: %w", err)
	}
	return store.ChannelRecord{
		Owner:     raw.Owner,
		PartyA:    raw.PartyA,
		PartyB:    raw.PartyB,
		BalanceA:  balanceA,
		BalanceB:  balanceB,
		Iteration: raw.Iteration,
		Closed:    raw.Closed,
	}.Channel()
}

func (t *tx) InsertChannel(address *keypair.FromAddress, c state.Channel) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	r := store.NewChannelRecord(c)
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO escrow_channels (address, owner, party_a, party_b, balance_a, balance_b, iteration, closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		address.Address(), r.Owner, r.PartyA, r.PartyB,
		strconv.FormatUint(r.BalanceA, 10), strconv.FormatUint(r.BalanceB, 10),
		r.Iteration, r.Closed,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("channel %s: %w", address.Address(), store.ErrRecordExists)
	}
	if err != nil {
		return fmt.Errorf("inserting channel %s: %w", address.Address(), err)
	}
	return nil
}

func (t *tx) UpdateChannel(address *keypair.FromAddress, c state.Channel) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	r := store.NewChannelRecord(c)
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE escrow_channels
		SET owner = $2, party_a = $3, party_b = $4, balance_a = $5, balance_b = $6, iteration = $7, closed = $8
		WHERE address = $1`,
		address.Address(), r.Owner, r.PartyA, r.PartyB,
		strconv.FormatUint(r.BalanceA, 10), strconv.FormatUint(r.BalanceB, 10),
		r.Iteration, r.Closed,
	)
	if err != nil {
		return fmt.Errorf("updating channel %s: %w", address.Address(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating channel %s: %w", address.Address(), err)
	}
	if n == 0 {
		return fmt.Errorf("channel %s: %w", address.Address(), store.ErrNotFound)
	}
	return nil
}

func (t *tx) Identity(address *keypair.FromAddress) (state.Identity, error) {
	r := store.IdentityRecord{}
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT display_name, owning_key FROM escrow_identities WHERE address = $1`,
		address.Address(),
	).Scan(&r.DisplayName, &r.OwningKey)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Identity{}, fmt.Errorf("identity %s: %w", address.Address(), store.ErrNotFound)
	}
	if err != nil {
		return state.Identity{}, fmt.Errorf("selecting identity %s: %w", address.Address(), err)
	}
	return r.Identity()
}

func (t *tx) InsertIdentity(address *keypair.FromAddress, i state.Identity) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	r := store.NewIdentityRecord(i)
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO escrow_identities (address, display_name, owning_key) VALUES ($1, $2, $3)`,
		address.Address(), r.DisplayName, r.OwningKey,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("identity %s: %w", address.Address(), store.ErrRecordExists)
	}
	if err != nil {
		return fmt.Errorf("inserting identity %s: %w", address.Address(), err)
	}
	return nil
}

func (t *tx) MarkProcessed(id string) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	res, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO escrow_processed_instructions (id) VALUES ($1) ON CONFLICT DO NOTHING`,
		id,
	)
	if err != nil {
		return fmt.Errorf("inserting processed instruction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting processed instruction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("instruction %s: %w", id, store.ErrRecordExists)
	}
	return nil
}

func (t *tx) ForEachChannel(fn func(address *keypair.FromAddress, c state.Channel) error) error {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT address, owner, party_a, party_b, balance_a, balance_b, iteration, closed
		FROM escrow_channels ORDER BY address`)
	if err != nil {
		return fmt.Errorf("selecting channels: %w", err)
	}
	defer rows.Close()

	type entry struct {
		address *keypair.FromAddress
		channel state.Channel
	}
	entries := []entry{}
	for rows.Next() {
		var addr string
		raw := rawChannel{}
		err := rows.Scan(&addr, &raw.Owner, &raw.PartyA, &raw.PartyB, &raw.BalanceA, &raw.BalanceB, &raw.Iteration, &raw.Closed)
		if err != nil {
			return fmt.Errorf("scanning channel: %w", err)
		}
		address, err := keypair.ParseAddress(addr)
		if err != nil {
			return fmt.Errorf("parsing channel address %s: %w", addr, err)
		}
		c, err := deserChannel(raw)
		if err != nil {
			return fmt.Errorf("channel %s: %w", addr, err)
		}
		entries = append(entries, entry{address: address, channel: c})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("selecting channels: %w", err)
	}
	rows.Close()

	for _, e := range entries {
		if err := fn(e.address, e.channel); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) ForEachIdentity(fn func(address *keypair.FromAddress, i state.Identity) error) error {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT address, display_name, owning_key FROM escrow_identities ORDER BY address`)
	if err != nil {
		return fmt.Errorf("selecting identities: %w", err)
	}
	defer rows.Close()

	type entry struct {
		address  *keypair.FromAddress
		identity state.Identity
	}
	entries := []entry{}
	for rows.Next() {
		var addr string
		r := store.IdentityRecord{}
		if err := rows.Scan(&addr, &r.DisplayName, &r.OwningKey); err != nil {
			return fmt.Errorf("scanning identity: %w", err)
		}
		address, err := keypair.ParseAddress(addr)
		if err != nil {
			return fmt.Errorf("parsing identity address %s: %w", addr, err)
		}
		i, err := r.Identity()
		if err != nil {
			return fmt.Errorf("identity %s: %w", addr, err)
		}
		entries = append(entries, entry{address: address, identity: i})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("selecting identities: %w", err)
	}
	rows.Close()

	for _, e := range entries {
		if err := fn(e.address, e.identity); err != nil {
			return err
		}
	}
	return nil
}
