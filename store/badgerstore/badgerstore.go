// Package badgerstore contains a record store embedded in the process,
// persisted with badger. Records are encoded with cbor.
package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/go/keypair"
	"go.uber.org/zap"
)

var _ store.Store = (*Store)(nil)

var (
	channelPrefix     = []byte("/channel/")
	identityPrefix    = []byte("/identity/")
	instructionPrefix = []byte("/instruction/")
)

// Store is a badger backed store. Read-write transactions are serialized by
// the store so that badger never reports a conflict between them.
type Store struct {
	db       *badger.DB
	updateLk sync.Mutex
}

// Open opens, or creates, the store in the directory.
func Open(dir string, logger *zap.SugaredLogger) (*Store, error) {
	opt := badger.DefaultOptions(dir).WithLogger(nil)
	if logger != nil {
		opt = opt.WithLogger(badgerLogger{logger: logger.Named("badger")})
	}
	db, err := badger.Open(opt)
	if err != nil {
		return nil, fmt.Errorf("opening badger db at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.updateLk.Lock()
	defer s.updateLk.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
}

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn, readOnly: true})
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	txn      *badger.Txn
	readOnly bool
}

func key(prefix []byte, id string) []byte {
	k := make([]byte, 0, len(prefix)+len(id))
	k = append(k, prefix...)
	return append(k, id...)
}

// get decodes the value at the key into v, and returns false if the key does
// not exist.
func (t *tx) get(k []byte, v interface{}) (bool, error) {
	item, err := t.txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", k, err)
	}
	b, err := item.ValueCopy(nil)
	if err != nil {
		return false, fmt.Errorf("get %s value: %w", k, err)
	}
	if err := cbor.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", k, err)
	}
	return true, nil
}

func (t *tx) has(k []byte) (bool, error) {
	_, err := t.txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", k, err)
	}
	return true, nil
}

func (t *tx) put(k []byte, v interface{}) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	b, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", k, err)
	}
	if err := t.txn.Set(k, b); err != nil {
		return fmt.Errorf("set %s: %w", k, err)
	}
	return nil
}

func (t *tx) Channel(address *keypair.FromAddress) (state.Channel, error) {
	r := store.ChannelRecord{}
	ok, err := t.get(key(channelPrefix, address.Address()), &r)
	if err != nil {
		return state.Channel{}, err
	}
	if !ok {
		return state.Channel{}, fmt.Errorf("channel %s: %w", address.Address(), store.ErrNotFound)
	}
	return r.Channel()
}

func (t *tx) InsertChannel(address *keypair.FromAddress, c state.Channel) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	k := key(channelPrefix, address.Address())
	exists, err := t.has(k)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("channel %s: %w", address.Address(), store.ErrRecordExists)
	}
	return t.put(k, store.NewChannelRecord(c))
}

func (t *tx) UpdateChannel(address *keypair.FromAddress, c state.Channel) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	k := key(channelPrefix, address.Address())
	exists, err := t.has(k)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("channel %s: %w", address.Address(), store.ErrNotFound)
	}
	return t.put(k, store.NewChannelRecord(c))
}

func (t *tx) Identity(address *keypair.FromAddress) (state.Identity, error) {
	r := store.IdentityRecord{}
	ok, err := t.get(key(identityPrefix, address.Address()), &r)
	if err != nil {
		return state.Identity{}, err
	}
	if !ok {
		return state.Identity{}, fmt.Errorf("identity %s: %w", address.Address(), store.ErrNotFound)
	}
	return r.Identity()
}

func (t *tx) InsertIdentity(address *keypair.FromAddress, i state.Identity) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	k := key(identityPrefix, address.Address())
	exists, err := t.has(k)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("identity %s: %w", address.Address(), store.ErrRecordExists)
	}
	return t.put(k, store.NewIdentityRecord(i))
}

func (t *tx) MarkProcessed(id string) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	k := key(instructionPrefix, id)
	exists, err := t.has(k)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("instruction %s: %w", id, store.ErrRecordExists)
	}
	if err := t.txn.Set(k, nil); err != nil {
		return fmt.Errorf("set %s: %w", k, err)
	}
	return nil
}

// iter calls fn with the address suffix and value of every key with the
// prefix, in key order.
func (t *tx) iter(prefix []byte, fn func(address *keypair.FromAddress, value []byte) error) error {
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		suffix := bytes.TrimPrefix(item.Key(), prefix)
		address, err := keypair.ParseAddress(string(suffix))
		if err != nil {
			return fmt.Errorf("parsing address of key %s: %w", item.Key(), err)
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("get %s value: %w", item.Key(), err)
		}
		if err := fn(address, value); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) ForEachChannel(fn func(address *keypair.FromAddress, c state.Channel) error) error {
	return t.iter(channelPrefix, func(address *keypair.FromAddress, value []byte) error {
		r := store.ChannelRecord{}
		if err := cbor.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("decoding channel %s: %w", address.Address(), err)
		}
		c, err := r.Channel()
		if err != nil {
			return err
		}
		return fn(address, c)
	})
}

func (t *tx) ForEachIdentity(fn func(address *keypair.FromAddress, i state.Identity) error) error {
	return t.iter(identityPrefix, func(address *keypair.FromAddress, value []byte) error {
		r := store.IdentityRecord{}
		if err := cbor.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("decoding identity %s: %w", address.Address(), err)
		}
		i, err := r.Identity()
		if err != nil {
			return err
		}
		return fn(address, i)
	})
}

// badgerLogger writes badger's logs to a zap logger.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}
