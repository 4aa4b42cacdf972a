// Package memstore contains an in-memory record store. Records are lost when
// the process exits.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stellar/escrowchannel/state"
	"github.com/stellar/escrowchannel/store"
	"github.com/stellar/go/keypair"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory store. Read-write transactions hold an exclusive
// lock for their duration, and stage their writes until they commit.
type Store struct {
	mu         sync.RWMutex
	channels   map[string]store.ChannelRecord
	identities map[string]store.IdentityRecord
	processed  map[string]struct{}
}

func New() *Store {
	return &Store{
		channels:   map[string]store.ChannelRecord{},
		identities: map[string]store.IdentityRecord{},
		processed:  map[string]struct{}{},
	}
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTx(s, false)
	if err := fn(t); err != nil {
		return err
	}
	for k, v := range t.channels {
		s.channels[k] = v
	}
	for k, v := range t.identities {
		s.identities[k] = v
	}
	for k := range t.processed {
		s.processed[k] = struct{}{}
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newTx(s, true))
}

func (s *Store) Close() error {
	return nil
}

type tx struct {
	s          *Store
	readOnly   bool
	channels   map[string]store.ChannelRecord
	identities map[string]store.IdentityRecord
	processed  map[string]struct{}
}

func newTx(s *Store, readOnly bool) *tx {
	return &tx{
		s:          s,
		readOnly:   readOnly,
		channels:   map[string]store.ChannelRecord{},
		identities: map[string]store.IdentityRecord{},
		processed:  map[string]struct{}{},
	}
}

func (t *tx) channel(address string) (store.ChannelRecord, bool) {
	if r, ok := t.channels[address]; ok {
		return r, true
	}
	r, ok := t.s.channels[address]
	return r, ok
}

func (t *tx) identity(address string) (store.IdentityRecord, bool) {
	if r, ok := t.identities[address]; ok {
		return r, true
	}
	r, ok := t.s.identities[address]
	return r, ok
}

func (t *tx) Channel(address *keypair.FromAddress) (state.Channel, error) {
	r, ok := t.channel(address.Address())
	if !ok {
		return state.Channel{}, fmt.Errorf("channel %s: %w", address.Address(), store.ErrNotFound)
	}
	return r.Channel()
}

func (t *tx) InsertChannel(address *keypair.FromAddress, c state.Channel) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if _, ok := t.channel(address.Address()); ok {
		return fmt.Errorf("channel %s: %w", address.Address(), store.ErrRecordExists)
	}
	t.channels[address.Address()] = store.NewChannelRecord(c)
	return nil
}

func (t *tx) UpdateChannel(address *keypair.FromAddress, c state.Channel) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if _, ok := t.channel(address.Address()); !ok {
		return fmt.Errorf("channel %s: %w", address.Address(), store.ErrNotFound)
	}
	t.channels[address.Address()] = store.NewChannelRecord(c)
	return nil
}

func (t *tx) Identity(address *keypair.FromAddress) (state.Identity, error) {
	r, ok := t.identity(address.Address())
	if !ok {
		return state.Identity{}, fmt.Errorf("identity %s: %w", address.Address(), store.ErrNotFound)
	}
	return r.Identity()
}

func (t *tx) InsertIdentity(address *keypair.FromAddress, i state.Identity) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if _, ok := t.identity(address.Address()); ok {
		return fmt.Errorf("identity %s: %w", address.Address(), store.ErrRecordExists)
	}
	t.identities[address.Address()] = store.NewIdentityRecord(i)
	return nil
}

func (t *tx) MarkProcessed(id string) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	_, staged := t.processed[id]
	_, committed := t.s.processed[id]
	if staged || committed {
		return fmt.Errorf("instruction %s: %w", id, store.ErrRecordExists)
	}
	t.processed[id] = struct{}{}
	return nil
}

func (t *tx) ForEachChannel(fn func(address *keypair.FromAddress, c state.Channel) error) error {
	for _, k := range keys(t.s.channels, t.channels) {
		r, _ := t.channel(k)
		a, err := keypair.ParseAddress(k)
		if err != nil {
			return fmt.Errorf("parsing channel address %s: %w", k, err)
		}
		c, err := r.Channel()
		if err != nil {
			return err
		}
		if err := fn(a, c); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) ForEachIdentity(fn func(address *keypair.FromAddress, i state.Identity) error) error {
	for _, k := range keys(t.s.identities, t.identities) {
		r, _ := t.identity(k)
		a, err := keypair.ParseAddress(k)
		if err != nil {
			return fmt.Errorf("parsing identity address %s: %w", k, err)
		}
		i, err := r.Identity()
		if err != nil {
			return err
		}
		if err := fn(a, i); err != nil {
			return err
		}
	}
	return nil
}

// keys returns the sorted union of the keys of the maps.
func keys[V any](maps ...map[string]V) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, m := range maps {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
