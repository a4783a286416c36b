// Copyright (C) 2021-2024 The go-vrrb Authors
// This file is part of go-vrrb
//
// go-vrrb is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-vrrb is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-vrrb.  If not, see <https://www.gnu.org/licenses/>.

// Package addrbook persists the addresses of peers that became routable, so a restarted
// node can rejoin the overlay without depending only on its bootstrap peers.
package addrbook

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/protocol"
)

// keyPrefix namespaces peer entries. The upper bound is the next byte value.
var keyPrefix = []byte("peer/")
var keyUpperBound = []byte("peer0")

// ErrClosed is returned by operations on a closed address book.
var ErrClosed = errors.New("address book is closed")

type entry struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Addrs    []string `codec:"a"`
	LastSeen int64    `codec:"s"`
}

// AddrBook is a bounded, persistent set of peer addresses. When full, the entry seen least
// recently is replaced.
type AddrBook struct {
	db         *pebble.DB
	wo         *pebble.WriteOptions
	log        logging.Logger
	maxEntries int
	now        func() time.Time

	mu      deadlock.Mutex
	entries map[peer.ID]entry
}

func dbOptions(inMem bool) *pebble.Options {
	opts := &pebble.Options{
		MemTableSize: 4 << 20,
		Levels:       make([]pebble.LevelOptions, 7),
	}
	for i := 0; i < len(opts.Levels); i++ {
		l := &opts.Levels[i]
		l.FilterPolicy = bloom.FilterPolicy(10)
		l.FilterType = pebble.TableFilter
		l.EnsureDefaults()
	}
	if inMem {
		opts.FS = vfs.NewMem()
	}
	return opts
}

// Open loads the address book stored in dir, creating it when missing. With inMem set
// nothing touches the disk.
func Open(dir string, maxEntries int, inMem bool, log logging.Logger) (*AddrBook, error) {
	if maxEntries < 1 {
		return nil, fmt.Errorf("address book needs room for at least one entry, got %d", maxEntries)
	}
	db, err := pebble.Open(dir, dbOptions(inMem))
	if err != nil {
		return nil, fmt.Errorf("unable to open address book %s: %w", dir, err)
	}
	ab := &AddrBook{
		db:         db,
		wo:         &pebble.WriteOptions{Sync: true},
		log:        log,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[peer.ID]entry),
	}
	if err := ab.load(); err != nil {
		db.Close()
		return nil, err
	}
	return ab, nil
}

func (ab *AddrBook) load() error {
	iter := ab.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: keyUpperBound,
	})
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := peer.Decode(string(iter.Key()[len(keyPrefix):]))
		if err != nil {
			ab.log.Warnf("address book: skipping entry with bad peer id %q: %v", iter.Key(), err)
			continue
		}
		var e entry
		if err := protocol.DecodeReflect(iter.Value(), &e); err != nil {
			ab.log.Warnf("address book: skipping undecodable entry for %s: %v", id, err)
			continue
		}
		ab.entries[id] = e
	}
	return iter.Error()
}

func peerKey(id peer.ID) []byte {
	return append(append([]byte{}, keyPrefix...), id.String()...)
}

// Add records info, refreshing its last-seen time. Peers without addresses are ignored.
func (ab *AddrBook) Add(info peer.AddrInfo) error {
	if len(info.Addrs) == 0 {
		return nil
	}
	e := entry{LastSeen: ab.now().Unix()}
	for _, a := range info.Addrs {
		e.Addrs = append(e.Addrs, a.String())
	}

	ab.mu.Lock()
	defer ab.mu.Unlock()
	if ab.entries == nil {
		return ErrClosed
	}
	if _, ok := ab.entries[info.ID]; !ok && len(ab.entries) >= ab.maxEntries {
		if err := ab.evictOldestLocked(); err != nil {
			return err
		}
	}
	if err := ab.db.Set(peerKey(info.ID), protocol.EncodeReflect(&e), ab.wo); err != nil {
		return err
	}
	ab.entries[info.ID] = e
	return nil
}

func (ab *AddrBook) evictOldestLocked() error {
	var oldest peer.ID
	var oldestSeen int64
	first := true
	for id, e := range ab.entries {
		if first || e.LastSeen < oldestSeen || (e.LastSeen == oldestSeen && id < oldest) {
			oldest, oldestSeen, first = id, e.LastSeen, false
		}
	}
	return ab.removeLocked(oldest)
}

// Remove forgets p. Removing an unknown peer is not an error.
func (ab *AddrBook) Remove(p peer.ID) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if ab.entries == nil {
		return ErrClosed
	}
	if _, ok := ab.entries[p]; !ok {
		return nil
	}
	return ab.removeLocked(p)
}

func (ab *AddrBook) removeLocked(p peer.ID) error {
	if err := ab.db.Delete(peerKey(p), ab.wo); err != nil {
		return err
	}
	delete(ab.entries, p)
	return nil
}

// Peers returns the stored peers, most recently seen first.
func (ab *AddrBook) Peers() []peer.AddrInfo {
	ab.mu.Lock()
	type seenInfo struct {
		info peer.AddrInfo
		seen int64
	}
	out := make([]seenInfo, 0, len(ab.entries))
	for id, e := range ab.entries {
		info := peer.AddrInfo{ID: id}
		for _, a := range e.Addrs {
			ma, err := multiaddr.NewMultiaddr(a)
			if err != nil {
				continue
			}
			info.Addrs = append(info.Addrs, ma)
		}
		if len(info.Addrs) > 0 {
			out = append(out, seenInfo{info, e.LastSeen})
		}
	}
	ab.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].seen != out[j].seen {
			return out[i].seen > out[j].seen
		}
		return out[i].info.ID < out[j].info.ID
	})
	infos := make([]peer.AddrInfo, len(out))
	for i := range out {
		infos[i] = out[i].info
	}
	return infos
}

// Len returns the number of stored peers.
func (ab *AddrBook) Len() int {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return len(ab.entries)
}

// Close flushes and closes the underlying store.
func (ab *AddrBook) Close() error {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if ab.entries == nil {
		return nil
	}
	ab.entries = nil
	return ab.db.Close()
}
