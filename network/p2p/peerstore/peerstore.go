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

package peerstore

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/libp2p/go-libp2p/core/peer"
	libp2p "github.com/libp2p/go-libp2p/core/peerstore"
	mempstore "github.com/libp2p/go-libp2p/p2p/host/peerstore/pstoremem"
)

const psmdkAddressData string = "addressData"

// Source records how the node learned about a peer.
type Source int

const (
	// Discovered peers were found through the DHT or gossip at runtime.
	Discovered Source = iota
	// Remembered peers were loaded from the persistent address book.
	Remembered
	// Bootstrap peers come from configuration or dnsaddr records and are never forgotten.
	Bootstrap
)

// PeerStore implements Peerstore and CertifiedAddrBook, and tracks where each peer came from
// and when it may be dialed again.
type PeerStore struct {
	peerStoreCAB
	lock deadlock.Mutex
}

// addressData: holds the information associated with each known peer.
type addressData struct {
	// retryAfter is the time to wait before retrying to connect to the peer.
	retryAfter time.Time
	source     Source
}

// peerStoreCAB combines the libp2p Peerstore and CertifiedAddrBook interfaces.
type peerStoreCAB interface {
	libp2p.Peerstore
	libp2p.CertifiedAddrBook
}

// NewPeerStore creates a new in-memory peerstore seeded with the bootstrap peers.
func NewPeerStore(bootstrap []peer.AddrInfo) (*PeerStore, error) {
	ps, err := mempstore.NewPeerstore()
	if err != nil {
		return nil, fmt.Errorf("cannot initialize a peerstore: %w", err)
	}

	pstore := &PeerStore{peerStoreCAB: ps}
	pstore.AddPersistentPeers(bootstrap)
	return pstore, nil
}

// AddPersistentPeers stores addresses of bootstrap peers. They are never forgotten.
func (ps *PeerStore) AddPersistentPeers(infos []peer.AddrInfo) {
	ps.lock.Lock()
	defer ps.lock.Unlock()

	for _, info := range infos {
		ps.AddAddrs(info.ID, info.Addrs, libp2p.PermanentAddrTTL)
		_ = ps.Put(info.ID, psmdkAddressData, addressData{source: Bootstrap})
	}
}

// AddRememberedPeers stores addresses loaded from the address book, unless the peer is
// already known from a stronger source.
func (ps *PeerStore) AddRememberedPeers(infos []peer.AddrInfo) {
	ps.lock.Lock()
	defer ps.lock.Unlock()

	for _, info := range infos {
		if ad, ok := ps.addressData(info.ID); ok && ad.source >= Remembered {
			continue
		}
		ps.AddAddrs(info.ID, info.Addrs, libp2p.AddressTTL)
		_ = ps.Put(info.ID, psmdkAddressData, addressData{source: Remembered})
	}
}

// GetAddresses returns up to n dialable peers in random order. Peers whose retry time
// has not passed yet are skipped. A non-positive n returns every dialable peer.
func (ps *PeerStore) GetAddresses(n int) []peer.AddrInfo {
	return shuffleSelect(ps.filterRetryTime(time.Now()), n)
}

// UpdateRetryAfter postpones dialing p until retryAfter.
func (ps *PeerStore) UpdateRetryAfter(p peer.ID, retryAfter time.Time) {
	ps.lock.Lock()
	defer ps.lock.Unlock()

	ad, ok := ps.addressData(p)
	if !ok {
		ad = addressData{source: Discovered}
	}
	ad.retryAfter = retryAfter
	_ = ps.Put(p, psmdkAddressData, ad)
}

// PeerSource reports how p became known. Peers without metadata count as Discovered.
func (ps *PeerStore) PeerSource(p peer.ID) Source {
	ad, _ := ps.addressData(p)
	return ad.source
}

// IsPersistent checks if p is a bootstrap peer.
func (ps *PeerStore) IsPersistent(p peer.ID) bool {
	return ps.PeerSource(p) == Bootstrap
}

// Forget drops the addresses of p unless it is a bootstrap peer. It reports whether
// anything was removed.
func (ps *PeerStore) Forget(p peer.ID) bool {
	ps.lock.Lock()
	defer ps.lock.Unlock()

	if ad, ok := ps.addressData(p); ok && ad.source == Bootstrap {
		return false
	}
	ps.ClearAddrs(p)
	_ = ps.Put(p, psmdkAddressData, nil)
	return true
}

// Length returns the number of peers in the peerstore
func (ps *PeerStore) Length() int {
	return len(ps.Peers())
}

func (ps *PeerStore) addressData(p peer.ID) (addressData, bool) {
	data, err := ps.Get(p, psmdkAddressData)
	if err != nil || data == nil {
		return addressData{}, false
	}
	ad, ok := data.(addressData)
	return ad, ok
}

func (ps *PeerStore) filterRetryTime(t time.Time) []peer.AddrInfo {
	peers := ps.Peers()
	o := make([]peer.AddrInfo, 0, len(peers))
	for _, peerID := range peers {
		ad, ok := ps.addressData(peerID)
		if ok && !t.After(ad.retryAfter) {
			continue
		}
		mas := ps.Addrs(peerID)
		if len(mas) == 0 {
			continue
		}
		o = append(o, peer.AddrInfo{ID: peerID, Addrs: mas})
	}
	return o
}

func shuffleSelect(set []peer.AddrInfo, n int) []peer.AddrInfo {
	out := slices.Clone(set)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n <= 0 || n >= len(out) {
		return out
	}
	return out[:n]
}
