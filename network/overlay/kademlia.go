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

package overlay

import (
	"context"
	"sync"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/multiformats/go-multiaddr"

	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/network/p2p"
)

// dhtRouting exposes the routing table of a kad-dht instance as a Kademlia.
type dhtRouting struct {
	dht *dht.IpfsDHT
}

// MakeKademlia adapts the routing table of d.
func MakeKademlia(d *dht.IpfsDHT) Kademlia {
	return dhtRouting{dht: d}
}

func (r dhtRouting) AddAddresses(p peer.ID, addrs []multiaddr.Multiaddr) error {
	r.dht.Host().Peerstore().AddAddrs(p, addrs, peerstore.RecentlyConnectedAddrTTL)
	// peers already in the table report false with no error and stay routable
	_, err := r.dht.RoutingTable().TryAddPeer(p, true, false)
	return err
}

func (r dhtRouting) RemovePeer(p peer.ID) {
	r.dht.RoutingTable().RemovePeer(p)
}

func (r dhtRouting) Size() int {
	return r.dht.RoutingTable().Size()
}

// providerLookupSize bounds the peers returned by a single provider lookup.
const providerLookupSize = 20

// QueryDriver runs the queries requested by the behavior and posts their results back.
type QueryDriver struct {
	ctx    context.Context
	disc   *p2p.CapabilitiesDiscovery
	dialer func(ctx context.Context, infos []peer.AddrInfo)
	poster Poster
	log    logging.Logger
	wg     sync.WaitGroup
}

// MakeQueryRunner returns a QueryRunner backed by disc. Queries stop when ctx is done.
// Providers found by a lookup are handed to dial so that gossip can reach them.
func MakeQueryRunner(ctx context.Context, disc *p2p.CapabilitiesDiscovery, dial func(ctx context.Context, infos []peer.AddrInfo), poster Poster, log logging.Logger) *QueryDriver {
	return &QueryDriver{ctx: ctx, disc: disc, dialer: dial, poster: poster, log: log}
}

// Run implements QueryRunner.
func (d *QueryDriver) Run(q Query, delay time.Duration) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-d.ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		res := d.run(q)
		if err := d.poster.Post(d.ctx, res); err != nil {
			d.log.Debugf("overlay: result of %s query %d not delivered: %v", q.Kind, q.ID, err)
		}
	}()
}

// Wait blocks until every started query returned.
func (d *QueryDriver) Wait() {
	d.wg.Wait()
}

func (d *QueryDriver) run(q Query) QueryResult {
	res := QueryResult{Query: q}
	switch q.Kind {
	case QueryBootstrap:
		select {
		case res.Err = <-d.disc.DHT().RefreshRoutingTable():
		case <-d.ctx.Done():
			res.Err = d.ctx.Err()
		}
	case QueryGetClosestPeers:
		ctx, cancel := context.WithTimeout(d.ctx, time.Minute)
		defer cancel()
		ids, err := d.disc.DHT().GetClosestPeers(ctx, lookupKey(q.Key))
		res.Err = err
		ps := d.disc.Host().Peerstore()
		for _, id := range ids {
			res.Peers = append(res.Peers, ps.PeerInfo(id))
		}
	case QueryGetProviders:
		res.Peers, res.Err = d.disc.PeersForCapability(d.ctx, p2p.Capability(q.Key), providerLookupSize)
		if res.Err == nil && len(res.Peers) > 0 && d.dialer != nil {
			d.dialer(d.ctx, res.Peers)
		}
	}
	return res
}

// lookupKey turns a printable peer ID back into the raw key Kademlia expects.
// Other keys are used as they are.
func lookupKey(key string) string {
	if id, err := peer.Decode(key); err == nil {
		return string(id)
	}
	return key
}

// AdvertiseReporter turns capability advertisement reports into query results.
func AdvertiseReporter(poster Poster) func(p2p.AdvertiseReport) {
	var id uint64
	return func(r p2p.AdvertiseReport) {
		kind := QueryRepublishProvider
		if r.First {
			kind = QueryStartProviding
		}
		// advertisements are numbered on their own, outside the behavior's query ids
		id++
		poster.TryPost(QueryResult{Query: Query{ID: id, Kind: kind, Key: string(r.Capability)}, Err: r.Err})
	}
}
