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

package p2p

import (
	"context"
	"sync"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/logging"
	vrrbDht "github.com/vrrb-io/go-vrrb/network/p2p/dht"
)

// Capability represents functions that some nodes may provide and other nodes would want to know about
type Capability string

// NodeCapability is advertised by every full node of the network.
const NodeCapability Capability = "node"

const operationTimeout = time.Second * 5
const advertiseRetryInterval = time.Second * 10

// AdvertiseReport describes a single advertisement attempt. First is set until the
// capability has been advertised successfully once.
type AdvertiseReport struct {
	Capability Capability
	First      bool
	Err        error
}

// CapabilitiesDiscovery wraps the node DHT to advertise capabilities as provider records
// and to look up peers that provide them.
type CapabilitiesDiscovery struct {
	dht *dht.IpfsDHT
	cfg config.Local
	log logging.Logger
	wg  sync.WaitGroup
}

// MakeCapabilitiesDiscovery creates the node DHT, bootstrapped from bootstrapPeers.
func MakeCapabilitiesDiscovery(ctx context.Context, cfg config.Local, h host.Host, log logging.Logger, bootstrapPeers []peer.AddrInfo, dhtOpts ...dht.Option) (*CapabilitiesDiscovery, error) {
	discDht, err := vrrbDht.MakeDHT(ctx, h, cfg.NetworkID, bootstrapPeers, dhtOpts...)
	if err != nil {
		return nil, err
	}
	return &CapabilitiesDiscovery{
		dht: discDht,
		cfg: cfg,
		log: log,
	}, nil
}

// DHT exposes the Kademlia instance for routing queries.
func (c *CapabilitiesDiscovery) DHT() *dht.IpfsDHT {
	return c.dht
}

// Close should be called when fully shutting down the node
func (c *CapabilitiesDiscovery) Close() error {
	err := c.dht.Close()
	c.wg.Wait()
	return err
}

// Host exposes the underlying libp2p host.Host object
func (c *CapabilitiesDiscovery) Host() host.Host {
	return c.dht.Host()
}

// Advertise publishes a provider record for capability.
func (c *CapabilitiesDiscovery) Advertise(ctx context.Context, capability Capability) error {
	key, err := vrrbDht.ProviderKey(c.cfg.NetworkID, string(capability))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	return c.dht.Provide(ctx, key, true)
}

// PeersForCapability returns up to n peers other than this node that advertise capability.
func (c *CapabilitiesDiscovery) PeersForCapability(ctx context.Context, capability Capability, n int) ([]peer.AddrInfo, error) {
	key, err := vrrbDht.ProviderKey(c.cfg.NetworkID, string(capability))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	var peers []peer.AddrInfo
	// +1 because the result can include self, which is filtered out
	for p := range c.dht.FindProvidersAsync(ctx, key, n+1) {
		if p.ID.Size() > 0 && p.ID != c.Host().ID() {
			peers = append(peers, p)
		}
		if len(peers) >= n {
			break
		}
	}
	return peers, nil
}

// AdvertiseCapabilities advertises capabilities until ctx is done. A failed round is retried
// every 10 seconds; successful rounds repeat every interval. report, when set, is called after
// every attempt.
func (c *CapabilitiesDiscovery) AdvertiseCapabilities(ctx context.Context, interval time.Duration, report func(AdvertiseReport), capabilities ...Capability) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		advertised := make(map[Capability]bool, len(capabilities))
		nextExecution := time.NewTimer(0)
		defer nextExecution.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.dht.Context().Done():
				return
			case <-nextExecution.C:
				failed := false
				for _, capa := range capabilities {
					err := c.Advertise(ctx, capa)
					if report != nil {
						report(AdvertiseReport{Capability: capa, First: !advertised[capa], Err: err})
					}
					if err != nil {
						failed = true
						c.log.Warnf("failed to advertise for capability %s: %v", capa, err)
						break
					}
					advertised[capa] = true
					c.log.Debugf("advertised capability %s", capa)
				}
				if failed {
					nextExecution.Reset(advertiseRetryInterval)
				} else {
					nextExecution.Reset(interval)
				}
			}
		}
	}()
}

// Sizer exposes the Size method
type Sizer interface {
	Size() int
}

// RoutingTable exposes some knowledge about the DHT routing table
func (c *CapabilitiesDiscovery) RoutingTable() Sizer {
	return c.dht.RoutingTable()
}
