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

package dht

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ipfs/go-cid"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	kb "github.com/libp2p/go-libp2p-kbucket"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/backoff"
	"github.com/multiformats/go-multihash"

	vrrbproto "github.com/vrrb-io/go-vrrb/protocol"
)

const baseBackoff = float64(3)

// ProtocolPrefix returns the Kademlia protocol prefix that keeps separate networks from
// sharing routing tables.
func ProtocolPrefix(network vrrbproto.NetworkID) protocol.ID {
	return protocol.ID(fmt.Sprintf("/vrrb/kad/%s", network))
}

// ProtocolID is the full Kademlia protocol a peer must speak to be routable on network.
func ProtocolID(network vrrbproto.NetworkID) protocol.ID {
	return ProtocolPrefix(network) + "/kad/1.0.0"
}

// MakeDHT creates the Kademlia routing instance for the node. Values are disabled: the
// DHT is used for peer routing and provider records only. extra options are applied last.
func MakeDHT(ctx context.Context, h host.Host, network vrrbproto.NetworkID, bootstrapPeers []peer.AddrInfo, extra ...dht.Option) (*dht.IpfsDHT, error) {
	cfg := []dht.Option{
		// Automatically determine server or client mode
		dht.Mode(dht.ModeAutoServer),
		dht.DisableValues(),
		dht.ProtocolPrefix(ProtocolPrefix(network)),
		dht.BootstrapPeers(bootstrapPeers...),
	}
	return dht.New(ctx, h, append(cfg, extra...)...)
}

// BackoffFactory returns exponential backoff strategies with decorrelated jitter between
// minBackoff and maxBackoff.
func BackoffFactory(minBackoff, maxBackoff time.Duration) backoff.BackoffFactory {
	return backoff.NewExponentialDecorrelatedJitter(minBackoff, maxBackoff, baseBackoff, rand.New(rand.NewSource(rand.Int63())))
}

// ProviderKey is the content key under which nodes of network advertise capability.
func ProviderKey(network vrrbproto.NetworkID, capability string) (cid.Cid, error) {
	mh, err := multihash.Sum([]byte(fmt.Sprintf("vrrb/%s/%s", network, capability)), multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// BucketIndex returns the routing table bucket remote falls into from local's point of view.
func BucketIndex(local, remote peer.ID) int {
	return kb.CommonPrefixLen(kb.ConvertPeerID(local), kb.ConvertPeerID(remote))
}
