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
	"testing"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

const testNetwork = "devtestnet"

func setupDHTHosts(t *testing.T, numHosts int) []*dht.IpfsDHT {
	var hosts []host.Host
	var bootstrapPeers []peer.AddrInfo
	var dhts []*dht.IpfsDHT
	for i := 0; i < numHosts; i++ {
		h, err := libp2p.New(libp2p.ListenAddrStrings("/ip4/127.0.0.1/tcp/0"))
		require.NoError(t, err)
		t.Cleanup(func() { h.Close() })
		hosts = append(hosts, h)
		bootstrapPeers = append(bootstrapPeers, peer.AddrInfo{ID: h.ID(), Addrs: h.Addrs()})
	}
	for _, h := range hosts {
		// loopback hosts never become publicly reachable, so force server mode
		ht, err := MakeDHT(context.Background(), h, testNetwork, bootstrapPeers, dht.Mode(dht.ModeServer))
		require.NoError(t, err)
		t.Cleanup(func() { ht.Close() })
		require.NoError(t, ht.Bootstrap(context.Background()))
		dhts = append(dhts, ht)
	}
	return dhts
}

func TestDHTBasic(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	h, err := libp2p.New()
	require.NoError(t, err)
	defer h.Close()
	ht, err := MakeDHT(context.Background(), h, testNetwork, nil)
	require.NoError(t, err)
	defer ht.Close()
	require.NoError(t, ht.Bootstrap(context.Background()))
	require.Equal(t, 0, ht.RoutingTable().Size())
}

func TestProtocolPrefix(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	require.EqualValues(t, "/vrrb/kad/testnet", ProtocolPrefix("testnet"))
	require.EqualValues(t, "/vrrb/kad/testnet/kad/1.0.0", ProtocolID("testnet"))
	require.NotEqual(t, ProtocolPrefix("testnet"), ProtocolPrefix("mainnet"))
}

func TestDHTTwoPeersProvide(t *testing.T) {
	partitiontest.PartitionTest(t)

	dhts := setupDHTHosts(t, 2)
	key, err := ProviderKey(testNetwork, "node")
	require.NoError(t, err)

	for _, ht := range dhts {
		require.Eventually(t, func() bool {
			return ht.RoutingTable().Size() > 0
		}, 5*time.Second, 50*time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, dhts[0].Provide(ctx, key, true))

	var providers []peer.AddrInfo
	for p := range dhts[1].FindProvidersAsync(ctx, key, 2) {
		providers = append(providers, p)
	}
	require.Len(t, providers, 1)
	require.Equal(t, dhts[0].Host().ID(), providers[0].ID)
}

func TestProviderKey(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	k1, err := ProviderKey("testnet", "node")
	require.NoError(t, err)
	k2, err := ProviderKey("testnet", "node")
	require.NoError(t, err)
	require.True(t, k1.Equals(k2))

	other, err := ProviderKey("mainnet", "node")
	require.NoError(t, err)
	require.False(t, k1.Equals(other))
	require.True(t, k1.Defined())
}

func TestBackoffFactoryBounds(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	minBackoff, maxBackoff := 100*time.Millisecond, 2*time.Second
	strategy := BackoffFactory(minBackoff, maxBackoff)()
	for i := 0; i < 50; i++ {
		d := strategy.Delay()
		require.GreaterOrEqual(t, d, minBackoff)
		require.LessOrEqual(t, d, maxBackoff)
	}

	fixed := BackoffFactory(time.Second, time.Second)()
	for i := 0; i < 5; i++ {
		require.Equal(t, time.Second, fixed.Delay())
	}
}

func TestBucketIndex(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	h1, err := libp2p.New(libp2p.NoListenAddrs)
	require.NoError(t, err)
	defer h1.Close()
	h2, err := libp2p.New(libp2p.NoListenAddrs)
	require.NoError(t, err)
	defer h2.Close()

	require.Equal(t, BucketIndex(h1.ID(), h2.ID()), BucketIndex(h2.ID(), h1.ID()))
	require.Less(t, BucketIndex(h1.ID(), h2.ID()), 256)
}
