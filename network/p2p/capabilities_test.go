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
	"testing"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

func setupCapabilities(t *testing.T, n int) []*CapabilitiesDiscovery {
	cfg := testConfig()
	log := logging.TestingLog(t)
	var caps []*CapabilitiesDiscovery
	var bootstrap []peer.AddrInfo
	for i := 0; i < n; i++ {
		h := makeTestHost(t, cfg)
		bootstrap = append(bootstrap, peer.AddrInfo{ID: h.ID(), Addrs: tcpOnlyAddrs(h)})
		capD, err := MakeCapabilitiesDiscovery(context.Background(), cfg, h, log, nil, dht.Mode(dht.ModeServer))
		require.NoError(t, err)
		t.Cleanup(func() { capD.Close() })
		caps = append(caps, capD)
	}
	for _, capD := range caps {
		for _, info := range bootstrap {
			if info.ID == capD.Host().ID() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			require.NoError(t, capD.Host().Connect(ctx, info))
			cancel()
		}
	}
	for _, capD := range caps {
		require.Eventually(t, func() bool {
			return capD.RoutingTable().Size() == n-1
		}, 10*time.Second, 50*time.Millisecond)
	}
	return caps
}

func TestCapabilitiesAdvertiseAndFind(t *testing.T) {
	partitiontest.PartitionTest(t)

	caps := setupCapabilities(t, 3)
	ctx := context.Background()

	require.NoError(t, caps[0].Advertise(ctx, NodeCapability))
	require.NoError(t, caps[1].Advertise(ctx, NodeCapability))

	peers, err := caps[2].PeersForCapability(ctx, NodeCapability, 5)
	require.NoError(t, err)
	var ids []peer.ID
	for _, p := range peers {
		ids = append(ids, p.ID)
	}
	require.ElementsMatch(t, []peer.ID{caps[0].Host().ID(), caps[1].Host().ID()}, ids)

	// a node never finds itself
	peers, err = caps[0].PeersForCapability(ctx, NodeCapability, 5)
	require.NoError(t, err)
	for _, p := range peers {
		require.NotEqual(t, caps[0].Host().ID(), p.ID)
	}
}

func TestCapabilitiesAdvertiseLoopReports(t *testing.T) {
	partitiontest.PartitionTest(t)

	caps := setupCapabilities(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reports := make(chan AdvertiseReport, 8)
	caps[0].AdvertiseCapabilities(ctx, 50*time.Millisecond, func(r AdvertiseReport) {
		select {
		case reports <- r:
		default:
		}
	}, NodeCapability)

	first := <-reports
	require.NoError(t, first.Err)
	require.True(t, first.First)
	require.Equal(t, NodeCapability, first.Capability)

	select {
	case again := <-reports:
		require.NoError(t, again.Err)
		require.False(t, again.First)
	case <-time.After(10 * time.Second):
		require.Fail(t, "capability was not re-advertised")
	}
}
