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
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	libp2p_crypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	libp2p "github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

func randomPeerAddrs(t *testing.T, n int, basePort int) ([]string, []peer.ID) {
	var addrs []string
	var peerIDs []peer.ID
	for i := 0; i < n; i++ {
		privKey, _, err := libp2p_crypto.GenerateEd25519Key(rand.Reader)
		require.NoError(t, err)
		peerID, err := peer.IDFromPrivateKey(privKey)
		require.NoError(t, err)
		peerIDs = append(peerIDs, peerID)
		addrs = append(addrs, fmt.Sprintf("/ip4/1.2.3.4/tcp/%d/p2p/%s", basePort+i, peerID.String()))
	}
	return addrs, peerIDs
}

func TestPeerstore(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	peerAddrs := []string{
		"/dns4/ams-2.bootstrap.libp2p.io/tcp/443/wss/p2p/QmbLHAnMoJPWSCR5Zhtx6BHJX9KiKNN6tpvbUcqanj75Nb",
		"/ip4/147.75.83.83/tcp/4001/p2p/QmbLHAnMoJPWSCR5Zhtx6BHJX9KiKNN6tpvbUcqanj75Na",
		"/ip4/198.51.100.0/tcp/4242/p2p/QmYyQSo1c1Ym7orWxLYvCrM2EmxFTANf8wXmmE7DWjhx5N",
	}

	addrInfo, malformed := PeerInfoFromAddrs(peerAddrs)
	require.Empty(t, malformed)
	ps, err := NewPeerStore(addrInfo)
	require.NoError(t, err)
	defer ps.Close()

	// peerstore is initialized with addresses
	require.Equal(t, 3, len(ps.PeersWithAddrs()))
	for _, info := range addrInfo {
		require.True(t, ps.IsPersistent(info.ID))
	}

	addrs, peerIDs := randomPeerAddrs(t, 4, 4000)
	addrInfo, _ = PeerInfoFromAddrs(addrs)
	for _, info := range addrInfo {
		ps.AddAddrs(info.ID, info.Addrs, libp2p.PermanentAddrTTL)
	}
	require.Equal(t, 7, len(ps.PeersWithAddrs()))
	require.Equal(t, Discovered, ps.PeerSource(peerIDs[0]))

	ps.ClearAddrs(peerIDs[0])
	require.Equal(t, 6, len(ps.PeersWithAddrs()))
}

func TestPeerInfoFromAddrsMalformed(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	addrs, peerIDs := randomPeerAddrs(t, 2, 5000)
	// second address of the first peer is merged into the same AddrInfo
	addrs = append(addrs, fmt.Sprintf("/ip4/5.6.7.8/tcp/5000/p2p/%s", peerIDs[0]))
	addrs = append(addrs, "not-a-multiaddr", "/ip4/1.2.3.4/tcp/1")

	infos, malformed := PeerInfoFromAddrs(addrs)
	require.Len(t, infos, 2)
	require.Len(t, malformed, 2)
	require.Contains(t, malformed, "not-a-multiaddr")
	require.Contains(t, malformed, "/ip4/1.2.3.4/tcp/1")
	for _, info := range infos {
		if info.ID == peerIDs[0] {
			require.Len(t, info.Addrs, 2)
		}
	}
}

func TestGetAddressesRetryAfter(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	addrs, peerIDs := randomPeerAddrs(t, 5, 6000)
	infos, _ := PeerInfoFromAddrs(addrs)
	ps, err := NewPeerStore(infos)
	require.NoError(t, err)
	defer ps.Close()

	require.Len(t, ps.GetAddresses(0), 5)
	require.Len(t, ps.GetAddresses(3), 3)
	require.Len(t, ps.GetAddresses(10), 5)

	ps.UpdateRetryAfter(peerIDs[0], time.Now().Add(time.Hour))
	got := ps.GetAddresses(0)
	require.Len(t, got, 4)
	for _, info := range got {
		require.NotEqual(t, peerIDs[0], info.ID)
	}

	ps.UpdateRetryAfter(peerIDs[0], time.Now().Add(-time.Second))
	require.Len(t, ps.GetAddresses(0), 5)
	// retry bookkeeping keeps the bootstrap source
	require.True(t, ps.IsPersistent(peerIDs[0]))
}

func TestForgetKeepsBootstrapPeers(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	bootAddrs, bootIDs := randomPeerAddrs(t, 1, 7000)
	bootInfos, _ := PeerInfoFromAddrs(bootAddrs)
	ps, err := NewPeerStore(bootInfos)
	require.NoError(t, err)
	defer ps.Close()

	rememberedAddrs, rememberedIDs := randomPeerAddrs(t, 2, 7100)
	rememberedInfos, _ := PeerInfoFromAddrs(rememberedAddrs)
	// a bootstrap peer listed in the address book stays a bootstrap peer
	ps.AddRememberedPeers(append(rememberedInfos, bootInfos...))
	require.Equal(t, Remembered, ps.PeerSource(rememberedIDs[0]))
	require.Equal(t, Bootstrap, ps.PeerSource(bootIDs[0]))
	require.Equal(t, 3, ps.Length())

	require.False(t, ps.Forget(bootIDs[0]))
	require.NotEmpty(t, ps.Addrs(bootIDs[0]))

	require.True(t, ps.Forget(rememberedIDs[0]))
	require.Empty(t, ps.Addrs(rememberedIDs[0]))
	require.Equal(t, Discovered, ps.PeerSource(rememberedIDs[0]))
	require.Len(t, ps.GetAddresses(0), 2)
}
