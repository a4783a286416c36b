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

package addrbook

import (
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

func randomInfo(t *testing.T, addr string) peer.AddrInfo {
	_, pub, err := crypto.GenerateEd25519Key(nil)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pub)
	require.NoError(t, err)
	ma, err := multiaddr.NewMultiaddr(addr)
	require.NoError(t, err)
	return peer.AddrInfo{ID: id, Addrs: []multiaddr.Multiaddr{ma}}
}

func fakeClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestAddrBookAddRemove(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ab, err := Open("addrbook", 10, true, logging.TestingLog(t))
	require.NoError(t, err)
	defer ab.Close()
	ab.now = fakeClock(time.Unix(1000, 0))

	a := randomInfo(t, "/ip4/10.0.0.1/tcp/4190")
	b := randomInfo(t, "/ip4/10.0.0.2/tcp/4191/ws")
	require.NoError(t, ab.Add(a))
	require.NoError(t, ab.Add(b))
	require.Equal(t, 2, ab.Len())

	peers := ab.Peers()
	require.Len(t, peers, 2)
	// most recently seen first
	require.Equal(t, b.ID, peers[0].ID)
	require.True(t, peers[0].Addrs[0].Equal(b.Addrs[0]))

	require.NoError(t, ab.Remove(a.ID))
	require.NoError(t, ab.Remove(a.ID))
	require.Equal(t, 1, ab.Len())
	require.Equal(t, b.ID, ab.Peers()[0].ID)
}

func TestAddrBookIgnoresPeersWithoutAddresses(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ab, err := Open("addrbook", 10, true, logging.TestingLog(t))
	require.NoError(t, err)
	defer ab.Close()

	info := randomInfo(t, "/ip4/10.0.0.1/tcp/4190")
	info.Addrs = nil
	require.NoError(t, ab.Add(info))
	require.Zero(t, ab.Len())
}

func TestAddrBookEvictsOldest(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ab, err := Open("addrbook", 2, true, logging.TestingLog(t))
	require.NoError(t, err)
	defer ab.Close()
	ab.now = fakeClock(time.Unix(1000, 0))

	a := randomInfo(t, "/ip4/10.0.0.1/tcp/4190")
	b := randomInfo(t, "/ip4/10.0.0.2/tcp/4190")
	c := randomInfo(t, "/ip4/10.0.0.3/tcp/4190")
	require.NoError(t, ab.Add(a))
	require.NoError(t, ab.Add(b))
	// refreshing a makes b the oldest entry
	require.NoError(t, ab.Add(a))
	require.NoError(t, ab.Add(c))

	require.Equal(t, 2, ab.Len())
	ids := map[peer.ID]bool{}
	for _, p := range ab.Peers() {
		ids[p.ID] = true
	}
	require.True(t, ids[a.ID])
	require.True(t, ids[c.ID])
	require.False(t, ids[b.ID])
}

func TestAddrBookPersists(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	dir := t.TempDir()
	log := logging.TestingLog(t)
	a := randomInfo(t, "/ip4/10.0.0.1/tcp/4190")
	b := randomInfo(t, "/dns4/node.example.com/tcp/4191/ws")

	ab, err := Open(dir, 10, false, log)
	require.NoError(t, err)
	require.NoError(t, ab.Add(a))
	require.NoError(t, ab.Add(b))
	require.NoError(t, ab.Remove(a.ID))
	require.NoError(t, ab.Close())
	require.ErrorIs(t, ab.Add(a), ErrClosed)

	reopened, err := Open(dir, 10, false, log)
	require.NoError(t, err)
	defer reopened.Close()
	peers := reopened.Peers()
	require.Len(t, peers, 1)
	require.Equal(t, b.ID, peers[0].ID)
	require.True(t, peers[0].Addrs[0].Equal(b.Addrs[0]))
}

func TestAddrBookRejectsZeroCapacity(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	_, err := Open("addrbook", 0, true, logging.TestingLog(t))
	require.Error(t, err)
}
