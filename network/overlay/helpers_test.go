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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/logging/telemetryspec"
	"github.com/vrrb-io/go-vrrb/network/dispatch"
	"github.com/vrrb-io/go-vrrb/network/messages"
)

const testKadProtocol = protocol.ID("/vrrb/kad/devtestnet/kad/1.0.0")

var errRefused = errors.New("bucket full")

type fakeKademlia struct {
	table  map[peer.ID][]multiaddr.Multiaddr
	refuse map[peer.ID]bool
}

func (k *fakeKademlia) AddAddresses(p peer.ID, addrs []multiaddr.Multiaddr) error {
	if k.refuse[p] {
		return errRefused
	}
	k.table[p] = addrs
	return nil
}

func (k *fakeKademlia) RemovePeer(p peer.ID) { delete(k.table, p) }

func (k *fakeKademlia) Size() int { return len(k.table) }

type queryRun struct {
	query Query
	delay time.Duration
}

type fakeQueries struct {
	runs []queryRun
}

func (f *fakeQueries) Run(q Query, delay time.Duration) {
	f.runs = append(f.runs, queryRun{q, delay})
}

func (f *fakeQueries) last() queryRun {
	return f.runs[len(f.runs)-1]
}

type fakeCloser struct {
	closed []peer.ID
}

func (f *fakeCloser) ClosePeer(p peer.ID) error {
	f.closed = append(f.closed, p)
	return nil
}

type fakeAddrBook struct {
	entries map[peer.ID]peer.AddrInfo
}

func (f *fakeAddrBook) Add(info peer.AddrInfo) error {
	f.entries[info.ID] = info
	return nil
}

func (f *fakeAddrBook) Remove(p peer.ID) error {
	delete(f.entries, p)
	return nil
}

type sinkEvent struct {
	event   telemetryspec.Event
	details interface{}
}

type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (s *recordingSink) Emit(event telemetryspec.Event, details interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{event, details})
}

func (s *recordingSink) count(event telemetryspec.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (s *recordingSink) last(event telemetryspec.Event) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].event == event {
			return s.events[i].details
		}
	}
	return nil
}

type testEnv struct {
	kad      *fakeKademlia
	queries  *fakeQueries
	closer   *fakeCloser
	addrBook *fakeAddrBook
	sink     *recordingSink
	commands chan dispatch.Command
	messages chan messages.Message
	local    peer.ID
}

func testConfig() config.Local {
	cfg := config.GetDefaultLocal()
	cfg.LocalNodeID = "node-A"
	cfg.PingMaxFailures = 3
	cfg.DHTQueryMaxRetries = 2
	cfg.DHTQueryMinBackoff = 10 * time.Millisecond
	cfg.DHTQueryMaxBackoff = 100 * time.Millisecond
	return cfg
}

func makeTestBehavior(t *testing.T, cfg config.Local) (*Behavior, *testEnv) {
	env := &testEnv{
		kad:      &fakeKademlia{table: map[peer.ID][]multiaddr.Multiaddr{}, refuse: map[peer.ID]bool{}},
		queries:  &fakeQueries{},
		closer:   &fakeCloser{},
		addrBook: &fakeAddrBook{entries: map[peer.ID]peer.AddrInfo{}},
		sink:     &recordingSink{},
		commands: make(chan dispatch.Command, 2),
		messages: make(chan messages.Message, 2),
		local:    randomPeer(t),
	}
	b := MakeBehavior(cfg, env.local, testKadProtocol, logging.TestingLog(t), Collaborators{
		Kademlia: env.kad,
		Queries:  env.queries,
		Peers:    env.closer,
		AddrBook: env.addrBook,
		Sink:     env.sink,
		Commands: env.commands,
		Messages: env.messages,
	})
	return b, env
}

func randomPeer(t *testing.T) peer.ID {
	_, pub, err := crypto.GenerateEd25519Key(nil)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pub)
	require.NoError(t, err)
	return id
}

func addr(t *testing.T, s string) multiaddr.Multiaddr {
	ma, err := multiaddr.NewMultiaddr(s)
	require.NoError(t, err)
	return ma
}

func encode(t *testing.T, msg messages.Message) []byte {
	payload, err := messages.Encode(msg)
	require.NoError(t, err)
	return payload
}
