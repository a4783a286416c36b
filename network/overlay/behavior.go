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

// Package overlay routes the events of the peer-to-peer stack through one state machine.
// Kademlia routing, identify, liveness pings and gossip each feed events into a Loop,
// which hands them one at a time to a Behavior. The Behavior owns the routing and
// liveness state and never needs locking.
package overlay

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/backoff"
	"github.com/multiformats/go-multiaddr"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/logging/telemetryspec"
	"github.com/vrrb-io/go-vrrb/network/dispatch"
	"github.com/vrrb-io/go-vrrb/network/messages"
	"github.com/vrrb-io/go-vrrb/network/p2p"
	vrrbDht "github.com/vrrb-io/go-vrrb/network/p2p/dht"
)

var errEvicted = errors.New("evicted after repeated ping failures")

// Kademlia is the routing table as seen by the behavior.
type Kademlia interface {
	// AddAddresses records addrs for p and offers p to the routing table.
	// A nil error means p is routable.
	AddAddresses(p peer.ID, addrs []multiaddr.Multiaddr) error
	RemovePeer(p peer.ID)
	Size() int
}

// QueryRunner executes DHT queries on behalf of the behavior.
type QueryRunner interface {
	// Run starts q once delay elapsed and posts a QueryResult when it is done.
	// Run must not block.
	Run(q Query, delay time.Duration)
}

// PeerCloser drops every connection to a peer.
type PeerCloser interface {
	ClosePeer(p peer.ID) error
}

// AddrBook persists the addresses of routable peers.
type AddrBook interface {
	Add(info peer.AddrInfo) error
	Remove(p peer.ID) error
}

// Collaborators are the side effects available to a Behavior. AddrBook and Messages
// are optional.
type Collaborators struct {
	Kademlia Kademlia
	Queries  QueryRunner
	Peers    PeerCloser
	AddrBook AddrBook
	Sink     Sink
	Commands chan<- dispatch.Command
	Messages chan<- messages.Message
}

// KadState is the coarse state of the Kademlia handler.
type KadState int

const (
	// KadIdle means no query is running.
	KadIdle KadState = iota
	// KadBootstrapping means a bootstrap query is in flight.
	KadBootstrapping
	// KadQueryInFlight means lookups are running but no bootstrap.
	KadQueryInFlight
)

func (s KadState) String() string {
	switch s {
	case KadIdle:
		return "idle"
	case KadBootstrapping:
		return "bootstrapping"
	case KadQueryInFlight:
		return "query-in-flight"
	default:
		return "unknown"
	}
}

type pendingQuery struct {
	query   Query
	backoff backoff.BackoffStrategy
}

type peerHealth struct {
	lastSeen time.Time
	rtt      time.Duration
	failures int
}

// Behavior is the composite of the Kademlia, identify, liveness and gossip handlers.
// It is not safe for concurrent use; a Loop serializes access to it.
type Behavior struct {
	log         logging.Logger
	localPeer   peer.ID
	localID     string
	kadProtocol protocol.ID

	maxPingFailures int
	maxQueryRetries int
	newBackoff      backoff.BackoffFactory
	now             func() time.Time

	kad      Kademlia
	queries  QueryRunner
	peers    PeerCloser
	addrBook AddrBook
	sink     Sink
	commands chan<- dispatch.Command
	messages chan<- messages.Message

	bootstrapping bool
	nextQueryID   uint64
	inflight      map[uint64]*pendingQuery
	routable      map[peer.ID]struct{}
	liveness      map[peer.ID]*peerHealth
	connected     map[peer.ID]struct{}
}

// MakeBehavior creates the overlay behavior for the node identified by localPeer on the
// transport and cfg.LocalNodeID in protocol messages. Only peers speaking kadProtocol
// are offered to the routing table.
func MakeBehavior(cfg config.Local, localPeer peer.ID, kadProtocol protocol.ID, log logging.Logger, c Collaborators) *Behavior {
	return &Behavior{
		log:             log,
		localPeer:       localPeer,
		localID:         cfg.LocalNodeID,
		kadProtocol:     kadProtocol,
		maxPingFailures: cfg.PingMaxFailures,
		maxQueryRetries: cfg.DHTQueryMaxRetries,
		newBackoff:      vrrbDht.BackoffFactory(cfg.DHTQueryMinBackoff, cfg.DHTQueryMaxBackoff),
		now:             time.Now,
		kad:             c.Kademlia,
		queries:         c.Queries,
		peers:           c.Peers,
		addrBook:        c.AddrBook,
		sink:            c.Sink,
		commands:        c.Commands,
		messages:        c.Messages,
		inflight:        make(map[uint64]*pendingQuery),
		routable:        make(map[peer.ID]struct{}),
		liveness:        make(map[peer.ID]*peerHealth),
		connected:       make(map[peer.ID]struct{}),
	}
}

// Handle processes ev to completion.
func (b *Behavior) Handle(ev Event) {
	switch e := ev.(type) {
	case KademliaEvent:
		b.handleKademlia(e)
	case IdentifyEvent:
		b.handleIdentify(e)
	case PingEvent:
		b.handlePing(e)
	case GossipEvent:
		b.handleGossip(e)
	case ConnectionEvent:
		b.handleConnection(e)
	default:
		b.log.Debugf("overlay: ignoring event %T", ev)
	}
}

// State reports the Kademlia handler state.
func (b *Behavior) State() KadState {
	switch {
	case b.bootstrapping:
		return KadBootstrapping
	case len(b.inflight) > 0:
		return KadQueryInFlight
	default:
		return KadIdle
	}
}

func (b *Behavior) handleKademlia(ev KademliaEvent) {
	switch e := ev.(type) {
	case RoutingUpdated:
		_, known := b.routable[e.Peer]
		b.routable[e.Peer] = struct{}{}
		if b.addrBook != nil {
			if err := b.addrBook.Add(peer.AddrInfo{ID: e.Peer, Addrs: e.Addrs}); err != nil {
				b.log.Warnf("overlay: unable to remember %s: %v", e.Peer, err)
			}
		}
		if !known {
			b.sink.Emit(telemetryspec.RoutingUpdatedEvent, telemetryspec.RoutingEventDetails{
				PeerID:    e.Peer.String(),
				Addresses: addrStrings(e.Addrs),
				TableSize: b.kad.Size(),
			})
		}
	case UnroutablePeer:
		delete(b.routable, e.Peer)
		b.kad.RemovePeer(e.Peer)
		if b.addrBook != nil {
			if err := b.addrBook.Remove(e.Peer); err != nil {
				b.log.Warnf("overlay: unable to forget %s: %v", e.Peer, err)
			}
		}
		b.sink.Emit(telemetryspec.UnroutablePeerEvent, telemetryspec.RoutingEventDetails{
			PeerID:    e.Peer.String(),
			TableSize: b.kad.Size(),
		})
	case RoutablePeer:
		b.addRoute(e.Peer, []multiaddr.Multiaddr{e.Addr})
	case QueryResult:
		b.queryResult(e)
	}
	routingTableSize.Set(uint64(b.kad.Size()))
}

// addRoute offers p to the routing table and reports whether it became routable.
func (b *Behavior) addRoute(p peer.ID, addrs []multiaddr.Multiaddr) bool {
	if p == b.localPeer || len(addrs) == 0 {
		return false
	}
	if err := b.kad.AddAddresses(p, addrs); err != nil {
		b.handleKademlia(UnroutablePeer{Peer: p, Err: err})
		return false
	}
	b.handleKademlia(RoutingUpdated{Peer: p, Addrs: addrs})
	return true
}

func (b *Behavior) startQuery(kind QueryKind, key string) {
	q := Query{ID: b.nextQueryID, Kind: kind, Key: key}
	b.nextQueryID++
	b.inflight[q.ID] = &pendingQuery{query: q}
	b.queries.Run(q, 0)
}

// requestBootstrap starts a bootstrap seeded from p unless one is already running.
func (b *Behavior) requestBootstrap(p peer.ID) {
	if b.bootstrapping {
		return
	}
	b.bootstrapping = true
	b.startQuery(QueryBootstrap, p.String())
}

func (b *Behavior) lookupProviders() {
	for _, pq := range b.inflight {
		if pq.query.Kind == QueryGetProviders {
			return
		}
	}
	b.startQuery(QueryGetProviders, string(p2p.NodeCapability))
}

func (b *Behavior) queryResult(res QueryResult) {
	q := res.Query
	if !q.Kind.retryable() {
		// advertisements run on their own schedule and are only reported
		b.emitOutcome(res, false)
		return
	}
	pq, ok := b.inflight[q.ID]
	if !ok || pq.query.Attempt != q.Attempt {
		b.log.Debugf("overlay: dropping stale result of %s query %d", q.Kind, q.ID)
		return
	}
	if res.Err != nil && q.Attempt < b.maxQueryRetries {
		if pq.backoff == nil {
			pq.backoff = b.newBackoff()
		}
		next := q
		next.Attempt++
		pq.query = next
		b.emitOutcome(res, true)
		b.queries.Run(next, pq.backoff.Delay())
		return
	}
	delete(b.inflight, q.ID)
	b.emitOutcome(res, false)

	switch q.Kind {
	case QueryBootstrap:
		b.bootstrapping = false
		if res.Err == nil {
			b.startQuery(QueryGetClosestPeers, q.Key)
			b.lookupProviders()
		}
	case QueryGetClosestPeers, QueryGetProviders:
		for _, info := range res.Peers {
			b.addRoute(info.ID, info.Addrs)
		}
	}
}

func (b *Behavior) emitOutcome(res QueryResult, retrying bool) {
	details := telemetryspec.QueryOutcomeEventDetails{
		Kind:     res.Query.Kind.String(),
		Key:      res.Query.Key,
		Attempt:  res.Query.Attempt,
		Peers:    len(res.Peers),
		Retrying: retrying,
	}
	if res.Err != nil {
		details.Error = res.Err.Error()
	}
	b.sink.Emit(telemetryspec.QueryOutcomeEvent, details)
}

func (b *Behavior) handleIdentify(ev IdentifyEvent) {
	switch e := ev.(type) {
	case IdentifyReceived:
		details := telemetryspec.IdentifyEventDetails{PeerID: e.Peer.String(), AgentVersion: e.AgentVersion}
		if e.ObservedAddr != nil {
			details.ObservedAddr = e.ObservedAddr.String()
		}
		b.sink.Emit(telemetryspec.IdentifyReceivedEvent, details)
		if !slices.Contains(e.Protocols, b.kadProtocol) {
			b.log.Debugf("overlay: %s does not speak %s", e.Peer, b.kadProtocol)
			return
		}
		if b.addRoute(e.Peer, identifyAddrs(e)) {
			b.requestBootstrap(e.Peer)
		}
	case IdentifyPushed:
		b.log.Debugf("overlay: %s pushed identify update", e.Peer)
	case IdentifyFailed:
		details := telemetryspec.IdentifyEventDetails{PeerID: e.Peer.String()}
		if e.Err != nil {
			details.Error = e.Err.Error()
		}
		b.sink.Emit(telemetryspec.IdentifyFailedEvent, details)
	case ListenAddressesUpdated:
		b.log.Infof("overlay: listening on %v", e.Addrs)
	}
}

// identifyAddrs puts the connection observed address first, followed by the
// distinct addresses the peer reported.
func identifyAddrs(e IdentifyReceived) []multiaddr.Multiaddr {
	addrs := make([]multiaddr.Multiaddr, 0, len(e.ListenAddrs)+1)
	if e.ObservedAddr != nil {
		addrs = append(addrs, e.ObservedAddr)
	}
	for _, a := range e.ListenAddrs {
		if !slices.ContainsFunc(addrs, a.Equal) {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

func (b *Behavior) health(p peer.ID) *peerHealth {
	h, ok := b.liveness[p]
	if !ok {
		h = &peerHealth{}
		b.liveness[p] = h
	}
	return h
}

func (b *Behavior) handlePing(ev PingEvent) {
	switch e := ev.(type) {
	case PingSuccess:
		h := b.health(e.Peer)
		h.lastSeen = b.now()
		h.rtt = e.RTT
		h.failures = 0
	case PingFailure:
		h := b.health(e.Peer)
		h.failures++
		b.log.Debugf("overlay: ping to %s failed (%d/%d, timeout %v): %v", e.Peer, h.failures, b.maxPingFailures, e.Timeout, e.Err)
		if h.failures >= b.maxPingFailures {
			b.evict(e.Peer, h)
		}
	}
}

func (b *Behavior) evict(p peer.ID, h *peerHealth) {
	b.sink.Emit(telemetryspec.PeerEvictedEvent, telemetryspec.PeerEvictedEventDetails{
		PeerID:   p.String(),
		Failures: h.failures,
		LastSeen: h.lastSeen,
	})
	delete(b.liveness, p)
	b.handleKademlia(UnroutablePeer{Peer: p, Err: errEvicted})
	if err := b.peers.ClosePeer(p); err != nil {
		b.log.Warnf("overlay: closing evicted peer %s: %v", p, err)
	}
}

func (b *Behavior) handleGossip(ev GossipEvent) {
	switch e := ev.(type) {
	case GossipMessage:
		b.gossipMessage(e)
	case GossipSubscribed:
		b.sink.Emit(telemetryspec.GossipSubscribedEvent, telemetryspec.GossipTopicEventDetails{Topic: e.Topic, PeerID: e.Peer.String()})
	case GossipUnsubscribed:
		b.sink.Emit(telemetryspec.GossipUnsubscribedEvent, telemetryspec.GossipTopicEventDetails{Topic: e.Topic, PeerID: e.Peer.String()})
	}
}

func (b *Behavior) gossipMessage(e GossipMessage) {
	gossipMessagesReceived.Inc(nil)
	msg := e.Decoded
	if msg == nil {
		decoded, err := messages.Decode(e.Data)
		if err != nil {
			b.sink.Emit(telemetryspec.DecodeRejectedEvent, telemetryspec.DecodeRejectedEventDetails{
				Topic:  e.Topic,
				From:   e.From.String(),
				Reason: err.Error(),
			})
			return
		}
		msg = decoded
	}

	if b.messages != nil {
		select {
		case b.messages <- msg:
		default:
			b.log.Debugf("overlay: message backlog full, dropping %s from %s", msg.Tag(), e.From)
		}
	}

	cmd, ok := dispatch.Dispatch(msg, b.localID)
	if !ok {
		return
	}
	details := telemetryspec.CommandEventDetails{Command: cmd.Kind(), From: e.From.String()}
	select {
	case b.commands <- cmd:
		b.sink.Emit(telemetryspec.CommandDispatchedEvent, details)
	default:
		b.sink.Emit(telemetryspec.CommandDroppedEvent, details)
	}
}

func (b *Behavior) handleConnection(ev ConnectionEvent) {
	switch e := ev.(type) {
	case PeerConnected:
		if _, ok := b.connected[e.Peer]; ok {
			return
		}
		b.connected[e.Peer] = struct{}{}
		details := telemetryspec.PeerEventDetails{PeerID: e.Peer.String(), Incoming: e.Incoming}
		if e.Addr != nil {
			details.Address = e.Addr.String()
		}
		b.sink.Emit(telemetryspec.PeerJoinedEvent, details)
	case PeerDisconnected:
		delete(b.liveness, e.Peer)
		if _, ok := b.connected[e.Peer]; !ok {
			return
		}
		delete(b.connected, e.Peer)
		b.sink.Emit(telemetryspec.PeerLeftEvent, telemetryspec.PeerEventDetails{PeerID: e.Peer.String()})
	}
	peersConnected.Set(uint64(len(b.connected)))
}

// PeerHealth is the liveness record of one peer.
type PeerHealth struct {
	Peer     string        `json:"peer"`
	LastSeen time.Time     `json:"lastSeen"`
	RTT      time.Duration `json:"rtt"`
	Failures int           `json:"failures"`
}

// Status is a point in time view of the behavior state.
type Status struct {
	State           string       `json:"state"`
	RoutingTable    int          `json:"routingTable"`
	RoutablePeers   int          `json:"routablePeers"`
	ConnectedPeers  int          `json:"connectedPeers"`
	InFlightQueries int          `json:"inFlightQueries"`
	Peers           []PeerHealth `json:"peers"`
}

// Status captures the current state of the behavior.
func (b *Behavior) Status() Status {
	st := Status{
		State:           b.State().String(),
		RoutingTable:    b.kad.Size(),
		RoutablePeers:   len(b.routable),
		ConnectedPeers:  len(b.connected),
		InFlightQueries: len(b.inflight),
		Peers:           make([]PeerHealth, 0, len(b.liveness)),
	}
	for p, h := range b.liveness {
		st.Peers = append(st.Peers, PeerHealth{Peer: p.String(), LastSeen: h.lastSeen, RTT: h.rtt, Failures: h.failures})
	}
	sort.Slice(st.Peers, func(i, j int) bool { return st.Peers[i].Peer < st.Peers[j].Peer })
	return st
}

func (s Status) String() string {
	return fmt.Sprintf("%s, %d routable, %d connected, %d queries", s.State, s.RoutablePeers, s.ConnectedPeers, s.InFlightQueries)
}

func addrStrings(addrs []multiaddr.Multiaddr) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
