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
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"

	"github.com/vrrb-io/go-vrrb/network/messages"
)

// Event is anything the overlay loop reacts to. The set of events is closed: every
// event belongs to exactly one of KademliaEvent, IdentifyEvent, PingEvent, GossipEvent
// or ConnectionEvent.
type Event interface {
	event()
}

// KademliaEvent reports a change of the routing table or the outcome of a query.
type KademliaEvent interface {
	Event
	kademliaEvent()
}

// IdentifyEvent reports the result of an identify exchange.
type IdentifyEvent interface {
	Event
	identifyEvent()
}

// PingEvent reports the result of a single liveness ping.
type PingEvent interface {
	Event
	pingEvent()
}

// GossipEvent reports a message or a membership change on a gossip topic.
type GossipEvent interface {
	Event
	gossipEvent()
}

// ConnectionEvent reports a peer gaining its first or losing its last connection.
type ConnectionEvent interface {
	Event
	connectionEvent()
}

// RoutingUpdated is raised when Peer entered (or refreshed its addresses in) the routing table.
type RoutingUpdated struct {
	Peer  peer.ID
	Addrs []multiaddr.Multiaddr
}

// UnroutablePeer is raised when Peer cannot be, or should no longer be, in the routing table.
type UnroutablePeer struct {
	Peer peer.ID
	Err  error
}

// RoutablePeer carries an address learned for a peer outside an identify exchange,
// such as a provider record. The peer is offered to the routing table.
type RoutablePeer struct {
	Peer peer.ID
	Addr multiaddr.Multiaddr
}

// QueryKind enumerates the DHT queries the overlay runs or observes.
type QueryKind int

const (
	// QueryBootstrap refreshes the routing table.
	QueryBootstrap QueryKind = iota
	// QueryGetClosestPeers looks up the peers closest to a key.
	QueryGetClosestPeers
	// QueryGetProviders looks up peers advertising a capability.
	QueryGetProviders
	// QueryStartProviding is the first advertisement of a capability.
	QueryStartProviding
	// QueryRepublishProvider is a periodic re-advertisement of a capability.
	QueryRepublishProvider
)

func (k QueryKind) String() string {
	switch k {
	case QueryBootstrap:
		return "Bootstrap"
	case QueryGetClosestPeers:
		return "GetClosestPeers"
	case QueryGetProviders:
		return "GetProviders"
	case QueryStartProviding:
		return "StartProviding"
	case QueryRepublishProvider:
		return "RepublishProvider"
	default:
		return "Unknown"
	}
}

// retryable reports whether failures of this kind are retried with backoff.
func (k QueryKind) retryable() bool {
	return k == QueryBootstrap || k == QueryGetClosestPeers || k == QueryGetProviders
}

// Query identifies one DHT query. Attempt counts retries, starting at 0.
type Query struct {
	ID      uint64
	Kind    QueryKind
	Key     string
	Attempt int
}

// QueryResult is posted when a query attempt finishes.
type QueryResult struct {
	Query Query
	Peers []peer.AddrInfo
	Err   error
}

// IdentifyReceived carries what a peer reported about itself during identify.
// ObservedAddr is the remote address of the connection the exchange ran on.
type IdentifyReceived struct {
	Peer         peer.ID
	ObservedAddr multiaddr.Multiaddr
	ListenAddrs  []multiaddr.Multiaddr
	AgentVersion string
	Protocols    []protocol.ID
}

// IdentifyPushed is raised when a peer pushed updated identify information.
type IdentifyPushed struct {
	Peer peer.ID
}

// IdentifyFailed is raised when the identify exchange with a peer failed.
type IdentifyFailed struct {
	Peer peer.ID
	Err  error
}

// ListenAddressesUpdated is raised when the local listen addresses changed.
type ListenAddressesUpdated struct {
	Addrs []multiaddr.Multiaddr
}

// PingSuccess is raised when a ping round trip completed.
type PingSuccess struct {
	Peer peer.ID
	RTT  time.Duration
}

// PingFailure is raised when a ping failed. Timeout is set when the round trip did not
// complete in time.
type PingFailure struct {
	Peer    peer.ID
	Err     error
	Timeout bool
}

// GossipMessage is a payload delivered on a gossip topic. Decoded is set when the topic
// validator already decoded the payload.
type GossipMessage struct {
	From    peer.ID
	Topic   string
	Data    []byte
	Decoded messages.Message
}

// GossipSubscribed is raised when a peer joined a topic.
type GossipSubscribed struct {
	Peer  peer.ID
	Topic string
}

// GossipUnsubscribed is raised when a peer left a topic.
type GossipUnsubscribed struct {
	Peer  peer.ID
	Topic string
}

// PeerConnected is raised when the first connection to a peer is established.
type PeerConnected struct {
	Peer     peer.ID
	Addr     multiaddr.Multiaddr
	Incoming bool
}

// PeerDisconnected is raised when the last connection to a peer is closed.
type PeerDisconnected struct {
	Peer peer.ID
}

func (RoutingUpdated) event()         {}
func (UnroutablePeer) event()         {}
func (RoutablePeer) event()           {}
func (QueryResult) event()            {}
func (IdentifyReceived) event()       {}
func (IdentifyPushed) event()         {}
func (IdentifyFailed) event()         {}
func (ListenAddressesUpdated) event() {}
func (PingSuccess) event()            {}
func (PingFailure) event()            {}
func (GossipMessage) event()          {}
func (GossipSubscribed) event()       {}
func (GossipUnsubscribed) event()     {}
func (PeerConnected) event()          {}
func (PeerDisconnected) event()       {}

func (RoutingUpdated) kademliaEvent() {}
func (UnroutablePeer) kademliaEvent() {}
func (RoutablePeer) kademliaEvent()   {}
func (QueryResult) kademliaEvent()    {}

func (IdentifyReceived) identifyEvent()       {}
func (IdentifyPushed) identifyEvent()         {}
func (IdentifyFailed) identifyEvent()         {}
func (ListenAddressesUpdated) identifyEvent() {}

func (PingSuccess) pingEvent() {}
func (PingFailure) pingEvent() {}

func (GossipMessage) gossipEvent()      {}
func (GossipSubscribed) gossipEvent()   {}
func (GossipUnsubscribed) gossipEvent() {}

func (PeerConnected) connectionEvent()    {}
func (PeerDisconnected) connectionEvent() {}
