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

package telemetryspec

import "time"

// Telemetry Events

// Event is the type used to identify telemetry events
// We want these to be stable and easy to find / document so we can create queries against them.
type Event string

// StartupEvent event
const StartupEvent Event = "Startup"

// StartupEventDetails contains details for the StartupEvent
type StartupEventDetails struct {
	Version         string
	NetworkID       string
	LocalNodeID     string
	PeerID          string
	ListenAddresses []string
}

// ShutdownEvent event
const ShutdownEvent Event = "Shutdown"

// PeerJoinedEvent event
const PeerJoinedEvent Event = "PeerJoined"

// PeerLeftEvent event
const PeerLeftEvent Event = "PeerLeft"

// PeerEventDetails contains details for the PeerJoinedEvent and PeerLeftEvent
type PeerEventDetails struct {
	PeerID   string
	Address  string
	Incoming bool
}

// PeerEvictedEvent is emitted when a peer is dropped after repeated liveness failures
const PeerEvictedEvent Event = "PeerEvicted"

// PeerEvictedEventDetails contains details for the PeerEvictedEvent
type PeerEvictedEventDetails struct {
	PeerID   string
	Failures int
	LastSeen time.Time
}

// RoutingUpdatedEvent is emitted when a peer address was added to the routing table
const RoutingUpdatedEvent Event = "RoutingUpdated"

// UnroutablePeerEvent is emitted when the routing table refused a peer
const UnroutablePeerEvent Event = "UnroutablePeer"

// RoutingEventDetails contains details for the RoutingUpdatedEvent and UnroutablePeerEvent
type RoutingEventDetails struct {
	PeerID    string
	Addresses []string
	TableSize int
}

// QueryOutcomeEvent is emitted for every finished DHT query
const QueryOutcomeEvent Event = "QueryOutcome"

// QueryOutcomeEventDetails contains details for the QueryOutcomeEvent
type QueryOutcomeEventDetails struct {
	Kind     string
	Key      string
	Attempt  int
	Peers    int
	Retrying bool
	Error    string `json:",omitempty"`
}

// IdentifyReceivedEvent event
const IdentifyReceivedEvent Event = "IdentifyReceived"

// IdentifyFailedEvent event
const IdentifyFailedEvent Event = "IdentifyFailed"

// IdentifyEventDetails contains details for the identify events
type IdentifyEventDetails struct {
	PeerID       string
	AgentVersion string `json:",omitempty"`
	ObservedAddr string `json:",omitempty"`
	Error        string `json:",omitempty"`
}

// DecodeRejectedEvent is emitted when a gossip payload cannot be decoded into a message
const DecodeRejectedEvent Event = "DecodeRejected"

// DecodeRejectedEventDetails contains details for the DecodeRejectedEvent
type DecodeRejectedEventDetails struct {
	Topic  string
	From   string
	Reason string
}

// CommandDispatchedEvent event
const CommandDispatchedEvent Event = "CommandDispatched"

// CommandDroppedEvent is emitted when the command backlog is full
const CommandDroppedEvent Event = "CommandDropped"

// CommandEventDetails contains details for the command events
type CommandEventDetails struct {
	Command string
	From    string
}

// GossipSubscribedEvent event
const GossipSubscribedEvent Event = "GossipSubscribed"

// GossipUnsubscribedEvent event
const GossipUnsubscribedEvent Event = "GossipUnsubscribed"

// GossipTopicEventDetails contains details for the gossip membership events
type GossipTopicEventDetails struct {
	Topic  string
	PeerID string
}
