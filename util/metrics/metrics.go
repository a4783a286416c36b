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

package metrics

// MetricName describes the name and description of a single metric
type MetricName struct {
	Name        string
	Description string
}

var (
	// NetworkGossipMessagesReceived Number of gossip messages delivered to the node
	NetworkGossipMessagesReceived = MetricName{Name: "vrrb_network_gossip_messages_received_total", Description: "Number of gossip messages delivered to the node"}
	// NetworkGossipMessagesSent Number of gossip messages published by the node
	NetworkGossipMessagesSent = MetricName{Name: "vrrb_network_gossip_messages_sent_total", Description: "Number of gossip messages published by the node"}
	// NetworkDecodeRejected Number of gossip payloads that could not be decoded
	NetworkDecodeRejected = MetricName{Name: "vrrb_network_decode_rejected_total", Description: "Number of gossip payloads that could not be decoded"}
	// NetworkCommandsDispatched Number of commands handed to the node, by command kind
	NetworkCommandsDispatched = MetricName{Name: "vrrb_network_commands_dispatched_total", Description: "Number of commands handed to the node"}
	// NetworkCommandsDropped Number of commands dropped because the command backlog was full
	NetworkCommandsDropped = MetricName{Name: "vrrb_network_commands_dropped_total", Description: "Number of commands dropped because the command backlog was full"}
	// NetworkPeersEvicted Number of peers evicted after repeated ping failures
	NetworkPeersEvicted = MetricName{Name: "vrrb_network_peers_evicted_total", Description: "Number of peers evicted after repeated ping failures"}
	// NetworkPeersConnected Number of currently connected peers
	NetworkPeersConnected = MetricName{Name: "vrrb_network_peers_connected", Description: "Number of currently connected peers"}
	// NetworkDHTQueries Number of finished DHT queries, by kind and result
	NetworkDHTQueries = MetricName{Name: "vrrb_network_dht_queries_total", Description: "Number of finished DHT queries"}
	// NetworkRoutingTableSize Number of peers in the DHT routing table
	NetworkRoutingTableSize = MetricName{Name: "vrrb_network_routing_table_size", Description: "Number of peers in the DHT routing table"}
	// NetworkPubsubDuplicates Number of duplicate pubsub messages received
	NetworkPubsubDuplicates = MetricName{Name: "vrrb_network_pubsub_duplicates_total", Description: "Number of duplicate pubsub messages received"}
	// NetworkPubsubRejected Number of pubsub messages rejected or ignored by validation
	NetworkPubsubRejected = MetricName{Name: "vrrb_network_pubsub_rejected_total", Description: "Number of pubsub messages rejected or ignored by validation"}
)
