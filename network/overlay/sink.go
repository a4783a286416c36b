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
	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/logging/telemetryspec"
	"github.com/vrrb-io/go-vrrb/util/metrics"
)

var (
	gossipMessagesReceived = metrics.MakeCounter(metrics.NetworkGossipMessagesReceived)
	decodeRejected         = metrics.MakeCounter(metrics.NetworkDecodeRejected)
	commandsDispatched     = metrics.MakeCounter(metrics.NetworkCommandsDispatched, "kind")
	commandsDropped        = metrics.MakeCounter(metrics.NetworkCommandsDropped)
	peersEvicted           = metrics.MakeCounter(metrics.NetworkPeersEvicted)
	dhtQueries             = metrics.MakeCounter(metrics.NetworkDHTQueries, "kind", "result")
	peersConnected         = metrics.MakeGauge(metrics.NetworkPeersConnected)
	routingTableSize       = metrics.MakeGauge(metrics.NetworkRoutingTableSize)
)

// Sink receives the observability events of the overlay. Emit may be called from the
// overlay loop and from gossip validators concurrently.
type Sink interface {
	Emit(event telemetryspec.Event, details interface{})
}

var eventCategories = map[telemetryspec.Event]telemetryspec.Category{
	telemetryspec.PeerJoinedEvent:         telemetryspec.Network,
	telemetryspec.PeerLeftEvent:           telemetryspec.Network,
	telemetryspec.DecodeRejectedEvent:     telemetryspec.Network,
	telemetryspec.CommandDispatchedEvent:  telemetryspec.Network,
	telemetryspec.CommandDroppedEvent:     telemetryspec.Network,
	telemetryspec.GossipSubscribedEvent:   telemetryspec.Network,
	telemetryspec.GossipUnsubscribedEvent: telemetryspec.Network,
	telemetryspec.PeerEvictedEvent:        telemetryspec.Overlay,
	telemetryspec.RoutingUpdatedEvent:     telemetryspec.Overlay,
	telemetryspec.UnroutablePeerEvent:     telemetryspec.Overlay,
	telemetryspec.QueryOutcomeEvent:       telemetryspec.Overlay,
	telemetryspec.IdentifyReceivedEvent:   telemetryspec.Overlay,
	telemetryspec.IdentifyFailedEvent:     telemetryspec.Overlay,
}

// LogSink counts overlay events in the node metrics and, when enabled, records them
// as telemetry entries in the node log.
type LogSink struct {
	log   logging.Logger
	toLog bool
}

// MakeLogSink creates a LogSink writing to log. With toLog unset only metrics are updated.
func MakeLogSink(log logging.Logger, toLog bool) *LogSink {
	return &LogSink{log: log, toLog: toLog}
}

// Emit implements Sink.
func (s *LogSink) Emit(event telemetryspec.Event, details interface{}) {
	switch event {
	case telemetryspec.PeerEvictedEvent:
		peersEvicted.Inc(nil)
	case telemetryspec.DecodeRejectedEvent:
		decodeRejected.Inc(nil)
	case telemetryspec.CommandDroppedEvent:
		commandsDropped.Inc(nil)
	case telemetryspec.CommandDispatchedEvent:
		if d, ok := details.(telemetryspec.CommandEventDetails); ok {
			commandsDispatched.Inc(map[string]string{"kind": d.Command})
		}
	case telemetryspec.QueryOutcomeEvent:
		if d, ok := details.(telemetryspec.QueryOutcomeEventDetails); ok {
			dhtQueries.Inc(map[string]string{"kind": d.Kind, "result": queryResultLabel(d)})
		}
	}
	if !s.toLog {
		return
	}
	category, ok := eventCategories[event]
	if !ok {
		category = telemetryspec.Network
	}
	s.log.EventWithDetails(category, event, details)
}

func queryResultLabel(d telemetryspec.QueryOutcomeEventDetails) string {
	switch {
	case d.Error == "":
		return "ok"
	case d.Retrying:
		return "retry"
	default:
		return "failed"
	}
}
