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
	"context"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/logging/telemetryspec"
	"github.com/vrrb-io/go-vrrb/network/messages"
)

// MakeValidator returns the topic validator for the gossip topic. Payloads that do not
// decode are ignored rather than rejected: malformed traffic is expected on a public
// network and is not held against the relaying peer. Decoded messages are attached to the
// pubsub message so the reader does not decode them twice.
func MakeValidator(self peer.ID, topic string, sink Sink) pubsub.ValidatorEx {
	return func(ctx context.Context, from peer.ID, msg *pubsub.Message) pubsub.ValidationResult {
		if from == self {
			// our own messages were validated before they were encoded
			return pubsub.ValidationAccept
		}
		m, err := messages.Decode(msg.Data)
		if err != nil {
			sink.Emit(telemetryspec.DecodeRejectedEvent, telemetryspec.DecodeRejectedEventDetails{
				Topic:  topic,
				From:   from.String(),
				Reason: err.Error(),
			})
			return pubsub.ValidationIgnore
		}
		msg.ValidatorData = m
		return pubsub.ValidationAccept
	}
}

// ReadGossip posts every message delivered on sub, other than our own, until ctx is done
// or the subscription is cancelled. ReadGossip blocks.
func ReadGossip(ctx context.Context, self peer.ID, sub *pubsub.Subscription, poster Poster, log logging.Logger) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Infof("overlay: gossip subscription to %s ended: %v", sub.Topic(), err)
			}
			return
		}
		if msg.ReceivedFrom == self {
			continue
		}
		ev := GossipMessage{From: msg.ReceivedFrom, Topic: sub.Topic(), Data: msg.Data}
		if m, ok := msg.ValidatorData.(messages.Message); ok {
			ev.Decoded = m
		}
		if err := poster.Post(ctx, ev); err != nil {
			return
		}
	}
}

// ReadTopicEvents posts topic membership changes until ctx is done or the handler is
// cancelled. ReadTopicEvents blocks.
func ReadTopicEvents(ctx context.Context, topic string, h *pubsub.TopicEventHandler, poster Poster) {
	for {
		pe, err := h.NextPeerEvent(ctx)
		if err != nil {
			return
		}
		var ev Event
		switch pe.Type {
		case pubsub.PeerJoin:
			ev = GossipSubscribed{Peer: pe.Peer, Topic: topic}
		case pubsub.PeerLeave:
			ev = GossipUnsubscribed{Peer: pe.Peer, Topic: topic}
		default:
			continue
		}
		if err := poster.Post(ctx, ev); err != nil {
			return
		}
	}
}
