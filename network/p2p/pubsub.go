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
	"time"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pubsub_pb "github.com/libp2p/go-libp2p-pubsub/pb"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/crypto/blake2b"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/protocol"
)

const (
	gossipScoreThreshold             = -500
	publishScoreThreshold            = -1000
	graylistScoreThreshold           = -2500
	acceptPXScoreThreshold           = 1000
	opportunisticGraftScoreThreshold = 3.5
)

// maxSubscribedTopics bounds the subscriptions a single peer may announce to us.
const maxSubscribedTopics = 100

const validateQueueSize = 256

// maxGossipRPCSize admits the largest encoded message plus the RPC framing around it.
const maxGossipRPCSize = protocol.MaxEncodedMessageSize + 64*1024

// deriveGossipSubParams sizes the gossip mesh around the configured fanout.
// Fanouts below 2 cannot form a mesh with a low watermark and keep the library defaults.
func deriveGossipSubParams(fanout int) pubsub.GossipSubParams {
	params := pubsub.DefaultGossipSubParams()
	if fanout < 2 {
		return params
	}
	params.D = fanout
	params.Dlo = fanout - 1
	params.Dhi = 2 * fanout
	params.Dscore = fanout * 2 / 3
	params.Dlazy = fanout
	// Dout must stay below both Dlo and D/2
	dout := fanout / 3
	if dout >= fanout/2 {
		dout = fanout/2 - 1
	}
	if dout >= params.Dlo {
		dout = params.Dlo - 1
	}
	if dout < 0 {
		dout = 0
	}
	params.Dout = dout
	return params
}

func peerScoreParams(topic string) *pubsub.PeerScoreParams {
	return &pubsub.PeerScoreParams{
		DecayInterval: pubsub.DefaultDecayInterval,
		DecayToZero:   pubsub.DefaultDecayToZero,

		AppSpecificScore: func(p peer.ID) float64 { return 1000 },

		Topics: map[string]*pubsub.TopicScoreParams{
			topic: {
				TopicWeight: 0.1,

				TimeInMeshWeight:  0.0002778, // ~1/3600
				TimeInMeshQuantum: time.Second,
				TimeInMeshCap:     1,

				FirstMessageDeliveriesWeight: 0.5, // max value is 50
				FirstMessageDeliveriesDecay:  pubsub.ScoreParameterDecay(10 * time.Minute),
				FirstMessageDeliveriesCap:    100, // 100 messages in 10 minutes

				// undecodable payloads are ignored, not rejected, so this only
				// penalizes peers that break validation outright
				InvalidMessageDeliveriesWeight: -1000,
				InvalidMessageDeliveriesDecay:  pubsub.ScoreParameterDecay(time.Hour),
			},
		},
	}
}

func makePubSub(ctx context.Context, cfg config.Local, host host.Host, log logging.Logger) (*pubsub.PubSub, error) {
	topic := cfg.ResolvedGossipTopic()
	options := []pubsub.Option{
		pubsub.WithGossipSubParams(deriveGossipSubParams(cfg.GossipFanout)),
		pubsub.WithPeerScore(peerScoreParams(topic),
			&pubsub.PeerScoreThresholds{
				GossipThreshold:             gossipScoreThreshold,
				PublishThreshold:            publishScoreThreshold,
				GraylistThreshold:           graylistScoreThreshold,
				AcceptPXThreshold:           acceptPXScoreThreshold,
				OpportunisticGraftThreshold: opportunisticGraftScoreThreshold,
			},
		),
		pubsub.WithSubscriptionFilter(pubsub.WrapLimitSubscriptionFilter(pubsub.NewAllowlistSubscriptionFilter(topic), maxSubscribedTopics)),
		pubsub.WithMessageIdFn(gossipMsgID),
		pubsub.WithRawTracer(pubsubTracer{log: log}),
		pubsub.WithValidateQueueSize(validateQueueSize),
		pubsub.WithMaxMessageSize(maxGossipRPCSize),
	}

	return pubsub.NewGossipSub(ctx, host, options...)
}

// gossipMsgID identifies messages by content so the same payload relayed by
// different peers is deduplicated.
func gossipMsgID(m *pubsub_pb.Message) string {
	h := blake2b.Sum256(m.Data)
	return string(h[:])
}

// getOrCreateTopic returns a topic if it was already joined previously and otherwise creates it and adds it to the topics map
func (s *Service) getOrCreateTopic(topicName string) (*pubsub.Topic, error) {
	s.topicsMu.RLock()
	topic, ok := s.topics[topicName]
	s.topicsMu.RUnlock()
	if ok {
		return topic, nil
	}

	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()
	// check again in case it was created while we were waiting for the lock
	if _, ok := s.topics[topicName]; !ok {
		psTopic, err := s.pubsub.Join(topicName)
		if err != nil {
			return nil, err
		}
		s.topics[topicName] = psTopic
	}
	return s.topics[topicName], nil
}

// Subscribe returns a subscription to the given topic
func (s *Service) Subscribe(topic string, val pubsub.ValidatorEx) (*pubsub.Subscription, error) {
	if val != nil {
		if err := s.pubsub.RegisterTopicValidator(topic, val); err != nil {
			return nil, err
		}
	}
	t, err := s.getOrCreateTopic(topic)
	if err != nil {
		return nil, err
	}
	return t.Subscribe()
}

// TopicEventHandler reports peers joining and leaving the given topic.
func (s *Service) TopicEventHandler(topic string) (*pubsub.TopicEventHandler, error) {
	t, err := s.getOrCreateTopic(topic)
	if err != nil {
		return nil, err
	}
	return t.EventHandler()
}

// Publish publishes data to the given topic
func (s *Service) Publish(ctx context.Context, topic string, data []byte) error {
	t, err := s.getOrCreateTopic(topic)
	if err != nil {
		return err
	}
	if err := t.Publish(ctx, data); err != nil {
		return err
	}
	gossipMessagesSent.Inc(nil)
	return nil
}

// ListPeersForTopic returns a list of peers subscribed to the given topic
func (s *Service) ListPeersForTopic(topic string) []peer.ID {
	return s.pubsub.ListPeers(topic)
}
