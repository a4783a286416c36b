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

	"github.com/algorand/go-deadlock"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/logging"
)

// Service manages integration with libp2p: the host plus the gossip router running on it.
type Service struct {
	log    logging.Logger
	host   host.Host
	pubsub *pubsub.PubSub
	cfg    config.Local

	topics   map[string]*pubsub.Topic
	topicsMu deadlock.RWMutex
}

// MakeService starts gossip on top of an already built host.
func MakeService(ctx context.Context, log logging.Logger, cfg config.Local, h host.Host) (*Service, error) {
	ps, err := makePubSub(ctx, cfg, h, log)
	if err != nil {
		return nil, err
	}
	log.Infof("P2P service started: peer ID %s addrs %s", h.ID(), h.Addrs())

	return &Service{
		log:    log,
		host:   h,
		pubsub: ps,
		cfg:    cfg,
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

// Close leaves every joined topic and shuts down the host.
func (s *Service) Close() error {
	s.topicsMu.Lock()
	for name, t := range s.topics {
		if err := t.Close(); err != nil {
			s.log.Debugf("closing topic %s: %v", name, err)
		}
		delete(s.topics, name)
	}
	s.topicsMu.Unlock()
	return s.host.Close()
}

// Host returns the libp2p host
func (s *Service) Host() host.Host {
	return s.host
}

// ID returns the local peer ID.
func (s *Service) ID() peer.ID {
	return s.host.ID()
}

// Addrs returns the dialable addresses of this node, each ending in its /p2p/ component.
func (s *Service) Addrs() []multiaddr.Multiaddr {
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: s.host.ID(), Addrs: s.host.Addrs()})
	if err != nil {
		return nil
	}
	return addrs
}

// dialRetryDelay is how long a peer that failed to connect is skipped by peerstore selection.
const dialRetryDelay = time.Minute

// retryScheduler is implemented by peerstores that can postpone dialing a peer.
type retryScheduler interface {
	UpdateRetryAfter(p peer.ID, retryAfter time.Time)
}

// DialPeers connects to the given peers until targetConnCount connections are open.
// A targetConnCount of zero dials every peer.
func (s *Service) DialPeers(ctx context.Context, infos []peer.AddrInfo, targetConnCount int) {
	for i := range infos {
		if targetConnCount > 0 && len(s.host.Network().Conns()) >= targetConnCount {
			return
		}
		if len(s.host.Network().ConnsToPeer(infos[i].ID)) > 0 {
			continue
		}
		if err := s.DialNode(ctx, &infos[i]); err != nil {
			s.log.Warnf("failed to connect to peer %s: %v", infos[i].ID, err)
			if rs, ok := s.host.Peerstore().(retryScheduler); ok {
				rs.UpdateRetryAfter(infos[i].ID, time.Now().Add(dialRetryDelay))
			}
		}
	}
}

// DialNode attempts to establish a connection to the provided peer
func (s *Service) DialNode(ctx context.Context, peer *peer.AddrInfo) error {
	// don't try connecting to ourselves
	if peer.ID == s.host.ID() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectionUpgradeTimeout)
	defer cancel()
	return s.host.Connect(ctx, *peer)
}

// ClosePeer drops every connection to p.
func (s *Service) ClosePeer(p peer.ID) error {
	return s.host.Network().ClosePeer(p)
}
