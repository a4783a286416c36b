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

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/p2p/host/eventbus"
	"github.com/multiformats/go-multiaddr"

	"github.com/vrrb-io/go-vrrb/logging"
)

const identifyEventBuffer = 64

// WatchIdentify forwards identify outcomes and local address changes from the host event
// bus until ctx is done. The subscription is set up before WatchIdentify returns.
func WatchIdentify(ctx context.Context, h host.Host, poster Poster, log logging.Logger) error {
	sub, err := h.EventBus().Subscribe([]interface{}{
		new(event.EvtPeerIdentificationCompleted),
		new(event.EvtPeerIdentificationFailed),
		new(event.EvtPeerProtocolsUpdated),
		new(event.EvtLocalAddressesUpdated),
	}, eventbus.BufSize(identifyEventBuffer), eventbus.Name("vrrb-overlay"))
	if err != nil {
		return err
	}
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-sub.Out():
				if !ok {
					return
				}
				ev := identifyEvent(e)
				if ev == nil {
					continue
				}
				if err := poster.Post(ctx, ev); err != nil {
					log.Debugf("overlay: identify watcher stopping: %v", err)
					return
				}
			}
		}
	}()
	return nil
}

func identifyEvent(e interface{}) Event {
	switch evt := e.(type) {
	case event.EvtPeerIdentificationCompleted:
		ev := IdentifyReceived{
			Peer:         evt.Peer,
			ListenAddrs:  evt.ListenAddrs,
			AgentVersion: evt.AgentVersion,
			Protocols:    evt.Protocols,
		}
		// the peer reports our address as ObservedAddr; its own observed address is
		// the remote end of the connection
		if evt.Conn != nil {
			ev.ObservedAddr = evt.Conn.RemoteMultiaddr()
		}
		return ev
	case event.EvtPeerIdentificationFailed:
		return IdentifyFailed{Peer: evt.Peer, Err: evt.Reason}
	case event.EvtPeerProtocolsUpdated:
		return IdentifyPushed{Peer: evt.Peer}
	case event.EvtLocalAddressesUpdated:
		addrs := make([]multiaddr.Multiaddr, 0, len(evt.Current))
		for _, a := range evt.Current {
			addrs = append(addrs, a.Address)
		}
		return ListenAddressesUpdated{Addrs: addrs}
	}
	return nil
}

// connNotifee turns swarm connection notifications into connection events. Notifications
// are delivered synchronously by the swarm, so events are dropped rather than waited on
// when the loop backlog is full.
type connNotifee struct {
	poster Poster
	log    logging.Logger
}

// WatchConnections registers a notifee posting PeerConnected and PeerDisconnected on h.
// The returned function unregisters it.
func WatchConnections(h host.Host, poster Poster, log logging.Logger) (stop func()) {
	n := connNotifee{poster: poster, log: log}
	bundle := &network.NotifyBundle{
		ConnectedF:    n.connected,
		DisconnectedF: n.disconnected,
	}
	h.Network().Notify(bundle)
	return func() { h.Network().StopNotify(bundle) }
}

func (n connNotifee) connected(net network.Network, conn network.Conn) {
	p := conn.RemotePeer()
	if len(net.ConnsToPeer(p)) > 1 {
		return
	}
	ev := PeerConnected{
		Peer:     p,
		Addr:     conn.RemoteMultiaddr(),
		Incoming: conn.Stat().Direction == network.DirInbound,
	}
	if !n.poster.TryPost(ev) {
		n.log.Debugf("overlay: backlog full, lost connect of %s", p)
	}
}

func (n connNotifee) disconnected(net network.Network, conn network.Conn) {
	p := conn.RemotePeer()
	if net.Connectedness(p) == network.Connected {
		return
	}
	if !n.poster.TryPost(PeerDisconnected{Peer: p}) {
		n.log.Debugf("overlay: backlog full, lost disconnect of %s", p)
	}
}
