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
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p"
	mplex "github.com/libp2p/go-libp2p-mplex"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/net/swarm"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	"github.com/libp2p/go-libp2p/p2p/transport/websocket"
	madns "github.com/multiformats/go-multiaddr-dns"

	"github.com/vrrb-io/go-vrrb/config"
)

// ErrNoListenAddresses is returned when the configuration leaves the host nothing to listen on.
var ErrNoListenAddresses = errors.New("no p2p listen addresses configured")

// MplexID is the protocol ID of the fallback stream multiplexer.
const MplexID = mplex.ID

// hostOptions lists the libp2p options MakeHost applies. Connections are authenticated with
// noise first and then multiplexed with yamux, or mplex for peers that lack it. Both steps
// together are bounded by cfg.ConnectionUpgradeTimeout on outbound dials; inbound upgrades
// use the libp2p upgrader accept timeout of 15s.
func hostOptions(cfg config.Local, privKey crypto.PrivKey, pstore peerstore.Peerstore, resolver *madns.Resolver) []libp2p.Option {
	opts := []libp2p.Option{
		libp2p.Identity(privKey),
		libp2p.UserAgent(config.GetCurrentVersion().UserAgent()),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Muxer(YamuxID, DefaultYamuxTransport),
		libp2p.Muxer(MplexID, mplex.DefaultTransport),
		libp2p.Transport(tcp.NewTCPTransport, tcp.WithConnectionTimeout(cfg.ConnectionUpgradeTimeout)),
		libp2p.Transport(websocket.New),
		libp2p.WithDialTimeout(cfg.ConnectionUpgradeTimeout),
		libp2p.ListenAddrStrings(cfg.P2PListenAddresses...),
		libp2p.DisableRelay(),
	}
	if pstore != nil {
		opts = append(opts, libp2p.Peerstore(pstore))
	}
	if resolver != nil {
		opts = append(opts, libp2p.MultiaddrResolver(swarm.ResolverFromMaDNS{Resolver: resolver}))
	}
	return opts
}

// MakeHost builds the node's libp2p host from its identity keypair. Errors returned here
// are fatal for the node: they mean the local networking stack could not be initialized.
// Failures of individual connections never surface from MakeHost.
func MakeHost(cfg config.Local, privKey crypto.PrivKey, pstore peerstore.Peerstore, resolver *madns.Resolver) (host.Host, error) {
	if privKey == nil {
		return nil, fmt.Errorf("%w: missing private key", ErrKeyDerivation)
	}
	if len(cfg.P2PListenAddresses) == 0 {
		return nil, ErrNoListenAddresses
	}
	h, err := libp2p.New(hostOptions(cfg, privKey, pstore, resolver)...)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize p2p host: %w", err)
	}
	return h, nil
}
