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

// Package node ties the networking core together: the libp2p host, gossip, the DHT, the
// persistent address book and the overlay loop that turns network events into commands.
package node

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/algorand/go-deadlock"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"golang.org/x/sync/errgroup"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/logging/telemetryspec"
	"github.com/vrrb-io/go-vrrb/network/dispatch"
	"github.com/vrrb-io/go-vrrb/network/messages"
	"github.com/vrrb-io/go-vrrb/network/overlay"
	"github.com/vrrb-io/go-vrrb/network/p2p"
	"github.com/vrrb-io/go-vrrb/network/p2p/addrbook"
	"github.com/vrrb-io/go-vrrb/network/p2p/dht"
	"github.com/vrrb-io/go-vrrb/network/p2p/dnsaddr"
	"github.com/vrrb-io/go-vrrb/network/p2p/peerstore"
)

// eventBacklog is the number of overlay events that may wait for the loop.
const eventBacklog = 1024

// dnsBootstrapTimeout bounds the resolution of a single dnsaddr bootstrap domain.
const dnsBootstrapTimeout = 10 * time.Second

var (
	// ErrNotStarted is returned by operations that need a running node.
	ErrNotStarted = errors.New("node is not started")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("node is already started")
	// ErrStopped is returned when Start is called after Stop.
	ErrStopped = errors.New("node is stopped")
)

// Node is a running member of the overlay network.
type Node struct {
	log     logging.Logger
	cfg     config.Local
	rootDir string

	pstore    *peerstore.PeerStore
	host      host.Host
	addrBook  *addrbook.AddrBook
	resolver  *dnsaddr.MultiaddrDNSResolveController
	bootstrap []peer.AddrInfo

	commands chan dispatch.Command
	messages chan messages.Message
	loop     *overlay.Loop

	mu        deadlock.Mutex
	ctx       context.Context
	cancelCtx context.CancelFunc
	eg        errgroup.Group
	service   *p2p.Service
	disc      *p2p.CapabilitiesDiscovery
	queries   *overlay.QueryDriver
	sub       *pubsub.Subscription
	topicEvts *pubsub.TopicEventHandler
	stopConns func()
	started   bool
	stopped   bool
}

// MakeNode builds the node identity, peerstore, host and address book. Any error returned
// here is fatal: the node cannot join the network without them.
func MakeNode(log logging.Logger, rootDir string, cfg config.Local) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.EnableP2PLogging {
		p2p.EnableP2PLogging(log, logging.Level(cfg.BaseLoggerDebugLevel))
	}

	privKey, err := p2p.GetPrivKey(cfg, rootDir)
	if err != nil {
		return nil, err
	}

	bootstrap, malformed := peerstore.PeerInfoFromAddrs(cfg.BootstrapPeers)
	for addr, reason := range malformed {
		log.Warnf("ignoring malformed bootstrap peer %s: %s", addr, reason)
	}
	pstore, err := peerstore.NewPeerStore(bootstrap)
	if err != nil {
		return nil, err
	}

	var book *addrbook.AddrBook
	if cfg.EnableAddrBook {
		book, err = addrbook.Open(filepath.Join(rootDir, config.AddrBookDirName), cfg.AddrBookMaxEntries, false, log)
		if err != nil {
			return nil, err
		}
		remembered := book.Peers()
		pstore.AddRememberedPeers(remembered)
		log.Infof("loaded %d remembered peers", len(remembered))
	}

	controller := dnsaddr.NewResolveController(cfg.FallbackDNSResolverAddress, log)
	h, err := p2p.MakeHost(cfg, privKey, pstore, controller.HostResolver())
	if err != nil {
		if book != nil {
			book.Close()
		}
		return nil, err
	}

	return &Node{
		log:       log.With("peer", h.ID().String()),
		cfg:       cfg,
		rootDir:   rootDir,
		pstore:    pstore,
		host:      h,
		addrBook:  book,
		resolver:  dnsaddr.NewMultiaddrDNSResolveController(controller),
		bootstrap: bootstrap,
		commands:  make(chan dispatch.Command, cfg.CommandBacklogSize),
		messages:  make(chan messages.Message, cfg.MessageBacklogSize),
		loop:      overlay.MakeLoop(eventBacklog),
	}, nil
}

// ID returns the cryptographic identity of the node.
func (node *Node) ID() peer.ID {
	return node.host.ID()
}

// Addrs returns the dialable addresses of the node.
func (node *Node) Addrs() []multiaddr.Multiaddr {
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: node.host.ID(), Addrs: node.host.Addrs()})
	if err != nil {
		return nil
	}
	return addrs
}

// Commands is the stream of commands dispatched from gossip. It is never closed.
func (node *Node) Commands() <-chan dispatch.Command {
	return node.commands
}

// Messages is the stream of every decoded gossip message, addressed to this node or not.
// It is never closed. Messages arriving while it is full are dropped.
func (node *Node) Messages() <-chan messages.Message {
	return node.messages
}

// Start joins the network: it resolves bootstrap peers, starts gossip and the DHT, and
// runs the overlay loop together with its event sources.
func (node *Node) Start() error {
	node.mu.Lock()
	defer node.mu.Unlock()
	if node.stopped {
		return ErrStopped
	}
	if node.started {
		return ErrAlreadyStarted
	}

	node.ctx, node.cancelCtx = context.WithCancel(context.Background())
	ctx := node.ctx
	cfg := node.cfg

	node.resolveDNSBootstrap(ctx)

	service, err := p2p.MakeService(ctx, node.log, cfg, node.host)
	if err != nil {
		node.cancelCtx()
		return err
	}
	disc, err := p2p.MakeCapabilitiesDiscovery(ctx, cfg, node.host, node.log, node.bootstrap)
	if err != nil {
		node.cancelCtx()
		return err
	}

	sink := overlay.MakeLogSink(node.log, cfg.TelemetryToLog)
	queries := overlay.MakeQueryRunner(ctx, disc, func(ctx context.Context, infos []peer.AddrInfo) {
		service.DialPeers(ctx, infos, 0)
	}, node.loop, node.log)
	collaborators := overlay.Collaborators{
		Kademlia: overlay.MakeKademlia(disc.DHT()),
		Queries:  queries,
		Peers:    service,
		AddrBook: peerMemory{pstore: node.pstore, book: node.addrBook},
		Sink:     sink,
		Commands: node.commands,
		Messages: node.messages,
	}
	behavior := overlay.MakeBehavior(cfg, node.host.ID(), dht.ProtocolID(cfg.NetworkID), node.log, collaborators)

	topic := cfg.ResolvedGossipTopic()
	sub, err := service.Subscribe(topic, overlay.MakeValidator(node.host.ID(), topic, sink))
	if err != nil {
		node.cancelCtx()
		disc.Close()
		return fmt.Errorf("unable to subscribe to %s: %w", topic, err)
	}
	topicEvents, err := service.TopicEventHandler(topic)
	if err != nil {
		node.cancelCtx()
		sub.Cancel()
		disc.Close()
		return fmt.Errorf("unable to watch %s: %w", topic, err)
	}

	node.stopConns = overlay.WatchConnections(node.host, node.loop, node.log)
	if err := overlay.WatchIdentify(ctx, node.host, node.loop, node.log); err != nil {
		node.cancelCtx()
		node.stopConns()
		sub.Cancel()
		topicEvents.Cancel()
		disc.Close()
		return err
	}

	node.eg.Go(func() error { return node.loop.Run(ctx, behavior) })
	node.eg.Go(func() error {
		overlay.ReadGossip(ctx, node.host.ID(), sub, node.loop, node.log)
		return nil
	})
	node.eg.Go(func() error {
		overlay.ReadTopicEvents(ctx, topic, topicEvents, node.loop)
		return nil
	})
	node.eg.Go(func() error {
		overlay.RunPings(ctx, node.host, cfg.PingInterval, cfg.PingTimeout, node.loop, node.log)
		return nil
	})
	node.eg.Go(func() error {
		service.DialPeers(ctx, node.bootstrap, 0)
		service.DialPeers(ctx, node.pstore.GetAddresses(0), 2*cfg.GossipFanout)
		return nil
	})
	disc.AdvertiseCapabilities(ctx, cfg.ProviderAdvertiseInterval, overlay.AdvertiseReporter(node.loop), p2p.NodeCapability)

	node.service = service
	node.disc = disc
	node.queries = queries
	node.sub = sub
	node.topicEvts = topicEvents
	node.started = true

	node.log.EventWithDetails(telemetryspec.ApplicationState, telemetryspec.StartupEvent, telemetryspec.StartupEventDetails{
		Version:         config.GetCurrentVersion().String(),
		NetworkID:       string(cfg.NetworkID),
		LocalNodeID:     cfg.LocalNodeID,
		PeerID:          node.host.ID().String(),
		ListenAddresses: multiaddrStrings(node.Addrs()),
	})
	node.log.Infof("node %s started, gossip topic %s, %d bootstrap peers", cfg.LocalNodeID, topic, len(node.bootstrap))
	return nil
}

// resolveDNSBootstrap adds the peers listed in the dnsaddr bootstrap domains. Resolution
// failures are logged and otherwise ignored.
func (node *Node) resolveDNSBootstrap(ctx context.Context) {
	for _, domain := range node.cfg.DNSBootstrapArray(node.cfg.NetworkID) {
		rctx, cancel := context.WithTimeout(ctx, dnsBootstrapTimeout)
		infos, err := dnsaddr.BootstrapPeers(rctx, domain, node.resolver)
		cancel()
		if err != nil {
			node.log.Infof("failed to resolve bootstrap peers from %s: %v", domain, err)
			continue
		}
		node.pstore.AddPersistentPeers(infos)
		node.bootstrap = append(node.bootstrap, infos...)
		node.log.Infof("resolved %d bootstrap peers from %s", len(infos), domain)
	}
}

// Broadcast publishes msg on the gossip topic.
func (node *Node) Broadcast(ctx context.Context, msg messages.Message) error {
	payload, err := messages.Encode(msg)
	if err != nil {
		return err
	}
	node.mu.Lock()
	service, stopped := node.service, node.stopped
	node.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	if service == nil {
		return ErrNotStarted
	}
	return service.Publish(ctx, node.cfg.ResolvedGossipTopic(), payload)
}

// Status summarizes the node and its overlay state.
type Status struct {
	PeerID      string         `json:"peerId"`
	LocalNodeID string         `json:"localNodeId"`
	NetworkID   string         `json:"networkId"`
	Addrs       []string       `json:"addrs"`
	Started     bool           `json:"started"`
	Overlay     overlay.Status `json:"overlay"`
}

// Status reports the node state as of the last overlay event.
func (node *Node) Status() Status {
	node.mu.Lock()
	started := node.started && !node.stopped
	node.mu.Unlock()
	return Status{
		PeerID:      node.host.ID().String(),
		LocalNodeID: node.cfg.LocalNodeID,
		NetworkID:   string(node.cfg.NetworkID),
		Addrs:       multiaddrStrings(node.Addrs()),
		Started:     started,
		Overlay:     node.loop.Status(),
	}
}

// Stop leaves the network and releases the host and the address book. The node cannot
// be restarted.
func (node *Node) Stop() {
	node.mu.Lock()
	defer node.mu.Unlock()
	if node.stopped {
		return
	}
	node.stopped = true

	if node.started {
		node.log.Event(telemetryspec.ApplicationState, telemetryspec.ShutdownEvent)
		node.stopConns()
		node.sub.Cancel()
		node.topicEvts.Cancel()
		node.cancelCtx()
		if err := node.eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			node.log.Warnf("overlay stopped with error: %v", err)
		}
		if err := node.disc.Close(); err != nil {
			node.log.Debugf("closing DHT: %v", err)
		}
		node.queries.Wait()
		if err := node.service.Close(); err != nil {
			node.log.Debugf("closing p2p service: %v", err)
		}
	} else if err := node.host.Close(); err != nil {
		node.log.Debugf("closing host: %v", err)
	}

	if node.addrBook != nil {
		if err := node.addrBook.Close(); err != nil {
			node.log.Warnf("closing address book: %v", err)
		}
	}
}

func multiaddrStrings(addrs []multiaddr.Multiaddr) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
