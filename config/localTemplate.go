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

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vrrb-io/go-vrrb/protocol"
)

// Local holds the per-node-instance configuration settings for the networking core.
type Local struct {
	// Version tracks the current version of the defaults so we can migrate old -> new
	Version uint32

	// NetworkID names the network this node joins. It is folded into the DHT protocol prefix,
	// the capability provider key and the default gossip topic so that nodes of different networks never mix.
	NetworkID protocol.NetworkID

	// LocalNodeID is the application-level identifier of this node. Request/response messages are addressed
	// to it, independently of the cryptographic peer identity. It must not be blank.
	LocalNodeID string

	// P2PListenAddresses lists the multiaddrs the node listens on. Both raw TCP and websocket carriers are supported.
	P2PListenAddresses []string

	// P2PPersistPeerID will write the private key used for the node's PeerID to the P2PPrivateKeyLocation.
	// If P2PPrivateKeyLocation is not specified, it uses the default location inside the data directory.
	P2PPersistPeerID bool

	// P2PPrivateKeyLocation allows the user to specify a custom path to the private key used for the node's PeerID.
	P2PPrivateKeyLocation string

	// BootstrapPeers is a list of multiaddrs (including the /p2p/<peer id> component) dialed at startup
	// and used to seed the DHT routing table.
	BootstrapPeers []string

	// DNSBootstrapID specifies a dnsaddr domain whose TXT records list bootstrap peers.
	// The <network> macro is replaced with NetworkID. Multiple domains are separated by ';'.
	DNSBootstrapID string

	// FallbackDNSResolverAddress defines the fallback DNS resolver address that would be used if the system resolver would fail to resolve dnsaddr records.
	FallbackDNSResolverAddress string

	// ConnectionUpgradeTimeout bounds the dial, security handshake and multiplexer negotiation of a single connection.
	ConnectionUpgradeTimeout time.Duration

	// GossipFanout sets the desired number of gossip mesh peers.
	GossipFanout int

	// GossipTopic is the pubsub topic carrying protocol messages. The <network> macro is replaced with NetworkID.
	GossipTopic string

	// PingInterval controls how often every connected peer is pinged.
	PingInterval time.Duration
	// PingTimeout bounds a single ping round trip.
	PingTimeout time.Duration
	// PingMaxFailures is the number of consecutive ping failures after which a peer is evicted.
	PingMaxFailures int

	// DHTQueryMaxRetries is the number of times a failed bootstrap or lookup query is retried.
	DHTQueryMaxRetries int
	// DHTQueryMinBackoff and DHTQueryMaxBackoff bound the jittered delay between query retries.
	DHTQueryMinBackoff time.Duration
	DHTQueryMaxBackoff time.Duration

	// ProviderAdvertiseInterval controls how often the node re-advertises its capability provider record.
	ProviderAdvertiseInterval time.Duration

	// EnableAddrBook persists routable peer addresses so that they can seed the routing table after a restart.
	EnableAddrBook bool
	// AddrBookMaxEntries caps the number of persisted peers.
	AddrBookMaxEntries int

	// CommandBacklogSize is the capacity of the dispatched command queue. Commands arriving while it is full are dropped.
	CommandBacklogSize int
	// MessageBacklogSize is the capacity of the decoded message queue.
	MessageBacklogSize int

	// BaseLoggerDebugLevel specifies the logging level for node.log. The levels range from 0 (critical error / silent) to 5 (debug / verbose).
	BaseLoggerDebugLevel uint32
	// EnableP2PLogging forwards libp2p internal logs into node.log.
	EnableP2PLogging bool
	// LogSizeLimit is the log file size limit in bytes. When set to 0 logs will be written to stdout.
	LogSizeLimit uint64
	// LogFileDir is an optional directory to store node.log. Defaults to the data directory.
	LogFileDir string
	// LogArchiveName is the file name of the rotated log.
	LogArchiveName string

	// TelemetryToLog configures whether overlay observability events are recorded to node.log.
	TelemetryToLog bool

	// MetricsListenAddress is the address the /metrics and /status endpoints listen on. Blank disables them.
	MetricsListenAddress string
}

// ResolveLogPaths will return the most appropriate location for liveLog and archive, given user config
func (cfg Local) ResolveLogPaths(rootDir string) (liveLog, archive string) {
	dir := rootDir
	if cfg.LogFileDir != "" {
		dir = cfg.LogFileDir
	}
	return filepath.Join(dir, "node.log"), filepath.Join(dir, cfg.LogArchiveName)
}

func expandNetwork(template string, networkID protocol.NetworkID) string {
	return strings.ReplaceAll(template, "<network>", string(networkID))
}

// DNSBootstrapArray returns the dnsaddr domains to resolve for bootstrap peers.
func (cfg Local) DNSBootstrapArray(networkID protocol.NetworkID) (bootstrapArray []string) {
	for _, entry := range strings.Split(cfg.DNSBootstrapID, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		bootstrapArray = append(bootstrapArray, expandNetwork(entry, networkID))
	}
	return
}

// ResolvedGossipTopic returns the gossip topic name for the configured network.
func (cfg Local) ResolvedGossipTopic() string {
	return expandNetwork(cfg.GossipTopic, cfg.NetworkID)
}

// ErrBlankLocalNodeID is returned by Validate when no LocalNodeID is configured.
var ErrBlankLocalNodeID = errors.New("LocalNodeID must not be blank")

// Validate checks the settings the networking core cannot start without.
func (cfg Local) Validate() error {
	if strings.TrimSpace(cfg.LocalNodeID) == "" {
		return ErrBlankLocalNodeID
	}
	if cfg.NetworkID == "" {
		return errors.New("NetworkID must not be blank")
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"ConnectionUpgradeTimeout", cfg.ConnectionUpgradeTimeout},
		{"PingInterval", cfg.PingInterval},
		{"PingTimeout", cfg.PingTimeout},
		{"DHTQueryMinBackoff", cfg.DHTQueryMinBackoff},
		{"DHTQueryMaxBackoff", cfg.DHTQueryMaxBackoff},
		{"ProviderAdvertiseInterval", cfg.ProviderAdvertiseInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.name, d.value)
		}
	}
	if cfg.DHTQueryMaxBackoff < cfg.DHTQueryMinBackoff {
		return fmt.Errorf("DHTQueryMaxBackoff %v is below DHTQueryMinBackoff %v", cfg.DHTQueryMaxBackoff, cfg.DHTQueryMinBackoff)
	}
	if cfg.PingMaxFailures < 1 {
		return fmt.Errorf("PingMaxFailures must be at least 1, got %d", cfg.PingMaxFailures)
	}
	if cfg.DHTQueryMaxRetries < 0 {
		return fmt.Errorf("DHTQueryMaxRetries must not be negative, got %d", cfg.DHTQueryMaxRetries)
	}
	if cfg.CommandBacklogSize < 1 || cfg.MessageBacklogSize < 1 {
		return fmt.Errorf("backlog sizes must be positive, got %d and %d", cfg.CommandBacklogSize, cfg.MessageBacklogSize)
	}
	if cfg.GossipTopic == "" {
		return errors.New("GossipTopic must not be blank")
	}
	return nil
}
