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
	"os"
	"path/filepath"
	"time"

	"github.com/vrrb-io/go-vrrb/protocol"
	"github.com/vrrb-io/go-vrrb/util/codecs"
)

// Devnet identifies the 'development network' use for development and not generally accessible publicly
const Devnet protocol.NetworkID = "devnet"

// Testnet identifies the publicly-available test network
const Testnet protocol.NetworkID = "testnet"

// Mainnet identifies the publicly-available real-money network
const Mainnet protocol.NetworkID = "mainnet"

// ConfigFilename is the name of the config.json file where we store per-node-instance settings
const ConfigFilename = "config.json"

// AddrBookDirName is the directory inside the data directory holding the persisted address book.
const AddrBookDirName = "addrbook"

const configVersion = uint32(1)

var defaultLocal = Local{
	Version:                   configVersion,
	NetworkID:                 Devnet,
	P2PListenAddresses:        []string{"/ip4/0.0.0.0/tcp/4190", "/ip4/0.0.0.0/tcp/4191/ws"},
	P2PPersistPeerID:          true,
	DNSBootstrapID:            "",
	ConnectionUpgradeTimeout:  20 * time.Second,
	GossipFanout:              4,
	GossipTopic:               "vrrb/<network>/gossip/1",
	PingInterval:              15 * time.Second,
	PingTimeout:               10 * time.Second,
	PingMaxFailures:           3,
	DHTQueryMaxRetries:        3,
	DHTQueryMinBackoff:        time.Second,
	DHTQueryMaxBackoff:        30 * time.Second,
	ProviderAdvertiseInterval: 10 * time.Minute,
	EnableAddrBook:            true,
	AddrBookMaxEntries:        256,
	CommandBacklogSize:        1024,
	MessageBacklogSize:        1024,
	BaseLoggerDebugLevel:      4,
	LogSizeLimit:              1073741824,
	LogArchiveName:            "node.archive.log",
	TelemetryToLog:            true,
}

// GetDefaultLocal returns a copy of the current defaultLocal config
func GetDefaultLocal() Local {
	cfg := defaultLocal
	cfg.P2PListenAddresses = append([]string(nil), defaultLocal.P2PListenAddresses...)
	return cfg
}

// LoadConfigFromDisk returns a Local config structure based on merging the defaults
// with settings loaded from the config file from the custom dir. If the custom file
// cannot be loaded, the default config is returned (with the error from loading the
// custom file).
func LoadConfigFromDisk(custom string) (c Local, err error) {
	return loadConfigFromFile(filepath.Join(custom, ConfigFilename))
}

func loadConfigFromFile(configFile string) (c Local, err error) {
	c = GetDefaultLocal()
	if _, statErr := os.Stat(configFile); errors.Is(statErr, os.ErrNotExist) {
		return c, nil
	}
	loaded := GetDefaultLocal()
	// file values overwrite the defaults already present in loaded
	loaded.P2PListenAddresses = nil
	if err = codecs.LoadObjectFromFile(configFile, &loaded); err != nil {
		return c, err
	}
	if loaded.P2PListenAddresses == nil {
		loaded.P2PListenAddresses = c.P2PListenAddresses
	}
	return loaded, nil
}

// SaveToDisk writes the Local settings into a root/ConfigFilename file
func (cfg Local) SaveToDisk(root string) error {
	configpath := filepath.Join(root, ConfigFilename)
	filename := os.ExpandEnv(configpath)
	return codecs.SaveObjectToFile(filename, cfg, true)
}
