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

package main

import (
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/cobra"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/network/p2p"
	"github.com/vrrb-io/go-vrrb/util"
)

var peerIDCmd = &cobra.Command{
	Use:   "peerid",
	Short: "Print the node PeerID, creating the private key if none exists",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		dataDir := resolveDataDir()
		if dataDir == "" {
			dataDir = "."
		}
		if err := util.EnsureDir(dataDir); err != nil {
			reportErrorf("Cannot create data directory %s: %v", dataDir, err)
		}

		cfg, err := config.LoadConfigFromDisk(dataDir)
		if err != nil {
			reportWarnf("Using default configuration: %v", err)
		}
		cfg.P2PPersistPeerID = true

		privKeyPath := cfg.P2PPrivateKeyLocation
		if privKeyPath == "" {
			privKeyPath = filepath.Join(dataDir, p2p.DefaultPrivKeyPath)
		}
		existed := util.FileExists(privKeyPath)

		privKey, err := p2p.GetPrivKey(cfg, dataDir)
		if err != nil {
			reportErrorf("Error obtaining private key: %v", err)
		}
		peerID, err := peer.IDFromPublicKey(privKey.GetPublic())
		if err != nil {
			reportErrorf("Error obtaining PeerID from a key: %v", err)
		}

		reportInfof("PeerID: %s", peerID)
		if existed {
			reportInfof("Used existing key from path %s", privKeyPath)
		} else {
			reportInfof("Private key saved to %s", privKeyPath)
		}
	},
}
