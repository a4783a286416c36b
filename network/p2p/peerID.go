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
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/util"
)

// DefaultPrivKeyPath is the default path inside the node's root directory at which the private key
// for p2p identity is found and persisted to when a new one is generated.
const DefaultPrivKeyPath = "peerIDPrivKey.key"

// ErrKeyDerivation is returned when the node identity keypair cannot be loaded or generated.
var ErrKeyDerivation = errors.New("unable to derive node identity keypair")

// PeerID is a string representation of a peer's public key, primarily used to avoid importing libp2p into packages that shouldn't need it
type PeerID string

// GetPrivKey manages loading and creation of private keys for network PeerIDs
// It prioritizes, in this order:
//  1. user supplied path to privKey
//  2. default path to privKey,
//  3. generating a new privKey.
//
// If a new privKey is generated it will be saved to default path if cfg.P2PPersistPeerID.
func GetPrivKey(cfg config.Local, dataDir string) (crypto.PrivKey, error) {
	if cfg.P2PPrivateKeyLocation != "" {
		return loadPrivateKeyFromFile(cfg.P2PPrivateKeyLocation)
	}
	var defaultPrivKeyPath string
	if dataDir != "" {
		defaultPrivKeyPath = filepath.Join(dataDir, DefaultPrivKeyPath)
		if util.FileExists(defaultPrivKeyPath) {
			return loadPrivateKeyFromFile(defaultPrivKeyPath)
		}
	}
	privKey, err := generatePrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", ErrKeyDerivation, err)
	}
	if cfg.P2PPersistPeerID && defaultPrivKeyPath != "" {
		if err := writePrivateKeyToFile(defaultPrivKeyPath, privKey); err != nil {
			return nil, err
		}
	}
	return privKey, nil
}

// PeerIDFromPublicKey returns a PeerID from a public key, thin wrapper over libp2p function doing the same
func PeerIDFromPublicKey(pubKey crypto.PubKey) (PeerID, error) {
	peerID, err := peer.IDFromPublicKey(pubKey)
	if err != nil {
		return "", err
	}
	return PeerID(peerID), nil
}

// String returns the base58 form used in multiaddrs and logs.
func (id PeerID) String() string {
	return peer.ID(id).String()
}

// loadPrivateKeyFromFile reads raw Ed25519 privKey bytes from path.
func loadPrivateKeyFromFile(path string) (crypto.PrivKey, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrKeyDerivation, path, err)
	}
	key, err := crypto.UnmarshalEd25519PrivateKey(bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrKeyDerivation, path, err)
	}
	return key, nil
}

func writePrivateKeyToFile(path string, privKey crypto.PrivKey) error {
	bytes, err := privKey.Raw()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	if err := util.WriteFileAtomic(path, bytes, 0600); err != nil {
		return fmt.Errorf("%w: persist %s: %v", ErrKeyDerivation, path, err)
	}
	return nil
}

func generatePrivKey() (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	return priv, err
}
