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

package peerstore

import (
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// PeerInfoFromAddrs parses /p2p/ multiaddr strings into AddrInfos, merging addresses of the
// same peer. Entries that fail to parse are returned in malformed, keyed by the input string.
func PeerInfoFromAddrs(addrs []string) ([]peer.AddrInfo, map[string]string) {
	var maddrs []multiaddr.Multiaddr
	malformed := make(map[string]string)
	for _, addr := range addrs {
		maddr, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			malformed[addr] = err.Error()
			continue
		}
		if _, err := peer.AddrInfoFromP2pAddr(maddr); err != nil {
			malformed[addr] = err.Error()
			continue
		}
		maddrs = append(maddrs, maddr)
	}
	infos, err := peer.AddrInfosFromP2pAddrs(maddrs...)
	if err != nil {
		// every address was validated above
		return nil, malformed
	}
	return infos, malformed
}
