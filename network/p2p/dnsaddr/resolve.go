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

package dnsaddr

import (
	"context"
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// ErrNoResolvers is returned when the controller has no resolver left to try.
var ErrNoResolvers = errors.New("dnsaddr: no resolvers available")

func isDnsaddr(maddr multiaddr.Multiaddr) bool {
	first, _ := multiaddr.SplitFirst(maddr)
	return first != nil && first.Protocol().Code == multiaddr.P_DNSADDR
}

// MultiaddrsFromResolver attempts to recurse through dnsaddrs starting at domain.
// Any further dnsaddrs will be looked up until all TXT records have been fetched,
// and the full list of resulting Multiaddrs is returned.
// It uses the MultiaddrDNSResolveController to cycle through DNS resolvers on failure.
func MultiaddrsFromResolver(ctx context.Context, domain string, controller *MultiaddrDNSResolveController) ([]multiaddr.Multiaddr, error) {
	resolver := controller.Resolver()
	if resolver == nil {
		return nil, ErrNoResolvers
	}
	dnsaddr, err := multiaddr.NewMultiaddr(fmt.Sprintf("/dnsaddr/%s", domain))
	if err != nil {
		return nil, fmt.Errorf("unable to construct multiaddr for %s : %v", domain, err)
	}
	var resolved []multiaddr.Multiaddr
	var toResolve = []multiaddr.Multiaddr{dnsaddr}
	seen := map[string]bool{dnsaddr.String(): true}
	for resolver != nil && len(toResolve) > 0 {
		curr := toResolve[0]
		maddrs, resolveErr := resolver.Resolve(ctx, curr)
		if resolveErr != nil {
			if ctx.Err() != nil {
				return resolved, ctx.Err()
			}
			resolver = controller.NextResolver()
			// If we errored, and have exhausted all resolvers, just return
			if resolver == nil {
				return resolved, resolveErr
			}
			continue
		}
		for _, maddr := range maddrs {
			if isDnsaddr(maddr) {
				// records may point at each other
				if !seen[maddr.String()] {
					seen[maddr.String()] = true
					toResolve = append(toResolve, maddr)
				}
			} else {
				resolved = append(resolved, maddr)
			}
		}
		toResolve = toResolve[1:]
	}
	return resolved, nil
}

// BootstrapPeers resolves the dnsaddr records of domain into peer address infos. Records
// without a /p2p/ component are skipped.
func BootstrapPeers(ctx context.Context, domain string, controller *MultiaddrDNSResolveController) ([]peer.AddrInfo, error) {
	maddrs, err := MultiaddrsFromResolver(ctx, domain, controller)
	if len(maddrs) == 0 {
		return nil, err
	}
	var withID []multiaddr.Multiaddr
	for _, m := range maddrs {
		if _, idErr := m.ValueForProtocol(multiaddr.P_P2P); idErr == nil {
			withID = append(withID, m)
		}
	}
	infos, convErr := peer.AddrInfosFromP2pAddrs(withID...)
	if convErr != nil {
		return nil, convErr
	}
	return infos, err
}
