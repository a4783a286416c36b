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

package node

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/vrrb-io/go-vrrb/network/p2p/addrbook"
	"github.com/vrrb-io/go-vrrb/network/p2p/peerstore"
)

// peerMemory keeps the peerstore and the optional address book in step with the overlay:
// routable peers are remembered across restarts, dropped peers are forgotten by both.
type peerMemory struct {
	pstore *peerstore.PeerStore
	book   *addrbook.AddrBook
}

func (m peerMemory) Add(info peer.AddrInfo) error {
	if m.book == nil {
		return nil
	}
	return m.book.Add(info)
}

func (m peerMemory) Remove(p peer.ID) error {
	m.pstore.Forget(p)
	if m.book == nil {
		return nil
	}
	return m.book.Remove(p)
}
