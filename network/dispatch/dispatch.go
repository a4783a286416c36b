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

package dispatch

import (
	"github.com/vrrb-io/go-vrrb/network/messages"
)

// Dispatch maps a decoded message to the command the local node should run.
// Broadcast kinds always produce a command. Request and response kinds produce
// one only when they are addressed to localID; anything else yields false.
// Dispatch is a pure function of its arguments and is safe for concurrent use.
func Dispatch(msg messages.Message, localID string) (Command, bool) {
	switch m := msg.(type) {
	case *messages.Transaction:
		return ProcessTxn{Txn: m.Txn}, true
	case *messages.Block:
		return PendingBlock{Block: m.Block, Sender: m.SenderID}, true
	case *messages.TransactionValidator:
		return ProcessTxnValidator{TxnValidator: m.TxnValidator}, true
	case *messages.Claim:
		return ProcessClaim{Claim: m.Claim}, true
	case *messages.ClaimAbandoned:
		return ClaimAbandoned{Sender: m.SenderID, Claim: m.Claim}, true
	case *messages.GetNetworkState:
		if m.RequestedFrom != localID {
			return nil, false
		}
		if m.Component.IsFull() {
			return SendStateComponents{Requestor: m.SenderID, Component: m.Component}, true
		}
		return SendState{Requestor: m.SenderID, LowestBlock: m.LowestBlock}, true
	case *messages.BlockChunk:
		if m.Requestor != localID {
			return nil, false
		}
		return StoreStateDBChunk{
			BlockHeight: m.BlockHeight,
			Data:        m.Data,
			ChunkNumber: m.ChunkNumber,
			TotalChunks: m.TotalChunks,
		}, true
	case *messages.StateComponentChunk:
		if m.Requestor != localID {
			return nil, false
		}
		return StoreStateComponentChunk{
			Component:   m.Component,
			Data:        m.Data,
			ChunkNumber: m.ChunkNumber,
			TotalChunks: m.TotalChunks,
		}, true
	case *messages.NeedGenesisBlock:
		if m.RequestedFrom != localID {
			return nil, false
		}
		return SendGenesis{Requestor: m.SenderID}, true
	default:
		return nil, false
	}
}
