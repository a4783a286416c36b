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

// Package dispatch turns decoded protocol messages into the commands handed
// to the rest of the node.
package dispatch

import (
	"github.com/vrrb-io/go-vrrb/protocol"
)

// Command is an instruction for the node. Commands are plain values with no
// reference back to network state.
type Command interface {
	// Kind names the command for logs and metrics.
	Kind() string

	command()
}

// ProcessTxn asks the node to process a transaction.
type ProcessTxn struct {
	Txn []byte
}

// PendingBlock hands a block received from Sender to the node as a pending block.
type PendingBlock struct {
	Block  []byte
	Sender string
}

// ProcessTxnValidator asks the node to process a validator vote.
type ProcessTxnValidator struct {
	TxnValidator []byte
}

// ProcessClaim asks the node to process a claim.
type ProcessClaim struct {
	Claim []byte
}

// ClaimAbandoned marks a claim abandoned by Sender.
type ClaimAbandoned struct {
	Sender string
	Claim  []byte
}

// SendStateComponents asks the node to send a full state component to Requestor.
type SendStateComponents struct {
	Requestor string
	Component protocol.StateComponent
}

// SendState asks the node to send state starting at LowestBlock to Requestor.
type SendState struct {
	Requestor   string
	LowestBlock uint64
}

// StoreStateDBChunk asks the node to store one chunk of the state database at BlockHeight.
type StoreStateDBChunk struct {
	BlockHeight uint64
	Data        []byte
	ChunkNumber uint32
	TotalChunks uint32
}

// StoreStateComponentChunk asks the node to store one chunk of a state component.
type StoreStateComponentChunk struct {
	Component   protocol.StateComponent
	Data        []byte
	ChunkNumber uint32
	TotalChunks uint32
}

// SendGenesis asks the node to send the genesis block to Requestor.
type SendGenesis struct {
	Requestor string
}

func (ProcessTxn) command()               {}
func (PendingBlock) command()             {}
func (ProcessTxnValidator) command()      {}
func (ProcessClaim) command()             {}
func (ClaimAbandoned) command()           {}
func (SendStateComponents) command()      {}
func (SendState) command()                {}
func (StoreStateDBChunk) command()        {}
func (StoreStateComponentChunk) command() {}
func (SendGenesis) command()              {}

func (ProcessTxn) Kind() string               { return "ProcessTxn" }
func (PendingBlock) Kind() string             { return "PendingBlock" }
func (ProcessTxnValidator) Kind() string      { return "ProcessTxnValidator" }
func (ProcessClaim) Kind() string             { return "ProcessClaim" }
func (ClaimAbandoned) Kind() string           { return "ClaimAbandoned" }
func (SendStateComponents) Kind() string      { return "SendStateComponents" }
func (SendState) Kind() string                { return "SendState" }
func (StoreStateDBChunk) Kind() string        { return "StoreStateDBChunk" }
func (StoreStateComponentChunk) Kind() string { return "StoreStateComponentChunk" }
func (SendGenesis) Kind() string              { return "SendGenesis" }
