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

package messages

import (
	"errors"
	"fmt"

	"github.com/vrrb-io/go-vrrb/protocol"
)

// Governance field names on the wire.
const (
	ProposalExpirationKey = "expires"
	ProposalYesVoteKey    = "yes"
	ProposalNoVoteKey     = "no"
)

var errMissingSender = errors.New("missing sender_id")

func requireSender(sender string) error {
	if sender == "" {
		return errMissingSender
	}
	return nil
}

func requirePayload(name string, b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("missing %s", name)
	}
	return nil
}

func requireChunk(chunkNumber, totalChunks uint32, data []byte) error {
	if totalChunks == 0 {
		return errors.New("total_chunks must be positive")
	}
	if chunkNumber >= totalChunks {
		return fmt.Errorf("chunk_number %d out of range for %d chunks", chunkNumber, totalChunks)
	}
	return requirePayload("data", data)
}

// Transaction carries a serialized transaction.
type Transaction struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Txn      []byte `codec:"txn"`
	SenderID string `codec:"sender_id"`
}

// Block carries a serialized block proposed by SenderID.
type Block struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Block    []byte `codec:"block"`
	SenderID string `codec:"sender_id"`
}

// TransactionValidator carries a validator vote on a transaction.
type TransactionValidator struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	TxnValidator []byte `codec:"txn_validator"`
	SenderID     string `codec:"sender_id"`
}

// Claim carries a serialized mining claim.
type Claim struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Claim    []byte `codec:"claim"`
	SenderID string `codec:"sender_id"`
}

// ClaimAbandoned announces that SenderID gave up a claim.
type ClaimAbandoned struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Claim    []byte `codec:"claim"`
	SenderID string `codec:"sender_id"`
}

// GetNetworkState asks RequestedFrom for a state component. A partial component only
// marks the request as height based; state is sent from LowestBlock.
type GetNetworkState struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	SenderID      string                  `codec:"sender_id"`
	RequestedFrom string                  `codec:"requested_from"`
	LowestBlock   uint64                  `codec:"lowest_block"`
	Component     protocol.StateComponent `codec:"component"`
}

// BlockChunk is one fragment of the state database at BlockHeight, sent to Requestor.
type BlockChunk struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	SenderID    string `codec:"sender_id"`
	Requestor   string `codec:"requestor"`
	BlockHeight uint64 `codec:"block_height"`
	ChunkNumber uint32 `codec:"chunk_number"`
	TotalChunks uint32 `codec:"total_chunks"`
	Data        []byte `codec:"data"`
}

// StateComponentChunk is one fragment of a state component, sent to Requestor.
type StateComponentChunk struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	SenderID    string                  `codec:"sender_id"`
	Requestor   string                  `codec:"requestor"`
	Component   protocol.StateComponent `codec:"component"`
	ChunkNumber uint32                  `codec:"chunk_number"`
	TotalChunks uint32                  `codec:"total_chunks"`
	Data        []byte                  `codec:"data"`
}

// NeedGenesisBlock asks RequestedFrom for the genesis block.
type NeedGenesisBlock struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	SenderID      string `codec:"sender_id"`
	RequestedFrom string `codec:"requested_from"`
}

// Proposal is a governance proposal open for votes until the Expires timestamp.
type Proposal struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	SenderID   string `codec:"sender_id"`
	ProposalID string `codec:"proposal_id"`
	Expires    int64  `codec:"expires"`
	Body       []byte `codec:"body"`
}

// ProposalVote is a yes or no vote on a proposal. Exactly one of Yes and No is set.
type ProposalVote struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	SenderID   string `codec:"sender_id"`
	ProposalID string `codec:"proposal_id"`
	Yes        bool   `codec:"yes"`
	No         bool   `codec:"no"`
}

func (m *Transaction) Tag() protocol.Tag          { return protocol.TxnTag }
func (m *Block) Tag() protocol.Tag                { return protocol.BlockTag }
func (m *TransactionValidator) Tag() protocol.Tag { return protocol.TxnValidatorTag }
func (m *Claim) Tag() protocol.Tag                { return protocol.ClaimTag }
func (m *ClaimAbandoned) Tag() protocol.Tag       { return protocol.ClaimAbandonedTag }
func (m *GetNetworkState) Tag() protocol.Tag      { return protocol.GetNetworkStateTag }
func (m *BlockChunk) Tag() protocol.Tag           { return protocol.BlockChunkTag }
func (m *StateComponentChunk) Tag() protocol.Tag  { return protocol.StateComponentChunkTag }
func (m *NeedGenesisBlock) Tag() protocol.Tag     { return protocol.NeedGenesisBlockTag }
func (m *Proposal) Tag() protocol.Tag             { return protocol.ProposalTag }
func (m *ProposalVote) Tag() protocol.Tag         { return protocol.ProposalVoteTag }

func (m *Transaction) Sender() string          { return m.SenderID }
func (m *Block) Sender() string                { return m.SenderID }
func (m *TransactionValidator) Sender() string { return m.SenderID }
func (m *Claim) Sender() string                { return m.SenderID }
func (m *ClaimAbandoned) Sender() string       { return m.SenderID }
func (m *GetNetworkState) Sender() string      { return m.SenderID }
func (m *BlockChunk) Sender() string           { return m.SenderID }
func (m *StateComponentChunk) Sender() string  { return m.SenderID }
func (m *NeedGenesisBlock) Sender() string     { return m.SenderID }
func (m *Proposal) Sender() string             { return m.SenderID }
func (m *ProposalVote) Sender() string         { return m.SenderID }

func (m *Transaction) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	return requirePayload("txn", m.Txn)
}

func (m *Block) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	return requirePayload("block", m.Block)
}

func (m *TransactionValidator) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	return requirePayload("txn_validator", m.TxnValidator)
}

func (m *Claim) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	return requirePayload("claim", m.Claim)
}

func (m *ClaimAbandoned) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	return requirePayload("claim", m.Claim)
}

func (m *GetNetworkState) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	if m.RequestedFrom == "" {
		return errors.New("missing requested_from")
	}
	return m.Component.Validate()
}

func (m *BlockChunk) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	if m.Requestor == "" {
		return errors.New("missing requestor")
	}
	return requireChunk(m.ChunkNumber, m.TotalChunks, m.Data)
}

func (m *StateComponentChunk) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	if m.Requestor == "" {
		return errors.New("missing requestor")
	}
	if err := m.Component.Validate(); err != nil {
		return err
	}
	return requireChunk(m.ChunkNumber, m.TotalChunks, m.Data)
}

func (m *NeedGenesisBlock) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	if m.RequestedFrom == "" {
		return errors.New("missing requested_from")
	}
	return nil
}

func (m *Proposal) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	if m.ProposalID == "" {
		return errors.New("missing proposal_id")
	}
	if m.Expires <= 0 {
		return fmt.Errorf("missing %s", ProposalExpirationKey)
	}
	return nil
}

func (m *ProposalVote) validate() error {
	if err := requireSender(m.SenderID); err != nil {
		return err
	}
	if m.ProposalID == "" {
		return errors.New("missing proposal_id")
	}
	if m.Yes == m.No {
		return fmt.Errorf("exactly one of %s and %s must be set", ProposalYesVoteKey, ProposalNoVoteKey)
	}
	return nil
}
