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

package protocol

// Tag represents a message type identifier. Every gossip envelope carries a Tag that
// selects how its body is decoded.
type Tag string

// Tags, in lexicographic sort order of tag values to avoid duplicates.
const (
	UnknownMsgTag          Tag = "??"
	BlockTag               Tag = "BK"
	BlockChunkTag          Tag = "BC"
	ClaimAbandonedTag      Tag = "CA"
	ClaimTag               Tag = "CL"
	GetNetworkStateTag     Tag = "GS"
	NeedGenesisBlockTag    Tag = "NG"
	ProposalTag            Tag = "PR"
	StateComponentChunkTag Tag = "SC"
	TxnValidatorTag        Tag = "TV"
	TxnTag                 Tag = "TX"
	ProposalVoteTag        Tag = "VT"
)

// The value is the max message size in bytes of the envelope body for a tag.
// Chunk messages carry state transfer payloads and are allowed to be larger.
const (
	BlockTagMaxSize               = 5 * 1024 * 1024
	BlockChunkTagMaxSize          = 6 * 1024 * 1024
	ClaimAbandonedTagMaxSize      = 64 * 1024
	ClaimTagMaxSize               = 64 * 1024
	GetNetworkStateTagMaxSize     = 1024
	NeedGenesisBlockTagMaxSize    = 1024
	ProposalTagMaxSize            = 64 * 1024
	StateComponentChunkTagMaxSize = 6 * 1024 * 1024
	TxnValidatorTagMaxSize        = 64 * 1024
	TxnTagMaxSize                 = 256 * 1024
	ProposalVoteTagMaxSize        = 4 * 1024
)

// MaxMessageSize returns the maximum body size for a tag, or 0 for unknown tags.
func (t Tag) MaxMessageSize() uint64 {
	switch t {
	case BlockTag:
		return BlockTagMaxSize
	case BlockChunkTag:
		return BlockChunkTagMaxSize
	case ClaimAbandonedTag:
		return ClaimAbandonedTagMaxSize
	case ClaimTag:
		return ClaimTagMaxSize
	case GetNetworkStateTag:
		return GetNetworkStateTagMaxSize
	case NeedGenesisBlockTag:
		return NeedGenesisBlockTagMaxSize
	case ProposalTag:
		return ProposalTagMaxSize
	case StateComponentChunkTag:
		return StateComponentChunkTagMaxSize
	case TxnValidatorTag:
		return TxnValidatorTagMaxSize
	case TxnTag:
		return TxnTagMaxSize
	case ProposalVoteTag:
		return ProposalVoteTagMaxSize
	default:
		return 0
	}
}

// MaxEncodedMessageSize is the largest gossip payload accepted, accounting for the
// hex expansion of the largest envelope.
const MaxEncodedMessageSize = 2 * (BlockChunkTagMaxSize + 1024)

// TagList is a list of all currently used protocol tags.
var TagList = []Tag{
	UnknownMsgTag,
	BlockTag,
	BlockChunkTag,
	ClaimAbandonedTag,
	ClaimTag,
	GetNetworkStateTag,
	NeedGenesisBlockTag,
	ProposalTag,
	StateComponentChunkTag,
	TxnValidatorTag,
	TxnTag,
	ProposalVoteTag,
}
