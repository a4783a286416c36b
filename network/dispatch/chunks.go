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
	"errors"
	"fmt"

	"github.com/vrrb-io/go-vrrb/protocol"
)

// ReassemblyStatus reports what a ChunkStore did with a chunk.
type ReassemblyStatus int

const (
	// ChunkAccepted means the chunk was stored and the subject is still incomplete.
	ChunkAccepted ReassemblyStatus = iota
	// ChunkDuplicate means the chunk had already been stored.
	ChunkDuplicate
	// SubjectComplete means every chunk of the subject is now present.
	SubjectComplete
)

func (s ReassemblyStatus) String() string {
	switch s {
	case ChunkAccepted:
		return "ChunkAccepted"
	case ChunkDuplicate:
		return "ChunkDuplicate"
	case SubjectComplete:
		return "SubjectComplete"
	default:
		return fmt.Sprintf("ReassemblyStatus(%d)", int(s))
	}
}

// ChunkSubject identifies what a chunk belongs to: the state database at a
// block height, or a state component.
type ChunkSubject struct {
	BlockHeight uint64
	Component   protocol.StateComponent
	IsComponent bool
}

func (s ChunkSubject) String() string {
	if s.IsComponent {
		return "component " + s.Component.String()
	}
	return fmt.Sprintf("block %d", s.BlockHeight)
}

// ChunkStore is implemented by the storage collaborator owning chunk reassembly.
// Chunks for one subject may arrive in any order and from different peers.
type ChunkStore interface {
	StoreChunk(subject ChunkSubject, index, total uint32, data []byte) (ReassemblyStatus, error)
}

// ErrNotChunkCommand is returned by ApplyChunk for commands that carry no chunk.
var ErrNotChunkCommand = errors.New("command does not carry a chunk")

// ApplyChunk hands the chunk carried by cmd to store with its metadata unchanged.
func ApplyChunk(store ChunkStore, cmd Command) (ReassemblyStatus, error) {
	switch c := cmd.(type) {
	case StoreStateDBChunk:
		return store.StoreChunk(ChunkSubject{BlockHeight: c.BlockHeight}, c.ChunkNumber, c.TotalChunks, c.Data)
	case StoreStateComponentChunk:
		return store.StoreChunk(ChunkSubject{Component: c.Component, IsComponent: true}, c.ChunkNumber, c.TotalChunks, c.Data)
	default:
		return 0, fmt.Errorf("%w: %s", ErrNotChunkCommand, cmd.Kind())
	}
}
