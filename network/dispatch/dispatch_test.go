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
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vrrb-io/go-vrrb/network/messages"
	"github.com/vrrb-io/go-vrrb/protocol"
	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

const localID = "node-A"

func TestBroadcastKindsIgnoreAddressing(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	payload := []byte{1, 2, 3}
	cases := []struct {
		msg  messages.Message
		want Command
	}{
		{&messages.Transaction{Txn: payload, SenderID: "node-B"}, ProcessTxn{Txn: payload}},
		{&messages.Block{Block: payload, SenderID: "node-B"}, PendingBlock{Block: payload, Sender: "node-B"}},
		{&messages.TransactionValidator{TxnValidator: payload, SenderID: "node-B"}, ProcessTxnValidator{TxnValidator: payload}},
		{&messages.Claim{Claim: payload, SenderID: "node-B"}, ProcessClaim{Claim: payload}},
		{&messages.ClaimAbandoned{Claim: payload, SenderID: "node-B"}, ClaimAbandoned{Sender: "node-B", Claim: payload}},
	}
	for _, tc := range cases {
		for _, id := range []string{localID, "node-Z", ""} {
			cmd, ok := Dispatch(tc.msg, id)
			require.True(t, ok, "%T", tc.msg)
			require.Equal(t, tc.want, cmd)
		}
	}
}

func TestGetNetworkState(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	msg := &messages.GetNetworkState{SenderID: "node-B", RequestedFrom: localID, Component: protocol.FullComponent(protocol.BlockchainComponent)}
	cmd, ok := Dispatch(msg, localID)
	require.True(t, ok)
	require.Equal(t, SendStateComponents{Requestor: "node-B", Component: protocol.FullComponent(protocol.BlockchainComponent)}, cmd)

	for _, kind := range []protocol.StateComponentKind{protocol.NetworkStateComponent, protocol.LedgerComponent, protocol.AllComponents} {
		msg.Component = protocol.FullComponent(kind)
		cmd, ok = Dispatch(msg, localID)
		require.True(t, ok)
		require.Equal(t, SendStateComponents{Requestor: "node-B", Component: protocol.FullComponent(kind)}, cmd)
	}

	msg.Component = protocol.PartialComponent(7)
	msg.LowestBlock = 1500
	cmd, ok = Dispatch(msg, localID)
	require.True(t, ok)
	require.Equal(t, SendState{Requestor: "node-B", LowestBlock: 1500}, cmd)

	msg.RequestedFrom = "node-C"
	cmd, ok = Dispatch(msg, localID)
	require.False(t, ok)
	require.Nil(t, cmd)
}

func TestGetNetworkStateRequiresMatchingAddress(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		requestedFrom := rapid.StringMatching(`node-[A-C]`).Draw(t, "requested_from")
		msg := &messages.GetNetworkState{
			SenderID:      "node-B",
			RequestedFrom: requestedFrom,
			Component:     protocol.PartialComponent(rapid.Uint64().Draw(t, "height")),
		}
		_, ok := Dispatch(msg, localID)
		require.Equal(t, requestedFrom == localID, ok)
	})
}

func TestBlockChunkForeignRequestor(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Uint32Range(1, 1000).Draw(t, "total")
		msg := &messages.BlockChunk{
			SenderID:    "node-B",
			Requestor:   rapid.StringMatching(`node-[B-Z][a-z]*`).Draw(t, "requestor"),
			BlockHeight: rapid.Uint64().Draw(t, "height"),
			ChunkNumber: rapid.Uint32Range(0, total-1).Draw(t, "chunk"),
			TotalChunks: total,
			Data:        rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "data"),
		}
		cmd, ok := Dispatch(msg, localID)
		require.False(t, ok)
		require.Nil(t, cmd)
	})
}

func TestBlockChunkPassThrough(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	data := []byte("chunk payload")
	msg := &messages.BlockChunk{SenderID: "node-B", Requestor: localID, BlockHeight: 42, ChunkNumber: 3, TotalChunks: 10, Data: data}
	cmd, ok := Dispatch(msg, localID)
	require.True(t, ok)
	require.Equal(t, StoreStateDBChunk{BlockHeight: 42, Data: data, ChunkNumber: 3, TotalChunks: 10}, cmd)
}

func TestStateComponentChunk(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	data := []byte{9}
	msg := &messages.StateComponentChunk{SenderID: "node-B", Requestor: localID, Component: protocol.FullComponent(protocol.LedgerComponent),
		ChunkNumber: 0, TotalChunks: 2, Data: data}
	cmd, ok := Dispatch(msg, localID)
	require.True(t, ok)
	require.Equal(t, StoreStateComponentChunk{Component: protocol.FullComponent(protocol.LedgerComponent), Data: data, ChunkNumber: 0, TotalChunks: 2}, cmd)

	msg.Requestor = "node-C"
	_, ok = Dispatch(msg, localID)
	require.False(t, ok)
}

func TestNeedGenesisBlockEndToEnd(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	payload, err := messages.Encode(&messages.NeedGenesisBlock{SenderID: "node-B", RequestedFrom: "node-A"})
	require.NoError(t, err)
	msg, ok := messages.DecodePayload(payload)
	require.True(t, ok)
	cmd, ok := Dispatch(msg, "node-A")
	require.True(t, ok)
	require.Equal(t, SendGenesis{Requestor: "node-B"}, cmd)
	require.Equal(t, "SendGenesis", cmd.Kind())

	payload, err = messages.Encode(&messages.NeedGenesisBlock{SenderID: "node-B", RequestedFrom: "node-C"})
	require.NoError(t, err)
	msg, ok = messages.DecodePayload(payload)
	require.True(t, ok)
	cmd, ok = Dispatch(msg, "node-A")
	require.False(t, ok)
	require.Nil(t, cmd)
}

func TestGetNetworkStateLowestBlockEndToEnd(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	payload, err := messages.Encode(&messages.GetNetworkState{
		SenderID:      "node-B",
		RequestedFrom: localID,
		LowestBlock:   1500,
		Component:     protocol.PartialComponent(0),
	})
	require.NoError(t, err)
	msg, ok := messages.DecodePayload(payload)
	require.True(t, ok)
	cmd, ok := Dispatch(msg, localID)
	require.True(t, ok)
	require.Equal(t, SendState{Requestor: "node-B", LowestBlock: 1500}, cmd)
}

func TestGovernanceMessagesNotDispatched(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	for _, msg := range []messages.Message{
		&messages.Proposal{SenderID: "node-B", ProposalID: "p1", Expires: 100},
		&messages.ProposalVote{SenderID: "node-B", ProposalID: "p1", Yes: true},
	} {
		payload, err := messages.Encode(msg)
		require.NoError(t, err)
		decoded, ok := messages.DecodePayload(payload)
		require.True(t, ok)
		_, ok = Dispatch(decoded, localID)
		require.False(t, ok, "%T", msg)
	}
	_, ok := Dispatch(nil, localID)
	require.False(t, ok)
}

func TestDispatchIdempotent(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		id := rapid.SampledFrom([]string{"node-A", "node-B"}).Draw(t, "local")
		total := rapid.Uint32Range(1, 16).Draw(t, "total")
		msgs := []messages.Message{
			&messages.Transaction{Txn: []byte{1}, SenderID: "node-B"},
			&messages.GetNetworkState{SenderID: "node-B", RequestedFrom: "node-A", Component: protocol.PartialComponent(rapid.Uint64().Draw(t, "h"))},
			&messages.BlockChunk{SenderID: "node-C", Requestor: "node-A", BlockHeight: 1, ChunkNumber: total - 1, TotalChunks: total, Data: []byte{2}},
			&messages.NeedGenesisBlock{SenderID: "node-C", RequestedFrom: "node-B"},
		}
		msg := rapid.SampledFrom(msgs).Draw(t, "msg")

		first, ok1 := Dispatch(msg, id)
		second, ok2 := Dispatch(msg, id)
		require.Equal(t, ok1, ok2)
		require.Equal(t, first, second)
	})
}
