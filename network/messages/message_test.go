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
	"encoding/hex"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vrrb-io/go-vrrb/protocol"
	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

var cmpOpts = cmp.Exporter(func(reflect.Type) bool { return true })

func nodeIDGen() *rapid.Generator[string] {
	return rapid.StringMatching(`node-[A-Za-z0-9]{1,12}`)
}

func payloadGen() *rapid.Generator[[]byte] {
	return rapid.SliceOfN(rapid.Byte(), 1, 256)
}

func componentGen() *rapid.Generator[protocol.StateComponent] {
	return rapid.Custom(func(t *rapid.T) protocol.StateComponent {
		kind := protocol.StateComponentKind(rapid.IntRange(0, int(protocol.PartialFromHeight)).Draw(t, "kind"))
		if kind == protocol.PartialFromHeight {
			return protocol.PartialComponent(rapid.Uint64().Draw(t, "height"))
		}
		return protocol.FullComponent(kind)
	})
}

func chunkGen(t *rapid.T) (uint32, uint32) {
	total := rapid.Uint32Range(1, 1<<20).Draw(t, "total")
	return rapid.Uint32Range(0, total-1).Draw(t, "chunk"), total
}

// messageGen draws any valid message.
func messageGen() *rapid.Generator[Message] {
	return rapid.Custom(func(t *rapid.T) Message {
		sender := nodeIDGen().Draw(t, "sender")
		switch rapid.IntRange(0, 10).Draw(t, "kind") {
		case 0:
			return &Transaction{Txn: payloadGen().Draw(t, "txn"), SenderID: sender}
		case 1:
			return &Block{Block: payloadGen().Draw(t, "block"), SenderID: sender}
		case 2:
			return &TransactionValidator{TxnValidator: payloadGen().Draw(t, "vote"), SenderID: sender}
		case 3:
			return &Claim{Claim: payloadGen().Draw(t, "claim"), SenderID: sender}
		case 4:
			return &ClaimAbandoned{Claim: payloadGen().Draw(t, "claim"), SenderID: sender}
		case 5:
			return &GetNetworkState{SenderID: sender, RequestedFrom: nodeIDGen().Draw(t, "to"),
				LowestBlock: rapid.Uint64().Draw(t, "lowest"), Component: componentGen().Draw(t, "component")}
		case 6:
			chunk, total := chunkGen(t)
			return &BlockChunk{SenderID: sender, Requestor: nodeIDGen().Draw(t, "requestor"),
				BlockHeight: rapid.Uint64().Draw(t, "height"), ChunkNumber: chunk, TotalChunks: total, Data: payloadGen().Draw(t, "data")}
		case 7:
			chunk, total := chunkGen(t)
			return &StateComponentChunk{SenderID: sender, Requestor: nodeIDGen().Draw(t, "requestor"),
				Component: componentGen().Draw(t, "component"), ChunkNumber: chunk, TotalChunks: total, Data: payloadGen().Draw(t, "data")}
		case 8:
			return &NeedGenesisBlock{SenderID: sender, RequestedFrom: nodeIDGen().Draw(t, "to")}
		case 9:
			return &Proposal{SenderID: sender, ProposalID: nodeIDGen().Draw(t, "id"), Expires: rapid.Int64Range(1, 1<<40).Draw(t, "expires"),
				Body: rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "body")}
		default:
			yes := rapid.Bool().Draw(t, "yes")
			return &ProposalVote{SenderID: sender, ProposalID: nodeIDGen().Draw(t, "id"), Yes: yes, No: !yes}
		}
	})
}

func encodeEnvelope(t require.TestingT, tag protocol.Tag, body []byte) []byte {
	raw, err := protocol.Encode(&envelope{Tag: tag, Body: body})
	require.NoError(t, err)
	return []byte(hex.EncodeToString(raw))
}

func TestRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		msg := messageGen().Draw(t, "msg")
		payload, err := Encode(msg)
		require.NoError(t, err)

		decoded, err := Decode(payload)
		require.NoError(t, err)
		if diff := cmp.Diff(msg, decoded, cmpOpts); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestInvalidHexYieldsNoMessage(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOf(rapid.Byte()).Draw(t, "payload")
		if _, err := hex.DecodeString(string(payload)); err == nil {
			t.Skip("valid hex")
		}
		msg, ok := DecodePayload(payload)
		require.False(t, ok)
		require.Nil(t, msg)

		_, err := Decode(payload)
		require.ErrorIs(t, err, ErrInvalidHex)
	})
}

func TestArbitraryHexNeverPanics(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOf(rapid.Byte()).Draw(t, "raw")
		payload := []byte(hex.EncodeToString(raw))
		require.NotPanics(t, func() {
			msg, ok := DecodePayload(payload)
			require.Equal(t, ok, msg != nil)
		})
	})
}

func TestUnknownTagYieldsNoMessage(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	body, err := protocol.Encode(&Transaction{Txn: []byte{1}, SenderID: "node-B"})
	require.NoError(t, err)

	for _, tag := range []protocol.Tag{"ZZ", protocol.UnknownMsgTag, "", "TXX"} {
		msg, err := Decode(encodeEnvelope(t, tag, body))
		require.ErrorIs(t, err, ErrUnknownTag, "tag %q", tag)
		require.Nil(t, msg)
	}
}

func TestMalformedBodyYieldsNoMessage(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	good, err := protocol.Encode(&Transaction{Txn: []byte{1}, SenderID: "node-B"})
	require.NoError(t, err)

	cases := map[string][]byte{
		"truncated": good[:len(good)-1],
		"trailing":  append(append([]byte{}, good...), 0xc0),
		"wrong kind": protocol.EncodeReflect(&NeedGenesisBlock{
			SenderID: "node-B", RequestedFrom: "node-A"}),
		"not a map": protocol.EncodeReflect(uint64(7)),
		"empty":     nil,
	}
	for name, body := range cases {
		_, ok := DecodePayload(encodeEnvelope(t, protocol.TxnTag, body))
		require.False(t, ok, name)
	}

	_, ok := DecodePayload([]byte(hex.EncodeToString(good)))
	require.False(t, ok, "bare body without envelope")
}

func TestMissingFieldsYieldNoMessage(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	invalid := []Message{
		&Transaction{Txn: []byte{1}},
		&Transaction{SenderID: "node-B"},
		&GetNetworkState{SenderID: "node-B"},
		&GetNetworkState{SenderID: "node-B", RequestedFrom: "node-A", Component: protocol.StateComponent{Kind: 9}},
		&BlockChunk{SenderID: "node-B", Requestor: "node-A", ChunkNumber: 10, TotalChunks: 10, Data: []byte{1}},
		&BlockChunk{SenderID: "node-B", Requestor: "node-A", ChunkNumber: 0, TotalChunks: 0, Data: []byte{1}},
		&BlockChunk{SenderID: "node-B", ChunkNumber: 0, TotalChunks: 1, Data: []byte{1}},
		&StateComponentChunk{SenderID: "node-B", Requestor: "node-A", TotalChunks: 1},
		&NeedGenesisBlock{SenderID: "node-B"},
		&ProposalVote{SenderID: "node-B", ProposalID: "p", Yes: true, No: true},
		&Proposal{SenderID: "node-B", ProposalID: "p"},
	}
	for _, msg := range invalid {
		_, err := Encode(msg)
		require.ErrorIs(t, err, ErrInvalidMessage, "%T", msg)

		// bypass Encode validation to check the decoder enforces it as well
		body, err := protocol.Encode(msg)
		require.NoError(t, err)
		_, err = Decode(encodeEnvelope(t, msg.Tag(), body))
		require.ErrorIs(t, err, ErrInvalidMessage, "%T", msg)
	}
}

func TestOversizedPayload(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	payload := []byte(strings.Repeat("00", protocol.MaxEncodedMessageSize/2+1))
	_, err := Decode(payload)
	require.ErrorIs(t, err, ErrMessageTooLarge)

	big := &NeedGenesisBlock{SenderID: strings.Repeat("x", protocol.NeedGenesisBlockTagMaxSize), RequestedFrom: "node-A"}
	_, err = Encode(big)
	require.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestWireForm(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	payload, err := Encode(&NeedGenesisBlock{SenderID: "node-B", RequestedFrom: "node-A"})
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(string(payload)), string(payload))

	raw, err := hex.DecodeString(string(payload))
	require.NoError(t, err)
	var env struct {
		T string `codec:"t"`
		B []byte `codec:"b"`
	}
	require.NoError(t, protocol.DecodeReflect(raw, &env))
	require.Equal(t, "NG", env.T)

	var body map[string]string
	require.NoError(t, protocol.DecodeReflect(env.B, &body))
	require.Equal(t, map[string]string{"sender_id": "node-B", "requested_from": "node-A"}, body)
}
