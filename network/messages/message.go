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

// Package messages implements the gossip wire format: a hex encoded msgpack
// envelope holding a tag and the tag-specific body.
package messages

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/vrrb-io/go-vrrb/protocol"
)

var (
	// ErrInvalidHex is returned when the payload is not a hex string.
	ErrInvalidHex = errors.New("payload is not valid hex")
	// ErrMalformedEnvelope is returned when the hex decoded bytes are not a canonical envelope.
	ErrMalformedEnvelope = errors.New("malformed message envelope")
	// ErrUnknownTag is returned for envelopes carrying a tag that has no registered message kind.
	ErrUnknownTag = errors.New("unknown message tag")
	// ErrInvalidMessage is returned when a body decodes but is missing required fields.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrMessageTooLarge is returned when the payload or body exceeds the size bound of its tag.
	ErrMessageTooLarge = errors.New("message too large")
)

// Message is a decoded protocol message. Messages are immutable values once decoded.
type Message interface {
	// Tag identifies the message kind on the wire.
	Tag() protocol.Tag
	// Sender is the LocalNodeID of the node that created the message.
	Sender() string

	validate() error
}

type envelope struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Tag  protocol.Tag `codec:"t"`
	Body []byte       `codec:"b"`
}

var registry = map[protocol.Tag]func() Message{
	protocol.TxnTag:                 func() Message { return new(Transaction) },
	protocol.BlockTag:               func() Message { return new(Block) },
	protocol.TxnValidatorTag:        func() Message { return new(TransactionValidator) },
	protocol.ClaimTag:               func() Message { return new(Claim) },
	protocol.ClaimAbandonedTag:      func() Message { return new(ClaimAbandoned) },
	protocol.GetNetworkStateTag:     func() Message { return new(GetNetworkState) },
	protocol.BlockChunkTag:          func() Message { return new(BlockChunk) },
	protocol.StateComponentChunkTag: func() Message { return new(StateComponentChunk) },
	protocol.NeedGenesisBlockTag:    func() Message { return new(NeedGenesisBlock) },
	protocol.ProposalTag:            func() Message { return new(Proposal) },
	protocol.ProposalVoteTag:        func() Message { return new(ProposalVote) },
}

// Encode returns the gossip payload for msg. Messages failing validation are not encoded.
func Encode(msg Message) ([]byte, error) {
	if _, ok := registry[msg.Tag()]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, msg.Tag())
	}
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	body, err := protocol.Encode(msg)
	if err != nil {
		return nil, err
	}
	if uint64(len(body)) > msg.Tag().MaxMessageSize() {
		return nil, fmt.Errorf("%w: %s body is %d bytes", ErrMessageTooLarge, msg.Tag(), len(body))
	}
	raw, err := protocol.Encode(&envelope{Tag: msg.Tag(), Body: body})
	if err != nil {
		return nil, err
	}
	out := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(out, raw)
	return out, nil
}

// Decode parses a gossip payload. It hex decodes the payload, then decodes the
// envelope and the body selected by its tag. Decoding is all or nothing: any
// failure returns a nil Message.
func Decode(payload []byte) (Message, error) {
	if len(payload) > protocol.MaxEncodedMessageSize {
		return nil, fmt.Errorf("%w: payload is %d bytes", ErrMessageTooLarge, len(payload))
	}
	raw := make([]byte, hex.DecodedLen(len(payload)))
	if _, err := hex.Decode(raw, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}

	var env envelope
	if err := decodeCanonical(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	ctor, ok := registry[env.Tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, env.Tag)
	}
	if uint64(len(env.Body)) > env.Tag.MaxMessageSize() {
		return nil, fmt.Errorf("%w: %s body is %d bytes", ErrMessageTooLarge, env.Tag, len(env.Body))
	}

	msg := ctor()
	if err := decodeCanonical(env.Body, msg); err != nil {
		return nil, fmt.Errorf("%w: %s body: %v", ErrInvalidMessage, env.Tag, err)
	}
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, env.Tag, err)
	}
	return msg, nil
}

// DecodePayload is Decode for callers that treat every failure as "no message".
func DecodePayload(payload []byte) (Message, bool) {
	msg, err := Decode(payload)
	return msg, err == nil
}

// decodeCanonical decodes b into objptr and requires b to be the canonical
// encoding of the result, which rules out trailing bytes, duplicate keys and
// explicitly encoded zero values.
func decodeCanonical(b []byte, objptr interface{}) error {
	if err := protocol.DecodeReflect(b, objptr); err != nil {
		return err
	}
	reencoded, err := protocol.Encode(objptr)
	if err != nil {
		return err
	}
	if !bytes.Equal(reencoded, b) {
		return errors.New("non-canonical encoding")
	}
	return nil
}
