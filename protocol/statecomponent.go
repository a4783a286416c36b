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

import (
	"errors"
	"fmt"
)

// StateComponentKind selects which subset of replicated state a peer asks for.
type StateComponentKind uint8

const (
	// NetworkStateComponent is the full network state.
	NetworkStateComponent StateComponentKind = iota
	// BlockchainComponent is the full chain of blocks.
	BlockchainComponent
	// LedgerComponent is the full ledger.
	LedgerComponent
	// AllComponents requests every component.
	AllComponents
	// PartialFromHeight requests state starting at a block height.
	PartialFromHeight

	numStateComponentKinds
)

// ErrInvalidStateComponent is returned when a state component carries an unknown kind.
var ErrInvalidStateComponent = errors.New("invalid state component")

// StateComponent names a full component, or a partial range starting at Height.
// Height is only meaningful for PartialFromHeight.
type StateComponent struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Kind   StateComponentKind `codec:"k"`
	Height uint64             `codec:"h"`
}

// FullComponent returns a StateComponent for one of the full component kinds.
func FullComponent(kind StateComponentKind) StateComponent {
	return StateComponent{Kind: kind}
}

// PartialComponent returns a StateComponent requesting state from height onwards.
func PartialComponent(height uint64) StateComponent {
	return StateComponent{Kind: PartialFromHeight, Height: height}
}

// IsFull reports whether the component names a whole subsystem rather than a height range.
func (sc StateComponent) IsFull() bool {
	return sc.Kind < PartialFromHeight
}

// Validate checks that the kind is known and that full components carry no height.
func (sc StateComponent) Validate() error {
	if sc.Kind >= numStateComponentKinds {
		return fmt.Errorf("%w: kind %d", ErrInvalidStateComponent, sc.Kind)
	}
	if sc.IsFull() && sc.Height != 0 {
		return fmt.Errorf("%w: %v carries height %d", ErrInvalidStateComponent, sc.Kind, sc.Height)
	}
	return nil
}

func (k StateComponentKind) String() string {
	switch k {
	case NetworkStateComponent:
		return "NetworkState"
	case BlockchainComponent:
		return "Blockchain"
	case LedgerComponent:
		return "Ledger"
	case AllComponents:
		return "All"
	case PartialFromHeight:
		return "PartialFromHeight"
	default:
		return fmt.Sprintf("StateComponentKind(%d)", uint8(k))
	}
}

func (sc StateComponent) String() string {
	if sc.Kind == PartialFromHeight {
		return fmt.Sprintf("PartialFromHeight(%d)", sc.Height)
	}
	return sc.Kind.String()
}
