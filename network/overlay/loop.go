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

package overlay

import (
	"context"
	"errors"

	"github.com/algorand/go-deadlock"
)

// ErrLoopStopped is returned by Post once the loop has exited.
var ErrLoopStopped = errors.New("overlay loop stopped")

// Poster is the producer side of the overlay loop.
type Poster interface {
	// Post queues ev, waiting for room in the backlog.
	Post(ctx context.Context, ev Event) error
	// TryPost queues ev only if that can be done without waiting.
	TryPost(ev Event) bool
}

// Loop feeds queued events to a Behavior one at a time. Producers only ever touch the
// queue, so the behavior state has a single owner.
type Loop struct {
	events chan Event
	done   chan struct{}

	statusMu deadlock.RWMutex
	status   Status
}

// MakeLoop creates a loop with room for backlog queued events. Events may be posted
// before Run is called.
func MakeLoop(backlog int) *Loop {
	return &Loop{
		events: make(chan Event, backlog),
		done:   make(chan struct{}),
	}
}

// Run hands events to b until ctx is done. It must be called once, and b must not be
// used by anything else while Run is active.
func (l *Loop) Run(ctx context.Context, b *Behavior) error {
	defer close(l.done)
	l.setStatus(b.Status())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			b.Handle(ev)
			l.setStatus(b.Status())
		}
	}
}

func (l *Loop) setStatus(st Status) {
	l.statusMu.Lock()
	l.status = st
	l.statusMu.Unlock()
}

// Post implements Poster.
func (l *Loop) Post(ctx context.Context, ev Event) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.events <- ev:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPost implements Poster.
func (l *Loop) TryPost(ev Event) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- ev:
		return true
	default:
		return false
	}
}

// Status returns the behavior state as of the last handled event.
func (l *Loop) Status() Status {
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	return l.status
}
