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
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	"golang.org/x/sync/errgroup"

	"github.com/vrrb-io/go-vrrb/logging"
)

// maxConcurrentPings bounds the pings of one round running at the same time.
const maxConcurrentPings = 16

var errPingChannelClosed = errors.New("ping stream closed without a result")

// pingDriver pings every connected peer once per interval and posts the outcomes.
type pingDriver struct {
	host     host.Host
	poster   Poster
	log      logging.Logger
	interval time.Duration
	timeout  time.Duration
}

// RunPings pings connected peers every interval until ctx is done. Each ping is bounded by
// timeout. RunPings blocks.
func RunPings(ctx context.Context, h host.Host, interval, timeout time.Duration, poster Poster, log logging.Logger) {
	d := &pingDriver{host: h, poster: poster, log: log, interval: interval, timeout: timeout}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.round(ctx)
		}
	}
}

func (d *pingDriver) round(ctx context.Context) {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrentPings)
	for _, p := range d.host.Network().Peers() {
		p := p
		eg.Go(func() error {
			ev := d.ping(ctx, p)
			if err := d.poster.Post(ctx, ev); err != nil {
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		d.log.Debugf("overlay: ping round interrupted: %v", err)
	}
}

func (d *pingDriver) ping(ctx context.Context, p peer.ID) Event {
	pctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	select {
	case res, ok := <-ping.Ping(pctx, d.host, p):
		if !ok {
			return PingFailure{Peer: p, Err: errPingChannelClosed}
		}
		if res.Error != nil {
			return PingFailure{Peer: p, Err: res.Error, Timeout: errors.Is(res.Error, context.DeadlineExceeded)}
		}
		return PingSuccess{Peer: p, RTT: res.RTT}
	case <-pctx.Done():
		return PingFailure{Peer: p, Err: pctx.Err(), Timeout: errors.Is(pctx.Err(), context.DeadlineExceeded)}
	}
}
