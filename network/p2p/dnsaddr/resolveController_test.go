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

package dnsaddr

import (
	"testing"

	madns "github.com/multiformats/go-multiaddr-dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

func TestDnsAddrResolveController(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	controller := NewResolveController("127.0.0.1", logging.TestingLog(t))
	dnsaddrCont := NewMultiaddrDNSResolveController(controller)

	// the system resolver comes first, then the fallback and default ones
	assert.Equal(t, madns.DefaultResolver, dnsaddrCont.Resolver())
	fallback := dnsaddrCont.NextResolver()
	require.NotNil(t, fallback)
	assert.NotEqual(t, madns.DefaultResolver, fallback)
	def := dnsaddrCont.NextResolver()
	require.NotNil(t, def)
	assert.NotSame(t, fallback, def)
	// It should return nil once all the resolvers have been tried
	assert.Nil(t, dnsaddrCont.NextResolver())
	assert.Nil(t, dnsaddrCont.NextResolver())
}

func TestDnsAddrResolveControllerSkipsMissingFallback(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	controller := NewResolveController("", logging.TestingLog(t))
	require.Nil(t, controller.FallbackDnsaddrResolver())

	dnsaddrCont := NewMultiaddrDNSResolveController(controller)
	assert.Equal(t, madns.DefaultResolver, dnsaddrCont.Resolver())
	require.NotNil(t, dnsaddrCont.NextResolver())
	assert.Nil(t, dnsaddrCont.NextResolver())
}

func TestFallbackServerAddress(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	log := logging.TestingLog(t)
	server, ok := NewResolveController("127.0.0.1", log).fallbackServer()
	require.True(t, ok)
	require.Equal(t, "127.0.0.1:53", server)

	server, ok = NewResolveController("127.0.0.1:5353", log).fallbackServer()
	require.True(t, ok)
	require.Equal(t, "127.0.0.1:5353", server)

	require.NotNil(t, NewResolveController("", log).HostResolver())
}
