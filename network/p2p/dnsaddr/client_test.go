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
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

func startTestDNSServer(t *testing.T, handler dns.HandlerFunc) string {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	started := make(chan struct{})
	server := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go server.ActivateAndServe() //nolint:errcheck
	<-started
	t.Cleanup(func() { server.Shutdown() })
	return pc.LocalAddr().String()
}

func testZone(w dns.ResponseWriter, req *dns.Msg) {
	resp := new(dns.Msg)
	resp.SetReply(req)
	q := req.Question[0]
	switch {
	case q.Name == "node.vrrb.example." && q.Qtype == dns.TypeA:
		rr, _ := dns.NewRR("node.vrrb.example. 60 IN A 10.1.2.3")
		resp.Answer = append(resp.Answer, rr)
	case q.Name == "node.vrrb.example." && q.Qtype == dns.TypeAAAA:
		rr, _ := dns.NewRR("node.vrrb.example. 60 IN AAAA fd00::1")
		resp.Answer = append(resp.Answer, rr)
	case q.Name == "_dnsaddr.vrrb.example." && q.Qtype == dns.TypeTXT:
		resp.Answer = append(resp.Answer, &dns.TXT{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
			Txt: []string{"dnsaddr=/ip4/10.1.2.3/", "tcp/4190"},
		})
	case q.Name == "broken.vrrb.example.":
		resp.Rcode = dns.RcodeServerFailure
	default:
		resp.Rcode = dns.RcodeNameError
	}
	_ = w.WriteMsg(resp)
}

func TestDNSClientLookups(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	server := startTestDNSServer(t, testZone)
	client := MakeDNSClient([]string{server}, time.Second)
	ctx := context.Background()

	addrs, err := client.LookupIPAddr(ctx, "node.vrrb.example")
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	require.Equal(t, "10.1.2.3", addrs[0].IP.String())
	require.Equal(t, "fd00::1", addrs[1].IP.String())

	txts, err := client.LookupTXT(ctx, "_dnsaddr.vrrb.example")
	require.NoError(t, err)
	require.Equal(t, []string{"dnsaddr=/ip4/10.1.2.3/tcp/4190"}, txts)

	_, err = client.LookupTXT(ctx, "missing.vrrb.example")
	var dnsErr *net.DNSError
	require.ErrorAs(t, err, &dnsErr)
	require.True(t, dnsErr.IsNotFound)

	_, err = client.LookupTXT(ctx, "broken.vrrb.example")
	require.Error(t, err)
}

func TestDNSClientTriesNextServer(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	// nothing answers on this port
	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.LocalAddr().String()
	require.NoError(t, dead.Close())

	server := startTestDNSServer(t, testZone)
	client := MakeDNSClient([]string{deadAddr, server}, 200*time.Millisecond)
	txts, err := client.LookupTXT(context.Background(), "_dnsaddr.vrrb.example")
	require.NoError(t, err)
	require.Len(t, txts, 1)
}

func TestChainResolver(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	broken := &mockBasicResolver{fail: true}
	working := &mockBasicResolver{txt: map[string][]string{"x": {"y"}}}
	txts, err := chainResolver{broken, working}.LookupTXT(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, []string{"y"}, txts)

	_, err = chainResolver{broken}.LookupTXT(context.Background(), "x")
	require.Error(t, err)
	_, err = chainResolver{}.LookupIPAddr(context.Background(), "x")
	require.ErrorIs(t, err, errNoAnswer)
}
