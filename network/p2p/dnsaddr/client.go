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
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	madns "github.com/multiformats/go-multiaddr-dns"
)

// DefaultTimeout bounds a single query against one DNS server.
const DefaultTimeout = 2 * time.Second

// errNoAnswer is returned when none of the configured servers produced a usable reply.
var errNoAnswer = errors.New("no answer from DNS servers")

// dnsClient implements madns.BasicResolver against explicit DNS servers, trying each in turn
type dnsClient struct {
	servers     []string
	readTimeout time.Duration
}

var _ madns.BasicResolver = (*dnsClient)(nil)

// MakeDNSClient returns a resolver that queries servers (host:port) directly.
func MakeDNSClient(servers []string, timeout time.Duration) madns.BasicResolver {
	return &dnsClient{servers: servers, readTimeout: timeout}
}

// queryServer performs DNS query against provided server with respect of both context and timeout restrictions.
// If the UDP answer is truncated the query is repeated over TCP.
func queryServer(ctx context.Context, server string, msg *dns.Msg, timeout time.Duration) (resp *dns.Msg, err error) {
	for _, netType := range []string{"udp", "tcp"} {
		if resp, _, err = (&dns.Client{Net: netType, ReadTimeout: timeout}).ExchangeContext(ctx, msg, server); err != nil {
			return nil, err
		}
		if !resp.Truncated {
			return
		}
	}
	var name string
	if len(msg.Question) > 0 {
		name = msg.Question[0].Name
	}
	return nil, fmt.Errorf("DNS response for %s is still truncated even after retrying TCP", name)
}

// query builds a DNS request and tries it against all servers
func (r *dnsClient) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	name = dns.Fqdn(name)

	msg := new(dns.Msg)
	msg.RecursionDesired = true
	msg.SetQuestion(name, qtype)
	msg.SetEdns0(4096, false) // large enough that dnsaddr TXT sets rarely need TCP

	var lastErr error
	for _, server := range r.servers {
		resp, err := queryServer(ctx, server, msg, r.readTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode == dns.RcodeNameError {
			return nil, &net.DNSError{Err: "no such host", Name: name, Server: server, IsNotFound: true}
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("DNS error from %s: %s", server, dns.RcodeToString[resp.Rcode])
			continue
		}
		return resp.Answer, nil
	}
	if lastErr == nil {
		lastErr = errNoAnswer
	}
	return nil, fmt.Errorf("(%s, %s) from %v: %w", name, dns.TypeToString[qtype], r.servers, lastErr)
}

// LookupIPAddr returns the A and AAAA records of domain.
func (r *dnsClient) LookupIPAddr(ctx context.Context, domain string) ([]net.IPAddr, error) {
	var addrs []net.IPAddr
	var errs []error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answer, err := r.query(ctx, domain, qtype)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, rr := range answer {
			switch rec := rr.(type) {
			case *dns.A:
				addrs = append(addrs, net.IPAddr{IP: rec.A})
			case *dns.AAAA:
				addrs = append(addrs, net.IPAddr{IP: rec.AAAA})
			}
		}
	}
	if len(addrs) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return addrs, nil
}

// LookupTXT returns the TXT strings of name. Multi-string records are concatenated.
func (r *dnsClient) LookupTXT(ctx context.Context, name string) ([]string, error) {
	answer, err := r.query(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var txts []string
	for _, rr := range answer {
		if rec, ok := rr.(*dns.TXT); ok {
			var joined string
			for _, s := range rec.Txt {
				joined += s
			}
			txts = append(txts, joined)
		}
	}
	return txts, nil
}

// chainResolver asks each resolver in order and returns the first successful answer.
type chainResolver []madns.BasicResolver

func (c chainResolver) LookupIPAddr(ctx context.Context, domain string) ([]net.IPAddr, error) {
	var lastErr error = errNoAnswer
	for _, r := range c {
		addrs, err := r.LookupIPAddr(ctx, domain)
		if err == nil {
			return addrs, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c chainResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	var lastErr error = errNoAnswer
	for _, r := range c {
		txts, err := r.LookupTXT(ctx, name)
		if err == nil {
			return txts, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
