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
	"net"

	madns "github.com/multiformats/go-multiaddr-dns"

	"github.com/vrrb-io/go-vrrb/logging"
)

const dnsPort = "53"

// DefaultDNSServers are queried when both the system and the fallback resolver fail.
var DefaultDNSServers = []string{"1.1.1.1:53", "8.8.8.8:53"}

// ResolveController builds the resolvers used for bootstrap lookups: the system one,
// one bound to the configured fallback server, and one bound to well known public servers.
type ResolveController struct {
	fallback string
	log      logging.Logger
}

// NewResolveController creates a new ResolveController
func NewResolveController(fallbackDNSResolverAddress string, log logging.Logger) ResolveController {
	return ResolveController{fallback: fallbackDNSResolverAddress, log: log}
}

// SystemDnsaddrResolver returns a resolver that uses OS-defined DNS servers
func (c ResolveController) SystemDnsaddrResolver() *madns.Resolver {
	return madns.DefaultResolver
}

// FallbackDnsaddrResolver returns a resolver that uses the fallback DNS address, or nil
// when no usable fallback is configured.
func (c ResolveController) FallbackDnsaddrResolver() *madns.Resolver {
	server, ok := c.fallbackServer()
	if !ok {
		return nil
	}
	return c.makeResolver(MakeDNSClient([]string{server}, DefaultTimeout))
}

// DefaultDnsaddrResolver returns a resolver that uses public DNS servers
func (c ResolveController) DefaultDnsaddrResolver() *madns.Resolver {
	return c.makeResolver(MakeDNSClient(DefaultDNSServers, DefaultTimeout))
}

// HostResolver returns the resolver libp2p uses to expand /dns and /dnsaddr addresses when
// dialing. It tries the system servers, then the fallback, then the public defaults.
func (c ResolveController) HostResolver() *madns.Resolver {
	chain := chainResolver{net.DefaultResolver}
	if server, ok := c.fallbackServer(); ok {
		chain = append(chain, MakeDNSClient([]string{server}, DefaultTimeout))
	}
	chain = append(chain, MakeDNSClient(DefaultDNSServers, DefaultTimeout))
	return c.makeResolver(chain)
}

func (c ResolveController) fallbackServer() (string, bool) {
	if c.fallback == "" {
		return "", false
	}
	host, port, err := net.SplitHostPort(c.fallback)
	if err != nil {
		host, port = c.fallback, dnsPort
	}
	dnsIPAddr, err := net.ResolveIPAddr("ip", host)
	if err != nil {
		c.log.Debugf("resolving fallback %s failed with %s", c.fallback, err.Error())
		return "", false
	}
	return net.JoinHostPort(dnsIPAddr.String(), port), true
}

func (c ResolveController) makeResolver(basic madns.BasicResolver) *madns.Resolver {
	r, err := madns.NewResolver(madns.WithDefaultResolver(basic))
	if err != nil {
		c.log.Warnf("unable to build multiaddr resolver: %v", err)
		return nil
	}
	return r
}

// MultiaddrDNSResolveController cycles through the system, fallback and default resolvers.
type MultiaddrDNSResolveController struct {
	resolver      *madns.Resolver
	nextResolvers []func() *madns.Resolver
}

// NewMultiaddrDNSResolveController starts the cycle at the system resolver.
func NewMultiaddrDNSResolveController(controller ResolveController) *MultiaddrDNSResolveController {
	return &MultiaddrDNSResolveController{
		resolver:      nil,
		nextResolvers: []func() *madns.Resolver{controller.SystemDnsaddrResolver, controller.FallbackDnsaddrResolver, controller.DefaultDnsaddrResolver},
	}
}

// NextResolver moves to the next available resolver and returns it, or nil once all of them
// have been tried. Resolvers that cannot be built are skipped.
func (c *MultiaddrDNSResolveController) NextResolver() *madns.Resolver {
	c.resolver = nil
	for c.resolver == nil && len(c.nextResolvers) > 0 {
		c.resolver = c.nextResolvers[0]()
		c.nextResolvers = c.nextResolvers[1:]
	}
	return c.resolver
}

// Resolver returns the current resolver, invokes NextResolver if the resolver is nil
func (c *MultiaddrDNSResolveController) Resolver() *madns.Resolver {
	if c.resolver == nil {
		c.resolver = c.NextResolver()
	}
	return c.resolver
}
