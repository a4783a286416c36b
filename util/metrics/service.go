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

package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/gorilla/mux"
)

// ServiceConfig contains all the information we need in order to create a listening server endpoint.
type ServiceConfig struct {
	NodeExporterListenAddress string
	NodeExporterPath          string
}

// MetricService represent a single running metric server instance
type MetricService struct {
	config    ServiceConfig
	router    *mux.Router
	runningMu deadlock.Mutex
	server    *http.Server
	addr      net.Addr
	done      chan struct{}
}

// MakeMetricService creates a new metrics server at the given endpoint. Extra routes
// may be added through Router before Start.
func MakeMetricService(config ServiceConfig) *MetricService {
	if config.NodeExporterPath == "" {
		config.NodeExporterPath = "/metrics"
	}
	router := mux.NewRouter()
	router.Handle(config.NodeExporterPath, Handler()).Methods(http.MethodGet)
	return &MetricService{config: config, router: router}
}

// Router returns the router serving the metrics endpoint.
func (server *MetricService) Router() *mux.Router {
	return server.router
}

// Start starts listening and serving in the background.
func (server *MetricService) Start(ctx context.Context) error {
	server.runningMu.Lock()
	defer server.runningMu.Unlock()
	if server.server != nil {
		return nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", server.config.NodeExporterListenAddress)
	if err != nil {
		return err
	}
	server.addr = ln.Addr()
	server.server = &http.Server{Handler: server.router, ReadHeaderTimeout: 10 * time.Second}
	server.done = make(chan struct{})
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		// Serve always returns a non-nil error; ErrServerClosed after Shutdown.
		_ = srv.Serve(ln)
	}(server.server, server.done)
	return nil
}

// Addr returns the address the service listens on, or nil if it was not started.
func (server *MetricService) Addr() net.Addr {
	server.runningMu.Lock()
	defer server.runningMu.Unlock()
	return server.addr
}

// Shutdown the running server
func (server *MetricService) Shutdown() {
	server.runningMu.Lock()
	defer server.runningMu.Unlock()
	if server.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.server.Shutdown(ctx)
	<-server.done
	server.server = nil
	server.addr = nil
}
