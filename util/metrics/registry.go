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

// Package metrics provides metric wrappers for the Prometheus client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// go and process collectors live on prometheus.DefaultRegisterer, which Handler also gathers.
var defaultRegistry = prometheus.NewRegistry()

// DefaultRegistry returns the registry node metrics are registered with.
func DefaultRegistry() *prometheus.Registry {
	return defaultRegistry
}

// Handler serves the node metrics together with everything libp2p registered on the
// global prometheus registerer.
func Handler() http.Handler {
	gatherers := prometheus.Gatherers{defaultRegistry, prometheus.DefaultGatherer}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
