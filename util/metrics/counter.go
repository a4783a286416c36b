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
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Counter represent a single counter variable, optionally partitioned by labels.
type Counter struct {
	vec *prometheus.CounterVec
}

// MakeCounter create a new counter with the provided name and description.
// labelNames fixes the label set every Inc call must provide.
func MakeCounter(metric MetricName, labelNames ...string) *Counter {
	c := &Counter{vec: prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metric.Name,
		Help: metric.Description,
	}, labelNames)}
	c.Register(nil)
	return c
}

// Register registers the counter with the default/specific registry
func (counter *Counter) Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	reg.MustRegister(counter.vec)
}

// Inc increases counter by 1
func (counter *Counter) Inc(labels map[string]string) {
	counter.vec.With(labels).Inc()
}

// AddUint64 increases counter by x
func (counter *Counter) AddUint64(x uint64, labels map[string]string) {
	counter.vec.With(labels).Add(float64(x))
}

// GetUint64Value returns the value of an unlabeled counter.
func (counter *Counter) GetUint64Value() uint64 {
	return counter.GetUint64ValueForLabels(nil)
}

// GetUint64ValueForLabels returns the value of the counter for the given labels or 0 if it's not found.
func (counter *Counter) GetUint64ValueForLabels(labels map[string]string) uint64 {
	c, err := counter.vec.GetMetricWith(labels)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if c.Write(&m) != nil || m.Counter == nil {
		return 0
	}
	return uint64(m.Counter.GetValue())
}
