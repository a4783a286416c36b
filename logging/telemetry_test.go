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

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vrrb-io/go-vrrb/logging/telemetryspec"
	"github.com/vrrb-io/go-vrrb/test/partitiontest"
)

func TestTelemetryDisabledByDefault(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogger()
	l.SetOutput(&buf)
	l.Event(telemetryspec.Network, telemetryspec.PeerJoinedEvent)
	require.False(t, l.GetTelemetryEnabled())
	require.Empty(t, l.GetTelemetrySession())
	require.Zero(t, buf.Len())
}

func TestTelemetryEventWithDetails(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogger()
	l.SetOutput(&buf)
	l.SetJSONFormatter()

	cfg := MakeTelemetryConfig("node-a")
	require.NoError(t, l.EnableTelemetry(cfg))
	require.True(t, l.GetTelemetryEnabled())
	require.Equal(t, cfg.SessionGUID, l.GetTelemetrySession())
	require.Equal(t, "node-a", l.GetInstanceName())

	// derived loggers share the telemetry state
	l.With("component", "overlay").EventWithDetails(telemetryspec.Overlay, telemetryspec.PeerEvictedEvent,
		telemetryspec.PeerEvictedEventDetails{PeerID: "peer1", Failures: 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "/Overlay/PeerEvicted", entry["msg"])
	require.Equal(t, cfg.SessionGUID, entry["session"])
	require.Equal(t, "overlay", entry["component"])
	require.Equal(t, "Overlay", entry["category"])
	require.Equal(t, "PeerEvicted", entry["event"])
	details := entry["details"].(map[string]interface{})
	require.Equal(t, "peer1", details["PeerID"])
	require.EqualValues(t, 3, details["Failures"])
}

func TestTelemetryInvalidSession(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	l := NewLogger()
	err := l.EnableTelemetry(TelemetryConfig{Enable: true, SessionGUID: "not-a-guid"})
	require.Error(t, err)
	require.False(t, l.GetTelemetryEnabled())

	require.NoError(t, l.EnableTelemetry(TelemetryConfig{Enable: true}))
	_, err = uuid.Parse(l.GetTelemetrySession())
	require.NoError(t, err)
}
