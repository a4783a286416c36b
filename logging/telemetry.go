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
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vrrb-io/go-vrrb/logging/telemetryspec"
)

const telemetryPrefix = "/"
const telemetrySeparator = "/"

// TelemetryConfig controls how telemetry events are emitted.
// Events are written into the regular log stream at Info level, tagged with the session.
type TelemetryConfig struct {
	Enable      bool
	SessionGUID string
	Name        string
}

// MakeTelemetryConfig returns an enabled TelemetryConfig with a fresh session GUID.
func MakeTelemetryConfig(name string) TelemetryConfig {
	return TelemetryConfig{
		Enable:      true,
		SessionGUID: uuid.NewString(),
		Name:        name,
	}
}

type telemetryState struct {
	cfg TelemetryConfig
}

func makeTelemetryState(cfg TelemetryConfig) (*telemetryState, error) {
	if cfg.SessionGUID == "" {
		cfg.SessionGUID = uuid.NewString()
	} else if _, err := uuid.Parse(cfg.SessionGUID); err != nil {
		return nil, fmt.Errorf("invalid telemetry session %q: %w", cfg.SessionGUID, err)
	}
	return &telemetryState{cfg: cfg}, nil
}

func buildMessage(args ...string) string {
	return telemetryPrefix + strings.Join(args, telemetrySeparator)
}

func (t *telemetryState) logEvent(l logger, category telemetryspec.Category, identifier telemetryspec.Event, details interface{}) {
	entry := l.entry.WithFields(logrus.Fields{
		"session":      t.cfg.SessionGUID,
		"instanceName": t.cfg.Name,
		"category":     string(category),
		"event":        string(identifier),
	})
	if details != nil {
		entry = entry.WithField("details", details)
	}
	entry.Info(buildMessage(string(category), string(identifier)))
}
