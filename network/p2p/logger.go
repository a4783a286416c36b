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

// This file implements a zapcore.Core in order to route libp2p logs into the node logger.

package p2p

import (
	"runtime"

	p2plogging "github.com/ipfs/go-log/v2"
	"go.uber.org/zap/zapcore"

	"github.com/vrrb-io/go-vrrb/logging"
)

var levelsMap = map[zapcore.Level]logging.Level{
	zapcore.DebugLevel:  logging.Debug,
	zapcore.InfoLevel:   logging.Info,
	zapcore.WarnLevel:   logging.Warn,
	zapcore.ErrorLevel:  logging.Error,
	zapcore.DPanicLevel: logging.Error,
	zapcore.PanicLevel:  logging.Error,
	zapcore.FatalLevel:  logging.Error,
}

// loggingCore implements zapcore.Core
type loggingCore struct {
	log    logging.Logger
	level  logging.Level
	fields []zapcore.Field
	zapcore.Core
}

// EnableP2PLogging makes libp2p subsystems log through log, at most as verbose as l.
// libp2p panic and fatal levels are demoted to errors: a library never stops the node.
func EnableP2PLogging(log logging.Logger, l logging.Level) {
	core := loggingCore{
		log:   log,
		level: l,
	}
	p2plogging.SetAllLoggers(zapLevel(l))
	p2plogging.SetPrimaryCore(&core)
}

func zapLevel(l logging.Level) p2plogging.LogLevel {
	switch {
	case l >= logging.Debug:
		return p2plogging.LevelDebug
	case l == logging.Info:
		return p2plogging.LevelInfo
	case l == logging.Warn:
		return p2plogging.LevelWarn
	default:
		return p2plogging.LevelError
	}
}

func (c *loggingCore) Enabled(l zapcore.Level) bool {
	level, ok := levelsMap[l]
	if !ok {
		return false
	}
	return level <= c.level && c.log.IsLevelEnabled(level)
}

func (c *loggingCore) With(fields []zapcore.Field) zapcore.Core {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	return &loggingCore{
		log:    c.log,
		level:  c.level,
		fields: append(combined, fields...),
	}
}

func (c *loggingCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *loggingCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	loggingFields := make(logging.Fields, len(enc.Fields)+3)
	for k, v := range enc.Fields {
		loggingFields[k] = v
	}
	loggingFields["libp2p"] = e.LoggerName
	if e.Caller.Defined {
		loggingFields["caller"] = e.Caller.TrimmedPath()
		if function := runtime.FuncForPC(e.Caller.PC); function != nil {
			loggingFields["p2pfunction"] = function.Name()
		}
	}
	event := c.log.WithFields(loggingFields)

	switch levelsMap[e.Level] {
	case logging.Debug:
		event.Debug(e.Message)
	case logging.Info:
		event.Info(e.Message)
	case logging.Warn:
		event.Warn(e.Message)
	default:
		event.Error(e.Message)
	}
	return nil
}

func (c *loggingCore) Sync() error {
	return nil
}
