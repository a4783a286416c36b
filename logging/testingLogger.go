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
	"strings"
	"sync/atomic"
	"testing"
)

type testLoggerAdaptor struct {
	tb   testing.TB
	done atomic.Bool
}

// Write routes log output into the test log. Output arriving after the test
// finished is dropped, since testing.T panics on late logging.
func (a *testLoggerAdaptor) Write(p []byte) (int, error) {
	if !a.done.Load() {
		a.tb.Log(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

// TestingLog is a test-only helper to create a logger that writes to the test log.
func TestingLog(tb testing.TB) Logger {
	l := NewLogger()
	l.SetLevel(Debug)
	adaptor := &testLoggerAdaptor{tb: tb}
	tb.Cleanup(func() { adaptor.done.Store(true) })
	l.SetOutput(adaptor)
	return l
}

// TestingLogWithoutFatalExit is TestingLog whose Fatal calls run the exit handlers
// but do not terminate the test binary.
func TestingLogWithoutFatalExit(tb testing.TB) Logger {
	l := TestingLog(tb)
	l.(logger).entry.Logger.ExitFunc = func(int) {}
	return l
}
