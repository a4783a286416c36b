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
	"os"

	"github.com/algorand/go-deadlock"
)

// CyclicFileWriter implements the io.Writer interface and wraps an underlying file.
// It ensures that the file never grows over a limit: once full, the live file is
// moved to the archive path and a fresh live file is started.
type CyclicFileWriter struct {
	mu        deadlock.Mutex
	writer    *os.File
	liveLog   string
	archive   string
	nextWrite uint64
	limit     uint64
}

// MakeCyclicFileWriter returns a writer that wraps a file to ensure it never grows too large
func MakeCyclicFileWriter(liveLogFilePath string, archiveFilePath string, sizeLimitBytes uint64) (*CyclicFileWriter, error) {
	cyclic := CyclicFileWriter{liveLog: liveLogFilePath, archive: archiveFilePath, limit: sizeLimitBytes}

	fs, err := os.Stat(liveLogFilePath)
	if err == nil {
		cyclic.nextWrite = uint64(fs.Size())
	}

	writer, err := os.OpenFile(liveLogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("CyclicFileWriter: cannot open log file %w", err)
	}
	cyclic.writer = writer
	return &cyclic, nil
}

// Write ensures the underlying file can store an additional len(p) bytes. If there is not enough room left
// the live file is archived first.
func (cyclic *CyclicFileWriter) Write(p []byte) (n int, err error) {
	cyclic.mu.Lock()
	defer cyclic.mu.Unlock()

	if cyclic.writer == nil {
		return 0, os.ErrClosed
	}

	if uint64(len(p)) > cyclic.limit {
		// there's no hope for writing this entry to the log
		return 0, fmt.Errorf("CyclicFileWriter: input too long to write. Len = %v", len(p))
	}

	if cyclic.nextWrite+uint64(len(p)) > cyclic.limit {
		if err = cyclic.rotate(); err != nil {
			return 0, err
		}
	}
	n, err = cyclic.writer.Write(p)
	cyclic.nextWrite += uint64(n)
	return
}

func (cyclic *CyclicFileWriter) rotate() error {
	cyclic.writer.Close()
	cyclic.writer = nil
	if err := os.Rename(cyclic.liveLog, cyclic.archive); err != nil {
		return fmt.Errorf("CyclicFileWriter: cannot archive full log %w", err)
	}
	writer, err := os.OpenFile(cyclic.liveLog, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("CyclicFileWriter: cannot open log file %w", err)
	}
	cyclic.writer = writer
	cyclic.nextWrite = 0
	return nil
}

// Close closes the live log file.
func (cyclic *CyclicFileWriter) Close() error {
	cyclic.mu.Lock()
	defer cyclic.mu.Unlock()
	if cyclic.writer == nil {
		return nil
	}
	err := cyclic.writer.Close()
	cyclic.writer = nil
	return err
}
