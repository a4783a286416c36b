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

//go:build !windows

package util

import (
	"golang.org/x/sys/unix"
)

// GetFdLimits returns the current soft and hard file descriptor limits.
func GetFdLimits() (soft uint64, hard uint64, err error) {
	var rLimit unix.Rlimit
	if err = unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, 0, err
	}
	return uint64(rLimit.Cur), uint64(rLimit.Max), nil
}

// RaiseFdSoftLimit raises the file descriptor soft limit to newLimit, capped at
// the hard limit. It never lowers the current soft limit.
func RaiseFdSoftLimit(newLimit uint64) error {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return err
	}
	if newLimit > uint64(rLimit.Max) {
		newLimit = uint64(rLimit.Max)
	}
	if uint64(rLimit.Cur) >= newLimit {
		return nil
	}
	rLimit.Cur = newLimit
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
}
