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

package util

import (
	"math"
)

// GetFdLimits returns a current values for file descriptors limits.
func GetFdLimits() (soft uint64, hard uint64, err error) {
	return math.MaxUint64, math.MaxUint64, nil
}

// RaiseFdSoftLimit raises the file descriptors soft limit.
func RaiseFdSoftLimit(_ uint64) error {
	return nil
}
