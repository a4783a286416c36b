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

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

const (
	errorNoDataDirectory     = "Data directory not specified. Please use -d or set $VRRB_DATA in your environment."
	errorOneDataDirSupported = "Only one data directory can be specified for this command."
)

var (
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
)

func reportInfof(format string, args ...interface{}) {
	fmt.Println(infoColor.Sprintf(format, args...))
}

func reportWarnf(format string, args ...interface{}) {
	fmt.Println(warnColor.Sprintf("Warning: "+format, args...))
}

func reportErrorln(args ...interface{}) {
	fmt.Fprintln(os.Stderr, errorColor.Sprint(args...))
	os.Exit(1)
}

func reportErrorf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, errorColor.Sprintf(format, args...))
	os.Exit(1)
}
