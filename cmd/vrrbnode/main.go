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

// vrrbnode runs a VRRB network node and manages its data directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vrrb-io/go-vrrb/config"
)

var (
	versionCheck bool
	dataDirs     []string
)

var rootCmd = &cobra.Command{
	Use:   "vrrbnode",
	Short: "VRRB network node",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if versionCheck {
			fmt.Println(config.FormatVersionAndLicense())
			return
		}
		cmd.HelpFunc()(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&dataDirs, "datadir", "d", nil, "Data directory for the node (defaults to $VRRB_DATA)")
	rootCmd.Flags().BoolVarP(&versionCheck, "version", "v", false, "Display current build version and exit")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(peerIDCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
