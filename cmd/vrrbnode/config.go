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
	"path/filepath"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/protocol"
	"github.com/vrrb-io/go-vrrb/util"
	"github.com/vrrb-io/go-vrrb/util/codecs"
)

var (
	getParameterArg string
	initNodeID      string
	initNetwork     string
	forceInit       bool
)

func init() {
	configGetCmd.Flags().StringVarP(&getParameterArg, "parameter", "p", "", "Parameter to query")
	configGetCmd.MarkFlagRequired("parameter")

	configInitCmd.Flags().StringVar(&initNodeID, "local-node-id", "", "LocalNodeID to write into the new config")
	configInitCmd.Flags().StringVarP(&initNetwork, "network", "n", "", "NetworkID to write into the new config")
	configInitCmd.Flags().BoolVarP(&forceInit, "yes", "y", false, "Overwrite an existing config without prompting")
	configInitCmd.MarkFlagRequired("local-node-id")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configInitCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create node configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after merging defaults",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cfg := loadConfig(ensureSingleDataDir())
		if err := codecs.NewFormattedJSONEncoder(os.Stdout).Encode(cfg); err != nil {
			reportErrorf("Error encoding config: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			reportWarnf("configuration is not runnable: %v", err)
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Retrieve the current value for the specified parameter",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cfg := loadConfig(ensureSingleDataDir())
		val, err := getObjectProperty(cfg, getParameterArg)
		if err != nil {
			reportErrorf("Error retrieving property '%s' - %s", getParameterArg, err)
		}
		fmt.Printf("%v\n", val)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.json into the data directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		dataDir := ensureSingleDataDir()
		if err := util.EnsureDir(dataDir); err != nil {
			reportErrorf("Cannot create data directory %s: %v", dataDir, err)
		}
		if util.FileExists(configPath(dataDir)) && !forceInit {
			reportErrorf("%s already exists; pass -y to overwrite", configPath(dataDir))
		}

		cfg := config.GetDefaultLocal()
		cfg.LocalNodeID = initNodeID
		if initNetwork != "" {
			cfg.NetworkID = protocol.NetworkID(initNetwork)
		}
		if err := cfg.Validate(); err != nil {
			reportErrorf("Invalid configuration: %v", err)
		}
		if err := cfg.SaveToDisk(dataDir); err != nil {
			reportErrorf("Error saving config: %v", err)
		}
		reportInfof("Config written to %s", configPath(dataDir))
	},
}

func configPath(dataDir string) string {
	return filepath.Join(dataDir, config.ConfigFilename)
}

func loadConfig(dataDir string) config.Local {
	cfg, err := config.LoadConfigFromDisk(dataDir)
	if err != nil {
		reportErrorf("Error loading config file from '%s': %v", dataDir, err)
	}
	return cfg
}

func getObjectProperty(object interface{}, property string) (interface{}, error) {
	val := reflect.Indirect(reflect.ValueOf(object))
	f := val.FieldByName(property)
	if !f.IsValid() {
		return nil, fmt.Errorf("unknown property named '%s'", property)
	}
	return f.Interface(), nil
}
