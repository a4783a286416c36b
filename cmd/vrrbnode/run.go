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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/vrrb-io/go-vrrb/config"
	"github.com/vrrb-io/go-vrrb/logging"
	"github.com/vrrb-io/go-vrrb/node"
	"github.com/vrrb-io/go-vrrb/util"
	"github.com/vrrb-io/go-vrrb/util/metrics"
)

const lockFileName = "vrrbnode.lock"

// fdSoftLimit covers the listener sockets plus one connection per peer with headroom for the address book.
const fdSoftLimit = 4096

var (
	logToStdout      bool
	localNodeID      string
	bootstrapPeers   []string
	listenAddrs      []string
	metricsListen    string
	telemetryEnabled bool
)

func init() {
	runCmd.Flags().BoolVarP(&logToStdout, "stdout", "o", false, "Write the log to stdout instead of node.log")
	runCmd.Flags().StringVar(&localNodeID, "local-node-id", "", "Override config.LocalNodeID")
	runCmd.Flags().StringArrayVarP(&bootstrapPeers, "bootstrap", "b", nil, "Bootstrap peer multiaddr, may be repeated")
	runCmd.Flags().StringArrayVarP(&listenAddrs, "listen", "l", nil, "Override config.P2PListenAddresses, may be repeated")
	runCmd.Flags().StringVar(&metricsListen, "metrics", "", "Override config.MetricsListenAddress")
	runCmd.Flags().BoolVarP(&telemetryEnabled, "telemetry", "t", true, "Record telemetry events in the log when config.TelemetryToLog is set")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the node until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		os.Exit(runNode())
	},
}

func runNode() int {
	dataDir := ensureSingleDataDir()
	absolutePath, err := filepath.Abs(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't convert data directory's path to absolute, %v\n", dataDir)
		return 1
	}
	if err := os.MkdirAll(absolutePath, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Data directory %s cannot be created: %v\n", dataDir, err)
		return 1
	}

	// only one node may run against a data directory
	fileLock := flock.New(filepath.Join(absolutePath, lockFileName))
	locked, err := fileLock.TryLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unexpected failure in establishing %s: %v\n", lockFileName, err)
		return 1
	}
	if !locked {
		fmt.Fprintf(os.Stderr, "failed to lock %s; is a node already running in this data directory?\n", lockFileName)
		return 1
	}
	defer fileLock.Unlock()

	cfg, err := config.LoadConfigFromDisk(absolutePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot load config: %v\n", err)
		return 1
	}
	applyRunOverrides(&cfg)

	log := logging.Base()
	log.SetLevel(logging.Level(cfg.BaseLoggerDebugLevel))
	log.SetJSONFormatter()
	if !logToStdout && cfg.LogSizeLimit > 0 {
		liveLog, archive := cfg.ResolveLogPaths(absolutePath)
		writer, err := logging.MakeCyclicFileWriter(liveLog, archive, cfg.LogSizeLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open log file %s: %v\n", liveLog, err)
			return 1
		}
		defer writer.Close()
		log.SetOutput(writer)
		fmt.Printf("Logging to %s\n", liveLog)
	} else {
		log.SetOutput(os.Stdout)
	}

	if err := util.RaiseFdSoftLimit(fdSoftLimit); err != nil {
		log.Warnf("cannot raise file descriptor limit to %d: %v", fdSoftLimit, err)
	}

	if telemetryEnabled && cfg.TelemetryToLog {
		if err := log.EnableTelemetry(logging.MakeTelemetryConfig(cfg.LocalNodeID)); err != nil {
			log.Warnf("telemetry disabled: %v", err)
		}
	}

	n, err := node.MakeNode(log, absolutePath, cfg)
	if err != nil {
		log.Errorf("cannot create node: %v", err)
		fmt.Fprintf(os.Stderr, "Cannot create node: %v\n", err)
		return 1
	}
	if err := n.Start(); err != nil {
		n.Stop()
		log.Errorf("cannot start node: %v", err)
		fmt.Fprintf(os.Stderr, "Cannot start node: %v\n", err)
		return 1
	}
	defer n.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsListenAddress != "" {
		svc := metrics.MakeMetricService(metrics.ServiceConfig{NodeExporterListenAddress: cfg.MetricsListenAddress})
		svc.Router().HandleFunc("/status", statusHandler(n, log)).Methods(http.MethodGet)
		if err := svc.Start(ctx); err != nil {
			log.Errorf("cannot start metrics service on %s: %v", cfg.MetricsListenAddress, err)
			fmt.Fprintf(os.Stderr, "Cannot start metrics service: %v\n", err)
			return 1
		}
		defer svc.Shutdown()
		log.Infof("serving /metrics and /status on %s", svc.Addr())
	}

	fmt.Printf("Node %s started as %s\n", cfg.LocalNodeID, n.ID())
	for _, addr := range n.Addrs() {
		fmt.Printf("Listening on %s/p2p/%s\n", addr, n.ID())
	}

	consume(ctx, n, log)
	fmt.Println("Shutting down")
	return 0
}

func applyRunOverrides(cfg *config.Local) {
	if localNodeID != "" {
		cfg.LocalNodeID = localNodeID
	}
	if len(bootstrapPeers) > 0 {
		cfg.BootstrapPeers = append(cfg.BootstrapPeers, bootstrapPeers...)
	}
	if len(listenAddrs) > 0 {
		cfg.P2PListenAddresses = listenAddrs
	}
	if metricsListen != "" {
		cfg.MetricsListenAddress = metricsListen
	}
}

// consume logs what the network hands to the node until ctx is done. This
// binary has no block or transaction processing attached.
func consume(ctx context.Context, n *node.Node, log logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-n.Commands():
			log.Infof("command %s", cmd.Kind())
		case msg := <-n.Messages():
			log.Debugf("message %s from %s", msg.Tag(), msg.Sender())
		}
	}
}

func statusHandler(n *node.Node, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(n.Status()); err != nil {
			log.Warnf("status response: %v", err)
		}
	}
}
