// Command directory runs the hierarchical-consensus Directory: the single
// service that assigns PeerIds in registration order and hands out
// membership snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/distlab/hiconsensus/internal/config"
	"github.com/distlab/hiconsensus/internal/logging"
	"github.com/distlab/hiconsensus/internal/metrics"
	"github.com/distlab/hiconsensus/internal/registry"
)

func main() {
	logging.Init()

	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		bindAddr    = flag.String("bind", "", "address to listen on, e.g. 0.0.0.0:7000")
		peersFile   = flag.String("peers-file", "", "path to the directory's peers file")
		metricsAddr = flag.String("metrics-addr", "", "address to serve /metrics on (disabled if empty)")
	)
	flag.Parse()

	cfg := &config.DirectoryConfig{}
	if *configPath != "" {
		loaded, err := config.LoadDirectoryConfig(*configPath)
		if err != nil {
			log.Fatalf("directory: load config: %v", err)
		}
		cfg = loaded
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}
	if *peersFile != "" {
		cfg.PeersFile = *peersFile
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if cfg.BindAddr == "" || cfg.PeersFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: directory -bind <host>:<port> -peers-file <path> [-metrics-addr <host>:<port>] [-config path.yaml]")
		os.Exit(1)
	}

	m := metrics.NewDirectory()
	server, err := registry.NewServer(cfg.PeersFile, slog.Default(), m)
	if err != nil {
		log.Fatalf("directory: %v", err)
	}

	listener, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		log.Fatalf("directory: listen on %s: %v", cfg.BindAddr, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, m.Handler())
	}

	slog.Info("directory: listening", "addr", cfg.BindAddr, "peers_file", cfg.PeersFile)
	if err := server.Run(ctx, listener); err != nil {
		log.Fatalf("directory: %v", err)
	}
}

func serveMetrics(addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("directory: metrics server failed", "error", err)
	}
}
