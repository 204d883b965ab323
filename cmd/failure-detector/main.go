// Command failure-detector runs a perfect failure detector over the peers
// registered with a Directory, broadcasting InformCrash to every registered
// peer (the crashed one included) for every peer it declares crashed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/distlab/hiconsensus/internal/config"
	"github.com/distlab/hiconsensus/internal/logging"
	"github.com/distlab/hiconsensus/internal/metrics"
	"github.com/distlab/hiconsensus/internal/pfd"
	"github.com/distlab/hiconsensus/internal/registry"
)

func main() {
	logging.Init()

	var (
		configPath    = flag.String("config", "", "optional YAML config file")
		bindAddr      = flag.String("bind", "", "address to listen on for RequestHeartbeat replies, e.g. 0.0.0.0:7100")
		directoryAddr = flag.String("directory", "", "address of the Directory, e.g. 127.0.0.1:7000")
		timeout       = flag.Duration("timeout", 0, "heartbeat round timeout, e.g. 200ms")
		metricsAddr   = flag.String("metrics-addr", "", "address to serve /metrics on (disabled if empty)")
	)
	flag.Parse()

	cfg := &config.FailureDetectorConfig{}
	if *configPath != "" {
		loaded, err := config.LoadFailureDetectorConfig(*configPath)
		if err != nil {
			log.Fatalf("failure-detector: load config: %v", err)
		}
		cfg = loaded
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}
	if *directoryAddr != "" {
		cfg.DirectoryAddr = *directoryAddr
	}
	if *timeout != 0 {
		cfg.Timeout = *timeout
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if cfg.BindAddr == "" || cfg.DirectoryAddr == "" || cfg.Timeout == 0 {
		fmt.Fprintln(os.Stderr, "Usage: failure-detector -bind <host>:<port> -directory <host>:<port> -timeout <duration> [-metrics-addr <host>:<port>] [-config path.yaml]")
		os.Exit(1)
	}

	m := metrics.NewFailureDetector()
	audit := logging.NewAudit(slog.Default().Handler())
	directory := registry.NewClient(cfg.DirectoryAddr)

	detector := pfd.New(cfg.BindAddr, directory, cfg.Timeout, slog.Default(), audit, m)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, m.Handler())
	}

	slog.Info("failure-detector: starting", "bind", cfg.BindAddr, "directory", cfg.DirectoryAddr, "timeout", cfg.Timeout)
	if err := detector.Run(ctx); err != nil {
		log.Fatalf("failure-detector: %v", err)
	}
}

func serveMetrics(addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("failure-detector: metrics server failed", "error", err)
	}
}
