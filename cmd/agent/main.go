// Command agent runs a single ConsensusAgent[string] peer: it registers
// with a Directory, proposes a movie title (every peer but the one that
// becomes round 0's leader), and prints the decided value once consensus
// is reached.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/distlab/hiconsensus/internal/config"
	"github.com/distlab/hiconsensus/internal/consensusagent"
	"github.com/distlab/hiconsensus/internal/logging"
	"github.com/distlab/hiconsensus/internal/metrics"
	"github.com/distlab/hiconsensus/internal/registry"
)

var movieChoices = []string{
	"2001: A Space Odyssey",
	"Bacurau",
	"Battleship Potemkin",
	"The Irishman",
	"Black Panther",
	"Star Wars",
	"Toy Story",
	"Pretty Woman",
}

func main() {
	logging.Init()

	var (
		configPath    = flag.String("config", "", "optional YAML config file")
		label         = flag.String("label", "", "human-readable label for this agent, used in logs only")
		bindAddr      = flag.String("bind", "", "address to listen on, e.g. 0.0.0.0:7200")
		directoryAddr = flag.String("directory", "", "address of the Directory, e.g. 127.0.0.1:7000")
		metricsAddr   = flag.String("metrics-addr", "", "address to serve /metrics on (disabled if empty)")
		startupDelay  = flag.Duration("startup-delay", 500*time.Millisecond, "round 0 leader's grace period before deciding on its own proposal")
	)
	flag.Parse()

	cfg := &config.AgentConfig{}
	if *configPath != "" {
		loaded, err := config.LoadAgentConfig(*configPath)
		if err != nil {
			log.Fatalf("agent: load config: %v", err)
		}
		cfg = loaded
	}
	if *label != "" {
		cfg.Label = *label
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}
	if *directoryAddr != "" {
		cfg.DirectoryAddr = *directoryAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if cfg.BindAddr == "" || cfg.DirectoryAddr == "" {
		fmt.Fprintln(os.Stderr, "Usage: agent -label <name> -bind <host>:<port> -directory <host>:<port> [-metrics-addr <host>:<port>] [-config path.yaml]")
		os.Exit(1)
	}

	m := metrics.NewAgent()
	audit := logging.NewAudit(slog.Default().Handler())
	directory := registry.NewClient(cfg.DirectoryAddr)

	logger := slog.Default().With("label", cfg.Label)

	agent, err := consensusagent.Register[string](
		cfg.BindAddr,
		directory,
		nil, // attached below, once WithProposalFactory can see the assigned id
		func(value string) error {
			fmt.Printf("agent %s decided: %s\n", cfg.Label, value)
			return nil
		},
		*startupDelay,
		logger,
		audit,
		m,
	)
	if err != nil {
		log.Fatalf("agent: register with directory: %v", err)
	}

	rng := rand.New(rand.NewSource(int64(agent.ID())))
	agent.WithProposalFactory(func() (string, bool) {
		if agent.ID() == 0 {
			return "", false
		}
		return movieChoices[rng.Intn(len(movieChoices))], true
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, m.Handler())
	}

	logger.Info("agent: registered", "id", agent.ID(), "bind", cfg.BindAddr)
	if err := agent.Run(ctx); err != nil {
		log.Fatalf("agent: %v", err)
	}
}

func serveMetrics(addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("agent: metrics server failed", "error", err)
	}
}
