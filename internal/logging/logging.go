// Package logging configures the process-wide slog logger and provides a
// nil-safe audit logger for protocol-relevant events (crash declarations,
// round advances, decisions).
package logging

import (
	"log/slog"
	"os"
)

// EnvLogLevel is the single environment variable spec.md §6 allows for
// controlling log verbosity.
const EnvLogLevel = "CONSENSUS_LOG_LEVEL"

// Init installs the default slog logger, reading its level from
// EnvLogLevel ("debug", "info", "warn", "error"; defaults to "info" for
// anything else, including an unset variable).
func Init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv(EnvLogLevel)),
	})))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Audit writes structured events for protocol-relevant actions under the
// "audit" group. All methods are nil-safe: calling any method on a nil
// *Audit is a no-op, so callers never need a nil check before logging.
type Audit struct {
	logger *slog.Logger
}

// NewAudit creates an Audit logger writing through handler.
func NewAudit(handler slog.Handler) *Audit {
	return &Audit{logger: slog.New(handler).WithGroup("audit")}
}

// CrashDeclared logs a failure detector's InformCrash broadcast.
func (a *Audit) CrashDeclared(peerID uint64) {
	if a == nil {
		return
	}
	a.logger.Warn("crash_declared", "peer_id", peerID)
}

// RoundAdvanced logs a consensus agent's round transition.
func (a *Audit) RoundAdvanced(runID string, agentID uint64, round uint64, reason string) {
	if a == nil {
		return
	}
	a.logger.Info("round_advanced", "run_id", runID, "agent_id", agentID, "round", round, "reason", reason)
}

// Decided logs a consensus agent's decision.
func (a *Audit) Decided(runID string, agentID uint64, proposer uint64) {
	if a == nil {
		return
	}
	a.logger.Info("decided", "run_id", runID, "agent_id", agentID, "proposer", proposer)
}

// RunStarted logs a consensus agent resetting into a new run.
func (a *Audit) RunStarted(runID string, agentID uint64) {
	if a == nil {
		return
	}
	a.logger.Info("run_started", "run_id", runID, "agent_id", agentID)
}
