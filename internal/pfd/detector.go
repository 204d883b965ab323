// Package pfd implements a perfect failure detector: strong completeness
// (every crashed peer is eventually suspected by every correct peer) and
// strong accuracy (no correct peer is ever suspected), under the
// assumption that timeout exceeds worst-case round-trip time.
package pfd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/distlab/hiconsensus/internal/logging"
	"github.com/distlab/hiconsensus/internal/metrics"
	"github.com/distlab/hiconsensus/internal/wire"
	"github.com/distlab/hiconsensus/pkg/consensustypes"
)

// Directory is the subset of registry.Client the detector needs. Declared
// here, at the consumer, so tests can supply a fake snapshot source
// without standing up a real Directory server.
type Directory interface {
	GetPeers() ([]consensustypes.Peer, error)
}

// Detector is the perfect failure detector: a heartbeat listener and a
// probe loop sharing a confirmed-alive set, run under a single Go process.
type Detector struct {
	bindAddr  string
	directory Directory
	timeout   time.Duration
	alive     *liveness
	logger    *slog.Logger
	audit     *logging.Audit
	metrics   *metrics.FailureDetector
}

// New creates a Detector that binds bindAddr for inbound heartbeats,
// fetches membership snapshots from directory, and runs one probe cycle
// per timeout.
func New(bindAddr string, directory Directory, timeout time.Duration, logger *slog.Logger, audit *logging.Audit, m *metrics.FailureDetector) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewFailureDetector()
	}
	return &Detector{
		bindAddr:  bindAddr,
		directory: directory,
		timeout:   timeout,
		alive:     newLiveness(),
		logger:    logger,
		audit:     audit,
		metrics:   m,
	}
}

// Run starts the heartbeat listener and the probe loop and blocks until
// ctx is cancelled or either activity fails fatally (e.g. the listener
// fails to bind). A transport failure to a single peer is never fatal.
func (d *Detector) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return d.listenHeartbeats(ctx) })
	group.Go(func() error { return d.probeLoop(ctx) })
	return group.Wait()
}

func (d *Detector) listenHeartbeats(ctx context.Context) error {
	listener, err := net.Listen("tcp", d.bindAddr)
	if err != nil {
		return fmt.Errorf("pfd: bind heartbeat listener: %w", err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("pfd: accept heartbeat connection: %w", err)
		}
		go d.handleHeartbeatConn(conn)
	}
}

func (d *Detector) handleHeartbeatConn(conn net.Conn) {
	defer conn.Close()

	heartbeat, err := wire.Receive[wire.Heartbeat](conn)
	if err != nil {
		d.logger.Debug("pfd: failed to read heartbeat", "error", fmt.Errorf("%w: %v", ErrMalformedHeartbeat, err), "remote", conn.RemoteAddr())
		return
	}
	d.alive.insert(heartbeat.PeerID)
}

func (d *Detector) probeLoop(ctx context.Context) error {
	known := make(map[consensustypes.PeerId]bool)
	assumedDead := make(map[consensustypes.PeerId]bool)

	for {
		peers, err := d.directory.GetPeers()
		if err != nil {
			d.logger.Warn("pfd: failed to fetch peer snapshot", "error", err)
		} else {
			d.probeOnce(peers, known, assumedDead)
			d.metrics.KnownPeers.Set(float64(len(known)))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.timeout):
		}
	}
}

func (d *Detector) probeOnce(peers []consensustypes.Peer, known, assumedDead map[consensustypes.PeerId]bool) {
	for _, peer := range peers {
		if assumedDead[peer.ID] {
			continue
		}

		wasAlive := d.alive.removeReturningPrior(peer.ID)
		probeOK := wasAlive || !known[peer.ID]

		if probeOK {
			known[peer.ID] = true
			if err := d.sendRequestHeartbeat(peer); err == nil {
				d.metrics.ProbesTotal.WithLabelValues("success").Inc()
				continue
			}
		}

		d.metrics.ProbesTotal.WithLabelValues("failure").Inc()
		assumedDead[peer.ID] = true
		d.metrics.CrashesDeclared.Inc()
		d.audit.CrashDeclared(uint64(peer.ID))
		d.logger.Warn("pfd: declaring peer crashed", "peer_id", peer.ID)
		d.broadcastCrash(peers, peer.ID)
	}
}

func (d *Detector) sendRequestHeartbeat(peer consensustypes.Peer) error {
	conn, err := net.DialTimeout("tcp", peer.AddrString(), d.timeout)
	if err != nil {
		return fmt.Errorf("pfd: connect to peer %d: %w", peer.ID, err)
	}
	defer conn.Close()

	if err := wire.Send(conn, wire.NewRequestHeartbeat(d.bindAddr)); err != nil {
		return fmt.Errorf("pfd: send heartbeat request to peer %d: %w", peer.ID, err)
	}
	return nil
}

// broadcastCrash informs every peer in the current snapshot — including
// the crashed one itself — that crashedID is believed dead. Send failures
// are logged and swallowed: the failure detector is itself the source of
// truth for liveness, so a peer that can't be reached here is already on
// its way to being declared crashed by this same loop.
func (d *Detector) broadcastCrash(peers []consensustypes.Peer, crashedID consensustypes.PeerId) {
	msg := wire.NewInformCrash(crashedID)
	for _, peer := range peers {
		conn, err := net.DialTimeout("tcp", peer.AddrString(), d.timeout)
		if err != nil {
			d.logger.Debug("pfd: failed to inform peer of crash", "peer_id", peer.ID, "crashed", crashedID, "error", err)
			continue
		}
		if err := wire.Send(conn, msg); err != nil {
			d.logger.Debug("pfd: failed to send crash notice", "peer_id", peer.ID, "crashed", crashedID, "error", err)
		}
		conn.Close()
	}
}
