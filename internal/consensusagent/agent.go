// Package consensusagent implements the per-peer hierarchical consensus
// state machine: a statically ordered sequence of peers take turns as
// leader, and the lowest-ranked non-crashed proposer's value wins.
package consensusagent

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/distlab/hiconsensus/internal/logging"
	"github.com/distlab/hiconsensus/internal/metrics"
	"github.com/distlab/hiconsensus/internal/wire"
	"github.com/distlab/hiconsensus/pkg/consensustypes"
)

// dialTimeout bounds the blocking connect/write calls a broadcast worker or
// a heartbeat reply performs against a single peer.
const dialTimeout = 5 * time.Second

// Directory is the subset of registry.Client the agent needs to fetch
// broadcast targets. Declared at the consumer so tests can supply a fake
// snapshot without a real Directory server.
type Directory interface {
	GetPeers() ([]consensustypes.Peer, error)
}

// Registrar additionally assigns the agent its PeerId.
type Registrar interface {
	Directory
	Register(addr string) (consensustypes.PeerId, error)
}

// ProposalFactory produces this agent's proposal value at startup and at
// every reset. ok == false means the agent has nothing to propose this run
// (spec.md's `proposal_factory() -> Option<T>`).
type ProposalFactory[V any] func() (value V, ok bool)

// DecisionCallback is invoked exactly once per run, when the agent decides.
// An error terminates the agent: Run returns it.
type DecisionCallback[V any] func(V) error

// Agent is one peer's hierarchical consensus state machine. All fields are
// owned exclusively by the goroutine running Run — no internal locking,
// matching spec.md §5's single-threaded cooperative model.
type Agent[V any] struct {
	bindAddr  string
	id        consensustypes.PeerId
	directory Directory

	crashedPeers map[consensustypes.PeerId]struct{}
	currentRound consensustypes.Round
	proposal     *consensustypes.Proposal[V]
	hasDecided   bool

	// lastBroadcastRound is pure introspection (exposed to tests through
	// LastBroadcastRound; no metric reports it); it never feeds back into
	// protocol logic.
	lastBroadcastRound *consensustypes.Round

	proposalFactory  ProposalFactory[V]
	decisionCallback DecisionCallback[V]

	startupDelay time.Duration
	runID        string

	logger  *slog.Logger
	audit   *logging.Audit
	metrics *metrics.Agent
}

// Register asks registrar for a PeerId and builds an Agent bound to
// bindAddr. startupDelay is the pause the initial-round-0 leader takes
// before its first decision attempt, giving peers time to register
// (spec.md §9's "startup race" note).
func Register[V any](
	bindAddr string,
	registrar Registrar,
	factory ProposalFactory[V],
	callback DecisionCallback[V],
	startupDelay time.Duration,
	logger *slog.Logger,
	audit *logging.Audit,
	m *metrics.Agent,
) (*Agent[V], error) {
	id, err := registrar.Register(bindAddr)
	if err != nil {
		return nil, fmt.Errorf("consensusagent: register with directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewAgent()
	}

	a := &Agent[V]{
		bindAddr:         bindAddr,
		id:               id,
		directory:        registrar,
		crashedPeers:     make(map[consensustypes.PeerId]struct{}),
		proposalFactory:  factory,
		decisionCallback: callback,
		startupDelay:     startupDelay,
		logger:           logger,
		audit:            audit,
		metrics:          m,
	}
	a.reset()
	return a, nil
}

// WithProposalFactory attaches a proposal factory after registration and
// immediately refreshes the held proposal, mirroring the original
// register-then-with_proposal_factory two-phase builder: a factory often
// needs the agent's own assigned id (e.g. "peer 0 proposes nothing"),
// which registrar.Register only reveals once Register has already
// returned. Must be called before Run.
func (a *Agent[V]) WithProposalFactory(factory ProposalFactory[V]) *Agent[V] {
	a.proposalFactory = factory
	a.refreshProposal()
	return a
}

// ID returns the PeerId assigned at registration.
func (a *Agent[V]) ID() consensustypes.PeerId { return a.id }

// HasDecided reports whether this agent has decided in the current run.
func (a *Agent[V]) HasDecided() bool { return a.hasDecided }

// CurrentRound reports the agent's current round.
func (a *Agent[V]) CurrentRound() consensustypes.Round { return a.currentRound }

// Proposal reports the agent's currently held proposal, or nil if it has
// none this run.
func (a *Agent[V]) Proposal() *consensustypes.Proposal[V] { return a.proposal }

// LastBroadcastRound reports the round this agent last broadcast at, or
// nil if it has never broadcast this run. Pure introspection: see the
// field comment on lastBroadcastRound.
func (a *Agent[V]) LastBroadcastRound() *consensustypes.Round { return a.lastBroadcastRound }

// leaderID is the round cast into peer-id space: round r is led by the
// peer whose id is r.
func (a *Agent[V]) leaderID() consensustypes.PeerId {
	return consensustypes.PeerId(a.currentRound)
}

// Run binds the agent's listener, performs the initial-leader startup
// attempt if this agent is peer 0, then processes one message at a time
// until ctx is cancelled or a decision callback fails.
func (a *Agent[V]) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.bindAddr)
	if err != nil {
		return fmt.Errorf("consensusagent: bind listener: %w", err)
	}

	if a.id == a.leaderID() {
		time.Sleep(a.startupDelay)
		if err := a.tryDecide(); err != nil {
			listener.Close()
			return err
		}
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
			return fmt.Errorf("consensusagent: accept connection: %w", err)
		}

		msg, err := wire.Receive[wire.Message](conn)
		conn.Close()
		if err != nil {
			a.logger.Debug("consensusagent: dropping connection", "error", fmt.Errorf("%w: %v", ErrMalformedMessage, err))
			continue
		}

		if err := a.handle(msg); err != nil {
			return err
		}
	}
}

func (a *Agent[V]) reset() {
	a.crashedPeers = make(map[consensustypes.PeerId]struct{})
	a.currentRound = 0
	a.hasDecided = false
	a.lastBroadcastRound = nil
	a.runID = uuid.New().String()
	a.refreshProposal()

	a.metrics.CurrentRound.Set(0)
	a.metrics.Decided.Set(0)
	a.metrics.CrashedPeers.Set(0)
	a.audit.RunStarted(a.runID, uint64(a.id))
}

func (a *Agent[V]) refreshProposal() {
	if a.proposalFactory == nil {
		a.proposal = nil
		return
	}
	if value, ok := a.proposalFactory(); ok {
		a.proposal = &consensustypes.Proposal[V]{Value: value, Proposer: a.id}
	} else {
		a.proposal = nil
	}
}

// handle dispatches one received Message. Only a decision-callback failure
// is returned as a fatal error; every other fault is logged and absorbed.
func (a *Agent[V]) handle(msg wire.Message) error {
	switch msg.Kind {
	case wire.MessageRequestHeartbeat:
		a.metrics.EventsTotal.WithLabelValues("request_heartbeat").Inc()
		a.replyHeartbeat(msg.Requester)
		return nil

	case wire.MessageInformCrash:
		a.metrics.EventsTotal.WithLabelValues("inform_crash").Inc()
		return a.handleInformCrash(msg.CrashedPeer)

	case wire.MessageConsensusEvent:
		if msg.Event == nil {
			return nil
		}
		a.metrics.EventsTotal.WithLabelValues(consensusEventMetricLabel(msg.Event.Kind)).Inc()
		return a.handleConsensusEvent(*msg.Event)

	default:
		return nil
	}
}

func (a *Agent[V]) replyHeartbeat(requester string) {
	conn, err := net.DialTimeout("tcp", requester, dialTimeout)
	if err != nil {
		a.logger.Debug("consensusagent: failed to connect for heartbeat reply", "requester", requester, "error", err)
		return
	}
	defer conn.Close()
	if err := wire.Send(conn, wire.Heartbeat{PeerID: a.id}); err != nil {
		a.logger.Debug("consensusagent: failed to send heartbeat reply", "requester", requester, "error", err)
	}
}

func (a *Agent[V]) handleInformCrash(peer consensustypes.PeerId) error {
	a.crashedPeers[peer] = struct{}{}
	a.metrics.CrashedPeers.Set(float64(len(a.crashedPeers)))

	if peer == a.leaderID() && !a.hasDecided {
		return a.advanceRound()
	}
	return nil
}

func (a *Agent[V]) handleConsensusEvent(event wire.ConsensusEvent) error {
	switch event.Kind {
	case wire.EventStart:
		a.reset()
		if a.id == a.leaderID() {
			return a.tryDecide()
		}
		return nil

	case wire.EventDecided:
		if a.hasDecided {
			return nil
		}
		incoming, err := wire.DecodeProposal[V](event)
		if err != nil {
			a.logger.Debug("consensusagent: dropping Decided event", "error", fmt.Errorf("%w: %v", ErrMalformedProposal, err))
			return nil
		}
		if a.proposal == nil || incoming.Dominates(*a.proposal) {
			a.proposal = &incoming
		}
		return a.advanceRound()

	case wire.EventUndecided:
		return a.advanceRound()

	default:
		return nil
	}
}

// tryDecide is invoked whenever current_round >= id while the agent hasn't
// yet decided: it either decides on its held proposal or announces it has
// none. A round strictly past id means the agent is catching up rather
// than acting as that round's nominal leader, so it still decides when it
// later adopts a proposal, but never re-broadcasts at that point.
func (a *Agent[V]) tryDecide() error {
	if a.hasDecided {
		return nil
	}

	if a.proposal != nil {
		a.hasDecided = true
		value := a.proposal.Value
		a.metrics.Decided.Set(1)
		a.audit.Decided(a.runID, uint64(a.id), uint64(a.proposal.Proposer))

		if err := a.decisionCallback(value); err != nil {
			return fmt.Errorf("consensusagent: decision callback: %w", err)
		}

		if a.leaderID() <= a.id {
			proposal := *a.proposal
			a.broadcastDecided(proposal)
			round := a.currentRound
			a.lastBroadcastRound = &round
		}
		return nil
	}

	a.broadcastUndecided()
	round := a.currentRound
	a.lastBroadcastRound = &round
	return nil
}

// advanceRound increments current_round, skips any round whose nominal
// leader is already known crashed, and re-attempts a decision once the
// round has reached this agent's id.
func (a *Agent[V]) advanceRound() error {
	a.currentRound++
	a.metrics.CurrentRound.Set(float64(a.currentRound))
	a.audit.RoundAdvanced(a.runID, uint64(a.id), uint64(a.currentRound), "advance")

	if _, crashed := a.crashedPeers[a.leaderID()]; crashed {
		return a.advanceRound()
	}

	if a.leaderID() >= a.id && !a.hasDecided {
		return a.tryDecide()
	}
	return nil
}

func consensusEventMetricLabel(kind wire.ConsensusEventKind) string {
	switch kind {
	case wire.EventStart:
		return "start"
	case wire.EventDecided:
		return "decided"
	case wire.EventUndecided:
		return "undecided"
	default:
		return "unknown"
	}
}

func (a *Agent[V]) broadcastDecided(proposal consensustypes.Proposal[V]) {
	event, err := wire.EncodeProposal(proposal)
	if err != nil {
		a.logger.Warn("consensusagent: failed to encode Decided proposal", "error", err)
		return
	}
	a.broadcast(wire.NewConsensusEventMessage(event))
}

func (a *Agent[V]) broadcastUndecided() {
	a.broadcast(wire.NewConsensusEventMessage(wire.NewUndecidedEvent()))
}

// broadcast fetches the current peer snapshot synchronously, then hands
// the snapshot and message to a detached goroutine that performs the
// per-peer sends — so a slow peer's send latency never stalls message
// processing. The agent holds no reference to shared mutable state from
// that goroutine.
func (a *Agent[V]) broadcast(msg wire.Message) {
	peers, err := a.directory.GetPeers()
	if err != nil {
		a.logger.Warn("consensusagent: failed to fetch peer snapshot for broadcast", "error", err)
		return
	}

	go func(peers []consensustypes.Peer, msg wire.Message) {
		for _, peer := range peers {
			conn, err := net.DialTimeout("tcp", peer.AddrString(), dialTimeout)
			if err != nil {
				a.logger.Debug("consensusagent: broadcast send failed", "peer_id", peer.ID, "error", err)
				continue
			}
			if err := wire.Send(conn, msg); err != nil {
				a.logger.Debug("consensusagent: broadcast send failed", "peer_id", peer.ID, "error", err)
			}
			conn.Close()
		}
	}(peers, msg)
}
