package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/distlab/hiconsensus/internal/metrics"
	"github.com/distlab/hiconsensus/internal/wire"
)

// Server is the Directory: a single service loop serializing Register and
// GetPeers requests, backed by a JSON peers file. One goroutine is
// sufficient — registrations and snapshots are cheap, and spec.md is
// explicit that a single serializing service thread meets the concurrency
// requirement.
type Server struct {
	store   *fileStore
	logger  *slog.Logger
	metrics *metrics.Directory
}

// NewServer creates a Directory server persisting to peersFile, creating
// it empty if it does not already exist. A nil m disables metrics.
func NewServer(peersFile string, logger *slog.Logger, m *metrics.Directory) (*Server, error) {
	store, err := newFileStore(peersFile)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, logger: logger, metrics: m}, nil
}

// Run accepts connections on listener until ctx is cancelled or Accept
// fails. Each connection carries exactly one request and receives at most
// one response: a request that cannot be read or served is logged and its
// connection closed without a response. Such failures do not stop the
// server from serving subsequent connections, per spec.md §7.
func (s *Server) Run(ctx context.Context, listener net.Listener) error {
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
			return fmt.Errorf("registry: accept: %w", err)
		}
		s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	request, err := wire.Receive[Request](conn)
	if err != nil {
		s.logger.Warn("registry: failed to read request", "error", err, "remote", conn.RemoteAddr())
		return
	}

	response, err := s.dispatch(request)
	if err != nil {
		s.logger.Error("registry: failed to serve request", "error", err, "kind", request.Kind)
		return
	}

	if err := wire.Send(conn, response); err != nil {
		s.logger.Warn("registry: failed to write response", "error", err, "remote", conn.RemoteAddr())
	}
}

func (s *Server) dispatch(request Request) (Response, error) {
	switch request.Kind {
	case RequestRegister:
		if request.Addr == "" {
			return Response{}, ErrMalformedRequest
		}
		record, err := s.store.append(request.Addr)
		if err != nil {
			return Response{}, err
		}
		s.logger.Info("registry: peer registered", "peer_id", record.ID, "addr", record.Addr)
		if s.metrics != nil {
			s.metrics.RegistrationsTotal.Inc()
		}
		if peers, err := s.store.read(); err == nil && s.metrics != nil {
			s.metrics.KnownPeers.Set(float64(len(peers)))
		}
		return Response{Kind: ResponseRegistered, ID: record.ID}, nil

	case RequestGetPeers:
		peers, err := s.store.read()
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: ResponsePeers, Peers: peers}, nil

	default:
		return Response{}, ErrMalformedRequest
	}
}
