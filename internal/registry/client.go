package registry

import (
	"fmt"
	"net"

	"github.com/distlab/hiconsensus/internal/wire"
	"github.com/distlab/hiconsensus/pkg/consensustypes"
)

// Client talks to a Directory server. Per spec.md §4.1, a fresh connection
// is opened for every request.
type Client struct {
	serverAddr string
}

// NewClient returns a Client that dials serverAddr for every request.
func NewClient(serverAddr string) *Client {
	return &Client{serverAddr: serverAddr}
}

// Register asks the Directory to assign a PeerId to addr.
func (c *Client) Register(addr string) (consensustypes.PeerId, error) {
	response, err := c.roundTrip(Request{Kind: RequestRegister, Addr: addr})
	if err != nil {
		return 0, err
	}
	if response.Kind != ResponseRegistered {
		return 0, ErrUnexpectedResponse
	}
	return response.ID, nil
}

// GetPeers fetches the current membership snapshot, in registration order.
func (c *Client) GetPeers() ([]consensustypes.Peer, error) {
	response, err := c.roundTrip(Request{Kind: RequestGetPeers})
	if err != nil {
		return nil, err
	}
	if response.Kind != ResponsePeers {
		return nil, ErrUnexpectedResponse
	}

	peers := make([]consensustypes.Peer, 0, len(response.Peers))
	for _, record := range response.Peers {
		tcpAddr, err := net.ResolveTCPAddr("tcp", record.Addr)
		if err != nil {
			return nil, fmt.Errorf("registry: parse peer %d address %q: %w", record.ID, record.Addr, err)
		}
		peers = append(peers, consensustypes.Peer{ID: record.ID, Addr: tcpAddr})
	}
	return peers, nil
}

func (c *Client) roundTrip(request Request) (Response, error) {
	conn, err := net.Dial("tcp", c.serverAddr)
	if err != nil {
		return Response{}, fmt.Errorf("registry: connect to directory: %w", err)
	}
	defer conn.Close()

	if err := wire.Send(conn, request); err != nil {
		return Response{}, fmt.Errorf("registry: send request: %w", err)
	}
	response, err := wire.Receive[Response](conn)
	if err != nil {
		return Response{}, fmt.Errorf("registry: read response: %w", err)
	}
	return response, nil
}
