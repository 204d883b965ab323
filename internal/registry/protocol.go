// Package registry implements the Directory: the external peer-identifier
// and membership-snapshot service every FailureDetector and ConsensusAgent
// registers with at startup. Identifier assignment and the file format are
// treated as a trivially replaceable service, per spec.md's scoping — this
// package is deliberately small.
package registry

import "github.com/distlab/hiconsensus/pkg/consensustypes"

// RequestKind discriminates the two Directory requests.
type RequestKind uint8

const (
	RequestRegister RequestKind = iota
	RequestGetPeers
)

// Request is the one message a Directory connection carries to the server.
type Request struct {
	Kind RequestKind `cbor:"1,keyasint"`
	// Addr is set iff Kind == RequestRegister: the textual TCP address the
	// registering peer listens on.
	Addr string `cbor:"2,keyasint,omitempty"`
}

// ResponseKind discriminates the two Directory responses.
type ResponseKind uint8

const (
	ResponseRegistered ResponseKind = iota
	ResponsePeers
)

// Response is the one message the Directory replies with.
type Response struct {
	Kind ResponseKind `cbor:"1,keyasint"`
	// ID is set iff Kind == ResponseRegistered.
	ID consensustypes.PeerId `cbor:"2,keyasint,omitempty"`
	// Peers is set iff Kind == ResponsePeers.
	Peers []PeerRecord `cbor:"3,keyasint,omitempty"`
}

// PeerRecord is the wire and on-disk shape of a directory entry: an id
// paired with a textual address, rather than consensustypes.Peer's parsed
// *net.TCPAddr, so malformed addresses round-trip losslessly through the
// JSON file instead of failing to parse at load time.
type PeerRecord struct {
	ID   consensustypes.PeerId `json:"id" cbor:"1,keyasint"`
	Addr string                `json:"addr" cbor:"2,keyasint"`
}
