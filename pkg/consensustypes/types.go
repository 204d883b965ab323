// Package consensustypes holds the data model shared by every component of
// the hierarchical consensus system: peer identity, the peer directory
// snapshot shape, and the proposal/round vocabulary the protocol is built
// from.
package consensustypes

import "net"

// PeerId is a non-negative integer assigned by the Directory in strictly
// increasing order of registration. The peer with the lowest live PeerId is
// the current leader.
type PeerId uint64

// Round names the leader of that round: round r is led by the peer with id r.
type Round uint64

// Peer is a directory record: an id and the address the peer listens on.
// The Directory owns the authoritative sequence of these; every other
// component holds read-only snapshots fetched over the wire.
type Peer struct {
	ID   PeerId
	Addr *net.TCPAddr
}

// AddrString renders Addr in net.TCPAddr's textual host:port form, or ""
// when Addr is nil. The directory file and the Directory's wire records
// carry the address string exactly as the peer registered it, not this
// rendering.
func (p Peer) AddrString() string {
	if p.Addr == nil {
		return ""
	}
	return p.Addr.String()
}

// Proposal pairs a value with the id of the peer that first introduced it
// into the protocol. Proposer is preserved across adoptions: a peer that
// adopts another's proposal keeps the original proposer tag, which is the
// ordering key the algorithm turns on.
type Proposal[V any] struct {
	Value    V
	Proposer PeerId
}

// Dominates reports whether this proposal's proposer should replace other's
// as the receiver's adopted proposal: strictly lower proposer id wins.
func (p Proposal[V]) Dominates(other Proposal[V]) bool {
	return p.Proposer < other.Proposer
}
