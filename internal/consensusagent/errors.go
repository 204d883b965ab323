package consensusagent

import "errors"

var (
	// ErrMalformedMessage is logged (not propagated) when an accepted
	// connection yields an undecodable frame; the accept loop continues.
	ErrMalformedMessage = errors.New("consensusagent: malformed message frame")

	// ErrMalformedProposal is logged when a Decided event's payload
	// cannot be decoded as V.
	ErrMalformedProposal = errors.New("consensusagent: malformed proposal payload")
)
