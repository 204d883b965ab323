package wire

import "github.com/distlab/hiconsensus/pkg/consensustypes"

// MessageKind discriminates the one-shot messages agents exchange.
type MessageKind uint8

const (
	MessageRequestHeartbeat MessageKind = iota
	MessageInformCrash
	MessageConsensusEvent
)

// Message is the tagged union every agent-to-agent (or detector-to-agent)
// connection carries exactly one instance of. Only the field matching Kind
// is populated.
//
// The application value type V never appears here: a Decided event carries
// its proposal's value as an opaque, already-encoded blob (DecidedValue),
// so Message itself stays a single concrete type shared by the
// FailureDetector — which never needs to know V — and the ConsensusAgent —
// which encodes/decodes that blob with its own codec call. This keeps V's
// genericity confined to the one package that actually cares about it.
type Message struct {
	Kind MessageKind `cbor:"1,keyasint"`

	// Requester is set iff Kind == MessageRequestHeartbeat: the textual
	// TCP address the heartbeat reply should be sent to.
	Requester string `cbor:"2,keyasint,omitempty"`

	// CrashedPeer is set iff Kind == MessageInformCrash.
	CrashedPeer consensustypes.PeerId `cbor:"3,keyasint,omitempty"`

	// Event is set iff Kind == MessageConsensusEvent.
	Event *ConsensusEvent `cbor:"4,keyasint,omitempty"`
}

// NewRequestHeartbeat builds a RequestHeartbeat message asking its
// recipient to send a Heartbeat back to requesterAddr.
func NewRequestHeartbeat(requesterAddr string) Message {
	return Message{Kind: MessageRequestHeartbeat, Requester: requesterAddr}
}

// NewInformCrash builds an InformCrash message.
func NewInformCrash(peer consensustypes.PeerId) Message {
	return Message{Kind: MessageInformCrash, CrashedPeer: peer}
}

// NewConsensusEventMessage wraps a ConsensusEvent as a Message.
func NewConsensusEventMessage(event ConsensusEvent) Message {
	return Message{Kind: MessageConsensusEvent, Event: &event}
}

// ConsensusEventKind discriminates the three consensus events.
type ConsensusEventKind uint8

const (
	EventStart ConsensusEventKind = iota
	EventDecided
	EventUndecided
)

// ConsensusEvent is the Start | Decided(Proposal) | Undecided tagged union.
// DecidedValue holds the proposal's value pre-encoded by the sender with
// the same deterministic codec (see Encode/Decode); the receiver decodes
// it into its own V once it knows which application value type is in play.
type ConsensusEvent struct {
	Kind            ConsensusEventKind    `cbor:"1,keyasint"`
	DecidedValue    []byte                `cbor:"2,keyasint,omitempty"`
	DecidedProposer consensustypes.PeerId `cbor:"3,keyasint,omitempty"`
}

// NewStartEvent builds a Start event, resetting a receiving agent's state.
func NewStartEvent() ConsensusEvent {
	return ConsensusEvent{Kind: EventStart}
}

// NewUndecidedEvent builds an Undecided event.
func NewUndecidedEvent() ConsensusEvent {
	return ConsensusEvent{Kind: EventUndecided}
}

// EncodeProposal builds a Decided ConsensusEvent carrying proposal, encoding
// its value with the shared deterministic codec.
func EncodeProposal[V any](proposal consensustypes.Proposal[V]) (ConsensusEvent, error) {
	value, err := Encode(proposal.Value)
	if err != nil {
		return ConsensusEvent{}, err
	}
	return ConsensusEvent{
		Kind:            EventDecided,
		DecidedValue:    value,
		DecidedProposer: proposal.Proposer,
	}, nil
}

// DecodeProposal decodes a Decided ConsensusEvent's value as V. The caller
// must check Kind == EventDecided first.
func DecodeProposal[V any](event ConsensusEvent) (consensustypes.Proposal[V], error) {
	value, err := Decode[V](event.DecidedValue)
	if err != nil {
		return consensustypes.Proposal[V]{}, err
	}
	return consensustypes.Proposal[V]{Value: value, Proposer: event.DecidedProposer}, nil
}

// Heartbeat is the single-field message a peer sends in reply to a
// RequestHeartbeat. It is its own top-level wire type (not a Message
// variant) because it flows agent -> failure detector, a different edge
// of the message graph than Message itself.
type Heartbeat struct {
	PeerID consensustypes.PeerId `cbor:"1,keyasint"`
}
