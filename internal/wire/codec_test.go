package wire

import (
	"bytes"
	"testing"

	"github.com/distlab/hiconsensus/pkg/consensustypes"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := [][]byte{
		{},
		{0x01},
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, payload := range tests {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, payload); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(got, payload) && !(len(got) == 0 && len(payload) == 0) {
			t.Errorf("round trip = %v, want %v", got, payload)
		}
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(header)
	if _, err := ReadFrame(&buf); err != ErrFrameTooLarge {
		t.Fatalf("ReadFrame() error = %v, want %v", err, ErrFrameTooLarge)
	}
}

func decidedEvent(t *testing.T, value string, proposer consensustypes.PeerId) ConsensusEvent {
	t.Helper()
	ev, err := EncodeProposal(consensustypes.Proposal[string]{Value: value, Proposer: proposer})
	if err != nil {
		t.Fatalf("EncodeProposal: %v", err)
	}
	return ev
}

func TestMessageRoundTrip(t *testing.T) {
	cases := []Message{
		NewRequestHeartbeat("127.0.0.1:9000"),
		NewInformCrash(consensustypes.PeerId(7)),
		NewConsensusEventMessage(NewStartEvent()),
		NewConsensusEventMessage(NewUndecidedEvent()),
		NewConsensusEventMessage(decidedEvent(t, "Star Wars", 2)),
	}

	for _, msg := range cases {
		encoded, err := Encode(msg)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		decoded, err := Decode[Message](encoded)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if decoded.Kind != msg.Kind {
			t.Errorf("Kind = %v, want %v", decoded.Kind, msg.Kind)
		}
		if decoded.Requester != msg.Requester {
			t.Errorf("Requester = %q, want %q", decoded.Requester, msg.Requester)
		}
		if decoded.CrashedPeer != msg.CrashedPeer {
			t.Errorf("CrashedPeer = %v, want %v", decoded.CrashedPeer, msg.CrashedPeer)
		}
		if (decoded.Event == nil) != (msg.Event == nil) {
			t.Fatalf("Event presence mismatch: got %v, want %v", decoded.Event, msg.Event)
		}
		if msg.Event != nil {
			if decoded.Event.Kind != msg.Event.Kind {
				t.Errorf("Event.Kind = %v, want %v", decoded.Event.Kind, msg.Event.Kind)
			}
			if decoded.Event.Kind == EventDecided {
				decodedProposal, err := DecodeProposal[string](*decoded.Event)
				if err != nil {
					t.Fatalf("DecodeProposal: %v", err)
				}
				wantProposal, err := DecodeProposal[string](*msg.Event)
				if err != nil {
					t.Fatalf("DecodeProposal: %v", err)
				}
				if decodedProposal != wantProposal {
					t.Errorf("Decided = %+v, want %+v", decodedProposal, wantProposal)
				}
			}
		}
	}
}

func TestMessageEncodingIsDeterministic(t *testing.T) {
	msg := NewConsensusEventMessage(decidedEvent(t, "x", 0))
	first, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Encode(msg)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding #%d differs from first encoding", i)
		}
	}
}

func TestProposalRoundTripIsIdentity(t *testing.T) {
	proposals := []consensustypes.Proposal[int]{
		{Value: 10, Proposer: 0},
		{Value: -5, Proposer: 3},
		{Value: 0, Proposer: 99},
	}
	for _, p := range proposals {
		event, err := EncodeProposal(p)
		if err != nil {
			t.Fatalf("EncodeProposal: %v", err)
		}
		got, err := DecodeProposal[int](event)
		if err != nil {
			t.Fatalf("DecodeProposal: %v", err)
		}
		if got != p {
			t.Errorf("round trip = %+v, want %+v", got, p)
		}
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	hb := Heartbeat{PeerID: 3}
	encoded, err := Encode(hb)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode[Heartbeat](encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != hb {
		t.Errorf("decoded = %+v, want %+v", decoded, hb)
	}
}
