package client

import "context"

// RemoteTrack is one media track received from a peer.
type RemoteTrack interface {
	Kind() string
	ID() string
}

// RemoteMedia is the single remote stream an established link yields.
// Tracks surface asynchronously as negotiation completes.
type RemoteMedia interface {
	PeerID() string
	Tracks() []RemoteTrack
}

// PeerLink is one established direct connection to a remote peer.
type PeerLink struct {
	PeerID string
	Remote RemoteMedia

	closeFn func() error
}

func (l *PeerLink) Close() error {
	if l.closeFn == nil {
		return nil
	}
	return l.closeFn()
}

// IncomingCall is an inbound connection attempt from a peer already in the
// room. Answering with the local stream completes the link.
type IncomingCall interface {
	From() string
	Answer(local MediaStream) (*PeerLink, error)
}

// Connector establishes direct peer connections, using the relay only for
// offer/answer/ICE signaling. Implementations must tolerate the two
// symmetric establishment paths converging on the same steady state.
type Connector interface {
	// Call dials peerID with the local stream and blocks until the link
	// is established. No timeout is imposed here; an unreachable peer
	// leaves the call pending until ctx is done.
	Call(ctx context.Context, peerID string, local MediaStream) (*PeerLink, error)

	// OnIncomingCall registers the answer path. Must be set before the
	// client announces itself to the room.
	OnIncomingCall(fn func(call IncomingCall))

	Close() error
}
