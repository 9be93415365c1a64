package client

import (
	"context"
	"sync"

	"collabroom/internal/logx"
	"go.uber.org/zap"
)

type MeshState int

const (
	MeshUninitialized MeshState = iota
	MeshAcquiringMedia
	MeshJoined
	MeshLeft
)

// PeerConnection is one entry of the full mesh, keyed by the remote peer
// identifier. Exactly one per peer; duplicates are discarded.
type PeerConnection struct {
	PeerID string
	Link   *PeerLink
}

// Mesh keeps a direct media connection to every other room participant.
// Discovery runs over the relay (user-connected / user-disconnected); the
// media itself never touches the relay.
//
// Establishment is symmetric: peers already present call the newcomer
// (inbound path, answered with local media), and the newcomer's relay
// notification makes existing members call out (outbound path). Both
// converge to one PeerConnection entry per remote peer.
type Mesh struct {
	mu        sync.Mutex
	state     MeshState
	mode      MediaMode
	local     MediaStream
	peers     map[string]*PeerConnection
	calling   map[string]bool
	devices   MediaDevices
	connector Connector
}

func NewMesh(devices MediaDevices, connector Connector) *Mesh {
	return &Mesh{
		state:     MeshUninitialized,
		peers:     make(map[string]*PeerConnection),
		calling:   make(map[string]bool),
		devices:   devices,
		connector: connector,
	}
}

// Join acquires local media (degrading through the fallback chain), arms
// the answer path and only then announces presence via announce. With no
// device at all the room still works; only the call layer stays dark.
func (m *Mesh) Join(announce func() error) error {
	m.mu.Lock()
	m.state = MeshAcquiringMedia
	m.mu.Unlock()

	stream, mode := acquireMedia(m.devices)

	m.mu.Lock()
	m.local = stream
	m.mode = mode
	m.mu.Unlock()

	if mode == MediaNone {
		logx.From(nil).Warn("mesh_no_device")
	}

	if m.connector != nil {
		m.connector.OnIncomingCall(m.handleIncoming)
	}

	// Joined before the announce goes out: an existing member's offer can
	// race the announce round trip, and media is already resolved, so
	// there is nothing left to wait for before answering.
	m.mu.Lock()
	m.state = MeshJoined
	m.mu.Unlock()

	if err := announce(); err != nil {
		m.mu.Lock()
		m.state = MeshUninitialized
		m.mu.Unlock()
		return err
	}
	return nil
}

// HandleUserConnected places the outbound call to a peer that joined after
// us. Idempotent per peer id. The call runs detached so a stalled
// negotiation never blocks the event loop.
func (m *Mesh) HandleUserConnected(peerID string) {
	m.mu.Lock()
	if m.state != MeshJoined || m.mode == MediaNone || peerID == "" {
		m.mu.Unlock()
		return
	}
	if m.peers[peerID] != nil || m.calling[peerID] {
		m.mu.Unlock()
		return
	}
	m.calling[peerID] = true
	local := m.local
	m.mu.Unlock()

	go func() {
		link, err := m.connector.Call(context.Background(), peerID, local)

		m.mu.Lock()
		delete(m.calling, peerID)
		m.mu.Unlock()

		if err != nil {
			// A failed direct connection is simply absent; no retry.
			logx.From(nil).Warn("mesh_call_failed",
				zap.String("peer", peerID), zap.Error(err))
			return
		}
		m.addLink(peerID, link)
	}()
}

// HandleUserDisconnected removes the peer's entry. Without this signal the
// entry persists until the connector's own transport gives up.
func (m *Mesh) HandleUserDisconnected(peerID string) {
	m.mu.Lock()
	pc, ok := m.peers[peerID]
	if ok {
		delete(m.peers, peerID)
	}
	m.mu.Unlock()

	if ok && pc.Link != nil {
		_ = pc.Link.Close()
	}
}

func (m *Mesh) handleIncoming(call IncomingCall) {
	m.mu.Lock()
	answerable := m.state == MeshJoined && m.mode != MediaNone
	local := m.local
	m.mu.Unlock()

	if !answerable {
		return
	}

	link, err := call.Answer(local)
	if err != nil {
		logx.From(nil).Warn("mesh_answer_failed",
			zap.String("peer", call.From()), zap.Error(err))
		return
	}
	m.addLink(call.From(), link)
}

// addLink records the established connection, discarding duplicates for an
// already-known peer id. A link completing after Leave is closed rather
// than recorded; nothing would ever tear it down otherwise.
func (m *Mesh) addLink(peerID string, link *PeerLink) {
	m.mu.Lock()
	if m.state != MeshJoined {
		m.mu.Unlock()
		_ = link.Close()
		return
	}
	if _, known := m.peers[peerID]; known {
		m.mu.Unlock()
		_ = link.Close()
		return
	}
	m.peers[peerID] = &PeerConnection{PeerID: peerID, Link: link}
	m.mu.Unlock()
}

// SetAudioEnabled toggles the owned audio tracks in place.
func (m *Mesh) SetAudioEnabled(enabled bool) { m.setTrackEnabled(TrackAudio, enabled) }

// SetVideoEnabled toggles the owned video tracks in place.
func (m *Mesh) SetVideoEnabled(enabled bool) { m.setTrackEnabled(TrackVideo, enabled) }

func (m *Mesh) setTrackEnabled(kind string, enabled bool) {
	m.mu.Lock()
	local := m.local
	m.mu.Unlock()

	if local == nil {
		return
	}
	for _, t := range local.Tracks() {
		if t.Kind() == kind {
			t.SetEnabled(enabled)
		}
	}
}

// Leave closes every link; best-effort, no acknowledgment expected.
func (m *Mesh) Leave() {
	m.mu.Lock()
	peers := m.peers
	m.peers = make(map[string]*PeerConnection)
	m.state = MeshLeft
	m.mu.Unlock()

	for _, pc := range peers {
		if pc.Link != nil {
			_ = pc.Link.Close()
		}
	}
	if m.connector != nil {
		_ = m.connector.Close()
	}
}

func (m *Mesh) State() MeshState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mesh) Mode() MediaMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Peer returns the mesh entry for peerID, if established.
func (m *Mesh) Peer(peerID string) (*PeerConnection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.peers[peerID]
	return pc, ok
}

func (m *Mesh) PeerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}
