package client

import (
	"context"
	"fmt"
	"sync"

	"collabroom/config"
	"collabroom/internal/logx"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// webrtcTrack is implemented by local tracks that can be bound to a pion
// peer connection.
type webrtcTrack interface {
	WebRTCTrack() webrtc.TrackLocal
}

// PionConnector implements Connector over pion/webrtc, exchanging
// offer/answer/ICE through the relay's targeted signaling events.
type PionConnector struct {
	peerID string
	emit   Emitter

	mu     sync.Mutex
	links  map[string]*pionLink
	onCall func(IncomingCall)

	// Candidates can outrun the offer that creates their link, because
	// inbound offers are answered asynchronously. They wait here until
	// newLink drains them.
	earlyICE map[string][]string
}

type pionLink struct {
	peerID   string
	pc       *webrtc.PeerConnection
	remote   *pionRemote
	answered chan struct{}

	mu         sync.Mutex
	pendingICE []string
	haveRemote bool
}

func NewPionConnector(peerID string, emit Emitter) *PionConnector {
	return &PionConnector{
		peerID:   peerID,
		emit:     emit,
		links:    make(map[string]*pionLink),
		earlyICE: make(map[string][]string),
	}
}

func (c *PionConnector) OnIncomingCall(fn func(IncomingCall)) {
	c.mu.Lock()
	c.onCall = fn
	c.mu.Unlock()
}

// Call dials peerID: offer out through the relay, block until the answer
// is applied. ICE trickles in both directions while we wait.
func (c *PionConnector) Call(ctx context.Context, peerID string, local MediaStream) (*PeerLink, error) {
	link, err := c.newLink(peerID, local)
	if err != nil {
		return nil, err
	}

	offer, err := link.pc.CreateOffer(nil)
	if err != nil {
		c.dropLink(peerID)
		return nil, fmt.Errorf("connector: create offer for %s: %w", peerID, err)
	}
	if err := link.pc.SetLocalDescription(offer); err != nil {
		c.dropLink(peerID)
		return nil, fmt.Errorf("connector: set local description for %s: %w", peerID, err)
	}

	if err := c.emit.Send(&config.Envelope{
		Event:  config.EvRTCOffer,
		To:     peerID,
		Signal: &config.SignalPayload{SDP: offer.SDP},
	}); err != nil {
		c.dropLink(peerID)
		return nil, fmt.Errorf("connector: send offer to %s: %w", peerID, err)
	}

	select {
	case <-link.answered:
		return c.peerLink(link), nil
	case <-ctx.Done():
		c.dropLink(peerID)
		return nil, ctx.Err()
	}
}

// HandleSignal routes one rtc-* envelope from the relay. Wired by the room
// client onto the transport's read loop.
func (c *PionConnector) HandleSignal(env *config.Envelope) {
	if env.Signal == nil || env.PeerID == "" {
		return
	}

	switch env.Event {

	case config.EvRTCOffer:
		c.mu.Lock()
		fn := c.onCall
		c.mu.Unlock()
		if fn == nil {
			return
		}
		go fn(&incomingCall{conn: c, from: env.PeerID, sdp: env.Signal.SDP})

	case config.EvRTCAnswer:
		link := c.link(env.PeerID)
		if link == nil {
			return
		}
		answer := webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer,
			SDP:  env.Signal.SDP,
		}
		if err := link.pc.SetRemoteDescription(answer); err != nil {
			logx.From(nil).Warn("connector_answer",
				zap.String("peer", env.PeerID), zap.Error(err))
			return
		}
		link.flushICE()
		close(link.answered)

	case config.EvRTCIce:
		c.mu.Lock()
		link := c.links[env.PeerID]
		if link == nil {
			c.earlyICE[env.PeerID] = append(c.earlyICE[env.PeerID], env.Signal.Candidate)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		link.addICE(env.Signal.Candidate)
	}
}

type incomingCall struct {
	conn *PionConnector
	from string
	sdp  string
}

func (ic *incomingCall) From() string { return ic.from }

// Answer completes the inbound path: remote offer in, local media and
// answer out.
func (ic *incomingCall) Answer(local MediaStream) (*PeerLink, error) {
	c := ic.conn

	link, err := c.newLink(ic.from, local)
	if err != nil {
		return nil, err
	}

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  ic.sdp,
	}
	if err := link.pc.SetRemoteDescription(offer); err != nil {
		c.dropLink(ic.from)
		return nil, fmt.Errorf("connector: set remote offer from %s: %w", ic.from, err)
	}
	link.flushICE()

	answer, err := link.pc.CreateAnswer(nil)
	if err != nil {
		c.dropLink(ic.from)
		return nil, fmt.Errorf("connector: create answer for %s: %w", ic.from, err)
	}
	if err := link.pc.SetLocalDescription(answer); err != nil {
		c.dropLink(ic.from)
		return nil, fmt.Errorf("connector: set local answer for %s: %w", ic.from, err)
	}

	if err := c.emit.Send(&config.Envelope{
		Event:  config.EvRTCAnswer,
		To:     ic.from,
		Signal: &config.SignalPayload{SDP: answer.SDP},
	}); err != nil {
		c.dropLink(ic.from)
		return nil, fmt.Errorf("connector: send answer to %s: %w", ic.from, err)
	}

	close(link.answered)
	return c.peerLink(link), nil
}

func (c *PionConnector) newLink(peerID string, local MediaStream) (*pionLink, error) {
	c.mu.Lock()
	if _, exists := c.links[peerID]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("connector: link to %s already exists", peerID)
	}
	c.mu.Unlock()

	pc, err := newPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("connector: peer connection for %s: %w", peerID, err)
	}

	if local != nil {
		for _, t := range local.Tracks() {
			wt, ok := t.(webrtcTrack)
			if !ok {
				continue
			}
			sender, err := pc.AddTrack(wt.WebRTCTrack())
			if err != nil {
				pc.Close()
				return nil, fmt.Errorf("connector: add %s track for %s: %w", t.Kind(), peerID, err)
			}

			// Read and discard RTCP packets to keep the connection alive
			go func() {
				buf := make([]byte, 1500)
				for {
					if _, _, err := sender.Read(buf); err != nil {
						return
					}
				}
			}()
		}
	}

	link := &pionLink{
		peerID:   peerID,
		pc:       pc,
		remote:   &pionRemote{peerID: peerID},
		answered: make(chan struct{}),
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		_ = c.emit.Send(&config.Envelope{
			Event:  config.EvRTCIce,
			To:     peerID,
			Signal: &config.SignalPayload{Candidate: candidate.ToJSON().Candidate},
		})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		link.remote.add(track)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateFailed ||
			state == webrtc.PeerConnectionStateClosed {
			c.dropLink(peerID)
		}
	})

	c.mu.Lock()
	if _, exists := c.links[peerID]; exists {
		c.mu.Unlock()
		pc.Close()
		return nil, fmt.Errorf("connector: link to %s already exists", peerID)
	}
	c.links[peerID] = link
	early := c.earlyICE[peerID]
	delete(c.earlyICE, peerID)
	c.mu.Unlock()

	for _, candidate := range early {
		link.addICE(candidate)
	}

	return link, nil
}

func (c *PionConnector) peerLink(link *pionLink) *PeerLink {
	return &PeerLink{
		PeerID: link.peerID,
		Remote: link.remote,
		closeFn: func() error {
			c.dropLink(link.peerID)
			return nil
		},
	}
}

func (c *PionConnector) link(peerID string) *pionLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.links[peerID]
}

func (c *PionConnector) dropLink(peerID string) {
	c.mu.Lock()
	link, ok := c.links[peerID]
	if ok {
		delete(c.links, peerID)
	}
	delete(c.earlyICE, peerID)
	c.mu.Unlock()

	if ok {
		_ = link.pc.Close()
	}
}

func (c *PionConnector) Close() error {
	c.mu.Lock()
	links := c.links
	c.links = make(map[string]*pionLink)
	c.mu.Unlock()

	for _, link := range links {
		_ = link.pc.Close()
	}
	return nil
}

// addICE applies a candidate, buffering it when the remote description is
// not in place yet.
func (l *pionLink) addICE(candidate string) {
	if candidate == "" {
		return
	}

	l.mu.Lock()
	if !l.haveRemote {
		l.pendingICE = append(l.pendingICE, candidate)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	if err := l.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate}); err != nil {
		logx.From(nil).Debug("connector_ice", zap.Error(err))
	}
}

func (l *pionLink) flushICE() {
	l.mu.Lock()
	pending := l.pendingICE
	l.pendingICE = nil
	l.haveRemote = true
	l.mu.Unlock()

	for _, candidate := range pending {
		if err := l.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate}); err != nil {
			logx.From(nil).Debug("connector_ice", zap.Error(err))
		}
	}
}

// pionRemote is the one remote stream of a link; tracks arrive as
// negotiation completes.
type pionRemote struct {
	peerID string
	mu     sync.Mutex
	tracks []RemoteTrack
}

func (r *pionRemote) PeerID() string { return r.peerID }

func (r *pionRemote) Tracks() []RemoteTrack {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RemoteTrack(nil), r.tracks...)
}

func (r *pionRemote) add(track *webrtc.TrackRemote) {
	r.mu.Lock()
	r.tracks = append(r.tracks, &remoteTrack{track: track})
	r.mu.Unlock()
}

type remoteTrack struct {
	track *webrtc.TrackRemote
}

func (t *remoteTrack) Kind() string { return t.track.Kind().String() }
func (t *remoteTrack) ID() string   { return t.track.ID() }

func newPeerConnection() (*webrtc.PeerConnection, error) {
	cfg := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
	return webrtc.NewPeerConnection(cfg)
}
