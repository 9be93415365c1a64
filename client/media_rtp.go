package client

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// RTPTrack is a locally owned capture track backed by a static RTP stream.
// The enabled flag gates payload writes in place; toggling it never
// renegotiates the connection.
type RTPTrack struct {
	kind    string
	track   *webrtc.TrackLocalStaticRTP
	enabled atomic.Bool

	mu          sync.Mutex
	seqNum      uint16
	timestamp   uint32
	payloadType uint8
}

func newRTPTrack(kind string, capability webrtc.RTPCodecCapability, payloadType uint8, streamID string) (*RTPTrack, error) {
	track, err := webrtc.NewTrackLocalStaticRTP(
		capability,
		fmt.Sprintf("%s-%s", kind, streamID),
		fmt.Sprintf("stream-%s", streamID),
	)
	if err != nil {
		return nil, fmt.Errorf("media: create %s track: %w", kind, err)
	}

	t := &RTPTrack{
		kind:        kind,
		track:       track,
		payloadType: payloadType,
	}
	t.enabled.Store(true)
	return t, nil
}

func (t *RTPTrack) Kind() string                   { return t.kind }
func (t *RTPTrack) SetEnabled(enabled bool)        { t.enabled.Store(enabled) }
func (t *RTPTrack) Enabled() bool                  { return t.enabled.Load() }
func (t *RTPTrack) WebRTCTrack() webrtc.TrackLocal { return t.track }

// WriteSample packetizes one media sample. While disabled the clock still
// advances so re-enabling resumes with a sane timeline.
func (t *RTPTrack) WriteSample(payload []byte, samples uint32) error {
	t.mu.Lock()
	seq := t.seqNum
	ts := t.timestamp
	t.seqNum++
	t.timestamp += samples
	t.mu.Unlock()

	if !t.enabled.Load() {
		return nil
	}

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    t.payloadType,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           0x12345678, // Will be overwritten by pion
		},
		Payload: payload,
	}

	return t.track.WriteRTP(packet)
}

type localStream struct {
	tracks []MediaTrack
	stop   chan struct{}
	once   sync.Once
}

func (s *localStream) Tracks() []MediaTrack { return s.tracks }

func (s *localStream) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// SyntheticDevices fabricates silence/black capture so headless clients
// can hold a seat in the mesh without physical devices.
type SyntheticDevices struct {
	streamID string
}

func NewSyntheticDevices() *SyntheticDevices {
	return &SyntheticDevices{streamID: uuid.NewString()}
}

func (d *SyntheticDevices) GetUserMedia(video, audio bool) (MediaStream, error) {
	if !video && !audio {
		return nil, fmt.Errorf("media: nothing requested")
	}

	stream := &localStream{stop: make(chan struct{})}

	if audio {
		t, err := newRTPTrack(TrackAudio, webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   48000,
			Channels:    2,
			SDPFmtpLine: "minptime=10;useinbandfec=1",
		}, 111, d.streamID)
		if err != nil {
			return nil, err
		}
		stream.tracks = append(stream.tracks, t)

		// 20 ms of Opus silence per frame
		go pump(stream.stop, 20*time.Millisecond, func() {
			_ = t.WriteSample([]byte{0xf8, 0xff, 0xfe}, 960)
		})
	}

	if video {
		t, err := newRTPTrack(TrackVideo, webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeVP8,
			ClockRate: 90000,
		}, 96, d.streamID)
		if err != nil {
			return nil, err
		}
		stream.tracks = append(stream.tracks, t)

		// ~30 fps of placeholder frames
		go pump(stream.stop, 33*time.Millisecond, func() {
			_ = t.WriteSample([]byte{0x10, 0x00, 0x00}, 3000)
		})
	}

	return stream, nil
}

func pump(stop <-chan struct{}, interval time.Duration, write func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			write()
		}
	}
}
