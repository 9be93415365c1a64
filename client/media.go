package client

// Track kinds, matching WebRTC naming.
const (
	TrackAudio = "audio"
	TrackVideo = "video"
)

// MediaTrack is one locally owned capture track. Mute and camera-off are
// in-place enabled toggles; the track is never recreated or renegotiated.
type MediaTrack interface {
	Kind() string
	SetEnabled(enabled bool)
	Enabled() bool
}

// MediaStream groups the local tracks handed to peer calls.
type MediaStream interface {
	Tracks() []MediaTrack
}

// MediaDevices acquires local capture. The real implementation wraps a
// device layer; tests substitute fakes.
type MediaDevices interface {
	GetUserMedia(video, audio bool) (MediaStream, error)
}

// MediaMode is the outcome of the acquisition fallback chain.
type MediaMode int

const (
	MediaNone MediaMode = iota
	MediaAudioOnly
	MediaVideoOnly
	MediaFull
)

func (m MediaMode) String() string {
	switch m {
	case MediaFull:
		return "camera+mic"
	case MediaVideoOnly:
		return "camera-only"
	case MediaAudioOnly:
		return "mic-only"
	}
	return "no-device"
}

// acquireMedia walks the degradation chain: camera+mic, then video only,
// then audio only, then nothing. A nil stream with MediaNone disables the
// call layer without blocking the rest of the room.
func acquireMedia(dev MediaDevices) (MediaStream, MediaMode) {
	if dev == nil {
		return nil, MediaNone
	}
	if s, err := dev.GetUserMedia(true, true); err == nil {
		return s, MediaFull
	}
	if s, err := dev.GetUserMedia(true, false); err == nil {
		return s, MediaVideoOnly
	}
	if s, err := dev.GetUserMedia(false, true); err == nil {
		return s, MediaAudioOnly
	}
	return nil, MediaNone
}
