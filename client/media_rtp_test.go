package client

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticDevicesTrackKinds(t *testing.T) {
	dev := NewSyntheticDevices()

	stream, err := dev.GetUserMedia(true, true)
	require.NoError(t, err)
	defer stream.(*localStream).Close()

	kinds := map[string]int{}
	for _, tr := range stream.Tracks() {
		kinds[tr.Kind()]++
		assert.True(t, tr.Enabled(), "tracks start enabled")
	}
	assert.Equal(t, map[string]int{TrackAudio: 1, TrackVideo: 1}, kinds)
}

func TestSyntheticDevicesSingleKind(t *testing.T) {
	dev := NewSyntheticDevices()

	stream, err := dev.GetUserMedia(false, true)
	require.NoError(t, err)
	defer stream.(*localStream).Close()

	tracks := stream.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, TrackAudio, tracks[0].Kind())
}

func TestSyntheticDevicesRejectEmptyRequest(t *testing.T) {
	_, err := NewSyntheticDevices().GetUserMedia(false, false)
	require.Error(t, err)
}

func TestRTPTrackToggle(t *testing.T) {
	dev := NewSyntheticDevices()
	stream, err := dev.GetUserMedia(false, true)
	require.NoError(t, err)
	defer stream.(*localStream).Close()

	track := stream.Tracks()[0]
	track.SetEnabled(false)
	assert.False(t, track.Enabled())
	track.SetEnabled(true)
	assert.True(t, track.Enabled())
}

func TestWriteSampleAdvancesClockWhileDisabled(t *testing.T) {
	track, err := newRTPTrack(TrackAudio, webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	}, 111, "test-stream")
	require.NoError(t, err)

	track.SetEnabled(false)
	require.NoError(t, track.WriteSample([]byte{0xf8, 0xff, 0xfe}, 960))
	require.NoError(t, track.WriteSample([]byte{0xf8, 0xff, 0xfe}, 960))

	// Re-enabling resumes from an advanced timeline, not from zero.
	track.SetEnabled(true)
	assert.Equal(t, uint16(2), track.seqNum)
	assert.Equal(t, uint32(1920), track.timestamp)
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	dev := NewSyntheticDevices()
	stream, err := dev.GetUserMedia(true, false)
	require.NoError(t, err)

	ls := stream.(*localStream)
	require.NoError(t, ls.Close())
	require.NoError(t, ls.Close())
}
