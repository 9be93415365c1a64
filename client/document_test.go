package client

import (
	"testing"
	"time"

	"collabroom/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock drives a Document through the suppression window without
// sleeping.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedDocument(emit Emitter) (*Document, *fixedClock) {
	clk := &fixedClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	d := NewDocument(emit)
	d.now = clk.now
	return d, clk
}

func TestRemoteAppliesWhenIdle(t *testing.T) {
	d, _ := newClockedDocument(nil)

	d.ReceiveRemote(`print("hello world")`)
	assert.Equal(t, `print("hello world")`, d.Text())
}

func TestLocalEditSuppressesRemoteWithinWindow(t *testing.T) {
	d, clk := newClockedDocument(nil)

	d.LocalEdit("local text")
	clk.advance(500 * time.Millisecond)
	d.ReceiveRemote("remote text")

	assert.Equal(t, "local text", d.Text())
}

func TestRemoteAppliesAfterWindowExpires(t *testing.T) {
	d, clk := newClockedDocument(nil)

	d.LocalEdit("local text")
	clk.advance(SuppressWindow + time.Millisecond)
	d.ReceiveRemote("remote text")

	assert.Equal(t, "remote text", d.Text())
}

func TestEachLocalEditReopensWindow(t *testing.T) {
	d, clk := newClockedDocument(nil)

	d.LocalEdit("v1")
	clk.advance(900 * time.Millisecond)
	d.LocalEdit("v2")
	clk.advance(900 * time.Millisecond)

	// 1.8s after the first edit, but only 0.9s after the second.
	d.ReceiveRemote("remote")
	assert.Equal(t, "v2", d.Text())
}

func TestLocalEditBroadcastsWholeDocument(t *testing.T) {
	emit := &captureEmitter{}
	d, _ := newClockedDocument(emit)
	d.SetLanguage("javascript")

	d.LocalEdit("const x = 1")

	sent := emit.envelopes()
	require.Len(t, sent, 1)
	assert.Equal(t, config.EvCodeChange, sent[0].Event)
	require.NotNil(t, sent[0].Code)
	assert.Equal(t, "const x = 1", sent[0].Code.Text)
	assert.Equal(t, "javascript", sent[0].Code.Language)
}

func TestLanguageIsLocalOnly(t *testing.T) {
	emit := &captureEmitter{}
	d, _ := newClockedDocument(emit)

	d.SetLanguage("go")

	assert.Equal(t, "go", d.Language())
	assert.Empty(t, emit.envelopes())
}

func TestDefaultLanguage(t *testing.T) {
	d := NewDocument(nil)
	assert.Equal(t, "python", d.Language())
}
