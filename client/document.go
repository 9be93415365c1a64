package client

import (
	"sync"
	"time"

	"collabroom/config"
)

// SuppressWindow is how long inbound remote text is ignored after a local
// edit, so a client's own change echoed back through a peer cannot stomp
// text the user is still typing.
const SuppressWindow = time.Second

// Document is the shared code buffer: whole-document last-writer-wins with
// echo suppression. Two clients typing inside the same window can still
// overwrite each other; that is the accepted tradeoff of this policy.
type Document struct {
	mu            sync.Mutex
	text          string
	language      string
	suppressUntil time.Time
	window        time.Duration
	now           func() time.Time
	emit          Emitter
}

func NewDocument(emit Emitter) *Document {
	return &Document{
		language: "python",
		window:   SuppressWindow,
		now:      time.Now,
		emit:     emit,
	}
}

// LocalEdit replaces the text, broadcasts the full document and opens the
// suppression window.
func (d *Document) LocalEdit(text string) {
	d.mu.Lock()
	d.text = text
	d.suppressUntil = d.now().Add(d.window)
	lang := d.language
	d.mu.Unlock()

	if d.emit == nil {
		return
	}
	_ = d.emit.Send(&config.Envelope{
		Event: config.EvCodeChange,
		Code:  &config.CodePayload{Text: text, Language: lang},
	})
}

// ReceiveRemote applies a remote document unless the suppression window is
// still open. No merge, no diff: the remote value wins whole.
func (d *Document) ReceiveRemote(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.now().Before(d.suppressUntil) {
		return
	}
	d.text = text
}

// SetLanguage is local-only; the language tag is never synchronized.
func (d *Document) SetLanguage(lang string) {
	d.mu.Lock()
	d.language = lang
	d.mu.Unlock()
}

func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

func (d *Document) Language() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.language
}
