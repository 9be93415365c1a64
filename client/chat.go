package client

import (
	"sync"
	"time"

	"collabroom/config"
)

// ChatLog is the append-only message list. Messages are immutable once
// created and ordered by arrival; nothing stronger is promised.
type ChatLog struct {
	mu     sync.Mutex
	msgs   []config.ChatMessage
	sender string
	email  string
	now    func() time.Time
	emit   Emitter
}

func NewChatLog(sender, email string, emit Emitter) *ChatLog {
	if sender == "" {
		sender = "Guest"
	}
	return &ChatLog{
		sender: sender,
		email:  email,
		now:    time.Now,
		emit:   emit,
	}
}

// Send stamps the local identity and clock, appends locally and broadcasts.
func (c *ChatLog) Send(text string) {
	if text == "" {
		return
	}

	msg := config.ChatMessage{
		Text:   text,
		Sender: c.sender,
		Email:  c.email,
		Time:   c.now().Format("15:04:05"),
	}

	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()

	if c.emit == nil {
		return
	}
	_ = c.emit.Send(&config.Envelope{
		Event: config.EvSendMessage,
		Chat:  &msg,
	})
}

func (c *ChatLog) Receive(msg config.ChatMessage) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func (c *ChatLog) Messages() []config.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]config.ChatMessage(nil), c.msgs...)
}
