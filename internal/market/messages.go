package market

import (
	"sync"
	"time"
)

// Message kinds shown in the view.
const (
	MessageSuccess = "success"
	MessageError   = "error"
)

// Message is a transient, display-only notice from a trade or load.
type Message struct {
	Kind string
	Text string
}

// MessageCenter holds at most one transient message and clears it after a
// fixed window. Display-only: nothing reads messages for correctness.
type MessageCenter struct {
	ttl time.Duration

	mu      sync.Mutex
	current *Message
	timer   *time.Timer
}

// NewMessageCenter creates a center whose messages auto-dismiss after ttl.
func NewMessageCenter(ttl time.Duration) *MessageCenter {
	return &MessageCenter{ttl: ttl}
}

// Post replaces the current message and restarts the dismissal timer.
func (m *MessageCenter) Post(kind, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
	}
	msg := &Message{Kind: kind, Text: text}
	m.current = msg
	m.timer = time.AfterFunc(m.ttl, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Only clear if a newer message hasn't replaced this one.
		if m.current == msg {
			m.current = nil
		}
	})
}

// Current returns the visible message, or nil when dismissed.
func (m *MessageCenter) Current() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close stops the pending dismissal timer and clears the message.
func (m *MessageCenter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.current = nil
}
