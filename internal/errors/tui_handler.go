package errors

import (
	"sync"
	"time"
)

// DefaultHistory is how many messages a TUIHandler keeps.
const DefaultHistory = 50

// TUIHandler stores messages for display in the TUI.
type TUIHandler struct {
	mu        sync.RWMutex
	messages  []Message
	limit     int
	onMessage func(msg Message)
	now       func() time.Time
}

type Message struct {
	Text      string
	Type      MessageType
	Timestamp time.Time
}

type MessageType int

const (
	MessageTypeError MessageType = iota
	MessageTypeWarning
	MessageTypeInfo
	MessageTypeSuccess
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeError:
		return "error"
	case MessageTypeWarning:
		return "warning"
	case MessageTypeInfo:
		return "info"
	case MessageTypeSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// NewTUIHandler creates a handler. onMessage, if set, is called with every new
// message; the TUI uses it to wake the program up.
func NewTUIHandler(onMessage func(msg Message)) *TUIHandler {
	return &TUIHandler{limit: DefaultHistory, onMessage: onMessage, now: time.Now}
}

func (h *TUIHandler) Error(msg string) {
	h.addMessage(msg, MessageTypeError)
}

func (h *TUIHandler) Warning(msg string) {
	h.addMessage(msg, MessageTypeWarning)
}

func (h *TUIHandler) Info(msg string) {
	h.addMessage(msg, MessageTypeInfo)
}

func (h *TUIHandler) Success(msg string) {
	h.addMessage(msg, MessageTypeSuccess)
}

func (h *TUIHandler) addMessage(msg string, msgType MessageType) {
	h.mu.Lock()
	message := Message{Text: msg, Type: msgType, Timestamp: h.now()}
	h.messages = append(h.messages, message)
	if over := len(h.messages) - h.limit; over > 0 {
		h.messages = append([]Message(nil), h.messages[over:]...)
	}
	onMessage := h.onMessage
	h.mu.Unlock()

	if onMessage != nil {
		onMessage(message)
	}
}

// GetLatest returns the most recent message.
func (h *TUIHandler) GetLatest() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Current returns the most recent message if it is younger than maxAge. The
// status bar uses it so messages fade out.
func (h *TUIHandler) Current(maxAge time.Duration) (Message, bool) {
	msg, ok := h.GetLatest()
	if !ok || h.now().Sub(msg.Timestamp) > maxAge {
		return Message{}, false
	}
	return msg, true
}

func (h *TUIHandler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

func (h *TUIHandler) GetAll() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	copied := make([]Message, len(h.messages))
	copy(copied, h.messages)
	return copied
}
