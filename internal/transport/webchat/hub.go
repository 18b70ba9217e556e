// Package webchat serves the report conversation to browsers over WebSocket.
package webchat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fonpesca/alertbot/internal/transport"
)

// Channel is the conversation-id prefix owned by this adapter.
const Channel = "web"

const writeTimeout = 10 * time.Second

// outbound is the JSON frame written to the browser.
type outbound struct {
	Type           string               `json:"type"`
	ConversationID string               `json:"conversation_id,omitempty"`
	Token          string               `json:"token,omitempty"`
	Text           string               `json:"text,omitempty"`
	Buttons        [][]transport.Button `json:"buttons,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// Hub tracks the live connection of each web conversation.
type Hub struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		active: make(map[string]*websocket.Conn),
		logger: logger,
	}
}

// Get returns the live connection for chatID, or nil.
func (h *Hub) Get(chatID string) *websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active[chatID]
}

// Active returns the number of connected conversations.
func (h *Hub) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}

// Register binds conn to chatID. A previous connection for the same chat,
// such as a second browser tab, is closed.
func (h *Hub) Register(chatID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.active[chatID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	h.active[chatID] = conn
	h.logger.Info("Web chat registered", "conversation_id", transport.ConversationID(Channel, chatID))
}

// Unregister removes conn if it is still the live connection for chatID.
func (h *Hub) Unregister(chatID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.active[chatID]; ok && current == conn {
		delete(h.active, chatID)
		h.logger.Info("Web chat unregistered", "conversation_id", transport.ConversationID(Channel, chatID))
	}
}

// DeliverText sends a message to the browser.
func (h *Hub) DeliverText(ctx context.Context, conversationID, text string) error {
	return h.DeliverButtons(ctx, conversationID, text, nil)
}

// DeliverButtons sends a message with choices to the browser.
func (h *Hub) DeliverButtons(ctx context.Context, conversationID, text string, buttons [][]transport.Button) error {
	channel, chatID, ok := transport.SplitConversationID(conversationID)
	if !ok || channel != Channel {
		return fmt.Errorf("not a web conversation: %q", conversationID)
	}
	conn := h.Get(chatID)
	if conn == nil {
		return fmt.Errorf("web conversation %s is not connected", chatID)
	}
	return write(ctx, conn, outbound{Type: "message", Text: text, Buttons: buttons})
}

func write(ctx context.Context, conn *websocket.Conn, msg outbound) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		return fmt.Errorf("write websocket: %w", err)
	}
	return nil
}
