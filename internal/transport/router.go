package transport

import (
	"context"
	"fmt"
	"sync"
)

// Sender is the outbound half of a channel adapter.
type Sender interface {
	DeliverText(ctx context.Context, conversationID, text string) error
	DeliverButtons(ctx context.Context, conversationID, text string, buttons [][]Button) error
}

// Router fans outbound messages to the adapter owning the conversation's
// channel prefix.
type Router struct {
	mu       sync.RWMutex
	channels map[string]Sender
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{channels: make(map[string]Sender)}
}

// Register binds a channel name to its sender.
func (r *Router) Register(channel string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[channel] = s
}

// Channels returns the number of registered channels.
func (r *Router) Channels() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

func (r *Router) lookup(conversationID string) (Sender, error) {
	channel, _, ok := SplitConversationID(conversationID)
	if !ok {
		return nil, fmt.Errorf("conversation id %q has no channel prefix", conversationID)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.channels[channel]
	if !ok {
		return nil, fmt.Errorf("no sender registered for channel %q", channel)
	}
	return s, nil
}

// DeliverText sends a plain message through the owning channel.
func (r *Router) DeliverText(ctx context.Context, conversationID, text string) error {
	s, err := r.lookup(conversationID)
	if err != nil {
		return err
	}
	return s.DeliverText(ctx, conversationID, text)
}

// DeliverButtons sends a message with inline choices through the owning channel.
func (r *Router) DeliverButtons(ctx context.Context, conversationID, text string, buttons [][]Button) error {
	s, err := r.lookup(conversationID)
	if err != nil {
		return err
	}
	return s.DeliverButtons(ctx, conversationID, text, buttons)
}
