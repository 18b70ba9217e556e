package convlog

import (
	"context"
	"time"

	"github.com/fonpesca/alertbot/internal/transport"
)

// Sender wraps next so every outbound message is logged before delivery.
func Sender(next transport.Sender, log Logger) transport.Sender {
	return &loggingSender{next: next, log: log}
}

type loggingSender struct {
	next transport.Sender
	log  Logger
}

func (s *loggingSender) DeliverText(ctx context.Context, conversationID, text string) error {
	err := s.next.DeliverText(ctx, conversationID, text)
	s.log.Log(outbound(conversationID, "bot_message", text, err, nil))
	return err
}

func (s *loggingSender) DeliverButtons(ctx context.Context, conversationID, text string, buttons [][]transport.Button) error {
	err := s.next.DeliverButtons(ctx, conversationID, text, buttons)
	var codes []string
	for _, row := range buttons {
		for _, b := range row {
			codes = append(codes, b.Code)
		}
	}
	s.log.Log(outbound(conversationID, "bot_prompt", text, err, map[string]any{"buttons": codes}))
	return err
}

// Handler wraps next so every inbound event is logged before it is handled.
func Handler(next transport.Handler, log Logger) transport.Handler {
	return func(ctx context.Context, conversationID string, ev transport.Event) {
		raw := ev.Summary()
		meta := map[string]any{"kind": ev.Kind.String()}
		if ev.Kind == transport.KindAttachment {
			meta["attachment_type"] = string(ev.Attachment.Kind)
		}
		log.Log(Event{
			Timestamp:      now(),
			ConversationID: conversationID,
			Channel:        channelOf(conversationID),
			Direction:      DirectionInbound,
			EventType:      "user_" + ev.Kind.String(),
			ContentRaw:     raw,
			Content:        cleanForReadability(raw),
			Meta:           meta,
		})
		next(ctx, conversationID, ev)
	}
}

func outbound(conversationID, eventType, text string, err error, meta map[string]any) Event {
	if err != nil {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["delivery_error"] = err.Error()
	}
	return Event{
		Timestamp:      now(),
		ConversationID: conversationID,
		Channel:        channelOf(conversationID),
		Direction:      DirectionOutbound,
		EventType:      eventType,
		ContentRaw:     text,
		Content:        cleanForReadability(text),
		Meta:           meta,
	}
}

func channelOf(conversationID string) string {
	if channel, _, ok := transport.SplitConversationID(conversationID); ok {
		return channel
	}
	return ""
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
