// Package transport defines the chat events exchanged between channel
// adapters and the workflow engine, plus per-conversation delivery.
package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/fonpesca/alertbot/internal/domain"
)

// Kind classifies an inbound event.
type Kind int

const (
	KindText Kind = iota
	KindButton
	KindAttachment
	KindCommand
)

// Kinds lists every event class.
var Kinds = []Kind{KindText, KindButton, KindAttachment, KindCommand}

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindButton:
		return "button"
	case KindAttachment:
		return "attachment"
	case KindCommand:
		return "command"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one inbound user action.
type Event struct {
	Kind Kind
	// Text is the message body for KindText.
	Text string
	// Code is the button code for KindButton or the command name for KindCommand.
	Code string
	// Attachment is set for KindAttachment. Unsupported media still arrives
	// here with a kind that reports !Supported().
	Attachment domain.Attachment
}

// Text builds a text event.
func Text(s string) Event { return Event{Kind: KindText, Text: s} }

// Press builds a button-press event.
func Press(code string) Event { return Event{Kind: KindButton, Code: code} }

// Command builds a slash-command event. The leading slash is optional.
func Command(name string) Event {
	return Event{Kind: KindCommand, Code: strings.TrimPrefix(name, "/")}
}

// Attach builds an attachment event.
func Attach(kind domain.AttachmentKind, ref string) Event {
	return Event{Kind: KindAttachment, Attachment: domain.Attachment{Kind: kind, Ref: ref}}
}

// Summary returns a short human-readable form for logs.
func (e Event) Summary() string {
	switch e.Kind {
	case KindText:
		return e.Text
	case KindButton:
		return "[" + e.Code + "]"
	case KindCommand:
		return "/" + e.Code
	case KindAttachment:
		return "<" + string(e.Attachment.Kind) + ":" + e.Attachment.Ref + ">"
	default:
		return ""
	}
}

// Button is one inline choice offered to the user.
type Button struct {
	Label string `json:"label"`
	Code  string `json:"code"`
}

// Handler processes one event for a conversation.
type Handler func(ctx context.Context, conversationID string, ev Event)

// DeliverFunc hands an inbound event to the engine side.
type DeliverFunc func(ctx context.Context, conversationID string, ev Event) error

// ConversationID joins a channel name and a channel-local chat id.
func ConversationID(channel, chatID string) string {
	return channel + ":" + chatID
}

// SplitConversationID is the inverse of ConversationID.
func SplitConversationID(id string) (channel, chatID string, ok bool) {
	return strings.Cut(id, ":")
}
