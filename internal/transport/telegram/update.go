package telegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/transport"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Inbound is an update reduced to the conversation and event it carries.
type Inbound struct {
	ConversationID string
	Event          transport.Event
	// CallbackID is set for button presses and must be acknowledged.
	CallbackID string
}

// Media Telegram delivers that reports cannot store.
const (
	kindVoice   domain.AttachmentKind = "voice"
	kindSticker domain.AttachmentKind = "sticker"
	kindOther   domain.AttachmentKind = "other"
)

// ToEvent maps an update to an inbound event. ok is false for updates the
// bot does not react to (edits, channel posts, member changes).
func ToEvent(update tgbotapi.Update) (Inbound, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.Message == nil || cq.Message.Chat == nil {
			return Inbound{}, false
		}
		return Inbound{
			ConversationID: conversationOf(cq.Message.Chat.ID),
			Event:          transport.Press(cq.Data),
			CallbackID:     cq.ID,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return Inbound{}, false
	}
	in := Inbound{ConversationID: conversationOf(msg.Chat.ID)}

	switch {
	case msg.IsCommand():
		in.Event = transport.Command(msg.Command())
	case len(msg.Photo) > 0:
		// Sizes are ordered smallest first.
		in.Event = transport.Attach(domain.AttachmentPhoto, msg.Photo[len(msg.Photo)-1].FileID)
	case msg.Video != nil:
		in.Event = transport.Attach(domain.AttachmentVideo, msg.Video.FileID)
	case msg.Document != nil:
		in.Event = transport.Attach(domain.AttachmentDocument, msg.Document.FileID)
	case msg.Audio != nil:
		in.Event = transport.Attach(domain.AttachmentAudio, msg.Audio.FileID)
	case msg.Voice != nil:
		in.Event = transport.Attach(kindVoice, msg.Voice.FileID)
	case msg.Sticker != nil:
		in.Event = transport.Attach(kindSticker, msg.Sticker.FileID)
	case msg.Text != "":
		in.Event = transport.Text(msg.Text)
	case msg.Location != nil || msg.Contact != nil || msg.VideoNote != nil || msg.Animation != nil:
		in.Event = transport.Attach(kindOther, "")
	default:
		return Inbound{}, false
	}
	return in, true
}

func conversationOf(chatID int64) string {
	return transport.ConversationID(Channel, strconv.FormatInt(chatID, 10))
}

func decodeUpdate(r *http.Request, update *tgbotapi.Update) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unexpected content type %q", ct)
	}
	if err := json.NewDecoder(r.Body).Decode(update); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}
	return nil
}
