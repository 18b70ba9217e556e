// Package telegram adapts the Telegram Bot API to transport events.
package telegram

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fonpesca/alertbot/internal/transport"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Channel is the conversation-id prefix owned by this adapter.
const Channel = "tg"

// SecretTokenHeader carries the secret registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Client is the subset of *tgbotapi.BotAPI the adapter uses.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot delivers messages to Telegram chats and turns updates into events.
type Bot struct {
	client     Client
	logger     *slog.Logger
	maxElapsed time.Duration
}

// New connects to the Bot API with token.
func New(token string, debug bool, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot api: %w", err)
	}
	api.Debug = debug
	b := NewWithClient(api, logger)
	b.logger.Info("Telegram bot authorized", "username", api.Self.UserName)
	return b, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{client: client, logger: logger, maxElapsed: 10 * time.Second}
}

// DeliverText sends an HTML-formatted message.
func (b *Bot) DeliverText(ctx context.Context, conversationID, text string) error {
	return b.DeliverButtons(ctx, conversationID, text, nil)
}

// DeliverButtons sends an HTML-formatted message with an inline keyboard.
func (b *Bot) DeliverButtons(ctx context.Context, conversationID, text string, buttons [][]transport.Button) error {
	chatID, err := chatIDOf(conversationID)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = keyboard(buttons)
	}

	return b.withRetry(ctx, conversationID, func() error {
		_, err := b.client.Send(msg)
		return err
	})
}

// SetWebhook registers url as the update endpoint. Telegram echoes secret
// in SecretTokenHeader on every delivery.
func (b *Bot) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := b.client.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.logger.Info("Telegram webhook registered", "url", url)
	return nil
}

// DeleteWebhook switches the bot back to long polling.
func (b *Bot) DeleteWebhook() error {
	if _, err := b.client.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// Poll receives updates by long polling until ctx is cancelled.
func (b *Bot) Poll(ctx context.Context, deliver transport.DeliverFunc) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.client.GetUpdatesChan(u)
	b.logger.Info("Telegram polling started")

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			b.logger.Info("Telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update, deliver)
		}
	}
}

// WebhookHandler accepts updates pushed by Telegram. When secret is set,
// requests without the matching SecretTokenHeader are refused.
func (b *Bot) WebhookHandler(secret string, deliver transport.DeliverFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretTokenHeader)), []byte(secret)) != 1 {
			b.logger.Warn("Rejected telegram webhook request", "ip", r.RemoteAddr)
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		var update tgbotapi.Update
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := decodeUpdate(r, &update); err != nil {
			b.logger.Warn("Invalid telegram update", "error", err)
			http.Error(w, `{"error":"invalid update"}`, http.StatusBadRequest)
			return
		}
		// Handling continues on the mailbox, so the request context is not
		// propagated.
		b.handleUpdate(context.WithoutCancel(r.Context()), update, deliver)
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update, deliver transport.DeliverFunc) {
	in, ok := ToEvent(update)
	if !ok {
		b.logger.Debug("Ignoring telegram update", "update_id", update.UpdateID)
		return
	}
	if in.CallbackID != "" {
		if _, err := b.client.Request(tgbotapi.NewCallback(in.CallbackID, "")); err != nil {
			b.logger.Warn("Failed to answer callback query",
				"conversation_id", in.ConversationID,
				"error", err)
		}
	}
	if err := deliver(ctx, in.ConversationID, in.Event); err != nil {
		b.logger.Warn("Dropped telegram update",
			"conversation_id", in.ConversationID,
			"kind", in.Event.Kind.String(),
			"error", err)
		if errors.Is(err, transport.ErrMailboxFull) {
			_ = b.DeliverText(ctx, in.ConversationID, msgBusy)
		}
	}
}

const msgBusy = "⏳ Estoy procesando tus mensajes anteriores. Intenta de nuevo en unos segundos."

// withRetry retries transient send failures. Rejections by the API for bad
// requests or blocked chats are not retried.
func (b *Bot) withRetry(ctx context.Context, conversationID string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = b.maxElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code != http.StatusTooManyRequests && apiErr.Code < 500 {
			return backoff.Permanent(err)
		}
		b.logger.Debug("Telegram send failed, retrying",
			"conversation_id", conversationID,
			"attempt", attempt,
			"error", err)
		return err
	}, backoff.WithContext(bo, ctx))
}

func keyboard(buttons [][]transport.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Code))
		}
		rows = append(rows, kbRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func chatIDOf(conversationID string) (int64, error) {
	channel, chat, ok := transport.SplitConversationID(conversationID)
	if !ok || channel != Channel {
		return 0, fmt.Errorf("not a telegram conversation: %q", conversationID)
	}
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse chat id %q: %w", chat, err)
	}
	return id, nil
}
