package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/transport"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	raw      map[string]tgbotapi.Params
	errs     []error
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raw == nil {
		f.raw = make(map[string]tgbotapi.Params)
	}
	f.raw[endpoint] = params
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeClient) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeClient) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type captured struct {
	mu     sync.Mutex
	ids    []string
	events []transport.Event
	err    error
}

func (c *captured) deliver(_ context.Context, id string, ev transport.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
	c.events = append(c.events, ev)
	return c.err
}

func (c *captured) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestDeliverButtonsBuildsInlineKeyboard(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := NewWithClient(fc, nil)

	err := b.DeliverButtons(context.Background(), "tg:42", "<b>¿Nivel?</b>", [][]transport.Button{
		{{Label: "🟢 Verde", Code: "Verde"}, {Label: "🔴 Roja", Code: "Roja"}},
		{{Label: "Cancelar", Code: "cancelar_reporte"}},
	})
	require.NoError(t, err)
	require.Len(t, fc.sent, 1)

	msg, ok := fc.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "Roja", *markup.InlineKeyboard[0][1].CallbackData)
}

func TestDeliverTextRejectsForeignConversation(t *testing.T) {
	t.Parallel()

	b := NewWithClient(&fakeClient{}, nil)
	assert.Error(t, b.DeliverText(context.Background(), "web:abc", "hola"))
	assert.Error(t, b.DeliverText(context.Background(), "tg:abc", "hola"))
}

func TestDeliverRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{errs: []error{errors.New("connection reset by peer")}}
	b := NewWithClient(fc, nil)

	require.NoError(t, b.DeliverText(context.Background(), "tg:1", "hola"))
	assert.Equal(t, 2, fc.sentCount())
}

func TestDeliverDoesNotRetryForbidden(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{errs: []error{&tgbotapi.Error{Code: http.StatusForbidden, Message: "bot was blocked by the user"}}}
	b := NewWithClient(fc, nil)

	err := b.DeliverText(context.Background(), "tg:1", "hola")
	require.Error(t, err)
	var apiErr *tgbotapi.Error
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, fc.sentCount())
}

func TestToEvent(t *testing.T) {
	t.Parallel()

	chat := &tgbotapi.Chat{ID: 7}
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   transport.Event
		cbID   string
		ok     bool
	}{
		{
			name:   "text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat, Text: "12345678"}},
			want:   transport.Text("12345678"),
			ok:     true,
		},
		{
			name: "command",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat:     chat,
				Text:     "/start",
				Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
			}},
			want: transport.Command("start"),
			ok:   true,
		},
		{
			name: "largest photo",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat:  chat,
				Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
			}},
			want: transport.Attach(domain.AttachmentPhoto, "large"),
			ok:   true,
		},
		{
			name:   "voice is unsupported",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat, Voice: &tgbotapi.Voice{FileID: "v"}}},
			want:   transport.Attach(kindVoice, "v"),
			ok:     true,
		},
		{
			name: "callback",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb-1",
				Data:    "si",
				Message: &tgbotapi.Message{Chat: chat},
			}},
			want: transport.Press("si"),
			cbID: "cb-1",
			ok:   true,
		},
		{
			name:   "edited message ignored",
			update: tgbotapi.Update{EditedMessage: &tgbotapi.Message{Chat: chat, Text: "x"}},
			ok:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := ToEvent(tt.update)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, "tg:7", in.ConversationID)
			assert.Equal(t, tt.want, in.Event)
			assert.Equal(t, tt.cbID, in.CallbackID)
		})
	}
	assert.False(t, kindVoice.Supported())
}

func TestWebhookHandler(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := NewWithClient(fc, nil)
	c := &captured{}
	h := b.WebhookHandler("", c.deliver)

	body := `{"update_id":1,"callback_query":{"id":"cb-9","data":"enviar_reporte","message":{"message_id":3,"date":0,"chat":{"id":42,"type":"private"}}}}`
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, c.len())
	assert.Equal(t, "tg:42", c.ids[0])
	assert.Equal(t, transport.Press("enviar_reporte"), c.events[0])
	require.Len(t, fc.requests, 1, "callback query must be answered")

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRequiresSecretToken(t *testing.T) {
	t.Parallel()

	b := NewWithClient(&fakeClient{}, nil)
	c := &captured{}
	h := b.WebhookHandler("s3cr3t", c.deliver)

	body := `{"update_id":2,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"hola"}}`
	for _, header := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
		if header != "" {
			req.Header.Set(SecretTokenHeader, header)
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
	assert.Equal(t, 0, c.len(), "unauthenticated update reached the mailbox")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	req.Header.Set(SecretTokenHeader, "s3cr3t")
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, c.len())
	assert.Equal(t, "tg:42", c.ids[0])
}

func TestSetWebhookSendsSecret(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := NewWithClient(fc, nil)
	require.NoError(t, b.SetWebhook("https://bot.example.org/telegram/webhook", "s3cr3t"))

	params := fc.raw["setWebhook"]
	assert.Equal(t, "https://bot.example.org/telegram/webhook", params["url"])
	assert.Equal(t, "s3cr3t", params["secret_token"])
}

func TestFullMailboxNotifiesUser(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := NewWithClient(fc, nil)
	c := &captured{err: transport.ErrMailboxFull}

	b.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}, Text: "hola"}}, c.deliver)
	require.Equal(t, 1, fc.sentCount())
	assert.Equal(t, msgBusy, fc.sent[0].(tgbotapi.MessageConfig).Text)
}

func TestPollStopsOnCancel(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{updates: make(chan tgbotapi.Update, 1)}
	b := NewWithClient(fc, nil)
	c := &captured{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Poll(ctx, c.deliver) }()

	fc.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 9}, Text: "hola"}}
	require.Eventually(t, func() bool { return c.len() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Poll did not return after cancel")
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.True(t, fc.stopped)
}
