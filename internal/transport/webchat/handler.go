package webchat

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/transport"
	"github.com/google/uuid"
)

var chatIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// inbound is the JSON frame read from the browser.
type inbound struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Code       string `json:"code,omitempty"`
	Command    string `json:"command,omitempty"`
	Attachment struct {
		Type string `json:"type"`
		Ref  string `json:"ref"`
	} `json:"attachment"`
}

// Handler upgrades browser requests and feeds their messages to deliver.
type Handler struct {
	hub            *Hub
	deliver        transport.DeliverFunc
	signer         *Signer
	originPatterns []string
	logger         *slog.Logger
}

// NewHandler creates a WebSocket handler. originPatterns follow
// websocket.AcceptOptions; an empty list allows only same-host origins.
func NewHandler(hub *Hub, deliver transport.DeliverFunc, signer *Signer, originPatterns []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:            hub,
		deliver:        deliver,
		signer:         signer,
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade. A conversation
// is resumed only from a token this server issued; otherwise a new one is
// started.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chatID, err := h.signer.Verify(r.URL.Query().Get("token"))
	if err != nil {
		chatID = uuid.NewString()
	}
	token, err := h.signer.Issue(chatID)
	if err != nil {
		h.logger.Error("Failed to issue web chat token", "error", err)
		http.Error(w, `{"error":"token unavailable"}`, http.StatusInternalServerError)
		return
	}
	conversationID := transport.ConversationID(Channel, chatID)
	h.logger.Info("Web chat connection request", "conversation_id", conversationID, "ip", remoteIP(r))

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("Failed to accept WebSocket", "error", err, "conversation_id", conversationID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "conversation_id", conversationID)
		}
	}()

	h.hub.Register(chatID, ws)
	defer h.hub.Unregister(chatID, ws)

	ctx := r.Context()
	if err := write(ctx, ws, outbound{Type: "hello", ConversationID: chatID, Token: token}); err != nil {
		h.logger.Debug("Failed to send hello", "error", err)
		return
	}
	h.readLoop(ctx, ws, conversationID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, conversationID string) {
	for {
		var msg inbound
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed by client", "conversation_id", conversationID)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "conversation_id", conversationID)
			}
			return
		}

		if msg.Type == "ping" {
			if err := write(ctx, ws, outbound{Type: "pong"}); err != nil {
				h.logger.Debug("Failed to send pong", "error", err)
			}
			continue
		}

		ev, ok := toEvent(msg)
		if !ok {
			_ = write(ctx, ws, outbound{Type: "error", Error: "unknown_message_type"})
			continue
		}
		// The engine outlives this request; the mailbox owns cancellation.
		if err := h.deliver(context.WithoutCancel(ctx), conversationID, ev); err != nil {
			h.logger.Warn("Dropped web chat event", "conversation_id", conversationID, "error", err)
			_ = write(ctx, ws, outbound{Type: "error", Error: "busy"})
		}
	}
}

func toEvent(msg inbound) (transport.Event, bool) {
	switch msg.Type {
	case "text":
		return transport.Text(msg.Text), true
	case "button":
		return transport.Press(msg.Code), true
	case "command":
		return transport.Command(msg.Command), true
	case "attachment":
		return transport.Attach(domain.AttachmentKind(msg.Attachment.Type), msg.Attachment.Ref), true
	default:
		return transport.Event{}, false
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
