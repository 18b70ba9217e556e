package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/transport"
	"github.com/google/uuid"
)

// Messenger delivers outbound chat messages.
type Messenger interface {
	DeliverText(ctx context.Context, conversationID, text string) error
	DeliverButtons(ctx context.Context, conversationID, text string, buttons [][]transport.Button) error
}

// IdentityVerifier resolves a raw cédula to an authorized reporter.
// Implementations return ErrInvalidCedula for malformed input and
// ErrUnknownCedula when the reporter is not authorized.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (domain.Identity, error)
}

// ReportSaver persists a confirmed report.
type ReportSaver interface {
	SaveReport(ctx context.Context, r *domain.Report) error
}

// Sentinel errors returned by IdentityVerifier implementations.
var (
	ErrInvalidCedula = errors.New("cedula must contain only digits")
	ErrUnknownCedula = errors.New("cedula not found")
)

// Engine runs the report conversation for every chat.
type Engine struct {
	sessions *SessionStore
	table    *table
	msg      Messenger
	ids      IdentityVerifier
	reports  ReportSaver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	operatorContact  string
	emergencyContact string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source used for report identifiers.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the submission id generator.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// WithOperatorContact sets who users are told to contact on fatal errors.
func WithOperatorContact(contact string) Option {
	return func(e *Engine) { e.operatorContact = contact }
}

// WithEmergencyContact sets the line shown when a roja event is reported.
func WithEmergencyContact(contact string) Option {
	return func(e *Engine) { e.emergencyContact = contact }
}

// NewEngine builds the engine and its complete transition table.
func NewEngine(msg Messenger, ids IdentityVerifier, reports ReportSaver, opts ...Option) *Engine {
	e := &Engine{
		table:           newTable(),
		msg:             msg,
		ids:             ids,
		reports:         reports,
		logger:          slog.Default(),
		now:             time.Now,
		newID:           uuid.NewString,
		operatorContact: "el administrador del sistema",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sessions = NewSessionStore(e.now)
	return e
}

// Sessions exposes the live session store.
func (e *Engine) Sessions() *SessionStore {
	return e.sessions
}

// turn is the context of one dispatched event.
type turn struct {
	ctx context.Context
	s   *Session
	ev  transport.Event
}

// Handle adapts Dispatch to transport.Handler.
func (e *Engine) Handle(ctx context.Context, conversationID string, ev transport.Event) {
	if err := e.Dispatch(ctx, conversationID, ev); err != nil {
		e.logger.Warn("Conversation turn failed",
			"conversation_id", conversationID,
			"error", err)
	}
}

// Dispatch processes exactly one inbound event for a conversation. Every
// handler outcome is settled here: user-facing failures are answered and
// the session keeps its data. The returned error is informational.
func (e *Engine) Dispatch(ctx context.Context, conversationID string, ev transport.Event) (err error) {
	s := e.sessions.Get(conversationID)
	t := &turn{ctx: ctx, s: s, ev: ev}
	before := s.State

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Workflow handler panicked",
				"conversation_id", conversationID,
				"state", s.State.String(),
				"panic", r)
			e.notify(t, msgGenericFailure)
			err = fmt.Errorf("handler panic in %s: %v", s.State, r)
		}
	}()

	h, _ := e.table.resolve(s.State, ev)
	err = e.settle(t, h(e, t))
	s.UpdatedAt = e.now()

	e.logger.Debug("Conversation turn",
		"conversation_id", conversationID,
		"event", ev.Kind.String(),
		"from", before.String(),
		"to", s.State.String())
	return err
}

// settle turns a handler error into the user-visible outcome.
func (e *Engine) settle(t *turn, err error) error {
	if err == nil {
		return nil
	}

	var (
		inputErr     *InputValidationError
		authErr      *AuthorizationError
		branchErr    *UnknownBranchError
		persistErr   *PersistenceError
		transportErr *TransportError
		invalidErr   *InvalidTransitionError
	)

	switch {
	case errors.As(err, &inputErr):
		return e.reprompt(t, inputErr.Reason)
	case errors.As(err, &invalidErr):
		return e.reprompt(t, msgNotValidHere)
	case errors.As(err, &authErr):
		e.terminate(t)
		e.logger.Info("Identity rejected", "conversation_id", t.s.ID)
		return e.asTransport(e.msg.DeliverButtons(t.ctx, t.s.ID, msgAccessDenied, retryCedulaKeyboard()))
	case errors.As(err, &branchErr):
		e.logger.Error("Unknown report branch",
			"conversation_id", t.s.ID,
			"severity", string(branchErr.Severity),
			"category", string(branchErr.Category),
			"error", err)
		e.terminate(t)
		e.notify(t, fmt.Sprintf(msgFatalBranch, e.operatorContact))
		return err
	case errors.As(err, &persistErr):
		e.logger.Error("Persistence failed",
			"conversation_id", t.s.ID,
			"op", persistErr.Op,
			"error", persistErr.Err)
		return e.reprompt(t, persistenceMessage(persistErr.Op))
	case errors.As(err, &transportErr):
		e.logger.Error("Message delivery failed",
			"conversation_id", t.s.ID,
			"state", t.s.State.String(),
			"error", err)
		return err
	default:
		e.logger.Error("Unexpected workflow error",
			"conversation_id", t.s.ID,
			"state", t.s.State.String(),
			"error", err)
		e.notify(t, msgGenericFailure)
		return err
	}
}

// reprompt sends notice followed by the current state's question again.
func (e *Engine) reprompt(t *turn, notice string) error {
	if notice != "" {
		if err := e.msg.DeliverText(t.ctx, t.s.ID, notice); err != nil {
			return &TransportError{Err: err}
		}
	}
	if err := e.prompt(t, t.s.State); err != nil {
		e.logger.Error("Re-prompt failed", "conversation_id", t.s.ID, "error", err)
		return err
	}
	return nil
}

// notify sends a best-effort message when the turn is already failing.
func (e *Engine) notify(t *turn, text string) {
	if err := e.msg.DeliverText(t.ctx, t.s.ID, text); err != nil {
		e.logger.Warn("Failed to notify user", "conversation_id", t.s.ID, "error", err)
	}
}

// terminate ends the conversation and forgets the session.
func (e *Engine) terminate(t *turn) {
	t.s.Draft.Reset()
	t.s.History = nil
	t.s.clearEdit()
	t.s.State = StateIdle
	e.sessions.Delete(t.s.ID)
}

// enter moves to st and asks its question without touching history.
func (e *Engine) enter(t *turn, st State) error {
	t.s.State = st
	return e.prompt(t, st)
}

// advance records the current question in history and moves forward.
func (e *Engine) advance(t *turn, st State) error {
	if _, ok := FieldOf(t.s.State); ok || t.s.State == StateCategory || t.s.State == StateSeverity {
		t.s.push(t.s.State)
	}
	if st == StateSummary {
		return e.enterSummary(t)
	}
	return e.enter(t, st)
}

// answer is the single "store a field, then route by mode" step. In normal
// flow the branch decides what comes next and its defaults are applied; in
// edit mode only f changes and the modification prompt follows.
func (e *Engine) answer(t *turn, f Field, set func(d *domain.ReportDraft)) error {
	set(&t.s.Draft)

	if t.s.editing() {
		t.s.clearEdit()
		return e.enterModifyConfirm(t)
	}

	next, defaults, err := NextQuestion(t.s.Draft.Severity, t.s.Draft.Category, f)
	if err != nil {
		return err
	}
	for _, d := range defaults {
		applyDefault(&t.s.Draft, d)
	}
	st, _ := next.State()
	return e.advance(t, st)
}

func (e *Engine) asTransport(err error) error {
	if err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

func (e *Engine) send(t *turn, text string) error {
	return e.asTransport(e.msg.DeliverText(t.ctx, t.s.ID, text))
}

func (e *Engine) sendButtons(t *turn, text string, rows [][]transport.Button) error {
	return e.asTransport(e.msg.DeliverButtons(t.ctx, t.s.ID, text, rows))
}

func (e *Engine) invalid(t *turn) error {
	if t.s.State == StateIdle {
		return e.send(t, msgIdleHint)
	}
	return &InvalidTransitionError{State: t.s.State, Event: t.ev.Summary()}
}
