package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/transport"
)

const testConv = "tg:1001"

var testClock = time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)

type sentMessage struct {
	Text    string
	Buttons [][]transport.Button
}

type fakeMessenger struct {
	mu   sync.Mutex
	out  []sentMessage
	fail error
}

func (f *fakeMessenger) DeliverText(_ context.Context, _, text string) error {
	return f.record(text, nil)
}

func (f *fakeMessenger) DeliverButtons(_ context.Context, _, text string, buttons [][]transport.Button) error {
	return f.record(text, buttons)
}

func (f *fakeMessenger) record(text string, buttons [][]transport.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.out = append(f.out, sentMessage{Text: text, Buttons: buttons})
	return nil
}

func (f *fakeMessenger) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.out) == 0 {
		return sentMessage{}
	}
	return f.out[len(f.out)-1]
}

func (f *fakeMessenger) all() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.out...)
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = nil
}

// fakeDirectory authorizes the cédulas it holds.
type fakeDirectory struct {
	names map[string]string
	err   error
	panic bool
}

func (d *fakeDirectory) Verify(_ context.Context, raw string) (domain.Identity, error) {
	if d.panic {
		panic("directory exploded")
	}
	if d.err != nil {
		return domain.Identity{}, d.err
	}
	if raw == "" || strings.Trim(raw, "0123456789") != "" {
		return domain.Identity{}, ErrInvalidCedula
	}
	name, ok := d.names[raw]
	if !ok {
		return domain.Identity{}, ErrUnknownCedula
	}
	return domain.Identity{Cedula: raw, DisplayName: name}, nil
}

type fakeReports struct {
	mu    sync.Mutex
	saved []*domain.Report
	err   error
}

func (r *fakeReports) SaveReport(_ context.Context, rep *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, rep)
	return nil
}

type harness struct {
	t       *testing.T
	engine  *Engine
	msg     *fakeMessenger
	dir     *fakeDirectory
	reports *fakeReports
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		msg:     &fakeMessenger{},
		dir:     &fakeDirectory{names: map[string]string{"12345678": "María González"}},
		reports: &fakeReports{},
		now:     testClock,
	}
	h.engine = NewEngine(h.msg, h.dir, h.reports,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return h.now }),
		WithIDGenerator(func() string { return "sub-1" }),
		WithOperatorContact("Ana María Pérez"),
	)
	return h
}

func (h *harness) send(ev transport.Event) error {
	h.t.Helper()
	return h.engine.Dispatch(context.Background(), testConv, ev)
}

func (h *harness) must(evs ...transport.Event) {
	h.t.Helper()
	for _, ev := range evs {
		if err := h.send(ev); err != nil {
			h.t.Fatalf("Dispatch(%s) in %s failed: %v", ev.Summary(), h.state(), err)
		}
	}
}

func (h *harness) session() *Session {
	h.t.Helper()
	s, ok := h.engine.Sessions().Peek(testConv)
	if !ok {
		h.t.Fatal("expected a live session")
	}
	return s
}

func (h *harness) state() State {
	s, ok := h.engine.Sessions().Peek(testConv)
	if !ok {
		return StateIdle
	}
	return s.State
}

func (h *harness) login() {
	h.t.Helper()
	h.must(transport.Text("hola"), transport.Text("12345678"))
	if got := h.state(); got != StateSeverity {
		h.t.Fatalf("after login state = %s, want severity", got)
	}
}

// answerCurrent replies to whatever question is pending with a plausible value.
func (h *harness) answerCurrent() {
	h.t.Helper()
	switch st := h.state(); st {
	case StateMediaType:
		h.must(transport.Press("prensa"))
	case StateViolence, StateThreat, StateVerified:
		h.must(transport.Press(CodeNo))
	case StateMultimedia:
		h.must(transport.Press(CodeContinueMedia))
	default:
		if _, ok := FieldOf(st); !ok {
			h.t.Fatalf("answerCurrent called in non-question state %s", st)
		}
		h.must(transport.Text("respuesta " + st.String()))
	}
}

// walk picks severity and category, then answers until the summary,
// returning the question states visited in order.
func (h *harness) walk(sev domain.Severity, cat domain.Category) []State {
	h.t.Helper()
	h.must(transport.Press(sev.Label()), transport.Press(string(cat)))
	var visited []State
	for i := 0; h.state() != StateSummary; i++ {
		if i > 20 {
			h.t.Fatalf("branch %s/%s never reached the summary", sev, cat)
		}
		visited = append(visited, h.state())
		h.answerCurrent()
	}
	return visited
}

func isTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
