package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/workflow"
)

type fakeSource struct {
	names map[string]string
	err   error
	calls int
}

func (f *fakeSource) LookupIdentity(_ context.Context, cedula string) (domain.Identity, bool, error) {
	f.calls++
	if f.err != nil {
		return domain.Identity{}, false, f.err
	}
	name, ok := f.names[cedula]
	if !ok {
		return domain.Identity{}, false, nil
	}
	return domain.Identity{Cedula: cedula, DisplayName: name}, true, nil
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"12345678", "12345678", true},
		{"  12345678\n", "12345678", true},
		{"12.345.678", "12345678", true},
		{"V-12345678", "", false},
		{"12a45", "", false},
		{"", "", false},
		{"1234567890123", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	src := &fakeSource{names: map[string]string{"12345678": "María"}}
	d := NewDirectory(src, nil)
	ctx := context.Background()

	id, err := d.Verify(ctx, "12.345.678")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.DisplayName != "María" || id.Cedula != "12345678" {
		t.Fatalf("unexpected identity %+v", id)
	}

	if _, err := d.Verify(ctx, "abc"); !errors.Is(err, workflow.ErrInvalidCedula) {
		t.Fatalf("err = %v, want ErrInvalidCedula", err)
	}
	if src.calls != 1 {
		t.Fatalf("malformed input reached the source (%d calls)", src.calls)
	}

	if _, err := d.Verify(ctx, "999"); !errors.Is(err, workflow.ErrUnknownCedula) {
		t.Fatalf("err = %v, want ErrUnknownCedula", err)
	}
}

func TestVerifyWrapsSourceErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	d := NewDirectory(&fakeSource{err: boom}, nil)
	_, err := d.Verify(context.Background(), "123")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if errors.Is(err, workflow.ErrUnknownCedula) || errors.Is(err, workflow.ErrInvalidCedula) {
		t.Fatal("source failure must not look like a verdict")
	}
}

func TestMask(t *testing.T) {
	t.Parallel()

	if got := mask("12345678"); got != "*****678" {
		t.Fatalf("mask = %q", got)
	}
	if got := mask("12"); got != "***" {
		t.Fatalf("mask = %q", got)
	}
}
