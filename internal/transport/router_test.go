package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	texts []string
}

func (r *recordingSender) DeliverText(_ context.Context, id, text string) error {
	r.texts = append(r.texts, id+"|"+text)
	return nil
}

func (r *recordingSender) DeliverButtons(_ context.Context, id, text string, _ [][]Button) error {
	r.texts = append(r.texts, id+"|"+text)
	return nil
}

func TestRouterDispatchesByChannel(t *testing.T) {
	t.Parallel()

	tg, web := &recordingSender{}, &recordingSender{}
	r := NewRouter()
	r.Register("tg", tg)
	r.Register("web", web)

	require.NoError(t, r.DeliverText(context.Background(), "tg:42", "hola"))
	require.NoError(t, r.DeliverButtons(context.Background(), "web:abc", "elige", nil))

	assert.Equal(t, []string{"tg:42|hola"}, tg.texts)
	assert.Equal(t, []string{"web:abc|elige"}, web.texts)
	assert.Equal(t, 2, r.Channels())
}

func TestRouterUnknownChannel(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	assert.Error(t, r.DeliverText(context.Background(), "sms:1", "x"))
	assert.Error(t, r.DeliverText(context.Background(), "noprefix", "x"))
}

func TestCommandStripsSlash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "start", Command("/start").Code)
	assert.Equal(t, "cancelar", Command("cancelar").Code)
}
