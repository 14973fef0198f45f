package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/raphaelgruber/dreamer/internal/client"
	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/models"
	"github.com/raphaelgruber/dreamer/internal/server"
)

type interpreterFunc func(ctx context.Context, dream string) (string, error)

func (f interpreterFunc) Interpret(ctx context.Context, dream string) (string, error) {
	return f(ctx, dream)
}

func newTestServer(t *testing.T, interp interpreterFunc) *httptest.Server {
	t.Helper()
	srv := server.New(server.Dependencies{
		Interpreter: interp,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return httptest.NewServer(srv.Handler())
}

func TestClientSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts := newTestServer(t, func(_ context.Context, dream string) (string, error) {
		if strings.Contains(dream, "fail") {
			return "", &llm.AnalysisError{Model: "test", Err: errors.New("connection refused")}
		}
		return "### Symbols\nWater: renewal\n### Emotional Tone\ncalm\n", nil
	})
	defer ts.Close()

	ctx := context.Background()
	c, err := client.Dial(ctx, ts.URL)
	require.NoError(t, err)

	result, err := c.Interpret(ctx, "I swam in a lake")
	require.NoError(t, err)
	assert.True(t, result.Structured)
	require.NotNil(t, result.Entry)
	assert.Equal(t, "I swam in a lake", result.Entry.Dream)

	_, err = c.Interpret(ctx, "this will fail")
	var remote *client.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, models.ErrorKindTransport, remote.Kind)
	assert.ErrorIs(t, err, llm.ErrTransport)
	assert.Contains(t, err.Error(), "Error analyzing dream")

	entries, err := c.Journal(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry, err := c.Entry(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entries[0].ID, entry.ID)

	_, err = c.Entry(ctx, "nope")
	assert.ErrorIs(t, err, client.ErrNotFound)

	stats, err := c.Stats(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.LabelCount{{Label: "Water", Count: 1}}, stats.Symbols)
	assert.Equal(t, []models.LabelCount{{Label: "calm", Count: 1}}, stats.Emotions)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	_, err = c.Journal(ctx)
	assert.ErrorIs(t, err, llm.ErrTransport)
}

func TestClientContextCancel(t *testing.T) {
	release := make(chan struct{})
	ts := newTestServer(t, func(ctx context.Context, _ string) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "### Symbols\nKey", nil
	})
	defer ts.Close()
	defer close(release)

	c, err := client.Dial(context.Background(), ts.URL)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Interpret(ctx, "a slow dream")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDialFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	url := ts.URL
	ts.Close()

	_, err := client.Dial(context.Background(), url)
	assert.ErrorIs(t, err, llm.ErrTransport)
}

func TestDialRejectsBadScheme(t *testing.T) {
	_, err := client.Dial(context.Background(), "ftp://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestRemoteErrorIs(t *testing.T) {
	tests := []struct {
		kind   string
		target error
		want   bool
	}{
		{models.ErrorKindTransport, llm.ErrTransport, true},
		{models.ErrorKindConfiguration, llm.ErrConfiguration, true},
		{models.ErrorKindNotFound, client.ErrNotFound, true},
		{models.ErrorKindInvalidRequest, llm.ErrTransport, false},
		{models.ErrorKindTransport, llm.ErrConfiguration, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			err := &client.RemoteError{Kind: tt.kind, Message: "boom"}
			assert.Equal(t, tt.want, errors.Is(err, tt.target))
		})
	}
}
