package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/dreamer/internal/llm"
)

func TestOpenSessionUsesServerFromEnvironment(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	prev := serverURL
	serverURL = ""
	t.Cleanup(func() { serverURL = prev })
	t.Setenv("DREAMER_SERVER_URL", endpoint)

	sess, err := openSession(context.Background())
	require.Error(t, err, "the session dials DREAMER_SERVER_URL instead of running locally")
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, llm.ErrTransport)
	assert.Contains(t, err.Error(), "connect to server")
}

func TestOpenSessionFallsBackToLocal(t *testing.T) {
	prev := serverURL
	serverURL = ""
	t.Cleanup(func() { serverURL = prev })
	t.Setenv("DREAMER_SERVER_URL", "")

	sess, err := openSession(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &localSession{}, sess)
}
