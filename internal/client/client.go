// Package client talks to a dreamer server over its session websocket.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/models"
)

// DefaultEndpoint is used when no endpoint is given and DREAMER_SERVER_URL is unset.
const DefaultEndpoint = "ws://localhost:8585/ws"

const (
	handshakeTimeout = 10 * time.Second
	closeWait        = time.Second
	responseBuffer   = 8
)

// ErrNotFound is matched by a RemoteError for an unknown journal entry.
var ErrNotFound = errors.New("not found")

// RemoteError is an error frame returned by the server. The session stays
// open after one.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Is maps error kinds onto the sentinels used for local sessions, so callers
// can handle both the same way.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case llm.ErrTransport:
		return e.Kind == models.ErrorKindTransport
	case llm.ErrConfiguration:
		return e.Kind == models.ErrorKindConfiguration
	case ErrNotFound:
		return e.Kind == models.ErrorKindNotFound
	default:
		return false
	}
}

// Client is one session on a dreamer server. The server keeps a journal per
// connection, so the journal lives as long as the Client. Calls are
// serialized.
type Client struct {
	conn *websocket.Conn

	mu        sync.Mutex
	responses chan models.Response
	closing   chan struct{}
	done      chan struct{}
	readErr   error
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a session. If endpoint is empty, DREAMER_SERVER_URL or
// DefaultEndpoint is used. http(s) URLs and bare host:port are accepted.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = os.Getenv("DREAMER_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	wsURL, err := websocketURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: websocket connect %s: %w", llm.ErrTransport, wsURL, err)
	}

	c := &Client{
		conn:      conn,
		responses: make(chan models.Response, responseBuffer),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// websocketURL normalizes endpoint to a ws(s) URL ending in /ws.
func websocketURL(endpoint string) (string, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "ws://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// readLoop keeps reading so that server pings are answered while idle.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var resp models.Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.readErr = err
			return
		}
		select {
		case c.responses <- resp:
		case <-c.closing:
			return
		}
	}
}

// Interpret sends a dream for analysis. Server-side failures are returned as
// *RemoteError.
func (c *Client) Interpret(ctx context.Context, dream string) (*models.AnalysisResult, error) {
	resp, err := c.call(ctx, models.Request{Type: models.TypeInterpret, Dream: dream})
	if err != nil {
		return nil, err
	}
	if resp.Analysis == nil {
		return nil, fmt.Errorf("%w: analysis missing from response", llm.ErrTransport)
	}
	return resp.Analysis, nil
}

// Journal returns the session's entries, newest first.
func (c *Client) Journal(ctx context.Context) ([]models.JournalEntry, error) {
	resp, err := c.call(ctx, models.Request{Type: models.TypeJournal})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Entry returns one journal entry by ID.
func (c *Client) Entry(ctx context.Context, id string) (*models.JournalEntry, error) {
	resp, err := c.call(ctx, models.Request{Type: models.TypeEntry, EntryID: id})
	if err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

// Stats returns the most common symbols and emotions. Zero limits use the
// server defaults.
func (c *Client) Stats(ctx context.Context, symbols, emotions int) (*models.JournalStats, error) {
	resp, err := c.call(ctx, models.Request{Type: models.TypeStats, Symbols: symbols, Emotions: emotions})
	if err != nil {
		return nil, err
	}
	if resp.Stats == nil {
		return &models.JournalStats{}, nil
	}
	return resp.Stats, nil
}

func (c *Client) call(ctx context.Context, req models.Request) (models.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req.ID = uuid.NewString()

	// Zero deadline when ctx has none.
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return models.Response{}, fmt.Errorf("%w: %w", llm.ErrTransport, err)
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return models.Response{}, fmt.Errorf("%w: send request: %w", llm.ErrTransport, err)
	}

	for {
		select {
		case resp := <-c.responses:
			if resp.ID != req.ID {
				// Late answer to a request whose caller gave up.
				continue
			}
			if resp.Error != nil {
				return resp, &RemoteError{Kind: resp.Error.Kind, Message: resp.Error.Message}
			}
			return resp, nil
		case <-c.done:
			return models.Response{}, fmt.Errorf("%w: connection closed: %w", llm.ErrTransport, c.readErr)
		case <-ctx.Done():
			return models.Response{}, ctx.Err()
		}
	}
}

// Close ends the session. The server discards its journal.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closing)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWait))
		c.closeErr = c.conn.Close()
		<-c.done
	})
	return c.closeErr
}
