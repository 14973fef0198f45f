package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/dreamer/internal/journal"
	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/models"
	"github.com/raphaelgruber/dreamer/internal/service"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 10 * time.Second
	// pongWait bounds how long an idle client may stay silent. Interpretations
	// run between reads, so they are not bounded by it.
	pongWait = 3 * pingInterval

	maxMessageSize = 64 << 10
)

// session is one websocket connection with its own journal. Requests are
// handled one at a time in arrival order.
type session struct {
	conn   *websocket.Conn
	svc    *service.DreamService
	logger *slog.Logger
}

func newSession(conn *websocket.Conn, deps Dependencies, logger *slog.Logger) *session {
	j := journal.New()
	return &session{
		conn:   conn,
		svc:    service.NewDreamService(deps.Interpreter, j, deps.Metrics, logger),
		logger: logger,
	}
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() { _ = s.conn.Close() }()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(ctx, done)

	s.logger.Info("session started")
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("session read failed", "error", err)
			}
			s.logger.Info("session closed", "entries", s.svc.Journal().Len())
			return
		}

		var req models.Request
		var resp models.Response
		if err := json.Unmarshal(data, &req); err != nil {
			resp = errorResponse("", models.ErrorKindInvalidRequest, "malformed request: "+err.Error())
		} else {
			resp = s.handle(ctx, req)
		}

		if err := s.write(resp); err != nil {
			s.logger.Warn("session write failed", "error", err)
			return
		}
	}
}

// keepAlive pings the client and closes the connection when ctx is done,
// which unblocks the read loop.
func (s *session) keepAlive(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = s.conn.Close()
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *session) write(resp models.Response) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(resp)
}

func (s *session) handle(ctx context.Context, req models.Request) models.Response {
	if err := validateStruct(req); err != nil {
		return errorResponse(req.ID, models.ErrorKindInvalidRequest, err.Error())
	}

	switch req.Type {
	case models.TypeInterpret:
		analysis, err := s.svc.Analyze(ctx, req.Dream)
		if err != nil {
			return errorResponse(req.ID, errorKind(err), llm.Describe(err))
		}
		return models.Response{ID: req.ID, Type: models.TypeAnalysis, Analysis: analysis.Result()}

	case models.TypeJournal:
		return models.Response{ID: req.ID, Type: models.TypeJournal, Entries: s.svc.Journal().Recent()}

	case models.TypeEntry:
		entry, ok := s.svc.Journal().Get(req.EntryID)
		if !ok {
			return errorResponse(req.ID, models.ErrorKindNotFound, "entry not found: "+req.EntryID)
		}
		return models.Response{ID: req.ID, Type: models.TypeEntry, Entry: &entry}

	case models.TypeStats:
		symbols, emotions := req.Symbols, req.Emotions
		if symbols == 0 {
			symbols = journal.DefaultTopSymbols
		}
		if emotions == 0 {
			emotions = journal.DefaultTopEmotions
		}
		stats := s.svc.Stats(symbols, emotions)
		return models.Response{ID: req.ID, Type: models.TypeStats, Stats: &stats}
	}

	// Unreachable after validation.
	return errorResponse(req.ID, models.ErrorKindInvalidRequest, "unknown request type: "+req.Type)
}

func errorResponse(id, kind, message string) models.Response {
	return models.Response{
		ID:    id,
		Type:  models.TypeError,
		Error: &models.ErrorPayload{Kind: kind, Message: message},
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, llm.ErrEmptyDream):
		return models.ErrorKindInvalidRequest
	case errors.Is(err, llm.ErrConfiguration):
		return models.ErrorKindConfiguration
	default:
		return models.ErrorKindTransport
	}
}
