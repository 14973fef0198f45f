package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/raphaelgruber/dreamer/internal/client"
	"github.com/raphaelgruber/dreamer/internal/journal"
	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/models"
	"github.com/raphaelgruber/dreamer/internal/service"
)

// dreamSession is a journal session, either in-process or on a server.
type dreamSession interface {
	Interpret(ctx context.Context, dream string) (*models.AnalysisResult, error)
	// Journal returns entries newest first.
	Journal(ctx context.Context) ([]models.JournalEntry, error)
	Stats(ctx context.Context, symbols, emotions int) (*models.JournalStats, error)
	Close() error
}

// localSession runs analyses in-process against a journal that lives as
// long as the session.
type localSession struct {
	svc *service.DreamService
}

func newLocalSession(interp service.Interpreter) *localSession {
	return &localSession{
		svc: service.NewDreamService(interp, journal.New(), collector, logger),
	}
}

func (s *localSession) Interpret(ctx context.Context, dream string) (*models.AnalysisResult, error) {
	analysis, err := s.svc.Analyze(ctx, dream)
	if err != nil {
		return nil, err
	}
	return analysis.Result(), nil
}

func (s *localSession) Journal(context.Context) ([]models.JournalEntry, error) {
	return s.svc.Journal().Recent(), nil
}

func (s *localSession) Stats(_ context.Context, symbols, emotions int) (*models.JournalStats, error) {
	stats := s.svc.Stats(symbols, emotions)
	return &stats, nil
}

func (s *localSession) Close() error {
	return nil
}

// failingInterpreter stands in when the model could not be built, so that the
// configuration problem is reported on each attempt instead of aborting.
type failingInterpreter struct {
	err error
}

func (f failingInterpreter) Interpret(context.Context, string) (string, error) {
	return "", f.err
}

// openSession connects to --server, or DREAMER_SERVER_URL when the flag is
// unset, and otherwise builds a local session from the loaded config.
func openSession(ctx context.Context) (dreamSession, error) {
	endpoint := serverURL
	if endpoint == "" {
		endpoint = os.Getenv("DREAMER_SERVER_URL")
	}
	if endpoint != "" {
		c, err := client.Dial(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("connect to server: %w", err)
		}
		return c, nil
	}

	var interp service.Interpreter
	model, err := llm.NewModel(ctx, cfg, collector)
	if err != nil {
		logger.Warn("model unavailable", "provider", cfg.LLMProvider, "error", err)
		interp = failingInterpreter{err: err}
	} else {
		logger.Debug("model ready", "provider", cfg.LLMProvider, "model", model.Model())
		interp = model
	}
	return newLocalSession(interp), nil
}
