package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultInterval = 1 * time.Hour
	// stored games still active after this long are marked abandoned
	abandonAfter = 24 * time.Hour
)

type SessionCleaner interface {
	CleanupOldSessions() int
}

type GameCleaner interface {
	CleanupAbandoned(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Worker struct {
	Sessions SessionCleaner
	Games    GameCleaner
	Interval time.Duration
	logger   zerolog.Logger
}

func NewWorker(sessions SessionCleaner, games GameCleaner, logger zerolog.Logger) *Worker {
	return &Worker{
		Sessions: sessions,
		Games:    games,
		Interval: DefaultInterval,
		logger:   logger.With().Str("component", "cleanup").Logger(),
	}
}

// Start runs a cleanup now and then every Interval until ctx is done
func (w *Worker) Start(ctx context.Context) {
	go func() {
		w.RunOnce(ctx)

		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.logger.Info().Msg("background worker stopped")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
	w.logger.Info().Dur("interval", w.Interval).Msg("background worker started")
}

// RunOnce executes the actual cleanup logic
func (w *Worker) RunOnce(ctx context.Context) {
	w.logger.Debug().Msg("starting scheduled cleanup task")

	if w.Sessions != nil {
		w.Sessions.CleanupOldSessions()
	}
	if w.Games == nil {
		return
	}

	abandoned, err := w.Games.CleanupAbandoned(ctx, abandonAfter)
	if err != nil {
		w.logger.Error().Err(err).Msg("error cleaning up stored games")
		return
	}
	if abandoned > 0 {
		w.logger.Info().Int64("abandoned", abandoned).Msg("marked stale stored games as abandoned")
	}
}
