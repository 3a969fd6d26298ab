package game

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryRepository reads stored games
type HistoryRepository interface {
	GetGameByID(ctx context.Context, id string) (*domain.GameRecord, error)
	GetPlayerHistory(ctx context.Context, playerID string, limit int) ([]domain.GameRecord, error)
}

// Service is the entry point for game logic (facade)
type Service struct {
	Sessions *SessionManager
	History  HistoryRepository
}

func NewService(sessions *SessionManager, history HistoryRepository) *Service {
	return &Service{
		Sessions: sessions,
		History:  history,
	}
}

// GetGame returns the live game if it is still in memory and otherwise the
// stored record
func (s *Service) GetGame(ctx context.Context, gameID, playerID string) (*View, *domain.GameRecord, error) {
	if session, err := s.Sessions.GetSessionForPlayer(gameID, playerID); err == nil {
		view := session.View()
		return &view, nil, nil
	} else if !errors.Is(err, domain.ErrGameNotFound) {
		return nil, nil, err
	}

	if s.History == nil {
		return nil, nil, domain.ErrGameNotFound
	}
	record, err := s.History.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	if record.PlayerID != playerID {
		return nil, nil, domain.ErrNotAPlayer
	}
	return nil, record, nil
}

// PlayerHistory lists a player's stored games, newest first
func (s *Service) PlayerHistory(ctx context.Context, playerID string, limit int) ([]domain.GameRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if s.History == nil {
		return []domain.GameRecord{}, nil
	}

	records, err := s.History.GetPlayerHistory(ctx, playerID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load history for %s", playerID)
	}
	return records, nil
}
