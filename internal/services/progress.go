package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/repos"
	"github.com/pusulaai/pusula-backend/internal/types"
)

// ProgressNotifier pushes a progress event to live observers. The ws.Hub
// implements it directly; in multi-node deployments the redis bus does.
type ProgressNotifier interface {
	BroadcastProgress(update *types.ProgressUpdate)
}

// ProgressService is the append-only progress log for analysis sessions.
// Every appended event is also mirrored to the notification channel, so a
// persistence failure is reported to the caller without losing the
// realtime signal.
type ProgressService interface {
	Append(ctx context.Context, sessionID uuid.UUID, step int, message string, details *types.ProgressDetails) (*types.ProgressUpdate, error)
	ListLatest(ctx context.Context, sessionID uuid.UUID) ([]*types.ProgressUpdate, error)
}

type progressService struct {
	log      *logger.Logger
	repo     repos.ProgressUpdateRepo
	notifier ProgressNotifier
}

func NewProgressService(baseLog *logger.Logger, repo repos.ProgressUpdateRepo, notifier ProgressNotifier) ProgressService {
	return &progressService{
		log:      baseLog.With("service", "ProgressService"),
		repo:     repo,
		notifier: notifier,
	}
}

func (s *progressService) Append(ctx context.Context, sessionID uuid.UUID, step int, message string, details *types.ProgressDetails) (*types.ProgressUpdate, error) {
	update := &types.ProgressUpdate{
		ID:        uuid.New(),
		SessionID: sessionID,
		Step:      step,
		Message:   message,
		Timestamp: time.Now(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.log.Warn("Failed to marshal progress details", "error", err)
		} else {
			update.Details = datatypes.JSON(raw)
		}
	}

	_, persistErr := s.repo.Create(ctx, nil, update)

	if s.notifier != nil {
		s.notifier.BroadcastProgress(update)
	}
	return update, persistErr
}

func (s *progressService) ListLatest(ctx context.Context, sessionID uuid.UUID) ([]*types.ProgressUpdate, error) {
	return s.repo.ListBySessionID(ctx, nil, sessionID)
}
