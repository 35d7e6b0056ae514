package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/types"
)

type ProgressUpdateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, update *types.ProgressUpdate) (*types.ProgressUpdate, error)
	ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ProgressUpdate, error)
}

type progressUpdateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressUpdateRepo(db *gorm.DB, baseLog *logger.Logger) ProgressUpdateRepo {
	return &progressUpdateRepo{db: db, log: baseLog.With("repo", "ProgressUpdateRepo")}
}

func (r *progressUpdateRepo) Create(ctx context.Context, tx *gorm.DB, update *types.ProgressUpdate) (*types.ProgressUpdate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if update == nil {
		return nil, errors.New("nil progress update")
	}
	if update.SessionID == uuid.Nil {
		return nil, errors.New("missing session id")
	}
	if update.ID == uuid.Nil {
		update.ID = uuid.New()
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	if err := transaction.WithContext(ctx).Create(update).Error; err != nil {
		return nil, err
	}
	return update, nil
}

func (r *progressUpdateRepo) ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ProgressUpdate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ProgressUpdate
	if sessionID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
