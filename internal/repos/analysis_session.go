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

type AnalysisSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.AnalysisSession) (*types.AnalysisSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AnalysisSession, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error

	// UpdateFieldsUnlessStatus applies updates only while the session is not
	// in one of the disallowed statuses. Returns false when the guard
	// rejected the write (terminal session).
	UpdateFieldsUnlessStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
}

type analysisSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisSessionRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisSessionRepo {
	return &analysisSessionRepo{db: db, log: baseLog.With("repo", "AnalysisSessionRepo")}
}

func (r *analysisSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.AnalysisSession) (*types.AnalysisSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if session == nil {
		return nil, errors.New("nil session")
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *analysisSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AnalysisSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var session types.AnalysisSession
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == uuid.Nil {
		return nil, nil
	}
	return &session, nil
}

func (r *analysisSessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return errors.New("missing session id")
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.AnalysisSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *analysisSessionRepo) UpdateFieldsUnlessStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, errors.New("missing session id")
	}
	if len(updates) == 0 {
		return true, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	q := transaction.WithContext(ctx).
		Model(&types.AnalysisSession{}).
		Where("id = ?", id)
	if len(disallowedStatuses) > 0 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
