package repos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pusulaai/pusula-backend/internal/logger"
	"github.com/pusulaai/pusula-backend/internal/types"
)

type BTKCourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, courses []*types.BTKCourse) ([]*types.BTKCourse, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.BTKCourse, error)
	ListByCategory(ctx context.Context, tx *gorm.DB, category string) ([]*types.BTKCourse, error)
	CountActive(ctx context.Context, tx *gorm.DB) (int64, error)
}

type btkCourseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBTKCourseRepo(db *gorm.DB, baseLog *logger.Logger) BTKCourseRepo {
	return &btkCourseRepo{db: db, log: baseLog.With("repo", "BTKCourseRepo")}
}

func (r *btkCourseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.BTKCourse) ([]*types.BTKCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(courses) == 0 {
		return []*types.BTKCourse{}, nil
	}
	now := time.Now()
	for _, course := range courses {
		if course == nil {
			return nil, errors.New("nil course in batch")
		}
		if course.ID == uuid.Nil {
			course.ID = uuid.New()
		}
		if course.CreatedAt.IsZero() {
			course.CreatedAt = now
		}
		if course.UpdatedAt.IsZero() {
			course.UpdatedAt = now
		}
	}
	if err := transaction.WithContext(ctx).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *btkCourseRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.BTKCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BTKCourse
	if err := transaction.WithContext(ctx).
		Where("is_active = ?", true).
		Order("title ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *btkCourseRepo) ListByCategory(ctx context.Context, tx *gorm.DB, category string) ([]*types.BTKCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BTKCourse
	if category == "" {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("is_active = ? AND LOWER(category) LIKE ?", true, "%"+strings.ToLower(category)+"%").
		Order("title ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *btkCourseRepo) CountActive(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.BTKCourse{}).
		Where("is_active = ?", true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
