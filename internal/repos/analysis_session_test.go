package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/pusulaai/pusula-backend/internal/repos/testutil"
	"github.com/pusulaai/pusula-backend/internal/types"
)

func TestAnalysisSessionRepoCreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewAnalysisSessionRepo(db, testutil.Logger(t))

	session := &types.AnalysisSession{
		YoutubeURL: "https://www.youtube.com/watch?v=abc123",
		Status:     types.SessionStatusStarted,
	}
	created, err := repo.Create(ctx, nil, session)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("Create did not assign an id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("Create did not set timestamps")
	}

	got, err := repo.GetByID(ctx, nil, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.YoutubeURL != session.YoutubeURL {
		t.Fatalf("GetByID: got=%+v", got)
	}

	missing, err := repo.GetByID(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID missing: want nil, got=%+v", missing)
	}
}

func TestAnalysisSessionRepoUpdateFields(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewAnalysisSessionRepo(db, testutil.Logger(t))

	session, err := repo.Create(ctx, nil, &types.AnalysisSession{
		YoutubeURL: "https://youtu.be/xyz",
		Status:     types.SessionStatusStarted,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.UpdateFields(ctx, nil, session.ID, map[string]interface{}{
		"video_title":  "Intro to Robotics",
		"current_step": 1,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.VideoTitle != "Intro to Robotics" || got.CurrentStep != 1 {
		t.Fatalf("UpdateFields not applied: %+v", got)
	}
	if got.UpdatedAt.Before(session.UpdatedAt) {
		t.Fatalf("UpdateFields should refresh updated_at")
	}
}

func TestAnalysisSessionRepoTerminalGuard(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewAnalysisSessionRepo(db, testutil.Logger(t))

	session, err := repo.Create(ctx, nil, &types.AnalysisSession{
		YoutubeURL: "https://youtu.be/guard",
		Status:     types.SessionStatusStarted,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	terminal := []string{types.SessionStatusCompleted, types.SessionStatusFailed}

	applied, err := repo.UpdateFieldsUnlessStatus(ctx, nil, session.ID, terminal, map[string]interface{}{
		"status": types.SessionStatusCompleted,
	})
	if err != nil || !applied {
		t.Fatalf("first guarded update: applied=%v err=%v", applied, err)
	}

	applied, err = repo.UpdateFieldsUnlessStatus(ctx, nil, session.ID, terminal, map[string]interface{}{
		"status":       types.SessionStatusFailed,
		"current_step": 3,
	})
	if err != nil {
		t.Fatalf("second guarded update: %v", err)
	}
	if applied {
		t.Fatalf("guarded update should be rejected once the session is terminal")
	}

	got, err := repo.GetByID(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.SessionStatusCompleted || got.CurrentStep != 0 {
		t.Fatalf("terminal session was mutated: %+v", got)
	}
}
