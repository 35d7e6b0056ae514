package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pusulaai/pusula-backend/internal/repos/testutil"
	"github.com/pusulaai/pusula-backend/internal/types"
)

func TestProgressUpdateRepoListOrdering(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewProgressUpdateRepo(db, testutil.Logger(t))

	sessionID := uuid.New()
	base := time.Now().Add(-time.Minute)
	for i := 1; i <= 3; i++ {
		if _, err := repo.Create(ctx, nil, &types.ProgressUpdate{
			SessionID: sessionID,
			Step:      i,
			Message:   "step",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Create step %d: %v", i, err)
		}
	}
	// A different session must stay invisible.
	if _, err := repo.Create(ctx, nil, &types.ProgressUpdate{
		SessionID: uuid.New(),
		Step:      1,
		Message:   "other",
	}); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	rows, err := repo.ListBySessionID(ctx, nil, sessionID)
	if err != nil {
		t.Fatalf("ListBySessionID: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ListBySessionID: want 3 rows, got %d", len(rows))
	}
	for i := 0; i < len(rows)-1; i++ {
		if rows[i].Timestamp.Before(rows[i+1].Timestamp) {
			t.Fatalf("rows not ordered most-recent-first: %v then %v", rows[i].Timestamp, rows[i+1].Timestamp)
		}
	}
	if rows[0].Step != 3 {
		t.Fatalf("most recent row: want step 3, got %d", rows[0].Step)
	}
}

func TestProgressUpdateRepoRejectsMissingSession(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewProgressUpdateRepo(db, testutil.Logger(t))

	if _, err := repo.Create(ctx, nil, &types.ProgressUpdate{Step: 1, Message: "no session"}); err == nil {
		t.Fatalf("Create without session id should fail")
	}
}
