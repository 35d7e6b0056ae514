package repos

import (
	"context"
	"testing"

	"github.com/pusulaai/pusula-backend/internal/repos/testutil"
	"github.com/pusulaai/pusula-backend/internal/types"
)

func TestBTKCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewBTKCourseRepo(db, testutil.Logger(t))

	seed := []*types.BTKCourse{
		{Title: "Python Basics", Category: "Software Development", IsActive: true},
		{Title: "Advanced Welding", Category: "Manufacturing", IsActive: true},
		{Title: "Retired Course", Category: "Software Development", IsActive: false},
	}
	if _, err := repo.Create(ctx, nil, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	active, err := repo.ListActive(ctx, nil)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ListActive: want 2, got %d", len(active))
	}
	for _, course := range active {
		if !course.IsActive {
			t.Fatalf("ListActive returned inactive course %q", course.Title)
		}
	}

	byCategory, err := repo.ListByCategory(ctx, nil, "software")
	if err != nil {
		t.Fatalf("ListByCategory: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].Title != "Python Basics" {
		t.Fatalf("ListByCategory: got=%+v", byCategory)
	}

	count, err := repo.CountActive(ctx, nil)
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if count != 2 {
		t.Fatalf("CountActive: want 2, got %d", count)
	}
}
