package main

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/habitgrid/internal/db"
	"github.com/habitgrid/internal/service"
	"gorm.io/gorm/logger"
)

func setupSeedTestRepository(t *testing.T) *service.Repository {
	t.Helper()

	store, err := db.Open("file:habit-seed?mode=memory&cache=shared", db.WithLogLevel(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := func() time.Time { return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC) }
	repo := service.NewRepository(store, service.WithClock(clock))
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("failed to load repository: %v", err)
	}
	return repo
}

func TestGenerateTestDataSeedsHabitsAndHistory(t *testing.T) {
	repo := setupSeedTestRepository(t)
	ctx := context.Background()

	result, err := generateTestData(ctx, repo, 60, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatalf("generateTestData returned error: %v", err)
	}
	if result.Habits != len(seedHabits) {
		t.Fatalf("expected %d habits, got %d", len(seedHabits), result.Habits)
	}
	if result.Logs == 0 {
		t.Fatalf("expected some completion logs")
	}
	if result.Notes != 9 {
		t.Fatalf("expected 9 weekly notes, got %d", result.Notes)
	}

	habits := repo.ListActiveDisplayHabits()
	if len(habits) != len(seedHabits) {
		t.Fatalf("expected %d displayed habits, got %d", len(seedHabits), len(habits))
	}

	total := 0
	hasPaused := false
	for _, habit := range habits {
		logs := repo.LogsFor(habit.ID)
		total += len(logs)
		for date := range logs {
			if date > "2024-03-10" || date < "2024-01-11" {
				t.Fatalf("log date %s outside generated window", date)
			}
		}
		if habit.Status == db.StatusPaused {
			hasPaused = true
		}
	}
	if total != result.Logs {
		t.Fatalf("expected %d logs in repository, got %d", result.Logs, total)
	}
	if !hasPaused {
		t.Fatalf("expected a paused habit in seed data")
	}

	note, err := repo.Note(ctx, "2024-03-10")
	if err != nil {
		t.Fatalf("failed to read note: %v", err)
	}
	if note == "" {
		t.Fatalf("expected today's note to be seeded")
	}
}

func TestGenerateTestDataSkipsExistingHabits(t *testing.T) {
	repo := setupSeedTestRepository(t)
	ctx := context.Background()

	if _, err := repo.CreateHabit(ctx, service.HabitInput{Name: "existing"}); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	result, err := generateTestData(ctx, repo, 30, rand.New(rand.NewPCG(2, 2)))
	if err != nil {
		t.Fatalf("generateTestData returned error: %v", err)
	}
	if result != (seedResult{}) {
		t.Fatalf("expected no changes, got %+v", result)
	}
	if got := len(repo.ListActiveDisplayHabits()); got != 1 {
		t.Fatalf("expected 1 habit, got %d", got)
	}
}
