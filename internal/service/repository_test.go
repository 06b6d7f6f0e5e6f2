package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/habitgrid/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
	"pgregory.net/rapid"
)

var testDBSeq atomic.Int64

func setupServiceTestStore(t testing.TB) *db.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", testDBSeq.Add(1))
	store, err := db.Open(dsn, db.WithLogLevel(logger.Silent))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// fixedClock 返回 2024-03-10 12:00 本地时间
func fixedClock() time.Time {
	return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)
}

// flakyStore 在开关打开时让写操作失败
type flakyStore struct {
	*db.Store
	failWrites atomic.Bool
	writes     atomic.Int64
}

var errDiskFull = &db.IOError{Op: "put", Err: errors.New("disk full")}

func (s *flakyStore) PutHabit(ctx context.Context, habit *db.Habit) error {
	s.writes.Add(1)
	if s.failWrites.Load() {
		return errDiskFull
	}
	return s.Store.PutHabit(ctx, habit)
}

func (s *flakyStore) PutHabits(ctx context.Context, habits []db.Habit) error {
	s.writes.Add(1)
	if s.failWrites.Load() {
		return errDiskFull
	}
	return s.Store.PutHabits(ctx, habits)
}

func (s *flakyStore) PutLog(ctx context.Context, entry *db.HabitLog) error {
	s.writes.Add(1)
	if s.failWrites.Load() {
		return errDiskFull
	}
	return s.Store.PutLog(ctx, entry)
}

func (s *flakyStore) DeleteHabitCascade(ctx context.Context, id string) error {
	s.writes.Add(1)
	if s.failWrites.Load() {
		return errDiskFull
	}
	return s.Store.DeleteHabitCascade(ctx, id)
}

func (s *flakyStore) PutNote(ctx context.Context, note *db.DailyNote) error {
	s.writes.Add(1)
	if s.failWrites.Load() {
		return errDiskFull
	}
	return s.Store.PutNote(ctx, note)
}

func setupRepository(t testing.TB) (*Repository, *flakyStore) {
	t.Helper()
	store := &flakyStore{Store: setupServiceTestStore(t)}
	repo := NewRepository(store, WithClock(fixedClock), WithStrictInvariants(true))
	require.NoError(t, repo.Load(context.Background()))
	return repo, store
}

func createHabit(t testing.TB, repo *Repository, name string) db.Habit {
	t.Helper()
	habit, err := repo.CreateHabit(context.Background(), HabitInput{Name: name})
	require.NoError(t, err)
	return habit
}

func TestRepositoryCreateAndList(t *testing.T) {
	repo, store := setupRepository(t)
	ctx := context.Background()

	read := createHabit(t, repo, "  Read  ")
	walk, err := repo.CreateHabit(ctx, HabitInput{Name: "Walk", Color: "#3B82F6", Frequency: "weekly", TargetDays: 3})
	require.NoError(t, err)

	assert.Equal(t, "Read", read.Name)
	assert.Equal(t, db.DefaultColor, read.Color)
	assert.Equal(t, db.FrequencyDaily, read.Frequency)
	assert.Equal(t, db.StatusActive, read.Status)
	assert.Len(t, read.ID, 36)
	assert.Equal(t, "#3b82f6", walk.Color)
	assert.Equal(t, 1, walk.SortOrder)

	habits := repo.ListActiveDisplayHabits()
	require.Len(t, habits, 2)
	assert.Equal(t, []string{read.ID, walk.ID}, []string{habits[0].ID, habits[1].ID})

	// 镜像与存储一致，重新加载后顺序不变
	reloaded := NewRepository(store, WithClock(fixedClock))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, habits, reloaded.ListActiveDisplayHabits())

	_, err = repo.CreateHabit(ctx, HabitInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidHabit)
	_, err = repo.CreateHabit(ctx, HabitInput{Name: "Bad color", Color: "#123456"})
	assert.ErrorIs(t, err, ErrInvalidHabit)
	_, err = repo.CreateHabit(ctx, HabitInput{Name: "Weekly", Frequency: "weekly"})
	assert.ErrorIs(t, err, ErrInvalidHabit)
	_, err = repo.CreateHabit(ctx, HabitInput{Name: "Yearly", Frequency: "yearly"})
	assert.ErrorIs(t, err, ErrInvalidHabit)
}

func TestRepositoryUpsertLogRejectsFutureDates(t *testing.T) {
	repo, store := setupRepository(t)
	ctx := context.Background()
	habit := createHabit(t, repo, "Read")
	before := store.writes.Load()

	_, err := repo.UpsertLog(ctx, habit.ID, "2024-03-11", true)
	assert.ErrorIs(t, err, ErrFutureDate)
	_, err = repo.ToggleLog(ctx, habit.ID, "2024-04-01")
	assert.ErrorIs(t, err, ErrFutureDate)

	assert.Equal(t, before, store.writes.Load(), "future dates must not reach the store")
	_, ok := repo.LogFor(habit.ID, "2024-03-11")
	assert.False(t, ok)
	_, err = store.GetLog(ctx, habit.ID, "2024-03-11")
	assert.ErrorIs(t, err, db.ErrNotFound)

	// 今天可以打卡
	entry, err := repo.UpsertLog(ctx, habit.ID, "2024-03-10", true)
	require.NoError(t, err)
	assert.True(t, entry.Completed)

	_, err = repo.UpsertLog(ctx, habit.ID, "2024/03/10", true)
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = repo.UpsertLog(ctx, "missing", "2024-03-10", true)
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestRepositoryRollsBackOnStoreFailure(t *testing.T) {
	repo, store := setupRepository(t)
	ctx := context.Background()
	habit := createHabit(t, repo, "Read")
	_, err := repo.UpsertLog(ctx, habit.ID, "2024-03-09", true)
	require.NoError(t, err)

	store.failWrites.Store(true)

	_, err = repo.ToggleLog(ctx, habit.ID, "2024-03-09")
	var ioErr *db.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.True(t, repo.Completed(habit.ID, "2024-03-09"), "toggle must be rolled back")

	_, err = repo.UpsertLog(ctx, habit.ID, "2024-03-08", true)
	require.Error(t, err)
	_, ok := repo.LogFor(habit.ID, "2024-03-08")
	assert.False(t, ok, "new log must be removed again")

	_, err = repo.CreateHabit(ctx, HabitInput{Name: "Walk"})
	require.Error(t, err)
	assert.Len(t, repo.ListActiveDisplayHabits(), 1)

	_, err = repo.UpdateHabit(ctx, habit.ID, HabitInput{Name: "Renamed"})
	require.Error(t, err)
	current, _ := repo.Habit(habit.ID)
	assert.Equal(t, "Read", current.Name)

	_, err = repo.ArchiveHabit(ctx, habit.ID)
	require.Error(t, err)
	assert.Len(t, repo.ListActiveDisplayHabits(), 1)

	err = repo.DeleteHabit(ctx, habit.ID)
	require.Error(t, err)
	assert.Len(t, repo.ListActiveDisplayHabits(), 1)
	assert.True(t, repo.Completed(habit.ID, "2024-03-09"))

	// 存储恢复后镜像与存储仍然一致
	store.failWrites.Store(false)
	reloaded := NewRepository(store, WithClock(fixedClock))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, repo.ListActiveDisplayHabits(), reloaded.ListActiveDisplayHabits())
	assert.Equal(t, repo.LogsFor(habit.ID), reloaded.LogsFor(habit.ID))
}

func TestRepositoryToggleIsInvolution(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	habit := createHabit(t, repo, "Read")
	start := fixedClock()

	rapid.Check(t, func(rt *rapid.T) {
		offset := rapid.IntRange(0, 60).Draw(rt, "daysAgo")
		date := FormatDate(start.AddDate(0, 0, -offset))
		before := repo.Completed(habit.ID, date)

		_, err := repo.ToggleLog(ctx, habit.ID, date)
		if err != nil {
			rt.Fatalf("first toggle: %v", err)
		}
		if repo.Completed(habit.ID, date) == before {
			rt.Fatalf("toggle did not flip %s", date)
		}
		_, err = repo.ToggleLog(ctx, habit.ID, date)
		if err != nil {
			rt.Fatalf("second toggle: %v", err)
		}
		if repo.Completed(habit.ID, date) != before {
			rt.Fatalf("double toggle changed %s", date)
		}
	})
}

func TestRepositorySetLogNoteKeepsCompletion(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	habit := createHabit(t, repo, "Read")

	_, err := repo.UpsertLog(ctx, habit.ID, "2024-03-10", true)
	require.NoError(t, err)
	entry, err := repo.SetLogNote(ctx, habit.ID, "2024-03-10", "  chapter 3 ")
	require.NoError(t, err)
	assert.True(t, entry.Completed)
	assert.Equal(t, "chapter 3", entry.Note)

	entry, err = repo.SetLogNote(ctx, habit.ID, "2024-03-09", "skipped")
	require.NoError(t, err)
	assert.False(t, entry.Completed)
}

func TestRepositoryArchiveRestoreAndStatus(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	read := createHabit(t, repo, "Read")
	walk := createHabit(t, repo, "Walk")
	_, err := repo.UpsertLog(ctx, read.ID, "2024-03-10", true)
	require.NoError(t, err)

	paused, err := repo.SetHabitStatus(ctx, walk.ID, "paused")
	require.NoError(t, err)
	assert.Equal(t, db.StatusPaused, paused.Status)
	pausedList, err := repo.ListHabitsByStatus(ctx, db.StatusPaused)
	require.NoError(t, err)
	require.Len(t, pausedList, 1)
	assert.Equal(t, walk.ID, pausedList[0].ID)

	archived, err := repo.ArchiveHabit(ctx, read.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusArchived, archived.Status)
	require.NotNil(t, archived.ArchivedAt)

	visible := repo.ListActiveDisplayHabits()
	require.Len(t, visible, 1)
	assert.Equal(t, walk.ID, visible[0].ID)

	archivedList, err := repo.ListHabitsByStatus(ctx, db.StatusArchived)
	require.NoError(t, err)
	require.Len(t, archivedList, 1)
	assert.Equal(t, read.ID, archivedList[0].ID)

	_, err = repo.ToggleLog(ctx, read.ID, "2024-03-09")
	assert.ErrorIs(t, err, ErrHabitNotFound)

	restored, err := repo.RestoreHabit(ctx, read.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusActive, restored.Status)
	assert.Nil(t, restored.ArchivedAt)
	visible = repo.ListActiveDisplayHabits()
	require.Len(t, visible, 2)
	assert.Equal(t, read.ID, visible[1].ID, "restored habits go to the end")
	assert.True(t, repo.Completed(read.ID, "2024-03-10"), "archiving keeps logs")

	_, err = repo.SetHabitStatus(ctx, walk.ID, "sleeping")
	assert.ErrorIs(t, err, ErrInvalidHabit)
	_, err = repo.ListHabitsByStatus(ctx, "sleeping")
	assert.ErrorIs(t, err, ErrInvalidHabit)
	_, err = repo.RestoreHabit(ctx, "missing")
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestRepositoryDeleteCascades(t *testing.T) {
	repo, store := setupRepository(t)
	ctx := context.Background()
	read := createHabit(t, repo, "Read")
	walk := createHabit(t, repo, "Walk")
	for _, date := range []string{"2024-03-08", "2024-03-09", "2024-03-10"} {
		_, err := repo.UpsertLog(ctx, read.ID, date, true)
		require.NoError(t, err)
	}
	_, err := repo.UpsertLog(ctx, walk.ID, "2024-03-10", true)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteHabit(ctx, read.ID))

	_, ok := repo.Habit(read.ID)
	assert.False(t, ok)
	assert.Empty(t, repo.LogsFor(read.ID))
	logs, err := store.ListLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, walk.ID, logs[0].HabitID)

	assert.ErrorIs(t, repo.DeleteHabit(ctx, read.ID), ErrHabitNotFound)

	// 归档习惯同样可以硬删除
	_, err = repo.ArchiveHabit(ctx, walk.ID)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteHabit(ctx, walk.ID))
	logs, err = store.ListLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRepositoryReorder(t *testing.T) {
	repo, store := setupRepository(t)
	ctx := context.Background()
	a := createHabit(t, repo, "A")
	b := createHabit(t, repo, "B")
	c := createHabit(t, repo, "C")

	reordered, err := repo.ReorderHabits(ctx, []string{c.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{reordered[0].ID, reordered[1].ID, reordered[2].ID})

	reloaded := NewRepository(store, WithClock(fixedClock))
	require.NoError(t, reloaded.Load(ctx))
	got := reloaded.ListActiveDisplayHabits()
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	_, err = repo.ReorderHabits(ctx, []string{"missing"})
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestRepositoryLoadSkipsOrphanLogs(t *testing.T) {
	store := setupServiceTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutLog(ctx, &db.HabitLog{HabitID: "ghost", Date: "2024-03-01", Completed: true}))

	lenient := NewRepository(store, WithClock(fixedClock))
	require.NoError(t, lenient.Load(ctx))
	assert.Empty(t, lenient.LogsFor("ghost"))

	strict := NewRepository(store, WithClock(fixedClock), WithStrictInvariants(true))
	assert.Panics(t, func() { _ = strict.Load(ctx) })
}

func TestRepositoryNotes(t *testing.T) {
	repo, store := setupRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveNote(ctx, "2024-03-10", "  felt great  "))
	note, err := repo.Note(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, "felt great", note)

	before := store.writes.Load()
	assert.ErrorIs(t, repo.SaveNote(ctx, "2024-03-11", "tomorrow"), ErrFutureDate)
	assert.Equal(t, before, store.writes.Load())

	require.NoError(t, repo.SaveNote(ctx, "2024-03-10", "   "))
	note, err = repo.Note(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.Empty(t, note)
	_, err = store.GetNote(ctx, "2024-03-10")
	assert.ErrorIs(t, err, db.ErrNotFound)

	store.failWrites.Store(true)
	var ioErr *db.IOError
	assert.ErrorAs(t, repo.SaveNote(ctx, "2024-03-09", "x"), &ioErr)
}
