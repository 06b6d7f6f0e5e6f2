package service

import (
	"context"
	"testing"

	"github.com/habitgrid/internal/db"
	"github.com/habitgrid/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridServiceLayoutFor(t *testing.T) {
	repo, store := setupRepository(t)
	ctx := context.Background()
	settings := NewSettingService(store)
	_, err := settings.UpdatePreferences(ctx, Preferences{DaysToShow: 30, CellSize: grid.PresetSmall, Language: "zh"})
	require.NoError(t, err)

	read := createHabit(t, repo, "Read")
	walk := createHabit(t, repo, "Walk")
	_, err = repo.SetHabitStatus(ctx, walk.ID, db.StatusPaused)
	require.NoError(t, err)
	_, err = repo.UpsertLog(ctx, read.ID, "2024-03-10", true)
	require.NoError(t, err)

	layout, prefs, err := NewGridService(repo, settings).LayoutFor(ctx, repo.Today())
	require.NoError(t, err)
	assert.Equal(t, 30, prefs.DaysToShow)

	require.Len(t, layout.Rows, 1, "paused habits are not drawn")
	assert.Equal(t, read.ID, layout.Rows[0].HabitID)
	assert.Len(t, layout.Dates, 30)
	assert.Equal(t, 24, layout.TodayIndex)
	assert.Equal(t, "2024-03-10", layout.Dates[layout.TodayIndex])
	assert.Equal(t, 12.0, layout.Metrics.CellSize)

	today := layout.Cells[layout.TodayIndex]
	assert.Equal(t, grid.CellFilled, today.State)
	assert.Equal(t, read.Color, today.Color)
	assert.Equal(t, grid.CellFuture, layout.Cells[layout.TodayIndex+1].State)

	require.NotEmpty(t, layout.MonthLabels)
	assert.Equal(t, "3月", layout.MonthLabels[0].Text)
}

func TestGridServiceEmpty(t *testing.T) {
	repo, store := setupRepository(t)
	layout, _, err := NewGridService(repo, NewSettingService(store)).LayoutFor(context.Background(), repo.Today())
	require.NoError(t, err)
	assert.True(t, layout.Empty())
	assert.Zero(t, layout.GridWidth)
	assert.Zero(t, layout.GridHeight)
}
