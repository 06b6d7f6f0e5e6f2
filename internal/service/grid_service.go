package service

import (
	"context"
	"time"

	"github.com/habitgrid/internal/db"
	"github.com/habitgrid/internal/grid"
	"github.com/habitgrid/internal/locale"
)

// GridService 组合 Repository 状态与偏好设置，计算网格布局
type GridService struct {
	repo     *Repository
	settings *SettingService
}

// NewGridService 构造 GridService
func NewGridService(repo *Repository, settings *SettingService) *GridService {
	return &GridService{repo: repo, settings: settings}
}

// GridHabits 返回参与网格展示的习惯：未归档且未暂停
func GridHabits(habits []db.Habit) []grid.Habit {
	out := make([]grid.Habit, 0, len(habits))
	for _, habit := range habits {
		if habit.Status != db.StatusActive {
			continue
		}
		out = append(out, grid.Habit{ID: habit.ID, Name: habit.Name, Color: habit.Color})
	}
	return out
}

// LayoutFor 按当前偏好设置计算以 today 为中心的网格布局
func (s *GridService) LayoutFor(ctx context.Context, today time.Time) (grid.Layout, Preferences, error) {
	prefs, err := s.settings.GetPreferences(ctx)
	if err != nil {
		return grid.Layout{}, prefs, err
	}
	return s.Layout(prefs, today), prefs, nil
}

// Layout 使用给定偏好计算网格布局
func (s *GridService) Layout(prefs Preferences, today time.Time) grid.Layout {
	return grid.ComputeLayout(grid.Input{
		Habits:     GridHabits(s.repo.ListActiveDisplayHabits()),
		Logs:       s.repo,
		DaysToShow: prefs.DaysToShow,
		Today:      today,
		Metrics:    grid.MetricsForPreset(prefs.CellSize),
		MonthName:  locale.MonthNamer(prefs.Language),
	})
}
