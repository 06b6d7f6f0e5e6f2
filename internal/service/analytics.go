package service

import (
	"math"
	"sort"
	"time"

	"github.com/habitgrid/internal/db"
)

// HabitStats 汇总单个习惯截至某日的统计数据
type HabitStats struct {
	HabitID          string `json:"habit_id"`
	AsOf             string `json:"as_of"`
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	MonthRate        int    `json:"month_completion_rate"`
	TotalCompletions int    `json:"total_completions"`
	WeekCompleted    int    `json:"week_completed"`
	WeekTarget       int    `json:"week_target"`
}

// 以下函数均为纯函数：logs 为 date → log 的映射，completed=false 与缺失等价。

func completedOn(logs map[string]db.HabitLog, day time.Time) bool {
	entry, ok := logs[FormatDate(day)]
	return ok && entry.Completed
}

// CurrentStreak 从 asOf 起逐日向前数连续完成的天数；asOf 当天未完成则为 0
func CurrentStreak(logs map[string]db.HabitLog, asOf time.Time) int {
	streak := 0
	for day := normalizeToDate(asOf); completedOn(logs, day); day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// LongestStreak 返回历史上最长的连续完成天数
func LongestStreak(logs map[string]db.HabitLog) int {
	days := make([]time.Time, 0, len(logs))
	for date, entry := range logs {
		if !entry.Completed {
			continue
		}
		day, err := ParseDate(date, time.UTC)
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, current := 0, 0
	for i, day := range days {
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(day) {
			current++
		} else {
			current = 1
		}
		longest = max(longest, current)
	}
	return longest
}

// MonthCompletionRate 返回 asOf 所在月份 1 号至 asOf 的完成百分比（四舍五入取整）
func MonthCompletionRate(logs map[string]db.HabitLog, asOf time.Time) int {
	day := normalizeToDate(asOf)
	first := day.AddDate(0, 0, 1-day.Day())

	completed := 0
	for d := first; !d.After(day); d = d.AddDate(0, 0, 1) {
		if completedOn(logs, d) {
			completed++
		}
	}
	return int(math.Round(float64(completed) * 100 / float64(day.Day())))
}

// TotalCompletions 返回全部已完成的天数
func TotalCompletions(logs map[string]db.HabitLog) int {
	total := 0
	for _, entry := range logs {
		if entry.Completed {
			total++
		}
	}
	return total
}

// WeekProgress 返回 asOf 所在周（周一开始）截至 asOf 的完成天数
func WeekProgress(logs map[string]db.HabitLog, asOf time.Time) int {
	day := normalizeToDate(asOf)
	offset := (int(day.Weekday()) + 6) % 7
	completed := 0
	for d := day.AddDate(0, 0, -offset); !d.After(day); d = d.AddDate(0, 0, 1) {
		if completedOn(logs, d) {
			completed++
		}
	}
	return completed
}

// ComputeStats 汇总单个习惯的全部统计项
func ComputeStats(habit db.Habit, logs map[string]db.HabitLog, asOf time.Time) HabitStats {
	stats := HabitStats{
		HabitID:          habit.ID,
		AsOf:             FormatDate(asOf),
		CurrentStreak:    CurrentStreak(logs, asOf),
		LongestStreak:    LongestStreak(logs),
		MonthRate:        MonthCompletionRate(logs, asOf),
		TotalCompletions: TotalCompletions(logs),
		WeekCompleted:    WeekProgress(logs, asOf),
		WeekTarget:       7,
	}
	if habit.Frequency == db.FrequencyWeekly && habit.TargetDays > 0 {
		stats.WeekTarget = habit.TargetDays
	}
	return stats
}

// StreaksFor 计算镜像中某个习惯截至 asOf 的统计
func (r *Repository) StreaksFor(habitID string, asOf time.Time) (HabitStats, error) {
	habit, ok := r.Habit(habitID)
	if !ok {
		return HabitStats{}, ErrHabitNotFound
	}
	return ComputeStats(habit, r.LogsFor(habitID), asOf), nil
}

// TodayItem 为今日视图中的一行
type TodayItem struct {
	Habit         db.Habit `json:"habit"`
	Done          bool     `json:"done"`
	CurrentStreak int      `json:"current_streak"`
	WeekCompleted int      `json:"week_completed"`
	WeekTarget    int      `json:"week_target"`
}

// TodaySummary 汇总今日视图
type TodaySummary struct {
	Date  string      `json:"date"`
	Items []TodayItem `json:"items"`
	Done  int         `json:"done"`
	Total int         `json:"total"`
}

// TodaySummary 返回 asOf 当天全部 active 习惯的完成情况，暂停的习惯不计入
func (r *Repository) TodaySummary(asOf time.Time) TodaySummary {
	summary := TodaySummary{Date: FormatDate(asOf), Items: []TodayItem{}}
	for _, habit := range r.ListActiveDisplayHabits() {
		if habit.Status != db.StatusActive {
			continue
		}
		logs := r.LogsFor(habit.ID)
		stats := ComputeStats(habit, logs, asOf)
		item := TodayItem{
			Habit:         habit,
			Done:          completedOn(logs, asOf),
			CurrentStreak: stats.CurrentStreak,
			WeekCompleted: stats.WeekCompleted,
			WeekTarget:    stats.WeekTarget,
		}
		if item.Done {
			summary.Done++
		}
		summary.Items = append(summary.Items, item)
	}
	summary.Total = len(summary.Items)
	return summary
}
