package db

import (
	"slices"
	"time"
)

// 习惯频率
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// 习惯生命周期状态
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Palette 是习惯可选的固定颜色集合。
var Palette = []string{
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#14b8a6", // teal
	"#3b82f6", // blue
	"#6366f1", // indigo
	"#a855f7", // purple
	"#ec4899", // pink
	"#64748b", // slate
}

// DefaultColor 在未指定颜色时使用。
var DefaultColor = Palette[3]

// IsPaletteColor 判断颜色是否属于固定调色板。
func IsPaletteColor(color string) bool {
	return slices.Contains(Palette, color)
}

// Habit 定义了习惯模型
// ID 为不透明的 UUID 字符串，创建后不可变
// TargetDays 仅在 weekly 频率下有效（1-7）
// SortOrder 决定未归档习惯的展示顺序
type Habit struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	Color       string     `gorm:"size:16" json:"color"`
	Icon        string     `json:"icon"`
	Frequency   string     `gorm:"size:16;not null;default:daily" json:"frequency"`
	TargetDays  int        `json:"target_days"`
	Status      string     `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at"`
	SortOrder   int        `gorm:"index" json:"sort_order"`
}

// TableName 固定表名
func (Habit) TableName() string {
	return "habits"
}

// HabitLog 记录习惯在某一天的完成情况
// HabitID + Date 组成复合主键，保证同一天至多一条记录；Date 采用 YYYY-MM-DD
type HabitLog struct {
	HabitID   string    `gorm:"primaryKey;size:36" json:"habit_id"`
	Date      string    `gorm:"primaryKey;size:10" json:"date"`
	Completed bool      `gorm:"not null" json:"completed"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 固定表名
func (HabitLog) TableName() string {
	return "habit_logs"
}

// DailyNote 每日备注，一天至多一条；内容为空时记录被删除而不是保存空串
type DailyNote struct {
	Date      string    `gorm:"primaryKey;size:10" json:"date"`
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 固定表名
func (DailyNote) TableName() string {
	return "daily_notes"
}
