package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/habitgrid/internal/db"
	"go.uber.org/zap"
)

// HabitStore 是 Repository 依赖的持久化接口，由 *db.Store 实现
type HabitStore interface {
	ListHabits(ctx context.Context, includeArchived bool) ([]db.Habit, error)
	ListHabitsByStatus(ctx context.Context, status string) ([]db.Habit, error)
	GetHabit(ctx context.Context, id string) (*db.Habit, error)
	PutHabit(ctx context.Context, habit *db.Habit) error
	PutHabits(ctx context.Context, habits []db.Habit) error
	DeleteHabitCascade(ctx context.Context, id string) error

	ListLogs(ctx context.Context) ([]db.HabitLog, error)
	PutLog(ctx context.Context, entry *db.HabitLog) error

	GetNote(ctx context.Context, date string) (*db.DailyNote, error)
	PutNote(ctx context.Context, note *db.DailyNote) error
	DeleteNote(ctx context.Context, date string) error
	ListNotes(ctx context.Context) ([]db.DailyNote, error)

	ImportRecords(ctx context.Context, habits []db.Habit, logs []db.HabitLog, notes []db.DailyNote) db.ImportResult
	ClearAll(ctx context.Context) error
}

// Repository 是习惯与打卡记录的内存镜像。
// 启动时从存储加载，之后每次修改先更新镜像再同步写入存储，写入失败即回滚镜像，
// 保证镜像与存储不会静默分叉。
//
// writeMu 串行化全部修改（含存储写入）；mu 只保护镜像本身，
// 因此读取方在存储写入期间看到的是乐观更新后的状态，不会被 I/O 阻塞。
type Repository struct {
	store  HabitStore
	now    func() time.Time
	logger *zap.Logger
	strict bool

	writeMu sync.Mutex
	mu      sync.RWMutex
	habits  []db.Habit
	logs    map[string]map[string]db.HabitLog
}

// RepositoryOption 配置 Repository
type RepositoryOption func(*Repository)

// WithClock 替换时钟，主要面向测试场景
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger 设置结构化日志
func WithLogger(logger *zap.Logger) RepositoryOption {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStrictInvariants 开启后，内部不变量被破坏时直接 panic（开发模式）
func WithStrictInvariants(strict bool) RepositoryOption {
	return func(r *Repository) { r.strict = strict }
}

// NewRepository 构造 Repository，需调用 Load 后使用
func NewRepository(store HabitStore, opts ...RepositoryOption) *Repository {
	r := &Repository{
		store:  store,
		now:    time.Now,
		logger: zap.NewNop(),
		logs:   make(map[string]map[string]db.HabitLog),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Frequency   string `json:"frequency"`
	TargetDays  int    `json:"target_days"`
	Status      string `json:"status"`
}

// Load 从存储加载全部未归档习惯与全部打卡记录，重建内存索引
func (r *Repository) Load(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.reload(ctx)
}

// reload 重建镜像。调用方须持有 writeMu。
func (r *Repository) reload(ctx context.Context) error {
	all, err := r.store.ListHabits(ctx, true)
	if err != nil {
		return fmt.Errorf("load habits: %w", err)
	}
	entries, err := r.store.ListLogs(ctx)
	if err != nil {
		return fmt.Errorf("load logs: %w", err)
	}

	known := make(map[string]bool, len(all))
	habits := make([]db.Habit, 0, len(all))
	for _, habit := range all {
		known[habit.ID] = true
		if habit.Status != db.StatusArchived {
			habits = append(habits, habit)
		}
	}

	index := make(map[string]map[string]db.HabitLog)
	for _, entry := range entries {
		if !known[entry.HabitID] {
			r.invariant("log references unknown habit",
				zap.String("habit_id", entry.HabitID),
				zap.String("date", entry.Date))
			continue
		}
		byDate, ok := index[entry.HabitID]
		if !ok {
			byDate = make(map[string]db.HabitLog)
			index[entry.HabitID] = byDate
		}
		byDate[entry.Date] = entry
	}

	r.mu.Lock()
	r.habits = habits
	r.logs = index
	r.mu.Unlock()

	r.logger.Debug("repository loaded",
		zap.Int("habits", len(habits)),
		zap.Int("logs", len(entries)))
	return nil
}

func (r *Repository) invariant(msg string, fields ...zap.Field) {
	if r.strict {
		panic(fmt.Sprintf("invariant violated: %s", msg))
	}
	r.logger.Error("invariant violated: "+msg, fields...)
}

// Today 返回当前本地日期（零点）
func (r *Repository) Today() time.Time {
	return normalizeToDate(r.now())
}

// CheckDate 解析日期为 YYYY-MM-DD；今天之后的日期返回 ErrFutureDate
func (r *Repository) CheckDate(raw string) (string, error) {
	return r.checkDate(raw)
}

func (r *Repository) checkDate(raw string) (string, error) {
	now := r.now()
	parsed, err := ParseDate(raw, now.Location())
	if err != nil {
		return "", err
	}
	key := FormatDate(parsed)
	if key > FormatDate(now) {
		return "", ErrFutureDate
	}
	return key, nil
}

// commit 先应用镜像修改，再写入存储；写入失败时回滚镜像。调用方须持有 writeMu。
func (r *Repository) commit(ctx context.Context, op string, apply, rollback func(), write func(context.Context) error) error {
	r.mu.Lock()
	apply()
	r.mu.Unlock()

	if err := write(ctx); err != nil {
		r.mu.Lock()
		rollback()
		r.mu.Unlock()
		r.logger.Warn("store write failed, mirror rolled back", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// indexOf 返回习惯在镜像中的位置。调用方须持有 mu。
func (r *Repository) indexOf(id string) int {
	return slices.IndexFunc(r.habits, func(h db.Habit) bool { return h.ID == id })
}

func (r *Repository) putLogLocked(entry db.HabitLog) {
	byDate, ok := r.logs[entry.HabitID]
	if !ok {
		byDate = make(map[string]db.HabitLog)
		r.logs[entry.HabitID] = byDate
	}
	byDate[entry.Date] = entry
}

func (r *Repository) removeLogLocked(habitID, date string) {
	byDate, ok := r.logs[habitID]
	if !ok {
		return
	}
	delete(byDate, date)
	if len(byDate) == 0 {
		delete(r.logs, habitID)
	}
}

// ListActiveDisplayHabits 返回未归档的习惯，按 sort_order 排序
func (r *Repository) ListActiveDisplayHabits() []db.Habit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.habits)
}

// ListHabitsByStatus 返回指定状态的习惯；归档习惯不在镜像中，直接读取存储
func (r *Repository) ListHabitsByStatus(ctx context.Context, status string) ([]db.Habit, error) {
	switch status {
	case db.StatusArchived:
		habits, err := r.store.ListHabitsByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("list archived habits: %w", err)
		}
		return habits, nil
	case db.StatusActive, db.StatusPaused:
		r.mu.RLock()
		defer r.mu.RUnlock()
		habits := make([]db.Habit, 0, len(r.habits))
		for _, habit := range r.habits {
			if habit.Status == status {
				habits = append(habits, habit)
			}
		}
		return habits, nil
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidHabit, status)
	}
}

// Habit 返回镜像中的单个习惯
func (r *Repository) Habit(id string) (db.Habit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.habits[idx], true
	}
	return db.Habit{}, false
}

// LogFor 返回某习惯某日的打卡记录；不存在时第二个返回值为 false
func (r *Repository) LogFor(habitID, date string) (db.HabitLog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.logs[habitID][date]
	return entry, ok
}

// Completed 报告某习惯某日是否已完成，供网格布局查询
func (r *Repository) Completed(habitID, date string) bool {
	entry, ok := r.LogFor(habitID, date)
	return ok && entry.Completed
}

// LogsFor 返回某习惯全部打卡记录的副本（date → log）
func (r *Repository) LogsFor(habitID string) map[string]db.HabitLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]db.HabitLog, len(r.logs[habitID]))
	for date, entry := range r.logs[habitID] {
		out[date] = entry
	}
	return out
}

// UpsertLog 设置某习惯某日的完成状态。今天之后的日期返回 ErrFutureDate 且不写存储。
func (r *Repository) UpsertLog(ctx context.Context, habitID, date string, completed bool) (db.HabitLog, error) {
	key, err := r.checkDate(date)
	if err != nil {
		return db.HabitLog{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.writeLog(ctx, habitID, key, func(entry *db.HabitLog) {
		entry.Completed = completed
	})
}

// ToggleLog 翻转某习惯某日的完成状态
func (r *Repository) ToggleLog(ctx context.Context, habitID, date string) (db.HabitLog, error) {
	key, err := r.checkDate(date)
	if err != nil {
		return db.HabitLog{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.writeLog(ctx, habitID, key, func(entry *db.HabitLog) {
		entry.Completed = !entry.Completed
	})
}

// SetLogNote 为某习惯某日的打卡记录写入备注，完成状态保持不变
func (r *Repository) SetLogNote(ctx context.Context, habitID, date, note string) (db.HabitLog, error) {
	key, err := r.checkDate(date)
	if err != nil {
		return db.HabitLog{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.writeLog(ctx, habitID, key, func(entry *db.HabitLog) {
		entry.Note = strings.TrimSpace(note)
	})
}

func (r *Repository) writeLog(ctx context.Context, habitID, date string, mutate func(*db.HabitLog)) (db.HabitLog, error) {
	r.mu.RLock()
	exists := r.indexOf(habitID) >= 0
	prev, had := r.logs[habitID][date]
	r.mu.RUnlock()

	if !exists {
		return db.HabitLog{}, ErrHabitNotFound
	}

	now := r.now().UTC()
	entry := prev
	if !had {
		entry = db.HabitLog{HabitID: habitID, Date: date, CreatedAt: now}
	}
	mutate(&entry)
	entry.UpdatedAt = now

	err := r.commit(ctx, "put log",
		func() { r.putLogLocked(entry) },
		func() {
			if had {
				r.putLogLocked(prev)
			} else {
				r.removeLogLocked(habitID, date)
			}
		},
		func(ctx context.Context) error {
			record := entry
			return r.store.PutLog(ctx, &record)
		},
	)
	if err != nil {
		return db.HabitLog{}, err
	}
	return entry, nil
}

func normalizeHabitInput(input HabitInput, allowArchived bool) (HabitInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Icon = strings.TrimSpace(input.Icon)
	input.Color = strings.ToLower(strings.TrimSpace(input.Color))
	input.Frequency = strings.ToLower(strings.TrimSpace(input.Frequency))
	input.Status = strings.ToLower(strings.TrimSpace(input.Status))

	if input.Name == "" {
		return input, fmt.Errorf("%w: name is required", ErrInvalidHabit)
	}

	if input.Color == "" {
		input.Color = db.DefaultColor
	}
	if !db.IsPaletteColor(input.Color) {
		return input, fmt.Errorf("%w: color %s is not in the palette", ErrInvalidHabit, input.Color)
	}

	switch input.Frequency {
	case "", db.FrequencyDaily:
		input.Frequency = db.FrequencyDaily
		input.TargetDays = 0
	case db.FrequencyWeekly:
		if input.TargetDays < 1 || input.TargetDays > 7 {
			return input, fmt.Errorf("%w: weekly habits need 1-7 target days", ErrInvalidHabit)
		}
	default:
		return input, fmt.Errorf("%w: unsupported frequency %s", ErrInvalidHabit, input.Frequency)
	}

	switch input.Status {
	case "", db.StatusActive:
		input.Status = db.StatusActive
	case db.StatusPaused:
	case db.StatusArchived:
		if !allowArchived {
			return input, fmt.Errorf("%w: use archive to archive a habit", ErrInvalidHabit)
		}
	default:
		return input, fmt.Errorf("%w: unsupported status %s", ErrInvalidHabit, input.Status)
	}

	return input, nil
}

// nextSortOrder 返回排在最后的 sort_order。调用方须持有 mu。
func (r *Repository) nextSortOrder() int {
	next := 0
	for _, habit := range r.habits {
		if habit.SortOrder >= next {
			next = habit.SortOrder + 1
		}
	}
	return next
}

// CreateHabit 新建习惯并追加到展示顺序末尾
func (r *Repository) CreateHabit(ctx context.Context, input HabitInput) (db.Habit, error) {
	normalized, err := normalizeHabitInput(input, false)
	if err != nil {
		return db.Habit{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	now := r.now().UTC()
	r.mu.RLock()
	sortOrder := r.nextSortOrder()
	r.mu.RUnlock()

	habit := db.Habit{
		ID:          uuid.NewString(),
		Name:        normalized.Name,
		Description: normalized.Description,
		Color:       normalized.Color,
		Icon:        normalized.Icon,
		Frequency:   normalized.Frequency,
		TargetDays:  normalized.TargetDays,
		Status:      normalized.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		SortOrder:   sortOrder,
	}

	err = r.commit(ctx, "create habit",
		func() { r.habits = append(r.habits, habit) },
		func() {
			if idx := r.indexOf(habit.ID); idx >= 0 {
				r.habits = slices.Delete(r.habits, idx, idx+1)
			}
		},
		func(ctx context.Context) error {
			record := habit
			return r.store.PutHabit(ctx, &record)
		},
	)
	if err != nil {
		return db.Habit{}, err
	}

	r.logger.Info("habit created", zap.String("habit_id", habit.ID), zap.String("name", habit.Name))
	return habit, nil
}

// UpdateHabit 更新习惯字段；ID、创建时间与排序保持不变
func (r *Repository) UpdateHabit(ctx context.Context, id string, input HabitInput) (db.Habit, error) {
	normalized, err := normalizeHabitInput(input, false)
	if err != nil {
		return db.Habit{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	return r.replaceHabit(ctx, "update habit", id, func(habit *db.Habit) {
		habit.Name = normalized.Name
		habit.Description = normalized.Description
		habit.Color = normalized.Color
		habit.Icon = normalized.Icon
		habit.Frequency = normalized.Frequency
		habit.TargetDays = normalized.TargetDays
		if strings.TrimSpace(input.Status) != "" {
			habit.Status = normalized.Status
		}
	})
}

// SetHabitStatus 在 active 与 paused 之间切换；archived 等价于 ArchiveHabit
func (r *Repository) SetHabitStatus(ctx context.Context, id, status string) (db.Habit, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case db.StatusArchived:
		return r.ArchiveHabit(ctx, id)
	case db.StatusActive, db.StatusPaused:
	default:
		return db.Habit{}, fmt.Errorf("%w: unsupported status %s", ErrInvalidHabit, status)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	return r.replaceHabit(ctx, "set habit status", id, func(habit *db.Habit) {
		habit.Status = status
	})
}

// replaceHabit 原位修改镜像中的习惯。调用方须持有 writeMu。
func (r *Repository) replaceHabit(ctx context.Context, op, id string, mutate func(*db.Habit)) (db.Habit, error) {
	r.mu.RLock()
	idx := r.indexOf(id)
	var prev db.Habit
	if idx >= 0 {
		prev = r.habits[idx]
	}
	r.mu.RUnlock()
	if idx < 0 {
		return db.Habit{}, ErrHabitNotFound
	}

	updated := prev
	mutate(&updated)
	updated.UpdatedAt = r.now().UTC()

	err := r.commit(ctx, op,
		func() { r.habits[idx] = updated },
		func() { r.habits[idx] = prev },
		func(ctx context.Context) error {
			record := updated
			return r.store.PutHabit(ctx, &record)
		},
	)
	if err != nil {
		return db.Habit{}, err
	}
	return updated, nil
}

// ArchiveHabit 软删除：状态置为 archived 并记录归档时间，打卡数据保留
func (r *Repository) ArchiveHabit(ctx context.Context, id string) (db.Habit, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	idx := r.indexOf(id)
	var prev db.Habit
	if idx >= 0 {
		prev = r.habits[idx]
	}
	r.mu.RUnlock()
	if idx < 0 {
		return db.Habit{}, ErrHabitNotFound
	}

	now := r.now().UTC()
	archived := prev
	archived.Status = db.StatusArchived
	archived.ArchivedAt = &now
	archived.UpdatedAt = now

	err := r.commit(ctx, "archive habit",
		func() { r.habits = slices.Delete(r.habits, idx, idx+1) },
		func() { r.habits = slices.Insert(r.habits, idx, prev) },
		func(ctx context.Context) error {
			record := archived
			return r.store.PutHabit(ctx, &record)
		},
	)
	if err != nil {
		return db.Habit{}, err
	}

	r.logger.Info("habit archived", zap.String("habit_id", id))
	return archived, nil
}

// RestoreHabit 将归档习惯恢复为 active，并排到展示顺序末尾
func (r *Repository) RestoreHabit(ctx context.Context, id string) (db.Habit, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	stored, err := r.store.GetHabit(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Habit{}, ErrHabitNotFound
		}
		return db.Habit{}, fmt.Errorf("restore habit: %w", err)
	}
	if stored.Status != db.StatusArchived {
		if habit, ok := r.Habit(id); ok {
			return habit, nil
		}
		return *stored, nil
	}

	r.mu.RLock()
	sortOrder := r.nextSortOrder()
	r.mu.RUnlock()

	restored := *stored
	restored.Status = db.StatusActive
	restored.ArchivedAt = nil
	restored.SortOrder = sortOrder
	restored.UpdatedAt = r.now().UTC()

	err = r.commit(ctx, "restore habit",
		func() { r.habits = append(r.habits, restored) },
		func() {
			if idx := r.indexOf(id); idx >= 0 {
				r.habits = slices.Delete(r.habits, idx, idx+1)
			}
		},
		func(ctx context.Context) error {
			record := restored
			return r.store.PutHabit(ctx, &record)
		},
	)
	if err != nil {
		return db.Habit{}, err
	}
	return restored, nil
}

// DeleteHabit 硬删除习惯及其全部打卡记录
func (r *Repository) DeleteHabit(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	idx := r.indexOf(id)
	var prev db.Habit
	if idx >= 0 {
		prev = r.habits[idx]
	}
	prevLogs, hadLogs := r.logs[id]
	r.mu.RUnlock()

	if idx < 0 {
		// 归档习惯不在镜像中，需要确认存储里确实存在
		if _, err := r.store.GetHabit(ctx, id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return ErrHabitNotFound
			}
			return fmt.Errorf("delete habit: %w", err)
		}
	}

	err := r.commit(ctx, "delete habit",
		func() {
			if idx >= 0 {
				r.habits = slices.Delete(r.habits, idx, idx+1)
			}
			delete(r.logs, id)
		},
		func() {
			if idx >= 0 {
				r.habits = slices.Insert(r.habits, idx, prev)
			}
			if hadLogs {
				r.logs[id] = prevLogs
			}
		},
		func(ctx context.Context) error {
			return r.store.DeleteHabitCascade(ctx, id)
		},
	)
	if err != nil {
		return err
	}

	r.logger.Info("habit deleted", zap.String("habit_id", id), zap.Int("logs", len(prevLogs)))
	return nil
}

// ReorderHabits 按给定 ID 顺序重排习惯；未列出的习惯保持相对顺序排在其后
func (r *Repository) ReorderHabits(ctx context.Context, ids []string) ([]db.Habit, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	prev := slices.Clone(r.habits)
	r.mu.RUnlock()

	byID := make(map[string]db.Habit, len(prev))
	for _, habit := range prev {
		byID[habit.ID] = habit
	}

	reordered := make([]db.Habit, 0, len(prev))
	placed := make(map[string]bool, len(ids))
	for _, id := range ids {
		habit, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		if placed[id] {
			continue
		}
		placed[id] = true
		reordered = append(reordered, habit)
	}
	for _, habit := range prev {
		if !placed[habit.ID] {
			reordered = append(reordered, habit)
		}
	}

	now := r.now().UTC()
	for i := range reordered {
		reordered[i].SortOrder = i
		reordered[i].UpdatedAt = now
	}

	err := r.commit(ctx, "reorder habits",
		func() { r.habits = slices.Clone(reordered) },
		func() { r.habits = prev },
		func(ctx context.Context) error {
			return r.store.PutHabits(ctx, slices.Clone(reordered))
		},
	)
	if err != nil {
		return nil, err
	}
	return reordered, nil
}
