package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 是基于 gorm 的本地持久化层，覆盖 habits/logs/notes/settings 四个集合。
// 每个写操作都按自然主键执行 insert-or-replace，失败统一返回 *IOError。
type Store struct {
	db *gorm.DB
}

// NewStore 包装已打开的 gorm 连接
func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// DB 暴露底层连接，主要用于测试与迁移脚本
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close 关闭底层连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrapIO("close", err)
	}
	return wrapIO("close", sqlDB.Close())
}

func upsert(tx *gorm.DB, value interface{}, keys ...string) error {
	columns := make([]clause.Column, 0, len(keys))
	for _, key := range keys {
		columns = append(columns, clause.Column{Name: key})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   columns,
		UpdateAll: true,
	}).Create(value).Error
}

// PutHabit 按 ID 插入或替换习惯
func (s *Store) PutHabit(ctx context.Context, habit *Habit) error {
	if habit == nil || habit.ID == "" {
		return wrapIO("put habit", errors.New("habit id is required"))
	}
	return wrapIO("put habit", upsert(s.db.WithContext(ctx), habit, "id"))
}

// PutHabits 在同一事务中写入多个习惯，任一失败则整体回滚
func (s *Store) PutHabits(ctx context.Context, habits []Habit) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range habits {
			if habits[i].ID == "" {
				return errors.New("habit id is required")
			}
			if err := upsert(tx, &habits[i], "id"); err != nil {
				return fmt.Errorf("upsert habit %s: %w", habits[i].ID, err)
			}
		}
		return nil
	})
	return wrapIO("put habits", err)
}

// GetHabit 读取单个习惯，不存在时返回 ErrNotFound
func (s *Store) GetHabit(ctx context.Context, id string) (*Habit, error) {
	var habit Habit
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapIO("get habit", err)
	}
	return &habit, nil
}

// ListHabits 按 sort_order 升序返回习惯，相同排序值按插入顺序
// includeArchived 为 false 时过滤掉已归档习惯
func (s *Store) ListHabits(ctx context.Context, includeArchived bool) ([]Habit, error) {
	var habits []Habit

	query := s.db.WithContext(ctx).Model(&Habit{})
	if !includeArchived {
		query = query.Where("status <> ?", StatusArchived)
	}

	if err := query.Order("sort_order ASC").Order("rowid ASC").Find(&habits).Error; err != nil {
		return nil, wrapIO("list habits", err)
	}
	return habits, nil
}

// ListHabitsByStatus 返回指定状态的习惯
func (s *Store) ListHabitsByStatus(ctx context.Context, status string) ([]Habit, error) {
	var habits []Habit
	if err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("sort_order ASC").Order("rowid ASC").
		Find(&habits).Error; err != nil {
		return nil, wrapIO("list habits by status", err)
	}
	return habits, nil
}

// DeleteHabit 仅删除习惯记录本身
func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	return wrapIO("delete habit", s.db.WithContext(ctx).Where("id = ?", id).Delete(&Habit{}).Error)
}

// DeleteHabitCascade 先删除该习惯的全部打卡记录，再删除习惯本身。
// 两步在同一事务中执行；日志删除失败时习惯记录保持不变。
func (s *Store) DeleteHabitCascade(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", id).Delete(&HabitLog{}).Error; err != nil {
			return fmt.Errorf("delete logs: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&Habit{}).Error; err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		return nil
	})
	return wrapIO("delete habit cascade", err)
}

// PutLog 按 (habit_id, date) 插入或替换打卡记录
func (s *Store) PutLog(ctx context.Context, entry *HabitLog) error {
	if entry == nil || entry.HabitID == "" || entry.Date == "" {
		return wrapIO("put log", errors.New("habit id and date are required"))
	}
	return wrapIO("put log", upsert(s.db.WithContext(ctx), entry, "habit_id", "date"))
}

// GetLog 读取单条打卡记录
func (s *Store) GetLog(ctx context.Context, habitID, date string) (*HabitLog, error) {
	var entry HabitLog
	if err := s.db.WithContext(ctx).
		Where("habit_id = ? AND date = ?", habitID, date).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapIO("get log", err)
	}
	return &entry, nil
}

// ListLogs 返回全部打卡记录，按习惯与日期排序
func (s *Store) ListLogs(ctx context.Context) ([]HabitLog, error) {
	var logs []HabitLog
	if err := s.db.WithContext(ctx).Order("habit_id ASC, date ASC").Find(&logs).Error; err != nil {
		return nil, wrapIO("list logs", err)
	}
	return logs, nil
}

// DeleteLogsByHabit 删除某个习惯下的全部打卡记录，返回删除条数
func (s *Store) DeleteLogsByHabit(ctx context.Context, habitID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("habit_id = ?", habitID).Delete(&HabitLog{})
	if result.Error != nil {
		return 0, wrapIO("delete logs by habit", result.Error)
	}
	return result.RowsAffected, nil
}

// PutNote 按日期插入或替换每日备注
func (s *Store) PutNote(ctx context.Context, note *DailyNote) error {
	if note == nil || note.Date == "" {
		return wrapIO("put note", errors.New("note date is required"))
	}
	return wrapIO("put note", upsert(s.db.WithContext(ctx), note, "date"))
}

// GetNote 读取某日备注
func (s *Store) GetNote(ctx context.Context, date string) (*DailyNote, error) {
	var note DailyNote
	if err := s.db.WithContext(ctx).Where("date = ?", date).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapIO("get note", err)
	}
	return &note, nil
}

// DeleteNote 删除某日备注，记录不存在时不报错
func (s *Store) DeleteNote(ctx context.Context, date string) error {
	return wrapIO("delete note", s.db.WithContext(ctx).Where("date = ?", date).Delete(&DailyNote{}).Error)
}

// ListNotes 按日期升序返回全部备注
func (s *Store) ListNotes(ctx context.Context) ([]DailyNote, error) {
	var notes []DailyNote
	if err := s.db.WithContext(ctx).Order("date ASC").Find(&notes).Error; err != nil {
		return nil, wrapIO("list notes", err)
	}
	return notes, nil
}

// PutSetting 插入或替换单个设置项
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	return wrapIO("put setting", upsert(s.db.WithContext(ctx), &Setting{Key: key, Value: value}, "key"))
}

// PutSettings 在同一事务中写入多个设置项
func (s *Store) PutSettings(ctx context.Context, values map[string]string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if err := upsert(tx, &Setting{Key: key, Value: value}, "key"); err != nil {
				return fmt.Errorf("upsert setting %s: %w", key, err)
			}
		}
		return nil
	})
	return wrapIO("put settings", err)
}

// GetSetting 读取单个设置项
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", wrapIO("get setting", err)
	}
	return setting.Value, nil
}

// DeleteSetting 删除单个设置项
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	return wrapIO("delete setting", s.db.WithContext(ctx).Where("key = ?", key).Delete(&Setting{}).Error)
}

// ListSettings 返回全部设置项
func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	var records []Setting
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, wrapIO("list settings", err)
	}
	values := make(map[string]string, len(records))
	for _, record := range records {
		values[record.Key] = record.Value
	}
	return values, nil
}

// ImportResult 汇总批量导入的结果，失败记录逐条列出
type ImportResult struct {
	Habits   int
	Logs     int
	Notes    int
	Failures []error
}

// ImportRecords 逐条 upsert 导入数据。每条记录独立事务，
// 单条失败只记录到 Failures，不影响其他记录。内容为空的备注删除同日记录。
func (s *Store) ImportRecords(ctx context.Context, habits []Habit, logs []HabitLog, notes []DailyNote) ImportResult {
	var result ImportResult

	failed := make(map[string]bool)
	for i := range habits {
		if err := s.PutHabit(ctx, &habits[i]); err != nil {
			failed[habits[i].ID] = true
			result.Failures = append(result.Failures, fmt.Errorf("habit %s: %w", habits[i].ID, err))
			continue
		}
		result.Habits++
	}
	for i := range logs {
		if failed[logs[i].HabitID] {
			result.Failures = append(result.Failures, fmt.Errorf("log %s/%s: habit was not imported", logs[i].HabitID, logs[i].Date))
			continue
		}
		if err := s.PutLog(ctx, &logs[i]); err != nil {
			result.Failures = append(result.Failures, fmt.Errorf("log %s/%s: %w", logs[i].HabitID, logs[i].Date, err))
			continue
		}
		result.Logs++
	}
	for i := range notes {
		if strings.TrimSpace(notes[i].Note) == "" {
			// 空备注等同于删除
			if err := s.DeleteNote(ctx, notes[i].Date); err != nil {
				result.Failures = append(result.Failures, fmt.Errorf("note %s: %w", notes[i].Date, err))
				continue
			}
			result.Notes++
			continue
		}
		if err := s.PutNote(ctx, &notes[i]); err != nil {
			result.Failures = append(result.Failures, fmt.Errorf("note %s: %w", notes[i].Date, err))
			continue
		}
		result.Notes++
	}

	return result
}

// ClearAll 清空习惯、打卡与备注，设置项保留
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&HabitLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&Habit{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&DailyNote{}).Error
	})
	return wrapIO("clear all", err)
}
