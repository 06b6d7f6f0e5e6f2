package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/habitgrid/internal/db"
	"go.uber.org/zap"
)

// ExportVersion 为当前导出文件格式版本
const ExportVersion = 1

// ExportDocument 为完整备份的 JSON 结构
type ExportDocument struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Habits     []db.Habit     `json:"habits"`
	Logs       []db.HabitLog  `json:"logs"`
	Notes      []db.DailyNote `json:"notes"`
}

// ImportSummary 汇总导入结果
type ImportSummary struct {
	Habits   int      `json:"habits"`
	Logs     int      `json:"logs"`
	Notes    int      `json:"notes"`
	Failures []string `json:"failures,omitempty"`
}

// Exporter 负责整库导出、导入与清空，导入和清空后会重建 Repository 镜像
type Exporter struct {
	repo *Repository
}

// NewExporter 构造 Exporter
func NewExporter(repo *Repository) *Exporter {
	return &Exporter{repo: repo}
}

// ExportAll 读取存储中的全部习惯（含归档）、打卡记录与备注
func (e *Exporter) ExportAll(ctx context.Context) (ExportDocument, error) {
	r := e.repo
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	habits, err := r.store.ListHabits(ctx, true)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("export habits: %w", err)
	}
	logs, err := r.store.ListLogs(ctx)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("export logs: %w", err)
	}
	notes, err := r.store.ListNotes(ctx)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("export notes: %w", err)
	}

	doc := ExportDocument{
		Version:    ExportVersion,
		ExportedAt: r.now().UTC(),
		Habits:     habits,
		Logs:       logs,
		Notes:      notes,
	}
	if doc.Habits == nil {
		doc.Habits = []db.Habit{}
	}
	if doc.Logs == nil {
		doc.Logs = []db.HabitLog{}
	}
	if doc.Notes == nil {
		doc.Notes = []db.DailyNote{}
	}
	return doc, nil
}

// WriteExport 将导出文档以缩进 JSON 写入 w
func (e *Exporter) WriteExport(ctx context.Context, w io.Writer) error {
	doc, err := e.ExportAll(ctx)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ImportAll 解析导出文档并按自然主键逐条 upsert（合并导入），随后重新加载镜像。
// 文档无法解析返回 ErrImportMalformed，版本不符返回 ErrImportVersion，两种情况均不写入任何数据。
// 不合法的单条记录（字段校验失败、日期格式错误、引用未知习惯的打卡）不写入，记入 Failures。
func (e *Exporter) ImportAll(ctx context.Context, src io.Reader) (ImportSummary, error) {
	var doc ExportDocument
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}
	if doc.Version != ExportVersion {
		return ImportSummary{}, fmt.Errorf("%w: %d", ErrImportVersion, doc.Version)
	}

	r := e.repo
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	stored, err := r.store.ListHabits(ctx, true)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("import: %w", err)
	}
	known := make(map[string]bool, len(stored)+len(doc.Habits))
	for _, habit := range stored {
		known[habit.ID] = true
	}

	habits, logs, notes, rejected := e.validateDocument(doc, known)
	result := r.store.ImportRecords(ctx, habits, logs, notes)
	summary := ImportSummary{Habits: result.Habits, Logs: result.Logs, Notes: result.Notes}
	for _, failure := range append(rejected, result.Failures...) {
		summary.Failures = append(summary.Failures, failure.Error())
		r.logger.Warn("import record failed", zap.Error(failure))
	}

	if err := r.reload(ctx); err != nil {
		return summary, fmt.Errorf("reload after import: %w", err)
	}

	r.logger.Info("import finished",
		zap.Int("habits", summary.Habits),
		zap.Int("logs", summary.Logs),
		zap.Int("notes", summary.Notes),
		zap.Int("failures", len(summary.Failures)))
	return summary, nil
}

// validateDocument 按与交互写入相同的规则校验并规范化导入记录。
// known 为存储中已有的习惯 ID，通过校验的导入习惯会加入其中。
func (e *Exporter) validateDocument(doc ExportDocument, known map[string]bool) ([]db.Habit, []db.HabitLog, []db.DailyNote, []error) {
	loc := e.repo.now().Location()
	var rejected []error

	habits := make([]db.Habit, 0, len(doc.Habits))
	for _, habit := range doc.Habits {
		id := strings.TrimSpace(habit.ID)
		if id == "" {
			rejected = append(rejected, fmt.Errorf("habit %q: %w: id is required", habit.Name, ErrInvalidHabit))
			continue
		}
		normalized, err := normalizeHabitInput(HabitInput{
			Name:        habit.Name,
			Description: habit.Description,
			Color:       habit.Color,
			Icon:        habit.Icon,
			Frequency:   habit.Frequency,
			TargetDays:  habit.TargetDays,
			Status:      habit.Status,
		}, true)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("habit %s: %w", id, err))
			continue
		}

		habit.ID = id
		habit.Name = normalized.Name
		habit.Description = normalized.Description
		habit.Color = normalized.Color
		habit.Icon = normalized.Icon
		habit.Frequency = normalized.Frequency
		habit.TargetDays = normalized.TargetDays
		habit.Status = normalized.Status
		if habit.Status != db.StatusArchived {
			habit.ArchivedAt = nil
		} else if habit.ArchivedAt == nil {
			archivedAt := habit.UpdatedAt
			if archivedAt.IsZero() {
				archivedAt = e.repo.now().UTC()
			}
			habit.ArchivedAt = &archivedAt
		}
		known[id] = true
		habits = append(habits, habit)
	}

	logs := make([]db.HabitLog, 0, len(doc.Logs))
	for _, entry := range doc.Logs {
		day, err := ParseDate(entry.Date, loc)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("log %s/%s: %w", entry.HabitID, entry.Date, err))
			continue
		}
		if !known[entry.HabitID] {
			rejected = append(rejected, fmt.Errorf("log %s/%s: %w", entry.HabitID, entry.Date, ErrHabitNotFound))
			continue
		}
		entry.Date = FormatDate(day)
		logs = append(logs, entry)
	}

	notes := make([]db.DailyNote, 0, len(doc.Notes))
	for _, note := range doc.Notes {
		day, err := ParseDate(note.Date, loc)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("note %s: %w", note.Date, err))
			continue
		}
		note.Date = FormatDate(day)
		note.Note = strings.TrimSpace(note.Note)
		notes = append(notes, note)
	}

	return habits, logs, notes, rejected
}

// ClearAll 清空习惯、打卡记录与备注；设置项保留
func (e *Exporter) ClearAll(ctx context.Context) error {
	r := e.repo
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	if err := r.reload(ctx); err != nil {
		return fmt.Errorf("reload after clear: %w", err)
	}
	r.logger.Info("all habit data cleared")
	return nil
}

// IsImportError 报告 err 是否为导入文档本身的问题（而非存储故障）
func IsImportError(err error) bool {
	return errors.Is(err, ErrImportMalformed) || errors.Is(err, ErrImportVersion)
}
