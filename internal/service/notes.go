package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/habitgrid/internal/db"
	"go.uber.org/zap"
)

// Note 读取某日备注，不存在时返回空字符串
func (r *Repository) Note(ctx context.Context, date string) (string, error) {
	now := r.now()
	parsed, err := ParseDate(date, now.Location())
	if err != nil {
		return "", err
	}

	note, err := r.store.GetNote(ctx, FormatDate(parsed))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get note: %w", err)
	}
	return note.Note, nil
}

// SaveNote 保存某日备注。内容去除首尾空白后为空则删除记录；
// 今天之后的日期返回 ErrFutureDate 且不写存储。
func (r *Repository) SaveNote(ctx context.Context, date, content string) error {
	key, err := r.checkDate(date)
	if err != nil {
		return err
	}
	content = strings.TrimSpace(content)

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if content == "" {
		if err := r.store.DeleteNote(ctx, key); err != nil {
			r.logger.Warn("delete note failed", zap.String("date", key), zap.Error(err))
			return fmt.Errorf("delete note: %w", err)
		}
		return nil
	}

	now := r.now().UTC()
	note := db.DailyNote{Date: key, Note: content, CreatedAt: now, UpdatedAt: now}
	if existing, err := r.store.GetNote(ctx, key); err == nil {
		note.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("save note: %w", err)
	}

	if err := r.store.PutNote(ctx, &note); err != nil {
		r.logger.Warn("put note failed", zap.String("date", key), zap.Error(err))
		return fmt.Errorf("save note: %w", err)
	}
	return nil
}
