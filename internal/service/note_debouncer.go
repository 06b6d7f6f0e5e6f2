package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultNoteDebounce 为备注编辑的默认合并窗口
const DefaultNoteDebounce = 500 * time.Millisecond

// ErrDebouncerClosed 表示 NoteDebouncer 已关闭
var ErrDebouncerClosed = errors.New("note debouncer closed")

// NoteSaver 持久化一条备注
type NoteSaver func(ctx context.Context, date, content string) error

type pendingNote struct {
	content string
	timer   *time.Timer
}

// NoteDebouncer 按日期合并连续的备注编辑，窗口内只保存最后一次内容
type NoteDebouncer struct {
	save   NoteSaver
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingNote
	closed  bool
	wg      sync.WaitGroup
}

// NewNoteDebouncer 构造 NoteDebouncer，delay 非正数时使用 DefaultNoteDebounce
func NewNoteDebouncer(save NoteSaver, delay time.Duration, logger *zap.Logger) *NoteDebouncer {
	if delay <= 0 {
		delay = DefaultNoteDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteDebouncer{
		save:    save,
		delay:   delay,
		logger:  logger,
		pending: make(map[string]*pendingNote),
	}
}

// Schedule 记录某日最新的备注内容，并重置该日的计时器
func (d *NoteDebouncer) Schedule(date, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDebouncerClosed
	}

	if prev, ok := d.pending[date]; ok && prev.timer.Stop() {
		d.wg.Done()
	}

	entry := &pendingNote{content: content}
	d.wg.Add(1)
	entry.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.fire(date, entry)
	})
	d.pending[date] = entry
	return nil
}

func (d *NoteDebouncer) fire(date string, entry *pendingNote) {
	d.mu.Lock()
	if d.pending[date] != entry {
		// 已被新的编辑替换或已由 Flush 处理
		d.mu.Unlock()
		return
	}
	delete(d.pending, date)
	d.mu.Unlock()

	if err := d.save(context.Background(), date, entry.content); err != nil && !errors.Is(err, ErrFutureDate) {
		d.logger.Warn("debounced note save failed", zap.String("date", date), zap.Error(err))
	}
}

// Pending 返回尚未保存的日期数量
func (d *NoteDebouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush 立即保存全部待处理的备注
func (d *NoteDebouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	batch := make(map[string]string, len(d.pending))
	for date, entry := range d.pending {
		if entry.timer.Stop() {
			d.wg.Done()
		}
		batch[date] = entry.content
	}
	d.pending = make(map[string]*pendingNote)
	d.mu.Unlock()

	var errs []error
	for date, content := range batch {
		if err := d.save(ctx, date, content); err != nil && !errors.Is(err, ErrFutureDate) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close 保存剩余备注并等待进行中的保存完成，之后 Schedule 返回 ErrDebouncerClosed
func (d *NoteDebouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	err := d.Flush(ctx)
	d.wg.Wait()
	return err
}
