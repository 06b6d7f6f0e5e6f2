package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPath 为未配置数据库路径时使用的文件名。
const DefaultPath = "habitgrid.db"

type options struct {
	logLevel logger.LogLevel
}

// Option 调整 Open 的行为。
type Option func(*options)

// WithLogLevel 设置 gorm 的 SQL 日志级别，默认静默。
func WithLogLevel(level logger.LogLevel) Option {
	return func(o *options) { o.logLevel = level }
}

// Open 打开（必要时创建）SQLite 数据库并执行自动迁移。
// databasePath 为空时回退到 DefaultPath。
func Open(databasePath string, opts ...Option) (*Store, error) {
	cfg := options{logLevel: logger.Silent}
	for _, opt := range opts {
		opt(&cfg)
	}

	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = DefaultPath
	}

	if err := ensureParentDir(path); err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.logLevel),
	})
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}

	if err := Migrate(gdb); err != nil {
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, &IOError{Op: "migrate", Err: err}
	}

	return NewStore(gdb), nil
}

// Migrate 为四类记录建表。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&Habit{},
		&HabitLog{},
		&DailyNote{},
		&Setting{},
	)
}

func ensureParentDir(path string) error {
	if strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory") {
		return nil
	}
	path = strings.TrimPrefix(path, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
