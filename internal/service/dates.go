package service

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 为日志与备注使用的日期格式
const DateLayout = "2006-01-02"

// FormatDate 将时间格式化为本地日历日期
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate 按 YYYY-MM-DD 解析日期，使用 loc 作为时区（nil 时为 time.Local）
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return parsed, nil
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
