package service

import "errors"

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrInvalidHabit 在习惯字段校验失败时返回
	ErrInvalidHabit = errors.New("invalid habit")
	// ErrInvalidDate 在日期无法按 YYYY-MM-DD 解析时返回
	ErrInvalidDate = errors.New("invalid date")
	// ErrFutureDate 表示尝试对今天之后的日期打卡或写备注。
	// 调用边界应将其视为静默的空操作，而不是致命错误。
	ErrFutureDate = errors.New("date is in the future")
	// ErrImportVersion 表示导入文件的 version 不受支持
	ErrImportVersion = errors.New("unsupported export version")
	// ErrImportMalformed 表示导入文件无法解析
	ErrImportMalformed = errors.New("malformed import document")
	// ErrInvalidSetting 表示设置值超出允许范围
	ErrInvalidSetting = errors.New("invalid setting")
)
