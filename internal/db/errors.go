package db

import (
	"errors"
	"fmt"
)

// ErrNotFound 在按主键读取的记录不存在时返回
var ErrNotFound = errors.New("record not found")

// IOError 表示一次存储读写失败（磁盘、配额、损坏等）。
// 调用方应直接向上暴露，不得在失败后保留内存中的修改。
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIOError 判断错误链中是否包含 IOError
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

func wrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Err: err}
}
