package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitgrid/internal/db"
	"github.com/habitgrid/internal/service"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// handleServiceError 将 service/db 错误映射为 HTTP 响应。
// 对未来日期的写入在边界处视为静默空操作。
func (a *API) handleServiceError(c *gin.Context, err error) {
	var ioErr *db.IOError
	switch {
	case errors.Is(err, service.ErrFutureDate):
		c.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "habit not found")
	case errors.Is(err, service.ErrInvalidHabit),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidSetting):
		respondError(c, http.StatusBadRequest, err.Error())
	case service.IsImportError(err):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &ioErr):
		a.logger.Error("storage failure", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "storage failure, nothing was changed")
	default:
		a.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "operation failed")
	}
}

// asOfParam 解析 ?as_of=YYYY-MM-DD，缺省为今天
func (a *API) asOfParam(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("as_of"))
	if raw == "" {
		return a.today(), true
	}
	asOf, err := service.ParseDate(raw, a.today().Location())
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid as_of date")
		return time.Time{}, false
	}
	return asOf, true
}
