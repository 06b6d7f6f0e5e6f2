package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/habitgrid/internal/service"
)

// maxImportSize 限制导入文件大小
const maxImportSize = 32 << 20

// HealthCheck 检查存储是否可用
func (a *API) HealthCheck(c *gin.Context) {
	if a.ping != nil {
		if err := a.ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "error",
				"message": "database unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
		"message":  "pong",
	})
}

// GetSettings 返回当前偏好设置
func (a *API) GetSettings(c *gin.Context) {
	prefs, err := a.settings.GetPreferences(c.Request.Context())
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": prefs})
}

// UpdateSettings 保存偏好设置
func (a *API) UpdateSettings(c *gin.Context) {
	var input service.Preferences
	if !bindJSON(c, &input, "invalid settings payload") {
		return
	}

	prefs, err := a.settings.UpdatePreferences(c.Request.Context(), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": prefs})
}

// ExportData 以附件形式下载完整备份
func (a *API) ExportData(c *gin.Context) {
	// 导出前先落盘尚未保存的备注
	if err := a.notes.Flush(c.Request.Context()); err != nil {
		a.handleServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := a.exporter.WriteExport(c.Request.Context(), &buf); err != nil {
		a.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("habitgrid-%s.json", a.today().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

// ImportData 合并导入备份，支持 multipart 文件字段 file 或原始 JSON 请求体
func (a *API) ImportData(c *gin.Context) {
	// 先落盘待保存的备注，避免其在导入后覆盖导入的内容
	if err := a.notes.Flush(c.Request.Context()); err != nil {
		a.handleServiceError(c, err)
		return
	}

	var src io.Reader = io.LimitReader(c.Request.Body, maxImportSize)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondError(c, http.StatusBadRequest, "missing file field")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "cannot read uploaded file")
			return
		}
		defer file.Close()
		src = io.LimitReader(file, maxImportSize)
	}

	summary, err := a.exporter.ImportAll(c.Request.Context(), src)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": summary})
}

// ClearData 清空习惯、打卡记录与备注
func (a *API) ClearData(c *gin.Context) {
	if err := a.notes.Flush(c.Request.Context()); err != nil {
		a.handleServiceError(c, err)
		return
	}
	if err := a.exporter.ClearAll(c.Request.Context()); err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
