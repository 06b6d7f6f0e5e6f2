package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type notePayload struct {
	Note string `json:"note"`
	// Flush 为 true 时立即保存而不是等待合并窗口
	Flush bool `json:"flush"`
}

func renderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return string(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

// GetNote 返回某日备注原文
func (a *API) GetNote(c *gin.Context) {
	date := c.Param("date")
	note, err := a.repo.Note(c.Request.Context(), date)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "note": note})
}

// PutNote 提交备注编辑；默认经过合并窗口后写入
func (a *API) PutNote(c *gin.Context) {
	var payload notePayload
	if !bindJSON(c, &payload, "invalid note payload") {
		return
	}

	date := c.Param("date")
	if payload.Flush {
		if err := a.repo.SaveNote(c.Request.Context(), date, payload.Note); err != nil {
			a.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "saved": true})
		return
	}

	// 提前拒绝非法与未来日期，避免排入无效的保存
	key, err := a.repo.CheckDate(date)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	if err := a.notes.Schedule(key, payload.Note); err != nil {
		respondError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"date": date, "saved": false})
}

// GetNoteHTML 返回渲染并净化后的备注 HTML
func (a *API) GetNoteHTML(c *gin.Context) {
	note, err := a.repo.Note(c.Request.Context(), c.Param("date"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	rendered, err := renderMarkdown(note)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rendered))
}
