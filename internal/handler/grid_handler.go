package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/habitgrid/internal/grid"
	"github.com/habitgrid/internal/locale"
	"github.com/habitgrid/internal/service"
	"github.com/habitgrid/internal/snapshot"
	"github.com/habitgrid/internal/viewport"
)

type viewportEventsPayload struct {
	Events []viewport.PointerEvent `json:"events"`
}

type viewportFitPayload struct {
	ViewportWidth  float64 `json:"viewport_width"`
	ViewportHeight float64 `json:"viewport_height"`
}

type viewportState struct {
	Offset    viewport.Point  `json:"offset"`
	Scale     float64         `json:"scale"`
	MinScale  float64         `json:"min_scale"`
	MaxScale  float64         `json:"max_scale"`
	Transform viewport.Matrix `json:"transform"`
	Active    int             `json:"active_pointers"`
}

// layout 按偏好计算布局，lang 非空时覆盖月份名称语言
func (a *API) layout(c *gin.Context, lang string) (grid.Layout, service.Preferences, bool) {
	prefs, err := a.settings.GetPreferences(c.Request.Context())
	if err != nil {
		a.handleServiceError(c, err)
		return grid.Layout{}, prefs, false
	}
	if normalized := locale.NormalizeLanguage(lang); normalized != "" {
		prefs.Language = normalized
	}
	return a.grid.Layout(prefs, a.today()), prefs, true
}

// GetGrid 返回网格布局 JSON
func (a *API) GetGrid(c *gin.Context) {
	layout, prefs, ok := a.layout(c, c.Query("lang"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"layout": layout,
		"empty":  layout.Empty(),
		"theme":  prefs.Theme,
		"accent": prefs.AccentColor,
	})
}

// GetGridPNG 渲染网格快照；?scale= 缩放输出，默认使用当前视口缩放
func (a *API) GetGridPNG(c *gin.Context) {
	// 内置点阵字体只覆盖 ASCII
	layout, prefs, ok := a.layout(c, locale.LanguageEnglish)
	if !ok {
		return
	}
	if layout.Empty() {
		c.Status(http.StatusNoContent)
		return
	}

	scale := a.currentScale()
	if raw := strings.TrimSpace(c.Query("scale")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			respondError(c, http.StatusBadRequest, "invalid scale")
			return
		}
		scale = parsed
	}

	opts := snapshot.Options{Scale: scale, Accent: prefs.AccentColor}
	if prefs.Theme == service.ThemeDark {
		opts.Palette = snapshot.DarkPalette
	}

	var buf bytes.Buffer
	if err := snapshot.WritePNG(&buf, layout, opts); err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (a *API) currentScale() float64 {
	a.viewMu.Lock()
	defer a.viewMu.Unlock()
	return a.view.Scale
}

func (a *API) viewportStateLocked() viewportState {
	return viewportState{
		Offset:    a.view.Offset,
		Scale:     a.view.Scale,
		MinScale:  a.view.MinScale,
		MaxScale:  a.view.MaxScale,
		Transform: a.view.Transform(),
		Active:    a.gestures.Active(),
	}
}

// GetViewport 返回当前视口
func (a *API) GetViewport(c *gin.Context) {
	a.viewMu.Lock()
	state := a.viewportStateLocked()
	a.viewMu.Unlock()
	c.JSON(http.StatusOK, gin.H{"viewport": state})
}

// HandleViewportEvents 依次应用输入事件并返回更新后的视口
func (a *API) HandleViewportEvents(c *gin.Context) {
	var payload viewportEventsPayload
	if !bindJSON(c, &payload, "invalid viewport events") {
		return
	}

	content := viewport.Content{}
	for _, ev := range payload.Events {
		if ev.Kind == viewport.Fit {
			layout, _, ok := a.layout(c, "")
			if !ok {
				return
			}
			content = viewport.Content{Width: layout.GridWidth, Height: layout.GridHeight, TargetX: layout.TodayColumnX}
			break
		}
	}

	a.viewMu.Lock()
	for _, ev := range payload.Events {
		a.gestures.Handle(a.view, ev, content)
	}
	state := a.viewportStateLocked()
	a.viewMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"viewport": state})
}

// FitViewport 将今天所在列居中并按内容高度缩放
func (a *API) FitViewport(c *gin.Context) {
	var payload viewportFitPayload
	if !bindJSON(c, &payload, "invalid viewport size") {
		return
	}
	if payload.ViewportWidth <= 0 || payload.ViewportHeight <= 0 {
		respondError(c, http.StatusBadRequest, "viewport size must be positive")
		return
	}

	layout, _, ok := a.layout(c, "")
	if !ok {
		return
	}

	a.viewMu.Lock()
	a.view.FitToContent(layout.GridWidth, layout.GridHeight, layout.TodayColumnX, payload.ViewportWidth, payload.ViewportHeight)
	state := a.viewportStateLocked()
	a.viewMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"viewport": state})
}
