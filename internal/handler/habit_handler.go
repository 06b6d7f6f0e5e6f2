package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/habitgrid/internal/db"
	"github.com/habitgrid/internal/service"
)

type statusPayload struct {
	Status string `json:"status"`
}

type orderPayload struct {
	IDs []string `json:"ids"`
}

type logPayload struct {
	Completed *bool   `json:"completed"`
	Note      *string `json:"note"`
}

// ListHabits 返回习惯列表；未指定 status 时返回全部未归档习惯
func (a *API) ListHabits(c *gin.Context) {
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status == "" {
		c.JSON(http.StatusOK, gin.H{"habits": a.repo.ListActiveDisplayHabits()})
		return
	}

	habits, err := a.repo.ListHabitsByStatus(c.Request.Context(), status)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	if habits == nil {
		habits = []db.Habit{}
	}
	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

// GetHabit 返回单个习惯及其打卡记录
func (a *API) GetHabit(c *gin.Context) {
	habit, ok := a.repo.Habit(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "habit not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit": habit, "logs": a.repo.LogsFor(habit.ID)})
}

// CreateHabit 新建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var input service.HabitInput
	if !bindJSON(c, &input, "invalid habit payload") {
		return
	}

	habit, err := a.repo.CreateHabit(c.Request.Context(), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	var input service.HabitInput
	if !bindJSON(c, &input, "invalid habit payload") {
		return
	}

	habit, err := a.repo.UpdateHabit(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// ArchiveHabit 归档习惯
func (a *API) ArchiveHabit(c *gin.Context) {
	habit, err := a.repo.ArchiveHabit(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// RestoreHabit 恢复归档习惯
func (a *API) RestoreHabit(c *gin.Context) {
	habit, err := a.repo.RestoreHabit(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// SetHabitStatus 暂停或恢复习惯
func (a *API) SetHabitStatus(c *gin.Context) {
	var payload statusPayload
	if !bindJSON(c, &payload, "invalid status payload") {
		return
	}

	habit, err := a.repo.SetHabitStatus(c.Request.Context(), c.Param("id"), payload.Status)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// DeleteHabit 删除习惯及其全部打卡记录
func (a *API) DeleteHabit(c *gin.Context) {
	if err := a.repo.DeleteHabit(c.Request.Context(), c.Param("id")); err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ReorderHabits 调整展示顺序
func (a *API) ReorderHabits(c *gin.Context) {
	var payload orderPayload
	if !bindJSON(c, &payload, "invalid order payload") {
		return
	}

	habits, err := a.repo.ReorderHabits(c.Request.Context(), payload.IDs)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

// ToggleLog 翻转某日完成状态
func (a *API) ToggleLog(c *gin.Context) {
	entry, err := a.repo.ToggleLog(c.Request.Context(), c.Param("id"), c.Param("date"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": entry})
}

// PutLog 显式设置某日完成状态和/或备注
func (a *API) PutLog(c *gin.Context) {
	var payload logPayload
	if !bindJSON(c, &payload, "invalid log payload") {
		return
	}
	if payload.Completed == nil && payload.Note == nil {
		respondError(c, http.StatusBadRequest, "completed or note is required")
		return
	}

	ctx := c.Request.Context()
	habitID, date := c.Param("id"), c.Param("date")
	var (
		entry db.HabitLog
		err   error
	)
	if payload.Completed != nil {
		entry, err = a.repo.UpsertLog(ctx, habitID, date, *payload.Completed)
	}
	if err == nil && payload.Note != nil {
		entry, err = a.repo.SetLogNote(ctx, habitID, date, *payload.Note)
	}
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": entry})
}

// GetHabitStats 返回习惯统计
func (a *API) GetHabitStats(c *gin.Context) {
	asOf, ok := a.asOfParam(c)
	if !ok {
		return
	}

	stats, err := a.repo.StreaksFor(c.Param("id"), asOf)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetToday 返回今日视图
func (a *API) GetToday(c *gin.Context) {
	asOf, ok := a.asOfParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.repo.TodaySummary(asOf))
}
