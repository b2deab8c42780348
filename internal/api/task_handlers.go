package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SufyanAli56/Task-Manager/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// createTaskRequest 创建任务的请求参数。
type createTaskRequest struct {
	Title         string     `json:"title" binding:"required"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	ProjectID     *uint      `json:"project_id"`
	DueAt         *time.Time `json:"due_at"`
	NotifyEnabled *bool      `json:"notify_enabled"`
}

// updateTaskRequest 更新任务的请求参数（指针字段表示可选）。
type updateTaskRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Status        *string    `json:"status"`
	ProjectID     *uint      `json:"project_id"`
	DueAt         *time.Time `json:"due_at"`
	NotifyEnabled *bool      `json:"notify_enabled"`
}

// handleListTasks 返回当前用户的任务列表（可按项目过滤）。
//
// GET /api/tasks?project_id=1
func (s *Server) handleListTasks(c *gin.Context) {
	userID := getUserID(c)

	var projectID *uint
	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid project_id"})
			return
		}
		pid := uint(id)
		projectID = &pid
	}

	tasks, err := s.taskStore.List(c.Request.Context(), userID, projectID)
	if err != nil {
		s.logger.Error("list tasks failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "list tasks failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(tasks), "data": tasks})
}

// handleCreateTask 处理创建任务的请求。
//
// POST /api/tasks
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	userID := getUserID(c)

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = string(model.TaskStatusPending)
	}
	if !model.ValidTaskStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid status"})
		return
	}

	if req.ProjectID != nil {
		if _, err := s.projectStore.Get(c.Request.Context(), userID, *req.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Project not found"})
				return
			}
			s.logger.Error("load project failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "load project failed"})
			return
		}
	}

	notify := true
	if req.NotifyEnabled != nil {
		notify = *req.NotifyEnabled
	}

	task := model.Task{
		UserID:        userID,
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Status:        status,
		ProjectID:     req.ProjectID,
		DueAt:         req.DueAt,
		NotifyEnabled: notify,
	}

	if err := s.taskStore.Create(c.Request.Context(), &task); err != nil {
		s.logger.Error("create task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "create task failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": task})
}

// handleUpdateTask 更新任务字段。
//
// PUT /api/tasks/:id
func (s *Server) handleUpdateTask(c *gin.Context) {
	userID := getUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	task, err := s.taskStore.Get(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Task not found"})
			return
		}
		s.logger.Error("load task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "load task failed"})
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Title is required"})
			return
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !model.ValidTaskStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid status"})
			return
		}
		task.Status = *req.Status
	}
	if req.ProjectID != nil {
		if _, err := s.projectStore.Get(c.Request.Context(), userID, *req.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Project not found"})
				return
			}
			s.logger.Error("load project failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "load project failed"})
			return
		}
		task.ProjectID = req.ProjectID
	}
	if req.DueAt != nil {
		task.DueAt = req.DueAt
	}
	if req.NotifyEnabled != nil {
		task.NotifyEnabled = *req.NotifyEnabled
	}

	if err := s.taskStore.Save(c.Request.Context(), task); err != nil {
		s.logger.Error("update task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "update task failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": task})
}

// handleDeleteTask 删除任务。
//
// DELETE /api/tasks/:id
func (s *Server) handleDeleteTask(c *gin.Context) {
	userID := getUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := s.taskStore.Delete(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Task not found"})
			return
		}
		s.logger.Error("delete task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete task failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}

// parseIDParam 解析路径参数中的数字 ID，非法时写入 400 响应。
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func getUserID(c *gin.Context) uint {
	v, ok := c.Get("userID")
	if !ok {
		return 0
	}
	if id, ok := v.(uint); ok {
		return id
	}
	return 0
}
