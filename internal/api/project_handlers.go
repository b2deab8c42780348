package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SufyanAli56/Task-Manager/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// createProjectRequest 创建项目的请求参数。
type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// updateProjectRequest 更新项目的请求参数（指针字段表示可选）。
type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// handleListProjects 返回当前用户的项目列表。
//
// GET /api/projects
func (s *Server) handleListProjects(c *gin.Context) {
	userID := getUserID(c)

	projects, err := s.projectStore.List(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("list projects failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "list projects failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(projects), "data": projects})
}

// handleCreateProject 处理创建项目的请求。
//
// POST /api/projects
func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	userID := getUserID(c)

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = string(model.ProjectStatusActive)
	}
	if !model.ValidProjectStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid status"})
		return
	}

	project := model.Project{
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Status:      status,
	}

	if err := s.projectStore.Create(c.Request.Context(), &project); err != nil {
		s.logger.Error("create project failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "create project failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": project})
}

// handleUpdateProject 更新项目字段。
//
// PUT /api/projects/:id
func (s *Server) handleUpdateProject(c *gin.Context) {
	userID := getUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	project, err := s.projectStore.Get(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Project not found"})
			return
		}
		s.logger.Error("load project failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "load project failed"})
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Project name is required"})
			return
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !model.ValidProjectStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid status"})
			return
		}
		project.Status = *req.Status
	}

	if err := s.projectStore.Save(c.Request.Context(), project); err != nil {
		s.logger.Error("update project failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "update project failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": project})
}

// handleDeleteProject 删除项目（项目下的任务保留，project_id 置空由外键约束处理）。
//
// DELETE /api/projects/:id
func (s *Server) handleDeleteProject(c *gin.Context) {
	userID := getUserID(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := s.projectStore.Delete(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Project not found"})
			return
		}
		s.logger.Error("delete project failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete project failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Project deleted successfully"})
}
