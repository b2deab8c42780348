package api

import (
	"context"
	"errors"

	"github.com/SufyanAli56/Task-Manager/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoData 初始化演示账户和示例数据。
//
// 演示账户已验证，可直接登录体验，不会重复创建。
func (s *Server) SeedDemoData(ctx context.Context) error {
	const demoEmail = "demo@taskmanager.local"
	const demoPassword = "demo-pass"

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", demoEmail).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		user = model.User{
			Name:       "Demo",
			Email:      demoEmail,
			Password:   string(hash),
			IsVerified: true,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	}

	var project model.Project
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", user.ID, "Getting Started").
		First(&project).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		project = model.Project{
			UserID:      user.ID,
			Name:        "Getting Started",
			Description: "A sample project to explore the tracker.",
			Status:      string(model.ProjectStatusActive),
		}
		if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
			return err
		}

		tasks := []model.Task{
			{
				UserID:      user.ID,
				ProjectID:   &project.ID,
				Title:       "Create your first task",
				Description: "Use POST /api/tasks to add a task.",
				Status:      string(model.TaskStatusCompleted),
			},
			{
				UserID:      user.ID,
				ProjectID:   &project.ID,
				Title:       "Invite your team",
				Description: "Each member registers and verifies their email.",
				Status:      string(model.TaskStatusPending),
			},
		}
		if err := s.db.WithContext(ctx).Create(&tasks).Error; err != nil {
			return err
		}
	}

	return nil
}
