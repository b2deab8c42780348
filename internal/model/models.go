package model

import (
	"time"
)

// TaskStatus 任务状态。
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"     // 待处理
	TaskStatusInProgress TaskStatus = "in-progress" // 进行中
	TaskStatusCompleted  TaskStatus = "completed"   // 已完成
)

// ValidTaskStatus 判断任务状态是否合法。
func ValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task 表示一个待办任务。
//
// 任务可以挂在某个项目下（ProjectID 可空），也可以独立存在。
// DueAt 非空且 NotifyEnabled 时，到期前会由提醒调度器发送一封邮件。
type Task struct {
	ID        uint      `gorm:"primaryKey"` // 任务唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	UserID uint `gorm:"not null;index"` // 所属用户 ID
	User   User `gorm:"foreignKey:UserID"`

	Title       string `gorm:"type:varchar(191);not null"` // 任务标题
	Description string // 任务描述

	Status    string   `gorm:"type:varchar(16);default:pending"` // 任务状态: pending / in-progress / completed
	ProjectID *uint    `gorm:"index"`                            // 所属项目 ID（可空）
	Project   *Project `gorm:"foreignKey:ProjectID"`

	DueAt         *time.Time // 截止时间（可空）
	NotifyEnabled bool       `gorm:"default:true"` // 是否开启到期邮件提醒
}

// ProjectStatus 项目状态。
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"    // 进行中
	ProjectStatusOnHold    ProjectStatus = "on-hold"   // 挂起
	ProjectStatusCompleted ProjectStatus = "completed" // 已完成
)

// ValidProjectStatus 判断项目状态是否合法。
func ValidProjectStatus(s string) bool {
	switch ProjectStatus(s) {
	case ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted:
		return true
	}
	return false
}

// Project 表示一个项目（任务分组）。
type Project struct {
	ID        uint      `gorm:"primaryKey"` // 项目唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	UserID uint `gorm:"not null;index"` // 所属用户 ID
	User   User `gorm:"foreignKey:UserID"`

	Name        string `gorm:"type:varchar(191);not null"` // 项目名称
	Description string // 项目描述
	Status      string `gorm:"type:varchar(16);default:active"` // 项目状态: active / on-hold / completed

	Tasks []Task `gorm:"foreignKey:ProjectID"` // 项目下的任务
}
