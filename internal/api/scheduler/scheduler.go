package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SufyanAli56/Task-Manager/internal/model"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/dedup"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/metrics"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/notify"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/queue"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ReminderTask 是一条待提醒的任务记录（任务字段 + 所属用户邮箱）。
type ReminderTask struct {
	ID          uint       `gorm:"column:id"`
	Title       string     `gorm:"column:title"`
	Description string     `gorm:"column:description"`
	Status      string     `gorm:"column:status"`
	DueAt       *time.Time `gorm:"column:due_at"`
	Email       string     `gorm:"column:email"`
}

// TaskSource 列出截止时间落在给定窗口内、需要提醒的任务。
type TaskSource interface {
	DueTasks(ctx context.Context, from, until time.Time) ([]ReminderTask, error)
}

type gormTaskSource struct {
	db *gorm.DB
}

func (s gormTaskSource) DueTasks(ctx context.Context, from, until time.Time) ([]ReminderTask, error) {
	rows := []ReminderTask{}
	err := s.db.WithContext(ctx).Table("tasks").
		Select("tasks.id, tasks.title, tasks.description, tasks.status, tasks.due_at, users.email").
		Joins("JOIN users ON users.id = tasks.user_id").
		Where("tasks.due_at IS NOT NULL AND tasks.due_at > ? AND tasks.due_at <= ?", from, until).
		Where("tasks.status <> ?", string(model.TaskStatusCompleted)).
		Where("tasks.notify_enabled = ?", true).
		Where("users.is_verified = ?", true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	return rows, nil
}

// Scheduler 周期性扫描即将到期的任务并通过 worker 池发送提醒邮件。
//
// 同一任务的同一个截止时间只提醒一次，由 Redis SETNX 守卫保证
// （多实例部署时守卫同样生效）。
type Scheduler struct {
	source   TaskSource
	guard    *dedup.Guard
	mailer   notify.Mailer
	logger   *slog.Logger
	interval time.Duration
	window   time.Duration
	queue    *queue.Queue
}

// NewScheduler 创建提醒调度器。
//
// 参数:
//
//	db: 数据库连接
//	rdb: Redis 客户端（单次提醒守卫）
//	mailer: 邮件发送器
//	logger: 日志记录器
//	interval: 扫描间隔（<= 0 使用 1 分钟）
//	window: 截止前多久开始提醒（<= 0 使用 24 小时）
//	workers: worker 数量
//	capacity: 队列容量
func NewScheduler(db *gorm.DB, rdb *redis.Client, mailer notify.Mailer, logger *slog.Logger, interval time.Duration, window time.Duration, workers int, capacity int) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	if workers <= 0 {
		workers = 10
	}
	if capacity <= 0 {
		capacity = 200
	}

	q := queue.NewQueue(logger, workers, capacity)
	q.SetErrorHandler(func(err error, job queue.Job) {
		logger.Error("reminder job failed", slog.String("error", err.Error()))
	})

	return &Scheduler{
		source:   gormTaskSource{db: db},
		guard:    dedup.NewGuard(rdb, 2*window),
		mailer:   mailer,
		logger:   logger,
		interval: interval,
		window:   window,
		queue:    q,
	}
}

// Run 启动调度循环，直到 ctx 被取消。
func (s *Scheduler) Run(ctx context.Context) {
	s.queue.Start(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.scanOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

// scanOnce 执行一轮扫描，将需要提醒的任务入队。
func (s *Scheduler) scanOnce(ctx context.Context) {
	now := time.Now()
	tasks, err := s.source.DueTasks(ctx, now, now.Add(s.window))
	if err != nil {
		s.logger.Error("scan due tasks failed", slog.String("error", err.Error()))
		return
	}

	for _, rt := range tasks {
		s.dispatch(ctx, rt)
	}
}

// dispatch 为单条任务入队一个提醒 job（已提醒过则跳过）。
func (s *Scheduler) dispatch(ctx context.Context, rt ReminderTask) {
	if rt.DueAt == nil || rt.Email == "" {
		return
	}

	key := reminderKey(rt.ID, *rt.DueAt)
	first, err := s.guard.First(ctx, key)
	if err != nil {
		s.logger.Warn("reminder guard failed", slog.String("error", err.Error()), slog.String("key", key))
		return
	}
	if !first {
		return
	}

	task := model.Task{
		ID:          rt.ID,
		Title:       rt.Title,
		Description: rt.Description,
		Status:      rt.Status,
		DueAt:       rt.DueAt,
	}
	email := rt.Email

	ok := s.queue.Enqueue(func(jobCtx context.Context) error {
		if err := s.mailer.SendTaskReminder(jobCtx, &task, email); err != nil {
			// 释放守卫，下一轮扫描重试
			if relErr := s.guard.Release(jobCtx, key); relErr != nil {
				s.logger.Warn("reminder guard release failed", slog.String("error", relErr.Error()))
			}
			return fmt.Errorf("task %d: %w", task.ID, err)
		}
		metrics.ReminderSentTotal.Inc()
		return nil
	})
	if !ok {
		// 入队失败也要释放守卫，否则该截止时间永远不会提醒
		if relErr := s.guard.Release(ctx, key); relErr != nil {
			s.logger.Warn("reminder guard release failed", slog.String("error", relErr.Error()))
		}
	}
}

// Shutdown 优雅关闭 worker 池。
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	return s.queue.ShutdownWithTimeout(timeout)
}

func reminderKey(taskID uint, dueAt time.Time) string {
	return fmt.Sprintf("task:%d:due:%d", taskID, dueAt.Unix())
}
