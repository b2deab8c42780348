package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/SufyanAli56/Task-Manager/internal/config"
	"github.com/SufyanAli56/Task-Manager/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendVerificationCodeMissingConfig(t *testing.T) {
	n := NewEmailNotifier(&config.EmailConfig{}, discardLogger())

	if err := n.SendVerificationCode("alice@example.com", "123456"); err == nil {
		t.Error("expected error when SMTP config is missing")
	}
}

func TestSendTaskReminderMissingConfigSkips(t *testing.T) {
	n := NewEmailNotifier(&config.EmailConfig{}, discardLogger())

	// 配置缺失时跳过而不报错，避免调度器无限重试
	task := &model.Task{ID: 1, Title: "x"}
	if err := n.SendTaskReminder(context.Background(), task, "alice@example.com"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestBuildReminderBody(t *testing.T) {
	n := NewEmailNotifier(&config.EmailConfig{}, discardLogger())

	due := time.Date(2025, 3, 14, 15, 4, 0, 0, time.UTC)
	task := &model.Task{
		ID:          1,
		Title:       "Ship release",
		Description: "Cut the final build",
		Status:      "in-progress",
		DueAt:       &due,
	}

	body := n.buildReminderBody(task)
	for _, want := range []string{"Ship release", "Cut the final build", "2025-03-14 15:04", "in-progress"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	// 无截止时间时不崩
	body = n.buildReminderBody(&model.Task{Title: "t"})
	if !strings.Contains(body, "Due:") {
		t.Error("body must render without a due date")
	}
}
