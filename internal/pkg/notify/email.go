package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SufyanAli56/Task-Manager/internal/config"
	"github.com/SufyanAli56/Task-Manager/internal/model"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/metrics"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现基于 SMTP 的邮件发送。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendVerificationCode 发送注册验证码。
func (n *EmailNotifier) SendVerificationCode(toEmail string, code string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Verify your Task Manager Account")
	m.SetBody("text/plain", fmt.Sprintf("Your OTP is: %s", code))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		metrics.EmailFailedTotal.Inc()
		return fmt.Errorf("send email: %w", err)
	}

	metrics.EmailSentTotal.Inc()
	n.logger.Info("verification email sent", slog.String("to", toEmail))
	return nil
}

// SendTaskReminder 发送任务到期提醒。
func (n *EmailNotifier) SendTaskReminder(ctx context.Context, task *model.Task, toEmail string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip reminder")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip reminder")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Task Manager] Due soon: %s", task.Title))
	m.SetBody("text/html", n.buildReminderBody(task))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		metrics.EmailFailedTotal.Inc()
		return fmt.Errorf("send email: %w", err)
	}

	metrics.EmailSentTotal.Inc()
	n.logger.Info("reminder email sent",
		slog.String("to", toEmail),
		slog.Uint64("task_id", uint64(task.ID)))
	return nil
}

func (n *EmailNotifier) buildReminderBody(task *model.Task) string {
	dueLine := ""
	if task.DueAt != nil {
		dueLine = task.DueAt.Format("2006-01-02 15:04")
	}

	template := `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937;">
  <div style="max-width: 520px; margin: 24px auto; background: #ffffff; border-radius: 12px; border: 1px solid #e5e7eb; padding: 20px;">
    <h2 style="margin-top: 0;">Task due soon</h2>
    <div style="font-size: 18px; font-weight: bold; margin-bottom: 8px;">%s</div>
    <div style="margin-bottom: 12px;">%s</div>
    <div style="font-size: 13px; color: #6b7280;">Due: %s · Status: %s</div>
  </div>
</body>
</html>`

	return fmt.Sprintf(template, task.Title, task.Description, dueLine, task.Status)
}
