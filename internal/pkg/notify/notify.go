package notify

import (
	"context"

	"github.com/SufyanAli56/Task-Manager/internal/model"
)

// Mailer 定义邮件发送接口。
type Mailer interface {
	// SendVerificationCode 发送注册验证码。
	SendVerificationCode(toEmail string, code string) error

	// SendTaskReminder 发送任务到期提醒。
	//
	// 参数:
	//   ctx: 上下文
	//   task: 即将到期的任务
	//   toEmail: 接收邮箱
	SendTaskReminder(ctx context.Context, task *model.Task, toEmail string) error
}
