package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RegisterTotal 注册请求计数（按结果分类）。
	RegisterTotal *prometheus.CounterVec
	// LoginTotal 登录请求计数（按结果分类）。
	LoginTotal *prometheus.CounterVec
	// VerifyTotal 验证码校验计数（按结果分类）。
	VerifyTotal *prometheus.CounterVec

	// EmailSentTotal 邮件发送成功计数。
	EmailSentTotal prometheus.Counter
	// EmailFailedTotal 邮件发送失败计数。
	EmailFailedTotal prometheus.Counter

	// ReminderSentTotal 到期提醒发送计数。
	ReminderSentTotal prometheus.Counter

	// RateLimitRejectedTotal 被限流拒绝的请求计数。
	RateLimitRejectedTotal prometheus.Counter

	// WorkerPoolSize 当前 Worker Pool 大小。
	WorkerPoolSize prometheus.Gauge

	initOnce sync.Once
)

// InitMetrics 注册所有 Prometheus 指标。
//
// 幂等：重复调用只注册一次（测试中多个用例会各自调用）。
func InitMetrics(workers int) {
	initOnce.Do(func() {
		RegisterTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmanager_auth_register_total",
			Help: "Total register requests by result.",
		}, []string{"result"})
		LoginTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmanager_auth_login_total",
			Help: "Total login requests by result.",
		}, []string{"result"})
		VerifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmanager_auth_verify_total",
			Help: "Total OTP verification requests by result.",
		}, []string{"result"})

		EmailSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_email_sent_total",
			Help: "Total emails delivered successfully.",
		})
		EmailFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_email_failed_total",
			Help: "Total email delivery failures.",
		})

		ReminderSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_reminder_sent_total",
			Help: "Total due-task reminder emails sent.",
		})

		RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_ratelimit_rejected_total",
			Help: "Total requests rejected by the rate limiter.",
		})

		WorkerPoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskmanager_worker_pool_size",
			Help: "Configured size of the reminder worker pool.",
		})

		prometheus.MustRegister(
			RegisterTotal,
			LoginTotal,
			VerifyTotal,
			EmailSentTotal,
			EmailFailedTotal,
			ReminderSentTotal,
			RateLimitRejectedTotal,
			WorkerPoolSize,
		)
	})

	WorkerPoolSize.Set(float64(workers))
}
