package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/SufyanAli56/Task-Manager/internal/model"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/dedup"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/metrics"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMain(m *testing.M) {
	metrics.InitMetrics(1)
	os.Exit(m.Run())
}

// fakeSource 返回固定的到期任务列表。
type fakeSource struct {
	tasks []ReminderTask
	err   error
}

func (s fakeSource) DueTasks(_ context.Context, _, _ time.Time) ([]ReminderTask, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tasks, nil
}

// reminderRecorder 记录提醒发送，可模拟发送失败。
type reminderRecorder struct {
	mu   sync.Mutex
	sent map[uint]int // task ID -> 发送次数
	fail bool
}

func newReminderRecorder() *reminderRecorder {
	return &reminderRecorder{sent: make(map[uint]int)}
}

func (r *reminderRecorder) SendVerificationCode(_ string, _ string) error { return nil }

func (r *reminderRecorder) SendTaskReminder(_ context.Context, task *model.Task, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("smtp unreachable")
	}
	r.sent[task.ID]++
	return nil
}

func (r *reminderRecorder) count(taskID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[taskID]
}

func newTestScheduler(t *testing.T, src TaskSource, mailer *reminderRecorder, rdb *redis.Client) *Scheduler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Scheduler{
		source:   src,
		guard:    dedup.NewGuard(rdb, time.Hour),
		mailer:   mailer,
		logger:   logger,
		interval: time.Minute,
		window:   24 * time.Hour,
		queue:    queue.NewQueue(logger, 2, 16),
	}
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func dueIn(d time.Duration) *time.Time {
	at := time.Now().Add(d).Truncate(time.Second)
	return &at
}

func TestSchedulerSendsEachReminderOnce(t *testing.T) {
	rdb := testRedis(t)
	mailer := newReminderRecorder()
	src := fakeSource{tasks: []ReminderTask{
		{ID: 1, Title: "Ship release", DueAt: dueIn(2 * time.Hour), Email: "alice@example.com"},
		{ID: 2, Title: "Review design", DueAt: dueIn(4 * time.Hour), Email: "bob@example.com"},
	}}

	ctx := context.Background()
	s := newTestScheduler(t, src, mailer, rdb)
	s.queue.Start(ctx)

	// 同一轮内两条任务各发一封
	s.scanOnce(ctx)
	// 第二轮不重复发送
	s.scanOnce(ctx)

	if err := s.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if got := mailer.count(1); got != 1 {
		t.Errorf("task 1: expected 1 reminder, got %d", got)
	}
	if got := mailer.count(2); got != 1 {
		t.Errorf("task 2: expected 1 reminder, got %d", got)
	}
}

func TestSchedulerGuardSharedAcrossInstances(t *testing.T) {
	rdb := testRedis(t)
	src := fakeSource{tasks: []ReminderTask{
		{ID: 1, Title: "Ship release", DueAt: dueIn(2 * time.Hour), Email: "alice@example.com"},
	}}
	ctx := context.Background()

	first := newReminderRecorder()
	s1 := newTestScheduler(t, src, first, rdb)
	s1.queue.Start(ctx)
	s1.scanOnce(ctx)
	if err := s1.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	// 第二个实例共享同一个 Redis 守卫，不会重复提醒
	second := newReminderRecorder()
	s2 := newTestScheduler(t, src, second, rdb)
	s2.queue.Start(ctx)
	s2.scanOnce(ctx)
	if err := s2.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if first.count(1) != 1 {
		t.Errorf("first instance: expected 1 reminder, got %d", first.count(1))
	}
	if second.count(1) != 0 {
		t.Errorf("second instance: expected 0 reminders, got %d", second.count(1))
	}
}

func TestSchedulerReleasesGuardOnSendFailure(t *testing.T) {
	rdb := testRedis(t)
	mailer := newReminderRecorder()
	mailer.fail = true
	due := dueIn(2 * time.Hour)
	src := fakeSource{tasks: []ReminderTask{
		{ID: 1, Title: "Ship release", DueAt: due, Email: "alice@example.com"},
	}}

	ctx := context.Background()
	s := newTestScheduler(t, src, mailer, rdb)
	s.queue.Start(ctx)
	s.scanOnce(ctx)
	if err := s.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	// 发送失败后守卫被释放，下一轮扫描可以重试
	guard := dedup.NewGuard(rdb, time.Hour)
	free, err := guard.First(ctx, reminderKey(1, *due))
	if err != nil {
		t.Fatalf("guard check failed: %v", err)
	}
	if !free {
		t.Error("guard must be released after a failed send")
	}
}

func TestSchedulerSkipsIncompleteRows(t *testing.T) {
	rdb := testRedis(t)
	mailer := newReminderRecorder()
	src := fakeSource{tasks: []ReminderTask{
		{ID: 1, Title: "no due date", Email: "alice@example.com"},
		{ID: 2, Title: "no email", DueAt: dueIn(time.Hour)},
	}}

	ctx := context.Background()
	s := newTestScheduler(t, src, mailer, rdb)
	s.queue.Start(ctx)
	s.scanOnce(ctx)
	if err := s.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if mailer.count(1) != 0 || mailer.count(2) != 0 {
		t.Error("rows without due date or email must be skipped")
	}
}

func TestSchedulerSourceError(t *testing.T) {
	rdb := testRedis(t)
	mailer := newReminderRecorder()
	src := fakeSource{err: errors.New("db gone")}

	ctx := context.Background()
	s := newTestScheduler(t, src, mailer, rdb)
	s.queue.Start(ctx)
	// 扫描失败只记录日志，不 panic
	s.scanOnce(ctx)
	if err := s.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
