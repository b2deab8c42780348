package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SufyanAli56/Task-Manager/internal/api/auth"
	"github.com/SufyanAli56/Task-Manager/internal/api/middleware"
	"github.com/SufyanAli56/Task-Manager/internal/api/scheduler"
	"github.com/SufyanAli56/Task-Manager/internal/config"
	"github.com/SufyanAli56/Task-Manager/internal/model"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/metrics"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/notify"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、认证组件以及 Gin 路由引擎。
type Server struct {
	cfg          *config.Config
	logger       *slog.Logger
	db           *gorm.DB
	rdb          *redis.Client
	router       *gin.Engine
	sched        *scheduler.Scheduler
	auth         *auth.Handler
	tokens       *auth.TokenService
	accountStore auth.AccountStore
	taskStore    TaskStore
	projectStore ProjectStore
	limiter      *ratelimit.Limiter
}

// TaskStore 任务持久化接口。
type TaskStore interface {
	List(ctx context.Context, userID uint, projectID *uint) ([]model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	Get(ctx context.Context, userID, id uint) (*model.Task, error)
	Save(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID, id uint) error
}

// ProjectStore 项目持久化接口。
type ProjectStore interface {
	List(ctx context.Context, userID uint) ([]model.Project, error)
	Create(ctx context.Context, project *model.Project) error
	Get(ctx context.Context, userID, id uint) (*model.Project, error)
	Save(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, userID, id uint) error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 初始化认证组件、邮件发送器和提醒调度器
// 4. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
		TranslateError: true,                                          // 唯一索引冲突翻译为 gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Project{}, &model.Task{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.InitMetrics(cfg.App.WorkerPoolSize)

	emailNotifier := notify.NewEmailNotifier(&cfg.Email, logger)
	tokens := auth.NewTokenService(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	accountStore := dbAccountStore{db: db}

	sched := scheduler.NewScheduler(
		db,
		rdb,
		emailNotifier,
		logger,
		cfg.App.ReminderInterval,
		cfg.App.ReminderWindow,
		cfg.App.WorkerPoolSize,
		cfg.App.QueueCapacity,
	)

	limiter := ratelimit.NewRedisLimiter(rdb, logger, "taskmanager:ratelimit:auth:", cfg.App.RateLimit, cfg.App.RateBurst)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		rdb:          rdb,
		router:       r,
		sched:        sched,
		auth:         auth.NewHandler(accountStore, tokens, emailNotifier, cfg.App.ResendCooldown, logger),
		tokens:       tokens,
		accountStore: accountStore,
		taskStore:    dbTaskStore{db: db},
		projectStore: dbProjectStore{db: db},
		limiter:      limiter,
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// StartScheduler 启动提醒调度器。
func (s *Server) StartScheduler(ctx context.Context) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("PANIC in reminder scheduler", slog.Any("panic", r))
			}
		}()
		s.sched.Run(ctx)
	}()
}

// Close 关闭数据库与缓存连接，并等待提醒队列排空。
func (s *Server) Close() error {
	var firstErr error
	if s.sched != nil {
		if err := s.sched.Shutdown(5 * time.Second); err != nil {
			firstErr = err
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil && firstErr == nil {
				firstErr = closeErr
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Task Manager API Running"})
	})

	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	api := s.router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(s.limiter, s.logger))
	authGroup.POST("/register", s.auth.Register)
	authGroup.POST("/verify", s.auth.VerifyOTP)
	authGroup.POST("/login", s.auth.Login)
	authGroup.POST("/resend", s.auth.ResendOTP)

	api.GET("/projects/health", s.handleProjectsHealth)

	authed := api.Group("/")
	authed.Use(middleware.AuthMiddleware(s.tokens, s.accountStore))
	authed.POST("/auth/logout", s.auth.Logout)

	authed.GET("/tasks", s.handleListTasks)
	authed.POST("/tasks", s.handleCreateTask)
	authed.PUT("/tasks/:id", s.handleUpdateTask)
	authed.DELETE("/tasks/:id", s.handleDeleteTask)

	authed.GET("/projects", s.handleListProjects)
	authed.POST("/projects", s.handleCreateProject)
	authed.PUT("/projects/:id", s.handleUpdateProject)
	authed.DELETE("/projects/:id", s.handleDeleteProject)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleProjectsHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Projects API online"})
}

// dbAccountStore 基于 gorm 的账户存储实现。
type dbAccountStore struct {
	db *gorm.DB
}

func (s dbAccountStore) Create(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return auth.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s dbAccountStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s dbAccountStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s dbAccountStore) Save(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// dbTaskStore 基于 gorm 的任务存储实现。
type dbTaskStore struct {
	db *gorm.DB
}

func (s dbTaskStore) List(ctx context.Context, userID uint, projectID *uint) ([]model.Task, error) {
	tasks := []model.Task{}
	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s dbTaskStore) Create(ctx context.Context, task *model.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func (s dbTaskStore) Get(ctx context.Context, userID, id uint) (*model.Task, error) {
	var task model.Task
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s dbTaskStore) Save(ctx context.Context, task *model.Task) error {
	return s.db.WithContext(ctx).Save(task).Error
}

func (s dbTaskStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// dbProjectStore 基于 gorm 的项目存储实现。
type dbProjectStore struct {
	db *gorm.DB
}

func (s dbProjectStore) List(ctx context.Context, userID uint) ([]model.Project, error) {
	projects := []model.Project{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s dbProjectStore) Create(ctx context.Context, project *model.Project) error {
	return s.db.WithContext(ctx).Create(project).Error
}

func (s dbProjectStore) Get(ctx context.Context, userID, id uint) (*model.Project, error) {
	var project model.Project
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s dbProjectStore) Save(ctx context.Context, project *model.Project) error {
	return s.db.WithContext(ctx).Save(project).Error
}

func (s dbProjectStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
