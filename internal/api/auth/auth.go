package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SufyanAli56/Task-Manager/internal/model"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/metrics"
	"github.com/SufyanAli56/Task-Manager/internal/pkg/notify"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// Handler 提供注册、验证与登录接口。
//
// 账户状态机: 未注册 → 待验证 → 已验证，不存在回退转换。
type Handler struct {
	store          AccountStore
	tokens         *TokenService
	mailer         notify.Mailer
	resendCooldown time.Duration
	logger         *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(store AccountStore, tokens *TokenService, mailer notify.Mailer, resendCooldown time.Duration, logger *slog.Logger) *Handler {
	if resendCooldown <= 0 {
		resendCooldown = 60 * time.Second
	}
	return &Handler{
		store:          store,
		tokens:         tokens,
		mailer:         mailer,
		resendCooldown: resendCooldown,
		logger:         logger,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type verifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register 创建未验证账户并发送验证码。
//
// POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	// 重复邮箱直接失败，不做任何写入；未验证的旧账户走 /resend
	_, err := h.store.FindByEmail(c.Request.Context(), email)
	if err == nil {
		metrics.RegisterTotal.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		return
	}
	if !errors.Is(err, ErrNotFound) {
		metrics.RegisterTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "query user failed"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		metrics.RegisterTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "hash password failed"})
		return
	}

	code, err := generateCode(6)
	if err != nil {
		metrics.RegisterTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "generate code failed"})
		return
	}

	now := time.Now()
	user := model.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Password:  string(hash),
		OTP:       code,
		OTPSentAt: &now,
	}
	if err := h.store.Create(c.Request.Context(), &user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			metrics.RegisterTotal.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
			return
		}
		h.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		metrics.RegisterTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "create user failed"})
		return
	}

	// 发送失败时账户保留在待验证状态，用户可通过 /resend 重新获取验证码
	if err := h.mailer.SendVerificationCode(email, code); err != nil {
		h.logger.Warn("send verification email failed", slog.String("email", email), slog.String("error", err.Error()))
		metrics.RegisterTotal.WithLabelValues("delivery_failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Email could not be sent"})
		return
	}

	h.logger.Info("user registered", slog.String("email", email))
	metrics.RegisterTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "User registered. OTP sent to email."})
}

// VerifyOTP 校验验证码，通过后标记账户已验证并签发令牌。
//
// POST /api/auth/verify
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "query user failed"})
		return
	}

	// 验证码一次性使用：验证成功后被清空，重放同一验证码会落到这里
	if user.OTP == "" || user.OTP != strings.TrimSpace(req.OTP) {
		metrics.VerifyTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid OTP"})
		return
	}

	user.IsVerified = true
	user.OTP = ""
	user.OTPSentAt = nil
	if err := h.store.Save(c.Request.Context(), user); err != nil {
		h.logger.Error("verify failed", slog.String("email", email), slog.String("error", err.Error()))
		metrics.VerifyTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "verify failed"})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "sign token failed"})
		return
	}

	h.logger.Info("email verified", slog.String("email", email))
	metrics.VerifyTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Account verified successfully", "token": token})
}

// Login 校验已验证用户的凭证并返回令牌。
//
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "query user failed"})
		return
	}

	if !user.IsVerified {
		metrics.LoginTotal.WithLabelValues("unverified").Inc()
		c.JSON(http.StatusForbidden, gin.H{"message": "Please verify your email before login"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		metrics.LoginTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "sign token failed"})
		return
	}

	h.logger.Info("user logged in", slog.String("email", email))
	metrics.LoginTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// ResendOTP 重新发送验证码（带冷却时间）。
//
// POST /api/auth/resend
func (h *Handler) ResendOTP(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "query user failed"})
		return
	}
	if user.IsVerified {
		c.JSON(http.StatusBadRequest, gin.H{"message": "already verified"})
		return
	}

	if user.OTPSentAt != nil && time.Since(*user.OTPSentAt) < h.resendCooldown {
		remain := int((h.resendCooldown - time.Since(*user.OTPSentAt)).Seconds())
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "too many requests", "retry_after": remain})
		return
	}

	code, err := generateCode(6)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "generate code failed"})
		return
	}
	now := time.Now()
	user.OTP = code
	user.OTPSentAt = &now
	if err := h.store.Save(c.Request.Context(), user); err != nil {
		h.logger.Error("save verification code failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "save code failed"})
		return
	}

	if err := h.mailer.SendVerificationCode(email, code); err != nil {
		h.logger.Warn("resend verification failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Email could not be sent"})
		return
	}

	h.logger.Info("verification code resent", slog.String("email", email))
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

// Logout 处理注销请求（令牌无状态，直接返回成功）。
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// generateCode 生成 n 位数字验证码。
func generateCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid code length")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = '0' + (buf[i] % 10)
	}
	return string(buf), nil
}
