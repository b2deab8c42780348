package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid 令牌缺失、签名错误或无法解析。
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired 令牌已过期。
	ErrTokenExpired = errors.New("token expired")
)

// TokenService 签发并校验无状态会话令牌。
//
// 令牌是 HS256 签名的 JWT，subject 为用户 ID，有效期固定（默认 30 天）。
// 服务端不保存令牌，校验只依赖签名和过期时间，没有吊销机制。
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService 创建令牌服务。
//
// 参数:
//
//	secret: 签名密钥（来自进程配置，非全局状态）
//	ttl: 有效期（<= 0 时使用 30 天）
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue 为用户签发一个新令牌。
func (t *TokenService) Issue(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate 校验令牌并返回其绑定的用户 ID。
//
// 过期返回 ErrTokenExpired，其余所有失败返回 ErrTokenInvalid。
func (t *TokenService) Validate(tokenStr string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return 0, ErrTokenInvalid
	}

	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return uint(uid), nil
}
