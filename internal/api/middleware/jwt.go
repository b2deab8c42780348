package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/SufyanAli56/Task-Manager/internal/api/auth"
	"github.com/SufyanAli56/Task-Manager/internal/model"

	"github.com/gin-gonic/gin"
)

// UserLoader 按 ID 解析账户，供认证中间件使用。
type UserLoader interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// AuthMiddleware 校验 Bearer 令牌并将账户写入上下文。
//
// 这是唯一的认证检查点：通过后下游 handler 从上下文取
// "userID" / "user"（密码哈希已抹除），不再自行校验。
func AuthMiddleware(tokens *auth.TokenService, store UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			c.Abort()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			c.Abort()
			return
		}

		uid, err := tokens.Validate(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token expired"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			}
			c.Abort()
			return
		}

		user, err := store.FindByID(c.Request.Context(), uid)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			c.Abort()
			return
		}

		user.Password = ""
		user.OTP = ""
		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}
