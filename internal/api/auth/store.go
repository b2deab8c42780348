package auth

import (
	"context"
	"errors"

	"github.com/SufyanAli56/Task-Manager/internal/model"
)

var (
	// ErrDuplicateEmail 邮箱已被注册。
	ErrDuplicateEmail = errors.New("user already exists")
	// ErrNotFound 用户不存在。
	ErrNotFound = errors.New("user not found")
)

// AccountStore 定义账户持久化接口。
//
// 认证流程只通过这个接口访问存储，便于用内存实现做测试。
type AccountStore interface {
	// Create 创建账户，邮箱冲突返回 ErrDuplicateEmail。
	Create(ctx context.Context, user *model.User) error

	// FindByEmail 按邮箱（小写）查找账户，不存在返回 ErrNotFound。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID 按 ID 查找账户，不存在返回 ErrNotFound。
	FindByID(ctx context.Context, id uint) (*model.User, error)

	// Save 持久化账户的变更（验证码签发、验证通过）。
	Save(ctx context.Context, user *model.User) error
}
