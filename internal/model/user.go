package model

import "time"

// User 表示系统用户。
type User struct {
	ID         uint       `gorm:"primaryKey"`                    // 用户 ID
	Name       string     `gorm:"type:varchar(64)"`              // 显示名称
	Email      string     `gorm:"type:varchar(191);uniqueIndex"` // 邮箱（唯一，存储为小写）
	Password   string     `gorm:"not null"`                      // bcrypt 哈希
	IsVerified bool       `gorm:"default:false"`                 // 邮箱是否已验证
	OTP        string     `gorm:"type:varchar(16)"`              // 邮箱验证码（空表示无待验证码）
	OTPSentAt  *time.Time // 验证码发送时间（用于重发冷却）
	CreatedAt  time.Time  // 创建时间

	Tasks    []Task    `gorm:"foreignKey:UserID"`
	Projects []Project `gorm:"foreignKey:UserID"`
}
