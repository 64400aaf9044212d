package models

import (
	"fmt"
	"time"

	"github.com/hugh/go-helpdesk/pkg/crypto"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

type User struct {
	Base
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	Password      string `gorm:"not null" json:"-"` // bcrypt hash
	Name          string `json:"name"`
	LastName      string `json:"last_name"`
	Role          string `gorm:"default:'agent'" json:"role"` // admin, agent, system
	IsActive      bool   `gorm:"default:true" json:"is_active"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	// Email verification: 6-digit code plus the legacy link token
	VerificationCode        *string    `gorm:"size:6" json:"-"`
	VerificationCodeExpiry  *time.Time `json:"-"`
	VerificationToken       *string    `gorm:"size:64;index" json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`

	// Password recovery
	ResetCode        *string    `gorm:"size:6" json:"-"`
	ResetCodeExpiry  *time.Time `json:"-"`
	ResetToken       *string    `gorm:"size:64;index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeSave hashes a plaintext password. Values that already carry a bcrypt
// signature are left alone so saving a loaded user never double-hashes.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Password == "" || crypto.IsPasswordHash(u.Password) {
		return nil
	}
	hash, err := crypto.HashPassword(u.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	u.Password = hash
	return nil
}
