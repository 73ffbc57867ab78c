package model

import (
	"fmt"
	"time"
)

type AdminUser struct {
	ID           int64     `json:"id"         db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Email        string    `json:"email"      db:"email"         gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `json:"-"          db:"password_hash" gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

func (AdminUser) TableName() string { return "admin_users" }

type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p AdminLoginRequest) Validate() error {
	if p.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if p.Password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	return nil
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
