package repository

import (
	"time"

	"github.com/zingsurvey/payment-gateway/internal/model"
)

type AdminUserEntity struct {
	ID           int64     `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Email        string    `db:"email"         gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `db:"password_hash" gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

func (AdminUserEntity) TableName() string {
	return "admin_users"
}

func toAdminUserEntity(m *model.AdminUser) *AdminUserEntity {
	if m == nil {
		return nil
	}
	return &AdminUserEntity{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func toAdminUserModel(e *AdminUserEntity) *model.AdminUser {
	if e == nil {
		return nil
	}
	return &model.AdminUser{
		ID:           e.ID,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		CreatedAt:    e.CreatedAt,
	}
}
