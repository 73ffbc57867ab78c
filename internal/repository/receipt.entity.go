package repository

import (
	"time"

	"github.com/zingsurvey/payment-gateway/internal/model"
)

type ReceiptEntity struct {
	ID             int64     `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	ReceiptNumber  string    `db:"receipt_number"   gorm:"column:receipt_number;not null;uniqueIndex"`
	PaymentID      int64     `db:"payment_id"       gorm:"column:payment_id;not null;uniqueIndex"`
	Reference      string    `db:"reference"        gorm:"column:reference;not null"`
	Email          string    `db:"email"            gorm:"column:email;not null"`
	AdminEmail     string    `db:"admin_email"      gorm:"column:admin_email"`
	Amount         int64     `db:"amount"           gorm:"column:amount;not null"`
	Currency       string    `db:"currency"         gorm:"column:currency;not null"`
	SentToCustomer bool      `db:"sent_to_customer" gorm:"column:sent_to_customer;not null;default:false"`
	SentToAdmin    bool      `db:"sent_to_admin"    gorm:"column:sent_to_admin;not null;default:false"`
	CreatedAt      time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
}

func (ReceiptEntity) TableName() string {
	return "receipts"
}

func toReceiptEntity(m *model.Receipt) *ReceiptEntity {
	if m == nil {
		return nil
	}
	return &ReceiptEntity{
		ID:             m.ID,
		ReceiptNumber:  m.ReceiptNumber,
		PaymentID:      m.PaymentID,
		Reference:      m.Reference,
		Email:          m.Email,
		AdminEmail:     m.AdminEmail,
		Amount:         m.Amount,
		Currency:       m.Currency,
		SentToCustomer: m.SentToCustomer,
		SentToAdmin:    m.SentToAdmin,
		CreatedAt:      m.CreatedAt,
	}
}

func toReceiptModel(e *ReceiptEntity) *model.Receipt {
	if e == nil {
		return nil
	}
	return &model.Receipt{
		ID:             e.ID,
		ReceiptNumber:  e.ReceiptNumber,
		PaymentID:      e.PaymentID,
		Reference:      e.Reference,
		Email:          e.Email,
		AdminEmail:     e.AdminEmail,
		Amount:         e.Amount,
		Currency:       e.Currency,
		SentToCustomer: e.SentToCustomer,
		SentToAdmin:    e.SentToAdmin,
		CreatedAt:      e.CreatedAt,
	}
}
