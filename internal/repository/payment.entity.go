package repository

import (
	"time"

	"github.com/zingsurvey/payment-gateway/internal/model"
)

type PaymentEntity struct {
	ID           int64      `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Reference    string     `db:"reference"     gorm:"column:reference;not null;uniqueIndex"`
	ResponseID   *int64     `db:"response_id"   gorm:"column:response_id;index"`
	Email        string     `db:"email"         gorm:"column:email;not null"`
	CustomerName string     `db:"customer_name" gorm:"column:customer_name"`
	Description  string     `db:"description"   gorm:"column:description"`
	Amount       int64      `db:"amount"        gorm:"column:amount;not null"`
	Currency     string     `db:"currency"      gorm:"column:currency;not null;default:NGN"`
	Status       string     `db:"status"        gorm:"column:status;not null;default:pending;index"`
	ReceiptSent  bool       `db:"receipt_sent"  gorm:"column:receipt_sent;not null;default:false"`
	FailureCode  string     `db:"failure_code"  gorm:"column:failure_code"`
	IPAddress    string     `db:"ip_address"    gorm:"column:ip_address"`
	UserAgent    string     `db:"user_agent"    gorm:"column:user_agent"`
	Metadata     string     `db:"metadata"      gorm:"column:metadata"`
	CreatedAt    time.Time  `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	CompletedAt  *time.Time `db:"completed_at"  gorm:"column:completed_at"`
}

func (PaymentEntity) TableName() string {
	return "payment_transactions"
}

func toPaymentEntity(m *model.PaymentTransaction) *PaymentEntity {
	if m == nil {
		return nil
	}
	// Standalone payments carry no survey link; the column stays NULL.
	var responseID *int64
	if m.ResponseID != 0 {
		id := m.ResponseID
		responseID = &id
	}
	return &PaymentEntity{
		ID:           m.ID,
		Reference:    m.Reference,
		ResponseID:   responseID,
		Email:        m.Email,
		CustomerName: m.CustomerName,
		Description:  m.Description,
		Amount:       m.Amount,
		Currency:     m.Currency,
		Status:       string(m.Status),
		ReceiptSent:  m.ReceiptSent,
		FailureCode:  m.FailureCode,
		IPAddress:    m.IPAddress,
		UserAgent:    m.UserAgent,
		Metadata:     m.Metadata,
		CreatedAt:    m.CreatedAt,
		CompletedAt:  m.CompletedAt,
	}
}

func toPaymentModel(e *PaymentEntity) *model.PaymentTransaction {
	if e == nil {
		return nil
	}
	var responseID int64
	if e.ResponseID != nil {
		responseID = *e.ResponseID
	}
	return &model.PaymentTransaction{
		ID:           e.ID,
		Reference:    e.Reference,
		ResponseID:   responseID,
		Email:        e.Email,
		CustomerName: e.CustomerName,
		Description:  e.Description,
		Amount:       e.Amount,
		Currency:     e.Currency,
		Status:       model.PaymentStatus(e.Status),
		ReceiptSent:  e.ReceiptSent,
		FailureCode:  e.FailureCode,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
		CompletedAt:  e.CompletedAt,
	}
}

func toPaymentModels(entities []*PaymentEntity) []*model.PaymentTransaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.PaymentTransaction, len(entities))
	for i, e := range entities {
		models[i] = toPaymentModel(e)
	}
	return models
}
