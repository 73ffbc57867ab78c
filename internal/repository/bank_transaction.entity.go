package repository

import (
	"time"

	"github.com/zingsurvey/payment-gateway/internal/model"
)

type BankTransactionEntity struct {
	ID                int64     `db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	PaymentID         int64     `db:"payment_id"         gorm:"column:payment_id;not null;index"`
	BankReference     string    `db:"bank_reference"     gorm:"column:bank_reference;not null;uniqueIndex"`
	AccountNumber     string    `db:"account_number"     gorm:"column:account_number;not null"`
	BankName          string    `db:"bank_name"          gorm:"column:bank_name;not null"`
	AccountHolder     string    `db:"account_holder"     gorm:"column:account_holder;not null"`
	Amount            int64     `db:"amount"             gorm:"column:amount;not null"`
	Status            string    `db:"status"             gorm:"column:status;not null;default:pending"`
	ProcessingDetails string    `db:"processing_details" gorm:"column:processing_details"`
	CreatedAt         time.Time `db:"created_at"         gorm:"column:created_at;autoCreateTime"`
}

func (BankTransactionEntity) TableName() string {
	return "bank_transactions"
}

func toBankTransactionEntity(m *model.BankTransaction) *BankTransactionEntity {
	if m == nil {
		return nil
	}
	return &BankTransactionEntity{
		ID:                m.ID,
		PaymentID:         m.PaymentID,
		BankReference:     m.BankReference,
		AccountNumber:     m.AccountNumber,
		BankName:          m.BankName,
		AccountHolder:     m.AccountHolder,
		Amount:            m.Amount,
		Status:            string(m.Status),
		ProcessingDetails: m.ProcessingDetails,
		CreatedAt:         m.CreatedAt,
	}
}

func toBankTransactionModel(e *BankTransactionEntity) *model.BankTransaction {
	if e == nil {
		return nil
	}
	return &model.BankTransaction{
		ID:                e.ID,
		PaymentID:         e.PaymentID,
		BankReference:     e.BankReference,
		AccountNumber:     e.AccountNumber,
		BankName:          e.BankName,
		AccountHolder:     e.AccountHolder,
		Amount:            e.Amount,
		Status:            model.PaymentStatus(e.Status),
		ProcessingDetails: e.ProcessingDetails,
		CreatedAt:         e.CreatedAt,
	}
}
