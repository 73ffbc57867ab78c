package model

import (
	"errors"
	"time"
)

// BankTransaction is the bank-side leg of a payment. AccountNumber is
// stored encrypted; the plaintext never reaches the database.
type BankTransaction struct {
	ID                int64         `json:"id"             db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	PaymentID         int64         `json:"payment_id"     db:"payment_id"      gorm:"column:payment_id;not null;index"`
	BankReference     string        `json:"bank_reference" db:"bank_reference"  gorm:"column:bank_reference;not null;uniqueIndex"`
	AccountNumber     string        `json:"-"              db:"account_number"  gorm:"column:account_number;not null"`
	BankName          string        `json:"bank_name"      db:"bank_name"       gorm:"column:bank_name;not null"`
	AccountHolder     string        `json:"account_holder" db:"account_holder"  gorm:"column:account_holder;not null"`
	Amount            int64         `json:"amount"         db:"amount"          gorm:"column:amount;not null"`
	Status            PaymentStatus `json:"status"         db:"status"          gorm:"column:status;not null;default:pending"`
	ProcessingDetails string        `json:"processing_details,omitempty" db:"processing_details" gorm:"column:processing_details"`
	CreatedAt         time.Time     `json:"created_at"     db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (BankTransaction) TableName() string { return "bank_transactions" }

// BankTransferDetails is what the initiate endpoint returns to the payer:
// where to send the money. The account number here is the display value,
// not the encrypted one.
type BankTransferDetails struct {
	BankReference string `json:"bank_reference"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	AccountHolder string `json:"account_holder"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (d BankTransferDetails) Validate() error {
	if d.BankReference == "" {
		return errors.New("bank_reference is required")
	}
	if d.AccountNumber == "" {
		return errors.New("account_number is required")
	}
	return nil
}
