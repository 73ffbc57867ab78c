package model

import "time"

type Receipt struct {
	ID             int64     `json:"id"              db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	ReceiptNumber  string    `json:"receipt_number"  db:"receipt_number"  gorm:"column:receipt_number;not null;uniqueIndex"`
	PaymentID      int64     `json:"payment_id"      db:"payment_id"      gorm:"column:payment_id;not null;uniqueIndex"`
	Reference      string    `json:"reference"       db:"reference"       gorm:"column:reference;not null"`
	Email          string    `json:"email"           db:"email"           gorm:"column:email;not null"`
	AdminEmail     string    `json:"admin_email"     db:"admin_email"     gorm:"column:admin_email"`
	Amount         int64     `json:"amount"          db:"amount"          gorm:"column:amount;not null"`
	Currency       string    `json:"currency"        db:"currency"        gorm:"column:currency;not null"`
	SentToCustomer bool      `json:"sent_to_customer" db:"sent_to_customer" gorm:"column:sent_to_customer;not null;default:false"`
	SentToAdmin    bool      `json:"sent_to_admin"   db:"sent_to_admin"   gorm:"column:sent_to_admin;not null;default:false"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (Receipt) TableName() string { return "receipts" }

// ReceiptDispatchResult reports what happened to each copy of a receipt.
// A dispatch can partially fail; callers see exactly which sends went out.
type ReceiptDispatchResult struct {
	ReceiptNumber  string `json:"receipt_number"`
	SentToCustomer bool   `json:"sent_to_customer"`
	SentToAdmin    bool   `json:"sent_to_admin"`
	CustomerError  string `json:"customer_error,omitempty"`
	AdminError     string `json:"admin_error,omitempty"`
}

// Complete reports whether both copies were delivered.
func (r ReceiptDispatchResult) Complete() bool {
	return r.SentToCustomer && r.SentToAdmin
}

// ReceiptRetryJob is the payload queued when a dispatch leaves
// undelivered copies.
type ReceiptRetryJob struct {
	PaymentID     int64  `json:"payment_id"`
	Reference     string `json:"reference"`
	ReceiptNumber string `json:"receipt_number"`
	RetryCustomer bool   `json:"retry_customer"`
	RetryAdmin    bool   `json:"retry_admin"`
}
