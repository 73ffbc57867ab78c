package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks request errors the API maps to 400. Handlers test
// for it with errors.Is; anything else from a service is internal.
var ErrValidation = errors.New("invalid request")

// PaymentStatus is the lifecycle state of a payment transaction.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// WebhookEvent names the bank callback events the gateway accepts.
type WebhookEvent string

const (
	WebhookEventSuccess WebhookEvent = "payment.success"
	WebhookEventFailed  WebhookEvent = "payment.failed"
)

type PaymentTransaction struct {
	ID           int64         `json:"id"            db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Reference    string        `json:"reference"     db:"reference"     gorm:"column:reference;not null;uniqueIndex"`
	ResponseID   int64         `json:"response_id,omitempty" db:"response_id" gorm:"column:response_id;index"`
	Email        string        `json:"email"         db:"email"         gorm:"column:email;not null"`
	CustomerName string        `json:"customer_name,omitempty" db:"customer_name" gorm:"column:customer_name"`
	Description  string        `json:"description,omitempty" db:"description" gorm:"column:description"`
	Amount       int64         `json:"amount"        db:"amount"        gorm:"column:amount;not null"` // minor units (kobo)
	Currency     string        `json:"currency"      db:"currency"      gorm:"column:currency;not null;default:NGN"`
	Status       PaymentStatus `json:"status"        db:"status"        gorm:"column:status;not null;default:pending"`
	ReceiptSent  bool          `json:"receipt_sent"  db:"receipt_sent"  gorm:"column:receipt_sent;not null;default:false"`
	FailureCode  string        `json:"failure_code,omitempty" db:"failure_code" gorm:"column:failure_code"`
	IPAddress    string        `json:"ip_address,omitempty" db:"ip_address" gorm:"column:ip_address"`
	UserAgent    string        `json:"user_agent,omitempty" db:"user_agent" gorm:"column:user_agent"`
	Metadata     string        `json:"metadata,omitempty" db:"metadata" gorm:"column:metadata"` // raw JSON document
	CreatedAt    time.Time     `json:"created_at"    db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty" db:"completed_at" gorm:"column:completed_at"`
	BankTransfer *BankTransaction `json:"bank_transfer,omitempty" gorm:"-"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }

// PaymentInitiateRequest is the input for POST /payments/initiate.
// ResponseID links the payment to a survey response; without it the
// payment stands alone and the quoted amount is charged as-is.
// IPAddress and UserAgent are filled in by the handler, not the payer.
type PaymentInitiateRequest struct {
	ResponseID  int64  `json:"response_id,omitempty"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      int64  `json:"amount"`
	Metadata    string `json:"metadata,omitempty"` // raw JSON document
	IPAddress   string `json:"-"`
	UserAgent   string `json:"-"`
}

func (p PaymentInitiateRequest) Validate() error {
	if p.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}

// PaymentFilter controls List queries.
type PaymentFilter struct {
	ResponseID *int64
	Email      *string
	Statuses   []PaymentStatus
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
	Desc       bool // order by created_at
}

// WebhookPayload is the decoded bank callback body. Raw holds the bytes
// the signature was computed over.
type WebhookPayload struct {
	Event     WebhookEvent           `json:"event"`
	Reference string                 `json:"reference"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Raw       []byte                 `json:"-"`
}

// Validate checks that the callback names an event and a reference.
// Unrecognized event types are not rejected here; the service logs and
// acknowledges them so the bank does not retry forever.
func (p WebhookPayload) Validate() error {
	if p.Reference == "" {
		return fmt.Errorf("%w: reference is required", ErrValidation)
	}
	if p.Event == "" {
		return fmt.Errorf("%w: event is required", ErrValidation)
	}
	return nil
}

// PaymentVerifyResult is the outcome of GET-style verification.
type PaymentVerifyResult struct {
	Transaction *PaymentTransaction `json:"transaction"`
	Verified    bool                `json:"verified"`
	Receipt     *ReceiptDispatchResult `json:"receipt,omitempty"`
}
