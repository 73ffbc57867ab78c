package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/zingsurvey/payment-gateway/internal/bank"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/pkg/crypto"
)

type BankTransactionRepository interface {
	Create(ctx context.Context, txn *model.BankTransaction) (*model.BankTransaction, error)
	GetByPaymentID(ctx context.Context, paymentID int64) (*model.BankTransaction, error)
}

type BankVerifier interface {
	VerifyTransfer(ctx context.Context, bankReference string) (*bank.VerifyResponse, error)
}

// BankAccount is the settlement account shown to payers.
type BankAccount struct {
	AccountNumber string
	BankName      string
	AccountHolder string
}

// BankService owns the bank-side leg of a payment: creating the transfer
// record and asking the bank whether the money arrived.
type BankService struct {
	bankRepo  BankTransactionRepository
	verifier  BankVerifier
	encryptor *crypto.Encryptor
	account   BankAccount
}

func NewBankService(bankRepo BankTransactionRepository, verifier BankVerifier, encryptor *crypto.Encryptor, account BankAccount) *BankService {
	return &BankService{
		bankRepo:  bankRepo,
		verifier:  verifier,
		encryptor: encryptor,
		account:   account,
	}
}

// CreateTransfer records the bank leg for a new payment and returns the
// transfer details the payer needs. The stored account number is
// encrypted; the returned details carry the plaintext display value.
func (s *BankService) CreateTransfer(ctx context.Context, paymentID int64, amount int64, currency string) (*model.BankTransaction, *model.BankTransferDetails, error) {
	encrypted, err := s.encryptor.Encrypt(s.account.AccountNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt account number: %w", err)
	}

	txn, err := s.bankRepo.Create(ctx, &model.BankTransaction{
		PaymentID:     paymentID,
		BankReference: crypto.GenerateBankReference(),
		AccountNumber: encrypted,
		BankName:      s.account.BankName,
		AccountHolder: s.account.AccountHolder,
		Amount:        amount,
		Status:        model.PaymentStatusPending,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create bank transaction: %w", err)
	}

	details := &model.BankTransferDetails{
		BankReference: txn.BankReference,
		AccountNumber: s.account.AccountNumber,
		BankName:      s.account.BankName,
		AccountHolder: s.account.AccountHolder,
		Amount:        amount,
		Currency:      currency,
	}
	return txn, details, nil
}

// VerifyPayment asks the bank whether the transfer behind a payment has
// been confirmed. A missing transfer or an unconfirmed one is simply not
// verified; only transport-level failures surface as errors.
func (s *BankService) VerifyPayment(ctx context.Context, paymentID int64) (bool, error) {
	txn, err := s.bankRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return false, fmt.Errorf("load bank transaction: %w", err)
	}

	resp, err := s.verifier.VerifyTransfer(ctx, txn.BankReference)
	if err != nil {
		if errors.Is(err, bank.ErrTransferNotFound) {
			return false, nil
		}
		return false, err
	}

	return resp.Confirmed && resp.Amount >= txn.Amount, nil
}
