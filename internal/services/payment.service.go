package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zingsurvey/payment-gateway/internal/lock"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/repository"
	"github.com/zingsurvey/payment-gateway/pkg/crypto"
	"github.com/zingsurvey/payment-gateway/pkg/logger"
	"github.com/zingsurvey/payment-gateway/pkg/prom"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrResponseMissing = errors.New("survey response not found")
	ErrAmountMismatch  = errors.New("amount does not match survey fee")
	ErrBusy            = errors.New("payment is being processed")
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.PaymentTransaction) (*model.PaymentTransaction, error)
	GetByReference(ctx context.Context, reference string) (*model.PaymentTransaction, error)
	GetByBankReference(ctx context.Context, bankReference string) (*model.PaymentTransaction, error)
	UpdateStatusIfPending(ctx context.Context, reference string, status model.PaymentStatus, failureCode string) (*model.PaymentTransaction, error)
	List(ctx context.Context, f model.PaymentFilter) ([]*model.PaymentTransaction, int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type SurveyResponseRepository interface {
	GetByID(ctx context.Context, id int64) (*model.SurveyResponse, error)
	MarkCompleted(ctx context.Context, id int64) error
}

type TransferCreator interface {
	CreateTransfer(ctx context.Context, paymentID int64, amount int64, currency string) (*model.BankTransaction, *model.BankTransferDetails, error)
	VerifyPayment(ctx context.Context, paymentID int64) (bool, error)
}

type ReceiptDispatcher interface {
	Dispatch(ctx context.Context, payment *model.PaymentTransaction) (*model.ReceiptDispatchResult, error)
}

// ReferenceLocker serializes concurrent transitions on one reference.
type ReferenceLocker interface {
	Acquire(reference string) (func(), error)
}

// PaymentInitiateResult is what the payer gets back: the pending
// transaction plus where to send the money.
type PaymentInitiateResult struct {
	Transaction *model.PaymentTransaction  `json:"transaction"`
	Transfer    *model.BankTransferDetails `json:"transfer"`
}

type PaymentService struct {
	paymentRepo PaymentRepository
	surveyRepo  SurveyResponseRepository
	bankSvc     TransferCreator
	receiptSvc  ReceiptDispatcher
	locks       ReferenceLocker
}

func NewPaymentService(
	paymentRepo PaymentRepository,
	surveyRepo SurveyResponseRepository,
	bankSvc TransferCreator,
	receiptSvc ReceiptDispatcher,
	locks ReferenceLocker,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		surveyRepo:  surveyRepo,
		bankSvc:     bankSvc,
		receiptSvc:  receiptSvc,
		locks:       locks,
	}
}

// Initiate creates a pending payment and its bank transfer leg in one
// database transaction. A payment linked to a survey response is charged
// the respondent's bracket fee; quoting a different amount is rejected.
// Without a response the payment stands alone at the quoted amount.
func (s *PaymentService) Initiate(ctx context.Context, req model.PaymentInitiateRequest) (*PaymentInitiateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount := req.Amount
	if req.ResponseID != 0 {
		resp, err := s.surveyRepo.GetByID(ctx, req.ResponseID)
		if err != nil {
			if errors.Is(err, repository.ErrResponseNotFound) {
				return nil, ErrResponseMissing
			}
			return nil, fmt.Errorf("load survey response: %w", err)
		}

		amount, err = model.AmountForBracket(resp.AgeBracket)
		if err != nil {
			return nil, err
		}
		if req.Amount != amount {
			return nil, ErrAmountMismatch
		}
	}

	var result PaymentInitiateResult
	err := s.paymentRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		payment, err := s.paymentRepo.Create(ctx, &model.PaymentTransaction{
			Reference:    crypto.GenerateReference(),
			ResponseID:   req.ResponseID,
			Email:        req.Email,
			CustomerName: req.Name,
			Description:  req.Description,
			Amount:       amount,
			Currency:     "NGN",
			Status:       model.PaymentStatusPending,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
			Metadata:     req.Metadata,
		})
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		txn, details, err := s.bankSvc.CreateTransfer(ctx, payment.ID, amount, payment.Currency)
		if err != nil {
			return err
		}

		payment.BankTransfer = txn
		result.Transaction = payment
		result.Transfer = details
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("payment initiated",
		"reference", result.Transaction.Reference,
		"response_id", req.ResponseID,
		"amount", amount)

	return &result, nil
}

// Verify checks the state of a payment, consulting the bank while it is
// still pending. Completed payments verify idempotently without another
// bank call. A confirmed transfer completes the payment and dispatches
// the receipt; the receipt outcome rides along in the result without
// affecting the verification itself.
func (s *PaymentService) Verify(ctx context.Context, reference string) (*model.PaymentVerifyResult, error) {
	payment, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch payment.Status {
	case model.PaymentStatusCompleted:
		return &model.PaymentVerifyResult{Transaction: payment, Verified: true}, nil
	case model.PaymentStatusFailed:
		return &model.PaymentVerifyResult{Transaction: payment, Verified: false}, nil
	}

	release, err := s.locks.Acquire(reference)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			return nil, ErrBusy
		}
		return nil, err
	}
	defer release()

	confirmed, err := s.bankSvc.VerifyPayment(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("bank verification: %w", err)
	}
	if !confirmed {
		return &model.PaymentVerifyResult{Transaction: payment, Verified: false}, nil
	}

	return s.complete(ctx, reference)
}

// ProcessWebhook applies a signed bank callback. The reference may be
// either ours or the bank's. Replayed events for settled payments are
// acknowledged as no-ops; a conflicting event for a settled payment is
// logged and swallowed, the first transition wins.
func (s *PaymentService) ProcessWebhook(ctx context.Context, payload model.WebhookPayload) (*model.PaymentVerifyResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	switch payload.Event {
	case model.WebhookEventSuccess, model.WebhookEventFailed:
	default:
		// Unrecognized events are acknowledged so the bank stops
		// retrying; nothing transitions.
		logger.Warn("ignoring unknown webhook event", "event", payload.Event, "reference", payload.Reference)
		return &model.PaymentVerifyResult{}, nil
	}

	payment, err := s.findByAnyReference(ctx, payload.Reference)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(payment.Reference)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			return nil, ErrBusy
		}
		return nil, err
	}
	defer release()

	if payload.Event == model.WebhookEventFailed {
		return s.fail(ctx, payment.Reference, failureCodeFromDetails(payload.Details))
	}
	return s.complete(ctx, payment.Reference)
}

func (s *PaymentService) List(ctx context.Context, f model.PaymentFilter) ([]*model.PaymentTransaction, int64, error) {
	return s.paymentRepo.List(ctx, f)
}

func (s *PaymentService) Get(ctx context.Context, reference string) (*model.PaymentTransaction, error) {
	payment, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

// complete moves a payment to completed and runs the side effects. The
// conditional update is the arbiter under concurrency: a lost race turns
// into an idempotent success if the winner also completed, and a logged
// conflict if it failed the payment instead.
func (s *PaymentService) complete(ctx context.Context, reference string) (*model.PaymentVerifyResult, error) {
	payment, err := s.paymentRepo.UpdateStatusIfPending(ctx, reference, model.PaymentStatusCompleted, "")
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyFinal) {
			verified := payment != nil && payment.Status == model.PaymentStatusCompleted
			if !verified {
				logger.Warn("success event for failed payment ignored", "reference", reference)
			}
			return &model.PaymentVerifyResult{Transaction: payment, Verified: verified}, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	prom.AddPaymentSettlementDuration(time.Since(payment.CreatedAt).Seconds(), string(model.PaymentStatusCompleted))

	if payment.ResponseID != 0 {
		if err := s.surveyRepo.MarkCompleted(ctx, payment.ResponseID); err != nil {
			logger.Error("failed to mark survey response completed", "reference", reference, "error", err)
		}
	}

	result := &model.PaymentVerifyResult{Transaction: payment, Verified: true}

	receipt, err := s.receiptSvc.Dispatch(ctx, payment)
	if err != nil {
		if !errors.Is(err, ErrReceiptAlreadySent) {
			logger.Error("receipt dispatch failed", "reference", reference, "error", err)
		}
		return result, nil
	}
	result.Receipt = receipt

	return result, nil
}

func (s *PaymentService) fail(ctx context.Context, reference, failureCode string) (*model.PaymentVerifyResult, error) {
	payment, err := s.paymentRepo.UpdateStatusIfPending(ctx, reference, model.PaymentStatusFailed, failureCode)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyFinal) {
			if payment != nil && payment.Status == model.PaymentStatusCompleted {
				logger.Warn("failure event for completed payment ignored", "reference", reference)
				return &model.PaymentVerifyResult{Transaction: payment, Verified: true}, nil
			}
			return &model.PaymentVerifyResult{Transaction: payment, Verified: false}, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	prom.AddPaymentSettlementDuration(time.Since(payment.CreatedAt).Seconds(), string(model.PaymentStatusFailed))

	logger.Info("payment failed", "reference", reference, "failure_code", failureCode)
	return &model.PaymentVerifyResult{Transaction: payment, Verified: false}, nil
}

func (s *PaymentService) findByAnyReference(ctx context.Context, reference string) (*model.PaymentTransaction, error) {
	payment, err := s.paymentRepo.GetByReference(ctx, reference)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	payment, err = s.paymentRepo.GetByBankReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

func failureCodeFromDetails(details map[string]interface{}) string {
	if details == nil {
		return "payment_failed"
	}
	if code, ok := details["code"].(string); ok && code != "" {
		return code
	}
	if reason, ok := details["reason"].(string); ok && reason != "" {
		return reason
	}
	return "payment_failed"
}
