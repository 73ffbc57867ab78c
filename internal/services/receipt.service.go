package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/zingsurvey/payment-gateway/internal/mailer"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/queue"
	"github.com/zingsurvey/payment-gateway/internal/repository"
	"github.com/zingsurvey/payment-gateway/pkg/crypto"
	"github.com/zingsurvey/payment-gateway/pkg/logger"
	"github.com/zingsurvey/payment-gateway/pkg/prom"
)

var (
	ErrReceiptAlreadySent = errors.New("receipt already dispatched")
)

type ReceiptPaymentRepository interface {
	GetByReference(ctx context.Context, reference string) (*model.PaymentTransaction, error)
	ClaimReceipt(ctx context.Context, paymentID int64) error
	ReleaseReceipt(ctx context.Context, paymentID int64) error
}

type ReceiptRepository interface {
	Create(ctx context.Context, receipt *model.Receipt) (*model.Receipt, error)
	GetByPaymentID(ctx context.Context, paymentID int64) (*model.Receipt, error)
	MarkSent(ctx context.Context, receiptID int64, toCustomer, toAdmin bool) error
}

type ReceiptSurveyRepository interface {
	GetByID(ctx context.Context, id int64) (*model.SurveyResponse, error)
}

type ReceiptServiceConfig struct {
	AdminEmail string
}

type ReceiptService struct {
	paymentRepo ReceiptPaymentRepository
	receiptRepo ReceiptRepository
	surveyRepo  ReceiptSurveyRepository
	mail        mailer.Mailer
	retryQueue  *queue.Queue
	config      ReceiptServiceConfig
}

func NewReceiptService(
	paymentRepo ReceiptPaymentRepository,
	receiptRepo ReceiptRepository,
	surveyRepo ReceiptSurveyRepository,
	mail mailer.Mailer,
	retryQueue *queue.Queue,
	config ReceiptServiceConfig,
) *ReceiptService {
	return &ReceiptService{
		paymentRepo: paymentRepo,
		receiptRepo: receiptRepo,
		surveyRepo:  surveyRepo,
		mail:        mail,
		retryQueue:  retryQueue,
		config:      config,
	}
}

// Dispatch creates the receipt for a completed payment and sends the
// customer and admin copies concurrently. The claim on the payment row is
// what makes dispatch at-most-once across processes; losing the claim
// returns ErrReceiptAlreadySent. Send failures never fail the payment:
// they are reported in the result and queued for the retry worker.
func (s *ReceiptService) Dispatch(ctx context.Context, payment *model.PaymentTransaction) (*model.ReceiptDispatchResult, error) {
	if err := s.paymentRepo.ClaimReceipt(ctx, payment.ID); err != nil {
		if errors.Is(err, repository.ErrReceiptClaimed) {
			return nil, ErrReceiptAlreadySent
		}
		return nil, fmt.Errorf("claim receipt: %w", err)
	}

	receipt, err := s.receiptRepo.GetByPaymentID(ctx, payment.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrReceiptNotFound) {
			return nil, fmt.Errorf("load receipt: %w", err)
		}
		receipt, err = s.receiptRepo.Create(ctx, &model.Receipt{
			ReceiptNumber: crypto.GenerateReceiptNumber(),
			PaymentID:     payment.ID,
			Reference:     payment.Reference,
			Email:         payment.Email,
			AdminEmail:    s.config.AdminEmail,
			Amount:        payment.Amount,
			Currency:      payment.Currency,
		})
		if err != nil {
			return nil, fmt.Errorf("create receipt: %w", err)
		}
	}

	result := s.send(ctx, payment, receipt, true, true)

	if err := s.receiptRepo.MarkSent(ctx, receipt.ID, result.SentToCustomer, result.SentToAdmin); err != nil {
		logger.Error("failed to record receipt flags", "receipt", receipt.ReceiptNumber, "error", err)
	}

	if !result.SentToCustomer && !result.SentToAdmin {
		// Nothing went out; give the claim back so a retry can start over.
		if err := s.paymentRepo.ReleaseReceipt(ctx, payment.ID); err != nil {
			logger.Error("failed to release receipt claim", "reference", payment.Reference, "error", err)
		}
	}

	if !result.Complete() {
		s.enqueueRetry(ctx, payment, result)
	}

	return result, nil
}

// Redeliver handles a queued retry job: it resends only the copies that
// are still missing.
func (s *ReceiptService) Redeliver(ctx context.Context, job model.ReceiptRetryJob) (*model.ReceiptDispatchResult, error) {
	payment, err := s.paymentRepo.GetByReference(ctx, job.Reference)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}

	receipt, err := s.receiptRepo.GetByPaymentID(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("load receipt: %w", err)
	}

	retryCustomer := job.RetryCustomer && !receipt.SentToCustomer
	retryAdmin := job.RetryAdmin && !receipt.SentToAdmin
	if !retryCustomer && !retryAdmin {
		result := &model.ReceiptDispatchResult{
			ReceiptNumber:  receipt.ReceiptNumber,
			SentToCustomer: receipt.SentToCustomer,
			SentToAdmin:    receipt.SentToAdmin,
		}
		if result.Complete() {
			s.restoreClaim(ctx, payment)
		}
		return result, nil
	}

	result := s.send(ctx, payment, receipt, retryCustomer, retryAdmin)
	result.SentToCustomer = result.SentToCustomer || receipt.SentToCustomer
	result.SentToAdmin = result.SentToAdmin || receipt.SentToAdmin

	if err := s.receiptRepo.MarkSent(ctx, receipt.ID, result.SentToCustomer, result.SentToAdmin); err != nil {
		logger.Error("failed to record receipt flags", "receipt", receipt.ReceiptNumber, "error", err)
	}

	if !result.Complete() {
		return result, fmt.Errorf("receipt %s still incomplete", receipt.ReceiptNumber)
	}

	// Dispatch releases the claim when nothing went out, so a retry that
	// finishes the job has to take it back or receipt_sent stays false.
	s.restoreClaim(ctx, payment)
	return result, nil
}

func (s *ReceiptService) restoreClaim(ctx context.Context, payment *model.PaymentTransaction) {
	if err := s.paymentRepo.ClaimReceipt(ctx, payment.ID); err != nil && !errors.Is(err, repository.ErrReceiptClaimed) {
		logger.Error("failed to restore receipt claim", "reference", payment.Reference, "error", err)
	}
}

func (s *ReceiptService) send(ctx context.Context, payment *model.PaymentTransaction, receipt *model.Receipt, toCustomer, toAdmin bool) *model.ReceiptDispatchResult {
	fullName := payment.Email
	if payment.CustomerName != "" {
		fullName = payment.CustomerName
	}
	if payment.ResponseID != 0 {
		if resp, err := s.surveyRepo.GetByID(ctx, payment.ResponseID); err == nil {
			fullName = resp.FullName
		}
	}

	paidAt := payment.CreatedAt
	if payment.CompletedAt != nil {
		paidAt = *payment.CompletedAt
	}

	data := mailer.ReceiptEmailData{
		ReceiptNumber:   receipt.ReceiptNumber,
		Reference:       receipt.Reference,
		FullName:        fullName,
		Email:           receipt.Email,
		AmountFormatted: FormatNGN(receipt.Amount),
		PaidAt:          paidAt.Format("2006-01-02 15:04"),
	}

	result := &model.ReceiptDispatchResult{ReceiptNumber: receipt.ReceiptNumber}

	var wg sync.WaitGroup
	if toCustomer {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.sendCustomerCopy(ctx, receipt, data); err != nil {
				logger.Warn("customer receipt send failed", "receipt", receipt.ReceiptNumber, "error", err)
				prom.IncReceiptDelivery("customer", "failed")
				result.CustomerError = err.Error()
				return
			}
			prom.IncReceiptDelivery("customer", "sent")
			result.SentToCustomer = true
		}()
	}
	if toAdmin {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.sendAdminCopy(ctx, data); err != nil {
				logger.Warn("admin receipt send failed", "receipt", receipt.ReceiptNumber, "error", err)
				prom.IncReceiptDelivery("admin", "failed")
				result.AdminError = err.Error()
				return
			}
			prom.IncReceiptDelivery("admin", "sent")
			result.SentToAdmin = true
		}()
	}
	wg.Wait()

	return result
}

func (s *ReceiptService) sendCustomerCopy(ctx context.Context, receipt *model.Receipt, data mailer.ReceiptEmailData) error {
	body, err := mailer.RenderCustomerReceipt(data)
	if err != nil {
		return err
	}
	return s.mail.Send(ctx, mailer.Message{
		To:       receipt.Email,
		ToName:   data.FullName,
		Subject:  "Your Zing Survey payment receipt " + receipt.ReceiptNumber,
		HTMLBody: body,
	})
}

func (s *ReceiptService) sendAdminCopy(ctx context.Context, data mailer.ReceiptEmailData) error {
	body, err := mailer.RenderAdminReceipt(data)
	if err != nil {
		return err
	}
	return s.mail.Send(ctx, mailer.Message{
		To:       s.config.AdminEmail,
		Subject:  "Payment received " + data.Reference,
		HTMLBody: body,
	})
}

func (s *ReceiptService) enqueueRetry(ctx context.Context, payment *model.PaymentTransaction, result *model.ReceiptDispatchResult) {
	if s.retryQueue == nil {
		return
	}

	job := model.ReceiptRetryJob{
		PaymentID:     payment.ID,
		Reference:     payment.Reference,
		ReceiptNumber: result.ReceiptNumber,
		RetryCustomer: !result.SentToCustomer,
		RetryAdmin:    !result.SentToAdmin,
	}

	if _, err := s.retryQueue.PublishJSON(ctx, job, map[string]string{"reference": payment.Reference}); err != nil {
		logger.Error("failed to enqueue receipt retry", "reference", payment.Reference, "error", err)
	}
}

// FormatNGN renders an amount in naira for receipts, e.g. NGN 5,000.00.
func FormatNGN(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	out := "NGN " + b.String() + ".00"
	if negative {
		out = "NGN -" + b.String() + ".00"
	}
	return out
}
