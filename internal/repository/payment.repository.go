package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a payment does not exist.
	ErrNotFound = errors.New("payment not found")
	// ErrAlreadyFinal is returned when a status transition finds the row
	// no longer pending. The caller decides whether that is a conflict
	// or an idempotent no-op.
	ErrAlreadyFinal = errors.New("payment already in a final state")
	// ErrReceiptClaimed is returned when the receipt flag was already
	// taken by another dispatcher.
	ErrReceiptClaimed = errors.New("receipt already claimed")
)

type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{
		db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.PaymentTransaction) (*model.PaymentTransaction, error) {
	entity := toPaymentEntity(p)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toPaymentModel(entity), nil
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*model.PaymentTransaction, error) {
	var entity PaymentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("reference = ?", reference).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return toPaymentModel(&entity), nil
}

// GetByBankReference resolves a payment through its bank transaction leg.
// Webhook callbacks identify payments by the bank reference, not ours.
func (r *PaymentRepository) GetByBankReference(ctx context.Context, bankReference string) (*model.PaymentTransaction, error) {
	var entity PaymentEntity
	err := r.Read(ctx).WithContext(ctx).
		Table("payment_transactions AS p").
		Select("p.*").
		Joins("JOIN bank_transactions AS b ON b.payment_id = p.id").
		Where("b.bank_reference = ?", bankReference).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return toPaymentModel(&entity), nil
}

// UpdateStatusIfPending moves a payment out of pending with a single
// conditional UPDATE. Two concurrent callers cannot both win; the loser
// gets ErrAlreadyFinal (or ErrNotFound when the reference never existed).
// The bank transaction leg follows the payment to the same status inside
// the same database transaction, so the two rows never disagree.
func (r *PaymentRepository) UpdateStatusIfPending(ctx context.Context, reference string, status model.PaymentStatus, failureCode string) (*model.PaymentTransaction, error) {
	updates := map[string]interface{}{
		"status": string(status),
	}
	if status == model.PaymentStatusCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}
	if failureCode != "" {
		updates["failure_code"] = failureCode
	}

	var payment *model.PaymentTransaction
	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		result := r.Write(ctx).WithContext(ctx).
			Model(&PaymentEntity{}).
			Where("reference = ? AND status = ?", reference, string(model.PaymentStatusPending)).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}

		var entity PaymentEntity
		if err := r.Write(ctx).WithContext(ctx).
			Where("reference = ?", reference).
			First(&entity).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		payment = toPaymentModel(&entity)

		if result.RowsAffected == 0 {
			// Lost the race; the row is already final.
			return ErrAlreadyFinal
		}

		bankUpdates := map[string]interface{}{
			"status": string(status),
		}
		if failureCode != "" {
			bankUpdates["processing_details"] = failureCode
		}
		return r.Write(ctx).WithContext(ctx).
			Model(&BankTransactionEntity{}).
			Where("payment_id = ? AND status = ?", entity.ID, string(model.PaymentStatusPending)).
			Updates(bankUpdates).
			Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyFinal) {
			return payment, ErrAlreadyFinal
		}
		return nil, err
	}

	return payment, nil
}

// ClaimReceipt flips receipt_sent from false to true for a completed
// payment. Exactly one caller wins the claim; everyone else gets
// ErrReceiptClaimed. This is what keeps receipt dispatch at-most-once.
func (r *PaymentRepository) ClaimReceipt(ctx context.Context, paymentID int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("id = ? AND status = ? AND receipt_sent = ?", paymentID, string(model.PaymentStatusCompleted), false).
		Update("receipt_sent", true)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var entity PaymentEntity
		err := r.Write(ctx).WithContext(ctx).
			Where("id = ?", paymentID).
			First(&entity).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return ErrReceiptClaimed
	}

	return nil
}

// ReleaseReceipt undoes a claim after every send attempt failed, so the
// retry worker can claim again later.
func (r *PaymentRepository) ReleaseReceipt(ctx context.Context, paymentID int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("id = ?", paymentID).
		Update("receipt_sent", false).
		Error
}

func (r *PaymentRepository) List(ctx context.Context, f model.PaymentFilter) ([]*model.PaymentTransaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&PaymentEntity{})

	if f.ResponseID != nil {
		q = q.Where("response_id = ?", *f.ResponseID)
	}
	if f.Email != nil && *f.Email != "" {
		q = q.Where("email = ?", *f.Email)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*PaymentEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toPaymentModels(entities), total, nil
}

func (r *PaymentRepository) CountByStatus(ctx context.Context, status model.PaymentStatus) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("status = ?", string(status)).
		Count(&total).
		Error
	return total, err
}

// RevenueTotal sums completed payment amounts.
func (r *PaymentRepository) RevenueTotal(ctx context.Context) (int64, error) {
	var total *int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Select("SUM(amount)").
		Where("status = ?", string(model.PaymentStatusCompleted)).
		Scan(&total).
		Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
