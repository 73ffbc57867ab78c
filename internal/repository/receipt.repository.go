package repository

import (
	"context"
	"errors"

	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
)

type ReceiptRepository struct {
	*pg.DB
}

func NewReceiptRepository(db *pg.DB) *ReceiptRepository {
	return &ReceiptRepository{
		db,
	}
}

func (r *ReceiptRepository) Create(ctx context.Context, receipt *model.Receipt) (*model.Receipt, error) {
	entity := toReceiptEntity(receipt)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toReceiptModel(entity), nil
}

func (r *ReceiptRepository) GetByNumber(ctx context.Context, receiptNumber string) (*model.Receipt, error) {
	var entity ReceiptEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("receipt_number = ?", receiptNumber).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}

	return toReceiptModel(&entity), nil
}

func (r *ReceiptRepository) GetByPaymentID(ctx context.Context, paymentID int64) (*model.Receipt, error) {
	var entity ReceiptEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}

	return toReceiptModel(&entity), nil
}

// MarkSent records which copies of the receipt went out. Flags only ever
// move from false to true, so a late retry cannot clear an earlier send.
func (r *ReceiptRepository) MarkSent(ctx context.Context, receiptID int64, toCustomer, toAdmin bool) error {
	updates := map[string]interface{}{}
	if toCustomer {
		updates["sent_to_customer"] = true
	}
	if toAdmin {
		updates["sent_to_admin"] = true
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&ReceiptEntity{}).
		Where("id = ?", receiptID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReceiptNotFound
	}
	return nil
}
