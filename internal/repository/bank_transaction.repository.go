package repository

import (
	"context"
	"errors"

	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrBankTransactionNotFound = errors.New("bank transaction not found")
)

type BankTransactionRepository struct {
	*pg.DB
}

func NewBankTransactionRepository(db *pg.DB) *BankTransactionRepository {
	return &BankTransactionRepository{
		db,
	}
}

func (r *BankTransactionRepository) Create(ctx context.Context, txn *model.BankTransaction) (*model.BankTransaction, error) {
	entity := toBankTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toBankTransactionModel(entity), nil
}

func (r *BankTransactionRepository) GetByPaymentID(ctx context.Context, paymentID int64) (*model.BankTransaction, error) {
	var entity BankTransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankTransactionNotFound
		}
		return nil, err
	}

	return toBankTransactionModel(&entity), nil
}

func (r *BankTransactionRepository) GetByBankReference(ctx context.Context, bankReference string) (*model.BankTransaction, error) {
	var entity BankTransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("bank_reference = ?", bankReference).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankTransactionNotFound
		}
		return nil, err
	}

	return toBankTransactionModel(&entity), nil
}
