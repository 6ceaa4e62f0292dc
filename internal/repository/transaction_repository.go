package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/denysekm/bank-system/internal/model"
)

// TransactionRepository defines the append-only ledger log. An append failure
// must abort the enclosing transaction: a balance change without a matching
// log row is a silent consistency violation.
type TransactionRepository interface {
	Append(ctx context.Context, entry *model.Transaction) error
	ListRecentByAccount(ctx context.Context, accountID uint, limit int) ([]model.Transaction, error)
	DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction log repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Append(ctx context.Context, entry *model.Transaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *transactionRepository) ListRecentByAccount(ctx context.Context, accountID uint, limit int) ([]model.Transaction, error) {
	var entries []model.Transaction
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *transactionRepository) DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error {
	if len(accountIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Delete(&model.Transaction{}).Error
}
