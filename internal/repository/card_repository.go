package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/denysekm/bank-system/internal/model"
)

// CardRepository defines card persistence operations.
type CardRepository interface {
	Create(ctx context.Context, card *model.Card) error
	ListByAccount(ctx context.Context, accountID uint) ([]model.Card, error)
	FindByNumber(ctx context.Context, number string) (*model.Card, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Card, error)
	FindByNumberForUpdate(ctx context.Context, number string) (*model.Card, error)
	FindByAccountAndTypeForUpdate(ctx context.Context, accountID uint, cardType model.CardType) (*model.Card, error)
	CountByAccountAndType(ctx context.Context, accountID uint, cardType model.CardType) (int64, error)
	AdjustBalance(ctx context.Context, id uint, delta decimal.Decimal) error
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error
}

type cardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *cardRepository) ListByAccount(ctx context.Context, accountID uint) ([]model.Card, error) {
	var cards []model.Card
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// FindByNumber resolves a card without locking it. Transfer operations use it
// to learn row ids before locking in ascending-id order.
func (r *cardRepository) FindByNumber(ctx context.Context, number string) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).Where("card_number = ?", number).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&card, id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) FindByNumberForUpdate(ctx context.Context, number string) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("card_number = ?", number).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) FindByAccountAndTypeForUpdate(ctx context.Context, accountID uint, cardType model.CardType) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ? AND type = ?", accountID, cardType).
		First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) CountByAccountAndType(ctx context.Context, accountID uint, cardType model.CardType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Card{}).
		Where("account_id = ? AND type = ?", accountID, cardType).Count(&count).Error
	return count, err
}

// AdjustBalance applies a signed delta to the card balance. Callers validate
// against the locked row first.
func (r *cardRepository) AdjustBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Card{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func (r *cardRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Card{}).
		Where("card_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *cardRepository) DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error {
	if len(accountIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Delete(&model.Card{}).Error
}
