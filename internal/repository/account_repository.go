package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/denysekm/bank-system/internal/model"
)

// AccountRepository defines account persistence operations. The ForUpdate
// variants take a row-level exclusive lock and are only meaningful inside a
// unit-of-work transaction.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	Update(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uint) (*model.Account, error)
	FindByLogin(ctx context.Context, login string) (*model.Account, error)
	FindByNumber(ctx context.Context, number string) (*model.Account, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error)
	FindByNumberForUpdate(ctx context.Context, number string) (*model.Account, error)
	AdjustBalance(ctx context.Context, id uint, delta decimal.Decimal) error
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	ExistsByLogin(ctx context.Context, login string) (bool, error)
	ListChildren(ctx context.Context, parentID uint) ([]model.Account, error)
	ListIDsByClient(ctx context.Context, clientID uint) ([]uint, error)
	ListChildIDs(ctx context.Context, parentID uint) ([]uint, error)
	ListClientIDs(ctx context.Context, accountIDs []uint) ([]uint, error)
	ListNonAdminWithClients(ctx context.Context) ([]model.Account, error)
	DeleteByIDs(ctx context.Context, ids []uint) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByLogin(ctx context.Context, login string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("login = ?", login).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByNumber(ctx context.Context, number string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("account_number = ?", number).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByIDForUpdate reads an account row with an exclusive lock held until
// the enclosing transaction commits or rolls back.
func (r *accountRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByNumberForUpdate is FindByIDForUpdate keyed by public account number.
func (r *accountRepository) FindByNumberForUpdate(ctx context.Context, number string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_number = ?", number).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// AdjustBalance applies a signed delta to the balance. Callers must already
// have validated the resulting balance against the locked row.
func (r *accountRepository) AdjustBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func (r *accountRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("account_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *accountRepository) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("login = ?", login).Count(&count).Error
	return count > 0, err
}

func (r *accountRepository) ListChildren(ctx context.Context, parentID uint) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.WithContext(ctx).Preload("Client").
		Where("parent_account_id = ?", parentID).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ListIDsByClient(ctx context.Context, clientID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("client_id = ?", clientID).Pluck("id", &ids).Error
	return ids, err
}

func (r *accountRepository) ListChildIDs(ctx context.Context, parentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("parent_account_id = ?", parentID).Pluck("id", &ids).Error
	return ids, err
}

func (r *accountRepository) ListClientIDs(ctx context.Context, accountIDs []uint) ([]uint, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id IN ?", accountIDs).Distinct().Pluck("client_id", &ids).Error
	return ids, err
}

func (r *accountRepository) ListNonAdminWithClients(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.WithContext(ctx).Preload("Client").
		Where("role <> ?", model.RoleAdmin).
		Order("id DESC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&model.Account{}, ids).Error
}
