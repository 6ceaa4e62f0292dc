package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/denysekm/bank-system/internal/model"
)

// LoanRepository covers the loan aggregate: applications, loans and their
// installment schedules.
type LoanRepository interface {
	CreateApplication(ctx context.Context, app *model.LoanApplication) error
	ListApplicationsByAccount(ctx context.Context, accountID uint) ([]model.LoanApplication, error)
	CreateLoan(ctx context.Context, loan *model.Loan) error
	FindActiveByAccount(ctx context.Context, accountID uint) (*model.Loan, error)
	FindActiveByAccountForUpdate(ctx context.Context, accountID uint) (*model.Loan, error)
	UpdateSettlement(ctx context.Context, loanID uint, remaining decimal.Decimal, status model.LoanStatus) error
	CreateInstallments(ctx context.Context, installments []model.Installment) error
	ListInstallmentsByLoan(ctx context.Context, loanID uint) ([]model.Installment, error)
	NextPendingForUpdate(ctx context.Context, loanID uint) (*model.Installment, error)
	MarkInstallmentPaid(ctx context.Context, installmentID uint, paidAt time.Time) error
	MarkAllPendingPaid(ctx context.Context, loanID uint, paidAt time.Time) error
	DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) CreateApplication(ctx context.Context, app *model.LoanApplication) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *loanRepository) ListApplicationsByAccount(ctx context.Context, accountID uint) ([]model.LoanApplication, error) {
	var apps []model.LoanApplication
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *loanRepository) CreateLoan(ctx context.Context, loan *model.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *loanRepository) FindActiveByAccount(ctx context.Context, accountID uint) (*model.Loan, error) {
	var loan model.Loan
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, model.LoanStatusActive).
		First(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// FindActiveByAccountForUpdate locks the active loan row. Apply also uses it
// to enforce the one-active-loan rule atomically.
func (r *loanRepository) FindActiveByAccountForUpdate(ctx context.Context, accountID uint) (*model.Loan, error) {
	var loan model.Loan
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ? AND status = ?", accountID, model.LoanStatusActive).
		First(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) UpdateSettlement(ctx context.Context, loanID uint, remaining decimal.Decimal, status model.LoanStatus) error {
	return r.db.WithContext(ctx).Model(&model.Loan{}).
		Where("id = ?", loanID).
		Updates(map[string]interface{}{"remaining": remaining, "status": status}).Error
}

func (r *loanRepository) CreateInstallments(ctx context.Context, installments []model.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(installments, 100).Error
}

func (r *loanRepository) ListInstallmentsByLoan(ctx context.Context, loanID uint) ([]model.Installment, error) {
	var installments []model.Installment
	if err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("due_date ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

// NextPendingForUpdate locks the earliest pending installment by due date.
func (r *loanRepository) NextPendingForUpdate(ctx context.Context, loanID uint) (*model.Installment, error) {
	var installment model.Installment
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ? AND status = ?", loanID, model.InstallmentStatusPending).
		Order("due_date ASC").
		First(&installment).Error; err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *loanRepository) MarkInstallmentPaid(ctx context.Context, installmentID uint, paidAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Installment{}).
		Where("id = ?", installmentID).
		Updates(map[string]interface{}{"status": model.InstallmentStatusPaid, "paid_at": paidAt}).Error
}

func (r *loanRepository) MarkAllPendingPaid(ctx context.Context, loanID uint, paidAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Installment{}).
		Where("loan_id = ? AND status = ?", loanID, model.InstallmentStatusPending).
		Updates(map[string]interface{}{"status": model.InstallmentStatusPaid, "paid_at": paidAt}).Error
}

func (r *loanRepository) DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error {
	if len(accountIDs) == 0 {
		return nil
	}
	var loanIDs []uint
	if err := r.db.WithContext(ctx).Model(&model.Loan{}).
		Where("account_id IN ?", accountIDs).Pluck("id", &loanIDs).Error; err != nil {
		return err
	}
	if len(loanIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("loan_id IN ?", loanIDs).Delete(&model.Installment{}).Error; err != nil {
			return err
		}
		if err := r.db.WithContext(ctx).Delete(&model.Loan{}, loanIDs).Error; err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Delete(&model.LoanApplication{}).Error
}
