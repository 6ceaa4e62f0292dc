package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denysekm/bank-system/internal/cache"
	apperrors "github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
)

// Underwriting parameters. Rates are fixed for every loan; eligibility caps
// the installment at 40% of the applicant's disposable income.
var (
	loanInterestRate      = decimal.NewFromFloat(5.00)
	loanAPR               = decimal.NewFromFloat(5.20)
	maxInstallmentRatio   = decimal.NewFromFloat(0.4)
	installmentTooHighMsg = "monthly installment would exceed 40% of your disposable income"
)

// ApplyInput is one loan application.
type ApplyInput struct {
	Amount           decimal.Decimal
	DurationMonths   int
	MonthlyIncome    decimal.Decimal
	OtherObligations decimal.Decimal
}

// ApplyResult is the evaluation outcome. A rejection is a successful
// evaluation with a negative outcome, not an error.
type ApplyResult struct {
	Status          model.ApplicationStatus `json:"status"`
	RejectionReason string                  `json:"rejection_reason,omitempty"`
	LoanID          uint                    `json:"loan_id,omitempty"`
	Installment     decimal.Decimal         `json:"installment"`
	TotalToRepay    decimal.Decimal         `json:"total_to_repay"`
}

// RepayResult reports a settled installment or full payoff.
type RepayResult struct {
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Remaining  decimal.Decimal `json:"remaining"`
	Finished   bool            `json:"finished"`
}

// LoanOverview is the active loan with its schedule.
type LoanOverview struct {
	Loan            *model.Loan         `json:"active_loan"`
	Installments    []model.Installment `json:"installments,omitempty"`
	NextInstallment *model.Installment  `json:"next_installment,omitempty"`
}

// LoanService implements loan underwriting, disbursement and the dual-source
// repayment waterfall (debit card first, account second).
type LoanService interface {
	Apply(ctx context.Context, accountID, clientID uint, in ApplyInput) (*ApplyResult, error)
	Repay(ctx context.Context, accountID uint) (*RepayResult, error)
	RepayAll(ctx context.Context, accountID uint) (*RepayResult, error)
	ActiveLoan(ctx context.Context, accountID uint) (*LoanOverview, error)
	History(ctx context.Context, accountID uint) ([]model.LoanApplication, error)
}

type loanService struct {
	repos repository.Repos
	uow   repository.UnitOfWork
	cache cache.Store
}

// NewLoanService creates a new loan service.
func NewLoanService(repos repository.Repos, uow repository.UnitOfWork, cache cache.Store) LoanService {
	return &loanService{repos: repos, uow: uow, cache: cache}
}

// Apply evaluates eligibility and, on approval, creates the loan, its full
// installment schedule, and disburses the principal to the account's credit
// card. Rejected applications are persisted and committed too.
func (s *loanService) Apply(ctx context.Context, accountID, clientID uint, in ApplyInput) (*ApplyResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) || in.DurationMonths <= 0 || in.MonthlyIncome.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}
	if in.OtherObligations.IsNegative() {
		return nil, apperrors.ErrInvalidAmount
	}

	var (
		result    ApplyResult
		disbursed bool
	)
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		client, err := r.Clients.FindByID(ctx, clientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrClientNotFound
			}
			return apperrors.ClassifyMySQL(err)
		}
		if client.IsMinor {
			return apperrors.ErrMinorForbidden
		}

		// One active loan per account, checked under lock so two concurrent
		// applications cannot both pass.
		_, err = r.Loans.FindActiveByAccountForUpdate(ctx, accountID)
		if err == nil {
			return apperrors.ErrActiveLoanExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ClassifyMySQL(err)
		}

		creditCard, err := r.Cards.FindByAccountAndTypeForUpdate(ctx, accountID, model.CardTypeCredit)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrMissingCreditCard
			}
			return apperrors.ClassifyMySQL(err)
		}

		totalToRepay := in.Amount.
			Mul(decimal.NewFromInt(100).Add(loanInterestRate)).
			Div(decimal.NewFromInt(100)).
			Round(2)
		installment := totalToRepay.Div(decimal.NewFromInt(int64(in.DurationMonths))).Round(2)
		availableIncome := in.MonthlyIncome.Sub(in.OtherObligations)

		app := &model.LoanApplication{
			AccountID:        accountID,
			RequestedAmount:  in.Amount,
			DurationMonths:   in.DurationMonths,
			MonthlyIncome:    in.MonthlyIncome,
			OtherObligations: in.OtherObligations,
		}

		if installment.GreaterThan(availableIncome.Mul(maxInstallmentRatio)) {
			reason := installmentTooHighMsg
			app.Status = model.ApplicationStatusRejected
			app.RejectionReason = &reason
			if err := r.Loans.CreateApplication(ctx, app); err != nil {
				return apperrors.ClassifyMySQL(err)
			}
			result = ApplyResult{
				Status:          model.ApplicationStatusRejected,
				RejectionReason: reason,
				Installment:     installment,
				TotalToRepay:    totalToRepay,
			}
			return nil
		}

		app.Status = model.ApplicationStatusApproved
		if err := r.Loans.CreateApplication(ctx, app); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		loan := &model.Loan{
			ApplicationID:      app.ID,
			AccountID:          accountID,
			Principal:          in.Amount,
			Remaining:          totalToRepay,
			InterestRate:       loanInterestRate,
			APR:                loanAPR,
			DurationMonths:     in.DurationMonths,
			MonthlyInstallment: installment,
			Status:             model.LoanStatusActive,
		}
		if err := r.Loans.CreateLoan(ctx, loan); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		issued := time.Now()
		installments := make([]model.Installment, 0, in.DurationMonths)
		for i := 1; i <= in.DurationMonths; i++ {
			due := issued.AddDate(0, i, 0)
			amount := installment
			if i == in.DurationMonths {
				// The last installment absorbs the rounding delta so the
				// schedule sums exactly to the repayment total.
				amount = totalToRepay.Sub(installment.Mul(decimal.NewFromInt(int64(in.DurationMonths - 1))))
			}
			installments = append(installments, model.Installment{
				LoanID:   loan.ID,
				Sequence: i,
				DueDate:  time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC),
				Amount:   amount,
				Status:   model.InstallmentStatusPending,
			})
		}
		if err := r.Loans.CreateInstallments(ctx, installments); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		// Disburse the principal, not the repayment total.
		if err := r.Cards.AdjustBalance(ctx, creditCard.ID, in.Amount); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		entry := &model.Transaction{
			AccountID: accountID,
			Sender:    model.SenderLoanSystem,
			Receiver:  creditCard.CardNumber,
			Amount:    in.Amount,
			Note:      "LOAN_DISBURSEMENT (Credit Card)",
		}
		if err := r.Transactions.Append(ctx, entry); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		result = ApplyResult{
			Status:       model.ApplicationStatusApproved,
			LoanID:       loan.ID,
			Installment:  installment,
			TotalToRepay: totalToRepay,
		}
		disbursed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if disbursed {
		s.invalidateAccount(ctx, accountID)
	}
	return &result, nil
}

// Repay settles exactly the next pending installment, drawing from the debit
// card first and the account balance second.
func (s *loanService) Repay(ctx context.Context, accountID uint) (*RepayResult, error) {
	var result RepayResult
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		loan, account, debitCard, err := s.lockRepaymentRows(ctx, r, accountID)
		if err != nil {
			return err
		}

		installment, err := r.Loans.NextPendingForUpdate(ctx, loan.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNoPendingInstallment
			}
			return apperrors.ClassifyMySQL(err)
		}

		if err := s.drawWaterfall(ctx, r, account, debitCard, installment.Amount); err != nil {
			return err
		}

		now := time.Now()
		if err := r.Loans.MarkInstallmentPaid(ctx, installment.ID, now); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		remaining := loan.Remaining.Sub(installment.Amount)
		status := model.LoanStatusActive
		if remaining.LessThanOrEqual(decimal.Zero) {
			remaining = decimal.Zero
			status = model.LoanStatusPaid
		}
		if err := r.Loans.UpdateSettlement(ctx, loan.ID, remaining, status); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		entry := &model.Transaction{
			AccountID: accountID,
			Sender:    account.AccountNumber,
			Receiver:  model.SenderLoanSystem,
			Amount:    installment.Amount,
			Note:      "LOAN_REPAYMENT",
		}
		if err := r.Transactions.Append(ctx, entry); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		result = RepayResult{
			PaidAmount: installment.Amount,
			Remaining:  remaining,
			Finished:   status == model.LoanStatusPaid,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAccount(ctx, accountID)
	return &result, nil
}

// RepayAll settles the loan's full remaining balance with the same waterfall
// and marks every pending installment paid.
func (s *loanService) RepayAll(ctx context.Context, accountID uint) (*RepayResult, error) {
	var result RepayResult
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		loan, account, debitCard, err := s.lockRepaymentRows(ctx, r, accountID)
		if err != nil {
			return err
		}

		if err := s.drawWaterfall(ctx, r, account, debitCard, loan.Remaining); err != nil {
			return err
		}

		now := time.Now()
		if err := r.Loans.MarkAllPendingPaid(ctx, loan.ID, now); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		if err := r.Loans.UpdateSettlement(ctx, loan.ID, decimal.Zero, model.LoanStatusPaid); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		entry := &model.Transaction{
			AccountID: accountID,
			Sender:    account.AccountNumber,
			Receiver:  model.SenderLoanSystem,
			Amount:    loan.Remaining,
			Note:      "LOAN_FULL_PAYOFF",
		}
		if err := r.Transactions.Append(ctx, entry); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		result = RepayResult{
			PaidAmount: loan.Remaining,
			Remaining:  decimal.Zero,
			Finished:   true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAccount(ctx, accountID)
	return &result, nil
}

// lockRepaymentRows acquires every row a repayment mutates: the active loan,
// the account and its debit card.
func (s *loanService) lockRepaymentRows(ctx context.Context, r repository.Repos, accountID uint) (*model.Loan, *model.Account, *model.Card, error) {
	loan, err := r.Loans.FindActiveByAccountForUpdate(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apperrors.ErrNoActiveLoan
		}
		return nil, nil, nil, apperrors.ClassifyMySQL(err)
	}
	account, err := r.Accounts.FindByIDForUpdate(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apperrors.ErrAccountNotFound
		}
		return nil, nil, nil, apperrors.ClassifyMySQL(err)
	}
	debitCard, err := r.Cards.FindByAccountAndTypeForUpdate(ctx, accountID, model.CardTypeDebit)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apperrors.ErrMissingDebitCard
		}
		return nil, nil, nil, apperrors.ClassifyMySQL(err)
	}
	return loan, account, debitCard, nil
}

// drawWaterfall validates the combined pool and debits the debit card first,
// then the account, for the given amount. The ordering is policy, not
// incidental.
func (s *loanService) drawWaterfall(ctx context.Context, r repository.Repos, account *model.Account, debitCard *model.Card, amount decimal.Decimal) error {
	totalAvailable := account.Balance.Add(debitCard.Balance)
	if totalAvailable.LessThan(amount) {
		return apperrors.ErrInsufficientFunds
	}

	fromCard := decimal.Min(debitCard.Balance, amount)
	fromAccount := amount.Sub(fromCard)

	if fromCard.IsPositive() {
		if err := r.Cards.AdjustBalance(ctx, debitCard.ID, fromCard.Neg()); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
	}
	if fromAccount.IsPositive() {
		if err := r.Accounts.AdjustBalance(ctx, account.ID, fromAccount.Neg()); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
	}
	return nil
}

// ActiveLoan returns the account's active loan with its schedule, or an empty
// overview when there is none. A missing loan schema reads as "no loan" so
// the feature can be absent without breaking the dashboard.
func (s *loanService) ActiveLoan(ctx context.Context, accountID uint) (*LoanOverview, error) {
	loan, err := s.repos.Loans.FindActiveByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LoanOverview{}, nil
		}
		if classified := apperrors.ClassifyMySQL(err); errors.Is(classified, apperrors.ErrSchemaMissing) {
			return &LoanOverview{}, nil
		}
		return nil, fmt.Errorf("find active loan: %w", err)
	}

	installments, err := s.repos.Loans.ListInstallmentsByLoan(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}

	overview := &LoanOverview{Loan: loan, Installments: installments}
	for i := range installments {
		if installments[i].Status == model.InstallmentStatusPending {
			overview.NextInstallment = &installments[i]
			break
		}
	}
	return overview, nil
}

// History returns the account's application history, newest first.
func (s *loanService) History(ctx context.Context, accountID uint) ([]model.LoanApplication, error) {
	apps, err := s.repos.Loans.ListApplicationsByAccount(ctx, accountID)
	if err != nil {
		if classified := apperrors.ClassifyMySQL(err); errors.Is(classified, apperrors.ErrSchemaMissing) {
			return []model.LoanApplication{}, nil
		}
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func (s *loanService) invalidateAccount(ctx context.Context, accountID uint) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, fmt.Sprintf("account:%d", accountID))
}
