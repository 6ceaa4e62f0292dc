package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denysekm/bank-system/internal/cache"
	apperrors "github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
)

// ReplenishInput tops up one card from an external source.
type ReplenishInput struct {
	CardNumber string
	Amount     decimal.Decimal
	Method     string
}

// CardTransferInput moves money between two cards.
type CardTransferInput struct {
	FromCard string
	ToCard   string
	Amount   decimal.Decimal
	Note     string
}

// MobileTransferInput sends card money to an external phone number. The debit
// has no matching credit anywhere in the ledger.
type MobileTransferInput struct {
	FromCard string
	Phone    string
	Amount   decimal.Decimal
}

// AccountTransferInput moves account money to another account resolved by its
// public account number.
type AccountTransferInput struct {
	ToAccountNumber string
	Amount          decimal.Decimal
	Note            string
}

// LedgerResult reports the source instrument's balance after a movement.
type LedgerResult struct {
	TransactionID uint            `json:"transaction_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// LedgerService implements the money-movement primitives. Every operation
// runs in one database transaction: lock the rows to be mutated (ascending id
// when there are two), validate against the locked values, apply the deltas,
// append exactly one transaction log row, commit.
type LedgerService interface {
	Replenish(ctx context.Context, in ReplenishInput) (*LedgerResult, error)
	CardTransfer(ctx context.Context, callerAccountID uint, in CardTransferInput) (*LedgerResult, error)
	MobileTransfer(ctx context.Context, callerAccountID uint, in MobileTransferInput) (*LedgerResult, error)
	AccountTransfer(ctx context.Context, callerAccountID uint, in AccountTransferInput) (*LedgerResult, error)
}

type ledgerService struct {
	uow   repository.UnitOfWork
	cache cache.Store
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(uow repository.UnitOfWork, cache cache.Store) LedgerService {
	return &ledgerService{uow: uow, cache: cache}
}

// Replenish credits one card by amount and logs the movement with the payment
// method as sender.
func (s *ledgerService) Replenish(ctx context.Context, in ReplenishInput) (*LedgerResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}
	method := in.Method
	if method == "" {
		method = model.SenderTopUp
	}

	var (
		result  LedgerResult
		touched uint
	)
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		card, err := r.Cards.FindByNumberForUpdate(ctx, in.CardNumber)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCardNotFound
			}
			return apperrors.ClassifyMySQL(err)
		}

		if err := r.Cards.AdjustBalance(ctx, card.ID, in.Amount); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		entry := &model.Transaction{
			AccountID: card.AccountID,
			Sender:    method,
			Receiver:  card.CardNumber,
			Amount:    in.Amount,
			Note:      "Card top-up",
		}
		if err := r.Transactions.Append(ctx, entry); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		result = LedgerResult{TransactionID: entry.ID, NewBalance: card.Balance.Add(in.Amount)}
		touched = card.AccountID
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Invalidate only once the transaction is committed; dropping the key
	// earlier lets a concurrent read re-cache the pre-commit balance.
	s.invalidateAccount(ctx, touched)
	return &result, nil
}

// CardTransfer debits the caller's card and credits the destination card.
func (s *ledgerService) CardTransfer(ctx context.Context, callerAccountID uint, in CardTransferInput) (*LedgerResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}
	if in.FromCard == in.ToCard {
		return nil, apperrors.ErrSelfTransfer
	}

	var (
		result           LedgerResult
		fromAcct, toAcct uint
	)
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		// Resolve ids first, then lock in ascending id order so two opposite
		// transfers between the same pair of cards cannot deadlock.
		fromRef, err := r.Cards.FindByNumber(ctx, in.FromCard)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCardNotFound
			}
			return apperrors.ClassifyMySQL(err)
		}
		if fromRef.AccountID != callerAccountID {
			return apperrors.ErrForbidden
		}
		toRef, err := r.Cards.FindByNumber(ctx, in.ToCard)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCardNotFound
			}
			return apperrors.ClassifyMySQL(err)
		}
		if fromRef.ID == toRef.ID {
			return apperrors.ErrSelfTransfer
		}

		from, to, err := lockCardPair(ctx, r, fromRef.ID, toRef.ID)
		if err != nil {
			return err
		}

		// Preconditions run against the locked, fresh balance.
		if from.Balance.LessThan(in.Amount) {
			return apperrors.ErrInsufficientFunds
		}

		if err := r.Cards.AdjustBalance(ctx, from.ID, in.Amount.Neg()); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		if err := r.Cards.AdjustBalance(ctx, to.ID, in.Amount); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		note := in.Note
		if note == "" {
			note = "Card transfer"
		}
		entry := &model.Transaction{
			AccountID: from.AccountID,
			Sender:    from.CardNumber,
			Receiver:  to.CardNumber,
			Amount:    in.Amount,
			Note:      note,
		}
		if err := r.Transactions.Append(ctx, entry); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		result = LedgerResult{TransactionID: entry.ID, NewBalance: from.Balance.Sub(in.Amount)}
		fromAcct, toAcct = from.AccountID, to.AccountID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAccount(ctx, fromAcct)
	s.invalidateAccount(ctx, toAcct)
	return &result, nil
}

// MobileTransfer debits the caller's card toward an external phone number.
// Money leaves the ledger entirely; the receiver side is a sentinel.
func (s *ledgerService) MobileTransfer(ctx context.Context, callerAccountID uint, in MobileTransferInput) (*LedgerResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}

	var (
		result  LedgerResult
		touched uint
	)
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		card, err := r.Cards.FindByNumberForUpdate(ctx, in.FromCard)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCardNotFound
			}
			return apperrors.ClassifyMySQL(err)
		}
		if card.AccountID != callerAccountID {
			return apperrors.ErrForbidden
		}
		if card.Balance.LessThan(in.Amount) {
			return apperrors.ErrInsufficientFunds
		}

		if err := r.Cards.AdjustBalance(ctx, card.ID, in.Amount.Neg()); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		entry := &model.Transaction{
			AccountID: card.AccountID,
			Sender:    card.CardNumber,
			Receiver:  model.PhonePrefix + in.Phone,
			Amount:    in.Amount,
			Note:      "Mobile top-up",
		}
		if err := r.Transactions.Append(ctx, entry); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		result = LedgerResult{TransactionID: entry.ID, NewBalance: card.Balance.Sub(in.Amount)}
		touched = card.AccountID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAccount(ctx, touched)
	return &result, nil
}

// AccountTransfer debits the caller's account and credits the account with
// the given public number.
func (s *ledgerService) AccountTransfer(ctx context.Context, callerAccountID uint, in AccountTransferInput) (*LedgerResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}

	var (
		result           LedgerResult
		fromAcct, toAcct uint
	)
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		destRef, err := r.Accounts.FindByNumber(ctx, in.ToAccountNumber)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrAccountNotFound
			}
			return apperrors.ClassifyMySQL(err)
		}
		if destRef.ID == callerAccountID {
			return apperrors.ErrSelfTransfer
		}

		from, to, err := lockAccountPair(ctx, r, callerAccountID, destRef.ID)
		if err != nil {
			return err
		}
		if from.Balance.LessThan(in.Amount) {
			return apperrors.ErrInsufficientFunds
		}

		if err := r.Accounts.AdjustBalance(ctx, from.ID, in.Amount.Neg()); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		if err := r.Accounts.AdjustBalance(ctx, to.ID, in.Amount); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		note := in.Note
		if note == "" {
			note = "Transfer"
		}
		entry := &model.Transaction{
			AccountID: from.ID,
			Sender:    from.AccountNumber,
			Receiver:  to.AccountNumber,
			Amount:    in.Amount,
			Note:      note,
		}
		if err := r.Transactions.Append(ctx, entry); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		result = LedgerResult{TransactionID: entry.ID, NewBalance: from.Balance.Sub(in.Amount)}
		fromAcct, toAcct = from.ID, to.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAccount(ctx, fromAcct)
	s.invalidateAccount(ctx, toAcct)
	return &result, nil
}

func (s *ledgerService) invalidateAccount(ctx context.Context, accountID uint) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, fmt.Sprintf("account:%d", accountID))
}

// lockCardPair locks two card rows in ascending id order and returns them
// mapped back to the (first, second) argument order.
func lockCardPair(ctx context.Context, r repository.Repos, firstID, secondID uint) (*model.Card, *model.Card, error) {
	lowID, highID := firstID, secondID
	if lowID > highID {
		lowID, highID = highID, lowID
	}
	low, err := r.Cards.FindByIDForUpdate(ctx, lowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrCardNotFound
		}
		return nil, nil, apperrors.ClassifyMySQL(err)
	}
	high, err := r.Cards.FindByIDForUpdate(ctx, highID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrCardNotFound
		}
		return nil, nil, apperrors.ClassifyMySQL(err)
	}
	if firstID == lowID {
		return low, high, nil
	}
	return high, low, nil
}

// lockAccountPair is lockCardPair for account rows.
func lockAccountPair(ctx context.Context, r repository.Repos, firstID, secondID uint) (*model.Account, *model.Account, error) {
	lowID, highID := firstID, secondID
	if lowID > highID {
		lowID, highID = highID, lowID
	}
	low, err := r.Accounts.FindByIDForUpdate(ctx, lowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrAccountNotFound
		}
		return nil, nil, apperrors.ClassifyMySQL(err)
	}
	high, err := r.Accounts.FindByIDForUpdate(ctx, highID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrAccountNotFound
		}
		return nil, nil, apperrors.ClassifyMySQL(err)
	}
	if firstID == lowID {
		return low, high, nil
	}
	return high, low, nil
}
