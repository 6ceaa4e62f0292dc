package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denysekm/bank-system/internal/cache"
	apperrors "github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
)

const cardValidityYears = 5

// debitCardBonus is credited to the first debit card of an account at issue
// time, inside the same transaction as the card row itself.
var debitCardBonus = decimal.NewFromInt(1000)

// IssueCardInput requests a new card for the caller's account.
type IssueCardInput struct {
	Type  model.CardType
	Brand model.CardBrand
}

// CardService handles card issuance and listing.
type CardService interface {
	IssueCard(ctx context.Context, accountID uint, in IssueCardInput) (*model.Card, error)
	ListCards(ctx context.Context, accountID uint) ([]model.Card, error)
}

type cardService struct {
	repos repository.Repos
	uow   repository.UnitOfWork
	cache cache.Store
}

// NewCardService creates a new card service.
func NewCardService(repos repository.Repos, uow repository.UnitOfWork, cache cache.Store) CardService {
	return &cardService{repos: repos, uow: uow, cache: cache}
}

// IssueCard creates a card with a unique 16-digit number, a 3-digit CVV and a
// five-year expiry. An account holds at most one card per type; the first
// debit card starts with the fixed bonus balance and a matching ledger entry.
func (s *cardService) IssueCard(ctx context.Context, accountID uint, in IssueCardInput) (*model.Card, error) {
	var card *model.Card
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		count, err := r.Cards.CountByAccountAndType(ctx, accountID, in.Type)
		if err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateCard
		}

		number, err := generateUnique(ctx, newCardNumber, r.Cards.ExistsByNumber)
		if err != nil {
			return err
		}

		now := time.Now()
		card = &model.Card{
			AccountID:  accountID,
			CardNumber: number,
			CVV:        newCVV(),
			ExpiryDate: now.AddDate(cardValidityYears, 0, 0),
			Type:       in.Type,
			Brand:      in.Brand,
			Balance:    decimal.Zero,
		}
		if in.Type == model.CardTypeDebit {
			card.Balance = debitCardBonus
		}
		if err := r.Cards.Create(ctx, card); err != nil {
			if apperrors.IsDuplicateEntry(err) {
				return apperrors.ErrNumberSpaceExhausted
			}
			return apperrors.ClassifyMySQL(err)
		}

		if in.Type == model.CardTypeDebit {
			entry := &model.Transaction{
				AccountID: accountID,
				Sender:    model.SenderCardBonus,
				Receiver:  card.CardNumber,
				Amount:    debitCardBonus,
				Note:      "Debit card welcome bonus",
			}
			if err := r.Transactions.Append(ctx, entry); err != nil {
				return apperrors.ClassifyMySQL(err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, fmt.Sprintf("account:%d", accountID))
	}
	return card, nil
}

// ListCards returns every card on the account.
func (s *cardService) ListCards(ctx context.Context, accountID uint) ([]model.Card, error) {
	cards, err := s.repos.Cards.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}
