package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/denysekm/bank-system/internal/cache"
	apperrors "github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
)

const accountCacheTTL = 5 * time.Minute

// Profile is the client's dashboard view: personal data plus the combined
// balance across the account and all of its cards.
type Profile struct {
	FullName       string           `json:"full_name"`
	BirthDate      string           `json:"birth_date"`
	PassportNumber string           `json:"passport_number"`
	Address        string           `json:"address,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	ClientType     model.ClientType `json:"client_type"`
	IsMinor        bool             `json:"is_minor"`
	AccountNumber  string           `json:"account_number"`
	AccountBalance decimal.Decimal  `json:"account_balance"`
	TotalBalance   decimal.Decimal  `json:"total_balance"`
	MustChange     bool             `json:"must_change_credentials"`
}

// InviteChildInput creates a child client plus their child account.
type InviteChildInput struct {
	FullName       string
	BirthDate      string // YYYY-MM-DD
	PassportNumber string
	Login          string
}

// InviteChildResult returns the generated temporary credentials.
type InviteChildResult struct {
	AccountID    uint   `json:"account_id"`
	Login        string `json:"login"`
	TempPassword string `json:"temp_password"`
}

// AccountService handles account reads and the child-account flow.
type AccountService interface {
	GetProfile(ctx context.Context, accountID, clientID uint) (*Profile, error)
	InviteChild(ctx context.Context, parentAccountID uint, in InviteChildInput) (*InviteChildResult, error)
	ListChildren(ctx context.Context, parentAccountID uint) ([]model.Account, error)
}

type accountService struct {
	repos repository.Repos
	uow   repository.UnitOfWork
	cache cache.Store
}

// NewAccountService creates a new account service.
func NewAccountService(repos repository.Repos, uow repository.UnitOfWork, cache cache.Store) AccountService {
	return &accountService{repos: repos, uow: uow, cache: cache}
}

func (s *accountService) cacheKey(accountID uint) string {
	return fmt.Sprintf("account:%d", accountID)
}

// GetProfile returns the client profile with combined balances, cached
// read-through. Ledger and loan operations invalidate the key on commit.
func (s *accountService) GetProfile(ctx context.Context, accountID, clientID uint) (*Profile, error) {
	if s.cache != nil {
		if data, _ := s.cache.Get(ctx, s.cacheKey(accountID)); data != nil {
			var cached Profile
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	client, err := s.repos.Clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	account, err := s.repos.Accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	cards, err := s.repos.Cards.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	total := account.Balance
	for _, card := range cards {
		total = total.Add(card.Balance)
	}

	profile := &Profile{
		FullName:       client.FullName,
		BirthDate:      client.BirthDate.Format(dateLayout),
		PassportNumber: client.PassportNumber,
		Address:        client.Address,
		Phone:          client.Phone,
		ClientType:     client.ClientType,
		IsMinor:        client.IsMinor,
		AccountNumber:  account.AccountNumber,
		AccountBalance: account.Balance,
		TotalBalance:   total,
		MustChange:     account.MustChangeCredentials,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(profile); err == nil {
			_ = s.cache.Set(ctx, s.cacheKey(accountID), payload, accountCacheTTL)
		}
	}
	return profile, nil
}

// InviteChild creates a minor client and a child account tied to the parent.
// The child gets a temporary password and must change credentials on first
// login.
func (s *accountService) InviteChild(ctx context.Context, parentAccountID uint, in InviteChildInput) (*InviteChildResult, error) {
	birthDate, err := time.Parse(dateLayout, in.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("parse birth date: %w", err)
	}

	tempPassword := randomDigits(10)
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var result InviteChildResult
	err = s.uow.Do(ctx, func(r repository.Repos) error {
		taken, err := r.Accounts.ExistsByLogin(ctx, in.Login)
		if err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		if taken {
			return apperrors.ErrLoginTaken
		}

		client := &model.Client{
			FullName:       in.FullName,
			BirthDate:      birthDate,
			PassportNumber: in.PassportNumber,
			ClientType:     model.ClientTypeIndividual,
			IsMinor:        isMinor(birthDate),
		}
		if err := r.Clients.Create(ctx, client); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		number, err := generateUnique(ctx, newAccountNumber, r.Accounts.ExistsByNumber)
		if err != nil {
			return err
		}

		parentID := parentAccountID
		account := &model.Account{
			ClientID:              client.ID,
			AccountNumber:         number,
			Login:                 in.Login,
			PasswordHash:          string(hashed),
			Role:                  model.RoleUser,
			ParentAccountID:       &parentID,
			MustChangeCredentials: true,
		}
		if err := r.Accounts.Create(ctx, account); err != nil {
			if apperrors.IsDuplicateEntry(err) {
				return apperrors.ErrLoginTaken
			}
			return apperrors.ClassifyMySQL(err)
		}

		result = InviteChildResult{
			AccountID:    account.ID,
			Login:        account.Login,
			TempPassword: tempPassword,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListChildren returns the parent's child accounts.
func (s *accountService) ListChildren(ctx context.Context, parentAccountID uint) ([]model.Account, error) {
	children, err := s.repos.Accounts.ListChildren(ctx, parentAccountID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}
