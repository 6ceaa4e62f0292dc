package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/denysekm/bank-system/internal/auth"
	apperrors "github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
)

const (
	bcryptCost = 10
	adultAge   = 18
	dateLayout = "2006-01-02"
)

var (
	// ErrInvalidCredentials is returned when login or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid login or password")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// RegisterInput creates a client and their root account.
type RegisterInput struct {
	Login          string
	Password       string
	FullName       string
	BirthDate      string // YYYY-MM-DD
	PassportNumber string
	Address        string
	Phone          string
	ClientType     model.ClientType
}

// ChangeCredentialsInput updates login and/or password for an account.
type ChangeCredentialsInput struct {
	CurrentPassword string
	NewLogin        string
	NewPassword     string
}

// AuthService handles registration, credential verification and token
// lifecycle.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.Account, error)
	Login(ctx context.Context, login, password string) (accessToken, refreshToken string, account *model.Account, err error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	ChangeCredentials(ctx context.Context, accountID uint, in ChangeCredentialsInput) error
	EnsureAdmin(ctx context.Context, login, password string) (created bool, err error)
}

type authService struct {
	repos      repository.Repos
	uow        repository.UnitOfWork
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
}

// NewAuthService creates a new authentication service.
func NewAuthService(repos repository.Repos, uow repository.UnitOfWork, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface) AuthService {
	return &authService{
		repos:      repos,
		uow:        uow,
		jwtService: jwtService,
		tokenStore: tokenStore,
	}
}

// Register creates the client and the root bank account in one transaction.
// The account number is generated with a bounded uniqueness retry.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	birthDate, err := time.Parse(dateLayout, in.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("parse birth date: %w", err)
	}

	clientType := in.ClientType
	if clientType != model.ClientTypeBusiness {
		clientType = model.ClientTypeIndividual
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var account *model.Account
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
			Address:        in.Address,
			Phone:          in.Phone,
			ClientType:     clientType,
			IsMinor:        isMinor(birthDate),
		}
		if err := r.Clients.Create(ctx, client); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		number, err := generateUnique(ctx, newAccountNumber, r.Accounts.ExistsByNumber)
		if err != nil {
			return err
		}

		account = &model.Account{
			ClientID:      client.ID,
			AccountNumber: number,
			Login:         in.Login,
			PasswordHash:  string(hashed),
			Role:          model.RoleUser,
		}
		if err := r.Accounts.Create(ctx, account); err != nil {
			if apperrors.IsDuplicateEntry(err) {
				return apperrors.ErrLoginTaken
			}
			return apperrors.ClassifyMySQL(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Login verifies credentials and returns an access/refresh token pair whose
// claims carry the caller identity used by every ledger and loan operation.
func (s *authService) Login(ctx context.Context, login, password string) (string, string, *model.Account, error) {
	account, err := s.repos.Accounts.FindByLogin(ctx, login)
	if err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	identity := auth.Identity{
		AccountID: account.ID,
		ClientID:  account.ClientID,
		Role:      string(account.Role),
	}

	accessToken, err := s.jwtService.GenerateAccessToken(identity)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(identity)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, identity, auth.RefreshTokenExpiry); err != nil {
		return "", "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	return accessToken, refreshToken, account, nil
}

// Refresh validates a refresh token and returns a new access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	stored, err := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	if stored != claims.Identity {
		return "", ErrInvalidRefreshToken
	}

	accessToken, err := s.jwtService.GenerateAccessToken(claims.Identity)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}

// ChangeCredentials updates login and/or password after verifying the current
// password. Used by child accounts to replace their temporary credentials,
// which clears the must-change flag.
func (s *authService) ChangeCredentials(ctx context.Context, accountID uint, in ChangeCredentialsInput) error {
	return s.uow.Do(ctx, func(r repository.Repos) error {
		account, err := r.Accounts.FindByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrAccountNotFound
			}
			return apperrors.ClassifyMySQL(err)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(in.CurrentPassword)); err != nil {
			return ErrInvalidCredentials
		}

		if in.NewLogin != "" && in.NewLogin != account.Login {
			taken, err := r.Accounts.ExistsByLogin(ctx, in.NewLogin)
			if err != nil {
				return apperrors.ClassifyMySQL(err)
			}
			if taken {
				return apperrors.ErrLoginTaken
			}
			account.Login = in.NewLogin
			now := time.Now()
			account.LastUsernameChange = &now
		}

		if in.NewPassword != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcryptCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			account.PasswordHash = string(hashed)
		}

		account.MustChangeCredentials = false
		if err := r.Accounts.Update(ctx, account); err != nil {
			if apperrors.IsDuplicateEntry(err) {
				return apperrors.ErrLoginTaken
			}
			return apperrors.ClassifyMySQL(err)
		}
		return nil
	})
}

// EnsureAdmin creates the administrator account if no account with the given
// login exists yet. It is idempotent so the seed command can run on every
// deploy.
func (s *authService) EnsureAdmin(ctx context.Context, login, password string) (bool, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	created := false
	err = s.uow.Do(ctx, func(r repository.Repos) error {
		taken, err := r.Accounts.ExistsByLogin(ctx, login)
		if err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		if taken {
			return nil
		}

		client := &model.Client{
			FullName:       "System Administrator",
			BirthDate:      time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
			PassportNumber: "ADMIN-" + login,
			ClientType:     model.ClientTypeIndividual,
		}
		if err := r.Clients.Create(ctx, client); err != nil {
			return apperrors.ClassifyMySQL(err)
		}

		number, err := generateUnique(ctx, newAccountNumber, r.Accounts.ExistsByNumber)
		if err != nil {
			return err
		}

		account := &model.Account{
			ClientID:      client.ID,
			AccountNumber: number,
			Login:         login,
			PasswordHash:  string(hashed),
			Role:          model.RoleAdmin,
		}
		if err := r.Accounts.Create(ctx, account); err != nil {
			return apperrors.ClassifyMySQL(err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func isMinor(birthDate time.Time) bool {
	return birthDate.AddDate(adultAge, 0, 0).After(time.Now())
}
