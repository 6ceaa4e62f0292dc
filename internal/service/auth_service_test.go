package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/denysekm/bank-system/internal/auth"
	apperrors "github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/model"
)

// MockTokenStore is a mock implementation of auth.TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, id auth.Identity, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, id, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (auth.Identity, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func newAuthFixture(tokenStore auth.TokenStoreInterface) (*memStore, AuthService) {
	store := newMemStore()
	jwtService := auth.NewJWTService("test-secret")
	svc := NewAuthService(store.repos(), &fakeUnitOfWork{store: store}, jwtService, tokenStore)
	return store, svc
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Login:          "jsmith",
		Password:       "s3cret-pass",
		FullName:       "Jordan Smith",
		BirthDate:      "1990-03-14",
		PassportNumber: "AB123456",
		Address:        "1 Main St",
		Phone:          "+15551234567",
		ClientType:     model.ClientTypeIndividual,
	}
}

func TestRegisterCreatesClientAndAccount(t *testing.T) {
	store, svc := newAuthFixture(new(MockTokenStore))

	account, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	require.NotNil(t, account)

	assert.Equal(t, model.RoleUser, account.Role)
	assert.Len(t, account.AccountNumber, 10)
	assert.Equal(t, "2000", account.AccountNumber[:4])
	assert.NotEqual(t, "s3cret-pass", account.PasswordHash)

	client := store.clients[account.ClientID]
	require.NotNil(t, client)
	assert.Equal(t, "Jordan Smith", client.FullName)
	assert.False(t, client.IsMinor)
}

func TestRegisterMarksMinors(t *testing.T) {
	store, svc := newAuthFixture(new(MockTokenStore))

	in := validRegisterInput()
	in.BirthDate = time.Now().AddDate(-12, 0, 0).Format("2006-01-02")
	account, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, store.clients[account.ClientID].IsMinor)
}

func TestRegisterRejectsTakenLogin(t *testing.T) {
	store, svc := newAuthFixture(new(MockTokenStore))
	_, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	in := validRegisterInput()
	in.PassportNumber = "CD654321"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrLoginTaken)

	// The failed attempt must not leave an orphaned client behind.
	assert.Len(t, store.clients, 1)
}

func TestLoginIssuesTokens(t *testing.T) {
	tokenStore := new(MockTokenStore)
	tokenStore.On("StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, auth.RefreshTokenExpiry).Return(nil)

	_, svc := newAuthFixture(tokenStore)
	registered, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	accessToken, refreshToken, account, err := svc.Login(context.Background(), "jsmith", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.Equal(t, registered.ID, account.ID)

	// The access token carries the caller identity.
	claims, err := auth.NewJWTService("test-secret").ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.AccountID)
	assert.Equal(t, registered.ClientID, claims.ClientID)
	assert.Equal(t, string(model.RoleUser), claims.Role)

	tokenStore.AssertExpectations(t)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, svc := newAuthFixture(new(MockTokenStore))
	_, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), "jsmith", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = svc.Login(context.Background(), "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRoundTrip(t *testing.T) {
	tokenStore := new(MockTokenStore)
	_, svc := newAuthFixture(tokenStore)

	registered, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	var storedID string
	var storedIdentity auth.Identity
	tokenStore.On("StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			storedID = args.String(1)
			storedIdentity = args.Get(2).(auth.Identity)
		}).Return(nil)

	_, refreshToken, _, err := svc.Login(context.Background(), "jsmith", "s3cret-pass")
	require.NoError(t, err)

	tokenStore.On("GetRefreshToken", mock.Anything, storedID).Return(storedIdentity, nil)

	accessToken, err := svc.Refresh(context.Background(), refreshToken)
	require.NoError(t, err)

	claims, err := auth.NewJWTService("test-secret").ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.AccountID)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	_, svc := newAuthFixture(new(MockTokenStore))
	_, err := svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestChangeCredentialsClearsMustChangeFlag(t *testing.T) {
	store, svc := newAuthFixture(new(MockTokenStore))

	hashed, err := bcrypt.GenerateFromPassword([]byte("temp1234"), bcrypt.DefaultCost)
	require.NoError(t, err)
	account := seedAccount(store, 1, "2000111111", d("0"))
	store.accounts[account.ID].PasswordHash = string(hashed)
	store.accounts[account.ID].MustChangeCredentials = true

	err = svc.ChangeCredentials(context.Background(), account.ID, ChangeCredentialsInput{
		CurrentPassword: "temp1234",
		NewLogin:        "freshlogin",
		NewPassword:     "new-password",
	})
	require.NoError(t, err)

	updated := store.accounts[account.ID]
	assert.Equal(t, "freshlogin", updated.Login)
	assert.False(t, updated.MustChangeCredentials)
	assert.NotNil(t, updated.LastUsernameChange)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("new-password")))
}

func TestChangeCredentialsRejectsWrongPassword(t *testing.T) {
	store, svc := newAuthFixture(new(MockTokenStore))

	hashed, err := bcrypt.GenerateFromPassword([]byte("temp1234"), bcrypt.DefaultCost)
	require.NoError(t, err)
	account := seedAccount(store, 1, "2000111111", d("0"))
	store.accounts[account.ID].PasswordHash = string(hashed)

	err = svc.ChangeCredentials(context.Background(), account.ID, ChangeCredentialsInput{
		CurrentPassword: "wrong",
		NewPassword:     "new-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	store, svc := newAuthFixture(new(MockTokenStore))

	created, err := svc.EnsureAdmin(context.Background(), "admin", "admin-pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(context.Background(), "admin", "admin-pass")
	require.NoError(t, err)
	assert.False(t, created)

	var admins int
	for _, account := range store.accounts {
		if account.Role == model.RoleAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}
