package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/denysekm/bank-system/internal/errors"
	"github.com/denysekm/bank-system/internal/model"
)

func newAdminFixture() (*memStore, AdminService) {
	store := newMemStore()
	return store, NewAdminService(store.repos(), &fakeUnitOfWork{store: store})
}

func TestListUsersSkipsAdmins(t *testing.T) {
	store, svc := newAdminFixture()
	client := seedClient(store, false)
	user := seedAccount(store, client.ID, "2000111111", d("0"))
	admin := seedAccount(store, client.ID, "2000999999", d("0"))
	store.accounts[admin.ID].Role = model.RoleAdmin

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].AccountID)
	assert.Equal(t, client.FullName, users[0].FullName)
}

func TestDeleteClientCascadesThroughChildTree(t *testing.T) {
	store, svc := newAdminFixture()

	// parent -> child -> grandchild, each with their own client, cards,
	// transactions and a loan on the parent.
	parentClient := seedClient(store, false)
	parent := seedAccount(store, parentClient.ID, "2000111111", d("100"))

	childClient := seedClient(store, true)
	child := seedAccount(store, childClient.ID, "2000222222", d("50"))
	store.accounts[child.ID].ParentAccountID = &parent.ID

	grandClient := seedClient(store, true)
	grand := seedAccount(store, grandClient.ID, "2000333333", d("10"))
	store.accounts[grand.ID].ParentAccountID = &child.ID

	seedCard(store, parent.ID, "4111111111111111", model.CardTypeDebit, d("0"))
	seedCard(store, child.ID, "5111111111111111", model.CardTypeDebit, d("0"))

	repos := store.repos()
	require.NoError(t, repos.Transactions.Append(context.Background(), &model.Transaction{
		AccountID: parent.ID, Sender: "x", Receiver: "y", Amount: d("1"),
	}))
	require.NoError(t, repos.Transactions.Append(context.Background(), &model.Transaction{
		AccountID: grand.ID, Sender: "x", Receiver: "y", Amount: d("1"),
	}))
	require.NoError(t, repos.Loans.CreateLoan(context.Background(), &model.Loan{
		AccountID: parent.ID, Principal: d("100"), Remaining: d("105"),
		DurationMonths: 1, Status: model.LoanStatusActive,
	}))

	// An unrelated account must survive untouched.
	otherClient := seedClient(store, false)
	other := seedAccount(store, otherClient.ID, "2000444444", d("0"))

	result, err := svc.DeleteClient(context.Background(), parentClient.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Accounts)
	assert.Equal(t, 3, result.Clients)

	assert.Empty(t, store.cards)
	assert.Empty(t, store.transactions)
	assert.Empty(t, store.loans)
	assert.Nil(t, store.accounts[parent.ID])
	assert.Nil(t, store.accounts[child.ID])
	assert.Nil(t, store.accounts[grand.ID])
	assert.Nil(t, store.clients[childClient.ID])

	assert.NotNil(t, store.accounts[other.ID])
	assert.NotNil(t, store.clients[otherClient.ID])
}

func TestDeleteClientWithoutAccounts(t *testing.T) {
	store, svc := newAdminFixture()
	client := seedClient(store, false)

	result, err := svc.DeleteClient(context.Background(), client.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Accounts)
	assert.Equal(t, 1, result.Clients)
	assert.Nil(t, store.clients[client.ID])
}

func TestDeleteClientUnknown(t *testing.T) {
	_, svc := newAdminFixture()
	_, err := svc.DeleteClient(context.Background(), 12345)
	assert.ErrorIs(t, err, apperrors.ErrClientNotFound)
}
