package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysekm/bank-system/internal/model"
)

func TestRecentByAccountIsLimitedAndNewestFirst(t *testing.T) {
	store := newMemStore()
	svc := NewTransactionService(store.repos())
	repos := store.repos()

	for i := 1; i <= recentTransactionLimit+5; i++ {
		require.NoError(t, repos.Transactions.Append(context.Background(), &model.Transaction{
			AccountID: 1,
			Sender:    "a",
			Receiver:  "b",
			Amount:    d("1"),
			Note:      fmt.Sprintf("entry %d", i),
		}))
	}
	// Another account's entries stay out of the result.
	require.NoError(t, repos.Transactions.Append(context.Background(), &model.Transaction{
		AccountID: 2, Sender: "a", Receiver: "b", Amount: d("1"),
	}))

	entries, err := svc.RecentByAccount(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, recentTransactionLimit)
	assert.Equal(t, fmt.Sprintf("entry %d", recentTransactionLimit+5), entries[0].Note)
	for _, entry := range entries {
		assert.Equal(t, uint(1), entry.AccountID)
	}
}
