package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassifyMySQL(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil passes through", nil, nil},
		{"no such table", &mysql.MySQLError{Number: 1146}, ErrSchemaMissing},
		{"deadlock", &mysql.MySQLError{Number: 1213}, ErrLockContention},
		{"lock wait timeout", &mysql.MySQLError{Number: 1205}, ErrLockContention},
		{"wrapped deadlock", fmt.Errorf("tx: %w", &mysql.MySQLError{Number: 1213}), ErrLockContention},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyMySQL(tc.in))
		})
	}

	plain := errors.New("something else")
	assert.Equal(t, plain, ClassifyMySQL(plain))
	other := &mysql.MySQLError{Number: 1064}
	assert.Equal(t, other, ClassifyMySQL(other))
}

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, IsDuplicateEntry(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsDuplicateEntry(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, IsDuplicateEntry(&mysql.MySQLError{Number: 1146}))
	assert.False(t, IsDuplicateEntry(errors.New("nope")))
}

func TestMapErrorToHTTP(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
		{ErrCardNotFound, http.StatusNotFound, "CARD_NOT_FOUND"},
		{ErrNoActiveLoan, http.StatusNotFound, "NO_ACTIVE_LOAN"},
		{ErrInsufficientFunds, http.StatusBadRequest, "INSUFFICIENT_FUNDS"},
		{ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{ErrMinorForbidden, http.StatusForbidden, "MINOR_FORBIDDEN"},
		{ErrSelfTransfer, http.StatusConflict, "SELF_TRANSFER"},
		{ErrDuplicateCard, http.StatusConflict, "DUPLICATE_CARD"},
		{ErrActiveLoanExists, http.StatusConflict, "ACTIVE_LOAN_EXISTS"},
		{ErrMissingCreditCard, http.StatusConflict, "MISSING_CREDIT_CARD"},
		{ErrSchemaMissing, http.StatusServiceUnavailable, "FEATURE_NOT_INSTALLED"},
		{ErrLockContention, http.StatusServiceUnavailable, "TRY_AGAIN"},
		{errors.New("anything else"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.wantCode, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tc.err)
			assert.Equal(t, tc.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tc.wantCode, httpErr.Code)
		})
	}

	// Wrapped domain errors map the same way.
	httpErr := MapErrorToHTTP(fmt.Errorf("repay: %w", ErrInsufficientFunds))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
}
