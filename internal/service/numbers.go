package service

import (
	"context"
	"math/rand"
	"strings"

	apperrors "github.com/denysekm/bank-system/internal/errors"
)

const (
	accountNumberPrefix = "2000"
	// maxNumberAttempts caps the generate-and-check loop. Collisions are rare
	// at these number-space sizes, so hitting the cap signals a real problem
	// and surfaces as an infrastructure error instead of spinning forever.
	maxNumberAttempts = 10
)

func randomDigits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}

func newAccountNumber() string {
	return accountNumberPrefix + randomDigits(6)
}

func newCardNumber() string {
	return randomDigits(16)
}

func newCVV() string {
	return randomDigits(3)
}

// generateUnique draws candidates from gen until exists reports a free one.
// The database unique constraint remains the final arbiter; this loop only
// keeps the common path collision-free.
func generateUnique(ctx context.Context, gen func() string, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		candidate := gen()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.ErrNumberSpaceExhausted
}
