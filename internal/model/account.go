package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role controls access to the admin surface.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Account is a bank account owned by exactly one client. Its balance changes
// only inside a ledger or loan transaction, paired with one transaction row.
type Account struct {
	ID                    uint            `json:"id" gorm:"primaryKey"`
	ClientID              uint            `json:"client_id" gorm:"not null;index"`
	AccountNumber         string          `json:"account_number" gorm:"uniqueIndex;size:15;not null"`
	Login                 string          `json:"login" gorm:"uniqueIndex;size:64;not null"`
	PasswordHash          string          `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role                  Role            `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	Balance               decimal.Decimal `json:"balance" gorm:"type:decimal(15,2);not null;default:0"`
	ParentAccountID       *uint           `json:"parent_account_id,omitempty" gorm:"index"`
	MustChangeCredentials bool            `json:"must_change_credentials" gorm:"default:false"`
	LastUsernameChange    *time.Time      `json:"last_username_change,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`

	// Relations
	Client Client `json:"-" gorm:"foreignKey:ClientID"`
	Cards  []Card `json:"cards,omitempty" gorm:"foreignKey:AccountID"`
}

// IsChild reports whether the account was created through a child invitation.
func (a *Account) IsChild() bool {
	return a.ParentAccountID != nil
}
