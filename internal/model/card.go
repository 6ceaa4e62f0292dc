package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardType distinguishes debit and credit cards. An account holds at most one
// card of each type.
type CardType string

const (
	CardTypeDebit  CardType = "debit"
	CardTypeCredit CardType = "credit"
)

// CardBrand is the card network.
type CardBrand string

const (
	CardBrandVisa       CardBrand = "VISA"
	CardBrandMastercard CardBrand = "MASTERCARD"
)

// Card is a payment instrument attached to one account. Cards carry their own
// balance: card-to-card transfers, top-ups, mobile sends and loan
// disbursements move card money, while account transfers move account money.
type Card struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	AccountID  uint            `json:"account_id" gorm:"not null;index"`
	CardNumber string          `json:"card_number" gorm:"uniqueIndex;size:16;not null"`
	CVV        string          `json:"cvv" gorm:"size:3;not null"`
	ExpiryDate time.Time       `json:"expiry_date" gorm:"type:date;not null"`
	Type       CardType        `json:"type" gorm:"type:varchar(10);not null"`
	Brand      CardBrand       `json:"brand" gorm:"type:varchar(20);not null"`
	Balance    decimal.Decimal `json:"balance" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// Relations
	Account Account `json:"-" gorm:"foreignKey:AccountID"`
}
