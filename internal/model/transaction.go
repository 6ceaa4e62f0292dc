package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel sender/receiver identifiers used in transaction rows when one side
// of a movement lies outside the ledger.
const (
	SenderTopUp      = "TOPUP"
	SenderLoanSystem = "BANK_LOAN_SYSTEM"
	SenderCardBonus  = "BANK_CARD_BONUS"
	PhonePrefix      = "PHONE:"
)

// Transaction is one append-only ledger entry. It is written inside the same
// database transaction as the balance mutation it documents and is never
// updated or deleted afterwards.
type Transaction struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	AccountID uint            `json:"account_id" gorm:"not null;index"`
	Sender    string          `json:"sender" gorm:"size:64;not null"`
	Receiver  string          `json:"receiver" gorm:"size:64;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null"`
	Note      string          `json:"note,omitempty" gorm:"size:255"`
	CreatedAt time.Time       `json:"created_at"`
}
