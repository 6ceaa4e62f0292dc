package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationStatus is the terminal outcome of one underwriting attempt.
type ApplicationStatus string

const (
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// LoanApplication records one underwriting attempt, approved or not.
// Rejections are persisted too; the row is immutable once written.
type LoanApplication struct {
	ID               uint              `json:"id" gorm:"primaryKey"`
	AccountID        uint              `json:"account_id" gorm:"not null;index"`
	RequestedAmount  decimal.Decimal   `json:"requested_amount" gorm:"type:decimal(15,2);not null"`
	DurationMonths   int               `json:"duration_months" gorm:"not null"`
	MonthlyIncome    decimal.Decimal   `json:"monthly_income" gorm:"type:decimal(15,2);not null"`
	OtherObligations decimal.Decimal   `json:"other_obligations" gorm:"type:decimal(15,2);not null;default:0"`
	Status           ApplicationStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	RejectionReason  *string           `json:"rejection_reason,omitempty" gorm:"size:255"`
	CreatedAt        time.Time         `json:"created_at"`
}

// LoanStatus is the loan state machine: ACTIVE until fully repaid, then PAID.
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "ACTIVE"
	LoanStatusPaid   LoanStatus = "PAID"
)

// Loan is created only for an approved application. At most one ACTIVE loan
// exists per account at a time.
type Loan struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	ApplicationID      uint            `json:"application_id" gorm:"not null;index"`
	AccountID          uint            `json:"account_id" gorm:"not null;index"`
	Principal          decimal.Decimal `json:"principal" gorm:"type:decimal(15,2);not null"`
	Remaining          decimal.Decimal `json:"remaining" gorm:"type:decimal(15,2);not null"`
	InterestRate       decimal.Decimal `json:"interest_rate" gorm:"type:decimal(5,2);not null"`
	APR                decimal.Decimal `json:"apr" gorm:"type:decimal(5,2);not null"`
	DurationMonths     int             `json:"duration_months" gorm:"not null"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment" gorm:"type:decimal(15,2);not null"`
	Status             LoanStatus      `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// InstallmentStatus tracks whether a scheduled repayment has been made.
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
)

// Installment is one scheduled repayment of a loan. Installments are created
// at disbursement and settled strictly in due-date order.
type Installment struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	LoanID    uint              `json:"loan_id" gorm:"not null;index"`
	Sequence  int               `json:"sequence" gorm:"not null"`
	DueDate   time.Time         `json:"due_date" gorm:"type:date;not null"`
	Amount    decimal.Decimal   `json:"amount" gorm:"type:decimal(15,2);not null"`
	Status    InstallmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaidAt    *time.Time        `json:"paid_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
