package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a registered user. The identity provider owns credentials;
// only the stable subject identifier and the home geolocation live here.
type User struct {
	Sub           string    `json:"user_sub" gorm:"column:user_sub;primaryKey" validate:"required"`
	HomeLatitude  float64   `json:"home_latitude" validate:"min=-90,max=90"`
	HomeLongitude float64   `json:"home_longitude" validate:"min=-180,max=180"`
	CreatedAt     time.Time `json:"created_at"`
}

// Account represents a bank account owned by a user.
type Account struct {
	ID            uuid.UUID       `json:"account_id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserSub       string          `json:"user_sub" gorm:"column:user_sub;index" validate:"required"`
	AccountName   string          `json:"account_name" validate:"required,max=100"`
	AccountNumber string          `json:"account_number" gorm:"uniqueIndex" validate:"required"`
	BankName      string          `json:"bank_name" validate:"max=100"`
	Balance       decimal.Decimal `json:"balance" gorm:"type:numeric"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Transaction is one ledger entry. A transfer always inserts two rows with the
// same date, time and geolocation: a negative debit on the source account and
// a positive credit on the destination. Rows are immutable once inserted.
type Transaction struct {
	ID             uuid.UUID       `json:"transaction_id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	AccountID      uuid.UUID       `json:"account_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Date           string          `json:"date" gorm:"index"` // YYYY-MM-DD
	Time           string          `json:"time"`              // HH:MM:SS
	Description    string          `json:"description" validate:"max=255"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric"` // negative = debit, positive = credit
	Type           string          `json:"type" validate:"required,oneof=debit credit"`
	Latitude       float64         `json:"latitude" validate:"min=-90,max=90"`
	Longitude      float64         `json:"longitude" validate:"min=-180,max=180"`
	CounterAccount string          `json:"counter_account" gorm:"index"`
	CreatedAt      time.Time       `json:"created_at"`
}

// MedianState holds the persisted two-heap running median for one source
// account. The halves are JSON float arrays in heap order; LowerHalf is the
// max-ordered half and may hold one element more than UpperHalf.
type MedianState struct {
	AccountNumber string    `json:"account_number" gorm:"primaryKey"`
	LowerHalf     string    `json:"lower_half" gorm:"type:text"`
	UpperHalf     string    `json:"upper_half" gorm:"type:text"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FraudListEntry is a deny-listed account number. Read-only to the transfer path.
type FraudListEntry struct {
	AccountNumber string    `json:"account_number" gorm:"primaryKey"`
	CreatedAt     time.Time `json:"created_at"`
}
