package entities

import "time"

type TransactionType string

const (
	TransactionTypeMonthlyGrant   TransactionType = "monthly_grant"
	TransactionTypeSubmissionCost TransactionType = "submission_cost"
	TransactionTypeRefund         TransactionType = "refund"
	TransactionTypeAdjustment     TransactionType = "adjustment"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeMonthlyGrant,
		TransactionTypeSubmissionCost,
		TransactionTypeRefund,
		TransactionTypeAdjustment:
		return true
	default:
		return false
	}
}

// Transaction is one signed credit movement. Rows are never mutated or
// deleted; the cached balance is always the running sum of a user's rows.
type Transaction struct {
	TransactionID string
	UserID        string
	Amount        int
	Type          TransactionType
	Description   string
	SubmissionID  string
	CreatedAt     time.Time
}
