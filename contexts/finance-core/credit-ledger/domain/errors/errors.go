package errors

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid ledger input")
	ErrUnknownType    = errors.New("unknown transaction type")
	ErrUserRequired   = errors.New("ledger user id is required")
	ErrDuplicateGrant = errors.New("monthly grant already issued for this month")
)
