package entities

import (
	"strings"
	"time"
)

// Vote is one user's active vote on one submission. Month pins the allowance
// period the vote was spent from, so removal refunds the right month.
type Vote struct {
	VoteID       string
	UserID       string
	SubmissionID string
	Month        string
	CreatedAt    time.Time
}

func (v Vote) Validate() bool {
	return strings.TrimSpace(v.UserID) != "" &&
		strings.TrimSpace(v.SubmissionID) != ""
}

// Allowance is the derived monthly quota view for one user.
type Allowance struct {
	UserID string
	Month  string
	Quota  int
	Used   int
}

func (a Allowance) Remaining() int {
	remaining := a.Quota - a.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}
