package errors

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid vote input")
	ErrVoteNotFound       = errors.New("vote not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyVoted       = errors.New("already voted for this submission")
	ErrSelfVote           = errors.New("cannot vote for your own submission")
	ErrNotVotable         = errors.New("submission is not open for voting")
	ErrAllowanceExhausted = errors.New("monthly vote allowance exhausted")
)
