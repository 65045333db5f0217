package entities

import (
	"strings"
	"time"

	"atelier/internal/shared/policy"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Submission is one character request. QueuePosition is set iff the
// submission is pending; VoteCount only ever moves on the free lane.
type Submission struct {
	SubmissionID      string
	OwnerID           string
	OwnerTier         int
	CharacterName     string
	Series            string
	Description       string
	IsPublic          bool
	IsLargeImageSet   bool
	IsDoubleCharacter bool
	CreditCost        int
	Status            Status
	QueueType         policy.Lane
	QueuePosition     *int
	VoteCount         int
	SubmittedAt       time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	EstimatedAt       *time.Time
	CompletionLink    string
	CreatorNotes      string
	CancelReason      string
	UpdatedAt         time.Time
}

func (s Submission) ValidateCreate() bool {
	return strings.TrimSpace(s.OwnerID) != "" &&
		strings.TrimSpace(s.CharacterName) != "" &&
		strings.TrimSpace(s.Series) != ""
}

// ModifierCost is the credit price implied by the modifier flags: base 1,
// plus 1 per active modifier.
func (s Submission) ModifierCost() int {
	cost := 1
	if s.IsLargeImageSet {
		cost++
	}
	if s.IsDoubleCharacter {
		cost++
	}
	return cost
}

func (s Submission) CanEdit() bool {
	return s.Status == StatusPending
}

func (s Submission) CanCancel() bool {
	return s.Status == StatusPending || s.Status == StatusInProgress
}

func (s Submission) CanComplete() bool {
	return s.Status == StatusPending || s.Status == StatusInProgress
}
