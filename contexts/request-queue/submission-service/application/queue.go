package application

import (
	"context"
	"sort"
	"time"

	"atelier/contexts/request-queue/submission-service/domain/entities"
	"atelier/contexts/request-queue/submission-service/ports"
	"atelier/internal/shared/policy"
)

// The queue ordering engine: a full re-sort of the lane's pending submissions
// on every relevant mutation. O(N log N) per call, chosen over incremental
// position arithmetic for robustness at lane sizes in the hundreds.

// laneLess is the fixed lane comparator. Paid is strict FIFO on submission
// time; free ranks by votes descending with seniority breaking ties.
func laneLess(lane policy.Lane, a, b entities.Submission) bool {
	if lane == policy.LaneFree {
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}

// recomputeLane re-sorts the lane's pending set, assigns dense positions 1..N
// and re-derives each completion estimate. It must run inside the same unit
// of work as the mutation that triggered it.
func (s Service) recomputeLane(ctx context.Context, lane policy.Lane, now time.Time) error {
	pending, err := s.Repo.ListPending(ctx, lane)
	if err != nil {
		return err
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return laneLess(lane, pending[i], pending[j])
	})

	perPosition := time.Duration(s.Policies.AvgCompletionDays()) * 24 * time.Hour
	placements := make([]ports.QueuePlacement, 0, len(pending))
	for idx, submission := range pending {
		position := idx + 1
		placements = append(placements, ports.QueuePlacement{
			SubmissionID: submission.SubmissionID,
			Position:     position,
			EstimatedAt:  now.Add(time.Duration(position) * perPosition),
			UpdatedAt:    now,
		})
	}
	return s.Repo.SavePositions(ctx, placements)
}
