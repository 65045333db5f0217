package bootstrap

import (
	"context"
	"errors"

	ledgerapp "atelier/contexts/finance-core/credit-ledger/application"
	ledgerentities "atelier/contexts/finance-core/credit-ledger/domain/entities"
	submissionapp "atelier/contexts/request-queue/submission-service/application"
	submissionerrors "atelier/contexts/request-queue/submission-service/domain/errors"
	submissionports "atelier/contexts/request-queue/submission-service/ports"
	voteerrors "atelier/contexts/request-queue/vote-engine/domain/errors"
	voteports "atelier/contexts/request-queue/vote-engine/ports"
)

// creditLedgerAdapter lets the submission queue spend and refund credits
// through the finance-core ledger. Both sides run on the same context-carried
// transaction, so a rolled-back queue mutation takes its ledger rows with it.
type creditLedgerAdapter struct {
	ledger ledgerapp.Service
}

func (a creditLedgerAdapter) Balance(ctx context.Context, userID string) (int, error) {
	return a.ledger.Balance(ctx, userID)
}

func (a creditLedgerAdapter) Append(ctx context.Context, entry submissionports.LedgerEntry) (int, error) {
	result, err := a.ledger.Append(ctx, ledgerapp.AppendInput{
		UserID:       entry.UserID,
		Amount:       entry.Amount,
		Type:         ledgerentities.TransactionType(entry.Type),
		Description:  entry.Description,
		SubmissionID: entry.SubmissionID,
	})
	if err != nil {
		return 0, err
	}
	return result.Balance, nil
}

// queueGatewayAdapter exposes the submission queue to the vote engine. The
// delta path rides the caller's unit of work, matching the gateway contract.
type queueGatewayAdapter struct {
	submissions submissionapp.Service
}

func (a queueGatewayAdapter) GetSubmission(ctx context.Context, submissionID string) (voteports.QueueSubmission, error) {
	submission, err := a.submissions.Repo.Get(ctx, submissionID)
	if err != nil {
		return voteports.QueueSubmission{}, mapQueueError(err)
	}
	return voteports.QueueSubmission{
		SubmissionID: submission.SubmissionID,
		OwnerID:      submission.OwnerID,
		Status:       string(submission.Status),
		QueueType:    submission.QueueType,
		VoteCount:    submission.VoteCount,
	}, nil
}

func (a queueGatewayAdapter) ApplyVoteDelta(ctx context.Context, submissionID string, delta int) (voteports.QueueSubmission, error) {
	submission, err := a.submissions.ApplyVoteDelta(ctx, submissionID, delta)
	if err != nil {
		return voteports.QueueSubmission{}, mapQueueError(err)
	}
	return voteports.QueueSubmission{
		SubmissionID: submission.SubmissionID,
		OwnerID:      submission.OwnerID,
		Status:       string(submission.Status),
		QueueType:    submission.QueueType,
		VoteCount:    submission.VoteCount,
	}, nil
}

func mapQueueError(err error) error {
	switch {
	case errors.Is(err, submissionerrors.ErrSubmissionNotFound):
		return voteerrors.ErrSubmissionNotFound
	case errors.Is(err, submissionerrors.ErrInvalidTransition):
		return voteerrors.ErrNotVotable
	default:
		return err
	}
}
