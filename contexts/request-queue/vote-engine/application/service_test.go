package application

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"atelier/contexts/request-queue/vote-engine/adapters/memory"
	domainerrors "atelier/contexts/request-queue/vote-engine/domain/errors"
	"atelier/contexts/request-queue/vote-engine/ports"
	"atelier/internal/shared/identity"
	"atelier/internal/shared/policy"
)

type fixedClock struct {
	current time.Time
}

func (c fixedClock) Now() time.Time {
	return c.current
}

type seqIDs struct {
	mu    sync.Mutex
	count int
}

func (g *seqIDs) NewID(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	return "vote-" + strconv.Itoa(g.count), nil
}

func newVoteService() (Service, *memory.Store, *memory.Gateway) {
	store := memory.NewStore(nil)
	gateway := memory.NewGateway()
	service := Service{
		Votes:    store,
		Queue:    gateway,
		UoW:      store,
		Outbox:   store,
		Clock:    fixedClock{current: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)},
		IDGen:    &seqIDs{},
		Policies: policy.DefaultStatic(),
	}
	return service, store, gateway
}

func seedFreeSubmission(gateway *memory.Gateway, submissionID, ownerID string) {
	gateway.SetSubmission(ports.QueueSubmission{
		SubmissionID: submissionID,
		OwnerID:      ownerID,
		Status:       "pending",
		QueueType:    policy.LaneFree,
	})
}

func voter(userID string) identity.Actor {
	return identity.Actor{UserID: userID, Tier: 1}
}

func TestCastVote(t *testing.T) {
	service, _, gateway := newVoteService()
	seedFreeSubmission(gateway, "sub-1", "artist")

	vote, err := service.Cast(context.Background(), voter("fan"), "sub-1")
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if vote.Month != "2026-08" {
		t.Fatalf("expected month 2026-08, got %s", vote.Month)
	}

	submission, err := gateway.GetSubmission(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("gateway get failed: %v", err)
	}
	if submission.VoteCount != 1 {
		t.Fatalf("expected vote count 1, got %d", submission.VoteCount)
	}

	voted, err := service.HasVoted(context.Background(), voter("fan"), "sub-1")
	if err != nil {
		t.Fatalf("has-voted failed: %v", err)
	}
	if !voted {
		t.Fatal("expected active vote")
	}

	allowance, err := service.Allowance(context.Background(), voter("fan"))
	if err != nil {
		t.Fatalf("allowance failed: %v", err)
	}
	if allowance.Used != 1 || allowance.Remaining() != allowance.Quota-1 {
		t.Fatalf("expected 1 used, got used=%d quota=%d", allowance.Used, allowance.Quota)
	}
}

func TestCastRejectsSelfVote(t *testing.T) {
	service, _, gateway := newVoteService()
	seedFreeSubmission(gateway, "sub-1", "artist")

	_, err := service.Cast(context.Background(), voter("artist"), "sub-1")
	if err != domainerrors.ErrSelfVote {
		t.Fatalf("expected ErrSelfVote, got %v", err)
	}
}

func TestCastRejectsDuplicate(t *testing.T) {
	service, _, gateway := newVoteService()
	seedFreeSubmission(gateway, "sub-1", "artist")

	if _, err := service.Cast(context.Background(), voter("fan"), "sub-1"); err != nil {
		t.Fatalf("first cast failed: %v", err)
	}
	_, err := service.Cast(context.Background(), voter("fan"), "sub-1")
	if err != domainerrors.ErrAlreadyVoted {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	submission, _ := gateway.GetSubmission(context.Background(), "sub-1")
	if submission.VoteCount != 1 {
		t.Fatalf("expected vote count to stay 1, got %d", submission.VoteCount)
	}
}

func TestCastRejectsWhenAllowanceExhausted(t *testing.T) {
	service, _, gateway := newVoteService()
	quota := policy.DefaultStatic().VotesPerMonth()
	for i := 1; i <= quota+1; i++ {
		seedFreeSubmission(gateway, "sub-"+strconv.Itoa(i), "artist")
	}

	for i := 1; i <= quota; i++ {
		if _, err := service.Cast(context.Background(), voter("fan"), "sub-"+strconv.Itoa(i)); err != nil {
			t.Fatalf("cast %d failed: %v", i, err)
		}
	}

	over := "sub-" + strconv.Itoa(quota+1)
	_, err := service.Cast(context.Background(), voter("fan"), over)
	if err != domainerrors.ErrAllowanceExhausted {
		t.Fatalf("expected ErrAllowanceExhausted, got %v", err)
	}
	submission, _ := gateway.GetSubmission(context.Background(), over)
	if submission.VoteCount != 0 {
		t.Fatalf("expected untouched vote count, got %d", submission.VoteCount)
	}
}

func TestCastRejectsPaidOrSettledSubmissions(t *testing.T) {
	service, _, gateway := newVoteService()
	gateway.SetSubmission(ports.QueueSubmission{
		SubmissionID: "sub-paid",
		OwnerID:      "artist",
		Status:       "pending",
		QueueType:    policy.LanePaid,
	})
	gateway.SetSubmission(ports.QueueSubmission{
		SubmissionID: "sub-done",
		OwnerID:      "artist",
		Status:       "completed",
		QueueType:    policy.LaneFree,
	})

	if _, err := service.Cast(context.Background(), voter("fan"), "sub-paid"); err != domainerrors.ErrNotVotable {
		t.Fatalf("expected ErrNotVotable for paid lane, got %v", err)
	}
	if _, err := service.Cast(context.Background(), voter("fan"), "sub-done"); err != domainerrors.ErrNotVotable {
		t.Fatalf("expected ErrNotVotable for completed, got %v", err)
	}
}

func TestCastRejectsUnknownSubmission(t *testing.T) {
	service, _, _ := newVoteService()

	_, err := service.Cast(context.Background(), voter("fan"), "missing")
	if err != domainerrors.ErrSubmissionNotFound {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestRemoveRestoresAllowanceAndRank(t *testing.T) {
	service, _, gateway := newVoteService()
	seedFreeSubmission(gateway, "sub-1", "artist")

	if _, err := service.Cast(context.Background(), voter("fan"), "sub-1"); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := service.Remove(context.Background(), voter("fan"), "sub-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	submission, _ := gateway.GetSubmission(context.Background(), "sub-1")
	if submission.VoteCount != 0 {
		t.Fatalf("expected vote count 0 after remove, got %d", submission.VoteCount)
	}
	allowance, err := service.Allowance(context.Background(), voter("fan"))
	if err != nil {
		t.Fatalf("allowance failed: %v", err)
	}
	if allowance.Used != 0 {
		t.Fatalf("expected allowance restored, got used=%d", allowance.Used)
	}

	// The freed slot is immediately spendable again.
	if _, err := service.Cast(context.Background(), voter("fan"), "sub-1"); err != nil {
		t.Fatalf("re-cast failed: %v", err)
	}
}

func TestRemoveWithoutVote(t *testing.T) {
	service, _, gateway := newVoteService()
	seedFreeSubmission(gateway, "sub-1", "artist")

	_, err := service.Remove(context.Background(), voter("fan"), "sub-1")
	if err != domainerrors.ErrVoteNotFound {
		t.Fatalf("expected ErrVoteNotFound, got %v", err)
	}
}

func TestRemoveAfterSubmissionLeftQueue(t *testing.T) {
	service, store, gateway := newVoteService()
	seedFreeSubmission(gateway, "sub-1", "artist")

	if _, err := service.Cast(context.Background(), voter("fan"), "sub-1"); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	gateway.SetSubmission(ports.QueueSubmission{
		SubmissionID: "sub-1",
		OwnerID:      "artist",
		Status:       "completed",
		QueueType:    policy.LaneFree,
		VoteCount:    1,
	})

	if _, err := service.Remove(context.Background(), voter("fan"), "sub-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := store.Find(context.Background(), "fan", "sub-1"); err != domainerrors.ErrVoteNotFound {
		t.Fatalf("expected vote row gone, got %v", err)
	}
	submission, _ := gateway.GetSubmission(context.Background(), "sub-1")
	if submission.VoteCount != 1 {
		t.Fatalf("expected settled submission's count untouched, got %d", submission.VoteCount)
	}
}
