package application

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"atelier/contexts/request-queue/submission-service/adapters/memory"
	"atelier/contexts/request-queue/submission-service/domain/entities"
	domainerrors "atelier/contexts/request-queue/submission-service/domain/errors"
	"atelier/contexts/request-queue/submission-service/ports"
	"atelier/internal/shared/identity"
	"atelier/internal/shared/policy"
)

// stepClock hands out strictly increasing timestamps so queue ordering is
// deterministic under test.
type stepClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
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
	return "id-" + strconv.Itoa(g.count), nil
}

func newQueueService(balances map[string]int) (Service, *memory.Store, *memory.Ledger) {
	store := memory.NewStore(nil)
	ledger := memory.NewLedger(balances)
	service := Service{
		Repo:   store,
		Ledger: ledger,
		UoW:    store,
		Outbox: store,
		Clock: &stepClock{
			current: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		IDGen:    &seqIDs{},
		Policies: policy.DefaultStatic(),
	}
	return service, store, ledger
}

func paidActor(userID string, tier int) identity.Actor {
	return identity.Actor{UserID: userID, Tier: tier}
}

func freeActor(userID string) identity.Actor {
	return identity.Actor{UserID: userID, Tier: 1}
}

func adminActor() identity.Actor {
	return identity.Actor{UserID: "admin-1", Tier: 5, IsAdmin: true}
}

func position(t *testing.T, submission entities.Submission) int {
	t.Helper()
	if submission.QueuePosition == nil {
		t.Fatalf("submission %s has no queue position", submission.SubmissionID)
	}
	return *submission.QueuePosition
}

func TestCreatePaidChargesAndAssignsPosition(t *testing.T) {
	service, _, ledger := newQueueService(map[string]int{"alice": 2})

	created, err := service.Create(context.Background(), paidActor("alice", 2), CreateInput{
		CharacterName: "Mira",
		Series:        "Starfall",
		IsPublic:      true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.CreditCost != 1 {
		t.Fatalf("expected cost 1, got %d", created.CreditCost)
	}
	if created.QueueType != policy.LanePaid {
		t.Fatalf("expected paid lane, got %s", created.QueueType)
	}
	if position(t, created) != 1 {
		t.Fatalf("expected position 1, got %d", position(t, created))
	}
	if created.EstimatedAt == nil {
		t.Fatal("expected completion estimate")
	}
	wantETA := created.SubmittedAt.Add(7 * 24 * time.Hour)
	if !created.EstimatedAt.Equal(wantETA) {
		t.Fatalf("expected estimate %v, got %v", wantETA, created.EstimatedAt)
	}

	balance, err := ledger.Balance(context.Background(), "alice")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 1 {
		t.Fatalf("expected balance 1 after charge, got %d", balance)
	}
}

func TestCreatePaidModifiersRaiseCost(t *testing.T) {
	service, _, ledger := newQueueService(map[string]int{"carol": 4})

	created, err := service.Create(context.Background(), paidActor("carol", 3), CreateInput{
		CharacterName:     "Twins",
		Series:            "Gemini",
		IsLargeImageSet:   true,
		IsDoubleCharacter: true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.CreditCost != 3 {
		t.Fatalf("expected cost 3, got %d", created.CreditCost)
	}
	if balance, _ := ledger.Balance(context.Background(), "carol"); balance != 1 {
		t.Fatalf("expected balance 1, got %d", balance)
	}
}

func TestCreatePaidInsufficientCreditsLeavesNoTrace(t *testing.T) {
	service, store, ledger := newQueueService(map[string]int{"alice": 0})

	_, err := service.Create(context.Background(), paidActor("alice", 2), CreateInput{
		CharacterName: "Mira",
		Series:        "Starfall",
	})
	if err != domainerrors.ErrInsufficientCredits {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	pending, err := store.ListPending(context.Background(), policy.LanePaid)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty lane, got %d entries", len(pending))
	}
	if entries := ledger.Entries(); len(entries) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(entries))
	}
}

func TestCreateFreeTierSingleSlot(t *testing.T) {
	service, _, ledger := newQueueService(nil)

	first, err := service.Create(context.Background(), freeActor("fred"), CreateInput{
		CharacterName: "Kasumi",
		Series:        "Dawnlight",
		IsPublic:      true,
	})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if first.CreditCost != 0 {
		t.Fatalf("expected free submission to cost 0, got %d", first.CreditCost)
	}
	if first.QueueType != policy.LaneFree {
		t.Fatalf("expected free lane, got %s", first.QueueType)
	}
	if entries := ledger.Entries(); len(entries) != 0 {
		t.Fatalf("free lane must not touch the ledger, got %d entries", len(entries))
	}

	_, err = service.Create(context.Background(), freeActor("fred"), CreateInput{
		CharacterName: "Second",
		Series:        "Dawnlight",
	})
	if err != domainerrors.ErrTierLimitExceeded {
		t.Fatalf("expected ErrTierLimitExceeded, got %v", err)
	}
}

func TestPaidLaneIsFIFO(t *testing.T) {
	service, _, _ := newQueueService(map[string]int{"u1": 1, "u2": 1, "u3": 1})

	var ids []string
	for _, user := range []string{"u1", "u2", "u3"} {
		created, err := service.Create(context.Background(), paidActor(user, 2), CreateInput{
			CharacterName: "Char " + user,
			Series:        "Series",
		})
		if err != nil {
			t.Fatalf("create for %s failed: %v", user, err)
		}
		ids = append(ids, created.SubmissionID)
	}

	snapshot, err := service.QueueSnapshot(context.Background(), policy.LanePaid)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snapshot))
	}
	for idx, submission := range snapshot {
		if submission.SubmissionID != ids[idx] {
			t.Fatalf("expected FIFO order %v, got %s at slot %d", ids, submission.SubmissionID, idx)
		}
		if position(t, submission) != idx+1 {
			t.Fatalf("expected dense position %d, got %d", idx+1, position(t, submission))
		}
	}
}

func TestFreeLaneRanksByVotesThenAge(t *testing.T) {
	service, _, _ := newQueueService(nil)

	var ids []string
	for _, user := range []string{"f1", "f2", "f3"} {
		created, err := service.Create(context.Background(), freeActor(user), CreateInput{
			CharacterName: "Char " + user,
			Series:        "Series",
		})
		if err != nil {
			t.Fatalf("create for %s failed: %v", user, err)
		}
		ids = append(ids, created.SubmissionID)
	}

	// One vote each for the second and third entries; age breaks the tie.
	if _, err := service.ApplyVoteDelta(context.Background(), ids[1], 1); err != nil {
		t.Fatalf("vote delta failed: %v", err)
	}
	if _, err := service.ApplyVoteDelta(context.Background(), ids[2], 1); err != nil {
		t.Fatalf("vote delta failed: %v", err)
	}

	snapshot, err := service.QueueSnapshot(context.Background(), policy.LaneFree)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	want := []string{ids[1], ids[2], ids[0]}
	for idx, submission := range snapshot {
		if submission.SubmissionID != want[idx] {
			t.Fatalf("expected order %v, got %s at slot %d", want, submission.SubmissionID, idx)
		}
	}
}

func TestCompleteCompactsLane(t *testing.T) {
	service, _, _ := newQueueService(map[string]int{"u1": 1, "u2": 1, "u3": 1, "u4": 1, "u5": 1})

	var ids []string
	for _, user := range []string{"u1", "u2", "u3", "u4", "u5"} {
		created, err := service.Create(context.Background(), paidActor(user, 2), CreateInput{
			CharacterName: "Char " + user,
			Series:        "Series",
		})
		if err != nil {
			t.Fatalf("create for %s failed: %v", user, err)
		}
		ids = append(ids, created.SubmissionID)
	}

	completed, err := service.Complete(context.Background(), adminActor(), ids[2], CompleteInput{
		CompletionLink: "https://cdn.example/finished.png",
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != entities.StatusCompleted {
		t.Fatalf("expected completed status, got %s", completed.Status)
	}
	if completed.QueuePosition != nil {
		t.Fatal("completed submission must leave the queue")
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}

	snapshot, err := service.QueueSnapshot(context.Background(), policy.LanePaid)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	want := []string{ids[0], ids[1], ids[3], ids[4]}
	if len(snapshot) != len(want) {
		t.Fatalf("expected %d pending, got %d", len(want), len(snapshot))
	}
	for idx, submission := range snapshot {
		if submission.SubmissionID != want[idx] {
			t.Fatalf("expected %s at slot %d, got %s", want[idx], idx, submission.SubmissionID)
		}
		if position(t, submission) != idx+1 {
			t.Fatalf("expected dense position %d, got %d", idx+1, position(t, submission))
		}
	}
}

func TestCancelRefundsPaidCost(t *testing.T) {
	service, _, ledger := newQueueService(map[string]int{"bob": 2})

	created, err := service.Create(context.Background(), paidActor("bob", 2), CreateInput{
		CharacterName: "Rook",
		Series:        "Checkmate",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled, err := service.Cancel(context.Background(), paidActor("bob", 2), created.SubmissionID, "changed my mind")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != entities.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if cancelled.QueuePosition != nil {
		t.Fatal("cancelled submission must leave the queue")
	}
	if balance, _ := ledger.Balance(context.Background(), "bob"); balance != 2 {
		t.Fatalf("expected full refund back to 2, got %d", balance)
	}
}

func TestCancelRefundClampsToTierCap(t *testing.T) {
	service, _, ledger := newQueueService(map[string]int{"carol": 4})

	created, err := service.Create(context.Background(), paidActor("carol", 3), CreateInput{
		CharacterName:     "Twins",
		Series:            "Gemini",
		IsLargeImageSet:   true,
		IsDoubleCharacter: true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Balance climbs back to the tier 3 cap before the cancel lands.
	topUp := ports.LedgerEntry{UserID: "carol", Amount: 3, Type: ports.LedgerEntryAdjustment}
	if _, err := ledger.Append(context.Background(), topUp); err != nil {
		t.Fatalf("top up failed: %v", err)
	}

	if _, err := service.Cancel(context.Background(), paidActor("carol", 3), created.SubmissionID, ""); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if balance, _ := ledger.Balance(context.Background(), "carol"); balance != 4 {
		t.Fatalf("expected balance clamped at cap 4, got %d", balance)
	}
	for _, entry := range ledger.Entries() {
		if entry.Type == ports.LedgerEntryRefund {
			t.Fatalf("expected refund to be clamped away, got entry of %d", entry.Amount)
		}
	}
}

func TestUpdateSettlesModifierDelta(t *testing.T) {
	service, _, ledger := newQueueService(map[string]int{"dave": 4})
	actor := paidActor("dave", 3)

	created, err := service.Create(context.Background(), actor, CreateInput{
		CharacterName: "Lyra",
		Series:        "Aria",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	large := true
	updated, err := service.Update(context.Background(), actor, created.SubmissionID, UpdateInput{
		IsLargeImageSet: &large,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.CreditCost != 2 {
		t.Fatalf("expected cost 2, got %d", updated.CreditCost)
	}
	if balance, _ := ledger.Balance(context.Background(), "dave"); balance != 2 {
		t.Fatalf("expected balance 2 after delta charge, got %d", balance)
	}

	small := false
	reverted, err := service.Update(context.Background(), actor, created.SubmissionID, UpdateInput{
		IsLargeImageSet: &small,
	})
	if err != nil {
		t.Fatalf("revert failed: %v", err)
	}
	if reverted.CreditCost != 1 {
		t.Fatalf("expected cost 1, got %d", reverted.CreditCost)
	}
	if balance, _ := ledger.Balance(context.Background(), "dave"); balance != 3 {
		t.Fatalf("expected balance 3 after delta refund, got %d", balance)
	}
}

func TestUpdateRequiresOwnerOrAdmin(t *testing.T) {
	service, _, _ := newQueueService(map[string]int{"alice": 2})

	created, err := service.Create(context.Background(), paidActor("alice", 2), CreateInput{
		CharacterName: "Mira",
		Series:        "Starfall",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	name := "Hijacked"
	_, err = service.Update(context.Background(), paidActor("mallory", 2), created.SubmissionID, UpdateInput{
		CharacterName: &name,
	})
	if err != domainerrors.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := service.Update(context.Background(), adminActor(), created.SubmissionID, UpdateInput{
		CharacterName: &name,
	}); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
}

func TestStartClearsPositionAndRecomputes(t *testing.T) {
	service, _, _ := newQueueService(map[string]int{"u1": 1, "u2": 1})

	first, err := service.Create(context.Background(), paidActor("u1", 2), CreateInput{
		CharacterName: "First",
		Series:        "Series",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := service.Create(context.Background(), paidActor("u2", 2), CreateInput{
		CharacterName: "Second",
		Series:        "Series",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	started, err := service.Start(context.Background(), adminActor(), first.SubmissionID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if started.Status != entities.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", started.Status)
	}
	if started.QueuePosition != nil {
		t.Fatal("in-progress submission must leave the queue")
	}
	if started.StartedAt == nil {
		t.Fatal("expected start timestamp")
	}

	snapshot, err := service.QueueSnapshot(context.Background(), policy.LanePaid)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].SubmissionID != second.SubmissionID {
		t.Fatalf("expected only the second submission pending, got %d entries", len(snapshot))
	}
	if position(t, snapshot[0]) != 1 {
		t.Fatalf("expected promoted position 1, got %d", position(t, snapshot[0]))
	}
}

func TestStartRequiresAdmin(t *testing.T) {
	service, _, _ := newQueueService(map[string]int{"alice": 2})

	created, err := service.Create(context.Background(), paidActor("alice", 2), CreateInput{
		CharacterName: "Mira",
		Series:        "Starfall",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.Start(context.Background(), paidActor("alice", 2), created.SubmissionID); err != domainerrors.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestVoteDeltaRejectsPaidLane(t *testing.T) {
	service, _, _ := newQueueService(map[string]int{"alice": 2})

	created, err := service.Create(context.Background(), paidActor("alice", 2), CreateInput{
		CharacterName: "Mira",
		Series:        "Starfall",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.ApplyVoteDelta(context.Background(), created.SubmissionID, 1); err != domainerrors.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
