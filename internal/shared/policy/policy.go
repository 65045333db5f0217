package policy

// Package policy exposes the injected configuration surface of the core:
// queue pacing, monthly vote quota, and the tier economics table. Modules
// depend on the Provider interface only, so tests substitute deterministic
// values instead of reading ambient process state.

// Lane identifies one of the two independently ordered queues.
type Lane string

const (
	LanePaid Lane = "paid"
	LaneFree Lane = "free"
)

// TierPolicy is the credit economics of one subscription tier.
type TierPolicy struct {
	Tier         int
	Lane         Lane
	CreditCap    int
	MonthlyGrant int
}

type Provider interface {
	AvgCompletionDays() int
	VotesPerMonth() int
	ForTier(tier int) TierPolicy
}

// Static is the pinned tier table. Tier 1 rides the free lane and never
// touches credits; tiers 2..5 ride the paid lane with graduated caps and
// grants. Unknown tiers collapse to tier 1 economics.
type Static struct {
	CompletionDays int
	MonthlyVotes   int
	Tiers          map[int]TierPolicy
}

func DefaultStatic() Static {
	return Static{
		CompletionDays: 7,
		MonthlyVotes:   3,
		Tiers: map[int]TierPolicy{
			1: {Tier: 1, Lane: LaneFree, CreditCap: 0, MonthlyGrant: 0},
			2: {Tier: 2, Lane: LanePaid, CreditCap: 2, MonthlyGrant: 1},
			3: {Tier: 3, Lane: LanePaid, CreditCap: 4, MonthlyGrant: 2},
			4: {Tier: 4, Lane: LanePaid, CreditCap: 8, MonthlyGrant: 4},
			5: {Tier: 5, Lane: LanePaid, CreditCap: 16, MonthlyGrant: 8},
		},
	}
}

func (s Static) AvgCompletionDays() int {
	if s.CompletionDays <= 0 {
		return 7
	}
	return s.CompletionDays
}

func (s Static) VotesPerMonth() int {
	if s.MonthlyVotes <= 0 {
		return 3
	}
	return s.MonthlyVotes
}

func (s Static) ForTier(tier int) TierPolicy {
	if policy, ok := s.Tiers[tier]; ok {
		return policy
	}
	return TierPolicy{Tier: tier, Lane: LaneFree}
}
