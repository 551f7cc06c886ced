package domain

// EvidenceTier is the monotonic confidence ladder for how a pattern's effect
// was validated. A pattern's tier may only move forward.
type EvidenceTier string

const (
	TierUnmeasured EvidenceTier = "unmeasured"
	TierObserved   EvidenceTier = "observed"
	TierMeasured   EvidenceTier = "measured"
	TierVerified   EvidenceTier = "verified"
)

var tierRanks = map[EvidenceTier]int{
	TierUnmeasured: 0,
	TierObserved:   1,
	TierMeasured:   2,
	TierVerified:   3,
}

// TierRank returns the ordinal of a tier. Unknown tiers rank below
// unmeasured so they never win a comparison.
func TierRank(t EvidenceTier) int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return -1
}

func ValidTier(t string) bool {
	_, ok := tierRanks[EvidenceTier(t)]
	return ok
}

// MaxTier returns the higher of two tiers.
func MaxTier(a, b EvidenceTier) EvidenceTier {
	if TierRank(b) > TierRank(a) {
		return b
	}
	return a
}

// TiersAtOrAbove lists the tiers admitted by a floor, used to build
// eligibility filters.
func TiersAtOrAbove(floor EvidenceTier) []EvidenceTier {
	min := TierRank(floor)
	var out []EvidenceTier
	for _, t := range AllTiers() {
		if TierRank(t) >= min {
			out = append(out, t)
		}
	}
	return out
}

func AllTiers() []EvidenceTier {
	return []EvidenceTier{TierUnmeasured, TierObserved, TierMeasured, TierVerified}
}
