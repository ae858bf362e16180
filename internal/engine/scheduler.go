package engine

import (
	"sort"

	"github.com/smilemakc/reason/internal/domain"
)

// Proposal is one rule's proposed head update for a single time step.
type Proposal struct {
	Key       domain.StmtKey
	Interval  domain.Interval
	Mode      domain.Mode
	SetStatic bool
	RuleID    string
}

// MergedUpdate is the scheduler's per-key output: the single interval a
// step's proposals fold to, and whether any contributor asked for the
// key to freeze. It does not itself decide how this combines with the
// value already on FactsIndex — that is config.DefaultMode's job in the
// driver (C10 step 4); a proposal's own Mode only governs how it folds
// against other proposals for the *same* key within this step (C9).
type MergedUpdate struct {
	Key       domain.StmtKey
	Interval  domain.Interval
	SetStatic bool
	RuleIDs   []string // every rule that proposed for Key this step, sorted+deduped
}

// Merge groups proposals by statement key and folds each group
// deterministically per §4.8: sort by (narrower-first, rule id), then
// fold left applying each contributor's own mode. The scheduler never
// writes to FactsIndex; it only returns merged proposals.
func Merge(proposals []Proposal) []MergedUpdate {
	groups := make(map[domain.StmtKey][]Proposal)
	var keys []domain.StmtKey
	for _, p := range proposals {
		if _, ok := groups[p.Key]; !ok {
			keys = append(keys, p.Key)
		}
		groups[p.Key] = append(groups[p.Key], p)
	}
	domain.SortKeys(keys)

	out := make([]MergedUpdate, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Interval.Width() != group[j].Interval.Width() {
				return group[i].Interval.Width() < group[j].Interval.Width()
			}
			return group[i].RuleID < group[j].RuleID
		})

		acc := group[0].Interval
		accStatic := group[0].SetStatic
		ruleSet := map[string]bool{group[0].RuleID: true}
		for _, p := range group[1:] {
			switch p.Mode {
			case domain.ModeIntersection:
				acc = domain.Meet(acc, p.Interval)
			case domain.ModeOverride:
				// Strict width comparison only: the group is already sorted by
				// (width, rule id), so an equal-width later entry has a larger
				// rule id and the incumbent must win the tie.
				if p.Interval.Width() < acc.Width() {
					acc = p.Interval
				}
			}
			accStatic = accStatic || p.SetStatic
			ruleSet[p.RuleID] = true
		}
		ruleIDs := make([]string, 0, len(ruleSet))
		for id := range ruleSet {
			ruleIDs = append(ruleIDs, id)
		}
		sort.Strings(ruleIDs)

		out = append(out, MergedUpdate{Key: k, Interval: acc, SetStatic: accStatic, RuleIDs: ruleIDs})
	}
	return out
}
