package classify

import "sort"

// Actionable is the urgency ladder for one issue, ordered by increasing
// urgency. An issue's overall level is the maximum reached across all
// per-release evaluations.
type Actionable int

const (
	ActionNone Actionable = iota
	ActionWaiting
	ActionRequested
	ActionPushable
	ActionMissing
	ActionCritical
)

var actionableNames = map[Actionable]string{
	ActionNone:      "NONE",
	ActionWaiting:   "WAITING",
	ActionRequested: "REQUESTED",
	ActionPushable:  "PUSHABLE",
	ActionMissing:   "MISSING",
	ActionCritical:  "CRITICAL",
}

func (a Actionable) String() string {
	if n, ok := actionableNames[a]; ok {
		return n
	}
	return "UNKNOWN"
}

// Event is one urgency-raising occurrence during a classification pass.
type Event struct {
	Level  Actionable
	Weight int
}

// Actions is the reduced ordering key for one issue: the maximum urgency
// level paired with the importance accumulated at that level.
type Actions struct {
	Level      Actionable
	Importance int
}

// Reduce folds a pass's events into an Actions value. Two passes on purpose:
// first find the maximum level, then sum the weights of events at exactly
// that level. A running fold would wrongly include a later lower-tier
// event's weight when the maximum was already reached.
func Reduce(events []Event) Actions {
	max := ActionNone
	for _, e := range events {
		if e.Level > max {
			max = e.Level
		}
	}
	sum := 0
	for _, e := range events {
		if e.Level == max {
			sum += e.Weight
		}
	}
	return Actions{Level: max, Importance: sum}
}

// SortResults orders results for report output: urgency level descending,
// importance descending, recency of push descending, issue key ascending as
// the stable tiebreak. This restores determinism after unordered parallel
// classification.
func SortResults(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		ai, aj := results[i].Actions(), results[j].Actions()
		if ai.Level != aj.Level {
			return ai.Level > aj.Level
		}
		if ai.Importance != aj.Importance {
			return ai.Importance > aj.Importance
		}
		if results[i].DaysAgo != results[j].DaysAgo {
			return results[i].DaysAgo > results[j].DaysAgo
		}
		return results[i].Key < results[j].Key
	})
}
