package artifactcache

import "context"

// evictionPlan lists entries to remove, oldest-accessed first, so an
// incoming write fits within the total-size budget.
type evictionPlan struct {
	entries    []evictionCandidate
	bytesFreed int64
}

type evictionCandidate struct {
	hash string
	size int64
}

func (p evictionPlan) empty() bool {
	return len(p.entries) == 0
}

// planEviction decides which entries to remove before admitting a write
// of incomingSize bytes. The walk is greedy oldest-first: each candidate
// is re-checked for physical existence so metadata left behind by TTL
// expiry or a concurrent delete is skipped rather than double-subtracted
// from the ledger. Overshoot past the deficit is accepted.
//
// An empty plan with currentTotal still over target is possible when all
// metadata is stale; eviction is best-effort and never blocks a write.
func planEviction(ctx context.Context, entries *Entries, currentTotal, budget, incomingSize int64) (evictionPlan, error) {
	target := budget - incomingSize
	if currentTotal <= target {
		return evictionPlan{}, nil
	}
	deficit := currentTotal - target

	candidates, err := entries.ListByAccessTime(ctx)
	if err != nil {
		return evictionPlan{}, err
	}

	var plan evictionPlan
	for _, meta := range candidates {
		if plan.bytesFreed >= deficit {
			break
		}
		exists, err := entries.Exists(ctx, meta.Hash)
		if err != nil {
			return evictionPlan{}, err
		}
		if !exists {
			continue
		}
		plan.entries = append(plan.entries, evictionCandidate{hash: meta.Hash, size: meta.Size})
		plan.bytesFreed += meta.Size
	}
	return plan, nil
}
