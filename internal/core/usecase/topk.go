package usecase

import (
	"container/heap"
	"errors"
	"strings"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

type frontierItem struct {
	cost  float64
	combo domain.Combination
	key   string
}

// frontier is a min-heap of combinations keyed by cost.
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].cost != f[j].cost {
		return f[i].cost < f[j].cost
	}
	return f[i].key < f[j].key
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(frontierItem)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = frontierItem{}
	*f = old[:n-1]
	return item
}

// TopHypotheses returns the k best sentence hypotheses of lattice, best first.
// Every candidate list must be sorted by descending score. k <= 0 means the
// lattice width. Only combinations adjacent to already emitted ones are
// ever scored, so at most k*len(lattice) combinations are evaluated.
func TopHypotheses(lattice domain.Lattice, k int) ([]domain.ScoredHypothesis, error) {
	if len(lattice) == 0 {
		return []domain.ScoredHypothesis{{Text: "", Score: 0}}, nil
	}

	width, ok := lattice.Width()
	if !ok {
		return nil, domain.WrapError(domain.ErrLatticeShape, "top hypotheses", errors.New("positions have different candidate counts"))
	}
	if width == 0 {
		return nil, domain.WrapError(domain.ErrLatticeShape, "top hypotheses", errors.New("empty candidate list"))
	}
	if k <= 0 {
		k = width
	}

	start := make(domain.Combination, len(lattice))
	startCost := 0.0
	for _, list := range lattice {
		startCost -= list[0].Score
	}
	startKey := start.Key()

	queue := &frontier{{cost: startCost, combo: start, key: startKey}}
	seen := map[string]struct{}{startKey: {}}

	out := make([]domain.ScoredHypothesis, 0, k)
	for len(out) < k && queue.Len() > 0 {
		best := heap.Pop(queue).(frontierItem)
		out = append(out, materialize(lattice, best))

		for _, next := range successors(lattice, best, width) {
			if _, dup := seen[next.key]; dup {
				continue
			}
			seen[next.key] = struct{}{}
			heap.Push(queue, next)
		}
	}
	return out, nil
}

// successors advances each position of parent by one candidate. The cost
// delta is never negative because every list is sorted.
func successors(lattice domain.Lattice, parent frontierItem, width int) []frontierItem {
	out := make([]frontierItem, 0, len(parent.combo))
	for i, idx := range parent.combo {
		if idx+1 >= width {
			continue
		}
		combo := make(domain.Combination, len(parent.combo))
		copy(combo, parent.combo)
		combo[i] = idx + 1

		delta := lattice[i][idx].Score - lattice[i][idx+1].Score
		out = append(out, frontierItem{
			cost:  parent.cost + delta,
			combo: combo,
			key:   combo.Key(),
		})
	}
	return out
}

func materialize(lattice domain.Lattice, item frontierItem) domain.ScoredHypothesis {
	parts := make([]string, len(item.combo))
	for pos, idx := range item.combo {
		parts[pos] = lattice[pos][idx].Text
	}
	return domain.ScoredHypothesis{
		Text:  strings.Join(parts, " "),
		Score: -item.cost,
	}
}
