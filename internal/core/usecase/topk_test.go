package usecase

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

const scoreEpsilon = 1e-9

func catDogLattice() domain.Lattice {
	return domain.Lattice{
		{{Text: "cat", Score: -0.1}, {Text: "cot", Score: -0.5}},
		{{Text: "dog", Score: -0.2}, {Text: "dig", Score: -0.9}},
	}
}

func randomLattice(rng *rand.Rand, words, width int) domain.Lattice {
	lattice := make(domain.Lattice, words)
	for i := range lattice {
		list := make(domain.CandidateList, width)
		for j := range list {
			list[j] = domain.Candidate{
				Text:  string(rune('a'+i)) + string(rune('a'+j)),
				Score: -rng.Float64() * 3,
			}
		}
		lattice[i] = list.Sorted()
	}
	return lattice
}

// bruteForceScores enumerates every combination and returns scores best first.
func bruteForceScores(lattice domain.Lattice) []float64 {
	width, _ := lattice.Width()
	scores := []float64{0}
	for _, list := range lattice {
		next := make([]float64, 0, len(scores)*width)
		for _, s := range scores {
			for _, c := range list {
				next = append(next, s+c.Score)
			}
		}
		scores = next
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	return scores
}

func TestTopHypothesesCatDog(t *testing.T) {
	hyps, err := TopHypotheses(catDogLattice(), 2)
	if err != nil {
		t.Fatalf("TopHypotheses() error = %v", err)
	}
	want := []domain.ScoredHypothesis{
		{Text: "cat dog", Score: -0.3},
		{Text: "cot dog", Score: -0.7},
	}
	if len(hyps) != len(want) {
		t.Fatalf("expected %d hypotheses, got %+v", len(want), hyps)
	}
	for i := range want {
		if hyps[i].Text != want[i].Text || math.Abs(hyps[i].Score-want[i].Score) > scoreEpsilon {
			t.Fatalf("hypothesis %d = %+v, want %+v", i, hyps[i], want[i])
		}
	}
}

func TestTopHypothesesEmptyLattice(t *testing.T) {
	hyps, err := TopHypotheses(domain.Lattice{}, 5)
	if err != nil {
		t.Fatalf("TopHypotheses() error = %v", err)
	}
	if len(hyps) != 1 || hyps[0].Text != "" || hyps[0].Score != 0 {
		t.Fatalf("expected single empty hypothesis, got %+v", hyps)
	}
}

func TestTopHypothesesOrderingCardinalityOptimality(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		words := 1 + rng.Intn(4)
		width := 1 + rng.Intn(4)
		k := 1 + rng.Intn(20)
		lattice := randomLattice(rng, words, width)

		hyps, err := TopHypotheses(lattice, k)
		if err != nil {
			t.Fatalf("TopHypotheses() error = %v", err)
		}

		total := int(math.Pow(float64(width), float64(words)))
		want := k
		if total < want {
			want = total
		}
		if len(hyps) != want {
			t.Fatalf("iter %d: expected %d hypotheses, got %d", iter, want, len(hyps))
		}

		seen := make(map[string]struct{}, len(hyps))
		for i, h := range hyps {
			if _, dup := seen[h.Text]; dup {
				t.Fatalf("iter %d: duplicate hypothesis %q", iter, h.Text)
			}
			seen[h.Text] = struct{}{}
			if i > 0 && h.Score > hyps[i-1].Score+scoreEpsilon {
				t.Fatalf("iter %d: scores not non-increasing at %d: %+v", iter, i, hyps)
			}
		}

		best := ""
		bestScore := 0.0
		for i, list := range lattice {
			if i > 0 {
				best += " "
			}
			best += list[0].Text
			bestScore += list[0].Score
		}
		if hyps[0].Text != best || math.Abs(hyps[0].Score-bestScore) > scoreEpsilon {
			t.Fatalf("iter %d: first hypothesis %+v, want %q %.6f", iter, hyps[0], best, bestScore)
		}

		exact := bruteForceScores(lattice)
		for i, h := range hyps {
			if math.Abs(h.Score-exact[i]) > 1e-6 {
				t.Fatalf("iter %d: hypothesis %d score %.6f, exhaustive %.6f", iter, i, h.Score, exact[i])
			}
		}
	}
}

func TestTopHypothesesDefaultsKToWidth(t *testing.T) {
	hyps, err := TopHypotheses(catDogLattice(), 0)
	if err != nil {
		t.Fatalf("TopHypotheses() error = %v", err)
	}
	if len(hyps) != 2 {
		t.Fatalf("expected width-many hypotheses, got %d", len(hyps))
	}
}

func TestTopHypothesesDeterministicTies(t *testing.T) {
	lattice := domain.Lattice{
		{{Text: "a", Score: -1}, {Text: "b", Score: -1}},
		{{Text: "c", Score: -1}, {Text: "d", Score: -1}},
	}
	first, err := TopHypotheses(lattice, 4)
	if err != nil {
		t.Fatalf("TopHypotheses() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := TopHypotheses(lattice, 4)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("tie-breaking is not deterministic: %+v vs %+v", first, again)
			}
		}
	}
}

func TestTopHypothesesRejectsRaggedLattice(t *testing.T) {
	lattice := domain.Lattice{
		{{Text: "a", Score: -1}, {Text: "b", Score: -2}},
		{{Text: "c", Score: -1}},
	}
	_, err := TopHypotheses(lattice, 2)
	if !domain.IsKind(err, domain.ErrLatticeShape) {
		t.Fatalf("expected lattice shape error, got %v", err)
	}

	_, err = TopHypotheses(domain.Lattice{{}}, 1)
	if !domain.IsKind(err, domain.ErrLatticeShape) {
		t.Fatalf("expected lattice shape error for empty list, got %v", err)
	}
}
