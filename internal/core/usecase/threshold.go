package usecase

import (
	"math"
	"strings"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

// ClipByThreshold keeps hypotheses whose joint probability exceeds
// threshold^words. A zero threshold keeps everything.
func ClipByThreshold(hyps []domain.ScoredHypothesis, words int, threshold float64) []domain.ScoredHypothesis {
	out := make([]domain.ScoredHypothesis, 0, len(hyps))
	if threshold <= 0 {
		return append(out, hyps...)
	}

	minProb := math.Pow(threshold, float64(words))
	for _, h := range hyps {
		if math.Exp(h.Score) > minProb {
			out = append(out, h)
		}
	}
	return out
}

// RankSentence ranks the lattice of one sentence and filters the result.
// The number of hypotheses requested equals the lattice width.
func RankSentence(words []string, lattice domain.Lattice, threshold float64) (domain.SentenceResult, error) {
	normalized := make(domain.Lattice, len(lattice))
	for i, list := range lattice {
		normalized[i] = list.Sorted()
	}

	width, _ := normalized.Width()
	hyps, err := TopHypotheses(normalized, width)
	if err != nil {
		return domain.SentenceResult{}, err
	}

	return domain.SentenceResult{
		Sentence:   strings.Join(words, " "),
		Hypotheses: ClipByThreshold(hyps, len(words), threshold),
	}, nil
}
