package usecase

import (
	"fmt"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

// GroupCandidates splits flattened oracle output into one candidate list per
// word, nHyps candidates each, every list sorted best first.
func GroupCandidates(texts []string, scores []float64, nHyps int) ([]domain.CandidateList, error) {
	if nHyps <= 0 {
		return nil, domain.WrapError(domain.ErrLatticeShape, "group candidates", fmt.Errorf("n_hyps must be positive, got %d", nHyps))
	}
	if len(texts) != len(scores) {
		return nil, domain.WrapError(
			domain.ErrLatticeShape,
			"group candidates",
			fmt.Errorf("texts/scores mismatch: %d/%d", len(texts), len(scores)),
		)
	}
	if len(texts)%nHyps != 0 {
		return nil, domain.WrapError(
			domain.ErrLatticeShape,
			"group candidates",
			fmt.Errorf("%d candidates is not a multiple of n_hyps=%d", len(texts), nHyps),
		)
	}

	out := make([]domain.CandidateList, 0, len(texts)/nHyps)
	for start := 0; start < len(texts); start += nHyps {
		list := make(domain.CandidateList, nHyps)
		for j := 0; j < nHyps; j++ {
			list[j] = domain.Candidate{Text: texts[start+j], Score: scores[start+j]}
		}
		out = append(out, list.Sorted())
	}
	return out, nil
}

// BuildLattices slices per-word candidate lists into one lattice per line
// following seg.
func BuildLattices(perWord []domain.CandidateList, seg domain.Segmentation) ([]domain.Lattice, error) {
	if total := seg.Total(); total != len(perWord) {
		return nil, domain.WrapError(
			domain.ErrLatticeShape,
			"build lattices",
			fmt.Errorf("segmentation expects %d words, got %d candidate lists", total, len(perWord)),
		)
	}

	out := make([]domain.Lattice, len(seg))
	offset := 0
	for i, n := range seg {
		out[i] = domain.Lattice(perWord[offset : offset+n])
		offset += n
	}
	return out, nil
}
