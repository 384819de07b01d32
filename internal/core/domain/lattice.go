package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Candidate is one scored transliteration of a single word.
// Score is a log-probability: higher is more likely.
type Candidate struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// CandidateList holds the candidates of one word position, best first.
type CandidateList []Candidate

// Sorted returns a copy ordered by descending score. Equal scores keep
// their original relative order.
func (l CandidateList) Sorted() CandidateList {
	out := make(CandidateList, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// IsSorted reports whether scores are non-increasing.
func (l CandidateList) IsSorted() bool {
	for i := 1; i < len(l); i++ {
		if l[i].Score > l[i-1].Score {
			return false
		}
	}
	return true
}

// Lattice is the per-sentence collection of candidate lists, one per word.
type Lattice []CandidateList

// Width returns the shared candidate count of every position, or 0 for an
// empty lattice. ok is false when positions disagree.
func (l Lattice) Width() (width int, ok bool) {
	if len(l) == 0 {
		return 0, true
	}
	width = len(l[0])
	for _, list := range l[1:] {
		if len(list) != width {
			return width, false
		}
	}
	return width, true
}

// Combination picks one candidate index per lattice position.
type Combination []int

// Key returns a value identity usable as a map key.
func (c Combination) Key() string {
	var b strings.Builder
	for i, idx := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

// Segmentation records how many words each input line contributed to the
// flattened word stream.
type Segmentation []int

// Total is the number of words across all lines.
func (s Segmentation) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

type ScoredHypothesis struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SentenceResult pairs an input line with its ranked, threshold-filtered
// hypotheses.
type SentenceResult struct {
	Sentence   string             `json:"sentence"`
	Hypotheses []ScoredHypothesis `json:"hypotheses"`
}
