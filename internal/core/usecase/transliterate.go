package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
	"github.com/kirillkom/neural-transliterator/internal/core/ports"
)

type TransliterateOptions struct {
	NHyps         int
	Threshold     float64
	SearchWorkers int
}

type TransliterateUseCase struct {
	oracle   ports.Oracle
	batcher  ports.Batcher
	cache    ports.CandidateCache
	observer ports.PipelineObserver
	opts     TransliterateOptions
}

// NewTransliterateUseCase wires the pipeline. cache and observer may be nil.
func NewTransliterateUseCase(
	oracle ports.Oracle,
	batcher ports.Batcher,
	cache ports.CandidateCache,
	observer ports.PipelineObserver,
	opts TransliterateOptions,
) *TransliterateUseCase {
	if opts.NHyps <= 0 {
		opts.NHyps = 1
	}
	// NaN compares false against every score, so it would silently drop
	// all hypotheses.
	if opts.Threshold < 0 || math.IsNaN(opts.Threshold) {
		opts.Threshold = 0
	}
	if opts.SearchWorkers <= 0 {
		opts.SearchWorkers = runtime.GOMAXPROCS(0)
	}
	return &TransliterateUseCase{
		oracle:   oracle,
		batcher:  batcher,
		cache:    cache,
		observer: observer,
		opts:     opts,
	}
}

// Transliterate returns one ranked, filtered result per input line, in
// input order.
func (uc *TransliterateUseCase) Transliterate(ctx context.Context, lines []string) ([]domain.SentenceResult, error) {
	words, seg, err := SegmentLines(lines)
	if err != nil {
		return nil, err
	}

	perWord, err := uc.candidatesFor(ctx, words)
	if err != nil {
		return nil, err
	}

	lattices, err := BuildLattices(perWord, seg)
	if err != nil {
		return nil, err
	}

	return uc.rankAll(ctx, words, seg, lattices)
}

// Best returns the top hypothesis of a single line. found is false when
// every hypothesis was filtered out by the threshold.
func (uc *TransliterateUseCase) Best(ctx context.Context, text string) (string, bool, error) {
	results, err := uc.Transliterate(ctx, []string{text})
	if err != nil {
		return "", false, err
	}
	if len(results) == 0 || len(results[0].Hypotheses) == 0 {
		return "", false, nil
	}
	return results[0].Hypotheses[0].Text, true, nil
}

func (uc *TransliterateUseCase) rankAll(
	ctx context.Context,
	words []string,
	seg domain.Segmentation,
	lattices []domain.Lattice,
) ([]domain.SentenceResult, error) {
	results := make([]domain.SentenceResult, len(lattices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.SearchWorkers)

	offset := 0
	for i, lattice := range lattices {
		sentence := words[offset : offset+seg[i]]
		offset += seg[i]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := RankSentence(sentence, lattice, uc.opts.Threshold)
			if err != nil {
				return fmt.Errorf("rank sentence %d: %w", i, err)
			}
			results[i] = res
			if uc.observer != nil {
				width, _ := lattice.Width()
				produced := width
				if len(lattice) == 0 {
					produced = 1
				}
				uc.observer.ObserveSentence(len(sentence), produced, len(res.Hypotheses))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// candidatesFor resolves one candidate list per word, using the cache first
// and the oracle for the rest. Each distinct word is sent to the oracle once.
func (uc *TransliterateUseCase) candidatesFor(ctx context.Context, words []string) ([]domain.CandidateList, error) {
	known := uc.lookupCache(ctx, words)

	misses := make([]string, 0, len(words))
	queued := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, ok := known[w]; ok {
			continue
		}
		if _, ok := queued[w]; ok {
			continue
		}
		queued[w] = struct{}{}
		misses = append(misses, w)
	}

	fresh := make(map[string]domain.CandidateList, len(misses))
	for batchNum, batch := range uc.batcher.Split(misses) {
		lists, err := uc.translateBatch(ctx, batchNum, batch)
		if err != nil {
			return nil, err
		}
		for i, w := range batch {
			fresh[w] = lists[i]
			known[w] = lists[i]
		}
	}
	uc.storeCache(ctx, fresh)

	out := make([]domain.CandidateList, len(words))
	for i, w := range words {
		out[i] = known[w]
	}
	return out, nil
}

func (uc *TransliterateUseCase) translateBatch(ctx context.Context, batchNum int, batch []string) ([]domain.CandidateList, error) {
	start := time.Now()
	texts, scores, err := uc.oracle.Translate(ctx, toOracleFormatAll(batch))
	elapsed := time.Since(start)
	if err != nil {
		uc.observeBatch(len(batch), elapsed, err)
		return nil, fmt.Errorf("oracle batch %d: %w", batchNum, err)
	}

	for i := range texts {
		texts[i] = toHumanFormat(texts[i])
	}
	lists, err := GroupCandidates(texts, scores, uc.opts.NHyps)
	if err == nil && len(lists) != len(batch) {
		err = domain.WrapError(
			domain.ErrLatticeShape,
			"group candidates",
			fmt.Errorf("oracle returned %d candidate lists for %d words", len(lists), len(batch)),
		)
	}
	uc.observeBatch(len(batch), elapsed, err)
	if err != nil {
		return nil, fmt.Errorf("oracle batch %d: %w", batchNum, err)
	}

	slog.Info("oracle_batch",
		"batch", batchNum,
		"words", len(batch),
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)
	return lists, nil
}

func (uc *TransliterateUseCase) lookupCache(ctx context.Context, words []string) map[string]domain.CandidateList {
	known := make(map[string]domain.CandidateList, len(words))
	if uc.cache == nil || len(words) == 0 {
		return known
	}

	hits, err := uc.cache.GetMany(ctx, uc.opts.NHyps, words)
	if err != nil {
		slog.Warn("candidate_cache_lookup_failed", "words", len(words), "error", err)
		return known
	}
	for w, list := range hits {
		if len(list) != uc.opts.NHyps {
			continue
		}
		known[w] = list.Sorted()
	}
	if uc.observer != nil && len(known) > 0 {
		uc.observer.ObserveCacheHits(len(known))
	}
	return known
}

func (uc *TransliterateUseCase) storeCache(ctx context.Context, fresh map[string]domain.CandidateList) {
	if uc.cache == nil || len(fresh) == 0 {
		return
	}
	if err := uc.cache.PutMany(ctx, uc.opts.NHyps, fresh); err != nil {
		slog.Warn("candidate_cache_store_failed", "words", len(fresh), "error", err)
	}
}

func (uc *TransliterateUseCase) observeBatch(words int, elapsed time.Duration, err error) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveOracleBatch(words, elapsed.Seconds(), err)
}
