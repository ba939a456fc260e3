package translate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const DefaultBatchSize = 50

// translates one batch; results carry the item indices
type batchFunc func(ctx context.Context, items []TranslationItem) ([]TranslationResult, error)

// splitBatches groups items into batches of at most maxItems items and
// maxChars characters. A single item longer than maxChars gets its own batch.
// Zero limits are ignored.
func splitBatches(items []TranslationItem, maxItems, maxChars int) [][]TranslationItem {
	var batches [][]TranslationItem
	var current []TranslationItem
	chars := 0

	for _, item := range items {
		n := utf8.RuneCountInString(item.Text)
		full := maxItems > 0 && len(current) >= maxItems
		tooLong := maxChars > 0 && len(current) > 0 && chars+n > maxChars
		if full || tooLong {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
		current = append(current, item)
		chars += n
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// newLimiter returns nil when rps is not positive.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// checkBatch verifies results hold exactly one entry per item index and
// returns them in item order.
func checkBatch(items []TranslationItem, results []TranslationResult) ([]TranslationResult, error) {
	if len(results) != len(items) {
		return nil, fmt.Errorf("expected %d results, got %d", len(items), len(results))
	}

	want := make(map[int]bool, len(items))
	for _, item := range items {
		want[item.Index] = true
	}
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		if !want[r.Index] {
			return nil, fmt.Errorf("unexpected result index %d", r.Index)
		}
		if seen[r.Index] {
			return nil, fmt.Errorf("duplicate result index %d", r.Index)
		}
		seen[r.Index] = true
	}

	sorted := make([]TranslationResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})
	return sorted, nil
}

// runBatches translates batches with up to concurrency workers pulling from a
// shared queue. The first failure cancels the remaining batches. Results are
// returned sorted by index.
func runBatches(
	ctx context.Context,
	batches [][]TranslationItem,
	concurrency int,
	limiter *rate.Limiter,
	translate batchFunc,
) ([]TranslationResult, error) {
	if len(batches) == 0 {
		return []TranslationResult{}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	run := func(ctx context.Context, batch []TranslationItem) ([]TranslationResult, error) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		results, err := translate(ctx, batch)
		if err != nil {
			return nil, err
		}
		return checkBatch(batch, results)
	}

	if concurrency == 1 || len(batches) == 1 {
		var allResults []TranslationResult
		for i, batch := range batches {
			results, err := run(ctx, batch)
			if err != nil {
				return nil, batchError(i, len(batches), err)
			}
			allResults = append(allResults, results...)
		}
		return allResults, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batchResult struct {
		Index   int
		Results []TranslationResult
		Error   error
	}

	workChan := make(chan int)
	resultChan := make(chan batchResult, len(batches))

	var wg sync.WaitGroup
	for i := 0; i < concurrency && i < len(batches); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case batchIdx, ok := <-workChan:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						return
					}

					results, err := run(ctx, batches[batchIdx])
					if err != nil {
						cancel()
					}
					resultChan <- batchResult{
						Index:   batchIdx,
						Results: results,
						Error:   err,
					}
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i := range batches {
			select {
			case <-ctx.Done():
				return
			case workChan <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	ordered := make([][]TranslationResult, len(batches))
	done := 0
	var firstErr error
	for result := range resultChan {
		if result.Error != nil {
			// siblings cancelled by the failing batch report context.Canceled
			if firstErr == nil || (errors.Is(firstErr, context.Canceled) && !errors.Is(result.Error, context.Canceled)) {
				firstErr = batchError(result.Index, len(batches), result.Error)
			}
			cancel()
			continue
		}
		ordered[result.Index] = result.Results
		done++
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if done != len(batches) {
		// workers stopped on a cancelled parent context
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%d of %d batches did not complete", len(batches)-done, len(batches))
	}

	var allResults []TranslationResult
	for _, r := range ordered {
		allResults = append(allResults, r...)
	}
	return allResults, nil
}

// batchError keeps typed errors reachable through errors.As.
func batchError(index, total int, err error) error {
	if total == 1 {
		return err
	}
	return fmt.Errorf("batch %d failed: %w", index, err)
}
