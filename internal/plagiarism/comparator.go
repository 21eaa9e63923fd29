package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"sort"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/corpus"
	"github.com/RishiKendai/cheatcheck/internal/similarity"
	"github.com/rs/zerolog/log"
)

const defaultChunksPerWorker = 4

// Score is the similarity computed for one pair.
type Score struct {
	Pair  Pair    `json:"pair"`
	Value float64 `json:"score"`
}

// CompareOptions configures a comparison run.
type CompareOptions struct {
	// Workers is the pool size; <= 0 means one per CPU.
	Workers int
	// ChunksPerWorker controls how finely pairs are split. More chunks
	// balance skewed document lengths better at a small queueing cost.
	ChunksPerWorker int
	FailFast        bool
	// Timeout bounds the whole run; 0 disables it.
	Timeout time.Duration
	Metric  similarity.Metric
	// OnScore is invoked from the collecting goroutine, never concurrently.
	OnScore func(Score)
}

// Comparison holds everything a run produced. Scores and Failures are in
// enumeration order.
type Comparison struct {
	Total    int
	Workers  int
	Scores   []Score
	Failures []*ComparisonFailedError
	Elapsed  time.Duration
}

// Computed counts pairs that finished, successfully or not.
func (c *Comparison) Computed() int {
	return len(c.Scores) + len(c.Failures)
}

type chunkResult struct {
	scores   []Score
	failures []*ComparisonFailedError
}

// ComparisonJob scores one contiguous chunk of pairs
type ComparisonJob struct {
	Pairs      []Pair
	Documents  []corpus.Document
	Metric     similarity.Metric
	FailFast   bool
	ResultChan chan<- chunkResult
}

// Execute scores the chunk and always delivers whatever it finished
func (j *ComparisonJob) Execute(ctx context.Context) error {
	result := chunkResult{scores: make([]Score, 0, len(j.Pairs))}
	var err error

	for _, pair := range j.Pairs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}

		value, scoreErr := scorePair(j.Metric, j.Documents[pair.I], j.Documents[pair.J])
		if scoreErr != nil {
			failure := &ComparisonFailedError{Pair: pair, Cause: scoreErr}
			result.failures = append(result.failures, failure)
			if j.FailFast {
				err = failure
				break
			}
			continue
		}
		result.scores = append(result.scores, Score{Pair: pair, Value: value})
	}

	// ResultChan has room for every chunk
	j.ResultChan <- result
	return err
}

func scorePair(metric similarity.Metric, a, b corpus.Document) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	value, err = metric.Score(a.Content, b.Content)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || value < 0 || value > 1 {
		return 0, fmt.Errorf("score %v outside [0,1]", value)
	}
	return value, nil
}

// Compare scores every unordered pair of docs exactly once on a fixed-size
// worker pool.
//
// Per-pair failures are collected in Comparison.Failures. With FailFast the
// first failure cancels outstanding work and is returned as the error. When
// the deadline passes first, a *TimeoutError is returned as soon as it
// expires. In both cases the Comparison holds the scores of every chunk
// delivered before the abort; chunks still running are dropped.
func Compare(ctx context.Context, docs []corpus.Document, opts CompareOptions) (*Comparison, error) {
	metric := opts.Metric
	if metric == nil {
		m, err := similarity.New(similarity.Levenshtein)
		if err != nil {
			return nil, err
		}
		metric = m
	}

	pairs := Enumerate(docs)
	cmp := &Comparison{Total: len(pairs)}
	if len(pairs) == 0 {
		log.Debug().Int("documents", len(docs)).Msg("Fewer than two documents, nothing to compare")
		return cmp, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(pairs))
	cmp.Workers = workers

	chunksPerWorker := opts.ChunksPerWorker
	if chunksPerWorker <= 0 {
		chunksPerWorker = defaultChunksPerWorker
	}
	chunks := Chunk(pairs, workers*chunksPerWorker)

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(ctx, opts.Timeout)
		defer cancelTimeout()
	}
	runCtx, abort := context.WithCancel(runCtx)
	defer abort()

	log.Debug().
		Int("documents", len(docs)).
		Int("pairs", len(pairs)).
		Int("chunks", len(chunks)).
		Int("workers", workers).
		Str("metric", metric.Name()).
		Msg("Starting comparison")

	start := time.Now()
	resultChan := make(chan chunkResult, len(chunks))
	pool := NewWorkerPool(runCtx, workers)

	// Submit blocks while the queue is full, so feed from a separate goroutine.
	go func() {
		defer close(resultChan)
		defer pool.Close()
		for _, chunk := range chunks {
			job := &ComparisonJob{
				Pairs:      chunk,
				Documents:  docs,
				Metric:     metric,
				FailFast:   opts.FailFast,
				ResultChan: resultChan,
			}
			if err := pool.Submit(job); err != nil {
				log.Debug().Err(err).Msg("Stopped submitting chunks")
				return
			}
		}
	}()

	var firstFailure *ComparisonFailedError
	merge := func(result chunkResult) {
		for _, score := range result.scores {
			cmp.Scores = append(cmp.Scores, score)
			if opts.OnScore != nil {
				opts.OnScore(score)
			}
		}
		for _, failure := range result.failures {
			log.Warn().
				Err(failure.Cause).
				Str("a", failure.Pair.A).
				Str("b", failure.Pair.B).
				Msg("Comparison failed")
			cmp.Failures = append(cmp.Failures, failure)
			if opts.FailFast && firstFailure == nil {
				firstFailure = failure
				abort()
			}
		}
	}

	// Collect results as chunks complete. Once the run context ends, keep
	// what has already arrived and stop; a metric call cannot be interrupted,
	// so in-flight chunks are abandoned. resultChan holds every chunk, so
	// abandoned jobs never block on send.
collect:
	for {
		select {
		case result, ok := <-resultChan:
			if !ok {
				break collect
			}
			merge(result)
		case <-runCtx.Done():
			for {
				select {
				case result, ok := <-resultChan:
					if !ok {
						break collect
					}
					merge(result)
				default:
					break collect
				}
			}
		}
	}
	cmp.Elapsed = time.Since(start)

	sort.Slice(cmp.Scores, func(i, j int) bool {
		return cmp.Scores[i].Pair.Index < cmp.Scores[j].Pair.Index
	})
	sort.Slice(cmp.Failures, func(i, j int) bool {
		return cmp.Failures[i].Pair.Index < cmp.Failures[j].Pair.Index
	})

	log.Debug().
		Int("scored", len(cmp.Scores)).
		Int("failed", len(cmp.Failures)).
		Int("total", cmp.Total).
		Dur("elapsed", cmp.Elapsed).
		Msg("Comparison finished")

	if firstFailure != nil {
		return cmp, firstFailure
	}
	if cmp.Computed() < cmp.Total {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return cmp, &TimeoutError{Computed: cmp.Computed(), Total: cmp.Total, Elapsed: cmp.Elapsed}
		}
		return cmp, fmt.Errorf("comparison cancelled: %w", context.Cause(runCtx))
	}
	return cmp, nil
}
