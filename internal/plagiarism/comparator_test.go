package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/corpus"
	"github.com/RishiKendai/cheatcheck/internal/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMetric counts calls per unordered content pair.
type recordingMetric struct {
	inner similarity.Metric
	mu    sync.Mutex
	calls map[string]int
}

func newRecordingMetric(t *testing.T) *recordingMetric {
	inner, err := similarity.New(similarity.Levenshtein)
	require.NoError(t, err)
	return &recordingMetric{inner: inner, calls: make(map[string]int)}
}

func (m *recordingMetric) Name() string { return "recording" }

func (m *recordingMetric) Score(a, b string) (float64, error) {
	m.mu.Lock()
	m.calls[getPairKey(a, b)]++
	m.mu.Unlock()
	return m.inner.Score(a, b)
}

// faultyMetric panics or errors on content containing a marker.
type faultyMetric struct {
	panicOn string
	errOn   string
	delay   time.Duration
}

func (m faultyMetric) Name() string { return "faulty" }

func (m faultyMetric) Score(a, b string) (float64, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.panicOn != "" && (strings.Contains(a, m.panicOn) || strings.Contains(b, m.panicOn)) {
		panic("boom")
	}
	if m.errOn != "" && (strings.Contains(a, m.errOn) || strings.Contains(b, m.errOn)) {
		return 0, errors.New("unreadable")
	}
	return 0.5, nil
}

func loadStore(t *testing.T, entries ...corpus.Entry) *corpus.Store {
	t.Helper()
	store, err := corpus.LoadDocuments(entries, corpus.Normalization{})
	require.NoError(t, err)
	return store
}

func randomCorpus(n int, seed int64) []corpus.Document {
	rng := rand.New(rand.NewSource(seed))
	words := []string{"alpha", "beta", "gamma", "delta", "for", "if", "return", "x", "y", "sum"}
	docs := make([]corpus.Document, n)
	for i := range docs {
		var sb strings.Builder
		for w := 0; w < 5+rng.Intn(20); w++ {
			sb.WriteString(words[rng.Intn(len(words))])
			sb.WriteByte(' ')
		}
		docs[i] = corpus.Document{ID: fmt.Sprintf("file-%02d.txt", i), Content: sb.String()}
	}
	// Force some exact ties.
	docs[3].Content = docs[1].Content
	docs[7].Content = docs[1].Content
	return docs
}

func TestCompare_HelloWorldScenario(t *testing.T) {
	store := loadStore(t,
		corpus.Entry{ID: "A", Text: "hello world"},
		corpus.Entry{ID: "B", Text: "hello world"},
		corpus.Entry{ID: "C", Text: "goodbye"},
	)

	cmp, err := Compare(context.Background(), store.All(), CompareOptions{Workers: 2})
	require.NoError(t, err)
	require.Len(t, cmp.Scores, 3)

	report := Rank(cmp.Scores, 0.9)
	require.Len(t, report, 1)
	assert.Equal(t, "A", report[0].Pair.A)
	assert.Equal(t, "B", report[0].Pair.B)
	assert.Equal(t, 1.0, report[0].Value)
}

func TestCompare_SingleDocument(t *testing.T) {
	store := loadStore(t, corpus.Entry{ID: "only", Text: "alone"})

	cmp, err := Compare(context.Background(), store.All(), CompareOptions{})
	require.NoError(t, err)
	assert.Empty(t, cmp.Scores)
	assert.Empty(t, cmp.Failures)
	assert.Empty(t, Rank(cmp.Scores, 0.5))
}

func TestCompare_EmptyAgainstNonEmpty(t *testing.T) {
	store := loadStore(t,
		corpus.Entry{ID: "empty", Text: ""},
		corpus.Entry{ID: "full", Text: "print('hi')"},
	)

	cmp, err := Compare(context.Background(), store.All(), CompareOptions{})
	require.NoError(t, err)
	require.Len(t, cmp.Scores, 1)
	assert.Equal(t, 0.0, cmp.Scores[0].Value)
}

func TestCompare_EveryPairScoredExactlyOnce(t *testing.T) {
	docs := makeDocs(20)
	metric := newRecordingMetric(t)

	var observed int
	cmp, err := Compare(context.Background(), docs, CompareOptions{
		Workers:         6,
		ChunksPerWorker: 3,
		Metric:          metric,
		OnScore:         func(Score) { observed++ },
	})
	require.NoError(t, err)

	assert.Equal(t, PairCount(20), cmp.Total)
	assert.Len(t, cmp.Scores, PairCount(20))
	assert.Equal(t, PairCount(20), observed)
	assert.Len(t, metric.calls, PairCount(20))
	for key, n := range metric.calls {
		assert.Equal(t, 1, n, "pair %s scored %d times", key, n)
	}

	// Scores come back in enumeration order.
	for i, s := range cmp.Scores {
		assert.Equal(t, i, s.Pair.Index)
	}
}

func TestCompare_ReportInvariantToWorkerCount(t *testing.T) {
	docs := randomCorpus(18, 42)

	var reports []RankedReport
	for _, workers := range []int{1, 2, 8} {
		cmp, err := Compare(context.Background(), docs, CompareOptions{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, min(workers, cmp.Total), cmp.Workers)
		reports = append(reports, Rank(cmp.Scores, 0.2))
	}

	require.NotEmpty(t, reports[0])
	assert.Equal(t, reports[0], reports[1])
	assert.Equal(t, reports[0], reports[2])
}

func TestCompare_FailuresAreIsolated(t *testing.T) {
	docs := []corpus.Document{
		{ID: "a", Content: "fine"},
		{ID: "b", Content: "PANIC here"},
		{ID: "c", Content: "fine too"},
		{ID: "d", Content: "ERR here"},
	}

	cmp, err := Compare(context.Background(), docs, CompareOptions{
		Workers: 3,
		Metric:  faultyMetric{panicOn: "PANIC", errOn: "ERR"},
	})
	require.NoError(t, err)

	// b fails with 3 partners, d with the remaining 2 (b-d counted once).
	assert.Len(t, cmp.Failures, 5)
	assert.Len(t, cmp.Scores, 1)
	assert.Equal(t, cmp.Total, cmp.Computed())
	assert.Equal(t, "a", cmp.Scores[0].Pair.A)
	assert.Equal(t, "c", cmp.Scores[0].Pair.B)

	var panics int
	for _, f := range cmp.Failures {
		assert.ErrorIs(t, f, ErrComparisonFailed)
		var pe *PanicError
		if errors.As(f, &pe) {
			panics++
			assert.Equal(t, "boom", pe.Value)
		}
	}
	assert.Equal(t, 3, panics)
}

func TestCompare_InvalidTextIsAttributedToPair(t *testing.T) {
	docs := []corpus.Document{
		{ID: "good", Content: "text"},
		{ID: "bad", Content: string([]byte{0xff, 0xfe, 0xfd})},
	}

	cmp, err := Compare(context.Background(), docs, CompareOptions{Workers: 1})
	require.NoError(t, err)
	require.Len(t, cmp.Failures, 1)
	assert.ErrorIs(t, cmp.Failures[0], similarity.ErrInvalidText)
	assert.Equal(t, "bad", cmp.Failures[0].Pair.B)
}

func TestCompare_FailFastAborts(t *testing.T) {
	docs := makeDocs(30)
	docs[0].Content = "ERR first document"

	cmp, err := Compare(context.Background(), docs, CompareOptions{
		Workers:  2,
		FailFast: true,
		Metric:   faultyMetric{errOn: "ERR", delay: time.Millisecond},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrComparisonFailed)

	var failed *ComparisonFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "doc-00", failed.Pair.A)

	require.NotNil(t, cmp)
	assert.NotEmpty(t, cmp.Failures)
	assert.Less(t, cmp.Computed(), cmp.Total, "remaining work should be abandoned")
}

func TestCompare_TimeoutReturnsPartialResults(t *testing.T) {
	docs := makeDocs(40) // 780 pairs

	cmp, err := Compare(context.Background(), docs, CompareOptions{
		Workers: 2,
		Timeout: 30 * time.Millisecond,
		Metric:  faultyMetric{delay: 2 * time.Millisecond},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 780, timeout.Total)
	assert.Less(t, timeout.Computed, timeout.Total)
	require.NotNil(t, cmp)
	assert.Len(t, cmp.Scores, timeout.Computed)
}

// stallingMetric blocks until release is closed, like one very long edit distance.
type stallingMetric struct {
	release chan struct{}
}

func (m stallingMetric) Name() string { return "stalling" }

func (m stallingMetric) Score(a, b string) (float64, error) {
	<-m.release
	return 0.5, nil
}

func TestCompare_TimeoutDoesNotWaitForSlowPair(t *testing.T) {
	metric := stallingMetric{release: make(chan struct{})}
	t.Cleanup(func() { close(metric.release) })

	docs := []corpus.Document{
		{ID: "a.txt", Content: strings.Repeat("a", 25000)},
		{ID: "b.txt", Content: strings.Repeat("b", 25000)},
	}

	start := time.Now()
	cmp, err := Compare(context.Background(), docs, CompareOptions{
		Workers: 1,
		Timeout: 10 * time.Millisecond,
		Metric:  metric,
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, time.Second, "Compare must return near the deadline")

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 0, timeout.Computed)
	assert.Equal(t, 1, timeout.Total)
	require.NotNil(t, cmp)
	assert.Empty(t, cmp.Scores)
}

func TestCompare_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmp, err := Compare(ctx, makeDocs(5), CompareOptions{Workers: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	require.NotNil(t, cmp)
}
