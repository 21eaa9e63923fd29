package plagiarism

import (
	"context"
	"testing"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/corpus"
	"github.com/RishiKendai/cheatcheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_EndToEnd(t *testing.T) {
	store := loadStore(t,
		corpus.Entry{ID: "A", Text: "hello world"},
		corpus.Entry{ID: "B", Text: "hello world"},
		corpus.Entry{ID: "C", Text: "goodbye"},
	)

	var steps []models.Step
	result, err := Run(context.Background(), store, RunOptions{
		CompareOptions: CompareOptions{Workers: 4},
		Threshold:      0.9,
		OnStep:         func(s models.Step) { steps = append(steps, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Documents)
	assert.Equal(t, 3, result.Pairs)
	assert.Equal(t, 3, result.Compared)
	require.Len(t, result.Report, 1)
	assert.Equal(t, "A", result.Report[0].Pair.A)
	assert.Equal(t, "B", result.Report[0].Pair.B)
	assert.Equal(t, 1.0, result.Report[0].Value)
	assert.Empty(t, result.Failures)
	assert.Len(t, result.Summaries, 2)
	assert.Equal(t, []models.Step{models.StepComparing, models.StepRanking}, steps)
}

func TestRun_RejectsInvalidThreshold(t *testing.T) {
	store := loadStore(t)
	_, err := Run(context.Background(), store, RunOptions{Threshold: 2})
	assert.Error(t, err)
}

func TestRun_EmptyCorpus(t *testing.T) {
	result, err := Run(context.Background(), loadStore(t), RunOptions{Threshold: 0.5})
	require.NoError(t, err)
	assert.Empty(t, result.Report)
	assert.Equal(t, "Safe", result.Risk)
}

func TestRun_TimeoutKeepsPartialReport(t *testing.T) {
	docs := make([]corpus.Entry, 30)
	for i, d := range makeDocs(30) {
		docs[i] = corpus.Entry{ID: d.ID, Text: d.Content}
	}
	store := loadStore(t, docs...)

	result, err := Run(context.Background(), store, RunOptions{
		CompareOptions: CompareOptions{
			Workers: 1,
			Timeout: 20 * time.Millisecond,
			Metric:  faultyMetric{delay: 2 * time.Millisecond},
		},
		Threshold: 0.5,
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.NotNil(t, result)
	assert.Less(t, result.Compared, result.Pairs)
	assert.Len(t, result.Report, result.Compared) // faultyMetric scores 0.5
}
