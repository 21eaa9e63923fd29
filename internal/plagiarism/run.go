package plagiarism

import (
	"context"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/corpus"
	"github.com/RishiKendai/cheatcheck/internal/models"
	"github.com/rs/zerolog/log"
)

// RunOptions configures a full compare-and-rank run.
type RunOptions struct {
	CompareOptions
	Threshold float64
	// OnStep reports progress; may be nil.
	OnStep func(models.Step)
}

// RunResult is everything the reporting layer renders.
type RunResult struct {
	Documents int                      `json:"documents"`
	Skipped   []string                 `json:"skipped"`
	Pairs     int                      `json:"pairs"`
	Compared  int                      `json:"compared"`
	Workers   int                      `json:"workers"`
	Threshold float64                  `json:"threshold"`
	Report    RankedReport             `json:"report"`
	Failures  []*ComparisonFailedError `json:"failures"`
	Summaries []DocumentSummary        `json:"summaries"`
	RiskScore float64                  `json:"riskScore"`
	Risk      string                   `json:"risk"`
	Duration  time.Duration            `json:"durationNs"`
}

// Run compares every document pair in store and ranks the scores.
// On timeout or fail-fast abort the partial result is returned with the error.
func Run(ctx context.Context, store *corpus.Store, opts RunOptions) (*RunResult, error) {
	if err := ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}

	step := func(s models.Step) {
		if opts.OnStep != nil {
			opts.OnStep(s)
		}
	}

	start := time.Now()
	docs := store.All()

	step(models.StepComparing)
	cmp, cmpErr := Compare(ctx, docs, opts.CompareOptions)
	if cmp == nil {
		return nil, cmpErr
	}

	step(models.StepRanking)
	report := Rank(cmp.Scores, opts.Threshold)
	summaries := Summarize(report)
	riskScore, risk := CorpusRisk(len(docs), report, summaries)

	result := &RunResult{
		Documents: len(docs),
		Skipped:   store.Skipped(),
		Pairs:     cmp.Total,
		Compared:  cmp.Computed(),
		Workers:   cmp.Workers,
		Threshold: opts.Threshold,
		Report:    report,
		Failures:  cmp.Failures,
		Summaries: summaries,
		RiskScore: riskScore,
		Risk:      risk,
		Duration:  time.Since(start),
	}
	if result.Failures == nil {
		result.Failures = []*ComparisonFailedError{}
	}

	log.Info().
		Int("documents", result.Documents).
		Int("pairs", result.Pairs).
		Int("reported", len(result.Report)).
		Int("failed", len(result.Failures)).
		Str("risk", result.Risk).
		Dur("duration", result.Duration).
		Msg("Run completed")

	return result, cmpErr
}
