package report

import (
	"fmt"
	"os"

	"github.com/RishiKendai/cheatcheck/internal/plagiarism"
	"github.com/rs/zerolog"
)

// ComparisonLog writes every computed score as a JSON line.
type ComparisonLog struct {
	file   *os.File
	logger zerolog.Logger
}

func OpenComparisonLog(path string) (*ComparisonLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open comparison log: %w", err)
	}
	return &ComparisonLog{
		file:   f,
		logger: zerolog.New(f).With().Timestamp().Logger(),
	}, nil
}

// Record is safe to pass as CompareOptions.OnScore.
func (l *ComparisonLog) Record(score plagiarism.Score) {
	l.logger.Log().
		Str("a", score.Pair.A).
		Str("b", score.Pair.B).
		Float64("score", score.Value).
		Msg("")
}

func (l *ComparisonLog) RecordFailure(failure *plagiarism.ComparisonFailedError) {
	l.logger.Error().
		Str("a", failure.Pair.A).
		Str("b", failure.Pair.B).
		Err(failure.Cause).
		Msg("comparison failed")
}

func (l *ComparisonLog) Close() error {
	return l.file.Close()
}
