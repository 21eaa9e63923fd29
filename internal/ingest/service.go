package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/loader"
	"github.com/RishiKendai/cheatcheck/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultMaxSourceBytes caps a single stored submission
const DefaultMaxSourceBytes = 1 << 20

type submissionWriter interface {
	UpsertSubmission(ctx context.Context, submission *models.Submission) error
}

// Service stores submissions consumed from the stream
type Service struct {
	repo     submissionWriter
	maxBytes int
}

func NewService(repo submissionWriter, maxBytes int) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSourceBytes
	}
	return &Service{
		repo:     repo,
		maxBytes: maxBytes,
	}
}

// ProcessSubmission re-encodes the source as UTF-8 and upserts it
func (s *Service) ProcessSubmission(ctx context.Context, submission *models.Submission) error {
	if len(submission.SourceCode) > s.maxBytes {
		return fmt.Errorf("submission %s exceeds %d bytes", submission.Identity(), s.maxBytes)
	}

	submission.SourceCode = loader.Decode([]byte(submission.SourceCode))
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}

	if err := s.repo.UpsertSubmission(ctx, submission); err != nil {
		return fmt.Errorf("failed to store submission: %w", err)
	}

	log.Debug().
		Str("driveId", submission.DriveID).
		Str("identity", submission.Identity()).
		Int("bytes", len(submission.SourceCode)).
		Msg("Submission stored")

	return nil
}
