package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/config"
	"github.com/RishiKendai/cheatcheck/internal/corpus"
	"github.com/RishiKendai/cheatcheck/internal/metrics"
	"github.com/RishiKendai/cheatcheck/internal/models"
	"github.com/RishiKendai/cheatcheck/internal/plagiarism"
	"github.com/RishiKendai/cheatcheck/internal/similarity"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SubmissionReader loads the stored submissions of a drive
type SubmissionReader interface {
	GetSubmissionsByDriveID(ctx context.Context, driveID string) ([]*models.Submission, error)
}

// StatusTracker records and reports drive run progress
type StatusTracker interface {
	Update(ctx context.Context, driveID string, step models.Step) error
	Get(ctx context.Context, driveID string) (*models.RunStatus, error)
}

// Handler holds dependencies for handlers
type Handler struct {
	cfg         *config.Config
	submissions SubmissionReader
	statuses    StatusTracker
	computeSem  chan struct{} // Semaphore for bounded concurrency
}

// NewHandler creates a new handler
func NewHandler(cfg *config.Config, submissions SubmissionReader, statuses StatusTracker) *Handler {
	return &Handler{
		cfg:         cfg,
		submissions: submissions,
		statuses:    statuses,
		computeSem:  make(chan struct{}, cfg.MaxConcurrentCompute),
	}
}

// PartialResultResponse is returned when a run stopped early
type PartialResultResponse struct {
	Error  string                `json:"error"`
	Code   string                `json:"code"`
	Result *plagiarism.RunResult `json:"result"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Compare runs a comparison over documents sent inline
func (h *Handler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if len(req.Documents) > h.cfg.MaxDocuments {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("at most %d documents are allowed", h.cfg.MaxDocuments),
			Code:  "TOO_MANY_DOCUMENTS",
		})
		return
	}

	runOpts, policy, err := h.runOptions(req.CompareOptions)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "INVALID_OPTIONS"})
		return
	}

	entries := make([]corpus.Entry, len(req.Documents))
	for i, doc := range req.Documents {
		entries[i] = corpus.Entry{ID: doc.ID, Text: doc.Content}
	}
	store, err := corpus.LoadDocuments(entries, policy, templateOptions(req.Template)...)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "INVALID_DOCUMENTS"})
		return
	}

	if !h.acquire(c) {
		return
	}
	defer h.release()

	result, runErr := plagiarism.Run(c.Request.Context(), store, runOpts)
	metrics.ObserveRun(result, runErr)
	respondWithRun(c, result, runErr)
}

// CompareDrive runs a comparison over every stored submission of a drive
func (h *Handler) CompareDrive(c *gin.Context) {
	driveID := c.Param("driveId")
	if driveID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "driveId is required", Code: "INVALID_DRIVE_ID"})
		return
	}

	var opts models.CompareOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	runOpts, policy, err := h.runOptions(opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "INVALID_OPTIONS"})
		return
	}

	if !h.acquire(c) {
		return
	}
	defer h.release()

	ctx := c.Request.Context()
	h.updateStatus(ctx, driveID, models.StepStarted)
	h.updateStatus(ctx, driveID, models.StepLoading)

	submissions, err := h.submissions.GetSubmissionsByDriveID(ctx, driveID)
	if err != nil {
		log.Error().Err(err).Str("driveId", driveID).Msg("Failed to load submissions")
		h.updateStatus(ctx, driveID, models.StepFailed)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load submissions",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if len(submissions) == 0 {
		h.updateStatus(ctx, driveID, models.StepFailed)
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "No submissions found for driveId",
			Code:  "DRIVE_ID_NOT_FOUND",
		})
		return
	}
	if len(submissions) > h.cfg.MaxDocuments {
		h.updateStatus(ctx, driveID, models.StepFailed)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("drive has %d submissions, at most %d are allowed", len(submissions), h.cfg.MaxDocuments),
			Code:  "TOO_MANY_DOCUMENTS",
		})
		return
	}

	entries := make([]corpus.Entry, len(submissions))
	for i, sub := range submissions {
		entries[i] = corpus.Entry{ID: sub.Identity(), Text: sub.SourceCode}
	}
	store, err := corpus.LoadDocuments(entries, policy, templateOptions(opts.Template)...)
	if err != nil {
		h.updateStatus(ctx, driveID, models.StepFailed)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "INVALID_DOCUMENTS"})
		return
	}

	runOpts.OnStep = func(step models.Step) { h.updateStatus(ctx, driveID, step) }
	result, runErr := plagiarism.Run(ctx, store, runOpts)
	metrics.ObserveRun(result, runErr)

	if runErr != nil {
		h.updateStatus(ctx, driveID, models.StepFailed)
	} else {
		h.updateStatus(ctx, driveID, models.StepCompleted)
	}

	log.Info().
		Str("driveId", driveID).
		Int("submissions", len(submissions)).
		Err(runErr).
		Msg("Drive comparison finished")

	respondWithRun(c, result, runErr)
}

// DriveStatus reports the progress of the latest run of a drive
func (h *Handler) DriveStatus(c *gin.Context) {
	driveID := c.Param("driveId")
	status, err := h.statuses.Get(c.Request.Context(), driveID)
	if err != nil {
		log.Error().Err(err).Str("driveId", driveID).Msg("Failed to read status")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to read status",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, status)
}

// runOptions merges request options over the server configuration
func (h *Handler) runOptions(req models.CompareOptions) (plagiarism.RunOptions, corpus.Normalization, error) {
	var policy corpus.Normalization
	if req.Threshold == nil {
		return plagiarism.RunOptions{}, policy, errors.New("threshold is required")
	}
	if err := plagiarism.ValidateThreshold(*req.Threshold); err != nil {
		return plagiarism.RunOptions{}, policy, err
	}
	if req.Workers < 0 || req.TimeoutSeconds < 0 {
		return plagiarism.RunOptions{}, policy, errors.New("workers and timeoutSeconds must not be negative")
	}

	algorithm := h.cfg.Algorithm
	if req.Algorithm != "" {
		algorithm = req.Algorithm
	}
	metric, err := similarity.New(similarity.Algorithm(algorithm))
	if err != nil {
		return plagiarism.RunOptions{}, policy, err
	}

	workers := h.cfg.Workers
	if req.Workers > 0 {
		workers = req.Workers
	}
	timeout := h.cfg.Timeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	policy = corpus.Normalization{
		CaseFold:           req.CaseFold || h.cfg.CaseFold,
		CollapseWhitespace: req.CollapseWhitespace || h.cfg.CollapseWhitespace,
	}

	return plagiarism.RunOptions{
		CompareOptions: plagiarism.CompareOptions{
			Workers:         workers,
			ChunksPerWorker: h.cfg.ChunksPerWorker,
			FailFast:        req.FailFast || h.cfg.FailFast,
			Timeout:         timeout,
			Metric:          metric,
		},
		Threshold: *req.Threshold,
	}, policy, nil
}

func templateOptions(template string) []corpus.Option {
	if template == "" {
		return nil
	}
	return []corpus.Option{corpus.WithTemplate(template)}
}

// acquire takes a compute slot, answering the request itself if it gives up
func (h *Handler) acquire(c *gin.Context) bool {
	select {
	case h.computeSem <- struct{}{}:
		return true
	case <-c.Request.Context().Done():
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return false
	}
}

func (h *Handler) release() {
	<-h.computeSem
}

func (h *Handler) updateStatus(ctx context.Context, driveID string, step models.Step) {
	if err := h.statuses.Update(ctx, driveID, step); err != nil {
		log.Warn().Err(err).Str("driveId", driveID).Str("step", string(step)).Msg("Failed to update status")
	}
}

func respondWithRun(c *gin.Context, result *plagiarism.RunResult, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case result != nil && errors.Is(err, plagiarism.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, PartialResultResponse{Error: err.Error(), Code: "TIMEOUT", Result: result})
	case result != nil && errors.Is(err, plagiarism.ErrComparisonFailed):
		c.JSON(http.StatusUnprocessableEntity, PartialResultResponse{Error: err.Error(), Code: "COMPARISON_FAILED", Result: result})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{Error: "Request cancelled", Code: "REQUEST_TIMEOUT"})
	default:
		log.Error().Err(err).Msg("Comparison run failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Code: "INTERNAL_ERROR"})
	}
}
