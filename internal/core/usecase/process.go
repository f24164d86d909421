package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbelyaev/docgate/internal/core/domain"
	"github.com/vbelyaev/docgate/internal/core/ports"
)

// PipelineConfig carries the defaults applied to submissions that leave
// thresholds unset, and the retention window for persisted history.
type PipelineConfig struct {
	DefaultQualityThreshold    float64
	DefaultConfidenceThreshold float64
	Retention                  time.Duration
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DefaultQualityThreshold:    60,
		DefaultConfidenceThreshold: 80,
		Retention:                  7 * 24 * time.Hour,
	}
}

// ProcessDocumentUseCase runs one submission through the full pipeline:
// resolve, quality gate, optional preprocessing, extraction, enhancement,
// scoring, routing, history append.
type ProcessDocumentUseCase struct {
	resolver  ports.SourceResolver
	vision    ports.VisionService
	extractor ports.TextExtractor
	enhancer  ports.TextEnhancer
	history   ports.HistoryStore
	scorer    *ConfidenceScorer
	cfg       PipelineConfig
	now       func() time.Time
}

func NewProcessDocumentUseCase(
	resolver ports.SourceResolver,
	vision ports.VisionService,
	extractor ports.TextExtractor,
	enhancer ports.TextEnhancer,
	history ports.HistoryStore,
	scorer *ConfidenceScorer,
	cfg PipelineConfig,
) *ProcessDocumentUseCase {
	if cfg.DefaultQualityThreshold <= 0 {
		cfg.DefaultQualityThreshold = DefaultPipelineConfig().DefaultQualityThreshold
	}
	if cfg.DefaultConfidenceThreshold <= 0 {
		cfg.DefaultConfidenceThreshold = DefaultPipelineConfig().DefaultConfidenceThreshold
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultPipelineConfig().Retention
	}
	return &ProcessDocumentUseCase{
		resolver:  resolver,
		vision:    vision,
		extractor: extractor,
		enhancer:  enhancer,
		history:   history,
		scorer:    scorer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// pipelineState threads the intermediate products between stages.
type pipelineState struct {
	submission  domain.Submission
	source      *domain.ResolvedSource
	data        []byte
	quality     domain.QualityAssessment
	ocr         *domain.OCRResult
	enhancement *domain.EnhancementResult

	preprocessed bool
	warnings     []string
	timings      domain.StageTimings
}

// Process executes the pipeline for one submission. A timed-out context
// aborts without persisting anything; every other post-resolution failure
// is recorded as a failed history entry before the error is returned.
func (uc *ProcessDocumentUseCase) Process(ctx context.Context, sub domain.Submission) (*domain.ProcessingResult, error) {
	sub = uc.applyDefaults(sub)
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	start := uc.now()
	state := &pipelineState{submission: sub}

	result, err := uc.runStages(ctx, state)
	if err != nil {
		if timeoutErr := asTimeout(err); timeoutErr != nil {
			return nil, timeoutErr
		}
		if state.source != nil {
			uc.recordFailure(ctx, sub.DocumentID, err)
		}
		return nil, err
	}

	result.Timings.TotalSeconds = uc.now().Sub(start).Seconds()
	result.CreatedAt = start

	if err := uc.appendHistory(ctx, sub, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *ProcessDocumentUseCase) runStages(ctx context.Context, state *pipelineState) (*domain.ProcessingResult, error) {
	if err := uc.resolveSource(ctx, state); err != nil {
		return nil, err
	}
	if err := uc.assessQuality(ctx, state); err != nil {
		return nil, err
	}
	uc.preprocessIfNeeded(ctx, state)
	if err := uc.extractIfEligible(ctx, state); err != nil {
		return nil, err
	}
	uc.enhanceIfEligible(ctx, state)
	return uc.assemble(state), nil
}

func (uc *ProcessDocumentUseCase) applyDefaults(sub domain.Submission) domain.Submission {
	if sub.DocumentID == "" {
		sub.DocumentID = uuid.NewString()
	}
	if sub.ReturnFormat == "" {
		sub.ReturnFormat = domain.ReturnFull
	}
	if sub.QualityThreshold == 0 {
		sub.QualityThreshold = uc.cfg.DefaultQualityThreshold
	}
	if sub.ConfidenceThreshold == 0 {
		sub.ConfidenceThreshold = uc.cfg.DefaultConfidenceThreshold
	}
	return sub
}

func (uc *ProcessDocumentUseCase) resolveSource(ctx context.Context, state *pipelineState) error {
	source, err := uc.resolver.Resolve(ctx, state.submission.Source)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	state.source = source
	state.data = source.Data
	return nil
}

func (uc *ProcessDocumentUseCase) assessQuality(ctx context.Context, state *pipelineState) error {
	started := uc.now()
	metrics, err := uc.vision.AssessQuality(ctx, state.data)
	state.timings.QualitySeconds = uc.now().Sub(started).Seconds()
	if err != nil {
		return domain.WrapError(domain.ErrRemoteService, "assess quality", err)
	}
	state.quality = domain.NewQualityAssessment(metrics, state.submission.QualityThreshold)
	return nil
}

// preprocessIfNeeded retries the quality gate on preprocessed bytes when the
// initial assessment failed and the submission opted in. The second
// assessment is authoritative. Preprocessing trouble downgrades to a
// warning and the original bytes stay in effect.
func (uc *ProcessDocumentUseCase) preprocessIfNeeded(ctx context.Context, state *pipelineState) {
	if state.quality.Passed || !state.submission.EnablePreprocessing {
		return
	}

	started := uc.now()
	improved, err := uc.vision.Preprocess(ctx, state.data)
	state.timings.PreprocessSeconds = uc.now().Sub(started).Seconds()
	if err != nil {
		state.warnings = append(state.warnings, fmt.Sprintf("preprocessing failed: %v", err))
		return
	}

	metrics, err := uc.vision.AssessQuality(ctx, improved)
	if err != nil {
		state.warnings = append(state.warnings, fmt.Sprintf("post-preprocessing quality check failed: %v", err))
		return
	}

	state.data = improved
	state.preprocessed = true
	state.quality = domain.NewQualityAssessment(metrics, state.submission.QualityThreshold)
}

// extractIfEligible runs OCR when the quality gate passed, or when
// preprocessing ran: preprocessing is a best-effort improvement, and a
// still-failing score routes to review with a real confidence blend
// instead of silently skipping extraction. Extraction failure is fatal.
func (uc *ProcessDocumentUseCase) extractIfEligible(ctx context.Context, state *pipelineState) error {
	if !state.submission.EnableOCR {
		return nil
	}
	if !state.quality.Passed && !state.preprocessed {
		return nil
	}

	started := uc.now()
	ocr, err := uc.extractor.ExtractText(ctx, state.data)
	state.timings.OCRSeconds = uc.now().Sub(started).Seconds()
	if err != nil {
		return domain.WrapError(domain.ErrRemoteService, "extract text", err)
	}
	state.ocr = ocr
	return nil
}

// enhanceIfEligible runs LLM post-correction over the extracted text.
// Enhancement never fails the run; trouble becomes a warning and the raw
// extraction stands.
func (uc *ProcessDocumentUseCase) enhanceIfEligible(ctx context.Context, state *pipelineState) {
	if state.ocr == nil || state.ocr.Text == "" || !state.submission.EnableEnhancement {
		return
	}

	started := uc.now()
	enhanced, err := uc.enhancer.Enhance(ctx, state.ocr.Text)
	state.timings.EnhancementSeconds = uc.now().Sub(started).Seconds()
	if err != nil {
		state.warnings = append(state.warnings, fmt.Sprintf("enhancement failed, returning raw extraction: %v", err))
		return
	}
	state.enhancement = enhanced
}

func (uc *ProcessDocumentUseCase) assemble(state *pipelineState) *domain.ProcessingResult {
	quality := state.quality
	report := uc.scorer.BuildReport(quality, state.ocr, state.submission.ConfidenceThreshold)

	return &domain.ProcessingResult{
		DocumentID:   state.submission.DocumentID,
		Filename:     state.submission.Filename,
		Format:       state.source.Format,
		SizeBytes:    state.source.SizeBytes,
		PageCount:    state.source.PageCount,
		Quality:      &quality,
		OCR:          state.ocr,
		Enhancement:  state.enhancement,
		Confidence:   report,
		Preprocessed: state.preprocessed,
		Warnings:     state.warnings,
		Timings:      state.timings,
	}
}

func (uc *ProcessDocumentUseCase) appendHistory(ctx context.Context, sub domain.Submission, result *domain.ProcessingResult) error {
	record := &domain.HistoryRecord{
		DocumentID: result.DocumentID,
		Status:     string(result.Confidence.RoutingDecision),
		Result:     result,
		CreatedAt:  result.CreatedAt,
		ExpiresAt:  result.CreatedAt.Add(uc.cfg.Retention),
	}
	if result.Confidence.RoutingDecision == domain.RouteRequiresReview {
		record.Priority = uc.scorer.ReviewPriority(result.Confidence.FinalConfidence, sub.ConfidenceThreshold)
	}
	if err := uc.history.Insert(ctx, record); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// recordFailure persists a failed history entry so the outcome stays
// visible to history reads. Persistence trouble here is swallowed; the
// original pipeline error is what the caller needs.
func (uc *ProcessDocumentUseCase) recordFailure(ctx context.Context, documentID string, pipelineErr error) {
	now := uc.now()
	record := &domain.HistoryRecord{
		DocumentID:   documentID,
		Status:       domain.HistoryStatusFailed,
		ErrorCode:    domain.ErrorCode(pipelineErr),
		ErrorMessage: pipelineErr.Error(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(uc.cfg.Retention),
	}
	_ = uc.history.Insert(ctx, record)
}

// asTimeout converts a deadline-driven failure into the timeout kind.
// Nothing is persisted for a timed-out run.
func asTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTimeout, "process document", err)
	}
	return nil
}
